package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// State tracks a reconstruction job through its lifecycle.
type State string

const (
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Job is one reconstruction writing a single output file. Its fields are
// updated by the service goroutine and published through the OnUpdate
// callback; after Wait returns they are stable.
type Job struct {
	ID          string
	ManifestURL string
	Path        string
	State       State
	Done        int
	Total       int
	Err         error

	cancel   context.CancelFunc
	finished chan struct{}
}

// Wait blocks until the job finishes or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.finished:
		return j.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Service runs reconstruction jobs and reports their progress.
type Service struct {
	client *http.Client

	mu       sync.Mutex
	jobs     map[string]*Job
	onUpdate func(*Job)
}

// NewService returns a service with no jobs.
func NewService() *Service {
	return &Service{
		client: &http.Client{},
		jobs:   make(map[string]*Job),
	}
}

// OnUpdate registers a progress consumer called after every job change.
// Having no consumer is fine.
func (s *Service) OnUpdate(fn func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = fn
}

// Start launches a job reconstructing manifestURL into path. The output
// file appears only on success; failed and cancelled jobs leave no partial
// artifact behind.
func (s *Service) Start(ctx context.Context, manifestURL, path string) *Job {
	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:          uuid.NewString(),
		ManifestURL: manifestURL,
		Path:        path,
		State:       StateRunning,
		cancel:      cancel,
		finished:    make(chan struct{}),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	go s.run(jobCtx, job)
	return job
}

// Cancel stops a running job. Unknown and finished jobs are a no-op.
func (s *Service) Cancel(id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	s.mu.Unlock()
	if ok {
		job.cancel()
	}
}

// Get returns a job by id.
func (s *Service) Get(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	return job, ok
}

func (s *Service) run(ctx context.Context, job *Job) {
	defer close(job.finished)
	defer job.cancel()

	err := s.reconstructToFile(ctx, job)
	switch {
	case err == nil:
		job.State = StateDone
	case errors.Is(err, ErrCancelled):
		job.State = StateCancelled
		job.Err = err
	default:
		job.State = StateFailed
		job.Err = err
	}
	s.update(job)
}

// reconstructToFile streams segments into a temporary file and renames it
// into place only on success, so no partial artifact survives failure or
// cancellation.
func (s *Service) reconstructToFile(ctx context.Context, job *Job) error {
	playlist, err := ResolveMedia(ctx, s.client, job.ManifestURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrCancelled
		}
		return err
	}
	if len(playlist.Segments) == 0 {
		return fmt.Errorf("%s: %w", job.ManifestURL, ErrEmptyManifest)
	}
	job.Total = len(playlist.Segments)
	s.update(job)

	tmp, err := os.CreateTemp(filepath.Dir(job.Path), ".lutra-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name()) // no-op once renamed into place
	}()

	err = WriteSegments(ctx, s.client, tmp, playlist.Segments, func(done, total int) {
		job.Done = done
		job.Total = total
		s.update(job)
	})
	if err != nil {
		return err
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}
	if err := os.Rename(tmp.Name(), job.Path); err != nil {
		return fmt.Errorf("moving output into place: %w", err)
	}
	return nil
}

func (s *Service) update(job *Job) {
	s.mu.Lock()
	fn := s.onUpdate
	s.mu.Unlock()
	if fn != nil {
		fn(job)
	}
}
