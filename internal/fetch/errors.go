package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrNoStreamFound means a master playlist declared no followable
	// variant reference.
	ErrNoStreamFound = errors.New("no stream found in master playlist")

	// ErrEmptyManifest means a media playlist referenced no segments.
	ErrEmptyManifest = errors.New("manifest contains no segments")

	// ErrCancelled means the reconstruction was stopped by its cancellation
	// signal. No payload or artifact is produced.
	ErrCancelled = errors.New("reconstruction cancelled")
)

// ManifestError wraps a failure to fetch or read a playlist.
type ManifestError struct {
	URL string
	Err error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("fetching manifest %s: %v", e.URL, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// SegmentError names the segment index that aborted a reconstruction.
type SegmentError struct {
	Index int
	Err   error
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("fetching segment %d: %v", e.Index, e.Err)
}

func (e *SegmentError) Unwrap() error { return e.Err }
