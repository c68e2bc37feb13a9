// Package browser drives Chrome over the DevTools protocol. It owns the
// allocator and per-tab attachments, feeds passive network capture into the
// observation registry, and acts as the pipeline's host adapter.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/stupside/lutra/internal/observe"
)

// Config selects and tunes the browser the session drives.
type Config struct {
	// RemoteURL attaches to an already-running browser's DevTools endpoint.
	// When empty, a browser is launched instead.
	RemoteURL  string
	ChromePath string
	Headless   bool
	NoSandbox  bool
	// Timeout bounds navigation when opening pages.
	Timeout time.Duration
}

// Session is a connection to one browser, remote or launched.
type Session struct {
	cfg      Config
	registry *observe.Registry

	root        context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu   sync.Mutex
	tabs map[target.ID]*tab
}

// tab is one attached target.
type tab struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSession connects to the browser named by cfg and starts watching target
// lifecycle so closed tabs release their observation stores.
func NewSession(ctx context.Context, cfg Config, registry *observe.Registry) (*Session, error) {
	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if cfg.RemoteURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(ctx, cfg.RemoteURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(ctx, allocatorOpts(cfg)...)
	}

	root, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		cfg:         cfg,
		registry:    registry,
		root:        root,
		cancel:      cancel,
		allocCancel: allocCancel,
		tabs:        make(map[target.ID]*tab),
	}

	// Browser listeners must be registered before the browser starts.
	chromedp.ListenBrowser(root, func(ev any) {
		if e, ok := ev.(*target.EventTargetDestroyed); ok {
			s.release(e.TargetID)
		}
	})

	// The first target listing starts the browser when one was launched.
	if _, err := s.Tabs(); err != nil {
		cancel()
		allocCancel()
		return nil, err
	}

	c := chromedp.FromContext(root)
	if err := target.SetDiscoverTargets(true).Do(cdp.WithExecutor(ctx, c.Browser)); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("enabling target discovery: %w", err)
	}

	return s, nil
}

// Close detaches from every tab and tears down the browser connection. A
// launched browser exits, a remote one keeps running.
func (s *Session) Close() {
	s.mu.Lock()
	tabs := s.tabs
	s.tabs = make(map[target.ID]*tab)
	s.mu.Unlock()

	for id, t := range tabs {
		t.cancel()
		s.registry.Drop(string(id))
	}

	s.cancel()
	s.allocCancel()
}

// release drops everything held for a target that no longer exists.
func (s *Session) release(id target.ID) {
	s.mu.Lock()
	t, ok := s.tabs[id]
	if ok {
		delete(s.tabs, id)
	}
	s.mu.Unlock()

	if ok {
		t.cancel()
	}
	s.registry.Drop(string(id))
}

// remember keeps an attachment for reuse. When another attachment to the
// same target won the race, the new one is detached and the existing one
// returned.
func (s *Session) remember(id target.ID, tabCtx context.Context, cancel context.CancelFunc) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tabs[id]; ok {
		cancel()
		return t.ctx
	}
	s.tabs[id] = &tab{ctx: tabCtx, cancel: cancel}
	return tabCtx
}

// allocatorOpts returns exec-allocator options for a launched browser. Pages
// keep playing and issuing requests while not focused, and media elements
// autoplay so their traffic shows up without interaction.
func allocatorOpts(cfg Config) []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("no-sandbox", cfg.NoSandbox),

		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),

		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),
	}
	if cfg.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}
