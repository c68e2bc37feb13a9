package browser

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	cdbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/stupside/lutra/internal/observe"
	"github.com/stupside/lutra/internal/pipeline"
)

// Tab describes one open page target.
type Tab struct {
	ID    string
	Title string
	URL   string
}

// Tabs lists the browser's open pages.
func (s *Session) Tabs() ([]Tab, error) {
	infos, err := chromedp.Targets(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing targets: %w", err)
	}

	tabs := make([]Tab, 0, len(infos))
	for _, info := range infos {
		if info.Type != "page" {
			continue
		}
		tabs = append(tabs, Tab{
			ID:    string(info.TargetID),
			Title: info.Title,
			URL:   info.URL,
		})
	}
	return tabs, nil
}

// Watch attaches to an existing tab and feeds its network traffic into the
// registry until the tab closes or the session ends.
func (s *Session) Watch(ctx context.Context, contextID string) error {
	_, err := s.attach(ctx, target.ID(contextID))
	return err
}

// Navigate opens a new tab with capture already wired and navigates it to
// the given URL. It returns the new tab's identifier.
func (s *Session) Navigate(ctx context.Context, rawURL string) (string, error) {
	if observe.RejectedScheme(rawURL) || pipeline.IsProtectedURL(rawURL) {
		return "", fmt.Errorf("refusing to open %q", rawURL)
	}

	tabCtx, tabCancel := chromedp.NewContext(s.root)
	s.listen(tabCtx)

	// Navigate with a timeout, but don't use a child context — canceling a
	// child of the chromedp task context breaks the target in chromedp v0.14.
	navDone := make(chan error, 1)
	go func() {
		navDone <- chromedp.Run(tabCtx,
			runtime.Enable(),
			network.Enable(),
			cdbrowser.SetDownloadBehavior(cdbrowser.SetDownloadBehaviorBehaviorDeny),
			chromedp.Navigate(rawURL),
		)
	}()

	var err error
	select {
	case err = <-navDone:
	case <-time.After(s.cfg.Timeout):
		err = fmt.Errorf("navigation timed out after %s", s.cfg.Timeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		tabCancel()
		return "", fmt.Errorf("navigating to %s: %w", rawURL, err)
	}

	id := chromedp.FromContext(tabCtx).Target.TargetID
	s.remember(id, tabCtx, tabCancel)
	return string(id), nil
}

// attach binds a chromedp context to the given target and wires capture,
// once per target. Later calls reuse the first attachment.
func (s *Session) attach(ctx context.Context, id target.ID) (context.Context, error) {
	s.mu.Lock()
	t, ok := s.tabs[id]
	s.mu.Unlock()
	if ok {
		return t.ctx, nil
	}

	tabCtx, tabCancel := chromedp.NewContext(s.root, chromedp.WithTargetID(id))
	s.listen(tabCtx)

	if err := chromedp.Run(tabCtx, runtime.Enable(), network.Enable()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("attaching to target %s: %w", id, err)
	}

	return s.remember(id, tabCtx, tabCancel), nil
}

// consoleURLPattern matches media URLs players print to the console.
var consoleURLPattern = regexp.MustCompile(`https?://[^\s"'<>]+\.(?:m3u8|mpd|mp4|webm)[^\s"'<>]*`)

// listen feeds a tab's network and console events into the registry. The
// registry applies the admission rule, so every sighting can be offered.
func (s *Session) listen(tabCtx context.Context) {
	c := chromedp.FromContext(tabCtx)
	chromedp.ListenTarget(tabCtx, func(ev any) {
		if c.Target == nil {
			return
		}
		id := string(c.Target.TargetID)

		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			s.registry.ObserveURL(id, e.Request.URL, time.Now())

		case *network.EventResponseReceived:
			// Redirect chains surface their final URL here.
			s.registry.ObserveURL(id, e.Response.URL, time.Now())

		case *runtime.EventConsoleAPICalled:
			for _, arg := range e.Args {
				val := strings.Trim(string(arg.Value), `"`)
				for _, m := range consoleURLPattern.FindAllString(val, -1) {
					s.registry.ObserveURL(id, m, time.Now())
				}
			}
		}
	})
}
