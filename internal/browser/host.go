package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/stupside/lutra/internal/observe"
	"github.com/stupside/lutra/internal/pipeline"
	"github.com/stupside/lutra/internal/scan"
)

var _ pipeline.Host = (*Session)(nil)

// ContextURL resolves a tab identifier to the URL its page is showing.
func (s *Session) ContextURL(ctx context.Context, contextID string) (string, error) {
	infos, err := chromedp.Targets(s.root)
	if err != nil {
		return "", fmt.Errorf("listing targets: %w", err)
	}

	for _, info := range infos {
		if string(info.TargetID) == contextID {
			return info.URL, nil
		}
	}
	return "", fmt.Errorf("%w: %s", pipeline.ErrUnknownContext, contextID)
}

// ScanDOM evaluates the collector script in the tab's document and converts
// the page state it returns into observations.
func (s *Session) ScanDOM(ctx context.Context, contextID string) ([]observe.Observation, error) {
	tabCtx, err := s.attach(ctx, target.ID(contextID))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrInjection, err)
	}

	var page scan.Page
	if err := chromedp.Run(tabCtx, chromedp.Evaluate(scan.Script, &page)); err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrInjection, err)
	}

	return scan.Collect(page), nil
}
