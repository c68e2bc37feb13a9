package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"github.com/stupside/lutra/internal/hls"
	"github.com/stupside/lutra/internal/media"
	"github.com/stupside/lutra/internal/observe"
)

// enrich fills best-effort metadata concurrently. Each goroutine mutates
// only its own item, and every item settles before enrich returns. Failures
// leave fields unset; they never abort the scan or another item.
func (p *Pipeline) enrich(ctx context.Context, items []observe.Observation) {
	var g errgroup.Group
	for i := range items {
		g.Go(func() error {
			p.enrichItem(ctx, &items[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.WarnContext(ctx, "enrichment wait", "error", err)
	}
}

func (p *Pipeline) enrichItem(ctx context.Context, obs *observe.Observation) {
	switch obs.Kind {
	case media.KindVideo, media.KindAudio:
		p.probeSize(ctx, obs)
	case media.KindStreaming:
		p.enrichManifest(ctx, obs)
	}
}

// probeSize issues a header-only request bounded by its own short timeout.
func (p *Pipeline) probeSize(ctx context.Context, obs *observe.Observation) {
	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, obs.URL, nil)
	if err != nil {
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		slog.DebugContext(ctx, "size probe failed", "url", obs.URL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return
	}
	if resp.ContentLength > 0 {
		obs.SizeBytes = resp.ContentLength
	}
}

// enrichManifest classifies a streaming item's manifest role from a content
// prefix and, where the content allows, attaches duration and a suggested
// master URL.
func (p *Pipeline) enrichManifest(ctx context.Context, obs *observe.Observation) {
	body, err := p.fetchManifest(ctx, obs.URL)
	if err != nil {
		slog.DebugContext(ctx, "manifest fetch failed", "url", obs.URL, "error", err)
		return
	}

	role := media.ClassifyManifestRole(p.prefix(body))
	if role == media.RoleUnknown {
		return
	}
	obs.ManifestRole = role

	base, err := url.Parse(obs.URL)
	if err != nil {
		return
	}
	playlist, err := hls.Parse(base, bytes.NewReader(body))
	if err != nil {
		return
	}

	switch role {
	case media.RoleMedia:
		obs.DurationSeconds = playlist.Duration()
		obs.SuggestedMasterURL = hls.SuggestMaster(base)

	case media.RoleMaster:
		variant, ok := playlist.FirstVariant()
		if !ok {
			return
		}
		vbody, err := p.fetchManifest(ctx, variant.String())
		if err != nil {
			slog.DebugContext(ctx, "variant fetch failed", "url", variant.String(), "error", err)
			return
		}
		if media.ClassifyManifestRole(p.prefix(vbody)) != media.RoleMedia {
			return
		}
		vplaylist, err := hls.Parse(variant, bytes.NewReader(vbody))
		if err != nil {
			return
		}
		// The variant's duration is attributed to the master item.
		obs.DurationSeconds = vplaylist.Duration()
	}
}

func (p *Pipeline) prefix(body []byte) []byte {
	if int64(len(body)) > p.prefixBytes {
		return body[:p.prefixBytes]
	}
	return body
}

// fetchManifest GETs a manifest, reading at most the configured cap.
func (p *Pipeline) fetchManifest(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetching manifest: HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.readLimit))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return body, nil
}
