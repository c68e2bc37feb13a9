// Package pipeline turns a scan request into a merged, enriched observation
// list: network store snapshot plus a fresh document scan, deduplicated by
// URL, then concurrently enriched with best-effort metadata.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/stupside/lutra/internal/observe"
)

// Host is the browser environment the pipeline runs against. A fake host
// stands in for the browser in tests.
type Host interface {
	// ContextURL resolves a context identifier to its page URL.
	ContextURL(ctx context.Context, contextID string) (string, error)
	// ScanDOM runs the document scanner inside the context and returns its
	// observations.
	ScanDOM(ctx context.Context, contextID string) ([]observe.Observation, error)
}

// Config holds pipeline tuning.
type Config struct {
	// ProbeTimeout bounds each byte-size probe.
	ProbeTimeout time.Duration
	// ManifestPrefix is how many manifest bytes the role classifier sees.
	ManifestPrefix int64
	// ManifestReadLimit caps how much of a manifest is read for durations.
	ManifestReadLimit int64
}

// Pipeline merges and enriches observations for one registry and host.
type Pipeline struct {
	host     Host
	registry *observe.Registry
	client   *http.Client

	probeTimeout time.Duration
	prefixBytes  int64
	readLimit    int64
}

// New builds a pipeline. Zero config fields fall back to defaults.
func New(host Host, registry *observe.Registry, cfg Config) *Pipeline {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 2 * time.Second
	}
	if cfg.ManifestPrefix <= 0 {
		cfg.ManifestPrefix = 1024
	}
	if cfg.ManifestReadLimit <= 0 {
		cfg.ManifestReadLimit = 1 << 20
	}
	return &Pipeline{
		host:         host,
		registry:     registry,
		client:       &http.Client{},
		probeTimeout: cfg.ProbeTimeout,
		prefixBytes:  cfg.ManifestPrefix,
		readLimit:    cfg.ManifestReadLimit,
	}
}

// Scan merges the context's network observations with a fresh document scan
// and enriches each surviving item. An empty result means no media was
// found; it is not an error. A failing document scan degrades the result to
// network observations only. Protected contexts are rejected before the
// store is read or injection is attempted.
func (p *Pipeline) Scan(ctx context.Context, contextID string) ([]observe.Observation, error) {
	pageURL, err := p.host.ContextURL(ctx, contextID)
	if err != nil {
		return nil, fmt.Errorf("resolving context %q: %w", contextID, err)
	}
	if IsProtectedURL(pageURL) {
		return nil, fmt.Errorf("cannot scan %s: %w", pageURL, ErrProtectedContext)
	}

	domObs, err := p.host.ScanDOM(ctx, contextID)
	if err != nil {
		slog.WarnContext(ctx, "document scan failed, continuing with network observations only",
			"context", contextID, "error", err)
		domObs = nil
	}

	var netObs []observe.Observation
	if store, ok := p.registry.Lookup(contextID); ok {
		netObs = store.Snapshot()
	}

	merged := Merge(domObs, netObs)
	p.enrich(ctx, merged)

	slog.DebugContext(ctx, "scan complete",
		"context", contextID, "dom", len(domObs), "network", len(netObs), "merged", len(merged))
	return merged, nil
}

// Merge deduplicates observations by URL, keeping the first occurrence.
// Document results come first, so their metadata wins over network metadata
// for the same URL.
func Merge(dom, network []observe.Observation) []observe.Observation {
	seen := make(map[string]bool, len(dom)+len(network))
	merged := make([]observe.Observation, 0, len(dom)+len(network))
	for _, obs := range slices.Concat(dom, network) {
		if seen[obs.URL] {
			continue
		}
		seen[obs.URL] = true
		merged = append(merged, obs)
	}
	return merged
}
