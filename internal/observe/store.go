// Package observe holds the per-context network observation stores and the
// registry that owns them.
package observe

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/stupside/lutra/internal/media"
)

// Origin records which channel discovered an observation.
type Origin string

const (
	OriginNetwork Origin = "network"
	OriginDOM     Origin = "dom"
)

// Observation is one discovered candidate media URL with its provenance.
// The URL is always absolute and scheme-resolved.
type Observation struct {
	URL          string     `json:"url"`
	Kind         media.Kind `json:"kind"`
	Origin       Origin     `json:"origin"`
	OriginDetail string     `json:"originDetail,omitempty"`
	DiscoveredAt time.Time  `json:"discoveredAt,omitzero"`

	// Enrichment fields, zero value = not determined.
	SizeBytes          int64              `json:"sizeBytes,omitempty"`
	ManifestRole       media.ManifestRole `json:"manifestRole,omitempty"`
	DurationSeconds    float64            `json:"durationSeconds,omitempty"`
	SuggestedMasterURL string             `json:"suggestedMasterUrl,omitempty"`
}

// rejectedSchemes never produce observations, regardless of what the
// classifier would say about the rest of the URL.
var rejectedSchemes = []string{"javascript:", "data:", "blob:"}

// RejectedScheme reports whether a URL uses a scheme that is never admitted
// as an observation.
func RejectedScheme(raw string) bool {
	lower := strings.ToLower(raw)
	return slices.ContainsFunc(rejectedSchemes, func(s string) bool {
		return strings.HasPrefix(lower, s)
	})
}

// maxEntries bounds each context's store. The oldest entry is evicted first
// once the bound is reached.
const maxEntries = 100

// Store is the bounded network-observation collection for one context. The
// capture listener is the sole writer; scans read point-in-time snapshots.
type Store struct {
	mu      sync.Mutex
	entries []Observation
}

// Append records an observation unless its URL is already present, evicting
// the oldest entry when the store is full. It reports whether the
// observation was added.
func (s *Store) Append(obs Observation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.ContainsFunc(s.entries, func(e Observation) bool { return e.URL == obs.URL }) {
		return false
	}
	s.entries = append(s.entries, obs)
	if len(s.entries) > maxEntries {
		s.entries = slices.Delete(s.entries, 0, len(s.entries)-maxEntries)
	}
	return true
}

// Snapshot returns a copy of the current entries in append order. The store
// may keep growing concurrently; the copy is the scan's working set.
func (s *Store) Snapshot() []Observation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.entries)
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
