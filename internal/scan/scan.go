// Package scan extracts candidate media URLs from a document. The embedded
// collector script gathers raw page state inside the page's own environment;
// Collect applies the admission and classification rules on the Go side.
package scan

import (
	_ "embed"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/stupside/lutra/internal/media"
	"github.com/stupside/lutra/internal/observe"
)

// Script is evaluated inside the page. It registers the collector once
// behind a window guard, so repeated scans of the same document are safe.
//
//go:embed js/collect_media.js
var Script string

// Page is the raw state returned by the collector script.
type Page struct {
	Base    string         `json:"base"`
	Media   []MediaElement `json:"media"`
	Anchors []string       `json:"anchors"`
	Scripts []ScriptBlock  `json:"scripts"`
}

// MediaElement is one media-playing element's source reference.
type MediaElement struct {
	Tag string `json:"tag"`
	Src string `json:"src"`
}

// ScriptBlock is one inline script body with its declared type attribute.
type ScriptBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// urlPattern matches protocol-qualified URL literals inside script text.
var urlPattern = regexp.MustCompile("(?i)https?://[^\\s\"'<>\\\\`]+")

// maxJSONDepth caps recursion into embedded JSON so pathological nesting
// cannot recurse unboundedly.
const maxJSONDepth = 8

// Collect turns a raw page into DOM observations: media elements first, then
// anchors, then script content, deduplicated by absolute URL with the first
// occurrence winning. Malformed candidates are dropped, never raised.
func Collect(page Page) []observe.Observation {
	var base *url.URL
	if u, err := url.Parse(page.Base); err == nil && u.IsAbs() {
		base = u
	}

	seen := make(map[string]bool)
	var out []observe.Observation

	add := func(obs observe.Observation) {
		if seen[obs.URL] {
			return
		}
		seen[obs.URL] = true
		out = append(out, obs)
	}

	for _, el := range page.Media {
		abs, ok := admit(base, el.Src)
		if !ok {
			continue
		}
		kind := media.ClassifyURL(abs)
		if el.Tag == "track" {
			kind = media.KindSubtitle
		}
		add(observe.Observation{
			URL:          abs,
			Kind:         kind,
			Origin:       observe.OriginDOM,
			OriginDetail: el.Tag,
		})
	}

	for _, href := range page.Anchors {
		abs, ok := admit(base, href)
		if !ok {
			continue
		}
		kind := media.ClassifyURL(abs)
		if kind == media.KindUnknown {
			continue
		}
		add(observe.Observation{
			URL:          abs,
			Kind:         kind,
			Origin:       observe.OriginDOM,
			OriginDetail: "a",
		})
	}

	for _, s := range page.Scripts {
		if isJSONType(s.Type) {
			for _, raw := range jsonStrings(s.Text) {
				addCandidate(add, base, raw, "json-data")
			}
			continue
		}
		for _, loc := range urlPattern.FindAllStringIndex(s.Text, -1) {
			if loc[0] > 0 && s.Text[loc[0]-1] == ':' {
				// The https tail of a larger scheme-qualified token
				// such as blob:https://… is not a URL of its own.
				continue
			}
			addCandidate(add, base, s.Text[loc[0]:loc[1]], "heuristic")
		}
	}

	return out
}

// addCandidate admits and classifies a pattern-matched candidate, keeping
// only URLs that classify as media.
func addCandidate(add func(observe.Observation), base *url.URL, raw, detail string) {
	abs, ok := admit(base, raw)
	if !ok {
		return
	}
	kind := media.ClassifyURL(abs)
	if kind == media.KindUnknown {
		return
	}
	add(observe.Observation{
		URL:          abs,
		Kind:         kind,
		Origin:       observe.OriginDOM,
		OriginDetail: detail,
	})
}

// admit resolves a candidate against the document base and applies the
// scheme rules uniformly for all extraction sources.
func admit(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || observe.RejectedScheme(raw) {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if !abs.IsAbs() {
		return "", false
	}
	if observe.RejectedScheme(abs.String()) {
		return "", false
	}
	return abs.String(), true
}

// isJSONType reports whether a script type attribute declares JSON content.
func isJSONType(t string) bool {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "application/json", "application/ld+json", "text/json":
		return true
	}
	return false
}

// jsonStrings parses a JSON script body and returns every string leaf found
// within the depth cap. Invalid JSON yields nothing.
func jsonStrings(text string) []string {
	var root any
	if err := json.Unmarshal([]byte(text), &root); err != nil {
		return nil
	}
	var out []string
	var walk func(v any, depth int)
	walk = func(v any, depth int) {
		if depth > maxJSONDepth {
			return
		}
		switch t := v.(type) {
		case string:
			out = append(out, t)
		case []any:
			for _, e := range t {
				walk(e, depth+1)
			}
		case map[string]any:
			for _, e := range t {
				walk(e, depth+1)
			}
		}
	}
	walk(root, 0)
	return out
}
