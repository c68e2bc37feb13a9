package observe

import (
	"testing"
	"time"

	"github.com/stupside/lutra/internal/media"
)

func TestRegistryCreatesStoreLazily(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Lookup("tab-1"); ok {
		t.Fatal("store exists before any observation")
	}

	if !r.ObserveURL("tab-1", "https://cdn.example.com/a.mp4", time.Now()) {
		t.Fatal("observation rejected")
	}

	store, ok := r.Lookup("tab-1")
	if !ok {
		t.Fatal("store missing after observation")
	}
	if store.Len() != 1 {
		t.Fatalf("len = %d, want 1", store.Len())
	}
}

func TestRegistryAdmission(t *testing.T) {
	r := NewRegistry()

	cases := []struct {
		url  string
		want bool
	}{
		{"https://cdn.example.com/a.mp4", true},
		{"https://cdn.example.com/live.m3u8?sig=1", true},
		{"https://example.com/index.html", false},
		{"blob:https://example.com/aaaa", false},
		{"javascript:void(0)", false},
		{"data:video/mp4;base64,AAAA.mp4", false},
	}
	for _, c := range cases {
		if got := r.ObserveURL("tab-1", c.url, time.Now()); got != c.want {
			t.Errorf("ObserveURL(%q) = %v, want %v", c.url, got, c.want)
		}
	}
}

func TestRegistryObserveCallback(t *testing.T) {
	r := NewRegistry()

	var gotCtx string
	var gotObs []Observation
	r.OnObserve(func(contextID string, obs Observation) {
		gotCtx = contextID
		gotObs = append(gotObs, obs)
	})

	r.ObserveURL("tab-9", "https://cdn.example.com/a.mp4", time.Now())
	r.ObserveURL("tab-9", "https://cdn.example.com/a.mp4", time.Now()) // duplicate, no callback
	r.ObserveURL("tab-9", "https://example.com/page.html", time.Now()) // not media, no callback

	if gotCtx != "tab-9" {
		t.Errorf("callback context = %q, want tab-9", gotCtx)
	}
	if len(gotObs) != 1 {
		t.Fatalf("callback fired %d times, want 1", len(gotObs))
	}
	if gotObs[0].Kind != media.KindVideo || gotObs[0].Origin != OriginNetwork {
		t.Errorf("callback observation = %+v", gotObs[0])
	}
	if gotObs[0].DiscoveredAt.IsZero() {
		t.Error("network observation missing DiscoveredAt")
	}
}

func TestRegistryNoCallbackIsFine(t *testing.T) {
	r := NewRegistry()
	// No OnObserve registered; appends must still succeed.
	if !r.ObserveURL("tab-1", "https://cdn.example.com/a.mp4", time.Now()) {
		t.Fatal("observation rejected without a consumer")
	}
}

func TestRegistryDrop(t *testing.T) {
	r := NewRegistry()
	r.ObserveURL("tab-1", "https://cdn.example.com/a.mp4", time.Now())
	r.ObserveURL("tab-2", "https://cdn.example.com/b.mp4", time.Now())

	r.Drop("tab-1")

	if _, ok := r.Lookup("tab-1"); ok {
		t.Error("dropped context still has a store")
	}
	if _, ok := r.Lookup("tab-2"); !ok {
		t.Error("unrelated context lost its store")
	}
}
