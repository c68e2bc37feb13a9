package hls

import (
	"math"
	"net/url"
	"strings"
	"testing"

	"github.com/stupside/lutra/internal/media"
)

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parsing %q: %v", raw, err)
	}
	return u
}

func TestParseMaster(t *testing.T) {
	base := mustParseURL(t, "https://cdn.example.com/videos/abc/master.m3u8")
	content := `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360
level_0.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=2400000,RESOLUTION=1280x720
level_1.m3u8
`

	p, err := Parse(base, strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != media.RoleMaster {
		t.Fatalf("role = %q, want master", p.Role)
	}
	if len(p.Variants) != 2 {
		t.Fatalf("variants = %d, want 2", len(p.Variants))
	}
	first, ok := p.FirstVariant()
	if !ok {
		t.Fatal("FirstVariant returned none")
	}
	if got := first.String(); got != "https://cdn.example.com/videos/abc/level_0.m3u8" {
		t.Errorf("first variant = %q", got)
	}
	if len(p.Segments) != 0 {
		t.Errorf("master playlist carries %d segments, want 0", len(p.Segments))
	}
}

func TestParseMedia(t *testing.T) {
	base := mustParseURL(t, "https://cdn.example.com/videos/abc/level_0.m3u8")
	content := `#EXTM3U
#EXT-X-TARGETDURATION:11
#EXTINF:5.0,
seg0.ts
#EXTINF:4.5,
seg1.ts
#EXTINF:10.333,
https://other.example.com/seg2.ts
#EXT-X-ENDLIST
`

	p, err := Parse(base, strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != media.RoleMedia {
		t.Fatalf("role = %q, want media", p.Role)
	}
	if len(p.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(p.Segments))
	}
	wantURLs := []string{
		"https://cdn.example.com/videos/abc/seg0.ts",
		"https://cdn.example.com/videos/abc/seg1.ts",
		"https://other.example.com/seg2.ts",
	}
	for i, want := range wantURLs {
		if got := p.Segments[i].URL.String(); got != want {
			t.Errorf("segment %d = %q, want %q", i, got, want)
		}
	}

	if got := p.Duration(); math.Abs(got-19.833) > 1e-9 {
		t.Errorf("duration = %v, want 19.833", got)
	}
}

func TestParseNoMarkers(t *testing.T) {
	base := mustParseURL(t, "https://cdn.example.com/list.m3u8")
	content := "a.ts\nb.ts\n"

	p, err := Parse(base, strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != media.RoleUnknown {
		t.Errorf("role = %q, want unknown", p.Role)
	}
	if len(p.Segments) != 2 {
		t.Errorf("segments = %d, want 2", len(p.Segments))
	}
}

func TestParseSkipsUnresolvableLines(t *testing.T) {
	base := mustParseURL(t, "https://cdn.example.com/list.m3u8")
	content := "#EXTINF:2.0,\n:%bad%:\n#EXTINF:3.0,\ngood.ts\n"

	p, err := Parse(base, strings.NewReader(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(p.Segments))
	}
	if got := p.Segments[0].URL.String(); got != "https://cdn.example.com/good.ts" {
		t.Errorf("segment = %q", got)
	}
	if p.Segments[0].Duration != 3.0 {
		t.Errorf("duration = %v, want 3.0", p.Segments[0].Duration)
	}
}

func TestSuggestMaster(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{
			"https://cdn.example.com/videos/abc/level_0.m3u8",
			"https://cdn.example.com/videos/abc/master.m3u8",
		},
		{
			"https://cdn.example.com/level_0.m3u8?sig=abc",
			"https://cdn.example.com/master.m3u8",
		},
	}
	for _, c := range cases {
		if got := SuggestMaster(mustParseURL(t, c.raw)); got != c.want {
			t.Errorf("SuggestMaster(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}
