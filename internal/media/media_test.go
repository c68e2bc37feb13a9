package media

import (
	"net/url"
	"testing"
)

func TestClassifyURL(t *testing.T) {
	cases := []struct {
		raw  string
		want Kind
	}{
		{"https://cdn.example.com/movie.mp4", KindVideo},
		{"https://cdn.example.com/movie.MP4", KindVideo},
		{"https://cdn.example.com/movie.mp4?token=abc", KindVideo},
		{"https://cdn.example.com/movie.mp4#t=30", KindVideo},
		{"https://cdn.example.com/seg-001.ts", KindVideo},
		{"https://cdn.example.com/track.mp3", KindAudio},
		{"https://cdn.example.com/track.flac?dl=1", KindAudio},
		{"https://cdn.example.com/live/index.m3u8", KindStreaming},
		{"https://cdn.example.com/live/index.M3U8?sig=x", KindStreaming},
		{"https://cdn.example.com/dash/stream.mpd", KindStreaming},
		{"https://cdn.example.com/subs/en.vtt", KindSubtitle},
		{"https://cdn.example.com/subs/en.srt", KindSubtitle},
		{"https://example.com/page.html", KindUnknown},
		{"https://example.com/movie.mp4.html", KindUnknown},
		{"https://example.com/mp4", KindUnknown},
		{"", KindUnknown},
		{"not a url at all", KindUnknown},
		{"::::%%%", KindUnknown},
	}

	for _, c := range cases {
		if got := ClassifyURL(c.raw); got != c.want {
			t.Errorf("ClassifyURL(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestClassifyURLDeterministic(t *testing.T) {
	const raw = "https://cdn.example.com/a.m3u8?x=1"
	first := ClassifyURL(raw)
	for range 10 {
		if got := ClassifyURL(raw); got != first {
			t.Fatalf("ClassifyURL(%q) not deterministic: %q then %q", raw, first, got)
		}
	}
}

func TestIsMediaURL(t *testing.T) {
	if !IsMediaURL("https://cdn.example.com/a.webm") {
		t.Error("IsMediaURL(.webm) = false, want true")
	}
	if IsMediaURL("https://example.com/styles.css") {
		t.Error("IsMediaURL(.css) = true, want false")
	}
}

func TestClassifyManifestRole(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		want   ManifestRole
	}{
		{
			name:   "master",
			prefix: "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nlevel_0.m3u8\n",
			want:   RoleMaster,
		},
		{
			name:   "media",
			prefix: "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXTINF:9.009,\nseg0.ts\n",
			want:   RoleMedia,
		},
		{
			name:   "both markers, master wins",
			prefix: "#EXTM3U\n#EXT-X-TARGETDURATION:10\n#EXT-X-STREAM-INF:BANDWIDTH=1\nvar.m3u8\n#EXTINF:4.0,\nseg.ts\n",
			want:   RoleMaster,
		},
		{
			name:   "neither",
			prefix: "#EXTM3U\n",
			want:   RoleUnknown,
		},
		{
			name:   "empty",
			prefix: "",
			want:   RoleUnknown,
		},
		{
			name:   "not a manifest",
			prefix: "<html><body>404</body></html>",
			want:   RoleUnknown,
		},
	}

	for _, c := range cases {
		if got := ClassifyManifestRole([]byte(c.prefix)); got != c.want {
			t.Errorf("%s: ClassifyManifestRole = %q, want %q", c.name, got, c.want)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	u, err := url.Parse("https://cdn.example.com/videos/clip.mp4?sig=1")
	if err != nil {
		t.Fatal(err)
	}
	if got := ContentTypeFor(u); got != MP4 {
		t.Errorf("ContentTypeFor(.mp4) = %q, want %q", got, MP4)
	}

	u, err = url.Parse("https://example.com/readme.txt")
	if err != nil {
		t.Fatal(err)
	}
	if got := ContentTypeFor(u); got != "" {
		t.Errorf("ContentTypeFor(.txt) = %q, want empty", got)
	}
}
