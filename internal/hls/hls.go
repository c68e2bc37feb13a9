// Package hls parses HLS playlists far enough to drive enrichment and
// reconstruction: role detection, ordered variant and segment references,
// and declared durations.
package hls

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/stupside/lutra/internal/media"
)

// Segment is one media segment reference with its declared duration.
type Segment struct {
	URL      *url.URL
	Duration float64
}

// Playlist is a parsed HLS playlist. Variants is populated for master
// playlists, Segments for everything else. References are kept in file
// order, resolved against the playlist URL.
type Playlist struct {
	URL      *url.URL
	Role     media.ManifestRole
	Variants []*url.URL
	Segments []Segment
}

// Parse reads a playlist, resolving every reference against base. Reference
// lines that fail to resolve are skipped. A playlist without any marker tag
// parses with RoleUnknown and its reference lines collected as segments, so
// callers that already know they hold a media playlist can still walk it.
func Parse(base *url.URL, r io.Reader) (*Playlist, error) {
	var (
		sawMaster     bool
		sawMedia      bool
		nextIsVariant bool
		pendingDur    float64
		variants      []*url.URL
		segments      []Segment
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			switch {
			case strings.HasPrefix(line, media.MasterMarker):
				sawMaster = true
				nextIsVariant = true
			case strings.HasPrefix(line, media.MediaMarkerInf):
				sawMedia = true
				pendingDur = parseExtInf(line)
			case strings.HasPrefix(line, media.MediaMarkerTargetDur):
				sawMedia = true
			}
			continue
		}

		ref, err := base.Parse(line)
		if err != nil {
			continue
		}
		if nextIsVariant {
			nextIsVariant = false
			variants = append(variants, ref)
		}
		segments = append(segments, Segment{URL: ref, Duration: pendingDur})
		pendingDur = 0
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}

	p := &Playlist{URL: base}
	switch {
	case sawMaster:
		p.Role = media.RoleMaster
		p.Variants = variants
	case sawMedia:
		p.Role = media.RoleMedia
		p.Segments = segments
	default:
		p.Segments = segments
	}
	return p, nil
}

// Duration sums the declared durations of all segments, in seconds.
func (p *Playlist) Duration() float64 {
	var total float64
	for _, s := range p.Segments {
		total += s.Duration
	}
	return total
}

// FirstVariant returns the first variant reference of a master playlist.
func (p *Playlist) FirstVariant() (*url.URL, bool) {
	if len(p.Variants) == 0 {
		return nil, false
	}
	return p.Variants[0], true
}

// parseExtInf extracts the duration from an "#EXTINF:<seconds>,<title>" tag.
func parseExtInf(line string) float64 {
	rest := strings.TrimPrefix(line, media.MediaMarkerInf+":")
	dur, _, _ := strings.Cut(rest, ",")
	f, err := strconv.ParseFloat(strings.TrimSpace(dur), 64)
	if err != nil {
		return 0
	}
	return f
}

// masterNames are conventional master playlist filenames, in priority order.
var masterNames = []string{"master.m3u8", "playlist.m3u8", "index.m3u8", "manifest.m3u8"}

// SuggestMaster guesses the master playlist URL that a media playlist belongs
// to: the playlist's own directory joined with the first conventional master
// filename. The candidate is informational and not checked for existence.
func SuggestMaster(mediaURL *url.URL) string {
	u := *mediaURL
	u.Path = path.Join(path.Dir(u.Path), masterNames[0])
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
