// Package media classifies URLs and manifest content into media kinds.
// All functions are pure and total: malformed input yields KindUnknown or
// RoleUnknown, never an error.
package media

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Kind is the media category inferred for a URL.
type Kind string

const (
	KindVideo     Kind = "video"
	KindAudio     Kind = "audio"
	KindStreaming Kind = "streaming"
	KindSubtitle  Kind = "subtitle"
	KindUnknown   Kind = "unknown"
)

// kindPatterns are tried in order; the first match wins. Each pattern
// requires the extension to be followed by end-of-string, a query, or a
// fragment delimiter.
var kindPatterns = []struct {
	kind Kind
	re   *regexp.Regexp
}{
	{KindVideo, regexp.MustCompile(`(?i)\.(?:mp4|webm|mkv|avi|mov|flv|m4v|mpg|mpeg|3gp|ogv|ts)(?:[?#]|$)`)},
	{KindAudio, regexp.MustCompile(`(?i)\.(?:mp3|m4a|aac|ogg|oga|opus|wav|flac|weba)(?:[?#]|$)`)},
	{KindStreaming, regexp.MustCompile(`(?i)\.(?:m3u8|mpd)(?:[?#]|$)`)},
	{KindSubtitle, regexp.MustCompile(`(?i)\.(?:vtt|srt|ass|ttml|dfxp)(?:[?#]|$)`)},
}

// ClassifyURL maps a URL string to a media kind by extension.
func ClassifyURL(raw string) Kind {
	for _, p := range kindPatterns {
		if p.re.MatchString(raw) {
			return p.kind
		}
	}
	return KindUnknown
}

// IsMediaURL reports whether the URL classifies as any known media kind.
func IsMediaURL(raw string) bool {
	return ClassifyURL(raw) != KindUnknown
}

// ManifestRole distinguishes a master playlist (listing alternative streams)
// from a media playlist (listing segments).
type ManifestRole string

const (
	RoleMaster  ManifestRole = "master"
	RoleMedia   ManifestRole = "media"
	RoleUnknown ManifestRole = ""
)

// Manifest marker tags. MasterMarker declares a variant stream; the media
// markers declare segments.
const (
	MasterMarker         = "#EXT-X-STREAM-INF"
	MediaMarkerInf       = "#EXTINF"
	MediaMarkerTargetDur = "#EXT-X-TARGETDURATION"
)

// ClassifyManifestRole inspects a manifest content prefix. The master marker
// takes priority when both marker families are present. Content with neither
// marker (e.g. a truncated fetch) classifies as RoleUnknown.
func ClassifyManifestRole(prefix []byte) ManifestRole {
	s := string(prefix)
	if strings.Contains(s, MasterMarker) {
		return RoleMaster
	}
	if strings.Contains(s, MediaMarkerInf) || strings.Contains(s, MediaMarkerTargetDur) {
		return RoleMedia
	}
	return RoleUnknown
}

const (
	MP4    = "video/mp4"
	WebM   = "video/webm"
	MKV    = "video/x-matroska"
	MPEGTS = "video/mp2t"
	HLS    = "application/x-mpegURL"
)

var extensionContentTypes = map[string]string{
	".mp4":  MP4,
	".webm": WebM,
	".mkv":  MKV,
	".ts":   MPEGTS,
	".m3u8": HLS,
}

// ContentTypeFor returns a content type based on the URL's file extension,
// or empty string if unrecognized.
func ContentTypeFor(u *url.URL) string {
	ext := strings.ToLower(path.Ext(u.Path))
	return extensionContentTypes[ext]
}
