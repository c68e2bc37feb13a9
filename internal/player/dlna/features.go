package dlna

import "github.com/stupside/lutra/internal/media"

// DLNA profile names for the content types the stream server produces.
var profiles = map[string]string{
	media.MPEGTS: "MPEG_TS_SD_EU_ISO",
	media.MP4:    "AVC_MP4_BL_CIF15_AAC_520",
}

// ContentFeatures returns the fourth protocolInfo field for a stream of the
// given content type. OP=00 and CI=0 declare a non-seekable live stream.
func ContentFeatures(contentType string) string {
	features := "DLNA.ORG_OP=00;DLNA.ORG_CI=0;DLNA.ORG_FLAGS=01700000000000000000000000000000"
	if pn, ok := profiles[contentType]; ok {
		features = "DLNA.ORG_PN=" + pn + ";" + features
	}
	return features
}

// StreamHeaders returns the response headers renderers expect from the
// stream endpoint.
func StreamHeaders(contentType string) map[string]string {
	return map[string]string{
		"contentFeatures.dlna.org": ContentFeatures(contentType),
		"transferMode.dlna.org":    "Streaming",
	}
}
