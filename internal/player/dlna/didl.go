package dlna

import (
	"encoding/xml"
	"fmt"
)

// DIDL-Lite is the metadata document AVTransport expects alongside the
// transport URI. Renderers vary in how much of it they read, the title and
// protocolInfo are the load-bearing parts.

type didlLite struct {
	XMLName xml.Name `xml:"DIDL-Lite"`
	XMLNS   string   `xml:"xmlns,attr"`
	DC      string   `xml:"xmlns:dc,attr"`
	UPNP    string   `xml:"xmlns:upnp,attr"`
	Item    didlItem `xml:"item"`
}

type didlItem struct {
	ID         string  `xml:"id,attr"`
	ParentID   string  `xml:"parentID,attr"`
	Restricted string  `xml:"restricted,attr"`
	Title      string  `xml:"dc:title"`
	Class      string  `xml:"upnp:class"`
	Res        didlRes `xml:"res"`
}

type didlRes struct {
	ProtocolInfo string `xml:"protocolInfo,attr"`
	URL          string `xml:",chardata"`
}

func buildDIDLMetadata(streamURL, contentType string) string {
	doc := didlLite{
		XMLNS: "urn:schemas-upnp-org:metadata-1-0/DIDL-Lite/",
		DC:    "http://purl.org/dc/elements/1.1/",
		UPNP:  "urn:schemas-upnp-org:metadata-1-0/upnp/",
		Item: didlItem{
			ID:         "0",
			ParentID:   "-1",
			Restricted: "1",
			Title:      "Lutra Stream",
			Class:      "object.item.videoItem",
			Res: didlRes{
				ProtocolInfo: fmt.Sprintf("http-get:*:%s:%s", contentType, ContentFeatures(contentType)),
				URL:          streamURL,
			},
		},
	}

	out, err := xml.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(out)
}
