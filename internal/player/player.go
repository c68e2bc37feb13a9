// Package player locates media renderers on the local network and defines
// the interface the play path drives them through.
package player

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/huin/goupnp"
)

// Type identifies the kind of renderer.
type Type string

const (
	TypeDLNA       Type = "dlna"
	TypeChromecast Type = "chromecast"
)

// Info holds discovery information about a renderer.
type Info struct {
	Name    string
	Type    Type
	Address string
}

// Device is a renderer that can play a stream URL.
type Device interface {
	Connect() error
	Play(ctx context.Context, streamURL *url.URL, contentType string) error
	Close() error
	SupportedContentTypes() []string
}

// FindInfo discovers a specific renderer by type and name on the network.
func FindInfo(ctx context.Context, timeout time.Duration, dtype Type, name string) (Info, error) {
	devices, err := Discover(ctx, timeout)
	if err != nil {
		return Info{}, err
	}

	for _, d := range devices {
		if d.Type == dtype && strings.EqualFold(d.Name, name) {
			return d, nil
		}
	}
	return Info{}, fmt.Errorf("device %q (type %s) not found", name, dtype)
}

// Discover scans the local network for renderers. Chromecasts do not answer
// SSDP; they are addressed statically through configuration instead.
func Discover(ctx context.Context, timeout time.Duration) ([]Info, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := goupnp.DiscoverDevicesCtx(ctx, "urn:schemas-upnp-org:device:MediaRenderer:1")
	if err != nil {
		return nil, fmt.Errorf("SSDP discovery: %w", err)
	}

	var devices []Info
	for _, r := range results {
		if r.Root == nil {
			// Renderer answered but its description could not be fetched.
			continue
		}
		devices = append(devices, Info{
			Name:    r.Root.Device.FriendlyName,
			Type:    TypeDLNA,
			Address: r.Location.String(),
		})
	}
	return devices, nil
}
