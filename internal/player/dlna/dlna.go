// Package dlna drives a DLNA MediaRenderer through its AVTransport service.
package dlna

import (
	"context"
	"fmt"
	"net/url"

	"github.com/huin/goupnp"
	"github.com/huin/goupnp/dcps/av1"

	"github.com/stupside/lutra/internal/media"
	"github.com/stupside/lutra/internal/player"
)

// Device is a DLNA MediaRenderer.
type Device struct {
	info      player.Info
	transport *av1.AVTransport1
}

var _ player.Device = (*Device)(nil)

// New returns an unconnected device for the given renderer.
func New(info player.Info) *Device {
	return &Device{info: info}
}

// Connect fetches the renderer description and binds its AVTransport
// service.
func (d *Device) Connect() error {
	loc, err := url.Parse(d.info.Address)
	if err != nil {
		return fmt.Errorf("parsing device location %q: %w", d.info.Address, err)
	}

	root, err := goupnp.DeviceByURL(loc)
	if err != nil {
		return fmt.Errorf("fetching device description: %w", err)
	}

	transports, err := av1.NewAVTransport1ClientsFromRootDevice(root, loc)
	if err != nil {
		return fmt.Errorf("binding AVTransport: %w", err)
	}
	if len(transports) == 0 {
		return fmt.Errorf("device %s exposes no AVTransport service", d.info.Name)
	}

	d.transport = transports[0]
	return nil
}

// Play points the renderer at the stream URL and starts playback.
func (d *Device) Play(ctx context.Context, streamURL *url.URL, contentType string) error {
	if d.transport == nil {
		return fmt.Errorf("device %s is not connected", d.info.Name)
	}

	metadata := buildDIDLMetadata(streamURL.String(), contentType)
	if err := d.transport.SetAVTransportURICtx(ctx, 0, streamURL.String(), metadata); err != nil {
		return fmt.Errorf("setting transport URI: %w", err)
	}
	if err := d.transport.PlayCtx(ctx, 0, "1"); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	return nil
}

// Close releases the transport binding.
func (d *Device) Close() error {
	d.transport = nil
	return nil
}

// SupportedContentTypes lists the content types most renderers accept over
// http-get.
func (d *Device) SupportedContentTypes() []string {
	return []string{media.MPEGTS, media.MP4}
}
