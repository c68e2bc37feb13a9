// Package chromecast drives a Chromecast renderer through the cast
// application protocol.
package chromecast

import (
	"context"
	"fmt"
	"net/url"

	"github.com/vishen/go-chromecast/application"

	"github.com/stupside/lutra/internal/media"
	"github.com/stupside/lutra/internal/player"
)

const castPort = 8009

// Device is a Chromecast renderer.
type Device struct {
	info player.Info
	app  *application.Application
}

var _ player.Device = (*Device)(nil)

// New returns an unconnected device for the given renderer.
func New(info player.Info) *Device {
	return &Device{info: info}
}

// Connect opens the cast session.
func (d *Device) Connect() error {
	app := application.NewApplication(
		application.WithDebug(false),
		application.WithCacheDisabled(true),
	)
	if err := app.Start(d.info.Address, castPort); err != nil {
		return fmt.Errorf("connecting to chromecast at %s: %w", d.info.Address, err)
	}
	d.app = app
	return nil
}

// Play loads the stream URL on the renderer and starts playback.
func (d *Device) Play(ctx context.Context, streamURL *url.URL, contentType string) error {
	if d.app == nil {
		return fmt.Errorf("chromecast %s is not connected", d.info.Name)
	}
	if err := d.app.Load(streamURL.String(), 0, contentType, false, true, true); err != nil {
		return fmt.Errorf("loading %s: %w", streamURL, err)
	}
	return nil
}

// Close tears down the cast session without stopping the receiver app.
func (d *Device) Close() error {
	if d.app == nil {
		return nil
	}
	return d.app.Close(false)
}

// SupportedContentTypes lists the content types the default media receiver
// accepts.
func (d *Device) SupportedContentTypes() []string {
	return []string{media.HLS, media.MP4, media.WebM, media.MKV}
}
