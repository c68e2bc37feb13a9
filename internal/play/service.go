// Package play wires reconstruction, the local stream server, and a network
// renderer into one playback session.
package play

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"slices"

	"github.com/stupside/lutra/internal/app"
	"github.com/stupside/lutra/internal/fetch"
	"github.com/stupside/lutra/internal/media"
	"github.com/stupside/lutra/internal/player"
	"github.com/stupside/lutra/internal/player/chromecast"
	"github.com/stupside/lutra/internal/player/dlna"
	"github.com/stupside/lutra/internal/stream"
)

// Play sends the media at rawURL to the configured renderer. Streaming
// manifests are reconstructed on the fly and served from a local HTTP
// endpoint; direct files are handed to the renderer as-is.
func Play(ctx context.Context, cfg *app.Config, rawURL string) error {
	mediaURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}

	info, err := findDevice(ctx, cfg)
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "renderer located", "name", info.Name, "type", string(info.Type), "address", info.Address)

	var dev player.Device
	switch info.Type {
	case player.TypeDLNA:
		dev = dlna.New(info)
	case player.TypeChromecast:
		dev = chromecast.New(info)
	default:
		return fmt.Errorf("unknown device type %q", info.Type)
	}

	if err := dev.Connect(); err != nil {
		return fmt.Errorf("connecting to %s: %w", info.Name, err)
	}
	defer dev.Close()

	if media.ClassifyURL(rawURL) == media.KindStreaming {
		return playManifest(ctx, cfg, dev, info, rawURL)
	}
	return playDirect(ctx, dev, mediaURL)
}

// playDirect points the renderer straight at the source URL.
func playDirect(ctx context.Context, dev player.Device, mediaURL *url.URL) error {
	contentType := media.ContentTypeFor(mediaURL)
	if !slices.Contains(dev.SupportedContentTypes(), contentType) {
		return fmt.Errorf("renderer does not accept %q", contentType)
	}

	slog.InfoContext(ctx, "starting playback", "url", mediaURL.String(), "content_type", contentType)
	if err := dev.Play(ctx, mediaURL, contentType); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}
	return nil
}

// playManifest reconstructs the stream segment by segment and serves it to
// the renderer from a local endpoint.
func playManifest(ctx context.Context, cfg *app.Config, dev player.Device, info player.Info, manifestURL string) error {
	client := &http.Client{}

	playlist, err := fetch.ResolveMedia(ctx, client, manifestURL)
	if err != nil {
		return fmt.Errorf("resolving manifest: %w", err)
	}
	if len(playlist.Segments) == 0 {
		return fetch.ErrEmptyManifest
	}

	contentType := media.MPEGTS
	if !slices.Contains(dev.SupportedContentTypes(), contentType) {
		return fmt.Errorf("renderer does not accept %q", contentType)
	}

	localIP, err := localIP(cfg.Play.Interface)
	if err != nil {
		return fmt.Errorf("resolving local IP: %w", err)
	}

	var headers map[string]string
	if info.Type == player.TypeDLNA {
		headers = dlna.StreamHeaders(contentType)
	}

	srv, err := stream.New(stream.Config{
		LocalIP:     localIP,
		ContentType: contentType,
		Extension:   ".ts",
		Headers:     headers,
		BufferSize:  cfg.Stream.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("starting stream server: %w", err)
	}
	defer srv.Close()

	feedErr := make(chan error, 1)
	go func() {
		err := fetch.WriteSegments(ctx, client, srv.Writer(), playlist.Segments, func(done, total int) {
			slog.DebugContext(ctx, "segment served", "done", done, "total", total)
		})
		srv.CloseWriter(err)
		feedErr <- err
	}()

	slog.InfoContext(ctx, "starting playback",
		"stream_url", srv.URL().String(),
		"content_type", contentType,
		"segments", len(playlist.Segments),
	)

	if err := dev.Play(ctx, srv.URL(), contentType); err != nil {
		return fmt.Errorf("starting playback: %w", err)
	}

	select {
	case err := <-feedErr:
		if err != nil {
			return fmt.Errorf("feeding stream: %w", err)
		}
	case <-ctx.Done():
		return nil
	}

	// The ring still holds tail bytes the renderer has not read yet, so
	// keep serving until interrupted.
	<-ctx.Done()
	return nil
}

// findDevice resolves the configured renderer, preferring a static address
// over discovery.
func findDevice(ctx context.Context, cfg *app.Config) (player.Info, error) {
	dc := cfg.Play.Device
	if dc.Type == "" || (dc.Name == "" && dc.Address == "") {
		return player.Info{}, fmt.Errorf("no renderer configured, set play.device in the config file")
	}

	if dc.Address != "" {
		return player.Info{Name: dc.Name, Type: dc.Type, Address: dc.Address}, nil
	}

	info, err := player.FindInfo(ctx, cfg.Play.DiscoverTimeout, dc.Type, dc.Name)
	if err != nil {
		return player.Info{}, fmt.Errorf("finding renderer: %w", err)
	}
	return info, nil
}

// localIP returns a routable IPv4 address, from the named interface when one
// is configured.
func localIP(interfaceName string) (string, error) {
	if interfaceName != "" {
		iface, err := net.InterfaceByName(interfaceName)
		if err != nil {
			return "", fmt.Errorf("looking up interface %q: %w", interfaceName, err)
		}
		return ipFromInterface(iface)
	}

	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("listing interfaces: %w", err)
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if ip, err := ipFromInterface(&iface); err == nil {
			return ip, nil
		}
	}
	return "", fmt.Errorf("no usable IPv4 interface")
}

func ipFromInterface(iface *net.Interface) (string, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return "", fmt.Errorf("listing addresses: %w", err)
	}
	for _, addr := range addrs {
		if ipNet, ok := addr.(*net.IPNet); ok {
			if ip := ipNet.IP.To4(); ip != nil && !ip.IsLoopback() {
				return ip.String(), nil
			}
		}
	}
	return "", fmt.Errorf("no IPv4 address on %s", iface.Name)
}
