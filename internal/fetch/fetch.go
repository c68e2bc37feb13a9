// Package fetch reconstructs a segmented stream into a single payload:
// manifest resolution through one master→media hop, strictly ordered
// segment fetches, and byte concatenation.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/stupside/lutra/internal/hls"
	"github.com/stupside/lutra/internal/media"
)

// Progress receives (completed, total) after each segment and once more on
// completion. A nil callback is fine.
type Progress func(done, total int)

// ResolveMedia fetches a manifest and descends at most one master→media
// level, taking the first declared variant unconditionally, and returns the
// concrete segment-bearing playlist.
func ResolveMedia(ctx context.Context, client *http.Client, manifestURL string) (*hls.Playlist, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, &ManifestError{URL: manifestURL, Err: err}
	}

	playlist, err := fetchPlaylist(ctx, client, base)
	if err != nil {
		return nil, err
	}
	if playlist.Role != media.RoleMaster {
		return playlist, nil
	}

	variant, ok := playlist.FirstVariant()
	if !ok {
		return nil, fmt.Errorf("%s: %w", manifestURL, ErrNoStreamFound)
	}
	return fetchPlaylist(ctx, client, variant)
}

// WriteSegments fetches every segment strictly in order, writing each one to
// w as it completes. Ordering is a correctness requirement: the segments
// concatenate byte-for-byte into the output stream, so they are never
// fetched concurrently. The cancellation signal is checked before each
// segment and also aborts the in-flight transfer.
func WriteSegments(ctx context.Context, client *http.Client, w io.Writer, segments []hls.Segment, onProgress Progress) error {
	total := len(segments)
	for i, seg := range segments {
		select {
		case <-ctx.Done():
			return ErrCancelled
		default:
		}

		data, err := fetchSegment(ctx, client, seg.URL)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return ErrCancelled
			}
			return &SegmentError{Index: i, Err: err}
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("writing segment %d: %w", i, err)
		}
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	return nil
}

// Reconstruct resolves a manifest and returns the single concatenated
// payload. On any failure or cancellation the partial buffer is discarded;
// a payload is only ever returned whole.
func Reconstruct(ctx context.Context, client *http.Client, manifestURL string, onProgress Progress) ([]byte, error) {
	playlist, err := ResolveMedia(ctx, client, manifestURL)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, ErrCancelled
		}
		return nil, err
	}
	if len(playlist.Segments) == 0 {
		return nil, fmt.Errorf("%s: %w", manifestURL, ErrEmptyManifest)
	}

	var buf bytes.Buffer
	if err := WriteSegments(ctx, client, &buf, playlist.Segments, onProgress); err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress(len(playlist.Segments), len(playlist.Segments))
	}
	return buf.Bytes(), nil
}

func fetchPlaylist(ctx context.Context, client *http.Client, u *url.URL) (*hls.Playlist, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ManifestError{URL: u.String(), Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, &ManifestError{URL: u.String(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ManifestError{URL: u.String(), Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	playlist, err := hls.Parse(u, resp.Body)
	if err != nil {
		return nil, &ManifestError{URL: u.String(), Err: err}
	}
	return playlist, nil
}

func fetchSegment(ctx context.Context, client *http.Client, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
