// Package stream serves bytes over HTTP while they are still being
// produced, so a renderer can start pulling a reconstructed stream before
// the last segment has arrived.
package stream

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync/atomic"

	"github.com/smallnest/ringbuffer"
)

// Config holds the parameters for New.
type Config struct {
	LocalIP     string            // interface address the consumer can reach
	ContentType string            // served Content-Type
	Extension   string            // stream path suffix, e.g. ".ts"
	Headers     map[string]string // extra response headers
	BufferSize  int               // ring capacity in bytes
}

// Server pipes produced bytes to a single HTTP consumer through a bounded
// blocking ring. Once the ring fills, the consumer's read pace applies
// backpressure to the producer.
type Server struct {
	buf         *ringbuffer.RingBuffer
	contentType string
	extension   string
	headers     map[string]string
	active      atomic.Bool
	listener    net.Listener
	server      *http.Server
	done        chan struct{}
}

// New starts a server on an ephemeral port of the given interface address.
func New(cfg Config) (*Server, error) {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 4 << 20
	}

	ln, err := net.Listen("tcp", cfg.LocalIP+":0")
	if err != nil {
		return nil, err
	}

	s := &Server{
		buf:         ringbuffer.New(cfg.BufferSize).SetBlocking(true),
		contentType: cfg.ContentType,
		extension:   cfg.Extension,
		headers:     cfg.Headers,
		listener:    ln,
		done:        make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/stream"+cfg.Extension, s.handleStream)
	s.server = &http.Server{Handler: mux}
	go func() {
		s.server.Serve(ln)
		close(s.done)
	}()
	return s, nil
}

// Writer returns the producer side of the ring.
func (s *Server) Writer() io.Writer { return s.buf }

// CloseWriter marks the produced stream complete; the consumer sees EOF
// once the ring drains. A non-nil err is surfaced to the consumer instead.
func (s *Server) CloseWriter(err error) {
	if err != nil {
		s.buf.CloseWithError(err)
		return
	}
	s.buf.CloseWriter()
}

// URL returns the full URL the stream is served on.
func (s *Server) URL() *url.URL {
	return &url.URL{
		Scheme: "http",
		Host:   s.listener.Addr().String(),
		Path:   "/stream" + s.extension,
	}
}

// Close shuts down the server.
func (s *Server) Close() error { return s.server.Close() }

// Wait blocks until the server exits or the context is cancelled.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", s.contentType)
	for k, v := range s.headers {
		w.Header().Set(k, v)
	}
	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !s.active.CompareAndSwap(false, true) {
		http.Error(w, "stream already active", http.StatusServiceUnavailable)
		return
	}
	defer s.active.Store(false)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 64<<10)
	for {
		n, err := s.buf.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}
