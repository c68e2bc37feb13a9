package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
)

func segmentMux(t *testing.T, segments map[string][]byte) *http.ServeMux {
	t.Helper()
	mux := http.NewServeMux()
	for path, data := range segments {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			w.Write(data)
		})
	}
	return mux
}

func TestReconstructConcatenatesInOrder(t *testing.T) {
	segs := map[string][]byte{
		"/hls/a.ts": []byte("AAAA-first"),
		"/hls/b.ts": []byte("BBB-second"),
		"/hls/c.ts": []byte("CC-third"),
	}
	mux := segmentMux(t, segs)
	mux.HandleFunc("/hls/list.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:4.0,\na.ts\n#EXTINF:4.0,\nb.ts\n#EXTINF:2.0,\nc.ts\n")
	})
	mux.HandleFunc("/hls/reversed.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:2.0,\nc.ts\n#EXTINF:4.0,\nb.ts\n#EXTINF:4.0,\na.ts\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var progress [][2]int
	payload, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/hls/list.m3u8", func(done, total int) {
		progress = append(progress, [2]int{done, total})
	})
	if err != nil {
		t.Fatal(err)
	}

	want := slices.Concat(segs["/hls/a.ts"], segs["/hls/b.ts"], segs["/hls/c.ts"])
	if !bytes.Equal(payload, want) {
		t.Fatalf("payload = %q, want %q", payload, want)
	}

	wantProgress := [][2]int{{1, 3}, {2, 3}, {3, 3}, {3, 3}}
	if !slices.Equal(progress, wantProgress) {
		t.Errorf("progress = %v, want %v", progress, wantProgress)
	}

	// Reordering the manifest's segment lines reorders the output bytes.
	reversed, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/hls/reversed.m3u8", nil)
	if err != nil {
		t.Fatal(err)
	}
	wantReversed := slices.Concat(segs["/hls/c.ts"], segs["/hls/b.ts"], segs["/hls/a.ts"])
	if !bytes.Equal(reversed, wantReversed) {
		t.Fatalf("reversed payload = %q, want %q", reversed, wantReversed)
	}
}

func TestReconstructFollowsMasterOneLevel(t *testing.T) {
	mux := segmentMux(t, map[string][]byte{"/hls/0.ts": []byte("payload")})
	mux.HandleFunc("/hls/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\nlevel_0.m3u8\n#EXT-X-STREAM-INF:BANDWIDTH=100\nlevel_1.m3u8\n")
	})
	mux.HandleFunc("/hls/level_0.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:4.0,\n0.ts\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	payload, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/hls/master.m3u8", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "payload" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestReconstructNoStreamFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/master.m3u8", func(w http.ResponseWriter, r *http.Request) {
		// A stream declaration with nothing followable after it.
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-STREAM-INF:BANDWIDTH=800000\n# comment only\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/master.m3u8", nil)
	if !errors.Is(err, ErrNoStreamFound) {
		t.Fatalf("err = %v, want ErrNoStreamFound", err)
	}
}

func TestReconstructEmptyManifest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/empty.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXT-X-TARGETDURATION:10\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/empty.m3u8", nil)
	if !errors.Is(err, ErrEmptyManifest) {
		t.Fatalf("err = %v, want ErrEmptyManifest", err)
	}
}

func TestReconstructManifestFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(http.NotFound))
	defer srv.Close()

	_, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/missing.m3u8", nil)
	var merr *ManifestError
	if !errors.As(err, &merr) {
		t.Fatalf("err = %v, want *ManifestError", err)
	}
}

func TestReconstructSegmentErrorNamesIndex(t *testing.T) {
	mux := segmentMux(t, map[string][]byte{"/ok0.ts": []byte("0"), "/ok2.ts": []byte("2")})
	mux.HandleFunc("/broken.ts", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/list.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n#EXTINF:1,\nok0.ts\n#EXTINF:1,\nbroken.ts\n#EXTINF:1,\nok2.ts\n")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	payload, err := Reconstruct(context.Background(), srv.Client(), srv.URL+"/list.m3u8", nil)
	if payload != nil {
		t.Fatal("partial payload returned alongside an error")
	}
	var serr *SegmentError
	if !errors.As(err, &serr) {
		t.Fatalf("err = %v, want *SegmentError", err)
	}
	if serr.Index != 1 {
		t.Errorf("failing index = %d, want 1", serr.Index)
	}
}

func TestReconstructCancelledMidway(t *testing.T) {
	var served atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/seg/", func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
		w.Write([]byte("x"))
	})
	mux.HandleFunc("/list.m3u8", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "#EXTM3U\n")
		for i := range 5 {
			fmt.Fprintf(w, "#EXTINF:1,\nseg/%d.ts\n", i)
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payload, err := Reconstruct(ctx, srv.Client(), srv.URL+"/list.m3u8", func(done, total int) {
		if done == 2 {
			cancel()
		}
	})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if payload != nil {
		t.Fatal("cancelled reconstruction returned a payload")
	}
	if got := served.Load(); got != 2 {
		t.Errorf("segments fetched after cancellation: served = %d, want 2", got)
	}
}
