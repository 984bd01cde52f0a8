package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"hls-downloader/internal/platform/logger"
	"hls-downloader/internal/platform/metrics"

	"github.com/spf13/afero"
)

func newTestFetcher(t *testing.T, fs afero.Fs, maxRetries int) *Fetcher {
	t.Helper()
	return New(fs, logger.Discard(), nil, Options{MaxRetries: maxRetries})
}

func TestFetcher_FetchSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("\x47\x00\x11payload"))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	f := newTestFetcher(t, fs, 3)

	res := f.FetchSegment(context.Background(), srv.URL+"/seg7.ts", "downloads", 7)
	if !res.OK() {
		t.Fatalf("FetchSegment: %v", res.Err)
	}
	if res.Path != filepath.Join("downloads", "segment_7.ts") {
		t.Errorf("unexpected path %q", res.Path)
	}
	if res.Ordinal != 7 || res.Attempts != 1 || res.Bytes != 10 {
		t.Errorf("unexpected result %+v", res)
	}
	data, err := afero.ReadFile(fs, res.Path)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}
	if string(data) != "\x47\x00\x11payload" {
		t.Errorf("segment bytes were transformed: %q", data)
	}
}

func TestFetcher_FetchSegment_retry_then_success(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m := metrics.New()
	f := New(afero.NewMemMapFs(), logger.Discard(), m, Options{MaxRetries: 3})

	res := f.FetchSegment(context.Background(), srv.URL+"/seg.ts", "d", 0)
	if !res.OK() {
		t.Fatalf("expected success after retries, got %v", res.Err)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestFetcher_FetchSegment_retries_exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	f := newTestFetcher(t, fs, 3)

	res := f.FetchSegment(context.Background(), srv.URL+"/seg.ts", "d", 2)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.Err, ErrSegmentDownload) {
		t.Errorf("expected ErrSegmentDownload, got %v", res.Err)
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("expected 1 attempt + 3 retries = 4 requests, got %d", got)
	}
	if res.Attempts != 4 || res.Ordinal != 2 || res.Path != "" {
		t.Errorf("unexpected result %+v", res)
	}
	if ok, _ := afero.Exists(fs, filepath.Join("d", "segment_2.ts")); ok {
		t.Error("failed segment should leave no file behind")
	}
}

func TestFetcher_FetchSegment_network_error(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/seg.ts"
	srv.Close()

	f := newTestFetcher(t, afero.NewMemMapFs(), 1)
	res := f.FetchSegment(context.Background(), url, "d", 0)
	if res.OK() {
		t.Fatal("expected failure against a closed server")
	}
	if res.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", res.Attempts)
	}
}

func TestFetcher_FetchSegment_concurrent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	fs := afero.NewMemMapFs()
	f := newTestFetcher(t, fs, 0)

	var wg sync.WaitGroup
	results := make([]Result, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = f.FetchSegment(context.Background(), fmt.Sprintf("%s/seg%d.ts", srv.URL, i), "d", i)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if !res.OK() {
			t.Fatalf("segment %d: %v", i, res.Err)
		}
		data, _ := afero.ReadFile(fs, res.Path)
		if string(data) != fmt.Sprintf("/seg%d.ts", i) {
			t.Errorf("segment %d holds %q", i, data)
		}
	}
}

func TestFetcher_FetchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.m3u8" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("#EXTM3U\n"))
	}))
	defer srv.Close()

	f := newTestFetcher(t, afero.NewMemMapFs(), 0)

	body, err := f.FetchText(context.Background(), srv.URL+"/index.m3u8")
	if err != nil {
		t.Fatalf("FetchText: %v", err)
	}
	if body != "#EXTM3U\n" {
		t.Errorf("unexpected body %q", body)
	}

	_, err = f.FetchText(context.Background(), srv.URL+"/missing.m3u8")
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected HTTPStatusError 404, got %v", err)
	}
}

func TestFetcher_cancelled_context_stops_retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := New(afero.NewMemMapFs(), logger.Discard(), nil, Options{MaxRetries: 5, RetryBackoff: time.Hour})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := f.FetchSegment(ctx, srv.URL+"/seg.ts", "d", 0)
	if res.OK() {
		t.Fatal("expected failure")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected a single request before cancellation, got %d", got)
	}
}

func TestFetcher_backoff(t *testing.T) {
	f := New(afero.NewMemMapFs(), logger.Discard(), nil, Options{RetryBackoff: 100 * time.Millisecond, MaxBackoff: 350 * time.Millisecond})
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 350 * time.Millisecond, 350 * time.Millisecond}
	for i, w := range want {
		if got := f.backoff(i + 1); got != w {
			t.Errorf("backoff(%d) = %v, want %v", i+1, got, w)
		}
	}

	none := newTestFetcher(t, afero.NewMemMapFs(), 3)
	if got := none.backoff(3); got != 0 {
		t.Errorf("zero base should disable backoff, got %v", got)
	}
}
