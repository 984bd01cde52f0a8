package acquire

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"hls-downloader/internal/fetch"
	"hls-downloader/internal/platform/logger"
	"hls-downloader/internal/progress"

	"github.com/spf13/afero"
)

// fakeMuxer validates the concat list through the shared filesystem and writes
// a placeholder output file instead of running ffmpeg.
type fakeMuxer struct {
	fs    afero.Fs
	err   error
	mu    sync.Mutex
	calls int
	lists map[string]string
}

func newFakeMuxer(fs afero.Fs) *fakeMuxer {
	return &fakeMuxer{fs: fs, lists: make(map[string]string)}
}

func (m *fakeMuxer) Concatenate(ctx context.Context, listFile, outputFile string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return m.err
	}
	data, err := afero.ReadFile(m.fs, listFile)
	if err != nil {
		return err
	}
	m.lists[outputFile] = string(data)
	return afero.WriteFile(m.fs, outputFile, []byte("merged"), 0o644)
}

// origin serves playlists and segments from a path map. Paths listed in
// failing always answer 500.
type origin struct {
	*httptest.Server
	requests atomic.Int32
}

func newOrigin(t *testing.T, bodies map[string]string, failing map[string]bool) *origin {
	t.Helper()
	o := &origin{}
	o.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.requests.Add(1)
		if failing[r.URL.Path] {
			http.Error(w, "unavailable", http.StatusInternalServerError)
			return
		}
		body, ok := bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(o.Close)
	return o
}

// masterPlaylist lists a low variant and a 720p variant at variantURL.
func masterPlaylist(baseURL, variantPath string) string {
	return "#EXTM3U\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=800000,RESOLUTION=640x360\n" +
		baseURL + "/low/index.m3u8\n" +
		"#EXT-X-STREAM-INF:BANDWIDTH=2800000,RESOLUTION=1280x720\n" +
		baseURL + variantPath + "\n"
}

func mediaPlaylist(n int) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n")
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "#EXTINF:4.0,\nseg%d.ts\n", i)
	}
	b.WriteString("#EXT-X-ENDLIST\n")
	return b.String()
}

func newTestPipeline(fs afero.Fs, muxer *fakeMuxer, tracker *progress.Tracker) *Pipeline {
	log := logger.Discard()
	f := fetch.New(fs, log, nil, fetch.Options{MaxRetries: 3})
	return NewPipeline(fs, f, muxer, log, Options{Concurrency: 4, Tracker: tracker})
}

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	if err := afero.WriteFile(fs, path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
