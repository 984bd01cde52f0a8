package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"hls-downloader/internal/platform/metrics"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

const (
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 3
	// DefaultMaxBackoff caps the delay between two attempts.
	DefaultMaxBackoff = 5 * time.Second
)

// Result is the outcome of fetching one segment. A nil Err means Path holds
// the downloaded bytes.
type Result struct {
	Ordinal  int
	Path     string
	Bytes    int64
	Attempts int
	Err      error
}

// OK reports whether the segment was downloaded.
func (r Result) OK() bool { return r.Err == nil }

// Options configures a Fetcher. Zero durations disable backoff waiting.
type Options struct {
	Client       *http.Client
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// Fetcher downloads playlists and media segments with bounded retry.
// It is safe for concurrent use.
type Fetcher struct {
	client       *http.Client
	fs           afero.Fs
	log          *slog.Logger
	metrics      *metrics.Metrics
	maxRetries   int
	retryBackoff time.Duration
	maxBackoff   time.Duration
}

// New returns a Fetcher writing segments to fs. Metrics may be nil.
func New(fs afero.Fs, log *slog.Logger, m *metrics.Metrics, opts Options) *Fetcher {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	return &Fetcher{
		client:       opts.Client,
		fs:           fs,
		log:          log,
		metrics:      m,
		maxRetries:   opts.MaxRetries,
		retryBackoff: opts.RetryBackoff,
		maxBackoff:   opts.MaxBackoff,
	}
}

// SegmentFileName is the local file name of the segment at ordinal.
func SegmentFileName(ordinal int) string {
	return "segment_" + strconv.Itoa(ordinal) + ".ts"
}

// FetchSegment downloads url into destDir/segment_<ordinal>.ts.
// Failures are reported in the Result, never returned or panicked.
func (f *Fetcher) FetchSegment(ctx context.Context, url, destDir string, ordinal int) Result {
	path := filepath.Join(destDir, SegmentFileName(ordinal))
	log := f.log.With(slog.Int("segment", ordinal))
	log.Debug("downloading segment", slog.String("url", url))

	var n int64
	attempts, err := f.withRetry(ctx, log, func(ctx context.Context) error {
		var err error
		n, err = f.download(ctx, url, path)
		return err
	})
	if err != nil {
		_ = f.fs.Remove(path)
		if f.metrics != nil {
			f.metrics.IncSegmentFailures()
		}
		return Result{
			Ordinal:  ordinal,
			Attempts: attempts,
			Err:      fmt.Errorf("%w: segment %d: %v", ErrSegmentDownload, ordinal, err),
		}
	}

	log.Debug("segment downloaded",
		slog.String("size", humanize.Bytes(uint64(n))),
		slog.Int("attempts", attempts))
	if f.metrics != nil {
		f.metrics.IncSegmentsDownloaded()
		f.metrics.AddBytesDownloaded(n)
	}
	return Result{Ordinal: ordinal, Path: path, Bytes: n, Attempts: attempts}
}

// FetchText downloads a playlist body using the same retry policy as segments.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	log := f.log.With(slog.String("url", url))
	var body []byte
	_, err := f.withRetry(ctx, log, func(ctx context.Context) error {
		resp, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	return string(body), nil
}

func (f *Fetcher) download(ctx context.Context, url, path string) (int64, error) {
	resp, err := f.get(ctx, url)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	out, err := f.fs.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (f *Fetcher) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &HTTPStatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

// withRetry runs fn once plus up to maxRetries more times and returns the
// number of attempts made with the last error.
func (f *Fetcher) withRetry(ctx context.Context, log *slog.Logger, fn func(context.Context) error) (int, error) {
	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			log.Warn("retrying download",
				slog.String("error", lastErr.Error()),
				slog.Int("retries_left", f.maxRetries-attempt+1))
			if f.metrics != nil {
				f.metrics.IncRetries()
			}
			if err := sleep(ctx, f.backoff(attempt)); err != nil {
				return attempts, lastErr
			}
		}

		attempts++
		if lastErr = fn(ctx); lastErr == nil {
			return attempts, nil
		}
		if ctx.Err() != nil {
			return attempts, lastErr
		}
	}
	return attempts, lastErr
}

// backoff doubles retryBackoff for every retry after the first, up to maxBackoff.
func (f *Fetcher) backoff(attempt int) time.Duration {
	if f.retryBackoff <= 0 {
		return 0
	}
	d := f.retryBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= f.maxBackoff {
			return f.maxBackoff
		}
	}
	if d > f.maxBackoff {
		return f.maxBackoff
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
