package acquire

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"hls-downloader/internal/progress"

	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// Runner runs one Job. *Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, job Job) error
}

// BatchOptions configures a Batch. Concurrency above 1 runs manifests in
// parallel, each with its own download subdirectory.
type BatchOptions struct {
	DownloadDir string
	OutputDir   string
	ManifestExt string
	OutputExt   string
	Concurrency int
	Tracker     *progress.Tracker
}

// Summary lists the manifests of a batch by outcome, sorted by name. Skipped
// holds manifests never started because the batch was cancelled.
type Summary struct {
	Succeeded []string
	Failed    []string
	Skipped   []string
}

// Batch runs a Runner over every manifest file of a source directory.
type Batch struct {
	fs     afero.Fs
	runner Runner
	log    *slog.Logger
	opts   BatchOptions
}

// NewBatch returns a Batch. Empty extensions default to ".m3u8" and ".mp4".
func NewBatch(fs afero.Fs, runner Runner, log *slog.Logger, opts BatchOptions) *Batch {
	if opts.ManifestExt == "" {
		opts.ManifestExt = ".m3u8"
	}
	if opts.OutputExt == "" {
		opts.OutputExt = ".mp4"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Batch{fs: fs, runner: runner, log: log, opts: opts}
}

// RunAll processes every manifest in sourceDir. A missing sourceDir is logged
// and yields an empty Summary; a failing manifest never stops the others.
func (b *Batch) RunAll(ctx context.Context, sourceDir string) Summary {
	var summary Summary

	exists, err := afero.DirExists(b.fs, sourceDir)
	if err != nil || !exists {
		b.log.Error("source directory does not exist", slog.String("dir", sourceDir))
		return summary
	}

	names, err := b.manifests(sourceDir)
	if err != nil {
		b.log.Error("list source directory failed", slog.String("dir", sourceDir), slog.String("error", err.Error()))
		return summary
	}
	if len(names) == 0 {
		b.log.Warn("no manifests found", slog.String("dir", sourceDir), slog.String("ext", b.opts.ManifestExt))
		return summary
	}
	if b.opts.Tracker != nil {
		for _, name := range names {
			b.opts.Tracker.Queue(name)
		}
	}

	b.log.Info("batch starting",
		slog.Int("manifests", len(names)),
		slog.Int("concurrency", b.opts.Concurrency))

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			summary.Skipped = append(summary.Skipped, names[i:]...)
			mu.Unlock()
			b.log.Warn("batch cancelled, skipping remaining manifests",
				slog.Int("skipped", len(names)-i),
				slog.String("error", err.Error()))
			break
		}
		g.Go(func() error {
			err := b.runner.Run(ctx, b.job(sourceDir, name))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Failed = append(summary.Failed, name)
			} else {
				summary.Succeeded = append(summary.Succeeded, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(summary.Succeeded)
	sort.Strings(summary.Failed)
	b.log.Info("batch finished",
		slog.Int("succeeded", len(summary.Succeeded)),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("skipped", len(summary.Skipped)))
	return summary
}

func (b *Batch) manifests(dir string) ([]string, error) {
	entries, err := afero.ReadDir(b.fs, dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), b.opts.ManifestExt) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (b *Batch) job(sourceDir, name string) Job {
	stem := strings.TrimSuffix(name, b.opts.ManifestExt)
	downloadDir := b.opts.DownloadDir
	if b.opts.Concurrency > 1 {
		downloadDir = filepath.Join(downloadDir, stem)
	}
	return Job{
		ManifestPath: filepath.Join(sourceDir, name),
		DownloadDir:  downloadDir,
		OutputDir:    b.opts.OutputDir,
		OutputName:   stem + b.opts.OutputExt,
	}
}
