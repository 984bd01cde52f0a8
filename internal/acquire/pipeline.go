package acquire

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"hls-downloader/internal/fetch"
	"hls-downloader/internal/hls"
	"hls-downloader/internal/mux"
	"hls-downloader/internal/platform/metrics"
	"hls-downloader/internal/progress"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is the number of segments fetched in parallel per manifest.
const DefaultConcurrency = 4

// ErrNoSegmentsDownloaded is returned when every segment of a manifest failed.
var ErrNoSegmentsDownloaded = errors.New("no segments were downloaded")

// Fetcher is what the pipeline needs from the network layer.
type Fetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
	FetchSegment(ctx context.Context, url, destDir string, ordinal int) fetch.Result
}

// Job describes one manifest to download and merge.
type Job struct {
	ManifestPath string
	DownloadDir  string
	OutputDir    string
	OutputName   string
}

// Options tunes a Pipeline. Metrics may be nil; a nil Tracker gets a private one.
// CleanupSegments removes segment files and the concat list after a successful merge.
type Options struct {
	Concurrency     int
	CleanupSegments bool
	Metrics         *metrics.Metrics
	Tracker         *progress.Tracker
}

// Pipeline turns a master playlist file into one merged media file.
type Pipeline struct {
	fs          afero.Fs
	fetcher     Fetcher
	muxer       mux.Muxer
	log         *slog.Logger
	metrics     *metrics.Metrics
	tracker     *progress.Tracker
	concurrency int
	cleanup     bool
}

// NewPipeline returns a Pipeline reading manifests and writing segments through fs.
func NewPipeline(fs afero.Fs, fetcher Fetcher, muxer mux.Muxer, log *slog.Logger, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Tracker == nil {
		opts.Tracker = progress.NewTracker()
	}
	return &Pipeline{
		fs:          fs,
		fetcher:     fetcher,
		muxer:       muxer,
		log:         log,
		metrics:     opts.Metrics,
		tracker:     opts.Tracker,
		concurrency: opts.Concurrency,
		cleanup:     opts.CleanupSegments,
	}
}

// Run downloads and merges one manifest. Every failure is logged here and
// returned so callers can count outcomes; none of them should stop a batch.
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	manifest := filepath.Base(job.ManifestPath)
	id := p.tracker.Start(manifest, job.OutputName)
	log := p.log.With(slog.String("run_id", string(id)), slog.String("manifest", job.ManifestPath))

	err := p.run(ctx, log, manifest, job)
	_ = p.tracker.Finish(manifest, err)
	if err != nil {
		log.Error("manifest failed", slog.String("error", err.Error()))
		if p.metrics != nil {
			p.metrics.IncManifestsFailed()
		}
		return err
	}
	if p.metrics != nil {
		p.metrics.IncManifestsSucceeded()
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, log *slog.Logger, manifest string, job Job) error {
	log.Info("reading manifest")
	content, err := afero.ReadFile(p.fs, job.ManifestPath)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}

	variantURL, err := hls.SelectHighestResolution(string(content), job.ManifestPath)
	if err != nil {
		return fmt.Errorf("select variant: %w", err)
	}
	log.Info("highest resolution variant selected", slog.String("variant", variantURL))

	text, err := p.fetcher.FetchText(ctx, variantURL)
	if err != nil {
		return fmt.Errorf("fetch variant playlist: %w", err)
	}
	segments, err := hls.ParseSegments(text)
	if err != nil {
		return fmt.Errorf("parse variant playlist: %w", err)
	}
	_ = p.tracker.SetTotal(manifest, len(segments))

	for _, dir := range []string{job.DownloadDir, job.OutputDir} {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}

	log.Info("downloading segments",
		slog.Int("segments", len(segments)),
		slog.Int("concurrency", p.concurrency))
	results := p.fetchAll(ctx, log, manifest, variantURL, segments, job.DownloadDir)

	failed := results.Failed()
	if len(failed) > 0 {
		log.Warn("segments skipped", slog.Any("ordinals", failed))
	}
	plan := results.Plan()
	if len(plan) == 0 {
		return ErrNoSegmentsDownloaded
	}

	listPath := filepath.Join(job.DownloadDir, ConcatListName)
	if err := afero.WriteFile(p.fs, listPath, []byte(BuildConcatList(plan)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	log.Debug("concat list written", slog.String("path", listPath), slog.Int("entries", len(plan)))

	outputPath := filepath.Join(job.OutputDir, job.OutputName)
	if err := p.muxer.Concatenate(ctx, listPath, outputPath); err != nil {
		return err
	}

	log.Info("manifest merged",
		slog.String("output", outputPath),
		slog.Int("segments", len(plan)),
		slog.Int("skipped", len(failed)),
		slog.String("size", humanize.Bytes(uint64(results.Bytes()))))

	if p.cleanup {
		p.removeAll(log, append(plan, listPath))
	}
	return nil
}

func (p *Pipeline) removeAll(log *slog.Logger, paths []string) {
	for _, path := range paths {
		if err := p.fs.Remove(path); err != nil {
			log.Warn("cleanup failed", slog.String("path", path), slog.String("error", err.Error()))
		}
	}
}

// fetchAll downloads segments with at most p.concurrency requests in flight.
func (p *Pipeline) fetchAll(ctx context.Context, log *slog.Logger, manifest, variantURL string, segments []hls.Segment, dir string) *ResultSet {
	results := NewResultSet()

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, seg := range segments {
		g.Go(func() error {
			res := p.fetchSegment(ctx, variantURL, seg, dir)
			results.Add(res)
			_ = p.tracker.RecordSegment(manifest, res.OK(), res.Bytes)
			if !res.OK() {
				log.Error("skipping segment",
					slog.Int("segment", seg.Ordinal),
					slog.String("error", res.Err.Error()))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pipeline) fetchSegment(ctx context.Context, variantURL string, seg hls.Segment, dir string) fetch.Result {
	url, err := hls.ResolveURL(variantURL, seg.URI)
	if err != nil {
		if p.metrics != nil {
			p.metrics.IncSegmentFailures()
		}
		return fetch.Result{Ordinal: seg.Ordinal, Err: fmt.Errorf("%w: %w", fetch.ErrSegmentDownload, err)}
	}
	return p.fetcher.FetchSegment(ctx, url, dir, seg.Ordinal)
}
