package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-downloader/internal/acquire"
	"hls-downloader/internal/fetch"
	"hls-downloader/internal/mux"
	"hls-downloader/internal/platform/config"
	"hls-downloader/internal/platform/logger"
	"hls-downloader/internal/platform/metrics"
	"hls-downloader/internal/progress"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/afero"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		logger.New(os.Stderr, "error", "json").Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if st := mux.Check(cfg.FFmpegPath); !st.Available {
		log.Warn("muxer binary not available, merges will fail", slog.String("detail", st.Detail))
	}

	fs := afero.NewOsFs()
	met := metrics.New()
	tracker := progress.NewTracker()

	fetcher := fetch.New(fs, log, met, fetch.Options{
		Client:       fetch.NewClient(cfg.HTTPTimeout),
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		MaxBackoff:   cfg.MaxBackoff,
	})
	pipeline := acquire.NewPipeline(fs, fetcher, mux.FFmpeg{Binary: cfg.FFmpegPath}, log, acquire.Options{
		Concurrency:     cfg.SegmentConcurrency,
		CleanupSegments: cfg.CleanupSegments,
		Metrics:         met,
		Tracker:         tracker,
	})
	batch := acquire.NewBatch(fs, pipeline, log, acquire.BatchOptions{
		DownloadDir: cfg.DownloadDir,
		OutputDir:   cfg.OutputDir,
		ManifestExt: cfg.ManifestExt,
		OutputExt:   cfg.OutputExt,
		Concurrency: cfg.ManifestConcurrency,
		Tracker:     tracker,
	})

	var srv *http.Server
	if cfg.StatusAddr != "" {
		srv = startStatusServer(cfg.StatusAddr, log, met, tracker)
	}

	log.Info("batch configured",
		slog.String("root", cfg.Root),
		slog.Int("max_retries", cfg.MaxRetries),
		slog.Int("segment_concurrency", cfg.SegmentConcurrency),
		slog.Int("manifest_concurrency", cfg.ManifestConcurrency),
		slog.String("log_level", cfg.LogLevel),
	)

	summary := batch.RunAll(ctx, cfg.SourceDir)
	log.Info("all downloads and merges complete",
		slog.Int("succeeded", len(summary.Succeeded)),
		slog.Int("failed", len(summary.Failed)),
		slog.Int("skipped", len(summary.Skipped)),
	)

	if srv == nil {
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("status server shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("status server stopped")
}

// startStatusServer serves metrics and run progress while the batch runs.
func startStatusServer(addr string, log *slog.Logger, met *metrics.Metrics, tracker *progress.Tracker) *http.Server {
	h := progress.NewHandler(tracker, log)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveRuns(tracker.ActiveCount()) }).ServeHTTP(w, r)
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{manifest}", h.GetRun)

	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("status server error", slog.String("error", err.Error()))
		}
	}()

	log.Info("status server starting", slog.String("addr", addr))
	return srv
}
