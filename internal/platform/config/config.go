package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration of the downloader. Working directories
// are explicit values so several configurations can coexist (e.g. in tests).
type Config struct {
	Root        string
	SourceDir   string
	DownloadDir string
	OutputDir   string

	ManifestExt string
	OutputExt   string

	MaxRetries          int
	SegmentConcurrency  int
	ManifestConcurrency int
	RetryBackoff        time.Duration
	MaxBackoff          time.Duration
	HTTPTimeout         time.Duration

	FFmpegPath      string
	CleanupSegments bool

	LogLevel   string
	LogFormat  string
	StatusAddr string
}

// Load reads the .env file from the current working directory and sets
// environment variables. If .env does not exist, Load returns an error but
// callers can ignore it and use system env or defaults. Pass one or more paths
// to load from specific files (e.g. ".env"); with no paths, ".env" is used.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	return godotenv.Load(paths...)
}

// FromEnv builds a Config from environment variables, falling back to defaults.
// The working root is made absolute so concat lists carry absolute paths.
func FromEnv() (Config, error) {
	root, err := filepath.Abs(GetEnv("HLSDL_ROOT", "."))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Root:                root,
		SourceDir:           filepath.Join(root, "source"),
		DownloadDir:         filepath.Join(root, "downloads"),
		OutputDir:           filepath.Join(root, "merged"),
		ManifestExt:         normalizeExt(GetEnv("MANIFEST_EXT", ".m3u8")),
		OutputExt:           normalizeExt(GetEnv("OUTPUT_EXT", ".mp4")),
		MaxRetries:          GetEnvInt("MAX_RETRIES", 3),
		SegmentConcurrency:  GetEnvInt("SEGMENT_CONCURRENCY", 4),
		ManifestConcurrency: GetEnvInt("MANIFEST_CONCURRENCY", 1),
		RetryBackoff:        GetEnvDuration("RETRY_BACKOFF", 250*time.Millisecond),
		MaxBackoff:          GetEnvDuration("MAX_BACKOFF", 5*time.Second),
		HTTPTimeout:         GetEnvDuration("HTTP_TIMEOUT", 60*time.Second),
		FFmpegPath:          GetEnv("FFMPEG_PATH", "ffmpeg"),
		CleanupSegments:     GetEnvBool("CLEANUP_SEGMENTS", false),
		LogLevel:            GetEnv("LOG_LEVEL", "info"),
		LogFormat:           GetEnv("LOG_FORMAT", "json"),
		StatusAddr:          GetEnv("STATUS_ADDR", ""),
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.SegmentConcurrency < 1 {
		cfg.SegmentConcurrency = 1
	}
	if cfg.ManifestConcurrency < 1 {
		cfg.ManifestConcurrency = 1
	}
	return cfg, nil
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvDuration parses values such as "250ms" or "1m30s".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if d, err := time.ParseDuration(s); err == nil {
			return d
		}
	}
	return fallback
}

// GetEnvBool accepts the forms understood by strconv.ParseBool.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

func normalizeExt(ext string) string {
	ext = strings.TrimSpace(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
