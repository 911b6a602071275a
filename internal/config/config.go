package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Extraction
	InputPath    string
	OutputPath   string
	MaxChunkSize int
	RulesPath    string
	AuditPath    string
	TextOnly     bool

	// Corpus constants stamped on every chunk
	SourceURL    string
	DownloadDate string
	City         string
	DocIDPrefix  string

	// Serve
	Addr            string
	APIKey          string
	ShutdownTimeout time.Duration
	JobQueueSize    int
	JobTTL          time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// Raw loaders
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		InputPath:    envOr("CODECHUNK_INPUT", "rawcodes/san_francisco-ca-complete.html"),
		OutputPath:   envOr("CODECHUNK_OUTPUT", "sf_code_chunks.json"),
		MaxChunkSize: envInt("CODECHUNK_MAX_CHUNK_SIZE", 2000),
		RulesPath:    os.Getenv("CODECHUNK_RULES"),
		AuditPath:    os.Getenv("CODECHUNK_AUDIT"),
		TextOnly:     envBool("CODECHUNK_TEXT_ONLY", false),

		SourceURL:    envOr("CODECHUNK_SOURCE_URL", "https://codelibrary.amlegal.com/codes/san_francisco/latest/overview"),
		DownloadDate: envOr("CODECHUNK_DOWNLOAD_DATE", "2024-06-30"),
		City:         envOr("CODECHUNK_CITY", "San Francisco"),
		DocIDPrefix:  envOr("CODECHUNK_DOC_ID_PREFIX", "sf_municipal_code"),

		Addr:            envOr("CODECHUNK_ADDR", ":8090"),
		APIKey:          os.Getenv("CODECHUNK_API_KEY"),
		ShutdownTimeout: envDuration("CODECHUNK_SHUTDOWN_TIMEOUT", 10*time.Second),
		JobQueueSize:    envInt("CODECHUNK_JOB_QUEUE_SIZE", 4),
		JobTTL:          envDuration("CODECHUNK_JOB_TTL", time.Hour),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.InputPath == "" {
		return fmt.Errorf("CODECHUNK_INPUT is required")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("CODECHUNK_OUTPUT is required")
	}
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("CODECHUNK_MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize)
	}
	if c.DocIDPrefix == "" {
		return fmt.Errorf("CODECHUNK_DOC_ID_PREFIX is required")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
