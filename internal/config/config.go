package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultMaxUploadBytes = 16 * 1024 * 1024

// Config holds every process-wide setting. It is built once at startup
// and handed to each collaborator at construction.
type Config struct {
	ListenAddr string

	ProjectID    string
	Zone         string
	InstanceName string
	BucketName   string
	WorkerToken  string

	MaxUploadBytes int64
	PublicBaseURL  string
	CORSOrigins    []string

	LedgerPath      string
	LedgerTTL       time.Duration
	CleanupInterval time.Duration

	SubmitRateLimit int
}

func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:    getEnv("APP_ADDR", ":8080"),
		ProjectID:     getEnv("GCP_PROJECT", ""),
		Zone:          getEnv("GCE_ZONE", "us-east1-b"),
		InstanceName:  getEnv("GCE_INSTANCE_NAME", "transcribe-worker-vm"),
		BucketName:    getEnv("GCS_BUCKET_NAME", "shaw-transcripts-20260207"),
		WorkerToken:   getEnv("HUGGING_FACE_TOKEN", ""),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		LedgerPath:    getEnv("LEDGER_PATH", "transcriber.db"),
	}

	if cfg.ProjectID == "" {
		return nil, errors.New("GCP_PROJECT must not be empty")
	}
	if cfg.WorkerToken == "" {
		return nil, errors.New("HUGGING_FACE_TOKEN must not be empty")
	}

	for _, o := range strings.Split(getEnv("CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	cfg.MaxUploadBytes, err = getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.MaxUploadBytes <= 0 {
		return nil, errors.New("MAX_UPLOAD_BYTES must be > 0")
	}

	ttlHours, err := getEnvInt64("LEDGER_TTL_HOURS", 720)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_TTL_HOURS: %w", err)
	}
	if ttlHours < 0 {
		return nil, errors.New("LEDGER_TTL_HOURS must be >= 0")
	}
	cfg.LedgerTTL = time.Duration(ttlHours) * time.Hour

	intervalMinutes, err := getEnvInt64("LEDGER_CLEANUP_INTERVAL_MINUTES", 60)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_CLEANUP_INTERVAL_MINUTES: %w", err)
	}
	if intervalMinutes < 0 {
		return nil, errors.New("LEDGER_CLEANUP_INTERVAL_MINUTES must be >= 0")
	}
	cfg.CleanupInterval = time.Duration(intervalMinutes) * time.Minute

	rps, err := getEnvInt64("SUBMIT_RATE_LIMIT", 2)
	if err != nil {
		return nil, fmt.Errorf("SUBMIT_RATE_LIMIT: %w", err)
	}
	if rps < 0 {
		return nil, errors.New("SUBMIT_RATE_LIMIT must be >= 0")
	}
	cfg.SubmitRateLimit = int(rps)

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}
