package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv string
	Port   string

	// Model layout on the mounted network volume and in the image.
	VolumePath   string
	ModelRepoURL string
	// ModelRepoPath is where the cloned generation repository lives; its
	// modules are on PYTHONPATH inside the image.
	ModelRepoPath string
	OutputDir     string
	PythonBin     string
	AutoDownload  bool
	ArchiveDir    string

	// Serverless platform endpoints (consumed, not implemented here).
	PlatformBaseURL    string
	PlatformEndpointID string
	PlatformAPIKey     string
	WorkerID           string
	PollInterval       time.Duration
	JobTimeout         time.Duration

	ServeLocalAPI bool

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	volumePath := getEnv("VOLUME_PATH", "/runpod-volume")
	repoPath := getEnv("MODEL_REPO_PATH", "/app/Wan2.2")

	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8000"),
		VolumePath:         volumePath,
		ModelRepoURL:       getEnv("MODEL_REPO_URL", "https://github.com/Wan-Video/Wan2.2.git"),
		ModelRepoPath:      repoPath,
		OutputDir:          getEnv("OUTPUT_DIR", repoPath+"/outputs"),
		PythonBin:          getEnv("PYTHON_BIN", "python3"),
		AutoDownload:       getEnvBool("MODEL_AUTO_DOWNLOAD", true),
		ArchiveDir:         os.Getenv("OUTPUT_ARCHIVE_DIR"),
		PlatformBaseURL:    getEnv("RUNPOD_API_BASE", "https://api.runpod.ai"),
		PlatformEndpointID: os.Getenv("RUNPOD_ENDPOINT_ID"),
		PlatformAPIKey:     os.Getenv("RUNPOD_AI_API_KEY"),
		WorkerID:           os.Getenv("RUNPOD_POD_ID"),
		PollInterval:       time.Second * time.Duration(getEnvInt("JOB_POLL_INTERVAL_SECONDS", 2)),
		JobTimeout:         time.Minute * time.Duration(getEnvInt("JOB_TIMEOUT_MINUTES", 30)),
		ServeLocalAPI:      getEnvBool("SERVE_LOCAL_API", false),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 30)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 1800)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.PlatformEndpointID != "" && cfg.PlatformAPIKey == "" {
		return nil, fmt.Errorf("RUNPOD_AI_API_KEY is required when RUNPOD_ENDPOINT_ID is set")
	}

	return cfg, nil
}

// PlatformConfigured reports whether the worker can reach the job queue.
func (c *Config) PlatformConfigured() bool {
	return c.PlatformEndpointID != "" && c.PlatformAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
