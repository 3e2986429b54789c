// Package config loads worker configuration from environment variables,
// matching a .env file loaded by the caller via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds worker configuration.
type Config struct {
	// Task broker (asynq/Redis)
	BrokerURL string

	// Event bus (go-redis pub/sub). Defaults to BrokerURL's Redis instance
	// when unset, for a single-Redis deployment.
	EventBusURL string

	// PostgreSQL configuration
	DatabaseURL string

	// Object-store / storage-gateway configuration
	StorageURL    string
	StorageBucket string

	// Vision-LLM provider configuration
	VisionLLMProvider string // "gemini" or "litellm"
	VisionLLMAPIKey   string
	VisionLLMBaseURL  string // only meaningful for the litellm provider
	ExtractionModelID string

	// Remote-drive OAuth (optional — only required when a Job's source_type
	// is remote-drive)
	GoogleClientID     string
	GoogleClientSecret string
	OneDriveClientID     string
	OneDriveClientSecret string

	// Rasterization delegate (no in-process PDF renderer; see internal/rasterizer)
	RenderServiceURL string

	// Worker configuration
	WorkerConcurrency      int
	ParallelWorkers        int
	MaxFileSize            int64
	ProcessingTimeout      int // seconds
	ConfidenceThreshold    float64
	DiscoveryBatchSize     int
	ReconcileInterval      int // seconds

	// Temporary directory for rasterized page staging
	TempDir string

	NodeEnv string
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	brokerURL := getEnvOrDefault("BROKER_URL", "redis://localhost:6379")
	cfg := &Config{
		BrokerURL:            brokerURL,
		EventBusURL:          getEnvOrDefault("EVENT_BUS_URL", brokerURL),
		DatabaseURL:          getEnvOrThrow("DATABASE_URL"),
		StorageURL:           getEnvOrThrow("STORAGE_URL"),
		StorageBucket:        getEnvOrDefault("STORAGE_BUCKET", "bulk-documents"),
		VisionLLMProvider:    getEnvOrDefault("VISION_LLM_PROVIDER", "gemini"),
		VisionLLMAPIKey:      getEnvOrThrow("VISION_LLM_API_KEY"),
		VisionLLMBaseURL:     getEnvOrDefault("VISION_LLM_BASE_URL", ""),
		ExtractionModelID:    getEnvOrDefault("EXTRACTION_MODEL_ID", "gemini-1.5-pro"),
		GoogleClientID:       getEnvOrDefault("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:   getEnvOrDefault("GOOGLE_CLIENT_SECRET", ""),
		OneDriveClientID:     getEnvOrDefault("ONEDRIVE_CLIENT_ID", ""),
		OneDriveClientSecret: getEnvOrDefault("ONEDRIVE_CLIENT_SECRET", ""),
		RenderServiceURL:     getEnvOrDefault("RENDER_SERVICE_URL", "http://localhost:8099/render"),
		WorkerConcurrency:    getEnvAsIntOrDefault("WORKER_CONCURRENCY", 10),
		ParallelWorkers:      getEnvAsIntOrDefault("PARALLEL_WORKERS", 5),
		MaxFileSize:          getEnvAsInt64OrDefault("MAX_FILE_SIZE", 5368709120), // 5GB
		ProcessingTimeout:    getEnvAsIntOrDefault("PROCESSING_TIMEOUT", 300),      // 5 minutes
		ConfidenceThreshold:  getEnvAsFloatOrDefault("CONFIDENCE_THRESHOLD", 0.75),
		DiscoveryBatchSize:   getEnvAsIntOrDefault("DISCOVERY_BATCH_SIZE", 100),
		ReconcileInterval:    getEnvAsIntOrDefault("RECONCILE_INTERVAL", 900), // 15 minutes
		TempDir:              getEnvOrDefault("TEMP_DIR", "/tmp/bulk-extract"),
		NodeEnv:              getEnvOrDefault("NODE_ENV", "development"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if c.BrokerURL == "" {
		return fmt.Errorf("BROKER_URL is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.StorageURL == "" {
		return fmt.Errorf("STORAGE_URL is required")
	}

	provider := strings.ToLower(c.VisionLLMProvider)
	if provider != "gemini" && provider != "litellm" {
		return fmt.Errorf("VISION_LLM_PROVIDER must be \"gemini\" or \"litellm\", got %q", c.VisionLLMProvider)
	}
	if provider == "litellm" && c.VisionLLMBaseURL == "" {
		return fmt.Errorf("VISION_LLM_BASE_URL is required when VISION_LLM_PROVIDER=litellm")
	}
	if c.VisionLLMAPIKey == "" {
		return fmt.Errorf("VISION_LLM_API_KEY is required")
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}
	if c.ParallelWorkers < 1 || c.ParallelWorkers > 64 {
		return fmt.Errorf("PARALLEL_WORKERS must be between 1 and 64, got %d", c.ParallelWorkers)
	}
	if c.MaxFileSize < 1024 || c.MaxFileSize > 10737418240 { // 1KB to 10GB
		return fmt.Errorf("MAX_FILE_SIZE must be between 1KB and 10GB, got %d", c.MaxFileSize)
	}
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be between 0 and 1, got %f", c.ConfidenceThreshold)
	}

	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvOrThrow(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return value
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt64OrDefault(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
