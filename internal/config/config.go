package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	// Completion service.
	CompletionURL     string
	CompletionToken   string
	PrimaryModel      string
	FallbackModel     string
	CompletionTimeout time.Duration
	MaxPromptChars    int

	// Semantic search service.
	SearchURL     string
	SearchService string

	// Batch defaults.
	BatchSize     int
	MaxParallel   int
	MaxRetries    int
	RetryDelay    time.Duration
	ProgressEvery int

	// Raw-output archive.
	ArchiveStore  string
	LocalStoreDir string
	AWSRegion     string
	S3Bucket      string
	S3Prefix      string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:        getEnv("PORT", "8080"),
		Env:         env,
		DatabaseURL: dbURL,

		CompletionURL:     getEnv("COMPLETION_URL", ""),
		CompletionToken:   getEnv("COMPLETION_TOKEN", ""),
		PrimaryModel:      getEnv("PRIMARY_MODEL", "claude-4-sonnet"),
		FallbackModel:     getEnv("FALLBACK_MODEL", "mistral-large"),
		CompletionTimeout: getEnvDuration("COMPLETION_TIMEOUT", 120*time.Second),
		MaxPromptChars:    getEnvInt("MAX_PROMPT_CHARS", 4000),

		SearchURL:     getEnv("SEARCH_URL", ""),
		SearchService: getEnv("SEARCH_SERVICE", "patient_search_service"),

		BatchSize:     getEnvInt("BATCH_SIZE", 10),
		MaxParallel:   getEnvInt("MAX_PARALLEL", 5),
		MaxRetries:    getEnvInt("MAX_RETRIES", 3),
		RetryDelay:    getEnvDuration("RETRY_DELAY", 2*time.Second),
		ProgressEvery: getEnvInt("PROGRESS_EVERY", 10),

		ArchiveStore:  normalizeStoreType(getEnv("ARCHIVE_STORE", "local")),
		LocalStoreDir: getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:     getEnv("AWS_REGION", ""),
		S3Bucket:      getEnv("S3_BUCKET", ""),
		S3Prefix:      getEnv("S3_PREFIX", ""),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}
