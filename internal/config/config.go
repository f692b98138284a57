package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// MaxAttempts is the hard ceiling on planning attempts per session
const MaxAttempts = 10

// Config holds all configuration for the planner and its MCP server
type Config struct {
	// Auth
	AuthToken string

	// Server
	Port        string
	Environment string

	// Local Open Food Facts dataset
	FoodDBEnabled      bool
	ParquetURL         string
	DataDir            string
	ParquetPath        string
	MetadataPath       string
	LockFile           string
	DisableRemoteCheck bool
	IgnoreLock         bool

	// Open Food Facts search API
	OFFSearchURL         string
	OFFSearchDisabled    bool
	LookupTimeoutSeconds int

	// Proposer
	GeminiAPIKey            string
	GeminiModel             string
	GeminiBaseURL           string
	ProposerTimeoutSeconds  int
	RateLimitDefaultSeconds int

	// Planning loop
	MaxAttempts          int
	AttemptDelayMillis   int
	LocalCorrection      bool
	MaxScalePercent      float64
	CorrectionCalorieCap float64
	MaxPortionIncrease   float64
}

// FileReader abstracts reading the .env file so tests can inject content
type FileReader interface {
	Read(filename string) (map[string]string, error)
}

type osFileReader struct{}

func (osFileReader) Read(filename string) (map[string]string, error) {
	return godotenv.Read(filename)
}

// Load reads configuration from a .env file (if present) and environment variables
func Load() *Config {
	return LoadWithFileReader(osFileReader{})
}

// LoadWithFileReader is Load with an injectable .env reader
func LoadWithFileReader(reader FileReader) *Config {
	loadEnvFileWithReader(reader)

	dataDir := getEnv("DATA_DIR", "./data")

	maxAttempts := getEnvInt("MAX_ATTEMPTS", MaxAttempts)
	if maxAttempts <= 0 || maxAttempts > MaxAttempts {
		maxAttempts = MaxAttempts
	}

	return &Config{
		AuthToken:   getEnv("AUTH_TOKEN", "super-secret-token"),
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "production"),

		FoodDBEnabled:      getEnvBool("FOOD_DB_ENABLED", true),
		ParquetURL:         getEnv("PARQUET_URL", "https://huggingface.co/datasets/openfoodfacts/product-database/resolve/main/food.parquet"),
		DataDir:            dataDir,
		ParquetPath:        getEnv("PARQUET_PATH", filepath.Join(dataDir, "food.parquet")),
		MetadataPath:       getEnv("METADATA_PATH", filepath.Join(dataDir, "metadata.json")),
		LockFile:           getEnv("LOCK_FILE", filepath.Join(dataDir, "refresh.lock")),
		DisableRemoteCheck: getEnvBool("DISABLE_REMOTE_CHECK", false),
		IgnoreLock:         getEnvBool("IGNORE_LOCK", false),

		OFFSearchURL:         getEnv("OFF_SEARCH_URL", "https://world.openfoodfacts.org/cgi/search.pl"),
		OFFSearchDisabled:    getEnvBool("OFF_SEARCH_DISABLED", false),
		LookupTimeoutSeconds: getEnvInt("LOOKUP_TIMEOUT_SECONDS", 15),

		GeminiAPIKey:            os.Getenv("GEMINI_API_KEY"),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:           getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta/models"),
		ProposerTimeoutSeconds:  getEnvInt("PROPOSER_TIMEOUT_SECONDS", 90),
		RateLimitDefaultSeconds: getEnvInt("RATE_LIMIT_DEFAULT_SECONDS", 60),

		MaxAttempts:          maxAttempts,
		AttemptDelayMillis:   getEnvInt("ATTEMPT_DELAY_MS", 500),
		LocalCorrection:      getEnvBool("LOCAL_CORRECTION", true),
		MaxScalePercent:      getEnvFloat("MAX_SCALE_PERCENT", 0.25),
		CorrectionCalorieCap: getEnvFloat("CORRECTION_CALORIE_CAP", 800),
		MaxPortionIncrease:   getEnvFloat("MAX_PORTION_INCREASE", 2.0),
	}
}

// IsDevelopment reports whether detailed errors may be returned to clients
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// LookupTimeout returns the per-request timeout for food lookups
func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutSeconds) * time.Second
}

// ProposerTimeout returns the per-request timeout for the text-generation proposer
func (c *Config) ProposerTimeout() time.Duration {
	return time.Duration(c.ProposerTimeoutSeconds) * time.Second
}

// AttemptDelay returns the pause between planning attempts
func (c *Config) AttemptDelay() time.Duration {
	return time.Duration(c.AttemptDelayMillis) * time.Millisecond
}

// RateLimitDefault returns the backoff used when a quota error carries no retry hint
func (c *Config) RateLimitDefault() time.Duration {
	return time.Duration(c.RateLimitDefaultSeconds) * time.Second
}

// loadEnvFileWithReader copies .env values into the environment without
// overriding variables that are already set
func loadEnvFileWithReader(reader FileReader) {
	values, err := reader.Read(".env")
	if err != nil {
		return
	}
	for key, value := range values {
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return defaultValue
}
