package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Record backends.
const (
	RecordsBackendMemory   = "memory"
	RecordsBackendPostgres = "postgres"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	DatabaseURL string

	// RecordsBackend selects where prescriptions and appointments are read
	// from: the seeded in-memory store or the scheduling database.
	RecordsBackend string
	// AuditEnabled writes every decision to decision_audit_events.
	AuditEnabled bool

	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	SearchCacheTTL time.Duration

	KnowledgeCorpusPath string
	RetrievalTopK       int
	AmbiguityMargin     float64 // 0 turns ambiguity detection off
	BatchConcurrency    int

	ServiceJWTSecret   string
	MetricsToken       string
	CORSAllowedOrigins []string
	CORSMaxAge         time.Duration
	RateLimitRPS       float64
	RateLimitBurst     int
	ShutdownTimeout    time.Duration
}

// LoadDotEnv loads a local .env file when present. Real environment
// variables always win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		RecordsBackend: strings.ToLower(strings.TrimSpace(getEnv("RECORDS_BACKEND", RecordsBackendMemory))),
		AuditEnabled:   getEnvAsBool("AUDIT_ENABLED", true),

		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		SearchCacheTTL: getEnvAsDuration("SEARCH_CACHE_TTL", 10*time.Minute),

		KnowledgeCorpusPath: getEnv("KNOWLEDGE_CORPUS_PATH", ""),
		RetrievalTopK:       getEnvAsInt("RETRIEVAL_TOP_K", 3),
		AmbiguityMargin:     getEnvAsFloat("AMBIGUITY_MARGIN", 5),
		BatchConcurrency:    getEnvAsInt("BATCH_CONCURRENCY", 8),

		ServiceJWTSecret:   getEnv("SERVICE_JWT_SECRET", ""),
		MetricsToken:       getEnv("METRICS_TOKEN", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		CORSMaxAge:         getEnvAsDuration("CORS_MAX_AGE", 10*time.Minute),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 20),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 40),
		ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	switch c.RecordsBackend {
	case RecordsBackendMemory:
	case RecordsBackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when RECORDS_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RECORDS_BACKEND %q", c.RecordsBackend))
	}
	if c.IsProduction() && c.ServiceJWTSecret == "" {
		errs = append(errs, errors.New("SERVICE_JWT_SECRET is required in production"))
	}
	if c.RetrievalTopK < 1 {
		errs = append(errs, errors.New("RETRIEVAL_TOP_K must be at least 1"))
	}
	if c.AmbiguityMargin < 0 {
		errs = append(errs, errors.New("AMBIGUITY_MARGIN must not be negative"))
	}
	if c.BatchConcurrency < 1 {
		errs = append(errs, errors.New("BATCH_CONCURRENCY must be at least 1"))
	}
	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
