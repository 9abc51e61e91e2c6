package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr string
	GRPCAddr string // "" disables the gRPC listener

	Env string // "dev" | "prod"

	// Record store
	StoreBackend string // "sqlite" | "memory" | "redis"
	DBPath       string // e.g. "./data/portico.db"
	RedisURL     string

	// Event publishing; empty disables it
	NATSURL string

	// Access rules
	GraceWindow time.Duration

	// Expiration sweep
	SweepInterval    time.Duration // 0 = rely on an external scheduler
	SweepConcurrency int

	// Admin surface; empty token disables admin routes
	AdminToken string

	// Telephony webhook
	TwilioAuthToken string // empty skips signature validation
	PublicURL       string // base URL the provider signs against
	TrustProxy      bool   // honor X-Forwarded-Proto when PublicURL is empty
	RateRPS         float64
	RateBurst       int

	// Logging
	LogLevel  string
	LogPretty bool

	// Tracing
	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
	OTelInsecure    bool
	ServiceVersion  string

	ShutdownTimeout time.Duration
}

// Load reads a .env file when present, then the process environment.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

func FromEnv() Config {
	env := strings.ToLower(getenvDefault("PORTICO_ENV", "dev"))
	if env != "dev" && env != "prod" {
		// fail-soft: treat unknown as dev
		env = "dev"
	}

	backend := strings.ToLower(getenvDefault("PORTICO_STORE", "sqlite"))
	switch backend {
	case "sqlite", "memory", "redis":
	default:
		backend = "sqlite"
	}

	return Config{
		HTTPAddr: getenvDefault("PORTICO_HTTP_ADDR", ":8080"),
		GRPCAddr: os.Getenv("PORTICO_GRPC_ADDR"),
		Env:      env,

		StoreBackend: backend,
		DBPath:       getenvDefault("PORTICO_DB_PATH", "./data/portico.db"),
		RedisURL:     getenvDefault("PORTICO_REDIS_URL", "redis://localhost:6379/0"),

		NATSURL: os.Getenv("PORTICO_NATS_URL"),

		GraceWindow: getenvDuration("PORTICO_GRACE_WINDOW", 2*time.Hour),

		SweepInterval:    getenvDuration("PORTICO_SWEEP_INTERVAL", 0),
		SweepConcurrency: getenvInt("PORTICO_SWEEP_CONCURRENCY", 4),

		AdminToken: os.Getenv("PORTICO_ADMIN_TOKEN"),

		TwilioAuthToken: os.Getenv("PORTICO_TWILIO_AUTH_TOKEN"),
		PublicURL:       strings.TrimRight(os.Getenv("PORTICO_PUBLIC_URL"), "/"),
		TrustProxy:      getenvBool("PORTICO_TRUST_PROXY", false),
		RateRPS:         getenvFloat("PORTICO_RATE_RPS", 5),
		RateBurst:       getenvInt("PORTICO_RATE_BURST", 10),

		LogLevel:  getenvDefault("PORTICO_LOG_LEVEL", "info"),
		LogPretty: getenvBool("PORTICO_LOG_PRETTY", env == "dev"),

		OTelEnabled:     getenvBool("PORTICO_OTEL_ENABLED", false),
		OTelEndpoint:    getenvDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelSampleRatio: getenvFloat("PORTICO_OTEL_SAMPLE_RATIO", 1),
		OTelInsecure:    getenvBool("PORTICO_OTEL_INSECURE", true),
		ServiceVersion:  getenvDefault("PORTICO_VERSION", "dev"),
		ShutdownTimeout: getenvDuration("PORTICO_SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 {
		return def
	}
	return f
}

func getenvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// getenvDuration accepts Go duration syntax ("90m") or a bare number of
// seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n >= 0 {
		return time.Duration(n) * time.Second
	}
	return def
}
