package config

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr       string
	ObsHTTPAddr    string
	StoreDriver    string
	DatabaseURL    string
	BadgerDir      string
	RedisAddr      string
	KafkaBrokers   []string
	KafkaTopic     string
	ListingBaseURL string
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	ServiceName    string
	InstanceID     string
	MetricsEnabled bool
	TracingEnabled bool
	JaegerURL      string
}

func Load() *Config {
	// Same bootstrap as the original backend: a .env next to the binary wins,
	// real environment variables win over that.
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:       fixPort(getEnv("HTTP_ADDR", ":8080")),
		ObsHTTPAddr:    fixPort(getEnv("OBS_HTTP_ADDR", ":8090")),
		StoreDriver:    getEnv("STORE_DRIVER", "postgres"),
		BadgerDir:      getEnv("BADGER_DIR", "./data/chat"),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "chat-message-events"),
		ListingBaseURL: getEnv("LISTING_BASE_URL", ""),
		JWTSecret:      getEnv("JWT_SECRET", "secret"),
		JWTIssuer:      getEnv("JWT_ISSUER", "rackup-auth"),
		JWTAudience:    getEnv("JWT_AUDIENCE", "rackup-clients"),
		ServiceName:    getEnv("SERVICE_NAME", "chat-service"),
		InstanceID:     getEnv("INSTANCE_ID", getEnv("HOSTNAME", "")),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		JaegerURL:      getEnv("JAEGER_URL", "http://localhost:14268/api/traces"),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.StoreDriver == "postgres" {
		cfg.DatabaseURL = mustEnv("DATABASE_URL")
	}

	return cfg
}

func fixPort(port string) string {
	if port != "" && !strings.HasPrefix(port, ":") {
		return ":" + port
	}
	return port
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v == "true"
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env: %s", k)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
