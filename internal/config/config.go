package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Engine    EngineConfig
	Feedback  FeedbackConfig
	Baseline  BaselineConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	DropLogFilePath    string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type EngineConfig struct {
	Lanes                   int
	LaneCapacity            int
	LatencyBudget           time.Duration
	WindowHorizon           time.Duration
	WindowIdleTTL           time.Duration
	WindowSweepInterval     time.Duration
	ScrollVelocityThreshold float64
	SinkBuffer              int
}

type FeedbackConfig struct {
	ExplanationTTL       time.Duration
	ReversalScanInterval time.Duration
	TrailingSignals      int
	TrailingAge          time.Duration
}

type BaselineConfig struct {
	RecomputeInterval time.Duration
	Retention         time.Duration
	MinSamples        int
	Alpha             float64
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/engine.log"),
			DropLogFilePath:    getEnv("DROP_LOG_FILE_PATH", "logs/dropped.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Engine: EngineConfig{
			Lanes:                   getEnvAsInt("ENGINE_LANES", 16),
			LaneCapacity:            getEnvAsInt("ENGINE_LANE_CAPACITY", 256),
			LatencyBudget:           getEnvAsDuration("ENGINE_LATENCY_BUDGET", 500*time.Millisecond),
			WindowHorizon:           getEnvAsDuration("WINDOW_HORIZON", 30*time.Second),
			WindowIdleTTL:           getEnvAsDuration("WINDOW_IDLE_TTL", 5*time.Minute),
			WindowSweepInterval:     getEnvAsDuration("WINDOW_SWEEP_INTERVAL", 30*time.Second),
			ScrollVelocityThreshold: getEnvAsFloat("SCROLL_VELOCITY_THRESHOLD", 800),
			SinkBuffer:              getEnvAsInt("SINK_BUFFER", 1024),
		},
		Feedback: FeedbackConfig{
			ExplanationTTL:       getEnvAsDuration("EXPLANATION_TTL", 7*24*time.Hour),
			ReversalScanInterval: getEnvAsDuration("REVERSAL_SCAN_INTERVAL", time.Hour),
			TrailingSignals:      getEnvAsInt("FEEDBACK_TRAILING_SIGNALS", 20),
			TrailingAge:          getEnvAsDuration("FEEDBACK_TRAILING_AGE", 7*24*time.Hour),
		},
		Baseline: BaselineConfig{
			RecomputeInterval: getEnvAsDuration("BASELINE_RECOMPUTE_INTERVAL", 24*time.Hour),
			Retention:         getEnvAsDuration("BASELINE_RETENTION", 90*24*time.Hour),
			MinSamples:        getEnvAsInt("BASELINE_MIN_SAMPLES", 10),
			Alpha:             getEnvAsFloat("BASELINE_ALPHA", 0.1),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go duration strings ("500ms", "24h").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
