package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	Worker    WorkerConfig
	DB        DatabaseConfig
	Logging   LoggingConfig
	Engine    EngineConfig
	Refresh   RefreshConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
}

type GRPCConfig struct {
	Port int
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type DatabaseConfig struct {
	Path string
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type EngineConfig struct {
	ProximityRadiusMeters float64
	ZoneRadiiMeters       []float64
	BufferTolerance       float64
	HotspotLookback       time.Duration
	DetectionMeters       float64
	ScoringTablesPath     string // optional YAML override
}

type RefreshConfig struct {
	Enabled  bool
	Schedule string // cron spec, e.g. "*/15 * * * *"
	Reassess bool   // reassess active disasters after each reload
}

type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		DB: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/disaster-impact.db"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Engine: EngineConfig{
			ProximityRadiusMeters: getEnvFloat("PROXIMITY_RADIUS_METERS", 10000),
			ZoneRadiiMeters:       getEnvFloatList("EVACUATION_RADII_METERS", []float64{1000, 5000, 10000}),
			BufferTolerance:       getEnvFloat("BUFFER_TOLERANCE", 0.01),
			HotspotLookback:       getEnvDuration("HOTSPOT_LOOKBACK", 5*365*24*time.Hour),
			DetectionMeters:       getEnvFloat("DETECTION_CLUSTER_METERS", 5000),
			ScoringTablesPath:     getEnv("SCORING_TABLES_PATH", ""),
		},
		Refresh: RefreshConfig{
			Enabled:  getEnvBool("REFRESH_ENABLED", true),
			Schedule: getEnv("REFRESH_SCHEDULE", "*/15 * * * *"),
			Reassess: getEnvBool("REFRESH_REASSESS", false),
		},
		Kafka: KafkaConfig{
			Enabled:      getEnvBool("KAFKA_ENABLED", false),
			Brokers:      getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:        getEnv("KAFKA_TOPIC", "impact-assessments"),
			BatchTimeout: getEnvDuration("KAFKA_BATCH_TIMEOUT", time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvFloat("RATE_LIMIT_RPS", 5),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Engine.ProximityRadiusMeters <= 0 {
		return fmt.Errorf("proximity radius must be positive")
	}
	if len(c.Engine.ZoneRadiiMeters) == 0 {
		return fmt.Errorf("at least one evacuation radius is required")
	}
	for i, r := range c.Engine.ZoneRadiiMeters {
		if r <= 0 || (i > 0 && r <= c.Engine.ZoneRadiiMeters[i-1]) {
			return fmt.Errorf("evacuation radii must be positive and strictly increasing: %v", c.Engine.ZoneRadiiMeters)
		}
	}
	if c.Engine.BufferTolerance <= 0 || c.Engine.BufferTolerance >= 1 {
		return fmt.Errorf("buffer tolerance must be in (0,1): %v", c.Engine.BufferTolerance)
	}
	if c.Engine.HotspotLookback <= 0 {
		return fmt.Errorf("hotspot lookback must be positive")
	}

	if c.Refresh.Enabled {
		if _, err := cron.ParseStandard(c.Refresh.Schedule); err != nil {
			return fmt.Errorf("invalid refresh schedule %q: %w", c.Refresh.Schedule, err)
		}
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka enabled without brokers")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka enabled without topic")
		}
	}

	if c.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping empty items.
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvFloatList(key string, fallback []float64) []float64 {
	items := getEnvList(key, nil)
	if items == nil {
		return fallback
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		f, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return fallback
		}
		out = append(out, f)
	}
	return out
}
