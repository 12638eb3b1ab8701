package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize           int
	WindowFlushInterval time.Duration

	// Engine configuration.
	SignificanceThreshold int
	CategoryConfigPath    string
	ZipIndexPath          string

	// Baseline history configuration.
	BaselineURL       string
	BaselineEnabled   bool
	BaselineTimeout   time.Duration
	BaselineCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	flushInterval, err := parseDuration("WINDOW_FLUSH_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}

	baselineTimeout, err := parseDuration("BASELINE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	batchSize, err := parsePositiveInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}

	threshold, err := parsePositiveInt("SIGNIFICANCE_THRESHOLD", 5)
	if err != nil {
		return nil, err
	}

	cacheSize, err := parsePositiveInt("BASELINE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}

	baselineURL := os.Getenv("BASELINE_URL")
	baselineEnabled := baselineURL != ""
	if v := os.Getenv("BASELINE_ENABLED"); v != "" {
		baselineEnabled = v == "true"
	}

	cfg := &Config{
		KafkaBrokers:     parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: envOrDefault("KAFKA_SOURCE_TOPIC", "raw-complaint-records"),
		KafkaSinkTopic:   envOrDefault("KAFKA_SINK_TOPIC", "nuisance-cluster-snapshots"),
		KafkaGroupID:     envOrDefault("KAFKA_GROUP_ID", "nuisance-watch"),
		HTTPAddr:         envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogFormat:        envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:  shutdownTimeout,

		BatchSize:           batchSize,
		WindowFlushInterval: flushInterval,

		SignificanceThreshold: threshold,
		CategoryConfigPath:    os.Getenv("CATEGORY_CONFIG_PATH"),
		ZipIndexPath:          os.Getenv("ZIP_INDEX_PATH"),

		BaselineURL:       baselineURL,
		BaselineEnabled:   baselineEnabled,
		BaselineTimeout:   baselineTimeout,
		BaselineCacheSize: cacheSize,
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.BaselineEnabled && cfg.BaselineURL == "" {
		return nil, errors.New("BASELINE_ENABLED is true but BASELINE_URL is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(s string) []string {
	parts := strings.Split(s, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
