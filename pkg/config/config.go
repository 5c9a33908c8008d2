// Package config loads and validates application configuration from YAML files
// with .env and environment-variable overrides. It provides typed structs for
// every subsystem (Server, Postgres, Kafka, Redis, Analyzer, Entities, Rescore,
// etc.).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analyzer  AnalyzerConfig  `yaml:"analyzer"`
	Entities  EntitiesConfig  `yaml:"entities"`
	Rescore   RescoreConfig   `yaml:"rescore"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	AllowedOrigins  []string      `yaml:"allowedOrigins"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	StatsGroup    string      `yaml:"statsGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	PostIngest string `yaml:"postIngest"`
	PostScored string `yaml:"postScored"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyzerConfig controls the scoring engine: parallelism, competitor mode,
// lexicon overrides and per-item limits.
type AnalyzerConfig struct {
	Workers        int           `yaml:"workers"`
	CompetitorMode bool          `yaml:"competitorMode"`
	LexiconPath    string        `yaml:"lexiconPath"`
	MaxBatchSize   int           `yaml:"maxBatchSize"`
	ItemTimeout    time.Duration `yaml:"itemTimeout"`
}

// EntityConfig names one tracked entity and the lower-case strings that
// identify it in text.
type EntityConfig struct {
	Name        string   `yaml:"name"`
	Identifiers []string `yaml:"identifiers"`
}

// EntitiesConfig lists the brand and its competitors.
type EntitiesConfig struct {
	Brand       EntityConfig   `yaml:"brand"`
	Competitors []EntityConfig `yaml:"competitors"`
}

// RescoreConfig controls scheduled re-scoring of stored posts.
type RescoreConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Schedule string `yaml:"schedule"`
	PageSize int    `yaml:"pageSize"`
}

// RateLimitConfig controls the per-client token bucket on scoring endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
}

// AuthConfig controls API key checks on the ingestion and admin endpoints.
type AuthConfig struct {
	Enabled  bool          `yaml:"enabled"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig controls request span logging. SampleRate is the fraction
// of requests traced when Enabled.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	SampleRate float64 `yaml:"sampleRate"`
}

// Rate returns the effective sample rate.
func (t TracingConfig) Rate() float64 {
	if !t.Enabled {
		return 0
	}
	return t.SampleRate
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided), loads a .env file from the
// working directory when one exists, and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the services cannot run with.
func (c *Config) Validate() error {
	if c.Entities.Brand.Name == "" {
		return fmt.Errorf("config: entities.brand.name is required")
	}
	if len(c.Entities.Brand.Identifiers) == 0 {
		return fmt.Errorf("config: entities.brand.identifiers must not be empty")
	}
	seen := map[string]bool{strings.ToLower(c.Entities.Brand.Name): true}
	for _, comp := range c.Entities.Competitors {
		name := strings.ToLower(comp.Name)
		if name == "" {
			return fmt.Errorf("config: competitor with empty name")
		}
		if seen[name] {
			return fmt.Errorf("config: duplicate entity %q", comp.Name)
		}
		seen[name] = true
	}
	if c.Analyzer.Workers < 1 {
		return fmt.Errorf("config: analyzer.workers must be >= 1, got %d", c.Analyzer.Workers)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local
// development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  20 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "brandsentiment",
			User:            "brandsentiment",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "sentiment-worker",
			StatsGroup:    "sentiment-stats",
			Topics: KafkaTopics{
				PostIngest: "post-ingest",
				PostScored: "post-scored",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Analyzer: AnalyzerConfig{
			Workers:        8,
			CompetitorMode: true,
			MaxBatchSize:   500,
			ItemTimeout:    5 * time.Second,
		},
		Entities: DefaultEntities(),
		Rescore: RescoreConfig{
			Enabled:  true,
			Schedule: "0 9 * * 1",
			PageSize: 200,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 600,
		},
		Auth: AuthConfig{
			Enabled:  false,
			CacheTTL: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// DefaultEntities returns the built-in brand and competitor identifiers.
func DefaultEntities() EntitiesConfig {
	return EntitiesConfig{
		Brand: EntityConfig{
			Name: "gusto",
			Identifiers: []string{
				"gusto", "gusto payroll", "gusto.com", "gustohq",
				"gusto software", "gusto platform", "gusto hr",
			},
		},
		Competitors: []EntityConfig{
			{Name: "adp", Identifiers: []string{"adp", "adp payroll", "adp workforce", "adp run"}},
			{Name: "paychex", Identifiers: []string{"paychex", "paychex flex", "paychex payroll"}},
			{Name: "quickbooks", Identifiers: []string{"quickbooks", "quickbooks payroll", "qb payroll", "intuit payroll"}},
			{Name: "bamboohr", Identifiers: []string{"bamboohr", "bamboo hr", "bamboo"}},
			{Name: "rippling", Identifiers: []string{"rippling", "rippling payroll", "rippling hr"}},
			{Name: "workday", Identifiers: []string{"workday", "workday payroll", "workday hcm"}},
			{Name: "deel", Identifiers: []string{"deel", "deel payroll", "deel global"}},
			{Name: "justworks", Identifiers: []string{"justworks", "just works", "justworks payroll"}},
		},
	}
}

// applyEnvOverrides reads SM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SM_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SM_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SM_ANALYZER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analyzer.Workers = n
		}
	}
	if v := os.Getenv("SM_ANALYZER_COMPETITOR_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Analyzer.CompetitorMode = b
		}
	}
	if v := os.Getenv("SM_ANALYZER_LEXICON_PATH"); v != "" {
		cfg.Analyzer.LexiconPath = v
	}
	if v := os.Getenv("SM_AUTH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Enabled = b
		}
	}
	if v := os.Getenv("SM_RESCORE_SCHEDULE"); v != "" {
		cfg.Rescore.Schedule = v
	}
	if v := os.Getenv("SM_RESCORE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Rescore.Enabled = b
		}
	}
	if v := os.Getenv("SM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
