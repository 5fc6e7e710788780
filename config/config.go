package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Worker    WorkerConfig    `mapstructure:"worker"`
	ZMQ       ZMQConfig       `mapstructure:"zmq"`
	Ops       OpsConfig       `mapstructure:"ops"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Crawl     CrawlConfig     `mapstructure:"crawl"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// WorkerConfig holds job execution configuration
type WorkerConfig struct {
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

// ZMQConfig holds the control socket configuration
type ZMQConfig struct {
	Address string `mapstructure:"address"`
}

// OpsConfig holds the operational HTTP endpoint configuration
type OpsConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// CrawlConfig holds crawl pipeline configuration
type CrawlConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// EmbeddingConfig holds embedding inference configuration
type EmbeddingConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	Model      string        `mapstructure:"model"`
	Dimension  int           `mapstructure:"dimension"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

var globalConfig *Config

// Load loads the configuration from file, .env, and environment variables.
// The APP_ENV profile (default "local") selects an overlay file merged over
// config/default.yaml.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load .env file before reading env overrides
	if err := loadEnvFile(); err != nil {
		// .env is optional, log but don't fail
		log.Warn().Err(err).Msg("Warning: .env file not loaded")
	}

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("default")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvPrefix("CRAWLER_SERVICE")

	// Bind env keys for nested config
	bindEnvVars(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Merge the APP_ENV overlay when no explicit file was given
	if configPath == "" {
		if err := mergeEnvOverlay(v); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = &cfg
	return &cfg, nil
}

// mergeEnvOverlay merges config/{APP_ENV}.yaml over the defaults
func mergeEnvOverlay(v *viper.Viper) error {
	appEnv := AppEnv()
	overlay := viper.New()
	overlay.SetConfigName(appEnv)
	overlay.SetConfigType("yaml")
	overlay.AddConfigPath("./config")
	overlay.AddConfigPath(".")

	if err := overlay.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Overlay is optional
			return nil
		}
		return fmt.Errorf("error reading %s config overlay: %w", appEnv, err)
	}

	return v.MergeConfigMap(overlay.AllSettings())
}

// loadEnvFile loads .env file by parsing KEY=VALUE lines and setting them as environment variables
func loadEnvFile() error {
	envPaths := []string{
		".",
		"./config",
	}

	for _, path := range envPaths {
		envFile := fmt.Sprintf("%s/.env", path)
		if _, err := os.Stat(envFile); err == nil {
			if err := loadDotEnvFile(envFile); err == nil {
				return nil
			}
		}
	}
	return fmt.Errorf("no .env file found")
}

// loadDotEnvFile reads a .env file and sets environment variables
func loadDotEnvFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			// Remove quotes if present
			value = strings.Trim(value, "\"'")
			os.Setenv(key, value)
		}
	}
	return scanner.Err()
}

// bindEnvVars binds environment variables to config keys
func bindEnvVars(v *viper.Viper) {
	// Database
	v.BindEnv("database.url", "DATABASE_URL")

	// Control socket
	v.BindEnv("zmq.address", "ZMQ_ADDRESS")

	// Embedding inference
	v.BindEnv("embedding.endpoint", "EMBEDDING_ENDPOINT")
	v.BindEnv("embedding.model", "EMBEDDING_MODEL")

	// Ops endpoint
	v.BindEnv("ops.port", "PORT")
	v.BindEnv("ops.host", "HOST")

	// Logging
	v.BindEnv("logging.level", "LOG_LEVEL")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Worker defaults
	v.SetDefault("worker.drain_timeout", 30*time.Second)

	// Control socket defaults
	v.SetDefault("zmq.address", "tcp://127.0.0.1:5555")

	// Ops defaults
	v.SetDefault("ops.host", "127.0.0.1")
	v.SetDefault("ops.port", 8091)
	v.SetDefault("ops.read_timeout", 10*time.Second)
	v.SetDefault("ops.write_timeout", 10*time.Second)

	// Database defaults
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	// Crawl defaults
	v.SetDefault("crawl.concurrency", 5)
	v.SetDefault("crawl.request_timeout", 30*time.Second)
	v.SetDefault("crawl.requests_per_second", 10)

	// Embedding defaults
	v.SetDefault("embedding.endpoint", "http://127.0.0.1:8080")
	v.SetDefault("embedding.model", "intfloat/multilingual-e5-large")
	v.SetDefault("embedding.dimension", 1024)
	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("embedding.max_retries", 3)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)
}

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// AppEnv returns the active configuration profile
func AppEnv() string {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "local"
}

// GetDatabaseURL returns the database URL from config or environment
func GetDatabaseURL() string {
	if cfg := Get(); cfg != nil && cfg.Database.URL != "" {
		return cfg.Database.URL
	}
	return os.Getenv("DATABASE_URL")
}

// GetZMQAddress returns the control socket address from config or environment
func GetZMQAddress() string {
	if cfg := Get(); cfg != nil && cfg.ZMQ.Address != "" {
		return cfg.ZMQ.Address
	}
	if addr := os.Getenv("ZMQ_ADDRESS"); addr != "" {
		return addr
	}
	return "tcp://127.0.0.1:5555"
}
