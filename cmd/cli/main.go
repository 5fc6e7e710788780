package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pushkind/crawler-service/config"
	"github.com/pushkind/crawler-service/internal/crawl"
	"github.com/pushkind/crawler-service/internal/database"
	"github.com/pushkind/crawler-service/internal/embedding"
	"github.com/pushkind/crawler-service/internal/jobs"
	"github.com/pushkind/crawler-service/internal/repository"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  *zerolog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "crawler-service",
	Short: "Crawler worker CLI - run jobs and send control messages",
	Long: `A CLI for operating the crawler worker. Runs crawl, benchmark and
category match jobs synchronously against the database, publishes control
envelopes to a running worker's pull socket, and inspects the configured
store profiles.`,
	PersistentPreRunE: persistentPreRun,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config/config.yaml or ./config.yaml)")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		// Commands like send and stores work without config.
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
	}
}

// persistentPreRun wires the logger and, for job commands, the database.
func persistentPreRun(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" {
		return nil
	}

	logger = initLogger()
	log.Logger = *logger

	// Only the job commands talk to Postgres. send and stores do not.
	cmdNeedsDB := cmd.Name() == "crawl" || cmd.Name() == "benchmark" || cmd.Name() == "match"

	if cmdNeedsDB {
		if cfg == nil {
			return fmt.Errorf("config required for %s command but not loaded", cmd.Name())
		}
		if err := initDatabase(); err != nil {
			return fmt.Errorf("database initialization failed: %w", err)
		}
		logger.Info().Msg("Database connected")
	}

	return nil
}

func initLogger() *zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if cfg != nil && cfg.Logging.Level != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			level = parsedLevel
		}
	}

	// Console output by default. JSON only when the config asks for it.
	var output io.Writer
	if cfg != nil && cfg.Logging.Format == "json" {
		output = os.Stdout
	} else {
		noColor := false
		if cfg != nil {
			noColor = cfg.Logging.NoColor
		}
		output = zerolog.ConsoleWriter{Out: os.Stdout, NoColor: noColor}
	}

	cliLog := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &cliLog
}

func initDatabase() error {
	dbURL := config.GetDatabaseURL()
	if dbURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}

	ctx := context.Background()
	if err := database.Init(ctx, database.PoolConfig{
		URL:             dbURL,
		MaxConns:        cfg.Database.MaxConnections,
		MinConns:        cfg.Database.MinConnections,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
	}); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	return nil
}

// newProcessor builds a job processor against the connected database,
// wired the same way the worker wires one.
func newProcessor() *jobs.Processor {
	return jobs.New(jobs.Config{
		Store: repository.New(database.Pool()),
		NewProvider: func() embedding.Provider {
			return embedding.NewHTTPProvider(embedding.HTTPProviderConfig{
				Endpoint:  cfg.Embedding.Endpoint,
				Model:     cfg.Embedding.Model,
				Dimension: cfg.Embedding.Dimension,
				Timeout:   cfg.Embedding.Timeout,
			})
		},
		Retry: retryConfig(cfg.Embedding),
		Fetcher: crawl.FetcherConfig{
			Concurrency:       cfg.Crawl.Concurrency,
			RequestTimeoutSec: int(cfg.Crawl.RequestTimeout / time.Second),
			RequestsPerSecond: cfg.Crawl.RequestsPerSecond,
		},
	})
}

func retryConfig(cfg config.EmbeddingConfig) embedding.RetryConfig {
	retry := embedding.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxRetries = cfg.MaxRetries
	}
	return retry
}

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
