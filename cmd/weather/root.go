package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"weather-history/internal/archive"
	"weather-history/internal/config"
	"weather-history/internal/index"
	"weather-history/internal/locations"
	"weather-history/internal/models"
	"weather-history/pkg/database"
	"weather-history/pkg/logging"
	"weather-history/pkg/metrics"
)

const version = "1.0.0"

var (
	configPath string
	weatherDir string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "weather",
	Short:         "Weather history data manager",
	Long:          `Manage per-location weather history archives, the location catalog, and the history index.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&weatherDir, "dir", "", "Weather data directory (overrides configuration)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// app bundles the runtime dependencies commands share. The database handle is
// only opened for commands that ask for it.
type app struct {
	cfg     *config.Config
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	dir     archive.Dir
	store   *locations.Store
	db      *database.DB
	ix      *index.Index
}

type appOptions struct {
	createStore bool
	withDB      bool
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger := logging.NewStructuredLogger("weather", version, logging.ParseLevel(cfg.Logging.Level))
	collector := metrics.NewCollector("weather_history", prometheus.DefaultRegisterer)

	if opts.createStore {
		if err := os.MkdirAll(cfg.WeatherDir, 0o755); err != nil {
			return nil, fmt.Errorf("create weather directory: %w", err)
		}
	}
	dir, err := archive.NewDir(cfg.WeatherDir)
	if err != nil {
		return nil, err
	}

	store, err := locations.Open(dir, logger)
	if err != nil {
		var notFound *models.NotFoundError
		if opts.createStore && errors.As(err, &notFound) {
			store, err = locations.Create(dir, logger)
		}
		if err != nil {
			return nil, err
		}
	}

	a := &app{cfg: cfg, logger: logger, metrics: collector, dir: dir, store: store}
	if opts.withDB {
		db, err := database.New(databaseConfig(cfg), logger, collector)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.ix = index.New(db, logger)
	}
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if weatherDir != "" {
		cfg.WeatherDir = weatherDir
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg, nil
}

func databaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Driver:       cfg.Database.Driver,
		Path:         cfg.Database.Path,
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}
}
