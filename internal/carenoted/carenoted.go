package carenoted

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ameistad/carenote/internal/aiclient"
	"github.com/ameistad/carenote/internal/api"
	"github.com/ameistad/carenote/internal/config"
	"github.com/ameistad/carenote/internal/constants"
	"github.com/ameistad/carenote/internal/db"
	"github.com/ameistad/carenote/internal/evaluation"
	"github.com/ameistad/carenote/internal/logging"
	"github.com/ameistad/carenote/internal/scheduler"
	"github.com/ameistad/carenote/internal/weekly"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	// ConfigPath points at the server config. Empty means the default location.
	ConfigPath string
	Debug      bool
}

// RunWithSignals runs the daemon until SIGINT or SIGTERM.
func RunWithSignals(opts Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return Run(ctx, opts)
}

// Run loads the config, opens the database and serves the API and the scheduler until ctx is done.
func Run(ctx context.Context, opts Options) error {
	config.LoadEnvFiles()

	configPath := opts.ConfigPath
	if configPath == "" {
		path, err := config.ServerConfigFilePath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
		configPath = path
	}
	loaded, err := config.LoadServerConfig(configPath)
	if err != nil {
		return err
	}
	cfg, err := loaded.Normalize()
	if err != nil {
		return err
	}
	if opts.Debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	logLevel, err := logging.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logBroker := logging.NewLogBroker()
	defer logBroker.Close()
	logger := logging.NewLogger(logLevel, logBroker)
	slog.SetDefault(logger)

	dataDir, err := config.EnsureDataDirs(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create data directories: %w", err)
	}

	store, err := db.New(dataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	clientOpts := []aiclient.Option{
		aiclient.WithLogger(logger),
		aiclient.WithMaxAttempts(cfg.AI.MaxAttempts),
		aiclient.WithHTTPClient(&http.Client{Timeout: cfg.AI.Timeout}),
	}
	if cfg.AI.Model != "" {
		clientOpts = append(clientOpts, aiclient.WithModel(cfg.AI.Model))
	}
	if cfg.AI.BaseURL != "" {
		clientOpts = append(clientOpts, aiclient.WithBaseURL(cfg.AI.BaseURL))
	}
	resolver := aiclient.NewResolver(cfg.AI.Provider, store, clientOpts...)
	if _, err := resolver.Client(); err != nil {
		logger.Warn("AI provider is not configured yet, evaluations will fail until a key is set",
			"provider", cfg.AI.Provider, "error", err)
	}

	evaluator := evaluation.NewService(store, resolver, logger, evaluation.WithTemperature(cfg.AI.TemperatureOrDefault()))
	weeklyService := weekly.NewService(store, resolver, logger, weekly.WithTemperature(cfg.AI.TemperatureOrDefault()))

	sched, err := scheduler.New(scheduler.Config{
		RefreshSchedule: cfg.Weekly.RefreshSchedule,
		RetentionDays:   cfg.Logs.RetentionDays,
		RetentionDirs:   []string{config.UploadsDir(dataDir), config.LogsDir(dataDir)},
	}, weeklyService, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	apiToken := os.Getenv(constants.EnvVarAPIToken)
	if apiToken == "" {
		logger.Warn("No API token configured, all /v1 routes will answer 401", "env", constants.EnvVarAPIToken)
	}
	server := api.NewServer(api.Options{
		APIToken:   apiToken,
		UploadsDir: config.UploadsDir(dataDir),
		LogLevel:   logLevel,
		RecordYear: cfg.Parser.RecordYear,
		DB:         store,
		Evaluator:  evaluator,
		Weekly:     weeklyService,
		LogBroker:  logBroker,
		Logger:     logger,
	})

	logger.Info("carenoted started", "version", constants.Version, "address", cfg.Address(), "dataDir", dataDir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx, cfg.Address())
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("carenoted stopped")
	return nil
}
