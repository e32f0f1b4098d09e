package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HarmlessHarm/AoC-LeaderBot/internal/aoc"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/bot"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/config"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/metrics"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/notify"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/poller"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/server"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/state"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/store"
	"github.com/HarmlessHarm/AoC-LeaderBot/internal/telegram"
)

var (
	cfgFile string
	verbose bool
)

func setupLogger(verbose bool, logCfg *config.LoggingConfig) (*zap.Logger, error) {
	var zapConfig zap.Config
	if verbose {
		zapConfig = zap.NewDevelopmentConfig()
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	}

	// Set log level from config
	if logCfg != nil && logCfg.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(logCfg.Level)); err == nil {
			zapConfig.Level = zap.NewAtomicLevelAt(level)
		}
	}

	return zapConfig.Build()
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "aocbot",
		Short: "Telegram bot that monitors Advent of Code private leaderboards",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("AOCBOT_CONFIG"), "config file path (or set AOCBOT_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := setupLogger(verbose, &cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("databasePath", cfg.Database.Path),
		zap.String("stateDir", cfg.State.Directory),
		zap.Int("defaultIntervalSec", cfg.Poll.DefaultIntervalSec),
		zap.Bool("serverEnabled", cfg.Server.Enabled),
		zap.String("serverAddr", cfg.Server.Addr),
	)

	db, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.Error("opening config store failed", zap.Error(err))
		return err
	}
	defer db.Close()

	states := state.NewStore(cfg.State.Directory, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	api := telegram.NewBotAPI(cfg.Telegram.Token, telegram.Options{}, logger)
	notifier := notify.NewClient(api, logger)
	sink := notify.NewEventSink(notifier, m, logger)

	fetchers := func(chatCfg store.ChatConfig) aoc.Client {
		return aoc.NewClient(chatCfg.SessionCookie, chatCfg.Year, chatCfg.BoardID, aoc.Options{
			Timeout:    time.Duration(cfg.Poll.FetchTimeoutSec) * time.Second,
			RetryCount: cfg.Poll.RetryCount,
			RetryDelay: time.Duration(cfg.Poll.RetryDelaySec) * time.Second,
		}, logger)
	}

	mgr := poller.NewManager(poller.FetcherFactory(fetchers), states, db, sink, m, logger)
	defer mgr.Stop()

	// Resume monitoring for every enabled config.
	enabled, err := db.GetEnabled(ctx)
	if err != nil {
		logger.Error("loading enabled configs failed", zap.Error(err))
		return err
	}
	for _, chatCfg := range enabled {
		mgr.Add(chatCfg)
	}
	logger.Info("monitoring resumed", zap.Int("tasks", len(enabled)))

	// Status HTTP server (optional)
	var httpSrv *http.Server
	if cfg.Server.Enabled {
		httpSrv = &http.Server{
			Addr:    cfg.Server.Addr,
			Handler: server.NewRouter(mgr, registry, logger),
		}
		go func() {
			logger.Info("status server listening", zap.String("addr", cfg.Server.Addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("status server failed", zap.Error(err))
			}
		}()
	}

	// Command front end; blocks until shutdown.
	frontend := bot.New(api, db, mgr, states, bot.FetcherFactory(fetchers), bot.Options{
		DefaultIntervalSec: cfg.Poll.DefaultIntervalSec,
	}, logger)

	runErr := frontend.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("bot loop failed", zap.Error(runErr))
	}

	logger.Info("shutting down")
	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
