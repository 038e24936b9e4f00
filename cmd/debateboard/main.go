package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alphabot-ai/debateboard/internal/api"
	"github.com/alphabot-ai/debateboard/internal/clock"
	"github.com/alphabot-ai/debateboard/internal/comments"
	"github.com/alphabot-ai/debateboard/internal/config"
	"github.com/alphabot-ai/debateboard/internal/debate"
	"github.com/alphabot-ai/debateboard/internal/presence"
	"github.com/alphabot-ai/debateboard/internal/ratelimit"
	"github.com/alphabot-ai/debateboard/internal/store"
)

var (
	envFile string

	rootCmd = &cobra.Command{
		Use:   "debateboard",
		Short: "Debate board server",
		Long: `debateboard serves debates with rebuttals, timed voting, threaded
comments and a chat presence feed.`,
		SilenceUsage: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and the auto-close sweeper",
		RunE:  runServe,
	}

	sweepCmd = &cobra.Command{
		Use:   "sweep",
		Short: "Close every debate whose voting window has elapsed, then exit",
		RunE:  runSweep,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.AddCommand(serveCmd, sweepCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger
func setup() (*config.Config, *slog.Logger, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg := config.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func openStore(ctx context.Context, cfg *config.Config) (*store.SQLStore, error) {
	s, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DatabaseDriver, err)
	}
	return s, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	var publisher presence.Publisher = presence.NopPublisher{}
	if cfg.RedisURL != "" {
		p, err := presence.NewRedisPublisher(cfg.RedisURL, cfg.ChatChannelPrefix)
		if err != nil {
			return err
		}
		publisher = p
		logger.Info("chat events published to redis", "prefix", cfg.ChatChannelPrefix)
	}
	defer publisher.Close()

	clk := clock.System{}
	engine := debate.New(s, clk, debate.Options{Window: cfg.VotingWindow, Logger: logger})

	limiter := ratelimit.NewMemoryLimiter()
	limiter.StartCleanup(5*time.Minute, ctx.Done())

	handler := api.NewHandler(api.Deps{
		Store:    s,
		Debates:  engine,
		Comments: comments.New(s, s, clk, logger),
		Hub:      presence.NewHub(presence.NewRegistry(), publisher, clk, logger),
		Limiter:  limiter,
		Clock:    clk,
		Config:   cfg,
		Logger:   logger,
	})

	// Create server with timeouts
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting debateboard", "addr", server.Addr, "driver", cfg.DatabaseDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return debate.NewSweeper(engine, cfg.SweepInterval, logger).Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	s, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	clk := clock.System{}
	engine := debate.New(s, clk, debate.Options{Window: cfg.VotingWindow, Logger: logger})

	res, err := engine.AutoCloseSweep(ctx, clk.Now())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "closed %d debate(s), %d failed\n", len(res.Closed), len(res.Failed))
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d debate(s) could not be closed", len(res.Failed))
	}
	return nil
}
