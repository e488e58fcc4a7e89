package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/api"
	"github.com/quantarena/arena/internal/bootstrap"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/config"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/queue"
	"github.com/quantarena/arena/internal/types"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const shutdownGracePeriod = 10 * time.Second

func runAction(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := bootstrap.NewStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	providers := bootstrap.NewProviderRegistry(cfg)
	prices := cache.New(st, providers, cfg.CacheL1Size, cfg.CacheL1TTL, cfg.MarketHoursTTL, log)

	simQueue := queue.New(st.Pool(), "arena_simulations", cfg.StaleThreshold)
	runQueue := queue.New(st.Pool(), "live20_runs", cfg.StaleThreshold)

	agents := agent.NewRegistry(agent.NewLive20(types.AgentConfig{}))
	portfolios := agent.NewPortfolioRegistry()

	server := api.NewServer(st, prices, simQueue, runQueue, agents, portfolios, cfg.MarketDataProvider, log)

	httpServer := &http.Server{
		Addr:    cfg.APIAddr,
		Handler: server.Handler(),
	}

	errCh := make(chan error, 1)

	go func() {
		log.Info("api server listening", zap.String("addr", cfg.APIAddr))

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	cmd := &cli.Command{
		Name:   "api-server",
		Usage:  "serve the arena simulation and live20 screening HTTP API",
		Action: runAction,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
