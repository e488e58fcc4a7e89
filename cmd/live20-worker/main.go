package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantarena/arena/internal/bootstrap"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/config"
	"github.com/quantarena/arena/internal/live20worker"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/queue"
	"github.com/quantarena/arena/internal/types"
	"github.com/urfave/cli/v3"
)

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

	runQueue := queue.New(st.Pool(), "live20_runs", cfg.StaleThreshold)
	sweeper := queue.NewSweeper(cfg.SweepInterval, log, runQueue)

	if err := sweeper.ResetStranded(ctx); err != nil {
		return err
	}

	sweeper.Start()
	defer sweeper.Stop()

	loader := queue.Loader[types.Live20Run](st.GetLive20Run)
	processor := queue.Processor[types.Live20Run](
		live20worker.NewProcessor(st, prices, runQueue, cfg.MarketDataProvider, log).Process,
	)

	worker := queue.NewWorker(runQueue, "live20", loader, processor, cfg.WorkerPollInterval, cfg.HeartbeatInterval, log)

	log.Info("live20 worker started")
	worker.Run(ctx)
	log.Info("live20 worker stopped")

	return nil
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
		Name:   "live20-worker",
		Usage:  "claim and run live20 screening jobs until stopped",
		Action: runAction,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
