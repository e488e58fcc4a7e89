package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/arenaworker"
	"github.com/quantarena/arena/internal/bootstrap"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/config"
	"github.com/quantarena/arena/internal/engine"
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

	agents := agent.NewRegistry(agent.NewLive20(types.AgentConfig{}))
	portfolios := agent.NewPortfolioRegistry()
	eng := engine.New(st, prices, agents, portfolios, nil, cfg.MarketDataProvider, cfg.ReportDir, log)

	simQueue := queue.New(st.Pool(), "arena_simulations", cfg.StaleThreshold)
	sweeper := queue.NewSweeper(cfg.SweepInterval, log, simQueue)

	if err := sweeper.ResetStranded(ctx); err != nil {
		return err
	}

	sweeper.Start()
	defer sweeper.Stop()

	loader := queue.Loader[types.ArenaSimulation](st.GetSimulation)
	processor := queue.Processor[types.ArenaSimulation](arenaworker.NewProcessor(eng, simQueue).Process)

	worker := queue.NewWorker(simQueue, "arena", loader, processor, cfg.WorkerPollInterval, cfg.HeartbeatInterval, log)

	log.Info("arena worker started")
	worker.Run(ctx)
	log.Info("arena worker stopped")

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
		Name:   "arena-worker",
		Usage:  "claim and run arena simulation jobs until stopped",
		Action: runAction,
	}

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
