package main

import (
	"context"
	"log"
	"os"

	"github.com/quantarena/arena/internal/bootstrap"
	"github.com/quantarena/arena/internal/config"
	"github.com/quantarena/arena/internal/logger"
	"github.com/urfave/cli/v3"
)

func runAction(ctx context.Context, _ *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	st, err := bootstrap.NewStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	log.Info("schema migrated")

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "migrate",
		Usage:  "create the price_bars/arena_simulations/live20_runs schema if absent",
		Action: runAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
