package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/trogers1052/grocery-inflation/internal/backfill"
	"github.com/trogers1052/grocery-inflation/internal/config"
	"github.com/trogers1052/grocery-inflation/internal/database"
	"github.com/trogers1052/grocery-inflation/internal/kafka"
)

func backfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Generate a synthetic weekly price history for every product",
		Long: "Walks backward from each product's earliest price in weekly steps down to the\n" +
			"configured horizon, inserting randomized prices for dates that have none.\n" +
			"The run is a single transaction: on any error nothing is written.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			opts := []backfill.Option{
				backfill.WithWalk(backfill.NewWalk(cfg.Backfill.StepDays, cfg.Backfill.NoisePercent)),
				backfill.WithHorizonDays(cfg.Backfill.HorizonDays),
			}
			if cmd.Flags().Changed("seed") {
				seed, _ := cmd.Flags().GetInt64("seed")
				opts = append(opts, backfill.WithSeed(seed))
			}

			return runBackfill(cfg, opts)
		},
	}

	cmd.Flags().Int64("seed", 0, "Seed for the random walk (default: time based)")

	return cmd
}

func runBackfill(cfg *config.Config, opts []backfill.Option) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return err
	}
	defer db.Close()

	b := backfill.New(backfill.Transactional(db.WithinTx), opts...)
	summary, err := b.Run(ctx)
	if err != nil {
		return err
	}

	if inflationCache, closeCache := openCache(cfg.Redis); inflationCache != nil {
		if err := inflationCache.Invalidate(ctx); err != nil {
			log.Printf("Failed to invalidate inflation cache: %v", err)
		}
		closeCache()
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()
		if err := producer.PublishHistoryBackfilled(ctx, summary); err != nil {
			log.Printf("Failed to publish backfill event: %v", err)
		}
	}

	return nil
}
