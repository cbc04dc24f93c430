package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/trogers1052/grocery-inflation/internal/api"
	"github.com/trogers1052/grocery-inflation/internal/config"
	"github.com/trogers1052/grocery-inflation/internal/database"
	"github.com/trogers1052/grocery-inflation/internal/kafka"
	"github.com/trogers1052/grocery-inflation/internal/memstore"
	"github.com/trogers1052/grocery-inflation/internal/pricing"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the inflation API and ingest scraped prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			memory, _ := cmd.Flags().GetBool("memory")
			return serve(config.Load(), memory)
		},
	}

	cmd.Flags().Bool("memory", false, "Keep data in memory instead of PostgreSQL")

	return cmd
}

func serve(cfg *config.Config, memory bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store servingStore
	if memory {
		log.Println("Using in-memory store")
		store = memstore.New()
	} else {
		db, err := database.New(cfg.Database.ConnectionString())
		if err != nil {
			return err
		}
		defer db.Close()
		store = db
	}

	aggregator, err := pricing.AggregatorByName(cfg.Inflation.Aggregator)
	if err != nil {
		return err
	}

	var resultCache pricing.ResultCache
	var invalidator kafka.Invalidator
	inflationCache, closeCache := openCache(cfg.Redis)
	defer closeCache()
	if inflationCache != nil {
		resultCache = inflationCache
		invalidator = inflationCache
	}

	service := pricing.NewService(store, aggregator, resultCache)
	handler := api.NewHandler(store, service, invalidator)

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()

		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ScrapeTopic, cfg.Kafka.GroupID, store, invalidator, producer)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				log.Printf("Kafka consumer stopped: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      api.SetupRoutes(handler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s (aggregator: %s)", srv.Addr, aggregator.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
