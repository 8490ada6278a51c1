package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/db"
	"example.com/freightlink/services/marketplace/internal/messagebus"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/search"
	"example.com/freightlink/services/marketplace/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker to feed the search index from load events, reindex the open marketplace, and sweep stale truck assignments`,
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	dbConn, err := db.Connect(&cfg.Database)
	if err != nil {
		return err
	}

	busClient, err := messagebus.NewClient(&cfg.MessageBus)
	if err != nil {
		return err
	}

	searchClient, err := search.NewClient(&cfg.Elasticsearch)
	if err != nil {
		return err
	}

	loadRepo := repository.NewLoadRepository(dbConn)
	truckRepo := repository.NewTruckRepository(dbConn)

	w := worker.New(loadRepo, truckRepo, searchClient, busClient, cfg.Worker, cfg.MessageBus, logger)

	// Drain load events into the search index
	g.Go(func() error {
		return w.ConsumeLoadEvents(ctx)
	})

	// Periodic reindex and stale-assignment sweep
	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(cfg.Worker.ReindexInterval),
			gocron.NewTask(func() {
				if err := w.ReindexActive(ctx); err != nil {
					logger.WithError(err).Error("Reindex pass failed")
				}
				if err := w.SweepStaleAssignments(ctx); err != nil {
					logger.WithError(err).Error("Stale assignment sweep failed")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Worker error")
		return err
	}

	logger.Info("Worker shutting down gracefully")
	return nil
}
