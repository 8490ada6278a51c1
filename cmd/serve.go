package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/api"
	"example.com/freightlink/services/marketplace/internal/cache"
	"example.com/freightlink/services/marketplace/internal/clients"
	"example.com/freightlink/services/marketplace/internal/db"
	"example.com/freightlink/services/marketplace/internal/messagebus"
	"example.com/freightlink/services/marketplace/internal/repository"
	"example.com/freightlink/services/marketplace/internal/search"
	"example.com/freightlink/services/marketplace/internal/service"
	"example.com/freightlink/services/marketplace/internal/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}

		logger := newLogger(cfg.Logging)

		nrApp, err := tracing.InitNewRelic(&cfg.NewRelic)
		if err != nil {
			logger.Warnf("Failed to initialize New Relic: %v", err)
		}

		dbConn, err := db.Connect(&cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		if err := db.Migrate(dbConn); err != nil {
			logger.Fatalf("Failed to run database migrations: %v", err)
		}

		cacheClient, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			logger.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer cacheClient.Close()

		busClient, err := messagebus.NewClient(&cfg.MessageBus)
		if err != nil {
			logger.Fatalf("Failed to initialize message bus: %v", err)
		}

		searchClient, err := search.NewClient(&cfg.Elasticsearch)
		if err != nil {
			logger.Fatalf("Failed to initialize Elasticsearch: %v", err)
		}

		// Repositories
		loadRepo := repository.NewLoadRepository(dbConn)
		truckRepo := repository.NewTruckRepository(dbConn)
		proposalRepo := repository.NewProposalRepository(dbConn)
		tripRepo := repository.NewTripRepository(dbConn)
		eventRepo := repository.NewLoadEventRepository(dbConn)
		txManager := repository.NewTxManager(dbConn)

		// Collaborator clients
		iamClient := clients.NewIAMClient(cfg.Collaborators.IAMURL, cfg.Collaborators.Timeout, logger)
		walletClient := clients.NewWalletClient(cfg.Collaborators.WalletURL, cfg.Collaborators.Timeout, logger)
		trackingClient := clients.NewTrackingClient(cfg.Collaborators.TrackingURL, cfg.Collaborators.Timeout, logger)

		var distanceProvider service.DistanceProvider
		if cfg.Collaborators.DistanceURL != "" {
			distanceProvider = clients.NewDistanceClient(cfg.Collaborators.DistanceURL, cfg.Collaborators.Timeout)
		}

		notifier := service.NewBusNotifier(busClient, cfg.MessageBus.NotificationQueue)

		// Services
		matchingService := service.NewMatchingService(loadRepo, truckRepo, cacheClient, distanceProvider, cfg.Matching, logger)
		assignmentService := service.NewAssignmentService(txManager, tripRepo, walletClient, trackingClient, notifier, cacheClient, searchClient, cfg.Server, logger)
		proposalService := service.NewProposalService(loadRepo, truckRepo, proposalRepo, eventRepo, iamClient, notifier, assignmentService, cfg.Matching, logger)
		loadService := service.NewLoadService(loadRepo, eventRepo, txManager, cacheClient, searchClient, busClient, notifier, cfg.MessageBus, logger)
		truckService := service.NewTruckService(truckRepo, cacheClient, searchClient, logger)
		tripService := service.NewTripService(tripRepo)

		server := api.NewServer(cfg.Server, api.Services{
			Loads:     loadService,
			Trucks:    truckService,
			Matching:  matchingService,
			Proposals: proposalService,
			Trips:     tripService,
		}, nrApp, logger)

		go func() {
			if err := server.Start(); err != nil {
				logger.Fatalf("Failed to start server: %v", err)
			}
		}()

		// Wait for interrupt signal
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Errorf("Server forced to shutdown: %v", err)
		}
		if err := busClient.Close(ctx); err != nil {
			logger.Errorf("Failed to close message bus: %v", err)
		}

		logger.Info("Server shut down successfully")
	},
}
