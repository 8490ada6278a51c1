package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"example.com/freightlink/services/marketplace/config"
	"example.com/freightlink/services/marketplace/internal/service"
)

// Server represents the HTTP server
type Server struct {
	config     config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	log        *logrus.Logger
}

// Services bundles the domain services the server exposes
type Services struct {
	Loads     service.LoadService
	Trucks    service.TruckService
	Matching  service.MatchingService
	Proposals service.ProposalService
	Trips     service.TripService
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, svcs Services, nrApp *newrelic.Application, log *logrus.Logger) *Server {
	server := &Server{
		config: cfg,
		log:    log,
	}
	server.router = server.setupRouter(svcs, nrApp)
	server.httpServer = &http.Server{
		Addr:         cfg.Address(),
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return server
}

// setupRouter configures the HTTP router
func (s *Server) setupRouter(svcs Services, nrApp *newrelic.Application) *gin.Engine {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}
	registerValidations()

	router := gin.New()
	router.Use(gin.Recovery())
	if nrApp != nil {
		router.Use(nrgin.Middleware(nrApp))
	}
	router.Use(RequestLogger(s.log))

	router.GET("/health", HealthHandler)
	router.GET("/metrics", MetricsHandler)

	v1 := router.Group("/api/v1")
	v1.Use(RequireActor())

	NewLoadsHandler(svcs.Loads, svcs.Matching).RegisterRoutes(v1)
	NewTrucksHandler(svcs.Trucks).RegisterRoutes(v1)
	NewProposalsHandler(svcs.Proposals).RegisterRoutes(v1)
	NewTripsHandler(svcs.Trips).RegisterRoutes(v1)

	return router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.WithField("address", s.config.Address()).Info("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "HTTP server error")
	}
	return nil
}

// Shutdown gracefully stops the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "HTTP server shutdown error")
	}
	return nil
}
