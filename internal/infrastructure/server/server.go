package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	handlers "github.com/GriffinCanCode/onboard/internal/api/http"
	"github.com/GriffinCanCode/onboard/internal/api/middleware"
	"github.com/GriffinCanCode/onboard/internal/devserver"
	"github.com/GriffinCanCode/onboard/internal/domain/flow"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/config"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/logging"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/onboard/internal/infrastructure/tracing"
)

const readHeaderTimeout = 10 * time.Second

// Server wraps the sandbox HTTP server and its dependencies
type Server struct {
	router  *gin.Engine
	backend *devserver.Backend
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics
	http    *http.Server
}

// NewServer loads campaigns and flow fixtures and builds the router. A nil
// logger is created from the logging config.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		var err error
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: cfg.Logging.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}
	dev := cfg.DevServer

	logger.Info("Initializing onboard sandbox",
		zap.String("addr", dev.Addr()),
		zap.String("campaigns", dev.CampaignsFile),
		zap.String("flows", dev.FlowsDir),
	)

	metrics := monitoring.NewMetrics()

	flows, err := devserver.LoadFlows(dev.FlowsDir, flow.NewDecoder(), logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load flows: %w", err)
	}
	catalog, err := devserver.LoadCatalog(dev.CampaignsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaigns: %w", err)
	}
	backend, err := devserver.New(catalog, flows, devserver.Options{
		Logger:  logger.Logger,
		Metrics: metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid campaigns: %w", err)
	}
	logger.Info("Campaigns loaded",
		zap.Int("campaigns", len(catalog.Campaigns)),
		zap.Int("flows", len(flows)),
	)

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracing.New("onboard-sandbox", logger.Logger)))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	h := handlers.NewHandlers(backend, logger.Logger)

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	router.GET("/metrics", metrics.Handler())

	v1 := router.Group("/v1", middleware.APIKey(dev.APIKey))
	if dev.RateLimitEnabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", dev.RequestsPerSecond),
			zap.Int("burst", dev.Burst),
		)
		limit := middleware.DefaultRateLimitConfig()
		limit.RequestsPerSecond = dev.RequestsPerSecond
		limit.Burst = dev.Burst
		v1.Use(middleware.RateLimit(limit))
	}
	v1.POST("/placements/:name/resolve", h.Resolve)
	v1.POST("/completions", h.Completions)
	v1.POST("/events", h.Events)

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		backend: backend,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
		http: &http.Server{
			Addr:              dev.Addr(),
			Handler:           router,
			ReadHeaderTimeout: readHeaderTimeout,
		},
	}, nil
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler { return s.router }

// Backend returns the in-memory backend
func (s *Server) Backend() *devserver.Backend { return s.backend }

// Metrics returns the server's metrics
func (s *Server) Metrics() *monitoring.Metrics { return s.metrics }

// Run serves until Shutdown is called
func (s *Server) Run() error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	err := s.http.Shutdown(ctx)
	_ = s.logger.Sync()
	return err
}
