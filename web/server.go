package web

import (
	"context"
	"errors"
	"net/http"

	"proposal-ranker/config"
	"proposal-ranker/web/handlers"
	"proposal-ranker/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services are the pipelines exposed over HTTP.
type Services struct {
	Duplicates   handlers.DuplicateChecker
	Chunks       handlers.ChunkSearcher
	References   handlers.ReferenceSelector
	Solicitation handlers.ContextPrioritizer
	Auth         middleware.Authenticator
}

type Server struct {
	router  *gin.Engine
	limiter *middleware.UserRateLimiter
	logger  *zap.Logger
	config  *config.Config
}

func NewServer(services Services, logger *zap.Logger, cfg *config.Config) *Server {
	// Set Gin mode based on environment
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))

	server := &Server{
		router: router,
		limiter: middleware.NewUserRateLimiter(middleware.RateLimiterConfig{
			RequestsPerMinute: cfg.RateLimitRequestsPerMin,
			BurstSize:         cfg.RateLimitBurstSize,
			CleanupInterval:   cfg.RateLimitCleanupInterval,
		}, logger),
		logger: logger,
		config: cfg,
	}

	server.setupRoutes(services)
	return server
}

func (s *Server) setupRoutes(services Services) {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	duplicateHandler := handlers.NewDuplicateHandler(services.Duplicates, s.logger)
	chunkHandler := handlers.NewChunkHandler(services.Chunks, s.logger)
	referenceHandler := handlers.NewReferenceHandler(services.References, s.logger)
	solicitationHandler := handlers.NewSolicitationHandler(services.Solicitation, s.logger)

	api := s.router.Group("/api")
	api.Use(
		middleware.RequireAuth(services.Auth, s.logger),
		middleware.RateLimitMiddleware(s.limiter),
		middleware.RequestTimeout(s.config.RequestTimeout),
	)
	api.POST("/duplicates/past-performance", duplicateHandler.PastPerformance)
	api.POST("/duplicates/resource", duplicateHandler.Resource)
	api.POST("/chunks/search", chunkHandler.Search)
	api.POST("/references/adaptive", referenceHandler.Adaptive)
	api.POST("/solicitation/context", solicitationHandler.Context)
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases background resources.
func (s *Server) Close() {
	s.limiter.Stop()
}

func (s *Server) Start(ctx context.Context, addr string) error {
	s.logger.Info("Starting web server", zap.String("address", addr))
	defer s.Close()

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down web server")
	return srv.Shutdown(context.Background())
}
