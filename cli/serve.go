package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"proposal-ranker/chunks"
	"proposal-ranker/config"
	"proposal-ranker/database"
	"proposal-ranker/dedupe"
	"proposal-ranker/entities"
	"proposal-ranker/references"
	"proposal-ranker/solicitation"
	"proposal-ranker/web"
	"proposal-ranker/web/middleware"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the ranking API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Initialize logger with default level to load config
	tempLogger, err := config.InitLogger("info")
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Load config (which includes log level setting)
	cfg := config.Load(tempLogger, cfgFile)

	// Re-initialize logger with configured level
	logger, err := config.InitLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to re-initialize logger with configured level: %w", err)
	}
	defer config.Cleanup()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.AuthJWTSecret == "" {
		logger.Warn("AUTH_JWT_SECRET not set, all API requests will be rejected")
	}

	server := web.NewServer(buildServices(store, cfg, logger), logger, cfg)

	port := fmt.Sprintf(":%d", cfg.WebPort)
	logger.Info("Starting proposal ranker", zap.String("port", port))
	return server.Start(ctx, port)
}

// openStore connects to Postgres when DATABASE_URL is set and otherwise
// serves the fixtures file from memory.
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (entities.Store, func(), error) {
	if cfg.DatabaseURL != "" {
		pg, err := database.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		logger.Info("Using Postgres entity store")
		return pg, pg.Close, nil
	}

	if cfg.FixturesPath != "" {
		mem, err := entities.LoadFixtures(cfg.FixturesPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using fixtures entity store", zap.String("path", cfg.FixturesPath))
		return mem, func() {}, nil
	}

	logger.Warn("Neither DATABASE_URL nor FIXTURES_PATH set, serving an empty entity store")
	return entities.NewMemoryStore(entities.Fixtures{}), func() {}, nil
}

func buildServices(store entities.Store, cfg *config.Config, logger *zap.Logger) web.Services {
	return web.Services{
		Duplicates: dedupe.NewDetector(store, dedupe.Config{
			PastPerformance: cfg.Scoring.PastPerformance,
			Resource:        cfg.Scoring.Resource,
			CandidateLimit:  cfg.CandidateLimit,
		}, logger.Named("dedupe")),
		Chunks: chunks.NewRanker(store, chunks.Config{
			Weights:         cfg.Scoring.Chunks,
			CandidateLimit:  cfg.CandidateLimit,
			ParentCacheSize: cfg.ParentCacheSize,
		}, logger.Named("chunks")),
		References: references.NewSelector(store, references.Config{
			Weights:        cfg.Scoring.References,
			CandidateLimit: cfg.CandidateLimit,
		}, logger.Named("references")),
		Solicitation: solicitation.NewPrioritizer(store, solicitation.Config{
			Weights:        cfg.Scoring.Solicitation,
			CandidateLimit: cfg.CandidateLimit,
		}, logger.Named("solicitation")),
		Auth: middleware.NewJWTAuthenticator(cfg.AuthJWTSecret),
	}
}
