package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/theblitlabs/tinyml-runner/internal/api"
	"github.com/theblitlabs/tinyml-runner/internal/api/handlers"
	"github.com/theblitlabs/tinyml-runner/internal/config"
	"github.com/theblitlabs/tinyml-runner/internal/database"
	"github.com/theblitlabs/tinyml-runner/internal/database/migrations"
	"github.com/theblitlabs/tinyml-runner/internal/database/repositories"
	"github.com/theblitlabs/tinyml-runner/internal/execution/trainer"
	"github.com/theblitlabs/tinyml-runner/internal/monitoring/health"
	"github.com/theblitlabs/tinyml-runner/internal/services"
	"github.com/theblitlabs/tinyml-runner/internal/storage"
	"github.com/theblitlabs/tinyml-runner/internal/telemetry"
	"github.com/theblitlabs/tinyml-runner/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

type Server struct {
	cfg               *config.Config
	httpServer        *http.Server
	db                *sqlx.DB
	health            *health.Checker
	shutdownTelemetry func(context.Context) error
}

// New wires the job dispatcher behind the HTTP API. Jobs are recorded in
// postgres when database.url is set and in memory otherwise.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	log := logger.WithComponent("server")

	shutdownTelemetry, err := telemetry.InitTelemetry(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	s := &Server{cfg: cfg, shutdownTelemetry: shutdownTelemetry}

	var repo services.JobRepository
	if cfg.Database.URL != "" {
		db, err := database.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx, db, migrations.Up); err != nil {
			db.Close()
			return nil, err
		}
		s.db = db
		repo = repositories.NewJobRepository(db)
		log.Info().Msg("Recording training jobs in postgres")
	} else {
		repo = repositories.NewMemoryJobRepository()
		log.Info().Msg("No database configured, recording training jobs in memory")
	}

	workspace, err := storage.NewWorkspace(cfg.Storage)
	if err != nil {
		s.close()
		return nil, err
	}

	runner, err := trainer.New(cfg.Trainer)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create trainer runtime: %w", err)
	}

	archiver, err := storage.NewIPFSArchiver(cfg.IPFS)
	if err != nil {
		s.close()
		return nil, err
	}

	s.health = health.NewChecker(5 * time.Second)
	s.health.Register("trainer", health.Program(cfg.Trainer.Binary))
	s.health.Register("predictor", health.Program(cfg.Predictor.Binary))
	s.health.Register("workspace", health.Directory(workspace.Root()))
	if s.db != nil {
		s.health.Register("database", health.Database(s.db))
	}
	if dr, ok := runner.(*trainer.DockerRunner); ok {
		s.health.Register("docker", dr.Ping)
	}

	training := services.NewTrainingService(cfg.Trainer, workspace, runner, repo, archiver)
	prediction := services.NewPredictionService(cfg.Predictor, cfg.Trainer.WeightsFile, workspace, runner, repo)

	router := api.NewRouter(
		handlers.NewTrainingHandler(training, cfg.Server.MaxBodyBytes),
		handlers.NewPredictionHandler(prediction, cfg.Server.MaxBodyBytes),
		api.RouterConfig{
			Endpoint:  cfg.Server.Endpoint,
			JWTSecret: cfg.Auth.JWTSecret,
			Health:    handlers.NewHealthHandler(s.health),
		},
	)

	s.httpServer = &http.Server{
		Addr:         Addr(cfg.Server),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().
		Str("workspace", workspace.Root()).
		Str("runtime", cfg.Trainer.Runtime).
		Bool("ipfs", archiver != nil).
		Msg("Server initialized")

	return s, nil
}

func Addr(cfg config.ServerConfig) string {
	return net.JoinHostPort(cfg.Host, cfg.Port)
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// VerifyPortAvailable checks that addr can be bound before the server starts.
func VerifyPortAvailable(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("address %s is not available: %w", addr, err)
	}
	return ln.Close()
}

func (s *Server) Start() error {
	log := logger.WithComponent("server")
	s.health.Start(context.Background(), s.cfg.Server.HealthInterval)
	log.Info().Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop drains in-flight requests, then releases the database and telemetry.
func (s *Server) Stop(ctx context.Context) error {
	log := logger.WithComponent("server")
	log.Info().Msg("Shutting down HTTP server...")

	start := time.Now()
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Msg("Server shutdown deadline exceeded, forcing immediate shutdown")
		}
	} else {
		log.Info().Dur("duration_ms", time.Since(start)).Msg("Server HTTP connections gracefully closed")
	}

	s.close()
	return err
}

func (s *Server) close() {
	log := logger.WithComponent("server")

	if s.health != nil {
		s.health.Stop()
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		} else {
			log.Info().Msg("Database connection closed")
		}
		s.db = nil
	}

	if s.shutdownTelemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.shutdownTelemetry(ctx); err != nil {
			log.Error().Err(err).Msg("Error shutting down telemetry")
		}
		s.shutdownTelemetry = nil
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		s.close()
		return err
	case <-ctx.Done():
		log := logger.WithComponent("server")
		log.Info().Msg("Shutdown signal received, gracefully shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Stop(shutdownCtx)
}
