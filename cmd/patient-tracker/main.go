package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/cedar/patient-tracker/internal/config"
	"github.com/cedar/patient-tracker/internal/domain/patient"
	"github.com/cedar/patient-tracker/internal/platform/db"
	"github.com/cedar/patient-tracker/internal/platform/middleware"
	"github.com/cedar/patient-tracker/internal/platform/validation"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "0.1.0"

const apiPrefix = "/api"

func main() {
	rootCmd := &cobra.Command{
		Use:   "patient-tracker",
		Short: "Cedar Patient Tracker API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient tracker API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// store bundles the patient repository with its health probe and closer.
type store struct {
	repo   patient.PatientRepository
	health db.Health
	close  func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:   patient.NewPatientRepoPG(pool),
			health: db.PGHealth(pool),
			close:  pool.Close,
		}, nil
	default:
		sqlDB, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:   patient.NewPatientRepoSQLite(sqlDB),
			health: db.SQLiteHealth(sqlDB),
			close:  func() { sqlDB.Close() },
		}, nil
	}
}

func runServer() error {
	logger := newLogger(false)
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load config")
		return err
	}
	if cfg.IsDev() {
		logger = newLogger(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("driver", cfg.DBDriver).Msg("failed to open store")
		return err
	}
	defer st.close()

	if err := st.repo.EnsureSchema(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to prepare schema")
		return err
	}
	logger.Info().Str("driver", cfg.DBDriver).Msg("connected to database")

	e := newServer(cfg, logger, st)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("version", version).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}

// newServer wires middleware, the patient API, health and optional static
// assets onto a fresh echo instance.
func newServer(cfg *config.Config, logger zerolog.Logger, st *store) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(apiPrefix + "/"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health", db.HealthHandler(st.health, version))

	api := e.Group(apiPrefix)
	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	api.Use(middleware.RateLimit(rl))
	api.Use(middleware.BodyLimit(cfg.BodyLimit))
	api.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	svc := patient.NewService(st.repo)
	h := patient.NewHandler(svc)
	h.SetMaxLimit(cfg.MaxPageLimit)
	h.RegisterRoutes(api)

	if cfg.StaticDir != "" {
		e.Static("/static", cfg.StaticDir)
		e.File("/", filepath.Join(cfg.StaticDir, "index.html"))
	}

	return e
}
