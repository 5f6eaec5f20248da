package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/ender-portal/internal/api"
	"github.com/isdelr/ender-portal/internal/auth"
	"github.com/isdelr/ender-portal/internal/config"
	"github.com/isdelr/ender-portal/internal/database"
	"github.com/isdelr/ender-portal/internal/logger"
	"github.com/isdelr/ender-portal/internal/monitoring"
	"github.com/isdelr/ender-portal/internal/services"
	"github.com/isdelr/ender-portal/internal/store"
	"github.com/isdelr/ender-portal/internal/web"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel)

	if cfg.SessionSecret == config.DevSessionSecret {
		log.Warn().Msg("SESSION_SECRET is not set, using the development secret")
	}

	// Set up the user store
	userStore, db, err := openStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Failed to open user store")
	}
	if db != nil {
		defer db.Close()
	}

	pages, err := web.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load templates")
	}

	// Set up services
	userService := services.NewUserService(userStore)
	backupService := services.NewBackupService(userStore, cfg.BackupPath, cfg.BackupKeep)
	sessions := auth.NewSessionManager(cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())

	// Set up and run the background backup scheduler
	var scheduler *monitoring.Scheduler
	if cfg.BackupSchedule != "" {
		scheduler, err = monitoring.NewScheduler(backupService, cfg.BackupSchedule)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup scheduler")
		}
		scheduler.Run()

		event := log.Info().Time("next", scheduler.Next())
		if existing, err := backupService.ListBackups(); err != nil {
			log.Warn().Err(err).Str("path", cfg.BackupPath).Msg("Failed to list existing backups")
		} else if len(existing) > 0 {
			event = event.Int("existing", len(existing)).Time("latest", existing[0].CreatedAt)
		}
		event.Msg("Backups scheduled")
	}

	// Set up router
	router := api.NewRouter(userService, sessions, pages, cfg.AllowedOrigins)

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       time.Minute,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("store", cfg.StoreDriver).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}

// openStore returns the configured user store. The *sql.DB is non-nil only
// for the SQLite driver and must be closed by the caller.
func openStore(cfg *config.Config) (store.UserStore, *sql.DB, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		db, err := database.New(cfg.DatabasePath)
		if err != nil {
			return nil, nil, err
		}
		if err := database.Migrate(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
		return store.NewSQLiteStore(db), db, nil
	default:
		s := store.NewJSONStore(cfg.DataFile)
		log.Info().Str("path", s.Path()).Msg("Using JSON user store")
		return s, nil, nil
	}
}
