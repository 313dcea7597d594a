package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/printshop/backend/internal/config"
	"github.com/printshop/backend/internal/db"
	httpapi "github.com/printshop/backend/internal/http"
	"github.com/printshop/backend/internal/http/handlers"
	"github.com/printshop/backend/internal/models"
	"github.com/printshop/backend/internal/service"
)

// appStore is the request-time handlers.Store plus what startup needs to
// rebuild the scheduler.
type appStore interface {
	handlers.Store
	Close()
	ListEquipment(ctx context.Context) ([]models.Equipment, error)
	LoadAllJobs(ctx context.Context) ([]models.ProductionJob, error)
	LoadStageProgress(ctx context.Context) (map[string][]service.StageState, error)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "production-scheduler").Logger()

	ctx := context.Background()
	var store appStore
	if cfg.DatabaseURL == "" {
		equipment, jobs := db.DemoCatalog(time.Now(), cfg.Location())
		store = db.NewMemoryStore(equipment, jobs)
		logger.Info().Msg("DATABASE_URL not set, using in-memory demo catalog")
	} else {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate db")
		}
		store = pg
	}
	defer store.Close()

	equipment, err := store.ListEquipment(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load equipment")
	}
	jobs, err := store.LoadAllJobs(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load jobs")
	}
	stages, err := store.LoadStageProgress(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load stage progress")
	}

	scheduler := service.NewScheduler(equipment, jobs, time.Now, logger)
	tracker := service.NewTracker(service.DefaultPipeline(), time.Now)
	tracker.Load(stages)
	logger.Info().Int("equipment", len(equipment)).Int("jobs", len(jobs)).Msg("catalog loaded")

	router := httpapi.Router(cfg, store, scheduler, tracker, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
