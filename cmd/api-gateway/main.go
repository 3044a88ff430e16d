package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-timetable-api/api/swagger"
	"github.com/noah-isme/sma-timetable-api/internal/handler"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	"github.com/noah-isme/sma-timetable-api/pkg/cache"
	"github.com/noah-isme/sma-timetable-api/pkg/config"
	"github.com/noah-isme/sma-timetable-api/pkg/database"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
	"github.com/noah-isme/sma-timetable-api/pkg/jobs"
	"github.com/noah-isme/sma-timetable-api/pkg/logger"
	"github.com/noah-isme/sma-timetable-api/pkg/storage"
)

// @title SMA Timetable API
// @version 1.0.0
// @description School timetable editing, generation, conflict detection and export.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.ViewCache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, view cache disabled", "error", err)
		}
	}

	app, err := buildApp(ctx, cfg, db, redisClient, logr)
	if err != nil {
		logr.Sugar().Fatalw("failed to build application", "error", err)
	}
	defer app.shutdown()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, app, logr),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown incomplete", "error", err)
	}
	logr.Info("server stopped")
}

type application struct {
	metrics    *service.MetricsService
	auth       *service.AuthService
	timetables *handler.TimetableHandler
	generation *handler.GenerationHandler
	views      *handler.ViewHandler
	calendar   *handler.CalendarHandler
	metricsH   *handler.MetricsHandler

	db        *sqlx.DB
	queue     *jobs.Queue
	scheduler *cron.Cron
	cache     *repository.CacheRepository
}

func buildApp(ctx context.Context, cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) (*application, error) {
	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	var cacheBackend service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		cacheBackend = cacheRepo
	}
	cacheSvc := service.NewCacheService(cacheBackend, metrics, cfg.ViewCache.TTL, logr, cfg.ViewCache.Enabled)

	timetableRepo := repository.NewTimetableRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)

	calendarSvc := service.NewCalendarService(calendarRepo, timetableRepo, validate, logr)
	timetableSvc := service.NewTimetableService(
		timetableRepo,
		rosterRepo,
		calendarSvc,
		db,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.TimetableConfig{DefaultRules: models.DetectionRules{
			MaxPeriodsPerDayPerTeacher: cfg.Scheduler.MaxPeriodsPerDayPerTeacher,
			SubjectTolerance:           cfg.Scheduler.SubjectTolerance,
		}},
	)
	generatorSvc := service.NewScheduleGeneratorService(
		timetableSvc,
		rosterRepo,
		calendarSvc,
		metrics,
		validate,
		logr,
		service.ScheduleGeneratorConfig{
			RetryBudget:                cfg.Scheduler.RetryBudget,
			Timeout:                    cfg.Scheduler.GenerationTimeout,
			MaxPeriodsPerDayPerTeacher: cfg.Scheduler.MaxPeriodsPerDayPerTeacher,
			SubjectTolerance:           cfg.Scheduler.SubjectTolerance,
		},
	)
	jobSvc := service.NewGenerationJobService(generatorSvc, nil, metrics, validate, logr, service.GenerationJobConfig{ResultTTL: cfg.Scheduler.JobTTL})

	app := &application{metrics: metrics, cache: cacheRepo, db: db}
	if cfg.Scheduler.Enabled {
		app.queue = jobs.NewQueue("timetable-generation", jobSvc.Handle, jobs.QueueConfig{
			Workers: cfg.Scheduler.JobWorkers,
			OnFinish: func(job jobs.Job, err error, took time.Duration) {
				logr.Debug("generation job finished", zap.String("job_id", job.ID), zap.Duration("took", took), zap.Error(err))
			},
			Logger: logr,
		})
		metrics.RegisterQueueDepth("timetable-generation", app.queue.Depth)
		app.queue.Start(ctx)
		jobSvc.SetQueue(app.queue)
	}

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	orientation, err := export.ParseOrientation(cfg.Exports.DefaultOrientation, export.OrientationLandscape)
	if err != nil {
		return nil, err
	}
	pageSize, err := export.ParsePageSize(cfg.Exports.DefaultPageSize, export.PageSizeA4)
	if err != nil {
		return nil, err
	}
	exportSvc := service.NewExportService(timetableSvc, rosterRepo, calendarSvc, cacheSvc, files, signer, validate, logr, service.ExportConfig{
		APIPrefix:          cfg.APIPrefix,
		ResultTTL:          cfg.Exports.SignedURLTTL,
		CacheTTL:           cfg.ViewCache.TTL,
		SchoolName:         cfg.Exports.SchoolName,
		DefaultOrientation: orientation,
		DefaultPageSize:    pageSize,
	})
	viewSvc := service.NewViewService(timetableSvc, calendarSvc, cacheSvc, cfg.ViewCache.TTL, logr)

	app.scheduler = cron.New()
	if _, err := app.scheduler.AddFunc(cfg.Exports.CleanupSchedule, func() {
		if _, err := exportSvc.Cleanup(0); err != nil {
			logr.Warn("export cleanup failed", zap.Error(err))
		}
		jobSvc.Prune()
	}); err != nil {
		return nil, fmt.Errorf("invalid EXPORTS_CLEANUP_SCHEDULE: %w", err)
	}
	app.scheduler.Start()

	app.auth = service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		Issuer:            cfg.JWT.Issuer,
		Audience:          cfg.JWT.Audience,
	})
	app.timetables = handler.NewTimetableHandler(timetableSvc)
	app.generation = handler.NewGenerationHandler(generatorSvc, jobSvc)
	app.views = handler.NewViewHandler(viewSvc, exportSvc)
	app.calendar = handler.NewCalendarHandler(calendarSvc)
	app.metricsH = handler.NewMetricsHandler(metrics)
	return app, nil
}

func (a *application) shutdown() {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}
	if a.queue != nil {
		a.queue.Stop()
	}
	if a.cache != nil {
		_ = a.cache.Close()
	}
}
