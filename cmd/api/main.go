package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/mohsenjasser15-hash/jexam-api/api/swagger"
	"github.com/mohsenjasser15-hash/jexam-api/internal/handler"
	"github.com/mohsenjasser15-hash/jexam-api/internal/middleware"
	"github.com/mohsenjasser15-hash/jexam-api/internal/repository"
	"github.com/mohsenjasser15-hash/jexam-api/internal/service"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/cache"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/config"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/database"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/logger"
	corsmiddleware "github.com/mohsenjasser15-hash/jexam-api/pkg/middleware/cors"
	reqidmiddleware "github.com/mohsenjasser15-hash/jexam-api/pkg/middleware/requestid"
	"github.com/mohsenjasser15-hash/jexam-api/pkg/storage"
)

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// @title JEXAM API
// @version 0.1.0
// @description Classroom management backend with live broadcast sessions
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	uploadStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare upload storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to prepare report storage", "error", err)
	}
	uploadSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	reportSigner := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	videoRepo := repository.NewVideoRepository(db)
	examRepo := repository.NewExamRepository(db)
	forumRepo := repository.NewForumRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)
	sessionRepo := repository.NewSessionRepository(redisClient, logr)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.Enabled)
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "jexam-api",
	})
	classSvc := service.NewClassService(classRepo, enrollmentRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, validate, logr)
	videoSvc := service.NewVideoService(videoRepo, classSvc, uploadStore, uploadSigner, cfg.Uploads.MaxFileSizeBytes, validate, logr)
	examSvc := service.NewExamService(examRepo, classSvc, uploadStore, uploadSigner, validate, logr)
	forumSvc := service.NewForumService(forumRepo, classSvc, validate, logr)
	analyticsSvc := service.NewAnalyticsService(enrollmentRepo, classSvc, service.HashScorer{}, cacheSvc, cfg.Analytics.CacheTTL, logr)
	liveSvc := service.NewLiveService(sessionRepo, classRepo, userRepo, sessionRepo, userRepo, metricsSvc, logr)
	observer := service.NewSessionObserver(cfg.Live, sessionRepo, logr)
	reportSvc := service.NewReportService(reportJobRepo, analyticsSvc, classSvc, reportStore, reportSigner, metricsSvc, service.ReportServiceConfig{
		WorkerConcurrency: cfg.Reports.WorkerConcurrency,
		WorkerRetries:     cfg.Reports.WorkerRetries,
		CleanupInterval:   cfg.Reports.CleanupInterval,
		RetainFor:         cfg.Reports.SignedURLTTL,
	}, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Reports.Enabled {
		reportSvc.Start(ctx)
		defer reportSvc.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Class:      handler.NewClassHandler(classSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Live:       handler.NewLiveHandler(liveSvc, classSvc, observer, logr),
		Video:      handler.NewVideoHandler(videoSvc),
		Exam:       handler.NewExamHandler(examSvc),
		Forum:      handler.NewForumHandler(forumSvc),
		Analytics:  handler.NewAnalyticsHandler(analyticsSvc),
		Report:     handler.NewReportHandler(reportSvc),
		Metrics: handler.NewMetricsHandler(metricsSvc, map[string]handler.Pinger{
			"postgres": db,
			"redis":    redisPinger{client: redisClient},
		}),
	}, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logr.Sugar().Infow("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("forced shutdown", "error", err)
	}
}
