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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/attachment-portal-api/api/swagger"
	"github.com/noah-isme/attachment-portal-api/internal/handler"
	"github.com/noah-isme/attachment-portal-api/internal/repository"
	"github.com/noah-isme/attachment-portal-api/internal/service"
	"github.com/noah-isme/attachment-portal-api/pkg/broker"
	"github.com/noah-isme/attachment-portal-api/pkg/config"
	"github.com/noah-isme/attachment-portal-api/pkg/database"
	"github.com/noah-isme/attachment-portal-api/pkg/jobs"
	"github.com/noah-isme/attachment-portal-api/pkg/logger"
	"github.com/noah-isme/attachment-portal-api/pkg/notify"
	"github.com/noah-isme/attachment-portal-api/pkg/storage"
)

// @title Attachment Portal API
// @version 1.0.0
// @description Internship attachment placements, NSSF membership and monthly returns for students, host companies and administrators.
// @BasePath /api/v1
// @schemes http https
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}
	if version, err := database.MigrationVersion(db); err == nil {
		logr.Info("database schema ready", zap.Int64("version", version))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = broker.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching and push disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := validator.New()

	mux := notify.NewMux(logr)
	if cfg.Notifications.EmailEnabled && cfg.Notifications.SendgridAPIKey != "" {
		mux.Register(notify.ChannelEmail, notify.NewSendgridMailer(
			cfg.Notifications.SendgridAPIKey,
			cfg.Notifications.SendgridHost,
			cfg.Notifications.FromName,
			cfg.Notifications.FromEmail,
			cfg.Notifications.BaseURL,
		))
	} else if cfg.Notifications.EmailEnabled {
		mux.Register(notify.ChannelEmail, notify.NewLogMailer(logr))
	}
	if cfg.Notifications.PushEnabled && redisClient != nil {
		mux.Register(notify.ChannelPush, notify.NewRedisPusher(redisClient, cfg.Notifications.PushChannel))
	}
	queue := jobs.NewQueue("notifications", mux.Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.QueueWorkers,
		MaxRetries: cfg.Notifications.QueueRetries,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	mux.UseQueue(queue)

	store, err := storage.NewLocalStorage(cfg.Uploads.StorageDir, cfg.Uploads.MaxFileSizeBytes)
	if err != nil {
		logr.Fatal("failed to prepare upload storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	files := service.NewFileService(store, signer, cfg.APIPrefix+"/files/", logr)

	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	profileRepo := repository.NewStudentProfileRepository(db)
	attachmentRepo := repository.NewAttachmentRepository(db)
	detailRepo := repository.NewNSSFDetailRepository(db)
	returnRepo := repository.NewNSSFReturnRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	historyRepo := repository.NewReportHistoryRepository(db)
	var cacheClient redis.Cmdable
	if redisClient != nil {
		cacheClient = redisClient
	}
	cacheRepo := repository.NewCacheRepository(cacheClient, "attachment-portal")

	companySvc := service.NewCompanyService(companyRepo, userRepo, validate, logr)
	profileSvc := service.NewStudentProfileService(profileRepo, userRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, tokenRepo, auditRepo, companySvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, auditRepo, companySvc, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, mux, metrics, validate, logr)
	attachmentSvc := service.NewAttachmentService(attachmentRepo, profileRepo, companyRepo, notificationSvc, metrics, validate, logr)
	nssfSvc := service.NewNSSFService(detailRepo, returnRepo, profileRepo, companyRepo, files, notificationSvc, validate, logr)
	reportSvc := service.NewReportService(service.ReportSources{
		Students:    profileRepo,
		Companies:   companyRepo,
		Attachments: attachmentRepo,
		Returns:     returnRepo,
	}, historyRepo, metrics, cfg.Reports.HistoryLimit, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Redis.CacheTTL, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Attachments:   attachmentRepo,
		Returns:       returnRepo,
		Details:       detailRepo,
		Profiles:      profileRepo,
		Companies:     companyRepo,
		StudentCount:  profileRepo,
		CompanyCount:  companyRepo,
		Notifications: notificationRepo,
		Cache:         cacheSvc,
		CacheTTL:      cfg.Redis.CacheTTL,
		Logger:        logr,
	})

	router := newRouter(routerDeps{
		cfg:          cfg,
		logger:       logr,
		metrics:      metrics,
		tokens:       authSvc,
		audit:        auditRepo,
		invalidate:   dashboardSvc.InvalidateAdmin,
		ready:        func(ctx context.Context) error { return db.PingContext(ctx) },
		auth:         handler.NewAuthHandler(authSvc),
		users:        handler.NewUserHandler(userSvc),
		companies:    handler.NewCompanyHandler(companySvc),
		profiles:     handler.NewStudentProfileHandler(profileSvc),
		attachments:  handler.NewAttachmentHandler(attachmentSvc),
		nssf:         handler.NewNSSFHandler(nssfSvc),
		notification: handler.NewNotificationHandler(notificationSvc),
		reports:      handler.NewReportHandler(reportSvc),
		dashboard:    handler.NewDashboardHandler(dashboardSvc),
		files:        handler.NewFileHandler(files),
		metricsH:     handler.NewMetricsHandler(metrics),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
