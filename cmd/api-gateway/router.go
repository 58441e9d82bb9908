package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/attachment-portal-api/internal/handler"
	"github.com/noah-isme/attachment-portal-api/internal/middleware"
	"github.com/noah-isme/attachment-portal-api/internal/models"
	"github.com/noah-isme/attachment-portal-api/internal/service"
	"github.com/noah-isme/attachment-portal-api/pkg/config"
	"github.com/noah-isme/attachment-portal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/attachment-portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/attachment-portal-api/pkg/middleware/requestid"
)

type routerDeps struct {
	cfg        *config.Config
	logger     *zap.Logger
	metrics    *service.MetricsService
	tokens     middleware.TokenValidator
	audit      middleware.AuditRecorder
	invalidate func(ctx context.Context)
	ready      func(ctx context.Context) error

	auth         *handler.AuthHandler
	users        *handler.UserHandler
	companies    *handler.CompanyHandler
	profiles     *handler.StudentProfileHandler
	attachments  *handler.AttachmentHandler
	nssf         *handler.NSSFHandler
	notification *handler.NotificationHandler
	reports      *handler.ReportHandler
	dashboard    *handler.DashboardHandler
	files        *handler.FileHandler
	metricsH     *handler.MetricsHandler
}

func newRouter(d routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(d.logger))
	r.Use(corsmiddleware.New(d.cfg.CORS))
	r.Use(middleware.Metrics(d.metrics))
	r.MaxMultipartMemory = d.cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", d.metricsH.Health)
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.ready(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", d.metricsH.Prometheus)

	if d.cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(d.cfg.APIPrefix)
	api.GET("/files/:token", d.files.Download)

	auth := api.Group("/auth")
	auth.POST("/register", d.auth.Register)
	auth.POST("/login", d.auth.Login)
	auth.POST("/refresh", d.auth.Refresh)

	secured := api.Group("")
	secured.Use(middleware.JWT(d.tokens))

	secured.POST("/auth/logout", d.auth.Logout)
	secured.POST("/auth/change-password", d.auth.ChangePassword)
	secured.GET("/auth/me", d.auth.Me)

	secured.GET("/dashboard/", d.dashboard.Dashboard)
	secured.GET("/metrics/snapshot/", middleware.RequireRoles(models.RoleAdmin), d.metricsH.Snapshot)

	admin := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleCompany, models.RoleAdmin)

	users := secured.Group("/users", admin)
	users.GET("", d.users.List)
	users.POST("", d.users.Create)
	users.GET("/:id", d.users.Get)
	users.PUT("/:id", d.users.Update)
	users.DELETE("/:id", d.users.Delete)

	attachments := secured.Group("/attachments", middleware.InvalidateOnWrite(d.invalidate))
	attachments.GET("/", d.attachments.List)
	attachments.POST("/create/", middleware.RequireRoles(models.RoleStudent, models.RoleAdmin), d.attachments.Create)
	attachments.GET("/stats/", admin, d.attachments.Stats)
	attachments.GET("/:id/", d.attachments.Get)
	attachments.POST("/:id/update/", d.attachments.Update)
	attachments.PUT("/:id/update/", d.attachments.Update)
	attachments.POST("/:id/delete/", d.attachments.Delete)
	attachments.DELETE("/:id/delete/", d.attachments.Delete)
	reviewAudit := middleware.Audit(d.audit, d.logger, models.AuditActionAttachmentReview, "attachments")
	attachments.POST("/:id/approve/", staff, reviewAudit, d.attachments.Approve)
	attachments.POST("/:id/reject/", staff, reviewAudit, d.attachments.Reject)
	attachments.POST("/:id/complete/", staff, reviewAudit, d.attachments.Complete)

	companies := attachments.Group("/companies")
	companies.GET("/", admin, d.companies.List)
	companies.POST("/create/", admin, d.companies.Create)
	companies.GET("/register/", d.companies.GetOwn)
	companies.POST("/register/", d.companies.Register)
	companies.GET("/:id/", d.companies.Get)
	companies.POST("/:id/update/", d.companies.Update)
	companies.PUT("/:id/update/", d.companies.Update)
	companies.POST("/:id/delete/", admin, d.companies.Delete)
	companies.DELETE("/:id/delete/", admin, d.companies.Delete)

	students := attachments.Group("/students", admin)
	students.GET("/", d.profiles.List)
	students.POST("/create/", d.profiles.Create)
	students.POST("/:id/update/", d.profiles.Update)
	students.PUT("/:id/update/", d.profiles.Update)
	students.POST("/:id/delete/", d.profiles.Delete)
	students.DELETE("/:id/delete/", d.profiles.Delete)

	ownProfile := attachments.Group("/student/profile")
	ownProfile.GET("/", d.profiles.GetOwn)
	ownProfile.POST("/create/", d.profiles.CreateOwn)

	nssf := secured.Group("/nssf", middleware.InvalidateOnWrite(d.invalidate))
	details := nssf.Group("/details")
	details.GET("/", d.nssf.GetDetail)
	details.POST("/update/", d.nssf.SubmitDetail)
	details.GET("/admin/", admin, d.nssf.ListDetails)
	verifyAudit := middleware.Audit(d.audit, d.logger, models.AuditActionNSSFVerify, "nssf_details")
	details.POST("/:id/verify/", admin, verifyAudit, d.nssf.Verify)
	details.POST("/:id/unverify/", admin, verifyAudit, d.nssf.Unverify)

	returns := nssf.Group("/returns")
	returns.GET("/", staff, d.nssf.ListReturns)
	returns.POST("/create/", middleware.RequireRoles(models.RoleCompany), d.nssf.SubmitReturn)
	returns.GET("/:id/", staff, d.nssf.GetReturn)
	processAudit := middleware.Audit(d.audit, d.logger, models.AuditActionReturnProcess, "nssf_returns")
	returns.POST("/:id/process/", admin, processAudit, d.nssf.ProcessReturn)
	returns.POST("/:id/approve/", admin, processAudit, d.nssf.ApproveReturn)
	returns.POST("/:id/reject/", admin, processAudit, d.nssf.RejectReturn)
	returns.POST("/:id/unprocess/", admin, processAudit, d.nssf.UnprocessReturn)

	notifications := secured.Group("/notifications")
	notifications.GET("/", d.notification.List)
	notifications.POST("/mark-all-read/", d.notification.MarkAllRead)
	notifications.GET("/unread-count/", d.notification.UnreadCount)
	notifications.GET("/preferences/", d.notification.GetPreferences)
	notifications.POST("/preferences/", d.notification.UpdatePreferences)
	notifications.POST("/announce/", admin, d.notification.Announce)
	notifications.GET("/:id/", d.notification.Get)
	notifications.POST("/:id/read/", d.notification.MarkRead)

	reports := secured.Group("/reports", admin)
	reports.GET("/", d.reports.Index)
	reports.GET("/download/:type/", d.reports.Download)

	return r
}
