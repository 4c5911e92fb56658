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

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/tutor-desk-api/api/swagger"
	"github.com/noah-isme/tutor-desk-api/internal/dto"
	"github.com/noah-isme/tutor-desk-api/internal/handler"
	internalmiddleware "github.com/noah-isme/tutor-desk-api/internal/middleware"
	"github.com/noah-isme/tutor-desk-api/internal/models"
	"github.com/noah-isme/tutor-desk-api/internal/repository"
	"github.com/noah-isme/tutor-desk-api/internal/service"
	"github.com/noah-isme/tutor-desk-api/pkg/cache"
	"github.com/noah-isme/tutor-desk-api/pkg/config"
	"github.com/noah-isme/tutor-desk-api/pkg/database"
	"github.com/noah-isme/tutor-desk-api/pkg/lock"
	"github.com/noah-isme/tutor-desk-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/tutor-desk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/tutor-desk-api/pkg/middleware/requestid"
)

// @title Tutor Desk API
// @version 1.0.0
// @description Private tutor dashboard: students, recurring lessons, course changes and exams.
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
		logr.Fatal("database unavailable", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and locks", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	loc := cfg.Schedule.Location()
	validate := dto.NewValidator()

	userRepo := repository.NewUserRepository(db)
	tutorRepo := repository.NewTutorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	examRepo := repository.NewExamRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.CacheTTL, logr, cacheRepo.Enabled())

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "tutor-desk-api",
	})
	studentSvc := service.NewStudentService(db, studentRepo, userRepo, lessonRepo, examRepo, tutorRepo, cacheSvc, userRepo, validate, logr, service.StudentConfig{
		DefaultPassword: cfg.Students.DefaultPassword,
		EmailDomain:     cfg.Students.EmailDomain,
	})
	scheduleSvc := service.NewRecurringLessonService(db, studentRepo, lessonRepo, tutorRepo, lock.NewRedisLock(redisClient, "lock"),
		cacheSvc, userRepo, metricsSvc, validate, logr, service.RecurringLessonConfig{
			Location:        loc,
			Weeks:           cfg.Schedule.Weeks,
			DefaultDuration: cfg.Schedule.DefaultDuration,
			LockTTL:         cfg.Schedule.LockTTL,
		})
	lessonSvc := service.NewLessonService(lessonRepo, studentRepo, tutorRepo, authSvc, cacheSvc, userRepo, metricsSvc, validate, logr, loc)
	examSvc := service.NewExamService(examRepo, studentRepo, validate, logr, loc)
	calendarSvc := service.NewCalendarService(lessonRepo, tutorRepo, cacheSvc, logr, loc, cfg.Calendar.CacheTTL)
	dashboardSvc := service.NewDashboardService(studentRepo, lessonRepo, tutorRepo, logr)
	settingsSvc := service.NewSettingsService(tutorRepo, authSvc, validate, logr)
	agentSvc := service.NewAgentService(studentSvc, lessonSvc, authSvc, userRepo, metricsSvc, validate, logr, cfg.Agent.Enabled)
	reportSvc := service.NewReportService(studentRepo, lessonRepo, examRepo, logr, loc)

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	lessonHandler := handler.NewLessonHandler(lessonSvc)
	examHandler := handler.NewExamHandler(examSvc)
	dashboardHandler := handler.NewDashboardHandler(calendarSvc, dashboardSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	agentHandler := handler.NewAgentHandler(agentSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))
	r.Use(internalmiddleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	secured := api.Group("")
	secured.Use(internalmiddleware.JWT(authSvc), internalmiddleware.RequireRoles(models.RoleTutor))
	secured.POST("/auth/logout", authHandler.Logout)
	secured.GET("/auth/me", authHandler.Me)
	secured.POST("/auth/verify-password", authHandler.VerifyPassword)

	secured.GET("/dashboard", dashboardHandler.Summary)
	secured.GET("/calendar", dashboardHandler.Calendar)

	secured.GET("/students", studentHandler.List)
	secured.POST("/students", internalmiddleware.Audit(userRepo, logr, models.AuditActionStudentCreate, "student"), studentHandler.Create)
	secured.GET("/students/:id", studentHandler.Get)
	secured.PUT("/students/:id", internalmiddleware.Audit(userRepo, logr, models.AuditActionStudentUpdate, "student"), studentHandler.Update)
	secured.DELETE("/students/:id", studentHandler.Delete)
	secured.POST("/students/:id/schedule", scheduleHandler.Generate)
	secured.GET("/students/:id/exams", examHandler.ListByStudent)
	secured.GET("/students/:id/report", reportHandler.StudentReport)

	secured.GET("/lessons", lessonHandler.ListRecords)
	secured.POST("/lessons", lessonHandler.CreateRecord)
	secured.POST("/lessons/reset", lessonHandler.ResetAll)
	secured.GET("/lessons/:id", lessonHandler.Get)
	secured.PUT("/lessons/:id", lessonHandler.UpdateRecord)
	secured.DELETE("/lessons/:id", lessonHandler.Delete)
	secured.DELETE("/lessons/:id/record", lessonHandler.ClearRecord)
	secured.POST("/lessons/:id/status", lessonHandler.ChangeStatus)
	secured.GET("/course-changes", lessonHandler.CourseChanges)

	secured.POST("/exams", internalmiddleware.Audit(userRepo, logr, models.AuditActionExamChange, "exam"), examHandler.Create)
	secured.PUT("/exams/:id", internalmiddleware.Audit(userRepo, logr, models.AuditActionExamChange, "exam"), examHandler.Update)
	secured.DELETE("/exams/:id", internalmiddleware.Audit(userRepo, logr, models.AuditActionExamChange, "exam"), examHandler.Delete)

	secured.GET("/settings", settingsHandler.Get)
	secured.PUT("/settings", internalmiddleware.Audit(userRepo, logr, models.AuditActionSettingsUpdate, "settings"), settingsHandler.Update)
	secured.PUT("/settings/security", settingsHandler.UpdateSecurity)

	secured.POST("/agent/execute", agentHandler.Execute)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "time_zone", loc.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
