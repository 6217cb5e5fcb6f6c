package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusdesk/campus-api/api/swagger"
	"github.com/campusdesk/campus-api/internal/handler"
	"github.com/campusdesk/campus-api/internal/middleware"
	"github.com/campusdesk/campus-api/internal/models"
	"github.com/campusdesk/campus-api/internal/repository"
	"github.com/campusdesk/campus-api/internal/service"
	"github.com/campusdesk/campus-api/pkg/cache"
	"github.com/campusdesk/campus-api/pkg/config"
	"github.com/campusdesk/campus-api/pkg/database"
	"github.com/campusdesk/campus-api/pkg/logger"
	"github.com/campusdesk/campus-api/pkg/middleware/cors"
	"github.com/campusdesk/campus-api/pkg/middleware/requestid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}

	validate := validator.New()
	catalog := service.NewCatalog(cfg.Catalog.Departments, cfg.Catalog.Durations)

	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)
	defer func() { _ = cacheRepo.Close() }()

	enrollmentSvc := service.NewEnrollmentService(studentRepo, courseRepo, log)
	studentSvc := service.NewStudentService(studentRepo, courseRepo, enrollmentSvc, catalog, validate, log)
	courseSvc := service.NewCourseService(courseRepo, studentRepo, cacheRepo, catalog, validate, log, cfg.Stats.CacheTTL)
	authSvc := service.NewAuthService(userRepo, cfg.JWT, validate, log)
	metricsSvc := service.NewMetricsService()

	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc, enrollmentSvc)
	courseHandler := handler.NewCourseHandler(courseSvc, enrollmentSvc)
	healthHandler := handler.NewHealthHandler()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.EnableJsonDecoderDisallowUnknownFields()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(middleware.Metrics(metricsSvc))

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := router.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		protected := auth.Group("")
		protected.Use(middleware.Auth(authSvc))
		{
			protected.GET("/profile", authHandler.Profile)
			protected.PUT("/profile", authHandler.UpdateProfile)
			protected.PUT("/change-password", authHandler.ChangePassword)
			protected.POST("/logout", authHandler.Logout)
		}
	}

	students := api.Group("/students")
	students.Use(middleware.Auth(authSvc))
	{
		students.GET("", studentHandler.List)
		students.POST("", studentHandler.Create)
		students.GET("/department/:department", studentHandler.ListByDepartment)
		students.GET("/:id", studentHandler.Get)
		students.PUT("/:id", studentHandler.Update)
		students.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), studentHandler.Delete)
		students.POST("/:id/enroll", studentHandler.EnrollByBody)
		students.POST("/:id/unenroll", studentHandler.UnenrollByBody)
		students.POST("/:id/enroll/:courseId", studentHandler.Enroll)
		students.DELETE("/:id/enroll/:courseId", studentHandler.Unenroll)
	}

	courses := api.Group("/courses")
	courses.Use(middleware.Auth(authSvc))
	{
		courses.GET("", courseHandler.List)
		courses.POST("", courseHandler.Create)
		courses.GET("/stats", courseHandler.Stats)
		courses.GET("/department/:department", courseHandler.ListByDepartment)
		courses.GET("/:id", courseHandler.Get)
		courses.PUT("/:id", courseHandler.Update)
		courses.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), courseHandler.Delete)
		courses.GET("/:id/roster/export", courseHandler.ExportRoster)
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
