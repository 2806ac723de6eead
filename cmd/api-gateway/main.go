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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/khalidoy/gspfinancefront-sub000/api/swagger"
	"github.com/khalidoy/gspfinancefront-sub000/internal/handler"
	"github.com/khalidoy/gspfinancefront-sub000/internal/middleware"
	"github.com/khalidoy/gspfinancefront-sub000/internal/models"
	"github.com/khalidoy/gspfinancefront-sub000/internal/repository"
	"github.com/khalidoy/gspfinancefront-sub000/internal/service"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/cache"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/config"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/database"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/export"
	"github.com/khalidoy/gspfinancefront-sub000/pkg/logger"
	corsmiddleware "github.com/khalidoy/gspfinancefront-sub000/pkg/middleware/cors"
	reqidmiddleware "github.com/khalidoy/gspfinancefront-sub000/pkg/middleware/requestid"
)

// ledgerRemote bundles roster reads and payment writes behind one record
// store dependency.
type ledgerRemote struct {
	*repository.RosterRepository
	*repository.PaymentRepository
}

// @title School Fee Ledger API
// @version 1.0.0
// @description Payment ledger, filtering and collection summaries for school fee administration
// @BasePath /
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metrics := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Ledger.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Ledger.CacheTTL, logr, cfg.Ledger.CacheEnabled)

	remote := ledgerRemote{
		RosterRepository:  repository.NewRosterRepository(db),
		PaymentRepository: repository.NewPaymentRepository(db),
	}

	store := service.NewLedgerStore(remote, cacheSvc, metrics, logr, service.LedgerStoreConfig{
		MonthlyPaidCap:   cfg.Ledger.MonthlyPaidCap,
		MonthlyAgreedCap: cfg.Ledger.MonthlyAgreedCap,
		AnnualAgreedCap:  cfg.Ledger.AnnualAgreedCap,
		CacheTTL:         cfg.Ledger.CacheTTL,
		RefreshWorkers:   cfg.Ledger.RefreshWorkers,
		RefreshRetries:   cfg.Ledger.RefreshRetries,
		RefreshDelay:     cfg.Ledger.RefreshDelay,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store.Start(ctx)
	defer store.Stop()

	validate := validator.New()
	ledgerHandler := handler.NewLedgerHandler(store, validate)
	summaryHandler := handler.NewSummaryHandler(store)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	years := api.Group("/years/:yearId")
	{
		years.GET("/ledger", ledgerHandler.Snapshot)
		years.GET("/ledger/students/:id", ledgerHandler.StudentLedger)
		years.POST("/ledger/students/:id/payments",
			middleware.RequireRoles(models.RoleAdmin, models.RoleBursar),
			ledgerHandler.EditPayment)
		years.POST("/ledger/refresh", ledgerHandler.Refresh)

		years.GET("/summary", summaryHandler.Summary)
		years.GET("/summary/classes", summaryHandler.Buckets)
		years.GET("/summary/classes/:id", summaryHandler.ClassSummary)

		if cfg.Reports.Enabled {
			reports := service.NewReportService(store, export.NewPDFExporter(), logr)
			reportHandler := handler.NewReportHandler(reports)
			years.GET("/reports/monthly-payments", reportHandler.MonthlyPayments)
			years.GET("/reports/classes", reportHandler.ClassBuckets)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
