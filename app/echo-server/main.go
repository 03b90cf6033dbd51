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

	appmetrics "recipingAds/app/echo-server/metrics"
	"recipingAds/app/echo-server/router"
	"recipingAds/business/delivery"
	"recipingAds/business/reporting"
	"recipingAds/business/selection"
	"recipingAds/business/serving"
	"recipingAds/internal/events"
	"recipingAds/internal/middleware"
	"recipingAds/internal/repository/memory"
	psqlRepo "recipingAds/internal/repository/postgres"
	redisRepo "recipingAds/internal/repository/redis"
	"recipingAds/internal/repository/userservice"
	"recipingAds/internal/rest"
	"recipingAds/pkg/config"
	"recipingAds/pkg/database"
	redisdb "recipingAds/pkg/database/redis"
	"recipingAds/pkg/logger"
	"recipingAds/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// creativeBackend is everything the server needs from creative storage.
type creativeBackend interface {
	selection.CandidateStore
	delivery.CounterStore
	reporting.ActiveCounter
}

type eventBackend interface {
	events.EventWriter
	reporting.PerformanceReader
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.Init(logger.Options{
		Environment: cfg.App.Environment,
		Level:       cfg.Log.Level,
		File:        cfg.Log.File,
	})
	defer logger.Sync()
	logger.Info("Starting ad server", "version", cfg.App.Version, "env", cfg.App.Environment)

	metrics.Init()
	appmetrics.Init()
	appmetrics.BuildInfo.WithLabelValues(cfg.App.Version, cfg.App.Environment).Set(1)

	catalog, err := selection.LoadCatalog(cfg.Serving.CatalogPath)
	if err != nil {
		logger.Fatal("Failed to load scenario catalog", "path", cfg.Serving.CatalogPath, "error", err)
	}
	for _, w := range catalog.Warnings() {
		logger.Warn("Scenario catalog warning", "warning", w)
	}
	appmetrics.RecordCatalog(catalog)

	creatives, eventStore := initStorage(cfg)

	// Init profile lookup
	var profiles serving.ProfileLookup = userservice.NewUserServiceRepository(userservice.UserServiceConfig{
		BaseURL:           cfg.UserService.BaseURL,
		BasicAuthUsername: cfg.UserService.BasicAuthUsername,
		BasicAuthPassword: cfg.UserService.BasicAuthPassword,
		Timeout:           cfg.UserService.Timeout,
	})
	var redisClient *redis.Client
	var profileInvalidator rest.ProfileInvalidator
	if redisClient, err = redisdb.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, profile cache disabled", "error", err)
	} else {
		profileCache := redisRepo.NewProfileCache(redisClient, profiles, cfg.Serving.ProfileCacheTTL, zlog)
		profiles = profileCache
		profileInvalidator = profileCache
	}

	// Init event sinks
	asyncSink := events.NewAsyncSink(eventStore, events.AsyncConfig{BufferSize: cfg.Serving.EventBuffer}, zlog)
	sink := events.Multi{events.NewLogSink(zlog), asyncSink}

	// Init service
	selector := selection.NewSelector(catalog, creatives,
		selection.WithLogger(zlog),
		selection.WithEventSink(sink),
	)
	recorder := delivery.NewRecorder(creatives, sink, catalog, zlog)
	servingService := serving.NewService(selector, profiles, recorder, serving.Config{
		RequestTimeout: cfg.Serving.RequestTimeout,
	}, zlog)
	reportingService := reporting.NewService(catalog, creatives, eventStore)

	// Init handler
	serveHandler := rest.NewServeHandler(servingService, recorder)
	adminHandler := rest.NewAdminHandler(servingService, reportingService, profileInvalidator)

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = middleware.ErrorHandler

	e.Use(echomiddleware.Recover())
	e.Use(middleware.TraceID())
	e.Use(middleware.Metrics())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderXRequestID},
	}))

	optionalAuth := middleware.OptionalAuth(cfg.JWT.SecretKey)
	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey)
	adminOnly := middleware.AdminOnly()

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})

	api := e.Group("/api/v1")
	router.SetupServeRoutes(api, serveHandler, optionalAuth, authRequired, adminOnly)
	router.SetupAdminRoutes(api, adminHandler, authRequired, adminOnly)

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := asyncSink.Close(ctx); err != nil {
		logger.Error("Event sink did not drain", "error", err)
	}
	if err := redisdb.CloseRedisClient(redisClient); err != nil {
		logger.Error("Redis close error", "error", err)
	}

	logger.Info("Server stopped")
}

// initStorage uses postgres unless a creative seed file is configured, in
// which case creatives and events stay in memory.
func initStorage(cfg *config.Config) (creativeBackend, eventBackend) {
	if cfg.Serving.SeedPath != "" {
		store, err := memory.LoadFile(cfg.Serving.SeedPath)
		if err != nil {
			logger.Fatal("Failed to load creative seed", "path", cfg.Serving.SeedPath, "error", err)
		}
		logger.Info("Serving from in-memory creatives", "path", cfg.Serving.SeedPath)
		return store, memory.NewEventStore()
	}

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	if err := psqlRepo.Migrate(db); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database connected successfully")

	return psqlRepo.NewCreativeRepository(db, cfg.Serving.MaxPool), psqlRepo.NewAdEventRepository(db)
}
