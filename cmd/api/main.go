package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linklytics/linklytics/internal/config"
	"github.com/linklytics/linklytics/internal/geo"
	"github.com/linklytics/linklytics/internal/infrastructure/db"
	"github.com/linklytics/linklytics/internal/infrastructure/logger"
	"github.com/linklytics/linklytics/internal/infrastructure/telemetry"
	"github.com/linklytics/linklytics/internal/processing/clicks"
	"github.com/linklytics/linklytics/internal/processing/links"
	"github.com/linklytics/linklytics/internal/processing/stats"
	mongoStorage "github.com/linklytics/linklytics/internal/storage/mongo"
	redisStorage "github.com/linklytics/linklytics/internal/storage/redis"
	httpTransport "github.com/linklytics/linklytics/internal/transport/http"
	"github.com/linklytics/linklytics/internal/transport/http/middleware"
	"github.com/linklytics/linklytics/internal/useragent"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.App.Env, cfg.App.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("name", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("env", cfg.App.Env),
	)

	var shutdownTracer func(context.Context) error
	if cfg.OTel.Enabled {
		var err error
		shutdownTracer, err = telemetry.InitTracer(cfg.OTel.Endpoint, cfg.App.Name, cfg.App.Version, cfg.App.Env)
		if err != nil {
			logger.Warn("Failed to initialize tracer, continuing without tracing", zap.Error(err))
		} else {
			logger.Info("OpenTelemetry tracer initialized", zap.String("endpoint", cfg.OTel.Endpoint))
		}
	}

	mongoConn, err := db.ConnectMongo(cfg.MongoDB.URI, cfg.MongoDB.Database, cfg.MongoDB.MaxPoolSize)
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = mongoConn.Disconnect() }()

	linkRepo, err := mongoStorage.NewLinksRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize links repository", zap.Error(err))
	}
	clickRepo, err := mongoStorage.NewClicksRepository(mongoConn)
	if err != nil {
		logger.Fatal("Failed to initialize clicks repository", zap.Error(err))
	}

	linkSvc := links.NewService(linkRepo, links.NewCryptoIDGenerator(), cfg.Shortener.IDLength)
	statsSvc := stats.NewService(linkRepo, clickRepo, cfg.Shortener.BaseURL)

	geoResolver, closeGeo := newGeoResolver(cfg)
	defer closeGeo()

	sink, err := newClickSink(cfg, mongoConn, clickRepo, geoResolver)
	if err != nil {
		logger.Fatal("Failed to initialize click sink", zap.Error(err))
	}

	var createLimiter *middleware.RedisFixedWindowLimiter
	redisClient, err := redisStorage.New(redisStorage.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Warn("Redis unavailable, link creation runs unlimited", zap.Error(err))
	} else {
		defer func() { _ = redisClient.Close() }()
		limiterStore := redisStorage.NewFixedWindowLimiter(redisClient, "rl:create", time.Minute)
		createLimiter = middleware.NewRedisFixedWindowLimiter(limiterStore, cfg.Security.CreateRatePerMin)
	}

	router := httpTransport.NewRouter(cfg, linkSvc, statsSvc, sink, createLimiter)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if shutdownTracer != nil {
			_ = shutdownTracer(shutdownCtx)
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("Server starting",
		zap.String("port", cfg.Server.Port),
		zap.String("env", cfg.App.Env),
		zap.String("click_sink", cfg.Clicks.Sink),
	)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func newGeoResolver(cfg *config.Config) (clicks.GeoResolver, func()) {
	if cfg.Geo.CityDBPath == "" {
		return geo.NoopResolver{}, func() {}
	}

	resolver, err := geo.OpenMaxMind(cfg.Geo.CityDBPath, cfg.Geo.ISPDBPath)
	if err != nil {
		logger.Warn("Failed to open GeoIP database, geo fields disabled", zap.Error(err))
		return geo.NoopResolver{}, func() {}
	}

	logger.Info("GeoIP databases loaded",
		zap.String("city_db", cfg.Geo.CityDBPath),
		zap.String("isp_db", cfg.Geo.ISPDBPath),
	)
	return resolver, func() { _ = resolver.Close() }
}

func newClickSink(cfg *config.Config, mongoConn *db.Mongo, clickRepo *mongoStorage.ClicksRepository, geoResolver clicks.GeoResolver) (clicks.Sink, error) {
	if cfg.Clicks.Sink == "kafka" {
		outboxRepo, err := mongoStorage.NewClickOutboxRepository(mongoConn)
		if err != nil {
			return nil, err
		}
		return clicks.NewOutboxSink(outboxRepo), nil
	}

	return clicks.NewRecorder(clickRepo, useragent.NewExtractor(), geoResolver), nil
}
