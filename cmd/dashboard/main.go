package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/mr1hm/go-disaster-dashboard/internal/api"
	"github.com/mr1hm/go-disaster-dashboard/internal/catalog"
	"github.com/mr1hm/go-disaster-dashboard/internal/config"
	"github.com/mr1hm/go-disaster-dashboard/internal/dashboard"
	"github.com/mr1hm/go-disaster-dashboard/internal/geolocation"
	internalgrpc "github.com/mr1hm/go-disaster-dashboard/internal/grpc"
	"github.com/mr1hm/go-disaster-dashboard/internal/logging"
	"github.com/mr1hm/go-disaster-dashboard/internal/metrics"
	"github.com/mr1hm/go-disaster-dashboard/internal/models"
	"github.com/mr1hm/go-disaster-dashboard/internal/repository"
	"github.com/mr1hm/go-disaster-dashboard/internal/resilience"
	"github.com/mr1hm/go-disaster-dashboard/internal/weather"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port,
		"geolocation", cfg.Geolocation.Platform, "weather", cfg.Weather.Source)

	cat, err := catalog.Load()
	if err != nil {
		logging.Fatalf("Failed to load catalog: %v", err)
	}

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := db.Seed(ctx, cat.Zones(), cat.Facilities()); err != nil {
		logging.Fatalf("Failed to seed database: %v", err)
	}

	m := metrics.NewCollector("disaster_dashboard")

	platforms, err := platformFactory(cfg.Geolocation)
	if err != nil {
		logging.Fatalf("Failed to set up geolocation: %v", err)
	}

	weatherSvc := weather.NewService(weatherSource(cfg.Weather), cfg.Worker.Count, cfg.Worker.BufferSize, m)
	weatherSvc.Start(ctx)

	// Create broadcaster for gRPC streaming
	broadcaster := internalgrpc.NewBroadcaster(m)

	manager := dashboard.NewManager(cat, weatherSvc, broadcaster, m, dashboard.Config{
		TTL: cfg.Session.TTL,
		Geolocation: geolocation.Options{
			HighAccuracy: true,
			Timeout:      cfg.Geolocation.Timeout,
			MaximumAge:   cfg.Geolocation.MaxAge,
		},
		Platforms: platforms,
	})
	go manager.Run(ctx)

	// Start gRPC server
	grpcServer := internalgrpc.NewServer(manager, broadcaster)
	go func() {
		grpcAddr := fmt.Sprintf(":%d", cfg.GRPC.Port)
		if err := grpcServer.Start(grpcAddr); err != nil {
			logging.Fatalf("gRPC server error: %v", err)
		}
	}()

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.MetricsMiddleware(m))
	router.Use(api.RateLimitMiddleware(cfg.Server.RateLimitRPS))

	handler := api.NewHandler(manager, db, cat, m)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	cancel()
	manager.Shutdown()
	weatherSvc.Stop()
	broadcaster.Close() // Close all streams gracefully
	grpcServer.Stop()

	slog.Info("shutdown complete")
}

// platformFactory builds the per-session geolocation platform. Hardware and
// network platforms are shared between sessions behind a fix cache.
func platformFactory(cfg config.GeolocationConfig) (dashboard.PlatformFactory, error) {
	var shared geolocation.Platform

	switch cfg.Platform {
	case config.PlatformClient:
		return func() geolocation.Platform { return geolocation.NewReportedPlatform() }, nil
	case config.PlatformNone:
		return func() geolocation.Platform { return nil }, nil
	case config.PlatformStatic:
		shared = geolocation.StaticPlatform{Position: models.UserPosition{
			Latitude:  cfg.StaticLat,
			Longitude: cfg.StaticLng,
		}}
	case config.PlatformGoogle:
		p, err := geolocation.NewGooglePlatform(cfg.GoogleAPIKey)
		if err != nil {
			return nil, err
		}
		shared = geolocation.NewCachedPlatform(p)
	case config.PlatformNMEA:
		shared = geolocation.NewCachedPlatform(geolocation.NewSerialNMEAPlatform(cfg.SerialPort, cfg.BaudRate))
	default:
		return nil, fmt.Errorf("unknown geolocation platform: %s", cfg.Platform)
	}

	return func() geolocation.Platform { return shared }, nil
}

func weatherSource(cfg config.WeatherConfig) weather.Source {
	if cfg.Source == config.WeatherOpenMeteo {
		client := resilience.NewClient(resilience.DefaultConfig("open-meteo"))
		return weather.NewOpenMeteoSource(cfg.OpenMeteoURL, client)
	}
	return weather.NewSimulator(cfg.Delay, nil)
}
