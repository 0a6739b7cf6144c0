// Command server runs the drone operations control plane.
//
// # Usage
//
//	server --config /etc/drone-ops/config.yaml --port 8080
//
// # Configuration
//
// The server can be configured via:
// - Command-line flags
// - Environment variables (DRONEOPS_*)
// - A YAML config file
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skywatch/drone-ops/db/migrate"
	"github.com/skywatch/drone-ops/internal/api"
	"github.com/skywatch/drone-ops/internal/bus"
	"github.com/skywatch/drone-ops/internal/cache"
	"github.com/skywatch/drone-ops/internal/config"
	"github.com/skywatch/drone-ops/internal/correlation"
	"github.com/skywatch/drone-ops/internal/geolocation"
	"github.com/skywatch/drone-ops/internal/health"
	"github.com/skywatch/drone-ops/internal/secrets"
	"github.com/skywatch/drone-ops/internal/service"
	"github.com/skywatch/drone-ops/internal/store"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to YAML config file")
		port       = flag.Int("port", 0, "HTTP server port (overrides config/listen_addr's port)")
		debug      = flag.Bool("debug", false, "Enable debug logging")
		version    = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Println("drone-ops-server v0.1.0")
		os.Exit(0)
	}

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}
	cfg.ApplyEnvOverrides()
	if *port != 0 {
		cfg.ListenAddr = fmt.Sprintf(":%d", *port)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug || cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := store.NewStoreFromURL(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	migCtx, migCancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer migCancel()
	if err := migrate.Run(migCtx, db.Pool(), logger); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}

	responseCache, err := cache.New(cfg.Cache.RedisURL, logger)
	if err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to redis")

	deviceCache := cache.NewDeviceCache(responseCache, config.DeviceCacheSnapshotTTL)

	keyStore, err := secrets.NewKeyStore(secretsConfig(cfg), logger)
	if err != nil {
		logger.Warn("evidence manifest signing disabled - keystore initialization failed", "error", err)
		keyStore = nil
	} else {
		logger.Info("evidence manifest signing enabled", "backend", cfg.Secrets.Backend)
	}

	eventBus := bus.New()
	geo := geolocation.NewCentroidEstimator()
	pairSource := correlation.NewVendorPrefixSource()

	svc := service.NewService(db, eventBus, deviceCache, geo, pairSource, keyStore, logger)
	healthCollector := health.NewCollector(db, responseCache, startTime)
	apiServer := api.NewServer(svc, healthCollector, logger)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      apiServer,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("starting server", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")

	if keyStore != nil {
		if err := keyStore.Close(); err != nil {
			logger.Warn("error closing signing key store", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

func secretsConfig(cfg *config.DroneOpsConfig) secrets.Config {
	sc := secrets.ConfigFromEnv()
	if cfg.Secrets.Backend != "" {
		sc.Backend = cfg.Secrets.Backend
	}
	if cfg.Secrets.LocalKeyDir != "" {
		sc.LocalKeyDir = cfg.Secrets.LocalKeyDir
	}
	return sc
}
