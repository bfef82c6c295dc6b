package main

import (
	"context"
	"flag"
	"os"
	"time"

	"exchanges_gateway/internal/bootstrap"
	"exchanges_gateway/internal/exchange"
	"exchanges_gateway/internal/infrastructure/health"
	httpserver "exchanges_gateway/internal/infrastructure/http"
	"exchanges_gateway/internal/infrastructure/metrics"
	"exchanges_gateway/pkg/concurrency"
	"exchanges_gateway/pkg/logging"
	"exchanges_gateway/pkg/telemetry"
)

var configFile = flag.String("config", "configs/config.yaml", "Path to configuration file (environment only when absent)")

func main() {
	flag.Parse()

	if envConfig := os.Getenv("CONFIG_FILE"); envConfig != "" {
		*configFile = envConfig
	}

	app, err := bootstrap.NewApp(*configFile)
	if err != nil {
		fallback, _ := logging.NewZapLogger("INFO")
		fallback.Fatal("Failed to bootstrap gateway", "error", err)
	}
	cfg, logger := app.Cfg, app.Logger

	// 1. Telemetry
	tel, err := telemetry.Setup(telemetry.Options{
		ServiceName:  cfg.App.Name,
		ExportTraces: cfg.Telemetry.ExportTraces,
		ExportLogs:   cfg.Telemetry.ExportLogs,
	})
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", "error", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Warn("Telemetry shutdown failed", "error", err)
		}
	}()

	// 2. Worker pool for mark-price fan-out
	pool := concurrency.NewWorkerPool(concurrency.PoolConfig{
		Name:        "MarkPricePool",
		MaxWorkers:  16,
		MaxCapacity: 256,
	}, logger)
	defer pool.Stop()

	// 3. Exchange adapters
	gateway, err := exchange.NewGateway(cfg, logger, pool)
	if err != nil {
		logger.Fatal("Failed to initialize exchange adapters", "error", err)
	}

	// 4. Credential health. Missing credentials are reported, never fatal.
	hm := health.NewHealthManager(logger)
	exchange.RegisterHealthChecks(hm, cfg)
	for component, status := range hm.GetStatus() {
		if status != "Healthy" {
			logger.Warn("Credentials incomplete, signed calls will be rejected upstream", "component", component, "status", status)
		}
	}

	// 5. Transports
	runners := []bootstrap.Runner{
		httpserver.NewServer(gateway, cfg.Server, hm, logger),
		exchange.NewGatewayServer(gateway, cfg.Server.GRPCAddr, cfg.Server.APIKeyList(), logger),
	}
	if cfg.Telemetry.EnableMetrics {
		runners = append(runners, metrics.NewServer(cfg.Telemetry.MetricsPort, logger))
	}

	logger.Info("Exchanges gateway starting",
		"http_port", cfg.Server.HTTPPort,
		"grpc_addr", cfg.Server.GRPCAddr,
		"metrics", cfg.Telemetry.EnableMetrics)
	logger.Debug("Effective configuration", "config", cfg.String())

	if err := app.Run(runners...); err != nil {
		logger.Error("Gateway stopped with error", "error", err)
		os.Exit(1)
	}
}
