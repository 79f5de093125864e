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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/xela07ax/agentdock/internal/activity"
	"github.com/xela07ax/agentdock/internal/connectors"
	"github.com/xela07ax/agentdock/internal/console/handler"
	"github.com/xela07ax/agentdock/internal/console/server"
	"github.com/xela07ax/agentdock/internal/console/service"
	"github.com/xela07ax/agentdock/internal/engine"
	"github.com/xela07ax/agentdock/internal/infra"
	"github.com/xela07ax/agentdock/internal/infra/auth"
	"github.com/xela07ax/agentdock/internal/registry"
	"github.com/xela07ax/agentdock/internal/repository/archive"
)

func main() {
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("agentdock stopped with error", zap.Error(err))
	}
}

func run(cfg *infra.Config, logger *zap.Logger) error {
	// Контекст живет до SIGINT/SIGTERM
	appCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Метрики
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := engine.NewMetrics(reg)

	// 2. Журнал активности и (опционально) SQL-архив
	logOpts := []activity.Option{
		activity.WithRetention(cfg.Activity.Retention),
		activity.WithCounter(metrics.ActivityEntries),
	}
	var relayOpts []engine.RelayOption

	if cfg.Database.URL != "" {
		store, err := openArchive(appCtx, cfg.Database)
		if err != nil {
			return err
		}
		defer store.Close()

		archiver := activity.NewArchiver(store, logger,
			activity.WithBufferSize(cfg.Engine.AuditBufferSize),
			activity.WithFlushInterval(cfg.Engine.AuditFlushInterval),
			activity.WithBufferGauge(metrics.ArchiveBufferFill),
		)
		archiver.Start()
		// Stop до store.Close: defer-ы выполняются в обратном порядке
		defer archiver.Stop()

		logOpts = append(logOpts, activity.WithSink(archiver))
		relayOpts = append(relayOpts, engine.WithChatArchive(archiver))
		logger.Info("archive enabled", zap.String("driver", cfg.Database.Driver))
	}
	activityLog := activity.NewLog(logOpts...)

	// 3. События реестров в Redis (опционально)
	var events service.EventPublisher = service.NopPublisher{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(appCtx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// Не фатально: публикации будут падать с warn
			logger.Warn("redis unreachable, registry events may be lost",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		events = service.NewRedisPublisher(rdb)
	}

	// 4. Провайдер + защита исходящих вызовов
	provider := connectors.NewChatCompletionClient(
		cfg.Provider.Mode, cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Timeout, logger)
	if !provider.Configured() {
		logger.Warn("provider API key is not set, /chat will answer with an error",
			zap.String("provider", cfg.Provider.Name))
	}
	safeProvider := engine.NewReliabilityWrapper(provider, engine.ReliabilitySettings{
		Name:        cfg.Provider.Name,
		RPS:         cfg.Engine.ProviderRPS,
		Burst:       cfg.Engine.ProviderBurst,
		MaxFailures: cfg.Engine.CBMaxFailures,
		Interval:    cfg.Engine.CBInterval,
		Timeout:     cfg.Engine.CBTimeout,
	}, metrics)

	relay := engine.NewRelay(safeProvider, activityLog, engine.RelaySettings{
		ProviderName: cfg.Provider.Name,
		Model:        cfg.Provider.Model,
		Temperature:  cfg.Provider.Temperature,
		MaxTokens:    cfg.Provider.MaxTokens,
	}, metrics, logger, relayOpts...)

	// 5. Реестры и сервисы
	agentService := service.NewAgentService(registry.NewAgents(), events,
		metrics.RegistrySize.WithLabelValues("agents"), logger)
	toolService := service.NewToolService(registry.NewTools(), events,
		metrics.RegistrySize.WithLabelValues("tools"), logger)
	activityService := service.NewActivityService(activityLog)

	// 6. Периметр
	var validator auth.TokenValidator
	if cfg.Auth.Enabled() {
		pub, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		validator = auth.NewRSAVerifier(pub)
		logger.Info("RS256 perimeter enabled")
	}

	api := server.NewConsoleServer(logger, validator,
		handler.NewAgentHandler(agentService),
		handler.NewToolHandler(toolService),
		handler.NewChatHandler(relay),
		handler.NewLogHandler(activityService),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var metricsSrv *http.Server
	if cfg.Server.MetricsPort > 0 {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.MetricsPort),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	// 7. Запуск
	errCh := make(chan error, 2)
	go func() {
		logger.Info("AgentDock API started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api listener: %w", err)
		}
	}()
	if metricsSrv != nil {
		go func() {
			logger.Info("metrics endpoint started", zap.String("addr", metricsSrv.Addr))
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	var runErr error
	select {
	case <-appCtx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
	}

	// 8. Graceful Shutdown: даем запросам (и провайдеру) время доработать
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Provider.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown failed", zap.Error(err))
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown failed", zap.Error(err))
		}
	}
	logger.Info("AgentDock exited")
	return runErr
}

// openArchive открывает хранилище, проверяет связь и накатывает схему.
func openArchive(ctx context.Context, cfg infra.DatabaseConfig) (*archive.Store, error) {
	store, err := archive.Open(cfg.Driver, cfg.URL, int(cfg.MaxConns), int(cfg.MinConns))
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		store.Close()
		return nil, fmt.Errorf("archive unreachable: %w", err)
	}
	if err := store.Migrate(pingCtx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
