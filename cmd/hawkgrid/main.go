package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/hawkgrid/internal/assets"
	"github.com/xela07ax/hawkgrid/internal/cloud"
	"github.com/xela07ax/hawkgrid/internal/detect"
	"github.com/xela07ax/hawkgrid/internal/engine"
	"github.com/xela07ax/hawkgrid/internal/features"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"github.com/xela07ax/hawkgrid/internal/infra/auth"
	"github.com/xela07ax/hawkgrid/internal/ledger"
	"github.com/xela07ax/hawkgrid/internal/report"
	"github.com/xela07ax/hawkgrid/internal/response"
	"go.uber.org/zap"
)

func main() {
	// 1. Конфигурация и логгер
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// Контекст для управления жизненным циклом фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Артефакт модели. Отсутствие артефакта не валит процесс:
	// сервис поднимается и честно отвечает 503, пока модель не подложат
	artifact, err := detect.LoadArtifact(cfg.Model.ArtifactPath)
	if err != nil {
		logger.Error("model artifact not loaded, detection will respond 503",
			zap.String("path", cfg.Model.ArtifactPath), zap.Error(err))
		artifact = nil
	}
	detector := detect.NewEngine(artifact, detect.NewMapper(cfg.Thresholds), logger)

	// 3. Облачные провайдеры. Отказ одного провайдера при старте не
	// блокирует остальных — он просто выпадает из discovery
	var providers []cloud.Provider
	if cfg.Providers.Static.Enabled {
		providers = append(providers, cloud.NewStaticProvider(cfg.Providers.Static.Assets, logger))
	}
	if cfg.Providers.AWS.Enabled {
		p, err := cloud.NewAWSProvider(appCtx, cfg.Providers.AWS.Region, logger)
		if err != nil {
			logger.Error("aws provider disabled", zap.Error(err))
		} else {
			providers = append(providers, p)
		}
	}
	if cfg.Providers.Azure.Enabled {
		p, err := cloud.NewAzureProvider(cfg.Providers.Azure.SubscriptionID, cfg.Providers.Azure.ResourceGroup, logger)
		if err != nil {
			logger.Error("azure provider disabled", zap.Error(err))
		} else {
			providers = append(providers, p)
		}
	}

	// Метрики
	reg := prometheus.NewRegistry()
	metrics := engine.NewMetrics(reg)

	// 4. Resolver + периодический discovery
	resolver := assets.NewResolver(providers, logger)
	resolver.Refresh(appCtx)
	metrics.AssetsResolved.Set(float64(resolver.Count()))
	go func() {
		ticker := time.NewTicker(cfg.Assets.RefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				resolver.Refresh(appCtx)
				metrics.AssetsResolved.Set(float64(resolver.Count()))
			case <-appCtx.Done():
				return
			}
		}
	}()

	// 5. Redis (опционально): реестр containment + леджер-бэкенд
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	registry := response.NewContainmentRegistry(rdb, logger)
	if err := registry.Init(appCtx); err != nil {
		logger.Error("containment registry init failed, continuing standalone", zap.Error(err))
	}
	go registry.StartListener(appCtx)

	// 6. Форензик-леджер
	forensic, err := ledger.New(cfg.Ledger, rdb, logger)
	if err != nil {
		logger.Fatal("ledger init failed", zap.Error(err))
	}
	defer forensic.Close()

	// 7. Отчеты: асинхронный writer поверх выбранного стора
	store, err := report.NewStore(cfg.Report, logger)
	if err != nil {
		logger.Fatal("report store init failed", zap.Error(err))
	}
	reports := report.NewWriter(store, cfg.Report.BufferSize, cfg.Report.FlushInterval, logger)
	reports.Start()

	// 8. Response-фаза. Переходы Circuit Breaker-а отражаем в gauge
	reliable := response.NewReliableIsolator(cfg.Response, func(name string, open bool) {
		state := 0.0
		if open {
			state = 1.0
		}
		metrics.CircuitBreakerState.WithLabelValues(name).Set(state)
	})
	dispatcher := response.NewDispatcher(resolver, reliable, cfg.Response.SimulationMode, logger)

	// Экспортируем метрики для Prometheus
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		addr := infra.Addr(cfg.Server.Host, cfg.Server.MetricsPort)
		logger.Info("metrics listener started", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics listener stopped", zap.Error(err))
		}
	}()

	// 9. Core (сборка конвейера)
	core := engine.NewCore(
		features.NewAligner(),
		detector,
		resolver,
		dispatcher,
		registry,
		forensic,
		reports,
		metrics,
		logger,
	)

	// 10. HTTP Server. Цепочка: Trace -> Auth -> handler
	var validator auth.TokenValidator
	if len(cfg.Auth.PublicKey) > 0 {
		pubKey, err := auth.ParseRSAPublicKey(cfg.Auth.PublicKey)
		if err != nil {
			logger.Fatal("invalid auth public key", zap.Error(err))
		}
		validator = auth.NewBaseValidator(pubKey)
		logger.Info("api auth enabled")
	}

	detectHandler := engine.TracingMiddleware(
		engine.AuthMiddleware(validator, logger)(
			http.HandlerFunc(core.HandleDetect),
		),
	)

	mux := http.NewServeMux()
	mux.Handle("/v1/detect", detectHandler)
	mux.Handle("/status", engine.TracingMiddleware(http.HandlerFunc(core.HandleStatus)))
	mux.HandleFunc("/health", core.HandleHealth)

	srv := &http.Server{
		Addr:         infra.Addr(cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 11. Graceful Shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("detection engine started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	<-stop // Ждем сигнал
	logger.Info("detection engine stopping...")

	// Даем 5 секунд на завершение запросов
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Останавливаем фоны и дописываем буфер отчетов
	cancel()
	reports.Stop()
	logger.Info("detection engine exited properly")
}
