package main

import (
	"context"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/hawkgrid/internal/console/handler"
	"github.com/xela07ax/hawkgrid/internal/console/server"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"github.com/xela07ax/hawkgrid/internal/ledger"
	"github.com/xela07ax/hawkgrid/internal/report"
	"github.com/xela07ax/hawkgrid/internal/response"
	"go.uber.org/zap"
)

func main() {
	// 1. Конфигурация и логгер (тот же конфиг, что у data plane)
	cfg, err := infra.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := infra.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	// 2. Redis опционален: без него реестр containment пуст, но работает
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	// 3. Те же бэкенды, что у пайплайна, но только на чтение
	forensic, err := ledger.New(cfg.Ledger, rdb, logger)
	if err != nil {
		logger.Fatal("ledger init failed", zap.Error(err))
	}
	defer forensic.Close()

	reader, ok := forensic.(handler.ChainReader)
	if !ok {
		logger.Fatal("ledger backend does not support chain reads",
			zap.String("backend", cfg.Ledger.Backend))
	}

	store, err := report.NewStore(cfg.Report, logger)
	if err != nil {
		logger.Fatal("report store init failed", zap.Error(err))
	}

	registry := response.NewContainmentRegistry(rdb, logger)
	if err := registry.Init(context.Background()); err != nil {
		logger.Error("containment registry init failed, list will be empty", zap.Error(err))
	}

	// 4. Сборка сервера (Dependency Injection)
	srv := server.NewConsoleServer(logger,
		handler.NewReportsHandler(store),
		handler.NewLedgerHandler(reader),
		handler.NewContainmentHandler(registry),
	)

	httpSrv := &http.Server{
		Addr:         infra.Addr(cfg.Server.Host, cfg.Server.ConsolePort),
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("forensic console started", zap.String("addr", httpSrv.Addr))
	if err := httpSrv.ListenAndServe(); err != nil {
		logger.Fatal("console stopped", zap.Error(err))
	}
}
