package ledger

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"go.uber.org/zap"
)

// New выбирает бэкенд леджера по конфигу. Выбор бэкенда — внешняя
// настройка деплоя, контракт Append у всех одинаковый.
func New(cfg infra.LedgerConfig, rdb *redis.Client, logger *zap.Logger) (Ledger, error) {
	backend := strings.ToLower(cfg.Backend)
	logger.Info("initializing ledger backend", zap.String("backend", backend))

	switch backend {
	case "", "file", "local":
		return NewFileLedger(cfg.Path, logger)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("ledger: postgres backend selected but dsn is empty")
		}
		return NewPostgresLedger(cfg.DSN, logger)
	case "redis":
		if rdb == nil {
			return nil, fmt.Errorf("ledger: redis backend selected but redis is not configured")
		}
		return NewRedisLedger(rdb, cfg.Stream, logger), nil
	default:
		return nil, fmt.Errorf("ledger: unsupported backend %q", cfg.Backend)
	}
}
