package report

import (
	"fmt"
	"strings"

	"github.com/xela07ax/hawkgrid/internal/infra"
	"go.uber.org/zap"
)

// NewStore выбирает бэкенд отчетов по конфигу.
func NewStore(cfg infra.ReportConfig, logger *zap.Logger) (Store, error) {
	backend := strings.ToLower(cfg.Backend)
	logger.Info("initializing report backend", zap.String("backend", backend))

	switch backend {
	case "", "file", "local":
		return NewFileStore(cfg.Path, logger)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("report: postgres backend selected but dsn is empty")
		}
		return NewPostgresStore(cfg.DSN)
	default:
		return nil, fmt.Errorf("report: unsupported backend %q", cfg.Backend)
	}
}
