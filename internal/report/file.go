package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// FileStore хранит отчеты одним JSON-массивом (read-modify-write).
// Уместен для standalone-режима; при больших объемах конфигом
// выбирается postgres-бэкенд.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("report: file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("report: mkdir: %w", err)
	}
	return &FileStore{path: path, logger: logger.Named("report-file")}, nil
}

func (s *FileStore) WriteBatch(_ context.Context, reports []Report) error {
	if len(reports) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.readAllLocked()
	existing = append(existing, reports...)

	data, err := json.MarshalIndent(existing, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("report: write: %w", err)
	}
	return nil
}

func (s *FileStore) List(_ context.Context, nodeID, attackType string, limit int) ([]Report, error) {
	s.mu.Lock()
	all := s.readAllLocked()
	s.mu.Unlock()

	out := make([]Report, 0, len(all))
	// Свежие отчеты первыми
	for i := len(all) - 1; i >= 0; i-- {
		rep := all[i]
		if nodeID != "" && rep.NodeID != nodeID {
			continue
		}
		if attackType != "" && string(rep.AttackType) != attackType {
			continue
		}
		out = append(out, rep)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// readAllLocked читает текущий массив. Битый или отсутствующий файл —
// начинаем с пустого массива, но о битом сообщаем: отчеты вторичны
// относительно леджера, терять доступность из-за них нельзя.
func (s *FileStore) readAllLocked() []Report {
	data, err := os.ReadFile(s.path)
	if err != nil || len(data) == 0 {
		return nil
	}
	var out []Report
	if err := json.Unmarshal(data, &out); err != nil {
		s.logger.Error("report file unreadable, starting fresh array",
			zap.String("path", s.path), zap.Error(err))
		return nil
	}
	return out
}
