package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// FileLedger — локальный JSONL-бэкенд, один блок на строку.
// Единственный компонент системы со строгой гарантией порядка:
// чтение последнего хэша и аппенд нового блока держатся под одним
// мьютексом, иначе два конкурентных инцидента прочитают одинаковый
// previous_hash и цепочка раздвоится.
type FileLedger struct {
	mu     sync.Mutex
	path   string
	logger *zap.Logger
}

func NewFileLedger(path string, logger *zap.Logger) (*FileLedger, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger: file path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ledger: mkdir: %w", err)
	}
	return &FileLedger{path: path, logger: logger.Named("ledger-file")}, nil
}

// Append строит, запечатывает и дописывает новый блок одной атомарной
// записью. Контекст сюда намеренно не передается: начатый аппенд
// обязан дойти до диска, даже если вызывающий уже отменил запрос, —
// полузаписанная форензика хуже медленного ответа.
func (l *FileLedger) Append(incident domain.Incident, responseAction string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec := Record{
		Timestamp:      float64(time.Now().UnixNano()) / 1e9,
		Incident:       incident,
		ResponseAction: responseAction,
	}
	if err := seal(&rec, l.lastHash()); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	line, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}
	if err := f.Sync(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	l.logger.Info("forensic block appended", zap.String("hash", short(rec.Hash)))
	return rec, nil
}

// lastHash читает hash последнего блока. Отсутствие файла — genesis.
// Нечитаемый хвост — тоже genesis, но с логом высокой severity:
// доступность леджера важнее, чем остановка детекции, однако разрыв
// проверяемой непрерывности обязан быть виден оператору.
func (l *FileLedger) lastHash() string {
	data, err := os.ReadFile(l.path)
	if err != nil {
		// Нет файла — честный genesis; любой другой сбой чтения тоже
		// приводит к genesis, но это разрыв непрерывности — логируем громко
		if !os.IsNotExist(err) {
			l.logger.Error("ledger read failed, chain reset to genesis",
				zap.String("path", l.path),
				zap.Error(err),
			)
		}
		return GenesisHash
	}
	if len(data) == 0 {
		return GenesisHash
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var rec struct {
			Hash string `json:"hash"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err != nil || rec.Hash == "" {
			l.logger.Error("ledger tail unreadable, chain reset to genesis",
				zap.String("path", l.path),
				zap.Int("line", i+1),
			)
			return GenesisHash
		}
		return rec.Hash
	}
	return GenesisHash
}

// ReadAll возвращает все блоки файла (для верификации и консоли).
func (l *FileLedger) ReadAll() ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read: %w", err)
	}
	return ParseRecords(data)
}

func (l *FileLedger) Close() error { return nil }
