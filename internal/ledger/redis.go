package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// RedisLedger пишет цепочку в Redis Stream: XADD дает монотонные ID,
// последний блок читается одним XREVRANGE. Бэкенд для установок, где
// несколько сервисов хотят видеть общий журнал; алгоритм и инварианты
// те же, что у файла.
type RedisLedger struct {
	mu     sync.Mutex
	rdb    *redis.Client
	stream string
	logger *zap.Logger
}

func NewRedisLedger(rdb *redis.Client, stream string, logger *zap.Logger) *RedisLedger {
	return &RedisLedger{
		rdb:    rdb,
		stream: stream,
		logger: logger.Named("ledger-redis"),
	}
}

func (l *RedisLedger) Append(incident domain.Incident, responseAction string) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := Record{
		Timestamp:      float64(time.Now().UnixNano()) / 1e9,
		Incident:       incident,
		ResponseAction: responseAction,
	}
	if err := seal(&rec, l.lastHash(ctx)); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	if err := l.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: l.stream,
		Values: map[string]interface{}{"record": string(payload)},
	}).Err(); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrLedgerWrite, err)
	}

	l.logger.Info("forensic block appended", zap.String("hash", short(rec.Hash)))
	return rec, nil
}

func (l *RedisLedger) lastHash(ctx context.Context) string {
	entries, err := l.rdb.XRevRangeN(ctx, l.stream, "+", "-", 1).Result()
	if err != nil {
		// Транзиентный сбой чтения — тоже разрыв непрерывности цепочки,
		// оператор должен его увидеть, а не узнать при верификации
		l.logger.Error("ledger read failed, chain reset to genesis",
			zap.String("stream", l.stream),
			zap.Error(err),
		)
		return GenesisHash
	}
	if len(entries) == 0 {
		return GenesisHash
	}

	raw, ok := entries[0].Values["record"].(string)
	if !ok {
		l.logger.Error("ledger tail unreadable, chain reset to genesis", zap.String("stream", l.stream))
		return GenesisHash
	}
	var rec struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal([]byte(raw), &rec); err != nil || rec.Hash == "" {
		l.logger.Error("ledger tail unreadable, chain reset to genesis", zap.String("stream", l.stream))
		return GenesisHash
	}
	return rec.Hash
}

// ReadAll вычитывает весь стрим в порядке аппенда (для верификации и консоли).
func (l *RedisLedger) ReadAll() ([]Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	entries, err := l.rdb.XRange(ctx, l.stream, "-", "+").Result()
	if err != nil {
		return nil, fmt.Errorf("ledger: read stream: %w", err)
	}

	out := make([]Record, 0, len(entries))
	for _, entry := range entries {
		raw, ok := entry.Values["record"].(string)
		if !ok {
			return out, fmt.Errorf("ledger: entry %s has no record field", entry.ID)
		}
		var rec Record
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return out, fmt.Errorf("ledger: entry %s: %w", entry.ID, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (l *RedisLedger) Close() error { return nil }
