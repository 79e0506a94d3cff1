package response

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	containedSetKey    = "hawkgrid:contained_set"
	containedSignalKey = "hawkgrid:containment-signal"
)

// ContainmentRegistry помнит узлы, по которым containment уже применен.
// Нужен для двух вещей: консоль показывает активные меры, а соседние
// ноды детекции узнают о блокировках через Redis Pub/Sub и не дергают
// облако повторно. Redis опционален: без него реестр чисто локальный.
type ContainmentRegistry struct {
	mu        sync.RWMutex
	contained map[string]struct{}
	rdb       *redis.Client // nil => standalone
	logger    *zap.Logger
}

func NewContainmentRegistry(rdb *redis.Client, logger *zap.Logger) *ContainmentRegistry {
	return &ContainmentRegistry{
		contained: make(map[string]struct{}),
		rdb:       rdb,
		logger:    logger.Named("containment-registry"),
	}
}

// Init загружает текущее состояние блокировок при старте сервиса.
func (m *ContainmentRegistry) Init(ctx context.Context) error {
	if m.rdb == nil {
		return nil
	}
	nodes, err := m.rdb.SMembers(ctx, containedSetKey).Result()
	if err != nil {
		return err
	}

	m.mu.Lock()
	for _, id := range nodes {
		m.contained[id] = struct{}{}
	}
	m.mu.Unlock()
	return nil
}

// MarkContained фиксирует успешный containment и оповещает соседей.
func (m *ContainmentRegistry) MarkContained(ctx context.Context, nodeID string) {
	m.mu.Lock()
	m.contained[nodeID] = struct{}{}
	m.mu.Unlock()

	if m.rdb == nil {
		return
	}
	if err := m.rdb.SAdd(ctx, containedSetKey, nodeID).Err(); err != nil {
		m.logger.Warn("failed to persist containment mark", zap.String("node_id", nodeID), zap.Error(err))
	}
	if err := m.rdb.Publish(ctx, containedSignalKey, nodeID+":on").Err(); err != nil {
		m.logger.Warn("failed to publish containment signal", zap.String("node_id", nodeID), zap.Error(err))
	}
}

// IsContained — дешевая in-memory проверка для hot path.
func (m *ContainmentRegistry) IsContained(nodeID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.contained[nodeID]
	return ok
}

// Contained возвращает снимок активных мер (для консоли).
func (m *ContainmentRegistry) Contained() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.contained))
	for id := range m.contained {
		out = append(out, id)
	}
	return out
}

// StartListener — "живучая" подписка на сигналы соседних нод.
// Переподключается при сбоях и синхронизирует состояние при каждом
// успешном коннекте.
func (m *ContainmentRegistry) StartListener(ctx context.Context) {
	if m.rdb == nil {
		return
	}

	for {
		pubsub := m.rdb.Subscribe(ctx, containedSignalKey)

		if _, err := pubsub.Receive(ctx); err != nil {
			m.logger.Error("failed to subscribe", zap.String("chan", containedSignalKey), zap.Error(err))
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case <-time.After(5 * time.Second):
			}
			continue
		}

		// Синхронизация при каждом успешном коннекте
		if err := m.Init(ctx); err != nil {
			m.logger.Error("sync failed on reconnect", zap.Error(err))
		}

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				m.processSignal(msg.Payload)
			}
		}

		pubsub.Close()
		time.Sleep(1 * time.Second)
	}
}

// processSignal разбирает формат "node_id:on" / "node_id:off".
func (m *ContainmentRegistry) processSignal(payload string) {
	id, state, ok := strings.Cut(payload, ":")
	if !ok || id == "" {
		m.logger.Error("invalid containment signal", zap.String("payload", payload))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if state == "on" {
		m.contained[id] = struct{}{}
	} else {
		delete(m.contained, id)
	}
}
