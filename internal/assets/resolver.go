package assets

import (
	"context"
	"sync"

	"github.com/xela07ax/hawkgrid/internal/cloud"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// Resolver — кэш "сетевой идентификатор -> ассет".
// Hot path (Resolve) работает только с памятью под RLock-ом; discovery
// (Refresh) собирает новый снимок и атомарно подменяет таблицу.
// Чтения никогда не ждут идущего refresh-а и не видят полуобновленного состояния.
type Resolver struct {
	mu    sync.RWMutex
	table map[string]domain.Asset

	// Вклад каждого провайдера держим отдельно: упавший при refresh-е
	// провайдер не должен инвалидировать чужие ассеты
	byProvider map[string][]domain.Asset

	providers []cloud.Provider
	logger    *zap.Logger
}

func NewResolver(providers []cloud.Provider, logger *zap.Logger) *Resolver {
	return &Resolver{
		table:      make(map[string]domain.Asset),
		byProvider: make(map[string][]domain.Asset),
		providers:  providers,
		logger:     logger.Named("resolver"),
	}
}

// Refresh выполняет discovery-проход по всем провайдерам.
// Частичный сбой изолирован: ошибка провайдера логируется, его ПРЕЖНИЙ
// вклад сохраняется, остальные провайдеры обновляются как обычно.
func (r *Resolver) Refresh(ctx context.Context) {
	fresh := make(map[string][]domain.Asset, len(r.providers))

	for _, p := range r.providers {
		discovered, err := p.DiscoverAssets(ctx)
		if err != nil {
			r.logger.Warn("provider discovery failed, keeping previous contribution",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		fresh[p.Name()] = discovered
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Обновляем только успешные вклады
	for name, discovered := range fresh {
		r.byProvider[name] = discovered
	}

	// Пересобираем таблицу из всех вкладов
	table := make(map[string]domain.Asset)
	for _, contribution := range r.byProvider {
		for _, a := range contribution {
			table[a.Identifier] = a
		}
	}
	r.table = table

	r.logger.Info("asset table refreshed", zap.Int("assets", len(table)))
}

// Resolve — чистый lookup по текущему снимку таблицы.
// Промах кэша — не ошибка: возвращаем синтетический "unknown asset",
// диспетчер по CloudNone поймет, что действовать можно только advisory.
func (r *Resolver) Resolve(identifier string) domain.Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if a, ok := r.table[identifier]; ok {
		return a
	}
	return domain.UnknownAsset(identifier)
}

// Provider возвращает облачный бэкенд для данного облака (для диспетчера).
func (r *Resolver) Provider(kind domain.CloudKind) (cloud.Provider, bool) {
	for _, p := range r.providers {
		if p.Name() == string(kind) {
			return p, true
		}
	}
	return nil, false
}

// Count — размер текущей таблицы (для /status и консоли).
func (r *Resolver) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.table)
}
