package cloud

import (
	"context"

	"github.com/xela07ax/hawkgrid/internal/domain"
)

// Provider — единый контракт облачного коллаборатора.
// Диспетчер и резолвер ничего не знают про конкретное облако:
// каждый бэкенд (AWS, Azure, статический дубль) реализует ровно
// эти три возможности и выбирается один раз на старте по конфигу.
type Provider interface {
	Name() string

	// DiscoverAssets возвращает инвентарь: пары
	// (волатильный сетевой идентификатор, ручка провайдера)
	DiscoverAssets(ctx context.Context) ([]domain.Asset, error)

	// Isolate применяет containment к источнику инцидента,
	// адресуясь через ProviderRef ассета. Ошибка означает, что реальное
	// действие не применилось — она перехватывается на границе диспетчера
	Isolate(ctx context.Context, incident domain.Incident, asset domain.Asset) (bool, error)
}
