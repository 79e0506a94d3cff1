package cloud

import (
	"context"
	"fmt"
	"strings"

	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// StaticProvider отдает ассеты прямо из конфига и никуда не ходит.
// Standalone/демо режим: инвентарь известен заранее, containment
// только имитируется. Формат значения — "cloud:provider_ref".
type StaticProvider struct {
	assets []domain.Asset
	logger *zap.Logger
}

func NewStaticProvider(entries map[string]string, logger *zap.Logger) *StaticProvider {
	p := &StaticProvider{logger: logger.Named("static-provider")}
	for id, entry := range entries {
		cloud, ref, ok := strings.Cut(entry, ":")
		if !ok {
			p.logger.Warn("skipping malformed static asset", zap.String("id", id), zap.String("entry", entry))
			continue
		}
		p.assets = append(p.assets, domain.Asset{
			Identifier:  id,
			Cloud:       domain.CloudKind(cloud),
			ProviderRef: ref,
		})
	}
	return p
}

func (p *StaticProvider) Name() string { return "static" }

func (p *StaticProvider) DiscoverAssets(ctx context.Context) ([]domain.Asset, error) {
	out := make([]domain.Asset, len(p.assets))
	copy(out, p.assets)
	return out, nil
}

// Isolate у статического провайдера всегда "успешен", но ничего не делает.
func (p *StaticProvider) Isolate(ctx context.Context, incident domain.Incident, asset domain.Asset) (bool, error) {
	if asset.ProviderRef == "" {
		return false, fmt.Errorf("static: no provider ref for %s", incident.NodeID)
	}
	p.logger.Info("static isolation (no-op)",
		zap.String("node_id", incident.NodeID),
		zap.String("ref", asset.ProviderRef),
	)
	return true, nil
}
