package response

import (
	"context"
	"fmt"

	"github.com/xela07ax/hawkgrid/internal/cloud"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// ActionContainment — единственный поддерживаемый плейбук.
const ActionContainment = "AUTOMATED_CONTAINMENT"

// ProviderRegistry скрывает от диспетчера, откуда берутся облачные бэкенды.
// Реализуется assets.Resolver-ом.
type ProviderRegistry interface {
	Provider(kind domain.CloudKind) (cloud.Provider, bool)
}

// Dispatcher — центральный исполнитель плейбуков.
// Его главный инвариант: НИКАКАЯ ошибка провайдера не выходит наружу —
// любой сбой облачного вызова превращается в REAL_ACTION_FAILED.
// Порядок решения фиксирован:
//  1. незарегистрированный ассет -> SIMULATED (advisory only)
//  2. simulation mode -> SIMULATED, в облако не ходим
//  3. реальный вызов isolate через надежную обертку
//  4. неизвестный action -> UNSUPPORTED, провайдеры не трогаются
type Dispatcher struct {
	providers  ProviderRegistry
	reliable   *ReliableIsolator
	simulation bool
	logger     *zap.Logger
}

func NewDispatcher(providers ProviderRegistry, reliable *ReliableIsolator, simulation bool, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		providers:  providers,
		reliable:   reliable,
		simulation: simulation,
		logger:     logger.Named("dispatcher"),
	}
}

// Execute решает и исполняет (или имитирует) containment по инциденту.
func (d *Dispatcher) Execute(ctx context.Context, action string, incident domain.Incident, asset domain.Asset) domain.PlaybookResult {
	res := domain.PlaybookResult{
		PlaybookName: action,
		NodeID:       incident.NodeID,
	}

	// 1. Неизвестный ассет проверяем ДО симуляции: по незарегистрированной
	// цели реальных действий не бывает ни в каком режиме
	if asset.Cloud == domain.CloudNone {
		res.Status = domain.StatusSimulated
		res.Details = fmt.Sprintf("node %q is not a registered asset, advisory only", incident.NodeID)
		d.logger.Info("containment simulated: unknown asset", zap.String("node_id", incident.NodeID))
		return res
	}

	// 2. Режим симуляции: решение посчитано, действие не применяется
	if d.simulation {
		res.Status = domain.StatusSimulated
		res.Details = fmt.Sprintf("simulated action %q for node %q", action, incident.NodeID)
		d.logger.Info("containment simulated: simulation mode", zap.String("node_id", incident.NodeID))
		return res
	}

	// 3. Неподдерживаемый плейбук: провайдеры не трогаются
	if action != ActionContainment {
		res.Status = domain.StatusUnsupportedAction
		res.Details = fmt.Sprintf("playbook %q is not supported", action)
		return res
	}

	provider, ok := d.providers.Provider(asset.Cloud)
	if !ok {
		// Ассет прописан за облаком, бэкенд которого не сконфигурирован —
		// это сбой действия, а не ошибка запроса
		res.Status = domain.StatusRealActionFailed
		res.Details = fmt.Sprintf("no provider configured for cloud %q", asset.Cloud)
		d.logger.Error("containment failed: provider missing", zap.String("cloud", string(asset.Cloud)))
		return res
	}

	// 4. Реальный вызов через Retry/CB/Timeout. Ошибка ловится ЗДЕСЬ
	// и никогда не пробрасывается в обработку запроса
	if err := d.reliable.Isolate(ctx, provider, incident, asset); err != nil {
		res.Status = domain.StatusRealActionFailed
		res.Details = err.Error()
		d.logger.Error("containment failed",
			zap.String("node_id", incident.NodeID),
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
		return res
	}

	res.Status = domain.StatusRealActionSuccess
	res.Details = fmt.Sprintf("containment applied to %q via %s", incident.NodeID, provider.Name())
	d.logger.Warn("containment applied",
		zap.String("node_id", incident.NodeID),
		zap.String("provider", provider.Name()),
	)
	return res
}
