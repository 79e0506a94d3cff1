package detect

import (
	"errors"

	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// ErrModelUnavailable — артефакт модели не загружен.
// Детекция обязана падать быстро и явно: сфабрикованный "NORMAL"
// хуже честного 503 на стороне сервиса.
var ErrModelUnavailable = errors.New("detect: model artifact is not loaded")

// Engine — двухстадийный движок детекции.
// Стадия 1 (unsupervised): скорер по масштабированному вектору решает,
// аномалия ли это вообще. Стадия 2 (rules): только для аномалий Mapper
// по сырым атрибутам присваивает категорию атаки.
type Engine struct {
	art    *Artifact // nil, если загрузка на старте не удалась
	mapper *Mapper
	logger *zap.Logger
}

func NewEngine(art *Artifact, mapper *Mapper, logger *zap.Logger) *Engine {
	return &Engine{art: art, mapper: mapper, logger: logger.Named("detect")}
}

// Ready сообщает, загружен ли артефакт (для /status).
func (e *Engine) Ready() bool {
	return e.art != nil
}

// FeatureNames отдает порядок фич текущего артефакта для Aligner-а.
func (e *Engine) FeatureNames() ([]string, error) {
	if e.art == nil {
		return nil, ErrModelUnavailable
	}
	return e.art.Features, nil
}

// Detect прогоняет выровненный вектор через обе стадии.
// Сырое событие нужно только второй стадии: правила работают
// по немасштабированным атрибутам.
func (e *Engine) Detect(vec domain.FeatureVector, ev domain.Event) (domain.DetectionResult, error) {
	if e.art == nil {
		return domain.DetectionResult{}, ErrModelUnavailable
	}

	scaled := e.art.Transform(vec)
	score := e.art.Score(scaled)

	res := domain.DetectionResult{
		AnomalyScore: score,
		AttackType:   domain.AttackNormal,
	}

	if score < 0 {
		res.IsAnomaly = true
		res.AttackType = e.mapper.Map(ev)
		e.logger.Warn("anomaly detected",
			zap.String("node_id", ev.NodeID),
			zap.Float64("score", score),
			zap.String("attack_type", string(res.AttackType)),
		)
	}
	return res, nil
}
