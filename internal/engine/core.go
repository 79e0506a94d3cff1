package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/xela07ax/hawkgrid/internal/assets"
	"github.com/xela07ax/hawkgrid/internal/detect"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/features"
	"github.com/xela07ax/hawkgrid/internal/ledger"
	"github.com/xela07ax/hawkgrid/internal/report"
	"github.com/xela07ax/hawkgrid/internal/response"
	"go.uber.org/zap"
)

// Core — конвейер обработки одного окна телеметрии:
// выравнивание фич -> двухстадийная детекция -> (для аномалий)
// резолв актива -> плейбук -> форензик-леджер -> отчет.
// Каждое событие проходит конвейер ровно один раз, стадии не
// переупорядочиваются.
type Core struct {
	aligner    *features.Aligner
	detector   *detect.Engine
	resolver   *assets.Resolver
	dispatcher *response.Dispatcher
	registry   *response.ContainmentRegistry
	forensic   ledger.Ledger
	reports    report.Recorder
	metrics    *Metrics
	logger     *zap.Logger
}

func NewCore(
	aligner *features.Aligner,
	detector *detect.Engine,
	resolver *assets.Resolver,
	dispatcher *response.Dispatcher,
	registry *response.ContainmentRegistry,
	forensic ledger.Ledger,
	reports report.Recorder,
	metrics *Metrics,
	logger *zap.Logger,
) *Core {
	return &Core{
		aligner:    aligner,
		detector:   detector,
		resolver:   resolver,
		dispatcher: dispatcher,
		registry:   registry,
		forensic:   forensic,
		reports:    reports,
		metrics:    metrics,
		logger:     logger.With(zap.String("mod", "core")),
	}
}

// ProcessEvent гоняет событие через весь конвейер.
// Ошибка наружу уходит только при недоступной модели (fail-fast);
// сбои response-фазы и леджера деградируют внутри ответа.
func (c *Core) ProcessEvent(ctx context.Context, ev domain.Event) (domain.DetectResponse, error) {
	c.metrics.EventsTotal.Inc()
	start := time.Now()
	traceID := extractTraceID(ctx)

	outcome := "normal"
	defer func() {
		c.metrics.RequestDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	// 1. Выравнивание фич под порядок, ожидаемый моделью
	names, err := c.detector.FeatureNames()
	if err != nil {
		outcome = "error"
		return domain.DetectResponse{}, err
	}
	vec := c.aligner.Align(ev, names)

	// 2. Двухстадийная детекция: скоринг + классификация
	det, err := c.detector.Detect(vec, ev)
	if err != nil {
		outcome = "error"
		return domain.DetectResponse{}, err
	}

	resp := domain.DetectResponse{
		TraceID:   traceID,
		NodeID:    ev.NodeID,
		Detection: det,
	}

	if !det.IsAnomaly {
		c.recordReport(report.Report{
			ID:           uuid.New().String(),
			TraceID:      traceID,
			NodeID:       ev.NodeID,
			IsAnomaly:    false,
			AnomalyScore: det.AnomalyScore,
			AttackType:   det.AttackType,
			RawEvent:     ev.Raw(),
		})
		return resp, nil
	}

	outcome = "anomaly"
	c.metrics.AnomaliesTotal.WithLabelValues(string(det.AttackType)).Inc()

	// 3. Резолв актива: промах таблицы — это не ошибка, а сигнал
	// "актив неизвестен", диспетчер переведет его в симуляцию
	asset := c.resolver.Resolve(ev.NodeID)

	incident := domain.Incident{
		ID:           uuid.New().String(),
		TraceID:      traceID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		NodeID:       ev.NodeID,
		Cloud:        asset.Cloud,
		AnomalyScore: det.AnomalyScore,
		AttackType:   det.AttackType,
		RawEvent:     ev.Raw(),
	}

	// 4. Response-фаза: диспетчер никогда не возвращает ошибку,
	// все исходы закодированы в статусе результата
	pb := c.dispatcher.Execute(ctx, response.ActionContainment, incident, asset)
	resp.Response = &pb
	c.metrics.ContainmentTotal.WithLabelValues(string(pb.Status)).Inc()

	if pb.Status == domain.StatusRealActionSuccess || pb.Status == domain.StatusSimulated {
		c.registry.MarkContained(ctx, ev.NodeID)
	}

	// 5. Форензик-леджер: сбой записи не роняет ответ, но обязан быть
	// виден вызывающему как деградация
	ledgerStatus := &domain.LedgerStatus{Status: "ok"}
	rec, err := c.forensic.Append(incident, response.ActionContainment)
	if err != nil {
		c.metrics.LedgerFailures.Inc()
		c.logger.Error("forensic append failed, serving degraded response",
			zap.String("trace_id", traceID),
			zap.String("node_id", ev.NodeID),
			zap.Error(err),
		)
		ledgerStatus.Status = "failed"
	} else {
		c.metrics.LedgerAppends.Inc()
		ledgerStatus.Hash = rec.Hash
	}
	resp.Ledger = ledgerStatus

	c.recordReport(report.Report{
		ID:             uuid.New().String(),
		TraceID:        traceID,
		NodeID:         ev.NodeID,
		IsAnomaly:      true,
		AnomalyScore:   det.AnomalyScore,
		AttackType:     det.AttackType,
		RawEvent:       ev.Raw(),
		PlaybookName:   pb.PlaybookName,
		ResponseStatus: pb.Status,
		Details:        pb.Details,
		LedgerHash:     ledgerStatus.Hash,
	})

	return resp, nil
}

func (c *Core) recordReport(rep report.Report) {
	if c.reports != nil {
		c.reports.Record(rep)
	}
}

// HandleDetect — POST /v1/detect: принять окно телеметрии и прогнать конвейер.
func (c *Core) HandleDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()

	var ev domain.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed event payload"})
		return
	}

	resp, err := c.ProcessEvent(r.Context(), ev)
	if err != nil {
		if errors.Is(err, detect.ErrModelUnavailable) {
			// tip: без артефакта детекция бессмысленна — честный 503,
			// а не тихий пропуск трафика
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "model artifact not loaded, detection unavailable",
			})
			return
		}
		c.logger.Error("pipeline failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleStatus — GET /status: готовность модели и размер таблицы активов.
func (c *Core) HandleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"models_loaded":   c.detector.Ready(),
		"assets_resolved": c.resolver.Count(),
		"contained_nodes": len(c.registry.Contained()),
	}
	if names, err := c.detector.FeatureNames(); err == nil {
		status["feature_count"] = len(names)
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleHealth — GET /health: liveness.
func (c *Core) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
