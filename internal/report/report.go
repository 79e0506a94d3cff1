package report

/*
Файл report.go реализует асинхронный сборщик итоговых отчетов пайплайна.

Ключевые особенности архитектуры:
- Non-blocking Logging: события уходят из Hot Path детекции через
  неблокирующий канал — задержки стора не влияют на Response Time.
- Batching & Efficiency: накопление в памяти и пакетная запись
  по таймеру или при достижении лимита батча.
- Drain Pattern & Graceful Shutdown: при остановке буфер вычитывается
  полностью (Final Flush), потерь при перезагрузке нет.
- Reliability: сбой стора изолирован в воркере, наружу не эскалируется.
*/

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xela07ax/hawkgrid/internal/domain"
	"go.uber.org/zap"
)

// Report — итоговая запись по одному обработанному событию телеметрии.
type Report struct {
	ID           string            `json:"id"`       // UUID отчета
	TraceID      string            `json:"trace_id"` // Сквозной ID запроса
	NodeID       string            `json:"node_id"`
	Timestamp    time.Time         `json:"timestamp"`
	IsAnomaly    bool              `json:"is_anomaly"`
	AnomalyScore float64           `json:"anomaly_score"`
	AttackType   domain.AttackType `json:"attack_type"`

	// Снимок исходного события: отчет самодостаточен для разбора
	RawEvent map[string]interface{} `json:"raw_event,omitempty"`

	// Результат response-фазы; пустой для нормального трафика
	PlaybookName   string                `json:"playbook_name,omitempty"`
	ResponseStatus domain.ResponseStatus `json:"response_status,omitempty"`
	Details        string                `json:"details,omitempty"`
	LedgerHash     string                `json:"ledger_hash,omitempty"`
}

// Store определяет, куда физически сохраняются отчеты
type Store interface {
	// WriteBatch сохраняет пачку отчетов за один раз
	WriteBatch(ctx context.Context, reports []Report) error
	// List возвращает сохраненные отчеты с опциональными фильтрами
	List(ctx context.Context, nodeID string, attackType string, limit int) ([]Report, error)
}

type Recorder interface {
	Record(rep Report)
}

const (
	defaultBufferSize = 10000
	batchLimit        = 100
)

type Writer struct {
	ch            chan Report
	store         Store
	logger        *zap.Logger
	wg            sync.WaitGroup
	flushInterval time.Duration
	// Атомарный флаг (0 - открыт, 1 - закрыт): защита от Record после остановки
	isClosed int32
}

func NewWriter(store Store, bufferSize int, flushInterval time.Duration, logger *zap.Logger) *Writer {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if flushInterval <= 0 {
		flushInterval = 500 * time.Millisecond
	}
	return &Writer{
		ch:            make(chan Report, bufferSize),
		store:         store,
		flushInterval: flushInterval,
		logger:        logger.With(zap.String("mod", "report")),
	}
}

func (w *Writer) Start() {
	w.wg.Add(1)
	go w.worker()
}

// Stop «запирает» вход в канал и ждет, пока воркер всё допишет.
func (w *Writer) Stop() {
	// 1. Сначала ставим флаг
	atomic.StoreInt32(&w.isClosed, 1)

	// 2. Даем крошечную паузу, чтобы текущие Record успели проскочить
	time.Sleep(10 * time.Millisecond)

	// 3. Закрываем (Drain Pattern): завершение воркера — исключительно через закрытие канала
	w.logger.Info("stopping report writer: closing channel and flushing buffer...")
	close(w.ch)
	w.wg.Wait()
	w.logger.Info("report writer stopped gracefully")
}

func (w *Writer) Record(rep Report) {
	// Убеждаемся, что таймстемп всегда проставлен
	if rep.Timestamp.IsZero() {
		rep.Timestamp = time.Now().UTC()
	}

	// Атомарно проверяем, не закрыт ли канал
	if atomic.LoadInt32(&w.isClosed) == 1 {
		w.logger.Warn("report dropped: writer is stopping", zap.String("id", rep.ID))
		return
	}

	// Стратегия Load Shedding: при переполнении буфера (Backpressure)
	// пишем в стандартный логгер, чтобы не терять данные полностью
	select {
	case w.ch <- rep:
	default:
		w.logger.Error("report_buffer_overflow",
			zap.String("node_id", rep.NodeID),
			zap.String("trace_id", rep.TraceID),
		)
	}
}

func (w *Writer) worker() {
	defer w.wg.Done()

	batch := make([]Report, 0, batchLimit)
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) > 0 {
			// Background: основной контекст на shutdown может быть уже закрыт
			if err := w.store.WriteBatch(context.Background(), batch); err != nil {
				w.logger.Error("report flush failed", zap.Error(err))
			}
			batch = batch[:0]
		}
	}

	for {
		select {
		case rep, ok := <-w.ch:
			if !ok {
				// Канал закрыт в Stop(): воркер сначала вычитал остатки
				// очереди, теперь финальный сброс и выход
				flush()
				w.logger.Info("report worker finished")
				return
			}
			batch = append(batch, rep)
			if len(batch) >= batchLimit {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
