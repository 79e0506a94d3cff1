package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xela07ax/hawkgrid/internal/report"
)

// ReportStore Описываем, что нам нужно от хранилища отчетов
type ReportStore interface {
	List(ctx context.Context, nodeID string, attackType string, limit int) ([]report.Report, error)
}

type ReportsHandler struct {
	store ReportStore
}

func NewReportsHandler(store ReportStore) *ReportsHandler {
	return &ReportsHandler{store: store}
}

// List возвращает отчеты пайплайна с поддержкой фильтрации
// GET /v1/reports?node_id=...&attack_type=...&limit=...
func (h *ReportsHandler) List(w http.ResponseWriter, r *http.Request) {
	// Извлекаем фильтры из Query-параметров
	nodeID := r.URL.Query().Get("node_id")
	attackType := r.URL.Query().Get("attack_type")

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	reports, err := h.store.List(r.Context(), nodeID, attackType, limit)
	if err != nil {
		http.Error(w, "Failed to fetch reports", http.StatusInternalServerError)
		return
	}
	if reports == nil {
		reports = []report.Report{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(reports)
}
