package handler

import (
	"encoding/json"
	"net/http"

	"github.com/xela07ax/hawkgrid/internal/ledger"
)

// ChainReader Описываем, что нам нужно от бэкенда леджера
type ChainReader interface {
	ReadAll() ([]ledger.Record, error)
}

type LedgerHandler struct {
	reader ChainReader
}

func NewLedgerHandler(reader ChainReader) *LedgerHandler {
	return &LedgerHandler{reader: reader}
}

// List возвращает блоки цепочки как есть
// GET /v1/ledger
func (h *LedgerHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.reader.ReadAll()
	if err != nil {
		http.Error(w, "Failed to read ledger", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []ledger.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}

// Verify пересчитывает дайджесты всей цепочки и проверяет связность
// GET /v1/ledger/verify
func (h *LedgerHandler) Verify(w http.ResponseWriter, r *http.Request) {
	records, err := h.reader.ReadAll()
	if err != nil {
		http.Error(w, "Failed to read ledger", http.StatusInternalServerError)
		return
	}

	resp := map[string]interface{}{
		"status":  "valid",
		"records": len(records),
	}
	if idx, verr := ledger.VerifyChain(records); verr != nil {
		resp["status"] = "broken"
		resp["broken_index"] = idx
		resp["detail"] = verr.Error()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
