package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/hawkgrid/internal/console/handler"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/ledger"
	"github.com/xela07ax/hawkgrid/internal/report"
	"github.com/xela07ax/hawkgrid/internal/response"
	"go.uber.org/zap"
)

func newTestConsole(t *testing.T) (*ConsoleServer, *ledger.FileLedger, *report.FileStore) {
	t.Helper()
	logger := zap.NewNop()
	dir := t.TempDir()

	fl, err := ledger.NewFileLedger(filepath.Join(dir, "ledger.jsonl"), logger)
	require.NoError(t, err)
	store, err := report.NewFileStore(filepath.Join(dir, "reports.json"), logger)
	require.NoError(t, err)
	registry := response.NewContainmentRegistry(nil, logger)

	srv := NewConsoleServer(logger,
		handler.NewReportsHandler(store),
		handler.NewLedgerHandler(fl),
		handler.NewContainmentHandler(registry),
	)
	return srv, fl, store
}

func TestLedgerVerifyEndpoint(t *testing.T) {
	srv, fl, _ := newTestConsole(t)

	incident := domain.Incident{
		ID:         "inc-1",
		NodeID:     "10.0.5.21",
		Cloud:      domain.CloudAWS,
		AttackType: domain.AttackDDoS,
	}
	_, err := fl.Append(incident, "AUTOMATED_CONTAINMENT")
	require.NoError(t, err)
	_, err = fl.Append(incident, "AUTOMATED_CONTAINMENT")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ledger/verify", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "valid", resp["status"])
	assert.Equal(t, float64(2), resp["records"])
}

func TestReportsEndpointFilters(t *testing.T) {
	srv, _, store := newTestConsole(t)

	require.NoError(t, store.WriteBatch(context.Background(), []report.Report{
		{ID: "r1", NodeID: "node-a", AttackType: domain.AttackBruteForce, IsAnomaly: true},
		{ID: "r2", NodeID: "node-b", AttackType: domain.AttackNormal},
	}))

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/reports?node_id=node-a", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var reports []report.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	assert.Equal(t, "r1", reports[0].ID)

	// Невалидный limit — ошибка клиента
	rr2 := httptest.NewRecorder()
	srv.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/v1/reports?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr2.Code)
}

func TestEmptyLedgerAndContainment(t *testing.T) {
	srv, _, _ := newTestConsole(t)

	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/ledger", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())

	rr2 := httptest.NewRecorder()
	srv.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/v1/containment", nil))
	require.Equal(t, http.StatusOK, rr2.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &resp))
	assert.Equal(t, float64(0), resp["count"])
}
