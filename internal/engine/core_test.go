package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/hawkgrid/internal/assets"
	"github.com/xela07ax/hawkgrid/internal/cloud"
	"github.com/xela07ax/hawkgrid/internal/detect"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/features"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"github.com/xela07ax/hawkgrid/internal/ledger"
	"github.com/xela07ax/hawkgrid/internal/report"
	"github.com/xela07ax/hawkgrid/internal/response"
	"go.uber.org/zap"
)

type memReports struct {
	mu   sync.Mutex
	reps []report.Report
}

func (m *memReports) Record(rep report.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reps = append(m.reps, rep)
}

func (m *memReports) all() []report.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]report.Report(nil), m.reps...)
}

func testArtifact() *detect.Artifact {
	return &detect.Artifact{
		Features: []string{"rate", "sttl", "sbytes", "dbytes", "dur", "ct_srv_src"},
		Scaler: detect.Scaler{
			Mean:  []float64{18, 4, 12, 900, 0.8, 6},
			Scale: []float64{25, 12, 30, 2400, 1.6, 9},
		},
		Threshold: 3.0,
	}
}

func testThresholds() infra.ThresholdsConfig {
	return infra.ThresholdsConfig{
		BruteForceAuthCount: 40,
		PortScanCallFreq:    60,
		PortScanEgressMB:    50,
		ExfiltrationMB:      500,
		DDoSCallFreq:        150,
	}
}

type coreFixture struct {
	core    *Core
	ledger  *ledger.FileLedger
	reports *memReports
}

// newTestCore собирает конвейер в simulation mode с одним статическим активом.
func newTestCore(t *testing.T, art *detect.Artifact) coreFixture {
	t.Helper()
	logger := zap.NewNop()

	detector := detect.NewEngine(art, detect.NewMapper(testThresholds()), logger)

	static := cloud.NewStaticProvider(map[string]string{
		"10.0.5.21": "aws:sg-0abc123",
	}, logger)
	resolver := assets.NewResolver([]cloud.Provider{static}, logger)
	resolver.Refresh(context.Background())

	dispatcher := response.NewDispatcher(resolver, nil, true, logger)
	registry := response.NewContainmentRegistry(nil, logger)

	fl, err := ledger.NewFileLedger(filepath.Join(t.TempDir(), "ledger.jsonl"), logger)
	require.NoError(t, err)

	reps := &memReports{}
	core := NewCore(features.NewAligner(), detector, resolver, dispatcher, registry,
		fl, reps, NewMetrics(nil), logger)
	return coreFixture{core: core, ledger: fl, reports: reps}
}

func detectRequest(t *testing.T, core *Core, payload map[string]interface{}) (*httptest.ResponseRecorder, domain.DetectResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	TracingMiddleware(http.HandlerFunc(core.HandleDetect)).ServeHTTP(rr, req)

	var resp domain.DetectResponse
	if rr.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	}
	return rr, resp
}

func TestFloodEventIsContainedAndLedgered(t *testing.T) {
	fx := newTestCore(t, testArtifact())

	rr, resp := detectRequest(t, fx.core, map[string]interface{}{
		"node_id":           "10.0.5.21",
		"cloud_provider":    "aws",
		"API_Call_Freq":     600.0,
		"Failed_Auth_Count": 0.0,
		"Network_Egress_MB": 5.0,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Detection.IsAnomaly)
	assert.Negative(t, resp.Detection.AnomalyScore)
	assert.Equal(t, domain.AttackDDoS, resp.Detection.AttackType)

	require.NotNil(t, resp.Response)
	assert.Equal(t, domain.StatusSimulated, resp.Response.Status)
	assert.Equal(t, "AUTOMATED_CONTAINMENT", resp.Response.PlaybookName)

	require.NotNil(t, resp.Ledger)
	assert.Equal(t, "ok", resp.Ledger.Status)
	assert.Len(t, resp.Ledger.Hash, 64)

	records, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, ledger.GenesisHash, records[0].PreviousHash)
	assert.Equal(t, "AUTOMATED_CONTAINMENT", records[0].ResponseAction)
	assert.Equal(t, "10.0.5.21", records[0].Incident.NodeID)
}

func TestBruteForceClassification(t *testing.T) {
	fx := newTestCore(t, testArtifact())

	rr, resp := detectRequest(t, fx.core, map[string]interface{}{
		"node_id":           "10.0.5.21",
		"API_Call_Freq":     15.0,
		"Failed_Auth_Count": 60.0,
		"Network_Egress_MB": 1.0,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Detection.IsAnomaly)
	assert.Equal(t, domain.AttackBruteForce, resp.Detection.AttackType)
}

func TestBenignEventSkipsResponsePhase(t *testing.T) {
	fx := newTestCore(t, testArtifact())

	rr, resp := detectRequest(t, fx.core, map[string]interface{}{
		"node_id":           "10.0.5.21",
		"API_Call_Freq":     20.0,
		"Failed_Auth_Count": 0.0,
		"Network_Egress_MB": 10.0,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, resp.Detection.IsAnomaly)
	assert.Equal(t, domain.AttackNormal, resp.Detection.AttackType)
	assert.Nil(t, resp.Response)
	assert.Nil(t, resp.Ledger)

	// Нормальный трафик не оставляет форензик-следа
	records, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, records)

	// Но отчет пишется по каждому событию
	reps := fx.reports.all()
	require.Len(t, reps, 1)
	assert.False(t, reps[0].IsAnomaly)
}

func TestUnknownAssetFallsBackToSimulation(t *testing.T) {
	fx := newTestCore(t, testArtifact())

	rr, resp := detectRequest(t, fx.core, map[string]interface{}{
		"node_id":           "192.168.99.99", // нет в таблице активов
		"API_Call_Freq":     600.0,
		"Failed_Auth_Count": 0.0,
		"Network_Egress_MB": 5.0,
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, resp.Detection.IsAnomaly)
	require.NotNil(t, resp.Response)
	assert.Equal(t, domain.StatusSimulated, resp.Response.Status)

	// Леджер пишется даже при неизвестном активе
	require.NotNil(t, resp.Ledger)
	assert.Equal(t, "ok", resp.Ledger.Status)

	records, err := fx.ledger.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domain.CloudNone, records[0].Incident.Cloud)
}

func TestMissingModelReturns503(t *testing.T) {
	fx := newTestCore(t, nil) // артефакт не загружен

	rr, _ := detectRequest(t, fx.core, map[string]interface{}{
		"node_id":       "10.0.5.21",
		"API_Call_Freq": 600.0,
	})
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestMalformedBodyReturns400(t *testing.T) {
	fx := newTestCore(t, testArtifact())

	req := httptest.NewRequest(http.MethodPost, "/v1/detect", bytes.NewReader([]byte("{{{")))
	rr := httptest.NewRecorder()
	fx.core.HandleDetect(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStatusEndpoint(t *testing.T) {
	fx := newTestCore(t, testArtifact())

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rr := httptest.NewRecorder()
	fx.core.HandleStatus(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &status))
	assert.Equal(t, true, status["models_loaded"])
	assert.Equal(t, float64(6), status["feature_count"])
	assert.Equal(t, float64(1), status["assets_resolved"])
}

func TestTracingMiddlewarePropagatesHeader(t *testing.T) {
	var got string
	h := TracingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = extractTraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Trace-ID", "trace-abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "trace-abc", got)
	assert.Equal(t, "trace-abc", rr.Header().Get("X-Trace-ID"))

	// Без заголовка middleware генерирует новый UUID
	rr2 := httptest.NewRecorder()
	h.ServeHTTP(rr2, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rr2.Header().Get("X-Trace-ID"))
	assert.NotEqual(t, "trace-abc", rr2.Header().Get("X-Trace-ID"))
}
