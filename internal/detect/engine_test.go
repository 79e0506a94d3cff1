package detect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/features"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"go.uber.org/zap"
)

func canonicalThresholds() infra.ThresholdsConfig {
	return infra.ThresholdsConfig{
		BruteForceAuthCount: 40,
		PortScanCallFreq:    60,
		PortScanEgressMB:    50,
		ExfiltrationMB:      500,
		DDoSCallFreq:        150,
	}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	art, err := LoadArtifact("testdata/pipeline.json")
	require.NoError(t, err)
	return NewEngine(art, NewMapper(canonicalThresholds()), zap.NewNop())
}

func event(apiFreq, failedAuth, egress float64) domain.Event {
	return domain.Event{
		NodeID: "ec2-victim",
		Attributes: map[string]interface{}{
			"API_Call_Freq":     apiFreq,
			"Failed_Auth_Count": failedAuth,
			"Network_Egress_MB": egress,
		},
	}
}

func detectEvent(t *testing.T, e *Engine, ev domain.Event) domain.DetectionResult {
	t.Helper()
	names, err := e.FeatureNames()
	require.NoError(t, err)
	vec := features.NewAligner().Align(ev, names)
	res, err := e.Detect(vec, ev)
	require.NoError(t, err)
	return res
}

func TestDetectFloodIsAnomalous(t *testing.T) {
	e := testEngine(t)

	res := detectEvent(t, e, event(600, 0, 5))
	assert.True(t, res.IsAnomaly)
	assert.Equal(t, domain.AttackDDoS, res.AttackType)
	assert.Less(t, res.AnomalyScore, 0.0)
}

func TestDetectStringTypedFloodKeepsCategory(t *testing.T) {
	e := testEngine(t)

	// Сенсор прислал числа строками: обе стадии обязаны увидеть
	// одни и те же значения, а не разъехаться по категории
	ev := domain.Event{
		NodeID: "ec2-victim",
		Attributes: map[string]interface{}{
			"API_Call_Freq":     "600",
			"Failed_Auth_Count": "0",
			"Network_Egress_MB": "5",
		},
	}
	res := detectEvent(t, e, ev)
	assert.True(t, res.IsAnomaly)
	assert.Equal(t, domain.AttackDDoS, res.AttackType)
}

func TestDetectBruteForceIsAnomalous(t *testing.T) {
	e := testEngine(t)

	res := detectEvent(t, e, event(15, 60, 1))
	assert.True(t, res.IsAnomaly)
	assert.Equal(t, domain.AttackBruteForce, res.AttackType)
}

func TestDetectBenignTrafficIsNormal(t *testing.T) {
	e := testEngine(t)

	res := detectEvent(t, e, event(20, 0, 10))
	assert.False(t, res.IsAnomaly)
	assert.Equal(t, domain.AttackNormal, res.AttackType)
	// Конвенция знака: нормальное событие по положительную сторону нуля
	assert.Greater(t, res.AnomalyScore, 0.0)
}

func TestDetectFailsFastWithoutArtifact(t *testing.T) {
	e := NewEngine(nil, NewMapper(canonicalThresholds()), zap.NewNop())

	_, err := e.Detect(domain.FeatureVector{1, 2, 3}, event(1, 2, 3))
	assert.ErrorIs(t, err, ErrModelUnavailable)

	_, err = e.FeatureNames()
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, e.Ready())
}

func TestLoadArtifactValidation(t *testing.T) {
	_, err := LoadArtifact("testdata/missing.json")
	assert.Error(t, err)
}

func TestMapperSeverityPriority(t *testing.T) {
	m := NewMapper(canonicalThresholds())

	cases := []struct {
		name                        string
		apiFreq, failedAuth, egress float64
		want                        domain.AttackType
	}{
		// Событие, зацепившее и флуд, и разведку — всегда флуд
		{"flood wins over scan", 200, 0, 60, domain.AttackDDoS},
		{"flood wins over exfiltration", 200, 0, 600, domain.AttackDDoS},
		{"exfiltration wins over scan", 70, 0, 600, domain.AttackExfiltration},
		{"scan wins over brute force", 70, 50, 60, domain.AttackPortScan},
		{"brute force alone", 10, 50, 1, domain.AttackBruteForce},
		{"nothing specific", 10, 1, 1, domain.AttackGeneric},
		// Граничные значения не срабатывают (строго больше)
		{"at ddos boundary", 150, 0, 0, domain.AttackGeneric},
		{"at brute force boundary", 0, 40, 0, domain.AttackGeneric},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := m.Map(event(tc.apiFreq, tc.failedAuth, tc.egress))
			assert.Equal(t, tc.want, got)
		})
	}
}
