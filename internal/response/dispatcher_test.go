package response

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xela07ax/hawkgrid/internal/cloud"
	"github.com/xela07ax/hawkgrid/internal/domain"
	"github.com/xela07ax/hawkgrid/internal/infra"
	"go.uber.org/zap"
)

type stubProvider struct {
	name  string
	calls int
	err   error
	ok    bool
	delay time.Duration
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) DiscoverAssets(ctx context.Context) ([]domain.Asset, error) {
	return nil, nil
}

func (s *stubProvider) Isolate(ctx context.Context, incident domain.Incident, asset domain.Asset) (bool, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return s.ok, s.err
}

type stubRegistry struct {
	provider cloud.Provider
}

func (s *stubRegistry) Provider(kind domain.CloudKind) (cloud.Provider, bool) {
	if s.provider != nil && s.provider.Name() == string(kind) {
		return s.provider, true
	}
	return nil, false
}

func respCfg() infra.ResponseConfig {
	return infra.ResponseConfig{
		ContainmentTimeout: 200 * time.Millisecond,
		CBMaxRequests:      3,
		CBInterval:         0,
		CBTimeout:          time.Second,
	}
}

func newDispatcher(p cloud.Provider, simulation bool) *Dispatcher {
	return NewDispatcher(&stubRegistry{provider: p}, NewReliableIsolator(respCfg(), nil), simulation, zap.NewNop())
}

func incident(nodeID string) domain.Incident {
	return domain.Incident{ID: "inc-1", NodeID: nodeID, AttackType: domain.AttackDDoS}
}

func TestExecuteUnknownAssetNeverCallsProvider(t *testing.T) {
	p := &stubProvider{name: "aws", ok: true}
	d := newDispatcher(p, false)

	res := d.Execute(context.Background(), ActionContainment, incident("ghost"), domain.UnknownAsset("ghost"))

	assert.Equal(t, domain.StatusSimulated, res.Status)
	assert.Contains(t, res.Details, "not a registered asset")
	assert.Zero(t, p.calls)
}

func TestExecuteSimulationModeSkipsProvider(t *testing.T) {
	p := &stubProvider{name: "aws", ok: true}
	d := newDispatcher(p, true)
	asset := domain.Asset{Identifier: "52.10.0.1", Cloud: domain.CloudAWS, ProviderRef: "sg-0abc"}

	res := d.Execute(context.Background(), ActionContainment, incident("52.10.0.1"), asset)

	assert.Equal(t, domain.StatusSimulated, res.Status)
	assert.Zero(t, p.calls)
}

func TestExecuteRealActionSuccess(t *testing.T) {
	p := &stubProvider{name: "aws", ok: true}
	d := newDispatcher(p, false)
	asset := domain.Asset{Identifier: "52.10.0.1", Cloud: domain.CloudAWS, ProviderRef: "sg-0abc"}

	res := d.Execute(context.Background(), ActionContainment, incident("52.10.0.1"), asset)

	assert.Equal(t, domain.StatusRealActionSuccess, res.Status)
	assert.Equal(t, 1, p.calls)
}

func TestExecuteProviderErrorBecomesRealActionFailed(t *testing.T) {
	p := &stubProvider{name: "aws", err: errors.New("api throttled")}
	d := newDispatcher(p, false)
	asset := domain.Asset{Identifier: "52.10.0.1", Cloud: domain.CloudAWS, ProviderRef: "sg-0abc"}

	res := d.Execute(context.Background(), ActionContainment, incident("52.10.0.1"), asset)

	// Ошибка провайдера не пробрасывается — только статус с причиной
	assert.Equal(t, domain.StatusRealActionFailed, res.Status)
	assert.Contains(t, res.Details, "api throttled")
	assert.GreaterOrEqual(t, p.calls, 1) // были ретраи
}

func TestExecuteProviderTimeoutBecomesRealActionFailed(t *testing.T) {
	p := &stubProvider{name: "aws", ok: true, delay: 2 * time.Second}
	d := newDispatcher(p, false)
	asset := domain.Asset{Identifier: "52.10.0.1", Cloud: domain.CloudAWS, ProviderRef: "sg-0abc"}

	res := d.Execute(context.Background(), ActionContainment, incident("52.10.0.1"), asset)

	assert.Equal(t, domain.StatusRealActionFailed, res.Status)
}

func TestExecuteUnsupportedAction(t *testing.T) {
	p := &stubProvider{name: "aws", ok: true}
	d := newDispatcher(p, false)
	asset := domain.Asset{Identifier: "52.10.0.1", Cloud: domain.CloudAWS, ProviderRef: "sg-0abc"}

	res := d.Execute(context.Background(), "REBOOT_EVERYTHING", incident("52.10.0.1"), asset)

	assert.Equal(t, domain.StatusUnsupportedAction, res.Status)
	assert.Zero(t, p.calls)
}

func TestExecuteMissingProviderBackend(t *testing.T) {
	d := NewDispatcher(&stubRegistry{}, NewReliableIsolator(respCfg(), nil), false, zap.NewNop())
	asset := domain.Asset{Identifier: "10.0.0.7", Cloud: domain.CloudAzure, ProviderRef: "vm-a-nsg"}

	res := d.Execute(context.Background(), ActionContainment, incident("10.0.0.7"), asset)

	assert.Equal(t, domain.StatusRealActionFailed, res.Status)
	assert.Contains(t, res.Details, "no provider configured")
}

func TestIsolatorReportsBreakerOpening(t *testing.T) {
	var mu sync.Mutex
	var opened bool
	iso := NewReliableIsolator(respCfg(), func(name string, open bool) {
		mu.Lock()
		defer mu.Unlock()
		if open {
			opened = true
		}
	})

	p := &stubProvider{name: "aws", err: errors.New("api down")}
	asset := domain.Asset{Identifier: "52.10.0.1", Cloud: domain.CloudAWS, ProviderRef: "sg-0abc"}

	// Шесть отказов подряд выбивают предохранитель
	for i := 0; i < 6; i++ {
		err := iso.Isolate(context.Background(), p, incident("52.10.0.1"), asset)
		assert.Error(t, err)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, opened)
}

func TestContainmentRegistryLocalMode(t *testing.T) {
	m := NewContainmentRegistry(nil, zap.NewNop())

	assert.False(t, m.IsContained("node-a"))
	m.MarkContained(context.Background(), "node-a")
	assert.True(t, m.IsContained("node-a"))
	assert.ElementsMatch(t, []string{"node-a"}, m.Contained())

	m.processSignal("node-a:off")
	assert.False(t, m.IsContained("node-a"))
}
