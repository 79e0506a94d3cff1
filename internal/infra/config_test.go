package infra

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 9090, cfg.Server.MetricsPort)
	assert.Equal(t, "file", cfg.Ledger.Backend)
	assert.True(t, cfg.Response.SimulationMode)
	assert.Equal(t, 5*time.Minute, cfg.Assets.RefreshInterval)

	// Канонические пороги классификатора
	assert.Equal(t, 40.0, cfg.Thresholds.BruteForceAuthCount)
	assert.Equal(t, 60.0, cfg.Thresholds.PortScanCallFreq)
	assert.Equal(t, 50.0, cfg.Thresholds.PortScanEgressMB)
	assert.Equal(t, 500.0, cfg.Thresholds.ExfiltrationMB)
	assert.Equal(t, 150.0, cfg.Thresholds.DDoSCallFreq)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("LEDGER_BACKEND", "redis")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("RESPONSE_SIMULATION_MODE", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Ledger.Backend)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Response.SimulationMode)
}

func TestAuthKeyFromEnvData(t *testing.T) {
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----\nstub\n-----END PUBLIC KEY-----")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Contains(t, string(cfg.Auth.PublicKey), "BEGIN PUBLIC KEY")
}

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr("", 8080))
	assert.Equal(t, "127.0.0.1:9090", Addr("127.0.0.1", 9090))
}
