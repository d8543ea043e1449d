package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int32(10), cfg.Store.MaxConns)
	assert.Equal(t, 8, cfg.Import.MaxParallelResolve)
	assert.InDelta(t, 0.90, cfg.Import.MinValidRate, 1e-9)

	assert.InDelta(t, 0.30, cfg.Trust.IdentifierWeight, 1e-9)
	assert.InDelta(t, 0.25, cfg.Trust.SourceWeight, 1e-9)
	assert.InDelta(t, 0.20, cfg.Trust.DataWeight, 1e-9)
	assert.InDelta(t, 0.15, cfg.Trust.ConsistencyWeight, 1e-9)
	assert.InDelta(t, 0.10, cfg.Trust.ReputationWeight, 1e-9)
	assert.InDelta(t, 0.15, cfg.Trust.DriftThreshold, 1e-9)
	assert.Equal(t, 365, cfg.Trust.BlacklistWindowDays)

	assert.InDelta(t, 0.5, cfg.Sources.DefaultAuthority, 1e-9)
	assert.Equal(t, 3, cfg.Fetch.MaxRetries)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VESSELMDM_IMPORT_MIN_VALID_RATE", "0.75")
	t.Setenv("VESSELMDM_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.75, cfg.Import.MinValidRate, 1e-9)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestAuthorityFor(t *testing.T) {
	s := SourcesConfig{
		Authority:        map[string]float64{"eu_fleet": 0.9},
		DefaultAuthority: 0.5,
	}

	assert.InDelta(t, 0.9, s.AuthorityFor("eu_fleet"), 1e-9)
	assert.InDelta(t, 0.9, s.AuthorityFor("EU_Fleet"), 1e-9)
	assert.InDelta(t, 0.5, s.AuthorityFor("unknown_registry"), 1e-9)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "verbose", Format: "json"}))
}
