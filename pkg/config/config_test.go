package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mwmrouter.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
router:
  snap_radius_m: 250
service:
  workers: 2
generator:
  regions:
    - {name: solo, min_lat: -7.65, min_lon: 110.70, max_lat: -7.45, max_lon: 110.95}
    - {name: jogja, min_lat: -7.95, min_lon: 110.25, max_lat: -7.65, max_lon: 110.55}
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 250.0, cfg.Router.SnapRadiusM)
	assert.Equal(t, 10, cfg.Router.MaxRoadCandidates)
	assert.Equal(t, 2, cfg.Service.Workers)
	require.Len(t, cfg.Generator.Regions, 2)
	assert.Equal(t, 110.95, cfg.Generator.Regions[0].Rect().MaxLon)
}

func TestValidateRejects(t *testing.T) {
	cfg := Default()
	cfg.Router.SnapRadiusM = 0
	cfg.Service.Workers = -1
	cfg.Generator.Regions = []RegionBounds{
		{Name: "a", MinLat: 1, MinLon: 1, MaxLat: 0, MaxLon: 2},
		{Name: "b", MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1},
		{Name: "b", MinLat: 0, MinLon: 0, MaxLat: 1, MaxLon: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snap_radius_m")
	assert.Contains(t, err.Error(), "service.workers")
	assert.Contains(t, err.Error(), "region a has an empty bounding box")
	assert.Contains(t, err.Error(), "region b declared twice")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
