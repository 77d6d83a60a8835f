package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")
	t.Setenv("VOXEL_SEED", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesFromYAML(t *testing.T) {
	t.Setenv("VOXEL_SEED", "")

	path := filepath.Join(t.TempDir(), "voxel.yaml")
	data := []byte(`
world:
  seed: 42
  activation_radius: 3
  deactivation_radius: 5
  max_active_chunks: 64
storage:
  backend: badger
  path: /tmp/chunks
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), cfg.World.Seed)
	assert.Equal(t, 3, cfg.World.ActivationRadius)
	assert.Equal(t, 5, cfg.World.DeactivationRadius)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	// Не заданные поля остаются по умолчанию
	assert.True(t, cfg.Storage.Compress)
}

func TestSeedFromEnv(t *testing.T) {
	t.Setenv("VOXEL_CONFIG", "")
	t.Setenv("VOXEL_SEED", "99")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, uint32(99), cfg.World.Seed)
}

func TestValidateRejectsBadRadii(t *testing.T) {
	cfg := Default()
	cfg.World.DeactivationRadius = cfg.World.ActivationRadius
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.World.MaxActiveChunks = 0
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Storage.Backend = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestValidateEvents(t *testing.T) {
	cfg := Default()
	cfg.Events.Backend = ""
	assert.NoError(t, cfg.Validate())

	cfg.Events.Backend = EventsNATS
	assert.Error(t, cfg.Validate(), "nats без url")

	cfg.Events.URL = "nats://127.0.0.1:4222"
	assert.NoError(t, cfg.Validate())

	cfg.Events.Backend = "kafka"
	assert.Error(t, cfg.Validate())
}

func TestPortFallback(t *testing.T) {
	s := ServerConfig{}
	t.Setenv("VOXEL_DEBUG_PORT", "9999")
	assert.Equal(t, 9999, s.GetDebugPort())

	t.Setenv("VOXEL_METRICS_PORT", "")
	assert.Equal(t, 2112, s.GetMetricsPort())

	s.DebugPort = 7000
	assert.Equal(t, 7000, s.GetDebugPort())
}
