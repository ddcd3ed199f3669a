package hookconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadValidConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "hookbus.yml")

	validConfig := `version: "1.0"
name: broker
type: orchestrator
network:
  port: 5000
transports:
  - type: redis
    options:
      addr: "127.0.0.1:6379"
hooks:
  - name: worker-1
    type: agent
    command: "./worker"
    options:
      image: "worker:latest"
`
	require.NoError(t, os.WriteFile(configPath, []byte(validConfig), 0644))

	cfg, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "broker", cfg.Name)
	assert.Equal(t, 5000, cfg.Network.Port)
	require.Len(t, cfg.Transports, 1)
	assert.Equal(t, "redis", cfg.Transports[0].Type)
	require.Len(t, cfg.Hooks, 1)
	assert.Equal(t, "worker-1", cfg.Hooks[0].Name)

	opts := cfg.ToOptions()
	assert.Equal(t, "broker", opts.Name)
	assert.Equal(t, 5000, opts.Port)
	require.Len(t, opts.Transports, 1)
	require.Len(t, opts.Hooks, 1)
	assert.Equal(t, "worker-1", opts.Hooks[0].Name)
}

func TestLoadFileNotFound(t *testing.T) {
	cfg, err := Load("/nonexistent/hookbus.yml")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoadMissingPortAndSocket(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "hookbus.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(`version: "1.0"
name: broker
network: {}
`), 0644))

	_, err := Load(configPath)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "network.port or network.socket")
}
