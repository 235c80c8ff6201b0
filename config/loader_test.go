package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/returnnullptr/runa/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("RUNA_REDIS_ADDR", "localhost:6379")
	path := writeFile(t, dir, "runa.yaml", `
directory:
  remote_addr: directory.internal:443
  redis_addr: ${RUNA_REDIS_ADDR}
  cache_ttl: 1m
store:
  mongo_uri: mongodb://localhost:27017
  database: runa
  collection: messages
telemetry:
  debug: true
  format: json
`)

	cfg, err := config.Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "directory.internal:443", cfg.Directory.RemoteAddr)
	assert.Equal(t, "localhost:6379", cfg.Directory.RedisAddr)
	assert.Equal(t, "runa", cfg.Store.Database)
	assert.True(t, cfg.Telemetry.Debug)
	assert.Equal(t, path, cfg.ConfigPath())
}

func TestLoadNotFound(t *testing.T) {
	_, err := config.Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrConfigNotFound))
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runa.yaml", "directory: [this is not a map")

	_, err := config.Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidYAML))
}

func TestLoadValidationFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "runa.yaml", "telemetry:\n  format: xml\n")

	_, err := config.Load(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrValidationFailed))
}
