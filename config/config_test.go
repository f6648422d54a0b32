package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aggr.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := New()
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "snappy", cfg.Store.Compression)
	require.Equal(t, 4, cfg.Partitions)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
log:
  level: debug
store:
  compression: zstd
partitions: 8
`))
	require.NoError(t, err)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "zstd", cfg.Store.Compression)
	require.Equal(t, "./data", cfg.Store.Path)
	require.Equal(t, 8, cfg.Partitions)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "partitions: [1"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "partitions: 0"))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "store:\n  path: \"\"\n"))
	require.Error(t, err)
}
