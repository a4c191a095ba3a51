package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DIRSTREAM_CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "/hub", cfg.Server.HubPath)
	require.Equal(t, 200*time.Millisecond, cfg.Stream.Pacing)
	require.Equal(t, 300*time.Millisecond, cfg.Fetch.Latency)
	require.Equal(t, 100*time.Millisecond, cfg.Fetch.LookupLatency)
	require.Equal(t, BackendMemory, cfg.Data.Backend)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DIRSTREAM_SERVER_PORT", "9090")
	t.Setenv("DIRSTREAM_STREAM_PACING", "15ms")
	t.Setenv("DIRSTREAM_DATA_BACKEND", "sqlite")
	t.Setenv("DIRSTREAM_DATA_PATH", "dir.db")
	t.Setenv("DIRSTREAM_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 15*time.Millisecond, cfg.Stream.Pacing)
	require.Equal(t, BackendSQLite, cfg.Data.Backend)
	require.Equal(t, "dir.db", cfg.Data.Path)
	require.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 7070
  hub_path: /stream
stream:
  pacing: 50ms
fetch:
  latency: 1s
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("DIRSTREAM_CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7070, cfg.Server.Port)
	require.Equal(t, "/stream", cfg.Server.HubPath)
	require.Equal(t, 50*time.Millisecond, cfg.Stream.Pacing)
	require.Equal(t, time.Second, cfg.Fetch.Latency)
	require.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "port", key: "DIRSTREAM_SERVER_PORT", value: "eighty"},
		{name: "pacing", key: "DIRSTREAM_STREAM_PACING", value: "soon"},
		{name: "backend", key: "DIRSTREAM_DATA_BACKEND", value: "postgres"},
		{name: "negative pacing", key: "DIRSTREAM_STREAM_PACING", value: "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
		})
	}
}
