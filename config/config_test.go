package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
log_level: DEBUG
trace_dir: /var/log/traces
couplers:
  - name: can0
    class: SocketCAN
    interface: can0
    min_spacing_ms: 5
publishers:
  - name: tcp0
    class: TCP
    source: [can0]
    format: transparent
filters:
  - name: gnss_only
    class: NMEA0183Filter
    talker: GP
features:
  energy: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "DEBUG", cfg.LogLevel)
	require.Equal(t, "/var/log/traces", cfg.TraceDir)
	require.Len(t, cfg.Couplers, 1)
	require.Equal(t, "can0", cfg.Couplers[0].Name)
	require.Equal(t, "SocketCAN", cfg.Couplers[0].Class)
	require.Equal(t, "can0", cfg.Couplers[0].GetString("interface", ""))
	require.Equal(t, 5, cfg.Couplers[0].GetInt("min_spacing_ms", 0))
	require.Equal(t, []string{"can0"}, cfg.Publishers[0].GetStringList("source", nil))
	require.True(t, cfg.Features["energy"])
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
couplers: []
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "INFO", cfg.LogLevel)
	require.Equal(t, ".", cfg.TraceDir)
	require.False(t, cfg.DecodeDefinitionOnly)
}

func TestLoadInvalidLogLevel(t *testing.T) {
	path := writeConfig(t, `
log_level: LOUD
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsDuplicateObjectNames(t *testing.T) {
	path := writeConfig(t, `
couplers:
  - name: can0
    class: SocketCAN
publishers:
  - name: can0
    class: TCP
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadRejectsMissingClass(t *testing.T) {
	path := writeConfig(t, `
couplers:
  - name: can0
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestObjectAccessorsFallBackToDefault(t *testing.T) {
	obj := Object{Name: "x", Class: "Y", Params: map[string]any{}}
	require.Equal(t, "fallback", obj.GetString("missing", "fallback"))
	require.Equal(t, 42, obj.GetInt("missing", 42))
	require.True(t, obj.GetBool("missing", true))
	require.Equal(t, 1.5, obj.GetFloat("missing", 1.5))
}
