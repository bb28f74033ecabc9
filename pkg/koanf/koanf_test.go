package koanf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type nested struct {
	Token    string        `koanf:"token"`
	Interval time.Duration `koanf:"interval"`
}

type testConfig struct {
	Name   string     `koanf:"name"`
	Nested nested     `koanf:"nested"`
	Http   HttpServer `koanf:"http"`
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("koanftest", testConfig{
		Name:   "default",
		Nested: nested{Interval: time.Second},
		Http:   HttpServer{Address: "localhost:8000"},
	})
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, time.Second, cfg.Nested.Interval)
	require.Equal(t, "localhost:8000", cfg.Http.Address)
}

func TestLoadLayering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
name = "from-file"

[nested]
token = "file-token"
interval = "3s"
`), 0o600))

	t.Setenv("KOANFTEST_CONFIG_FILE", path)
	t.Setenv("KOANFTEST_NESTED__TOKEN", "env-token")
	t.Setenv("KOANFTEST_HTTP__ADDRESS", "0.0.0.0:9000")

	cfg, err := Load("koanftest", testConfig{Name: "default", Nested: nested{Interval: time.Second}})
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.Name)
	require.Equal(t, "env-token", cfg.Nested.Token)
	require.Equal(t, 3*time.Second, cfg.Nested.Interval)
	require.Equal(t, "0.0.0.0:9000", cfg.Http.Address)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("KOANFTEST_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load("koanftest", testConfig{})
	require.Error(t, err)

	require.Panics(t, func() {
		Provide("koanftest", testConfig{})
	})
}

func TestPostgresEnabled(t *testing.T) {
	require.False(t, Postgres{}.Enabled())
	require.True(t, Postgres{Host: "localhost"}.Enabled())
}
