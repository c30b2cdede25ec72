package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-service/pkg/model"
)

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "car.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":9000"
store = "sqlite"
stamp_mode = "legacy"
default_technician = "Bay 1"
image_cache_ttl = "1m"
`), 0o644))
	t.Setenv("CARSVC_STORE", "")
	t.Setenv("STAMP_MODE", "")
	t.Setenv("CARSVC_ADDR", ":9100")

	cfg, err := Load(flag.NewFlagSet("test", flag.ContinueOnError), []string{"-config", path, "-default-technician", "Bay 2"})
	require.NoError(t, err)
	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "Bay 2", cfg.DefaultTechnician)
	assert.Equal(t, time.Minute, cfg.ImageCacheTTL)
	assert.Equal(t, model.Settings{StampMode: model.StampLegacy, DefaultTechnician: "Bay 2"}, cfg.Settings())
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CARSVC_CONFIG", "")
	t.Setenv("CARSVC_ADDR", "")
	t.Setenv("CARSVC_STORE", "")
	t.Setenv("STAMP_MODE", "")
	cfg, err := Load(flag.NewFlagSet("test", flag.ContinueOnError), nil)
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 30*time.Second, cfg.ImageCacheTTL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Store = "Redis"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.StampMode = "sometimes"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.TLSCert = "cert.pem"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ImageCacheTTL = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.ImageCacheTTL = 0
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Store = " SQLite "
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "sqlite", cfg.Store)
}

func TestConfigPath(t *testing.T) {
	assert.Equal(t, "a.toml", configPath([]string{"-addr", ":1", "--config=a.toml"}))
	assert.Equal(t, "b.toml", configPath([]string{"-config", "b.toml"}))
	t.Setenv("CARSVC_CONFIG", "c.toml")
	assert.Equal(t, "c.toml", configPath(nil))
}
