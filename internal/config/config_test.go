package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathGivesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "steely.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app_name: shop
log_dir: /tmp/shop
debug: false
group_mode: false
addr: "127.0.0.1:9000"
redis_addr: "localhost:6379"
workers: "4"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "shop", cfg.AppName)
	assert.Equal(t, "/tmp/shop", cfg.LogDir)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.GroupMode)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, Default().QueueSize, cfg.QueueSize)
	assert.Equal(t, Default().CurlDir, cfg.CurlDir)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("colour: true\n"), &cfg)
	assert.Error(t, err)
}

func TestParseValidates(t *testing.T) {
	cfg := Default()
	err := Parse([]byte("queue_size: 0\n"), &cfg)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestParseEmptyDocument(t *testing.T) {
	cfg := Default()
	require.NoError(t, Parse([]byte(""), &cfg))
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
