package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"ServerAddr", cfg.Server.Addr, "127.0.0.1:8080"},
		{"Backend", cfg.Store.Backend, BackendSQLite},
		{"RedisAddr", cfg.Store.RedisAddr, "localhost:6379"},
		{"RedisDB", cfg.Store.RedisDB, 0},
		{"Watch", cfg.Templates.Watch, false},
		{"BaseURL", cfg.Client.BaseURL, "http://127.0.0.1:8080"},
		{"Timeout", cfg.Client.Timeout, 10 * time.Second},
		{"Autosave", cfg.Autosave.Interval, 30 * time.Second},
		{"Role", cfg.ViewerRole(), domain.RoleStaff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Equal(t, "flowdesk.db", filepath.Base(cfg.Store.SQLitePath))
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FLOWDESK_STORE_BACKEND", "redis")
	t.Setenv("FLOWDESK_STORE_REDIS_DB", "4")
	t.Setenv("FLOWDESK_AUTOSAVE_INTERVAL", "5s")
	t.Setenv("FLOWDESK_ROLE", "Customer")
	t.Setenv("FLOWDESK_TEMPLATES_WATCH", "true")

	v := viper.New()
	require.NoError(t, Init(v, ""))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 4, cfg.Store.RedisDB)
	assert.Equal(t, 5*time.Second, cfg.Autosave.Interval)
	assert.Equal(t, domain.RoleCustomer, cfg.ViewerRole())
	assert.True(t, cfg.Templates.Watch)
}

func TestInit_ReadsConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flowdesk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
store:
  backend: file
  file_dir: /srv/charts
templates:
  dir: /srv/templates
  watch: true
client:
  timeout: 3s
`), 0o644))

	v := viper.New()
	require.NoError(t, Init(v, path))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "/srv/charts", cfg.Store.FileDir)
	assert.Equal(t, "/srv/templates", cfg.Templates.Dir)
	assert.True(t, cfg.Templates.Watch)
	assert.Equal(t, 3*time.Second, cfg.Client.Timeout)
}

func TestInit_ExplicitFileMustExist(t *testing.T) {
	err := Init(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	v := viper.New()
	v.Set("store.backend", "postgres")
	v.Set("role", "admin")
	v.Set("autosave.interval", "0s")

	_, err := Load(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.backend")
	assert.Contains(t, err.Error(), "role must be staff or customer")
	assert.Contains(t, err.Error(), "autosave.interval")
}
