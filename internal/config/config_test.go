package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("VIDSHARE_API_BASE_URL", "https://api.example.com/api/")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, "https://api.example.com/api/", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendSQLite, cfg.Session.Backend)
	assert.Equal(t, 2*time.Second, cfg.View.RenderWait)
	assert.Equal(t, int64(512<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "vidshare.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
http:
  port: 9090
api:
  base_url: http://localhost:8000/api/
  timeout: 5s
session:
  backend: redis
  redis_addr: redis:6379
view:
  render_wait: 500ms
`), 0o644))
	t.Setenv("VIDSHARE_HTTP_PORT", "9191")

	cfg, err := Load(file)
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.HTTP.Port, "env overrides the file")
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, BackendRedis, cfg.Session.Backend)
	assert.Equal(t, "redis:6379", cfg.Session.RedisAddr)
	assert.Equal(t, 500*time.Millisecond, cfg.View.RenderWait)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			HTTP:    HTTPConfig{Port: 8080},
			API:     APIConfig{BaseURL: "http://api"},
			Session: SessionConfig{Backend: BackendMemory},
			View:    ViewConfig{MaxInstances: 1},
			Upload:  UploadConfig{MaxBytes: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no base url", func(c *Config) { c.API.BaseURL = "" }, "api.base_url is required"},
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "must be an http(s) URL"},
		{"bad port", func(c *Config) { c.HTTP.Port = 0 }, "http.port"},
		{"unknown backend", func(c *Config) { c.Session.Backend = "etcd" }, "session.backend"},
		{"sqlite needs a path", func(c *Config) { c.Session.Backend = BackendSQLite }, "session.sqlite_path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
