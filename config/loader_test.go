package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, DriverBadger, cfg.Storage.Driver)
	assert.Equal(t, 5, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoadFrom_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadFrom(filepath.Join(dir, "nope.yaml"), filepath.Join(dir, ".env"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), *cfg)
}

func TestLoadYAMLOverride(t *testing.T) {
	path := writeFile(t, "clinroute.yaml", `
server:
  addr: ":9090"
  write_timeout: 45s
ai:
  chat_model: gpt-4o-mini
  temperature: 0.2
storage:
  driver: postgres
  postgres:
    dsn: postgres://localhost/clinroute
    max_conns: 20
retrieval:
  default_limit: 8
log:
  level: debug
`)

	cfg, err := LoadFrom(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 45*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	assert.Equal(t, 0.2, cfg.AI.Temperature)
	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, int32(20), cfg.Storage.Postgres.MaxConns)
	assert.Equal(t, 8, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, "debug", cfg.Log.Level)

	// Unchanged fields keep defaults
	assert.Equal(t, "nomic-embed-text", cfg.AI.EmbeddingModel)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadYAML_Malformed(t *testing.T) {
	path := writeFile(t, "bad.yaml", "server: [")
	_, err := LoadFrom(path, "")
	assert.Error(t, err)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "clinroute.yaml", "server:\n  addr: \":9090\"\nretrieval:\n  default_limit: 8\n")
	t.Setenv("CLINROUTE_ADDR", ":7070")
	t.Setenv("CLINROUTE_CACHE_TTL", "5m")
	t.Setenv("CLINROUTE_BADGER_IN_MEMORY", "true")

	cfg, err := LoadFrom(path, "")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 8, cfg.Retrieval.DefaultLimit)
	assert.Equal(t, 5*time.Minute, cfg.Retrieval.CacheTTL)
	assert.True(t, cfg.Storage.Badger.InMemory)
}

func TestDotEnv(t *testing.T) {
	envPath := writeFile(t, ".env", "CLINROUTE_CHAT_MODEL=from-dotenv\nCLINROUTE_EMBEDDING_MODEL=from-dotenv\n")
	t.Cleanup(func() {
		_ = os.Unsetenv("CLINROUTE_CHAT_MODEL")
		_ = os.Unsetenv("CLINROUTE_EMBEDDING_MODEL")
	})
	// Real environment wins over the file
	t.Setenv("CLINROUTE_EMBEDDING_MODEL", "from-env")

	cfg, err := LoadFrom("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.AI.ChatModel)
	assert.Equal(t, "from-env", cfg.AI.EmbeddingModel)
}

func TestEnv_InvalidValues(t *testing.T) {
	t.Setenv("CLINROUTE_PG_MAX_CONNS", "many")
	t.Setenv("CLINROUTE_CACHE_TTL", "soon")

	_, err := LoadFrom("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CLINROUTE_PG_MAX_CONNS")
	assert.Contains(t, err.Error(), "CLINROUTE_CACHE_TTL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"unknown driver", func(c *Config) { c.Storage.Driver = "sqlite" }, false},
		{"postgres without dsn", func(c *Config) { c.Storage.Driver = DriverPostgres }, false},
		{"postgres with dsn", func(c *Config) {
			c.Storage.Driver = DriverPostgres
			c.Storage.Postgres.DSN = "postgres://localhost/db"
		}, true},
		{"badger in memory", func(c *Config) {
			c.Storage.Badger.Path = ""
			c.Storage.Badger.InMemory = true
		}, true},
		{"badger without path", func(c *Config) { c.Storage.Badger.Path = "" }, false},
		{"limit too high", func(c *Config) { c.Retrieval.DefaultLimit = 51 }, false},
		{"no workers", func(c *Config) { c.Retrieval.AdvisorWorkers = 0 }, false},
		{"cache too small", func(c *Config) { c.Retrieval.CacheMaxBytes = 1024 }, false},
		{"cache disabled", func(c *Config) { c.Retrieval.CacheMaxBytes = 0 }, false},
		{"cache at minimum", func(c *Config) { c.Retrieval.CacheMaxBytes = MinCacheMaxBytes }, true},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, false},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, want := range tests {
		got, err := ParseLevel(name)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}
