package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFile is the path checked for YAML configuration.
	DefaultConfigFile = "clinroute.yaml"
	// DefaultEnvFile is the path checked for dotenv variables.
	DefaultEnvFile = ".env"
	// EnvPrefix prefixes every environment variable read by the loader.
	EnvPrefix = "CLINROUTE_"
	// MinCacheMaxBytes is the smallest embedding cache accepted, room for
	// a few dozen vectors.
	MinCacheMaxBytes int64 = 64 << 10
)

// Load returns a Config from the default file locations.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile, DefaultEnvFile)
}

// LoadFrom returns a Config using the hierarchy: defaults < YAML < .env < ENV.
// Both files are optional; missing files are not an error. Variables already
// present in the environment win over the .env file.
func LoadFrom(yamlPath, envPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}
	if err := loadDotEnv(envPath); err != nil {
		return nil, fmt.Errorf("config dotenv: %w", err)
	}
	if err := loadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}
	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// loadDotEnv copies variables from the .env file into the process
// environment without overriding ones already set.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// loadEnv overlays CLINROUTE_* variables onto cfg. Only non-empty values
// override; unparsable values are errors.
func loadEnv(cfg *Config) error {
	e := &envReader{}

	e.setString(&cfg.Server.Addr, "ADDR")
	e.setDuration(&cfg.Server.ReadTimeout, "READ_TIMEOUT")
	e.setDuration(&cfg.Server.WriteTimeout, "WRITE_TIMEOUT")
	e.setDuration(&cfg.Server.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
	e.setString(&cfg.Server.CORSOrigin, "CORS_ORIGIN")

	e.setString(&cfg.AI.EmbeddingHost, "EMBEDDING_HOST")
	e.setString(&cfg.AI.ChatHost, "CHAT_HOST")
	e.setString(&cfg.AI.EmbeddingModel, "EMBEDDING_MODEL")
	e.setString(&cfg.AI.ChatModel, "CHAT_MODEL")
	e.setString(&cfg.AI.APIKey, "API_KEY")
	e.setFloat64(&cfg.AI.Temperature, "TEMPERATURE")

	e.setString(&cfg.Storage.Driver, "STORAGE_DRIVER")
	e.setString(&cfg.Storage.Badger.Path, "BADGER_PATH")
	e.setBool(&cfg.Storage.Badger.InMemory, "BADGER_IN_MEMORY")
	e.setString(&cfg.Storage.Postgres.DSN, "POSTGRES_DSN")
	e.setInt32(&cfg.Storage.Postgres.MaxConns, "PG_MAX_CONNS")
	e.setInt32(&cfg.Storage.Postgres.MinConns, "PG_MIN_CONNS")
	e.setDuration(&cfg.Storage.Postgres.MaxConnLifetime, "PG_MAX_CONN_LIFETIME")
	e.setDuration(&cfg.Storage.Postgres.MaxConnIdleTime, "PG_MAX_CONN_IDLE_TIME")
	e.setBool(&cfg.Storage.Postgres.MigrateOnStart, "PG_MIGRATE_ON_START")

	e.setInt(&cfg.Retrieval.DefaultLimit, "RETRIEVAL_LIMIT")
	e.setInt64(&cfg.Retrieval.CacheMaxBytes, "CACHE_MAX_BYTES")
	e.setDuration(&cfg.Retrieval.CacheTTL, "CACHE_TTL")
	e.setInt(&cfg.Retrieval.AdvisorWorkers, "ADVISOR_WORKERS")

	e.setString(&cfg.Log.Level, "LOG_LEVEL")

	return errors.Join(e.errs...)
}

// Validate checks that required fields are set and values are in range.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	switch c.Storage.Driver {
	case DriverBadger:
		if c.Storage.Badger.Path == "" && !c.Storage.Badger.InMemory {
			return errors.New("storage.badger.path is required unless in_memory is set")
		}
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
		if c.Storage.Postgres.MaxConns < 1 {
			return errors.New("storage.postgres.max_conns must be >= 1")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverBadger, DriverPostgres, c.Storage.Driver)
	}
	if c.Retrieval.DefaultLimit < 1 || c.Retrieval.DefaultLimit > 50 {
		return errors.New("retrieval.default_limit must be between 1 and 50")
	}
	if c.Retrieval.AdvisorWorkers < 1 {
		return errors.New("retrieval.advisor_workers must be >= 1")
	}
	if c.Retrieval.CacheMaxBytes < MinCacheMaxBytes {
		return fmt.Errorf("retrieval.cache_max_bytes must be >= %d, got %d", MinCacheMaxBytes, c.Retrieval.CacheMaxBytes)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

type envReader struct {
	errs []error
}

func (e *envReader) lookup(key string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(EnvPrefix + key))
	return v, v != ""
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, v, err))
}

func (e *envReader) setString(dst *string, key string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(dst *int, key string) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setInt32(dst *int32, key string) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = int32(n)
	}
}

func (e *envReader) setInt64(dst *int64, key string) {
	if v, ok := e.lookup(key); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = n
	}
}

func (e *envReader) setFloat64(dst *float64, key string) {
	if v, ok := e.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = f
	}
}

func (e *envReader) setBool(dst *bool, key string) {
	if v, ok := e.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = b
	}
}

func (e *envReader) setDuration(dst *time.Duration, key string) {
	if v, ok := e.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.fail(key, v, err)
			return
		}
		*dst = d
	}
}
