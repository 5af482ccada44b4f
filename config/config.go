// Package config loads process configuration with the precedence
// defaults < YAML file < .env file < environment.
package config

import "time"

// Storage drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Config is the full process configuration.
type Config struct {
	Server    Server    `yaml:"server"`
	AI        AI        `yaml:"ai"`
	Storage   Storage   `yaml:"storage"`
	Retrieval Retrieval `yaml:"retrieval"`
	Log       Log       `yaml:"log"`
}

// Server configures the HTTP API.
type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigin      string        `yaml:"cors_origin"`
}

// AI configures the OpenAI-compatible model endpoints.
type AI struct {
	EmbeddingHost  string  `yaml:"embedding_host"`
	ChatHost       string  `yaml:"chat_host"`
	EmbeddingModel string  `yaml:"embedding_model"`
	ChatModel      string  `yaml:"chat_model"`
	APIKey         string  `yaml:"api_key"`
	Temperature    float64 `yaml:"temperature"`
}

// Storage selects and configures the storage backend.
type Storage struct {
	Driver   string   `yaml:"driver"`
	Badger   Badger   `yaml:"badger"`
	Postgres Postgres `yaml:"postgres"`
}

// Badger configures the embedded store.
type Badger struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// Postgres configures the PostgreSQL store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	MigrateOnStart  bool          `yaml:"migrate_on_start"`
}

// Retrieval configures catalog search.
type Retrieval struct {
	DefaultLimit   int           `yaml:"default_limit"`
	CacheMaxBytes  int64         `yaml:"cache_max_bytes"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	AdvisorWorkers int           `yaml:"advisor_workers"`
}

// Log configures logging.
type Log struct {
	Level string `yaml:"level"`
}

// Defaults returns a Config with sensible defaults for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8000",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigin:      "*",
		},
		AI: AI{
			EmbeddingHost:  "http://localhost:11434/v1",
			ChatHost:       "http://localhost:11434/v1",
			EmbeddingModel: "nomic-embed-text",
			ChatModel:      "llama3.1:8b",
			APIKey:         "none",
		},
		Storage: Storage{
			Driver: DriverBadger,
			Badger: Badger{Path: "clinroute.db"},
			Postgres: Postgres{
				MaxConns:        10,
				MinConns:        1,
				MaxConnLifetime: time.Hour,
				MaxConnIdleTime: 30 * time.Minute,
			},
		},
		Retrieval: Retrieval{
			DefaultLimit:   5,
			CacheMaxBytes:  64 << 20,
			CacheTTL:       30 * time.Minute,
			AdvisorWorkers: 16,
		},
		Log: Log{Level: "info"},
	}
}
