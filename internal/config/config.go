package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/udisondev/scalekit/internal/crypto"
)

// Environment variables that override config file locations.
const (
	EnvConfigPath     = "SCALEKIT_CONFIG"
	EnvCategoriesPath = "SCALEKIT_CATEGORIES"
)

// Storage backend names.
const (
	StoragePostgres = "postgres"
	StorageFile     = "file"
	StorageMemory   = "memory"
	StorageNone     = "none"
)

// Server holds all configuration for the authoritative scale server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	LogLevel string `yaml:"log_level"` // debug, info, warn, error

	// Simulation
	TickInterval     time.Duration `yaml:"tick_interval"`     // one simulation step (default: 50ms)
	AutosaveInterval time.Duration `yaml:"autosave_interval"` // 0 disables autosave
	SaveWorkers      int           `yaml:"save_workers"`      // concurrent entity saves during autosave

	// Storage
	Storage  string         `yaml:"storage"` // postgres, file, memory, none
	Database DatabaseConfig `yaml:"database"`
	SaveFile SaveFileConfig `yaml:"save_file"`

	Replication ReplicationConfig `yaml:"replication"`

	// Category and modifier definitions file
	CategoriesPath string `yaml:"categories_path"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int32  `yaml:"max_conns"` // pool size; 0 keeps the driver default
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// SaveFileConfig configures the local save-file backend.
type SaveFileConfig struct {
	AppName string `yaml:"app_name"`
}

// ReplicationConfig configures the WebSocket hub.
type ReplicationConfig struct {
	Path          string        `yaml:"path"`
	CipherKey     string        `yaml:"cipher_key"` // empty disables frame encryption
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	SendQueueSize int           `yaml:"send_queue_size"` // per-client outbox capacity
}

// Addr returns the listen address.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

// SlogLevel parses LogLevel, falling back to info.
func (s Server) SlogLevel() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Validate checks values that would otherwise fail at runtime.
func (s Server) Validate() error {
	if s.TickInterval <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", s.TickInterval)
	}
	switch s.Storage {
	case StoragePostgres, StorageFile, StorageMemory, StorageNone:
	default:
		return fmt.Errorf("unknown storage backend %q", s.Storage)
	}
	if s.Storage == StorageFile && s.SaveFile.AppName == "" {
		return fmt.Errorf("save_file.app_name is required for file storage")
	}
	if n := len(s.Replication.CipherKey); n > crypto.MaxKeyLen {
		return fmt.Errorf("replication.cipher_key must be at most %d bytes, got %d", crypto.MaxKeyLen, n)
	}
	return nil
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		BindAddress:      "0.0.0.0",
		Port:             8765,
		LogLevel:         "info",
		TickInterval:     50 * time.Millisecond,
		AutosaveInterval: 5 * time.Minute,
		SaveWorkers:      4,
		Storage:          StorageNone,
		Database: DatabaseConfig{
			Host:     "127.0.0.1",
			Port:     5432,
			User:     "scalekit",
			Password: "scalekit",
			DBName:   "scalekit",
			SSLMode:  "disable",
			MaxConns: 8,
		},
		SaveFile: SaveFileConfig{
			AppName: "scalekit",
		},
		Replication: ReplicationConfig{
			Path:          "/ws",
			WriteTimeout:  5 * time.Second,
			SendQueueSize: 64,
		},
		CategoriesPath: "config/categories.yaml",
	}
}

// LoadServer loads server config from a YAML file.
// If the file doesn't exist, returns defaults.
func LoadServer(path string) (Server, error) {
	cfg := DefaultServer()
	if err := loadYAML(path, &cfg); err != nil {
		return cfg, err
	}
	if p := os.Getenv(EnvCategoriesPath); p != "" {
		cfg.CategoriesPath = p
	}
	return cfg, nil
}

// ServerPath returns the config path from the environment or def.
func ServerPath(def string) string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return def
}

func loadYAML(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}
