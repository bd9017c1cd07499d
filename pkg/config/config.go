// Package config loads the server configuration from a YAML file and the environment.
//
// Precedence, lowest first: built-in defaults, the YAML file, environment variables.
// Environment variables are read after cmd has loaded an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wk755/httpserver/pkg/cache"
	"github.com/wk755/httpserver/pkg/logging"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config holds the complete server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Log    LogConfig    `yaml:"log"`
	Cache  CacheConfig  `yaml:"cache"`
	Redis  RedisConfig  `yaml:"redis"`
	Notes  NotesConfig  `yaml:"notes"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// LogConfig configures the global logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// CacheConfig mirrors cache.Policy plus the store selection.
type CacheConfig struct {
	// Store is "memory" or "redis"
	Store string `yaml:"store"`

	CacheGET  bool `yaml:"cacheGet"`
	CacheHEAD bool `yaml:"cacheHead"`
	Cache200  bool `yaml:"cache200"`
	Cache301  bool `yaml:"cache301"`
	Cache404  bool `yaml:"cache404"`

	CapacityBytes  int64 `yaml:"capacityBytes"`
	MaxObjectBytes int64 `yaml:"maxObjectBytes"`

	TTL                  time.Duration `yaml:"ttl"`
	StaleWhileRevalidate time.Duration `yaml:"staleWhileRevalidate"`

	VaryAcceptEncoding   bool `yaml:"varyAcceptEncoding"`
	RespectNoStore       bool `yaml:"respectNoStore"`
	RespectAuthorization bool `yaml:"respectAuthorization"`
}

// RedisConfig configures the Redis store.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	DB        int    `yaml:"db"`
	Namespace string `yaml:"namespace"`
}

// NotesConfig configures the notes application behind the cache.
type NotesConfig struct {
	// DSN is a SQLite data source name, e.g. "file:notes.db" or ":memory:"
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	p := cache.DefaultPolicy()
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: string(logging.LevelInfo),
		},
		Cache: CacheConfig{
			Store:                StoreMemory,
			CacheGET:             p.CacheGET,
			CacheHEAD:            p.CacheHEAD,
			Cache200:             p.Cache200,
			Cache301:             p.Cache301,
			Cache404:             p.Cache404,
			CapacityBytes:        p.MemoryCapacityBytes,
			MaxObjectBytes:       p.MaxObjectBytes,
			TTL:                  p.TTL,
			StaleWhileRevalidate: p.StaleWhileRevalidate,
			VaryAcceptEncoding:   p.VaryAcceptEncoding,
			RespectNoStore:       p.RespectNoStore,
			RespectAuthorization: p.RespectAuthorization,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			Namespace: cache.DefaultRedisNamespace,
		},
		Notes: NotesConfig{
			DSN: ":memory:",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if path
// is not empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level %q is not one of trace, debug, info, warn, error", c.Log.Level)
	}
	switch c.Cache.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when cache.store is %q", StoreRedis)
		}
	default:
		return fmt.Errorf("cache.store must be %q or %q (got %q)", StoreMemory, StoreRedis, c.Cache.Store)
	}
	if c.Cache.CapacityBytes <= 0 {
		return fmt.Errorf("cache.capacityBytes must be > 0 (got %d)", c.Cache.CapacityBytes)
	}
	if c.Cache.MaxObjectBytes <= 0 {
		return fmt.Errorf("cache.maxObjectBytes must be > 0 (got %d)", c.Cache.MaxObjectBytes)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must be >= 0 (got %s)", c.Cache.TTL)
	}
	if c.Cache.StaleWhileRevalidate < 0 {
		return fmt.Errorf("cache.staleWhileRevalidate must be >= 0 (got %s)", c.Cache.StaleWhileRevalidate)
	}
	if c.Notes.DSN == "" {
		return fmt.Errorf("notes.dsn is required")
	}
	return nil
}

// Policy converts the cache section to a cache.Policy.
func (c Config) Policy() cache.Policy {
	return cache.Policy{
		CacheGET:             c.Cache.CacheGET,
		CacheHEAD:            c.Cache.CacheHEAD,
		Cache200:             c.Cache.Cache200,
		Cache301:             c.Cache.Cache301,
		Cache404:             c.Cache.Cache404,
		MemoryCapacityBytes:  c.Cache.CapacityBytes,
		MaxObjectBytes:       c.Cache.MaxObjectBytes,
		TTL:                  c.Cache.TTL,
		StaleWhileRevalidate: c.Cache.StaleWhileRevalidate,
		VaryAcceptEncoding:   c.Cache.VaryAcceptEncoding,
		RespectNoStore:       c.Cache.RespectNoStore,
		RespectAuthorization: c.Cache.RespectAuthorization,
	}
}

// Logging converts the log section to a logging.Config writing to stderr.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.Log.Level)
	cfg.Pretty = c.Log.Pretty
	return cfg
}

// applyEnv overrides cfg with any environment variables that are set.
func applyEnv(cfg *Config) error {
	cfg.Server.Addr = getEnv("ADDR", cfg.Server.Addr)
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Addr = ":" + port
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Cache.Store = getEnv("CACHE_STORE", cfg.Cache.Store)
	cfg.Redis.Addr = getEnv("REDIS_URL", cfg.Redis.Addr)
	cfg.Redis.Namespace = getEnv("REDIS_NAMESPACE", cfg.Redis.Namespace)
	cfg.Notes.DSN = getEnv("NOTES_DSN", cfg.Notes.DSN)

	var err error
	if cfg.Log.Pretty, err = getEnvBool("LOG_PRETTY", cfg.Log.Pretty); err != nil {
		return err
	}
	if cfg.Redis.DB, err = getEnvInt("REDIS_DB", cfg.Redis.DB); err != nil {
		return err
	}
	if cfg.Cache.CapacityBytes, err = getEnvInt64("CACHE_CAPACITY_BYTES", cfg.Cache.CapacityBytes); err != nil {
		return err
	}
	if cfg.Cache.MaxObjectBytes, err = getEnvInt64("CACHE_MAX_OBJECT_BYTES", cfg.Cache.MaxObjectBytes); err != nil {
		return err
	}
	if cfg.Cache.TTL, err = getEnvDuration("CACHE_TTL", cfg.Cache.TTL); err != nil {
		return err
	}
	if cfg.Cache.StaleWhileRevalidate, err = getEnvDuration("CACHE_STALE_WHILE_REVALIDATE", cfg.Cache.StaleWhileRevalidate); err != nil {
		return err
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("parse %s: %w", key, err)
	}
	return b, nil
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvInt64(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return defaultValue, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}
