// Package config loads the gateway configuration from YAML with
// USSDFLOW_* environment overrides.
package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aretw0/ussdflow/internal/logging"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the complete gateway configuration.
type Config struct {
	Server      ServerConfig `yaml:"server"`
	Log         LogConfig    `yaml:"log"`
	Definitions []string     `yaml:"definitions"`
	Store       StoreConfig  `yaml:"store"`
	Engine      EngineConfig `yaml:"engine"`
	Client      ClientConfig `yaml:"client"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the number of requests per RateWindow allowed per client IP. Zero disables it.
	RateLimit  int           `yaml:"rateLimit"`
	RateWindow time.Duration `yaml:"rateWindow"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type StoreConfig struct {
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	// EncryptionKey is a base64 AES-256 key; when set, session data is sealed at rest.
	EncryptionKey string `yaml:"encryptionKey"`
	// FallbackKeys are previous keys still accepted for decryption.
	FallbackKeys []string `yaml:"fallbackKeys"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type EngineConfig struct {
	EventTimeout  time.Duration  `yaml:"eventTimeout"`
	SweepInterval time.Duration  `yaml:"sweepInterval"`
	MaxHops       int            `yaml:"maxHops"`
	Messages      MessagesConfig `yaml:"messages"`
}

type MessagesConfig struct {
	InvalidChoice string `yaml:"invalidChoice"`
	GenericError  string `yaml:"genericError"`
	Goodbye       string `yaml:"goodbye"`
}

type ClientConfig struct {
	ConnectTimeout time.Duration `yaml:"connectTimeout"`
	MaxBodyBytes   int64         `yaml:"maxBodyBytes"`
	BackoffBase    time.Duration `yaml:"backoffBase"`
	BackoffMax     time.Duration `yaml:"backoffMax"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    45 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateWindow:      time.Minute,
		},
		Log:   LogConfig{Level: "info", Format: string(logging.FormatJSON)},
		Store: StoreConfig{Backend: StoreMemory},
		Engine: EngineConfig{
			EventTimeout:  30 * time.Second,
			SweepInterval: 5 * time.Second,
			MaxHops:       32,
		},
		Client: ClientConfig{
			ConnectTimeout: 10 * time.Second,
			MaxBodyBytes:   1 << 20,
			BackoffBase:    200 * time.Millisecond,
			BackoffMax:     2 * time.Second,
		},
	}
}

// Load reads path (if not empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("server.rateLimit must not be negative"))
	}
	if c.Server.RateLimit > 0 && c.Server.RateWindow <= 0 {
		errs = append(errs, errors.New("server.rateWindow must be positive when rateLimit is set"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if _, err := logging.ParseFormat(c.Log.Format); err != nil {
		errs = append(errs, fmt.Errorf("log.format: %w", err))
	}
	switch c.Store.Backend {
	case StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if _, _, err := c.Store.Keys(); err != nil {
		errs = append(errs, err)
	}
	if c.Engine.EventTimeout <= 0 {
		errs = append(errs, errors.New("engine.eventTimeout must be positive"))
	}
	if c.Engine.SweepInterval <= 0 {
		errs = append(errs, errors.New("engine.sweepInterval must be positive"))
	}
	if c.Engine.MaxHops <= 0 {
		errs = append(errs, errors.New("engine.maxHops must be positive"))
	}
	return errors.Join(errs...)
}

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (s StoreConfig) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		if len(s.FallbackKeys) > 0 {
			return nil, nil, errors.New("store.fallbackKeys require store.encryptionKey")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(s.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("store.encryptionKey: %w", err)
	}
	for i, k := range s.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, nil, fmt.Errorf("store.fallbackKeys[%d]: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(s string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("not valid base64: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
