package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Logging struct {
	Env       string `yaml:"env"`       // dev|prod
	Service   string `yaml:"service"`   // textroom|textroom-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"maxConns"`
	MinConns int32  `yaml:"minConns"`
}

type Relay struct {
	Addr string `yaml:"addr"`
}

type Client struct {
	IdentityPath string `yaml:"identityPath"` // локальный buntdb-файл
	Listener     string `yaml:"listener"`     // pg|ws
	RelayURL     string `yaml:"relayURL"`     // ws://host:port, для listener=ws

	HeartbeatEvery   string `yaml:"heartbeatEvery"`   // default 30s
	TypingClearAfter string `yaml:"typingClearAfter"` // default 1500ms
}

type Config struct {
	Logging  Logging  `yaml:"logging"`
	Postgres Postgres `yaml:"postgres"`
	Relay    Relay    `yaml:"relay"`
	Client   Client   `yaml:"client"`
}

func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	if c.Client.Listener == "ws" && c.Client.RelayURL == "" {
		return errors.New("client.relayURL is required for listener=ws")
	}
	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "textroom"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Relay.Addr == "" {
		c.Relay.Addr = ":8081"
	}
	if c.Client.IdentityPath == "" {
		c.Client.IdentityPath = "./textroom.db"
	}
	if c.Client.Listener == "" {
		c.Client.Listener = "pg"
	}
	return nil
}

// HeartbeatEvery — интервал heartbeat с дефолтом.
func (c *Config) HeartbeatEvery() time.Duration {
	return parseDurationOr(30*time.Second, c.Client.HeartbeatEvery)
}

// TypingClearAfter — пауза до сброса typing-флага с дефолтом.
func (c *Config) TypingClearAfter() time.Duration {
	return parseDurationOr(1500*time.Millisecond, c.Client.TypingClearAfter)
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
