package config

import (
	"time"

	"minihpa/pkg/controller/podautoscaler"
	"minihpa/pkg/messaging"
)

type Config struct {
	SyncPeriod       time.Duration
	Workers          int
	MaxRetries       int
	RetryBackoff     time.Duration
	DefaultTolerance float64
	StaleThreshold   time.Duration
	ShardCount       int
	RecentEvents     int

	PromURL        string
	ApiserverURL   string
	EtcdEndpoints  []string
	EtcdTimeout    time.Duration
	ResyncInterval time.Duration
	AmqpURL        string
	EventExchange  string
	TargetsFiles   []string

	StatusPort      int
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFile         string
}

type CompletedConfig struct {
	*Config
}

func (c *Config) Complete() *CompletedConfig {
	return &CompletedConfig{c}
}

func (c *CompletedConfig) Controller() podautoscaler.Config {
	cfg := podautoscaler.DefaultConfig()
	cfg.SyncPeriod = c.SyncPeriod
	cfg.Workers = c.Workers
	cfg.MaxRetries = c.MaxRetries
	cfg.RetryBackoff = c.RetryBackoff
	cfg.DefaultTolerance = c.DefaultTolerance
	cfg.ShardCount = c.ShardCount
	cfg.RecentEvents = c.RecentEvents
	return cfg
}

func (c *CompletedConfig) Queue() *messaging.QConfig {
	q := messaging.DefaultQConfig()
	q.URL = c.AmqpURL
	return q
}
