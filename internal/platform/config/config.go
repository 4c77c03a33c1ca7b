package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Webhooks   WebhooksConfig   `mapstructure:"webhooks"`
	Escalation EscalationConfig `mapstructure:"escalation"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Bootstrap  BootstrapConfig  `mapstructure:"bootstrap"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Path           string `mapstructure:"path"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type JWTConfig struct {
	Secret         string        `mapstructure:"secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type RateLimitConfig struct {
	APIReadPerMinute  int `mapstructure:"api_read_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
	IngestPerMinute   int `mapstructure:"ingest_per_minute"`
}

type SchedulerConfig struct {
	TickInterval    time.Duration `mapstructure:"tick_interval"`
	DispatchTimeout time.Duration `mapstructure:"dispatch_timeout"`
	BatchSize       int           `mapstructure:"batch_size"`
}

type WebhooksConfig struct {
	DefaultRetryCount     int           `mapstructure:"default_retry_count"`
	DefaultTimeoutSeconds int           `mapstructure:"default_timeout_seconds"`
	MaxBackoff            time.Duration `mapstructure:"max_backoff"`
}

type EscalationConfig struct {
	DefaultRecipient string `mapstructure:"default_recipient"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

// BootstrapConfig seeds the first admin user when the users table is empty.
type BootstrapConfig struct {
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

func applyDefaults(c *Config) {
	if c.Scheduler.TickInterval <= 0 {
		c.Scheduler.TickInterval = 5 * time.Second
	}
	if c.Scheduler.DispatchTimeout <= 0 {
		c.Scheduler.DispatchTimeout = 15 * time.Second
	}
	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = 100
	}
	if c.Webhooks.DefaultRetryCount <= 0 {
		c.Webhooks.DefaultRetryCount = 3
	}
	if c.Webhooks.DefaultTimeoutSeconds <= 0 {
		c.Webhooks.DefaultTimeoutSeconds = 10
	}
	if c.Webhooks.MaxBackoff <= 0 {
		c.Webhooks.MaxBackoff = 2 * time.Minute
	}
	if c.Database.MaxConnections <= 0 {
		c.Database.MaxConnections = 10
	}
}
