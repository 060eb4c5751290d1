package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Notify  NotifyConfig  `mapstructure:"notify"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"`
	JSON     JSONConfig     `mapstructure:"json"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type JSONConfig struct {
	Path string `mapstructure:"path"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
	Key string `mapstructure:"key"`
}

// WebhookConfig controls inbound verification. With an empty Secret every
// request is accepted, matching GitHub webhooks configured without one.
type WebhookConfig struct {
	Secret string `mapstructure:"secret"`
}

type NotifyConfig struct {
	SlackWebhookURL string          `mapstructure:"slack_webhook_url"`
	Timeout         time.Duration   `mapstructure:"timeout"`
	MaxAttempts     int             `mapstructure:"max_attempts"`
	RetrySchedule   []time.Duration `mapstructure:"retry_schedule"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from path, or from cimonitor.yaml in the working
// directory or /etc/cimonitor when path is empty. Environment variables
// prefixed CIMONITOR_ override file values, e.g. CIMONITOR_SERVER_PORT.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("cimonitor")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/cimonitor")
	}

	setDefaults(v)

	v.SetEnvPrefix("CIMONITOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("notify.slack_webhook_url", "CIMONITOR_NOTIFY_SLACK_WEBHOOK_URL", "SLACK_WEBHOOK_URL"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.json.path", "./github_events.json")
	v.SetDefault("storage.sqlite.path", "./data/cimonitor.db")
	v.SetDefault("storage.postgres.dsn", "")
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.key", "cimonitor:events")

	v.SetDefault("webhook.secret", "")

	v.SetDefault("notify.slack_webhook_url", "")
	v.SetDefault("notify.timeout", 10*time.Second)
	v.SetDefault("notify.max_attempts", 1)
	v.SetDefault("notify.retry_schedule", []time.Duration{
		1 * time.Second,
		5 * time.Second,
		15 * time.Second,
	})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
