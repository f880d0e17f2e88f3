package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/telhawk-systems/hookgate/common/messaging"
)

// Queue backends.
const (
	BackendRedis     = "redis"
	BackendJetStream = "jetstream"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Webhook   WebhookConfig   `mapstructure:"webhook" yaml:"webhook"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Dedup     DedupConfig     `mapstructure:"dedup" yaml:"dedup"`
	Queue     QueueConfig     `mapstructure:"queue" yaml:"queue"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type WebhookConfig struct {
	Provider      string   `mapstructure:"provider" yaml:"provider"`
	AppSecret     string   `mapstructure:"app_secret" yaml:"app_secret"`
	VerifyToken   string   `mapstructure:"verify_token" yaml:"verify_token"`
	CommentFields []string `mapstructure:"comment_fields" yaml:"comment_fields"`
	MaxBodyBytes  int64    `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

type RedisConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// StoreConfig bounds each individual store call.
type StoreConfig struct {
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type DedupConfig struct {
	KeyPrefix string        `mapstructure:"key_prefix" yaml:"key_prefix"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// QueueConfig selects where admitted comment jobs go. Atomic only applies to
// the redis backend.
type QueueConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Atomic  bool   `mapstructure:"atomic" yaml:"atomic"`
	Key     string `mapstructure:"key" yaml:"key"`
	NatsURL string `mapstructure:"nats_url" yaml:"nats_url"`
	Subject string `mapstructure:"subject" yaml:"subject"`
}

type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Requests int           `mapstructure:"requests" yaml:"requests"`
	Window   time.Duration `mapstructure:"window" yaml:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// legacyEnv maps config keys to the plain environment variable names the
// gateway has always been deployed with.
var legacyEnv = map[string]string{
	"webhook.app_secret":   "APP_SECRET",
	"webhook.verify_token": "IG_VERIFY_TOKEN",
	"redis.url":            "REDIS_URL",
	"server.port":          "PORT",
	"logging.level":        "LOG_LEVEL",
}

func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("webhook.provider", "instagram")
	v.SetDefault("webhook.app_secret", "")
	v.SetDefault("webhook.verify_token", "")
	v.SetDefault("webhook.comment_fields", []string{"comments", "instagram_comments"})
	v.SetDefault("webhook.max_body_bytes", 1048576)
	v.SetDefault("redis.url", "")
	v.SetDefault("store.timeout", "5s")
	v.SetDefault("dedup.key_prefix", "ig:comment_seen:")
	v.SetDefault("dedup.ttl", "168h")
	v.SetDefault("queue.backend", BackendRedis)
	v.SetDefault("queue.atomic", true)
	v.SetDefault("queue.key", "ig:comment_jobs")
	v.SetDefault("queue.nats_url", "nats://localhost:4222")
	v.SetDefault("queue.subject", messaging.SubjectCommentJobsCreated)
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 600)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Read config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/hookgate")
	}

	// Environment variables override
	v.SetEnvPrefix("HOOKGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "HOOKGATE_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Read config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found; use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate reports every missing or inconsistent required setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Webhook.AppSecret == "" {
		errs = append(errs, errors.New("webhook.app_secret (APP_SECRET) is required"))
	}
	if c.Webhook.VerifyToken == "" {
		errs = append(errs, errors.New("webhook.verify_token (IG_VERIFY_TOKEN) is required"))
	}
	if c.Redis.URL == "" {
		errs = append(errs, errors.New("redis.url (REDIS_URL) is required"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port (PORT) must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Webhook.Provider == "" || strings.Contains(c.Webhook.Provider, "/") {
		errs = append(errs, fmt.Errorf("webhook.provider %q must be a single path segment", c.Webhook.Provider))
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("webhook.max_body_bytes must be positive"))
	}
	if c.Dedup.TTL < time.Second {
		errs = append(errs, fmt.Errorf("dedup.ttl must be at least 1s, got %s", c.Dedup.TTL))
	}

	switch c.Queue.Backend {
	case BackendRedis:
		if c.Queue.Key == "" {
			errs = append(errs, errors.New("queue.key is required for the redis backend"))
		}
	case BackendJetStream:
		if c.Queue.NatsURL == "" || c.Queue.Subject == "" {
			errs = append(errs, errors.New("queue.nats_url and queue.subject are required for the jetstream backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("queue.backend must be %q or %q, got %q", BackendRedis, BackendJetStream, c.Queue.Backend))
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		errs = append(errs, errors.New("rate_limit.requests and rate_limit.window must be positive when enabled"))
	}

	return errors.Join(errs...)
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Webhook.AppSecret != "" {
		c.Webhook.AppSecret = "REDACTED"
	}
	if c.Webhook.VerifyToken != "" {
		c.Webhook.VerifyToken = "REDACTED"
	}
	c.Redis.URL = redactURL(c.Redis.URL)
	c.Queue.NatsURL = redactURL(c.Queue.NatsURL)
	c.Webhook.CommentFields = append([]string(nil), c.Webhook.CommentFields...)
	return c
}

// redactURL hides the userinfo part of a connection URL.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return raw
	}
	return scheme + "://REDACTED@" + rest[at+1:]
}
