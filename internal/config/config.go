package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. NAS_SNAPSENTRY_CLOUD_BASE_URL.
const EnvPrefix = "NAS_SNAPSENTRY"

type Config struct {
	Cloud    CloudConfig    `mapstructure:"cloud"`
	Job      JobConfig      `mapstructure:"job"`
	Log      LogConfig      `mapstructure:"log"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`

	// Timeout bounds a whole run in seconds (0 = run indefinitely).
	Timeout int `mapstructure:"timeout"`
}

type CloudConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	DomainID       string        `mapstructure:"domain_id"`
	TimeZone       string        `mapstructure:"timezone"`
	DeleteInterval time.Duration `mapstructure:"delete_interval"`
}

// JobConfig carries the default invocation for `run` and the daemon.
type JobConfig struct {
	User     string   `mapstructure:"user"`
	Password string   `mapstructure:"password"`
	NASNames []string `mapstructure:"nas_names"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type WebhookConfig struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	ChatID      string `mapstructure:"chat_id"`
	APIEndpoint string `mapstructure:"api_endpoint"`
}

type DaemonConfig struct {
	Schedule    string `mapstructure:"schedule"`
	BindAddress string `mapstructure:"bind_address"`
}

// flagKeys maps CLI flag names onto configuration keys.
var flagKeys = map[string]string{
	"base-url":         "cloud.base_url",
	"domain-id":        "cloud.domain_id",
	"timezone":         "cloud.timezone",
	"delete-interval":  "cloud.delete_interval",
	"user":             "job.user",
	"pwd":              "job.password",
	"nas":              "job.nas_names",
	"log-level":        "log.level",
	"log-file":         "log.file",
	"webhook-url":      "webhook.url",
	"webhook-username": "webhook.username",
	"webhook-password": "webhook.password",
	"telegram-token":   "telegram.bot_token",
	"telegram-chat-id": "telegram.chat_id",
	"schedule":         "daemon.schedule",
	"bind-address":     "daemon.bind_address",
	"timeout":          "timeout",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("cloud.base_url", "https://api.ucloudbiz.olleh.com/gd1")
	v.SetDefault("cloud.domain_id", "default")
	v.SetDefault("cloud.timezone", "Asia/Seoul")
	v.SetDefault("cloud.delete_interval", time.Second)
	v.SetDefault("job.user", "")
	v.SetDefault("job.password", "")
	v.SetDefault("job.nas_names", []string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.username", "")
	v.SetDefault("webhook.password", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", "")
	v.SetDefault("telegram.api_endpoint", "")
	v.SetDefault("daemon.schedule", "0 3 * * *")
	v.SetDefault("daemon.bind_address", "0.0.0.0:8080")
	v.SetDefault("timeout", 0)
}

// Load builds the configuration from, in increasing precedence: defaults, the
// optional YAML file at path, NAS_SNAPSENTRY_* environment variables and flags
// that were explicitly set on the command line.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.Cloud.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("cloud.base_url must be an absolute URL, got %q", c.Cloud.BaseURL)
	}

	if c.Cloud.TimeZone != "" {
		if _, err := time.LoadLocation(c.Cloud.TimeZone); err != nil {
			return fmt.Errorf("cloud.timezone: %w", err)
		}
	}

	if c.Cloud.DeleteInterval < 0 {
		return fmt.Errorf("cloud.delete_interval must not be negative")
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	return nil
}

// HasJob reports whether a default invocation is configured.
func (c *Config) HasJob() bool {
	return c.Job.User != "" && len(c.Job.NASNames) > 0
}
