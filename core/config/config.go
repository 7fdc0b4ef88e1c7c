// Package config loads the sections every bot shares: Telegram transport,
// webhook, logging and rate limiting. Files are YAML; environment variables
// override them.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds the bot token, admins and update source.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN" validate:"required"`
	// AdminIDs lists users allowed to run admin commands.
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"TELEGRAM_ADMIN_IDS"`
	RunMode  string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE" validate:"oneof=webhook longpoll"`
	// LongPollTimeoutSeconds of 0 selects the default.
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS" validate:"gte=0"`
}

// WebhookConfig is required in webhook run mode.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL" validate:"omitempty,url"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT" validate:"gte=0,lte=65535"`
}

// LoggingConfig selects level, line format and optional log file.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=kv text pretty json"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile such as "debug" or "prod"; debug and dev default to kv lines.
	Profile string `yaml:"profile"`
}

const (
	RunModeWebhook  = "webhook"
	RunModeLongpoll = "longpoll"
)

// Update kinds accepted by rate_limit.exclude_updates.
const (
	UpdateCallback    = "callback"
	UpdateMessage     = "message"
	UpdateInlineQuery = "inline_query"
)

const (
	// DefaultRateLimit is the number of updates admitted per user and window.
	DefaultRateLimit = 30
	// DefaultRateWindowSeconds is the sliding window length.
	DefaultRateWindowSeconds = 60
)

// RateLimitConfig sizes the per-user sliding window. ExcludeUpdates lists
// update kinds that bypass it.
type RateLimitConfig struct {
	Limit          int      `yaml:"limit" envconfig:"RATE_LIMIT_LIMIT" validate:"gte=0"`
	WindowSeconds  int      `yaml:"window_seconds" envconfig:"RATE_LIMIT_WINDOW_SECONDS" validate:"gte=0"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES" validate:"dive,oneof=callback message inline_query"`
}

// Window returns the window length.
func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// Config is the shared part of a bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// IsAdmin reports whether userID is listed in telegram.admin_ids.
func (c *Config) IsAdmin(userID int64) bool {
	return c != nil && slices.Contains(c.Telegram.AdminIDs, userID)
}

// Load reads and normalizes a file holding only the shared sections.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Decode unmarshals the YAML file at path into dst, then applies
// environment overrides. dst may be any struct embedding Config.
func Decode(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := envconfig.Process("", dst); err != nil {
		return fmt.Errorf("config: environment: %w", err)
	}
	return nil
}

// Normalize lower-cases enumerations, fills defaults and validates cfg.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return errors.New("config: nil config")
	}
	tg := &cfg.Telegram
	switch tg.RunMode = strings.ToLower(strings.TrimSpace(tg.RunMode)); tg.RunMode {
	case "", "polling":
		tg.RunMode = RunModeLongpoll
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	for i, kind := range cfg.RateLimit.ExcludeUpdates {
		cfg.RateLimit.ExcludeUpdates[i] = strings.ToLower(strings.TrimSpace(kind))
	}

	if err := Validate(cfg); err != nil {
		return err
	}
	if tg.RunMode == RunModeWebhook {
		wh := cfg.Webhook
		if wh.URL == "" || strings.TrimSpace(wh.Listen) == "" || wh.Port == 0 {
			return errors.New("config: webhook.url, webhook.listen and webhook.port are required in webhook mode")
		}
	}

	if cfg.RateLimit.Limit == 0 {
		cfg.RateLimit.Limit = DefaultRateLimit
	}
	if cfg.RateLimit.WindowSeconds == 0 {
		cfg.RateLimit.WindowSeconds = DefaultRateWindowSeconds
	}
	return nil
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

// Validate checks the validate tags of a config struct and reports the
// failures by their YAML path, e.g. "telegram.token: required".
func Validate(v any) error {
	err := validate.Struct(v)
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += " " + fe.Param()
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", yamlPath(fe.Namespace()), msg))
	}
	return fmt.Errorf("config: invalid %s", strings.Join(msgs, "; "))
}

// yamlPath keeps the YAML segments of a validator namespace. Go names, the
// root type and inlined embeds, start upper-case and are dropped.
func yamlPath(ns string) string {
	parts := slices.DeleteFunc(strings.Split(ns, "."), func(p string) bool {
		return p == "" || unicode.IsUpper([]rune(p)[0])
	})
	return strings.Join(parts, ".")
}
