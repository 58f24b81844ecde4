package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"ingetin/internal/jobs"
)

type Config struct {
	HTTPAddr             string   `koanf:"http_addr"`
	DatabaseURL          string   `koanf:"database_url"`
	CORSAllowedOrigins   []string `koanf:"-"`
	CORSAllowCredentials bool     `koanf:"cors_allow_credentials"`

	JWTSecret string        `koanf:"jwt_secret"`
	JWTTTL    time.Duration `koanf:"jwt_ttl"`

	TelegramBotToken    string        `koanf:"telegram_bot_token"`
	TelegramWebhookURL  string        `koanf:"telegram_webhook_url"`
	TelegramSendTimeout time.Duration `koanf:"telegram_send_timeout"`

	ReminderSchedule string        `koanf:"reminder_cron_schedule"`
	DeadlineSchedule string        `koanf:"deadline_cron_schedule"`
	DeadlineLookback time.Duration `koanf:"deadline_lookback"`
	FailureThreshold int           `koanf:"failure_threshold"`
	MaxTodosPerUser  int           `koanf:"max_todos_per_user"`
	Timezone         string        `koanf:"timezone"`

	LogLevel string `koanf:"log_level"`
	LogJSON  bool   `koanf:"log_json"`
}

func defaults() map[string]any {
	return map[string]any{
		"http_addr":              ":8080",
		"cors_allow_credentials": false,
		"cors_allowed_origins":   "",
		"jwt_ttl":                "168h",
		"telegram_send_timeout":  "10s",
		"reminder_cron_schedule": "0 * * * * *",
		"deadline_cron_schedule": "0 * * * * *",
		"deadline_lookback":      "90s",
		"failure_threshold":      3,
		"max_todos_per_user":     3,
		"timezone":               "Local",
		"log_level":              "info",
		"log_json":               false,
	}
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE and the environment (a .env file in the working directory is
// loaded first). Later sources win.
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	// env keys are matched by lower-casing; empty values don't override.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		value = strings.TrimSpace(value)
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	for _, o := range strings.Split(k.String("cors_allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	return cfg, nil
}

// Validate checks required keys and value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("missing DATABASE_URL"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("missing JWT_SECRET"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.DeadlineLookback <= 0 {
		errs = append(errs, errors.New("DEADLINE_LOOKBACK must be positive"))
	}
	if c.FailureThreshold < 1 {
		errs = append(errs, errors.New("FAILURE_THRESHOLD must be at least 1"))
	}
	if c.MaxTodosPerUser < 1 {
		errs = append(errs, errors.New("MAX_TODOS_PER_USER must be at least 1"))
	}
	for name, spec := range map[string]string{
		"REMINDER_CRON_SCHEDULE": c.ReminderSchedule,
		"DEADLINE_CRON_SCHEDULE": c.DeadlineSchedule,
	} {
		if _, err := jobs.Parser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s %q: %w", name, spec, err))
		}
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err))
	}
	return errors.Join(errs...)
}

// Location resolves Timezone; time-of-day comparisons in the jobs use it.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}
