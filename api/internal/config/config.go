package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"port" validate:"required,numeric"`
	LogLevel string `mapstructure:"log_level" validate:"oneof=debug info warn error"`

	Gemini   GeminiConfig   `mapstructure:"gemini"`
	Vision   VisionConfig   `mapstructure:"vision"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`

	HistoryLimit   int           `mapstructure:"history_limit" validate:"min=1,max=1000"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RetryAttempts  uint          `mapstructure:"retry_attempts" validate:"min=1,max=10"`
	PromptDir      string        `mapstructure:"prompt_dir" validate:"omitempty,dir"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model" validate:"required"`
}

type VisionConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type TelegramConfig struct {
	BotToken   string `mapstructure:"bot_token"`
	WebhookURL string `mapstructure:"webhook_url" validate:"omitempty,url"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"oneof=pgx sqlite"`
	URL    string `mapstructure:"url"`
}

var envBindings = map[string]string{
	"port":                 "PORT",
	"log_level":            "LOG_LEVEL",
	"gemini.api_key":       "GEMINI_API_KEY",
	"gemini.model":         "GEMINI_MODEL",
	"vision.api_key":       "VISION_API_KEY",
	"telegram.bot_token":   "TELEGRAM_BOT_TOKEN",
	"telegram.webhook_url": "WEBHOOK_URL",
	"database.driver":      "DB_DRIVER",
	"database.url":         "DATABASE_URL",
	"history_limit":        "HISTORY_LIMIT",
	"request_timeout":      "REQUEST_TIMEOUT",
	"retry_attempts":       "RETRY_ATTEMPTS",
	"prompt_dir":           "PROMPT_DIR",
}

// Load reads the optional config file, applies environment overrides and
// validates the result. Secrets are expected in the environment.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("airmath")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/airmath")
	}

	v.SetDefault("port", "8000")
	v.SetDefault("log_level", "info")
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("history_limit", 50)
	v.SetDefault("request_timeout", 180*time.Second)
	v.SetDefault("retry_attempts", 3)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s environment variable: %w", env, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("configuration file found but could not be read: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration format: %w", err)
	}
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	if strings.TrimSpace(cfg.Database.URL) == "" {
		switch cfg.Database.Driver {
		case "pgx":
			cfg.Database.URL = resolveDSN()
		case "sqlite":
			cfg.Database.URL = "airmath.db"
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints and reports every violation at once.
func (c *Config) Validate() error {
	validate, trans, err := newValidator()
	if err != nil {
		return err
	}
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			msgs = append(msgs, fe.Translate(trans))
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// resolveDSN builds a Postgres DSN from POSTGRES_* / PG* variables.
func resolveDSN() string {
	user := getenvDefault("POSTGRES_USER", "airmath")
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	db := getenvDefault("POSTGRES_DB", "airmath")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}
