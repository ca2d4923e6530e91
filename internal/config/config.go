package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
}

type BotConfig struct {
	APIBaseURL     string `yaml:"api_base_url"`
	RecipientsFile string `yaml:"recipients_file"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"` // empty disables Redis, falls back to in-process limiting
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Secrets come from the environment (optionally seeded from a dotenv file),
// never from the YAML file.
type Secrets struct {
	Token       string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	AdminChatID int64  `envconfig:"TELEGRAM_CHAT_ID" required:"true"`
	Password    string `envconfig:"TELEGRAM_BOT_PASSWORD" required:"true"`
	AdminAPIKey string `envconfig:"ADMIN_API_KEY"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Bot       BotConfig       `yaml:"bot"`
	Log       LogConfig       `yaml:"log"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	EnvFile   string          `yaml:"env_file"`

	Secrets Secrets       `yaml:"-"`
	Runtime RuntimeConfig `yaml:"-"`
}

// Load reads the YAML config, overlays secrets from the environment and
// validates required values. Any failure here is fatal: the process must not
// start without a bot token, an admin chat id and a password.
func Load(path string, dev bool) (*Config, error) {
	var cfg Config
	cfg.EnvFile = ".env"

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":5000"
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "static"
	}
	if cfg.Bot.APIBaseURL == "" {
		cfg.Bot.APIBaseURL = "https://api.telegram.org"
	}
	if cfg.Bot.RecipientsFile == "" {
		cfg.Bot.RecipientsFile = "auth_users.json"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 3
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = time.Minute
	}

	if err := godotenv.Load(cfg.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", cfg.EnvFile, err)
	}
	if err := envconfig.Process("", &cfg.Secrets); err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	if cfg.Secrets.Token == "" {
		return nil, errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if cfg.Secrets.Password == "" {
		return nil, errors.New("TELEGRAM_BOT_PASSWORD is required")
	}
	if cfg.Secrets.AdminChatID == 0 {
		return nil, errors.New("TELEGRAM_CHAT_ID must be a non-zero chat id")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
