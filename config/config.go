package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config holds everything the runner needs. Secrets normally come from the
// environment rather than the file.
type Config struct {
	LLM        *LLMConfig     `mapstructure:"llm"`
	ServerAddr string         `mapstructure:"server_addr"`
	SiteURL    string         `mapstructure:"site_url"`
	Database   DatabaseConfig `mapstructure:"database"`
	Email      EmailConfig    `mapstructure:"email"`
	Archive    ArchiveConfig  `mapstructure:"archive"`
	Planner    PlannerConfig  `mapstructure:"planner"`
	Secrets    SecretsConfig  `mapstructure:"secrets"`
}

// LLMConfig 生成模块的模型配置。
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EmailConfig configures distribution through the Resend API.
type EmailConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	From          string        `mapstructure:"from"`
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	BaseURL       string        `mapstructure:"base_url"`
	Pacing        time.Duration `mapstructure:"pacing"`
}

// ArchiveConfig enables S3 upload of rendered issues when Bucket is set.
type ArchiveConfig struct {
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	BaseURL  string `mapstructure:"base_url"`
}

// Enabled reports whether an archive bucket is configured.
func (a ArchiveConfig) Enabled() bool { return a.Bucket != "" }

type PlannerConfig struct {
	CooldownCycles int `mapstructure:"cooldown_cycles"`
}

var envBindings = map[string][]string{
	"llm.api_key":    {"OPENAI_API_KEY", "LLM_API_KEY"},
	"email.api_key":  {"RESEND_API_KEY"},
	"email.from":     {"DIGEST_EMAIL_FROM"},
	"database.path":  {"DIGEST_DB_PATH"},
	"site_url":       {"SITE_URL"},
	"archive.bucket": {"DIGEST_ARCHIVE_BUCKET"},
	"archive.region": {"AWS_REGION"},
	"secrets.region": {"AWS_REGION"},
}

// DefaultDatabasePath is digest.db under the user's XDG data directory.
func DefaultDatabasePath() string {
	return filepath.Join(xdg.DataHome, "auto-digest", "digest.db")
}

func defaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.model", "gpt-4o")
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("site_url", "http://localhost:3000")
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("email.from", "Dad's Workout <onboarding@resend.dev>")
	v.SetDefault("email.subject_prefix", "Dad's Workout: ")
	v.SetDefault("email.base_url", "https://api.resend.com")
	v.SetDefault("email.pacing", 200*time.Millisecond)
	v.SetDefault("archive.prefix", "issues")
	v.SetDefault("planner.cooldown_cycles", 8)
}

// Load reads JSON or YAML config from path (by extension) and applies
// environment overrides. A missing file is not an error when path is empty.
func Load(path string) (Config, error) {
	v := viper.New()
	defaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, err
		}
	}
	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks what every command needs.
func (c Config) Validate() error {
	if c.LLM == nil || c.LLM.Provider == "" {
		return errors.New("llm config missing; please set llm.provider/model in config")
	}
	switch c.LLM.Provider {
	case "openai", "mock":
	case "deepseek":
		if c.LLM.BaseURL == "" {
			return errors.New("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
	default:
		return fmt.Errorf("llm provider %s not supported", c.LLM.Provider)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if c.Planner.CooldownCycles < 1 {
		return fmt.Errorf("planner.cooldown_cycles must be at least 1, got %d", c.Planner.CooldownCycles)
	}
	if c.Email.Pacing < 0 {
		return fmt.Errorf("email.pacing must not be negative, got %s", c.Email.Pacing)
	}
	return nil
}

// ValidateEmail checks the settings needed to send.
func (c Config) ValidateEmail() error {
	if c.Email.APIKey == "" {
		return errors.New("RESEND_API_KEY environment variable is required for email sending")
	}
	if c.Email.From == "" {
		return errors.New("email.from is required")
	}
	return nil
}
