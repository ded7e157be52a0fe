// Package config provides configuration loading and validation for the CLI and API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for all TRUSTCHAIN_* environment variables
const EnvPrefix = "TRUSTCHAIN"

// Config is the full process configuration.
// Values come from defaults, an optional trustchain.yaml and the environment, in that order.
type Config struct {
	GitHub      GitHubConfig `mapstructure:"github"`
	LLM         LLMConfig    `mapstructure:"llm"`
	Cache       CacheConfig  `mapstructure:"cache"`
	Server      ServerConfig `mapstructure:"server"`
	Log         LogConfig    `mapstructure:"log"`
	DatabaseURL string       `mapstructure:"database_url"`
	SecretKey   string       `mapstructure:"secret_key"` // Hash secret for verification fingerprints
}

// GitHubConfig configures the source host client
type GitHubConfig struct {
	Token             string  `mapstructure:"token"`
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	MaxRepos          int     `mapstructure:"max_repos" validate:"gte=1,lte=100"`
	CommitLimit       int     `mapstructure:"commit_limit" validate:"gte=1,lte=100"`
	Workers           int     `mapstructure:"workers" validate:"gte=1,lte=32"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gt=0"`
	CloneDir          string  `mapstructure:"clone_dir" validate:"required"`
}

// LLMConfig configures the language model provider
type LLMConfig struct {
	Provider string        `mapstructure:"provider" validate:"oneof=openai gemini"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"` // Optional override for every tier
	Timeout  time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// CacheConfig configures the evidence cache
type CacheConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory badger"`
	Path            string        `mapstructure:"path"`
	EvidenceTTL     time.Duration `mapstructure:"evidence_ttl" validate:"gt=0"`
	CloneTTL        time.Duration `mapstructure:"clone_ttl" validate:"gt=0"`
	VerificationTTL time.Duration `mapstructure:"verification_ttl" validate:"gt=0"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Port           int             `mapstructure:"port" validate:"gte=1,lte=65535"`
	MaxUploadBytes int64           `mapstructure:"max_upload_bytes" validate:"gt=0"`
	CORSOrigins    []string        `mapstructure:"cors_origins"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig configures per-client request limits
type RateLimitConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DefaultLimit  int           `mapstructure:"default_limit" validate:"gte=1"`
	DefaultWindow time.Duration `mapstructure:"default_window" validate:"gt=0"`
	VerifyLimit   int           `mapstructure:"verify_limit" validate:"gte=1"`
	VerifyWindow  time.Duration `mapstructure:"verify_window" validate:"gt=0"`
	VerifyBurst   int           `mapstructure:"verify_burst" validate:"gte=1"`
	Whitelist     []string      `mapstructure:"whitelist"`
	Blacklist     []string      `mapstructure:"blacklist"`
}

// LogConfig configures the root logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=console json"`
}

// setDefaults registers every key so environment overrides are picked up by Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("github.token", "")
	v.SetDefault("github.base_url", "https://api.github.com")
	v.SetDefault("github.max_repos", 5)
	v.SetDefault("github.commit_limit", 10)
	v.SetDefault("github.workers", 4)
	v.SetDefault("github.requests_per_second", 5.0)
	v.SetDefault("github.clone_dir", filepath.Join(os.TempDir(), "trustchain-clones"))

	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.timeout", 60*time.Second)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.evidence_ttl", time.Hour)
	v.SetDefault("cache.clone_ttl", 30*time.Minute)
	v.SetDefault("cache.verification_ttl", 24*time.Hour)

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_upload_bytes", int64(10<<20))
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit.enabled", true)
	v.SetDefault("server.rate_limit.default_limit", 600)
	v.SetDefault("server.rate_limit.default_window", time.Minute)
	v.SetDefault("server.rate_limit.verify_limit", 10)
	v.SetDefault("server.rate_limit.verify_window", time.Hour)
	v.SetDefault("server.rate_limit.verify_burst", 2)
	v.SetDefault("server.rate_limit.whitelist", []string{})
	v.SetDefault("server.rate_limit.blacklist", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "")

	v.SetDefault("database_url", "")
	v.SetDefault("secret_key", "")
}

// bindWellKnownEnv maps conventional variable names onto config keys
func bindWellKnownEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"github.token": {EnvPrefix + "_GITHUB_TOKEN", "GITHUB_TOKEN"},
		"database_url": {EnvPrefix + "_DATABASE_URL", "DATABASE_URL"},
		"secret_key":   {EnvPrefix + "_SECRET_KEY", "SECRET_KEY"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}
	return nil
}

// Load reads configuration. An empty path looks for ./trustchain.yaml and
// tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindWellKnownEnv(v); err != nil {
		return nil, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("trustchain")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.applyProviderKey()
	return &cfg, nil
}

// applyProviderKey falls back to the provider's conventional API key variable
func (c *Config) applyProviderKey() {
	if c.LLM.APIKey != "" {
		return
	}
	switch c.LLM.Provider {
	case "gemini":
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// Validate checks field ranges and cross-field constraints.
// Credentials are not required here; commands that need them check on their own.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config error: %s failed %q validation", first.Namespace(), first.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.Cache.CloneTTL >= c.Cache.EvidenceTTL {
		return fmt.Errorf("config error: cache.clone_ttl (%s) must be shorter than cache.evidence_ttl (%s)",
			c.Cache.CloneTTL, c.Cache.EvidenceTTL)
	}
	if c.Cache.Backend == "badger" && c.Cache.Path == "" {
		return fmt.Errorf("config error: cache.path is required for the badger backend")
	}

	return nil
}
