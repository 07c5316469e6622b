package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names, in display order.
const (
	ProviderClaude        = "claude"
	ProviderCodex         = "codex"
	ProviderCopilot       = "copilot"
	ProviderGitHubCopilot = "github-copilot"
	ProviderGemini        = "gemini"
)

// ProviderNames lists every known provider in display order.
var ProviderNames = []string{
	ProviderClaude,
	ProviderCodex,
	ProviderCopilot,
	ProviderGitHubCopilot,
	ProviderGemini,
}

type Config struct {
	Server         ServerConfig    `yaml:"server"`
	Cache          CacheConfig     `yaml:"cache"`
	Store          StoreConfig     `yaml:"store"`
	Providers      ProvidersConfig `yaml:"providers"`
	MaxConcurrency int             `yaml:"max_concurrency"`
	TimeoutSeconds int             `yaml:"timeout_seconds"`
	Format         string          `yaml:"format"`
	LogLevel       string          `yaml:"log_level"`
}

type ServerConfig struct {
	Port                string `yaml:"port"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
}

type CacheConfig struct {
	TTLMinutes int `yaml:"ttl_minutes"`
}

type StoreConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

type ProviderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Token     string `yaml:"token"`
	BaseURL   string `yaml:"base_url"`
	AccountID string `yaml:"account_id"`
	Project   string `yaml:"project"`
}

type ProvidersConfig struct {
	Claude        ProviderConfig `yaml:"claude"`
	Codex         ProviderConfig `yaml:"codex"`
	Copilot       ProviderConfig `yaml:"copilot"`
	GitHubCopilot ProviderConfig `yaml:"github_copilot"`
	Gemini        ProviderConfig `yaml:"gemini"`
}

// Default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                "9464",
			PollIntervalSeconds: 300,
		},
		Cache: CacheConfig{
			TTLMinutes: 15,
		},
		Store: StoreConfig{
			Enabled:       false,
			Path:          filepath.Join(defaultStateDir(), "history.db"),
			RetentionDays: 30,
		},
		Providers: ProvidersConfig{
			Claude:  ProviderConfig{Enabled: true},
			Codex:   ProviderConfig{Enabled: true},
			Copilot: ProviderConfig{Enabled: true},
			Gemini:  ProviderConfig{Enabled: true},
		},
		MaxConcurrency: 4,
		TimeoutSeconds: 15,
		Format:         "text",
		LogLevel:       "info",
	}
}

// Load reads the YAML file (missing file means defaults), then .env files,
// then environment overrides.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		if _, err := os.Stat(filename); err == nil {
			data, err := os.ReadFile(filename)
			if err != nil {
				return nil, fmt.Errorf("read config %s: %w", filename, err)
			}
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", filename, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat config %s: %w", filename, err)
		}
	}

	loadEnvFiles(envPaths(filename))
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultPath returns $AIUSAGE_CONFIG or ~/.config/aiusage/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv("AIUSAGE_CONFIG")); p != "" {
		return p
	}
	return filepath.Join(defaultConfigDir(), "config.yaml")
}

// Validate checks values that would otherwise fail later in confusing ways.
func (c *Config) Validate() error {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = 4
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = 15
	}
	if c.Server.PollIntervalSeconds <= 0 {
		return fmt.Errorf("server.poll_interval_seconds must be positive, got %d", c.Server.PollIntervalSeconds)
	}
	switch c.Format {
	case "text", "tsv", "json", "prometheus":
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// Provider returns the settings for a provider name.
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case ProviderClaude:
		return c.Providers.Claude, true
	case ProviderCodex:
		return c.Providers.Codex, true
	case ProviderCopilot:
		return c.Providers.Copilot, true
	case ProviderGitHubCopilot:
		return c.Providers.GitHubCopilot, true
	case ProviderGemini:
		return c.Providers.Gemini, true
	default:
		return ProviderConfig{}, false
	}
}

// EnabledProviders returns enabled provider names in display order.
func (c *Config) EnabledProviders() []string {
	var names []string
	for _, name := range ProviderNames {
		if p, _ := c.Provider(name); p.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// GetCacheTTL returns the cache TTL as a duration
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLMinutes) * time.Minute
}

func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.Server.PollIntervalSeconds) * time.Second
}

func (c *Config) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Config) GetRetention() time.Duration {
	return time.Duration(c.Store.RetentionDays) * 24 * time.Hour
}

// GetPort returns the server port, checking environment variable first
func (c *Config) GetPort() string {
	if port := os.Getenv("PORT"); port != "" {
		return port
	}
	return c.Server.Port
}

func (c *Config) applyEnv() {
	c.Providers.Claude.Token = envString(c.Providers.Claude.Token, "AIUSAGE_CLAUDE_TOKEN", "CLAUDE_ACCESS_TOKEN")
	c.Providers.Codex.Token = envString(c.Providers.Codex.Token, "AIUSAGE_CODEX_TOKEN", "CODEX_ACCESS_TOKEN")
	c.Providers.Codex.AccountID = envString(c.Providers.Codex.AccountID, "AIUSAGE_CODEX_ACCOUNT_ID", "CODEX_ACCOUNT_ID")
	c.Providers.Copilot.Token = envString(c.Providers.Copilot.Token, "AIUSAGE_COPILOT_TOKEN", "GITHUB_TOKEN", "GH_TOKEN")
	c.Providers.GitHubCopilot.Token = envString(c.Providers.GitHubCopilot.Token, "AIUSAGE_GITHUB_COPILOT_TOKEN", "GITHUB_TOKEN", "GH_TOKEN")
	c.Providers.GitHubCopilot.BaseURL = envString(c.Providers.GitHubCopilot.BaseURL, "AIUSAGE_GITHUB_COPILOT_URL")
	c.Providers.Gemini.Token = envString(c.Providers.Gemini.Token, "AIUSAGE_GEMINI_TOKEN", "GEMINI_ACCESS_TOKEN")
	c.Providers.Gemini.Project = envString(c.Providers.Gemini.Project, "AIUSAGE_GEMINI_PROJECT", "GOOGLE_CLOUD_PROJECT")

	c.Format = envString(c.Format, "AIUSAGE_FORMAT")
	c.LogLevel = envString(c.LogLevel, "AIUSAGE_LOG_LEVEL")
	c.Store.Path = envString(c.Store.Path, "AIUSAGE_STORE_PATH")

	if d, ok := envDuration("AIUSAGE_POLL_INTERVAL"); ok {
		c.Server.PollIntervalSeconds = int(d / time.Second)
	}
	if d, ok := envDuration("AIUSAGE_TIMEOUT"); ok {
		c.TimeoutSeconds = int(d / time.Second)
	}
}

// envString returns the first non-empty variable among keys, or current.
func envString(current string, keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return current
}

// envDuration accepts "30s", "5m" or bare seconds.
func envDuration(key string) (time.Duration, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0, false
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, true
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, true
	}
	return 0, false
}

// loadEnvFiles loads the first .env file found. Existing variables win.
func loadEnvFiles(paths []string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func envPaths(configFile string) []string {
	var paths []string
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".env"))
	}
	if configFile != "" {
		paths = append(paths, filepath.Join(filepath.Dir(configFile), ".env"))
	}
	return paths
}

func defaultConfigDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "aiusage")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "aiusage")
}

func defaultStateDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_STATE_HOME")); xdg != "" {
		return filepath.Join(xdg, "aiusage")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "state", "aiusage")
}
