package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultConfigDir is the directory under $HOME holding config and data.
const DefaultConfigDir = ".seedsoil"

// Config holds all seedsoil configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pulse    PulseConfig    `mapstructure:"pulse"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Intake   IntakeConfig   `mapstructure:"intake"`
}

type ServerConfig struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider     string `mapstructure:"provider"` // "openrouter", "anthropic", "ollama", "claude-cli"
	Model        string `mapstructure:"model"`
	APIKey       string `mapstructure:"api_key"` // openrouter
	AnthropicKey string `mapstructure:"anthropic_key"`
	OllamaURL    string `mapstructure:"ollama_url"`
	OllamaModel  string `mapstructure:"ollama_model"`
	Timeout      int    `mapstructure:"timeout"` // seconds
}

type PulseConfig struct {
	MaxRawChars int `mapstructure:"max_raw_chars"`
}

type SyncConfig struct {
	Backend  string `mapstructure:"backend"` // "", "gist", "git"
	GistID   string `mapstructure:"gist_id"`
	Token    string `mapstructure:"token"`
	FileName string `mapstructure:"file_name"`
	APIURL   string `mapstructure:"api_url"`
	RepoPath string `mapstructure:"repo_path"`
	Remote   string `mapstructure:"remote"` // URL registered as origin, empty keeps the repository local
}

type IntakeConfig struct {
	Inbox    string   `mapstructure:"inbox"`
	Patterns []string `mapstructure:"patterns"`
	Pulse    bool     `mapstructure:"pulse"` // run a pulse after each intake
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Database: DatabaseConfig{
			Path: "", // resolved at runtime via store.DefaultDBPath()
		},
		LLM: LLMConfig{
			Provider:  "openrouter",
			Model:     "google/gemini-2.0-flash-exp:free",
			OllamaURL: "http://localhost:11434",
			Timeout:   120,
		},
		Pulse: PulseConfig{
			MaxRawChars: 30000,
		},
		Sync: SyncConfig{
			FileName: "seedsoil.json",
			APIURL:   "https://api.github.com",
		},
		Intake: IntakeConfig{
			Patterns: []string{"**/*.txt", "**/*.md", "**/*.markdown", "**/*.jsonl"},
			Pulse:    true,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.bind", d.Server.Bind)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.anthropic_key", "")
	v.SetDefault("llm.ollama_url", d.LLM.OllamaURL)
	v.SetDefault("llm.ollama_model", "")
	v.SetDefault("llm.timeout", d.LLM.Timeout)
	v.SetDefault("pulse.max_raw_chars", d.Pulse.MaxRawChars)
	v.SetDefault("sync.backend", "")
	v.SetDefault("sync.gist_id", "")
	v.SetDefault("sync.token", "")
	v.SetDefault("sync.file_name", d.Sync.FileName)
	v.SetDefault("sync.api_url", d.Sync.APIURL)
	v.SetDefault("sync.repo_path", "")
	v.SetDefault("sync.remote", "")
	v.SetDefault("intake.inbox", "")
	v.SetDefault("intake.patterns", d.Intake.Patterns)
	v.SetDefault("intake.pulse", d.Intake.Pulse)
}

// Dir returns ~/.seedsoil.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, DefaultConfigDir), nil
}

// Load reads configuration. If path is empty, ~/.seedsoil/config.{json,yaml,toml}
// is used when present; a missing file yields defaults. SEEDSOIL_* environment
// variables override file values (e.g. SEEDSOIL_LLM_API_KEY).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("seedsoil")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides honors the conventional provider variables.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" && cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.LLM.AnthropicKey == "" {
		cfg.LLM.AnthropicKey = key
		if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "openrouter" {
			cfg.LLM.Provider = "anthropic"
			cfg.LLM.Model = ""
		}
	}
	if tok := os.Getenv("GITHUB_TOKEN"); tok != "" && cfg.Sync.Token == "" {
		cfg.Sync.Token = tok
	}
	if p := os.Getenv("SEEDSOIL_DB"); p != "" {
		cfg.Database.Path = p
	}
}

func validate(cfg *Config) error {
	switch cfg.LLM.Provider {
	case "openrouter", "anthropic", "ollama", "claude-cli":
	default:
		return fmt.Errorf("llm.provider must be one of openrouter, anthropic, ollama, claude-cli, got %q", cfg.LLM.Provider)
	}

	switch cfg.Sync.Backend {
	case "":
	case "gist":
		if cfg.Sync.GistID == "" {
			return fmt.Errorf("sync.gist_id is required when sync.backend is 'gist'")
		}
	case "git":
		if cfg.Sync.RepoPath == "" {
			return fmt.Errorf("sync.repo_path is required when sync.backend is 'git'")
		}
	default:
		return fmt.Errorf("sync.backend must be 'gist' or 'git', got %q", cfg.Sync.Backend)
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Pulse.MaxRawChars < 1 {
		return fmt.Errorf("pulse.max_raw_chars must be positive, got %d", cfg.Pulse.MaxRawChars)
	}
	if cfg.LLM.Timeout < 1 {
		return fmt.Errorf("llm.timeout must be at least 1 second, got %d", cfg.LLM.Timeout)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// SyncEnabled reports whether a remote document store is configured.
func (c *Config) SyncEnabled() bool {
	return c.Sync.Backend != ""
}

// LLMTimeout returns the per-request LLM timeout.
func (c *LLMConfig) LLMTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}
