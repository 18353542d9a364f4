// Package config provides configuration loading and validation for the server and CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jonathan/interview-coach/internal/types"
)

// DefaultPort is used when neither the config file nor PORT sets one.
const DefaultPort = 8080

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from the environment or defaults.
type Config struct {
	// Credentials and storage
	APIKey      string `json:"api_key,omitempty"`      // Gemini API key
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL; empty keeps reports in memory

	// Server
	Port           int      `json:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // CORS origins; empty allows any

	// Models
	LiveModel string `json:"live_model,omitempty"` // Overrides the native-audio interview model

	// Interview defaults shown at setup
	DefaultLevel    types.SkillLevel `json:"default_level,omitempty"`
	DefaultDuration int              `json:"default_duration,omitempty"` // minutes
	DefaultFocus    string           `json:"default_focus,omitempty"`

	// Behavior
	LogLevel string `json:"log_level,omitempty"` // logrus level name
	Verbose  bool   `json:"verbose,omitempty"`   // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// FromEnv reads the environment variables the service recognises.
// GEMINI_API_KEY takes precedence over API_KEY.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		APIKey:      getenv("GEMINI_API_KEY"),
		DatabaseURL: getenv("DATABASE_URL"),
		LiveModel:   getenv("LIVE_MODEL"),
		LogLevel:    getenv("LOG_LEVEL"),
	}
	if cfg.APIKey == "" {
		cfg.APIKey = getenv("API_KEY")
	}
	if port := getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return Config{}, fmt.Errorf("config error: PORT must be an integer: %w", err)
		}
		cfg.Port = p
	}
	if origins := getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
			}
		}
	}
	return cfg, nil
}

// Load resolves the effective configuration: values from the optional config
// file win over the environment, which wins over built-in defaults.
func Load(path string, getenv func(string) string) (*Config, error) {
	env, err := FromEnv(getenv)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if path != "" {
		cfg, err = LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	merged := cfg.MergeWithDefaults(env)
	merged = merged.MergeWithDefaults(Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	def := types.DefaultInterviewConfig()
	return Config{
		Port:            DefaultPort,
		DefaultLevel:    def.Level,
		DefaultDuration: def.Duration,
		DefaultFocus:    def.Focus,
		LogLevel:        "info",
	}
}

// Validate checks that the configuration has valid values.
// Note: This doesn't require an API key since commands that never call the
// model (validate) run without one.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if c.DefaultDuration != 0 && (c.DefaultDuration < types.MinDurationMinutes || c.DefaultDuration > types.MaxDurationMinutes) {
		return fmt.Errorf("config error: 'default_duration' must be between %d and %d minutes",
			types.MinDurationMinutes, types.MaxDurationMinutes)
	}

	if c.DefaultLevel != "" {
		valid := false
		for _, level := range types.Levels() {
			if c.DefaultLevel == level {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("config error: unknown 'default_level' %q", c.DefaultLevel)
		}
	}

	if c.LogLevel != "" {
		if _, err := log.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("config error: invalid 'log_level': %w", err)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LiveModel == "" {
		result.LiveModel = defaults.LiveModel
	}
	if result.DefaultLevel == "" {
		result.DefaultLevel = defaults.DefaultLevel
	}
	if result.DefaultFocus == "" {
		result.DefaultFocus = defaults.DefaultFocus
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}

	// Int fields: use default if zero
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.DefaultDuration == 0 {
		result.DefaultDuration = defaults.DefaultDuration
	}

	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// InterviewDefaults returns the setup defaults as an InterviewConfig.
func (c *Config) InterviewDefaults() types.InterviewConfig {
	def := types.DefaultInterviewConfig()
	if c.DefaultLevel != "" {
		def.Level = c.DefaultLevel
	}
	if c.DefaultDuration != 0 {
		def.Duration = c.DefaultDuration
	}
	if c.DefaultFocus != "" {
		def.Focus = c.DefaultFocus
	}
	return def
}
