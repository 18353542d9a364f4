package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-coach/internal/types"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_ValidJSON(t *testing.T) {
	path := writeConfig(t, `{
		"port": 9090,
		"default_level": "Advanced",
		"default_duration": 45,
		"default_focus": "Data Engineering",
		"allowed_origins": ["http://localhost:5173"],
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, types.LevelAdvanced, cfg.DefaultLevel)
	assert.Equal(t, 45, cfg.DefaultDuration)
	assert.Equal(t, "Data Engineering", cfg.DefaultFocus)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.AllowedOrigins)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{ invalid json }`))
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestFromEnv(t *testing.T) {
	cfg, err := FromEnv(envFrom(map[string]string{
		"GEMINI_API_KEY":  "gem-key",
		"API_KEY":         "fallback",
		"DATABASE_URL":    "postgres://localhost/coach",
		"PORT":            "3000",
		"ALLOWED_ORIGINS": "https://coach.example.com, http://localhost:5173,",
	}))
	require.NoError(t, err)
	assert.Equal(t, "gem-key", cfg.APIKey)
	assert.Equal(t, []string{"https://coach.example.com", "http://localhost:5173"}, cfg.AllowedOrigins)
	assert.Equal(t, "postgres://localhost/coach", cfg.DatabaseURL)
	assert.Equal(t, 3000, cfg.Port)

	cfg, err = FromEnv(envFrom(map[string]string{"API_KEY": "fallback"}))
	require.NoError(t, err)
	assert.Equal(t, "fallback", cfg.APIKey)

	_, err = FromEnv(envFrom(map[string]string{"PORT": "eighty"}))
	assert.Error(t, err)
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `{"port": 9090, "default_focus": "Frontend"}`)

	cfg, err := Load(path, envFrom(map[string]string{
		"PORT":           "3000",
		"GEMINI_API_KEY": "env-key",
	}))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port, "file wins over env")
	assert.Equal(t, "env-key", cfg.APIKey, "env fills what the file leaves empty")
	assert.Equal(t, "Frontend", cfg.DefaultFocus)
	assert.Equal(t, 20, cfg.DefaultDuration, "built-in default")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := Load("", envFrom(nil))
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, types.DefaultInterviewConfig(), cfg.InterviewDefaults())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"valid", Config{Port: 8080, DefaultDuration: 30, DefaultLevel: types.LevelExpert, LogLevel: "debug"}, ""},
		{"empty is valid", Config{}, ""},
		{"bad port", Config{Port: 70000}, "port"},
		{"short duration", Config{DefaultDuration: 5}, "default_duration"},
		{"long duration", Config{DefaultDuration: 61}, "default_duration"},
		{"unknown level", Config{DefaultLevel: "Wizard"}, "default_level"},
		{"bad log level", Config{LogLevel: "loud"}, "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	defaults := Config{
		APIKey:          "default-key",
		Port:            8080,
		DefaultDuration: 20,
		AllowedOrigins:  []string{"*"},
	}

	partial := Config{
		APIKey:  "custom-key",
		Verbose: true,
	}

	merged := partial.MergeWithDefaults(defaults)

	// Custom values should be preserved
	assert.Equal(t, "custom-key", merged.APIKey)
	assert.True(t, merged.Verbose)

	// Default values should fill in empty fields
	assert.Equal(t, 8080, merged.Port)
	assert.Equal(t, 20, merged.DefaultDuration)
	assert.Equal(t, []string{"*"}, merged.AllowedOrigins)
}

func TestInterviewDefaults(t *testing.T) {
	cfg := Config{DefaultLevel: types.LevelBeginner, DefaultDuration: 15}
	got := cfg.InterviewDefaults()
	assert.Equal(t, types.InterviewConfig{Level: types.LevelBeginner, Duration: 15, Focus: "Software Engineering"}, got)
}
