package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"GIST_NAME", "WORKFLOW_NAME", "STORAGE_TYPE", "API_PORT", "SESSION_TTL", "SECURE_COOKIES", "CORS_ORIGINS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultGistName, cfg.GistName)
	assert.Equal(t, "ci", cfg.WorkflowName)
	assert.Equal(t, "sqlite", cfg.StorageType)
	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, 720*time.Hour, cfg.SessionTTL)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("GIST_NAME", "projects.json")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("CORS_ORIGINS", "https://dash.example.com, ,https://other.example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "projects.json", cfg.GistName)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.Equal(t, []string{"https://dash.example.com", "https://other.example.com"}, cfg.CORSOrigins)
}

func TestLoad_InvalidTTL(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "SESSION_TTL", cfgErr.Field)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name          string
		cfg           Config
		expectedField string
	}{
		{
			name:          "missing client id",
			cfg:           Config{GitHubClientSecret: "s", StorageType: "sqlite"},
			expectedField: "GITHUB_CLIENT_ID",
		},
		{
			name:          "missing client secret",
			cfg:           Config{GitHubClientID: "id", StorageType: "sqlite"},
			expectedField: "GITHUB_SECRET",
		},
		{
			name:          "unknown storage",
			cfg:           Config{GitHubClientID: "id", GitHubClientSecret: "s", StorageType: "redis"},
			expectedField: "STORAGE_TYPE",
		},
		{
			name:          "postgres without url",
			cfg:           Config{GitHubClientID: "id", GitHubClientSecret: "s", StorageType: "postgres"},
			expectedField: "POSTGRES_URL",
		},
		{
			name: "valid sqlite",
			cfg:  Config{GitHubClientID: "id", GitHubClientSecret: "s", StorageType: "sqlite"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.expectedField == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tc.expectedField, cfgErr.Field)
		})
	}
}
