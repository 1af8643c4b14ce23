// ABOUTME: Tests for configuration loading
// ABOUTME: Verifies defaults, env expansion, duration parsing, and validation errors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assist.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:9000"
database:
  path: "/tmp/assist.db"
engine:
  base_url: "https://engine.example.com/v1"
  api_key: "secret"
  request_timeout: "30s"
premium:
  refresh_interval: "10m"
models:
  - key: swift
    name: Swift
    maker: "2389"
    tier: basic_and_premium
  - key: sage
    name: Sage
    tier: premium
  - key: local
    request_name: llama3
    endpoint: "http://localhost:8080"
actions:
  - category: "Quick actions"
    entries:
      - label: "On this page"
        subheading: true
      - label: "Summarize"
        action_tag: summarize_page
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.HTTPAddr)
	assert.Equal(t, "/tmp/assist.db", cfg.Database.Path)
	assert.Equal(t, 30*time.Second, cfg.Engine.RequestTimeout)
	assert.Equal(t, 10*time.Minute, cfg.Premium.RefreshInterval)
	require.Len(t, cfg.Models, 3)
	assert.Equal(t, "premium", cfg.Models[1].Tier)
	assert.Equal(t, "http://localhost:8080", cfg.Models[2].Endpoint)
	require.Len(t, cfg.Actions, 1)
	assert.True(t, cfg.Actions[0].Entries[0].Subheading)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_DefaultsApply(t *testing.T) {
	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:9000"
database:
  path: "/tmp/assist.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60*time.Second, cfg.Engine.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Premium.RefreshInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("ASSIST_TEST_API_KEY", "from-env")

	path := writeConfig(t, `
server:
  http_addr: "127.0.0.1:9000"
database:
  path: "/tmp/assist.db"
engine:
  api_key: "${ASSIST_TEST_API_KEY}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Engine.APIKey)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			"missing database path",
			"server:\n  http_addr: \"x\"\ndatabase:\n  path: \"\"\n",
			"database.path",
		},
		{
			"bad tier",
			"database:\n  path: \"/tmp/x\"\nmodels:\n  - key: m\n    tier: gold\n",
			"tier",
		},
		{
			"duplicate model key",
			"database:\n  path: \"/tmp/x\"\nmodels:\n  - key: m\n  - key: m\n",
			"duplicated",
		},
		{
			"entry without tag or subheading",
			"database:\n  path: \"/tmp/x\"\nactions:\n  - category: c\n    entries:\n      - label: l\n",
			"action_tag",
		},
		{
			"bad duration",
			"database:\n  path: \"/tmp/x\"\nengine:\n  request_timeout: \"soon\"\n",
			"request_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/assist.yaml")
	assert.Error(t, err)
}
