package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  host: 127.0.0.1
  port: "9000"
client:
  base_url: https://api.example.com
  timeout: 10s
llm:
  api_key: dummy
  model: test-model
auth:
  jwt_secret: sekrit
store:
  path: /tmp/test.db
chat:
  max_conversation_length: 10
  keep_recent_messages: 4
log:
  level: debug
`

// TestLoad_File verifies that Load unmarshals a full config file.
func TestLoad_File(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	require.NoError(t, err)
	_, err = tmp.WriteString(sampleConfig)
	require.NoError(t, err)
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1", cfg.Server.Host)
	require.Equal(t, "9000", cfg.Server.Port)
	require.Equal(t, "https://api.example.com", cfg.Client.BaseURL)
	require.Equal(t, 10*time.Second, cfg.Client.Timeout)
	require.Equal(t, "test-model", cfg.LLM.Model)
	require.Equal(t, "sekrit", cfg.Auth.JWTSecret)
	require.Equal(t, 10, cfg.Chat.MaxConversationLength)
	require.Equal(t, "debug", cfg.Log.Level)
}

// TestLoad_Defaults verifies that a missing config file is not an error and
// defaults fill every field.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8000", cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.Client.Timeout)
	require.Equal(t, 50, cfg.Chat.MaxConversationLength)
	require.Equal(t, "carebot.db", cfg.Store.Path)
}

// TestLoad_EnvOverride verifies CAREBOT_ environment variables win.
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())
	t.Setenv("CAREBOT_SERVER_PORT", "7777")
	t.Setenv("CAREBOT_AUTH_JWT_SECRET", "from-env")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "7777", cfg.Server.Port)
	require.Equal(t, "from-env", cfg.Auth.JWTSecret)
}

// chdir changes the working directory for the duration of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(old) })
}
