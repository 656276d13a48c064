package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  host: 127.0.0.1
  port: "9090"
llm:
  provider: openai
  base_url: https://api.example.com
  api_key: dummy
  model: gpt-4o
  system_prompt: You are Leo.
  timeout: 15s
reply:
  degraded: true
storage:
  backend: s3
  bucket: leo-transcripts
  region: eu-west-1
  prefix: public
auth:
  session_ttl: 2h
  users:
    - username: alice
      password: secret
      user_id: u1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("DOTENV_PATH", filepath.Join(t.TempDir(), "missing.env"))
	t.Chdir(t.TempDir())
}

// TestLoad_File verifies that Load unmarshals every section of the file.
func TestLoad_File(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	require.Equal(t, "gpt-4o", cfg.LLM.Model)
	require.Equal(t, "You are Leo.", cfg.LLM.SystemPrompt)
	require.Equal(t, 15*time.Second, cfg.LLM.Timeout)
	require.True(t, cfg.Reply.Degraded)
	require.Equal(t, StorageS3, cfg.Storage.Backend)
	require.Equal(t, "leo-transcripts", cfg.Storage.Bucket)
	require.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	require.Equal(t, "leo_session", cfg.Auth.CookieName, "default kept")
	require.Len(t, cfg.Auth.Users, 1)
	require.Equal(t, UserConfig{Username: "alice", Password: "secret", UserID: "u1"}, cfg.Auth.Users[0])
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	require.Equal(t, StorageSQLite, cfg.Storage.Backend)
	require.Equal(t, ProviderOpenAI, cfg.LLM.Provider)
	require.False(t, cfg.Reply.Degraded)
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv("LEO_LLM_API_KEY", "from-env")
	t.Setenv("LEO_REPLY_DEGRADED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.LLM.APIKey)
	require.False(t, cfg.Reply.Degraded)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", "")
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEO_STORAGE_BACKEND=memory\n"), 0o600))
	t.Setenv("DOTENV_PATH", envFile)
	t.Cleanup(func() { os.Unsetenv("LEO_STORAGE_BACKEND") })

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, StorageMemory, cfg.Storage.Backend)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			LLM:     LLMConfig{Provider: ProviderOpenAI},
			Storage: StorageConfig{Backend: StorageMemory},
		}
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Storage.Backend = StorageS3
	require.Error(t, cfg.Validate(), "s3 without bucket")

	cfg = base()
	cfg.Storage.Backend = "ftp"
	require.Error(t, cfg.Validate())

	cfg = base()
	cfg.LLM.Provider = ProviderEndpoint
	require.Error(t, cfg.Validate(), "endpoint without url")
	cfg.Reply.Degraded = true
	require.NoError(t, cfg.Validate(), "degraded endpoint needs no url")

	cfg = base()
	cfg.Auth.Users = []UserConfig{{Username: "a", UserID: "u1"}, {Username: "a", UserID: "u2"}}
	require.Error(t, cfg.Validate(), "duplicate username")

	cfg = base()
	cfg.Auth.Users = []UserConfig{{Username: "a"}}
	require.Error(t, cfg.Validate(), "missing user id")
}
