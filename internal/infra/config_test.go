package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate уводит тест в пустой каталог, чтобы не подхватить чужие config.yaml и .env.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	for _, key := range []string{"GROQ_API_KEY", "PROVIDER_API_KEY", "AUTH_PUBLIC_KEY_DATA", "PROVIDER_MODE", "DATABASE_URL"} {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
		}
	}
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.Addr())
	assert.Equal(t, "Groq", cfg.Provider.Name)
	assert.Equal(t, "live", cfg.Provider.Mode)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.Provider.BaseURL)
	assert.Equal(t, "llama3-70b-8192", cfg.Provider.Model)
	assert.Equal(t, 0.7, cfg.Provider.Temperature)
	assert.Equal(t, 1024, cfg.Provider.MaxTokens)
	assert.Equal(t, 30*time.Second, cfg.Provider.Timeout)
	assert.Empty(t, cfg.Provider.APIKey)
	assert.Equal(t, uint32(5), cfg.Engine.CBMaxFailures)
	assert.Equal(t, 1000, cfg.Activity.Retention)
	assert.Empty(t, cfg.Database.URL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := isolate(t)
	yaml := `
server:
  port: 9000
provider:
  model: mixtral-8x7b
  timeout: 5s
activity:
  retention: 250
database:
  driver: sqlite
  url: file:archive.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("PROVIDER_API_KEY", "from-env")
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port, "ENV перекрывает файл")
	assert.Equal(t, "mixtral-8x7b", cfg.Provider.Model)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "from-env", cfg.Provider.APIKey)
	assert.Equal(t, 250, cfg.Activity.Retention)
	assert.Equal(t, "file:archive.db", cfg.Database.URL)
}

func TestLoadConfig_LegacyGroqKey(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GROQ_API_KEY", "gsk_legacy")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "gsk_legacy", cfg.Provider.APIKey)

	t.Setenv("PROVIDER_API_KEY", "explicit")
	cfg, err = LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Provider.APIKey)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GROQ_API_KEY=gsk_dotenv\n"), 0o600))
	// godotenv не перезаписывает уже существующие переменные
	t.Setenv("GROQ_API_KEY", "")
	require.NoError(t, os.Unsetenv("GROQ_API_KEY"))
	t.Cleanup(func() { os.Unsetenv("GROQ_API_KEY") })

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "gsk_dotenv", cfg.Provider.APIKey)
}

func TestLoadConfig_PublicKeyFromEnv(t *testing.T) {
	dir := isolate(t)
	t.Setenv("AUTH_PUBLIC_KEY_DATA", "-----BEGIN PUBLIC KEY-----")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := isolate(t)

	t.Setenv("PROVIDER_MODE", "offline")
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "provider.mode")

	t.Setenv("PROVIDER_MODE", "mock")
	t.Setenv("DATABASE_URL", "mysql://x")
	t.Setenv("DATABASE_DRIVER", "mysql")
	_, err = LoadConfig(dir)
	assert.ErrorContains(t, err, "database.driver")
}

func TestLoadConfig_BrokenFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0o600))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "error reading config file")
}

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console", ""} {
		logger, err := NewLogger(LoggerConfig{Level: "debug", Format: format})
		require.NoError(t, err, format)
		assert.NotNil(t, logger)
	}

	_, err := NewLogger(LoggerConfig{Level: "loud", Format: "json"})
	assert.Error(t, err)
	_, err = NewLogger(LoggerConfig{Level: "info", Format: "xml"})
	assert.Error(t, err)
}
