package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) }) //nolint:errcheck
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "showroom.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(400), cfg.Chat.MaxTokens)
	assert.Equal(t, 20, cfg.Chat.MaxHistory)
	assert.Equal(t, "5m", cfg.Chat.CacheTTL)
	assert.Equal(t, "feeds", cfg.Inventory.Source)
	assert.True(t, cfg.Inventory.Watch)
	assert.Equal(t, 6, cfg.Inventory.SearchLimit)
	assert.Equal(t, 25, cfg.Inventory.ContextLimit)
	assert.True(t, cfg.Speech.Enabled)
	assert.Equal(t, "eleven_turbo_v2_5", cfg.Speech.ElevenLabs.ModelID)
	assert.Equal(t, "mp3_44100_128", cfg.Speech.ElevenLabs.OutputFormat)
	assert.InDelta(t, 0.5, cfg.Speech.ElevenLabs.Stability, 0.001)
	assert.InDelta(t, 0.75, cfg.Speech.ElevenLabs.SimilarityBoost, 0.001)
	assert.InDelta(t, 0.3, cfg.Speech.ElevenLabs.Style, 0.001)
	assert.True(t, cfg.Speech.ElevenLabs.SpeakerBoost)
	assert.Equal(t, "espeak-ng", cfg.Speech.Local.Binary)
	assert.Equal(t, "ffplay", cfg.Speech.Local.Player)
	assert.Equal(t, "https://login.salesforce.com", cfg.Salesforce.LoginURL)
	assert.Equal(t, "Showroom_Session_Id__c", cfg.Salesforce.SessionField)
	assert.False(t, cfg.Salesforce.Enabled())
	assert.InDelta(t, 3.0, cfg.Notion.RateLimit, 0.001)
	assert.True(t, cfg.SessionLog.Store)
	assert.Equal(t, 15, cfg.SessionLog.TimeoutSecs)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/showroom
log:
  level: debug
  format: console
server:
  port: 9090
inventory:
  feeds:
    - https://dealer.example.com/inventory.csv
    - ./lot.xlsx
patterns:
  overrides_path: patterns.yaml
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/showroom", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://dealer.example.com/inventory.csv", "./lot.xlsx"}, cfg.Inventory.Feeds)
	assert.Equal(t, "patterns.yaml", cfg.Patterns.OverridesPath)
	// Defaults still apply for unset values
	assert.Equal(t, 6, cfg.Inventory.SearchLimit)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SHOWROOM_STORE_DRIVER", "postgres")
	t.Setenv("SHOWROOM_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("SHOWROOM_SERVER_PORT", "3000")
	t.Setenv("SHOWROOM_ANTHROPIC_KEY", "sk-test")
	t.Setenv("SHOWROOM_SPEECH_ELEVENLABS_VOICE_ID", "voice-1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, "voice-1", cfg.Speech.ElevenLabs.VoiceID)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 15*time.Second, Seconds(15))
	assert.Equal(t, time.Duration(0), Seconds(0))
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.DatabaseURL = "showroom.db"
	cfg.Anthropic.Key = "sk-test"
	cfg.Chat.TimeoutSecs = 20
	cfg.Inventory.Source = "feeds"
	cfg.Inventory.Feeds = []string{"lot.csv"}
	cfg.Inventory.SearchLimit = 6
	cfg.Speech.ElevenLabs.Stability = 0.5
	cfg.Speech.ElevenLabs.SimilarityBoost = 0.75
	cfg.Speech.ElevenLabs.Style = 0.3
	cfg.SessionLog.Store = true
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_ValidModes(t *testing.T) {
	cfg := validDefaults()
	for _, mode := range []string{"serve", "chat", "inventory", "sessions"} {
		assert.NoError(t, cfg.Validate(mode), mode)
	}
}

func TestValidateUnknownMode(t *testing.T) {
	err := validDefaults().Validate("bogus")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")

	// chat mode does not bind a port
	assert.NoError(t, cfg.Validate("chat"))
}

func TestValidateChat_MissingKeyAndFeeds(t *testing.T) {
	cfg := validDefaults()
	cfg.Anthropic.Key = ""
	cfg.Inventory.Feeds = nil

	err := cfg.Validate("chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.Contains(t, err.Error(), "inventory.feeds is required")
}

func TestValidate_StoreSourceNeedsNoFeeds(t *testing.T) {
	cfg := validDefaults()
	cfg.Inventory.Source = "store"
	cfg.Inventory.Feeds = nil
	assert.NoError(t, cfg.Validate("serve"))

	cfg.Inventory.Source = "ftp"
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory.source must be feeds or store")
}

func TestValidate_PostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Store.DatabaseURL = ""

	for _, mode := range []string{"serve", "inventory", "sessions"} {
		err := cfg.Validate(mode)
		require.Error(t, err, mode)
		assert.Contains(t, err.Error(), "store.database_url is required for postgres")
	}

	cfg.Store.Driver = "mysql"
	err := cfg.Validate("inventory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.driver must be sqlite or postgres")
}

func TestValidate_PartialSalesforce(t *testing.T) {
	cfg := validDefaults()
	cfg.Salesforce.ClientID = "client"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "salesforce.username is required")
	assert.Contains(t, err.Error(), "salesforce.key_path is required")
	assert.NotContains(t, err.Error(), "salesforce.client_id is required")

	cfg.Salesforce.Username = "kiosk@dealer.example.com"
	cfg.Salesforce.KeyPath = "/etc/showroom/sf.key"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidate_NotionNeedsDatabase(t *testing.T) {
	cfg := validDefaults()
	cfg.Notion.Token = "secret"
	err := cfg.Validate("chat")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.session_db is required")

	cfg.Notion.SessionDB = "db-1"
	assert.NoError(t, cfg.Validate("chat"))
}

func TestValidate_VoiceSettingsBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Speech.ElevenLabs.Stability = 1.2
	cfg.Speech.ElevenLabs.Style = -0.1

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech.elevenlabs.stability must be between 0 and 1")
	assert.Contains(t, err.Error(), "speech.elevenlabs.style must be between 0 and 1")
	assert.NotContains(t, err.Error(), "similarity_boost")
}

func TestValidate_ElevenLabsKeyNeedsVoice(t *testing.T) {
	cfg := validDefaults()
	cfg.Speech.ElevenLabs.Key = "xi-key"
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech.elevenlabs.voice_id is required")
}

func TestValidate_SearchLimitBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Inventory.SearchLimit = 0
	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inventory.search_limit must be between 1 and 50")
}
