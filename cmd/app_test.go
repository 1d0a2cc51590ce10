package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/showroom-assistant/internal/config"
	"github.com/sells-group/showroom-assistant/internal/speech"
)

func TestSpeechOptions_LocalOnly(t *testing.T) {
	withConfig(t, &config.Config{Speech: config.SpeechConfig{
		Enabled:          true,
		ProbeTimeoutSecs: 3,
		ElevenLabs:       config.ElevenLabsConfig{Stability: 0.5, SimilarityBoost: 0.75, Style: 0.3, SpeakerBoost: true},
		Local:            config.LocalTTSConfig{Binary: "espeak-ng", Player: "ffplay"},
	}})

	opts := speechOptions(nil, newBreakers())
	assert.Nil(t, opts.Hosted)
	assert.Nil(t, opts.Player)
	assert.NotNil(t, opts.Local)
	assert.True(t, opts.Enabled)
	assert.Equal(t, speech.DefaultVoiceSettings(), opts.Settings)
	assert.Equal(t, config.Seconds(3), opts.ProbeTimeout)
}

func TestSpeechOptions_Hosted(t *testing.T) {
	withConfig(t, &config.Config{Speech: config.SpeechConfig{
		ElevenLabs: config.ElevenLabsConfig{
			Key:          "xi-key",
			VoiceID:      "voice-1",
			ModelID:      "eleven_turbo_v2_5",
			OutputFormat: "mp3_44100_128",
			RateLimit:    2,
		},
		Local: config.LocalTTSConfig{Player: "ffplay"},
	}})

	var calls int
	breakers := newBreakers()
	opts := speechOptions(func(from, to speech.State) { calls++ }, breakers)
	require.NotNil(t, opts.Hosted)
	require.NotNil(t, opts.Player)
	require.NotNil(t, opts.Breaker)
	assert.Nil(t, opts.Local)
	assert.False(t, opts.Enabled)

	opts.OnStateChange(speech.Idle, speech.Requesting)
	assert.Equal(t, 1, calls)

	el, ok := opts.Hosted.(*speech.ElevenLabs)
	require.True(t, ok)
	assert.Equal(t, "voice-1", el.VoiceID)
	assert.Equal(t, "eleven_turbo_v2_5", el.ModelID)
	assert.Equal(t, map[string]string{"elevenlabs": "closed"}, breakers.States())
}

func TestInitChat_NoKey(t *testing.T) {
	withConfig(t, &config.Config{})
	breakers := newBreakers()
	assert.Nil(t, initChat(breakers))
	assert.Empty(t, breakers.States())
}

func TestInitChat_WithKey(t *testing.T) {
	withConfig(t, &config.Config{
		Anthropic: config.AnthropicConfig{Key: "sk-test", Model: "claude-haiku-4-5-20251001", MaxRetries: 1},
		Chat:      config.ChatConfig{MaxTokens: 300, Temperature: 0.4, TimeoutSecs: 10},
	})
	breakers := newBreakers()
	assert.NotNil(t, initChat(breakers))
	assert.Equal(t, map[string]string{"anthropic": "closed"}, breakers.States())
}

func TestInitSinks(t *testing.T) {
	withConfig(t, &config.Config{
		Store:      config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "showroom.db")},
		SessionLog: config.SessionLogConfig{Store: true},
		Notion:     config.NotionConfig{Token: "secret", SessionDB: "db-1", RateLimit: 3},
	})

	st, err := initStore(context.Background())
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	sinks, err := initSinks(st)
	require.NoError(t, err)
	assert.Equal(t, []string{"store", "notion"}, sinks.Names())
}

func TestInitSinks_SalesforceKeyMissing(t *testing.T) {
	withConfig(t, &config.Config{Salesforce: config.SalesforceConfig{
		ClientID: "client",
		Username: "kiosk@dealer.example.com",
		KeyPath:  filepath.Join(t.TempDir(), "missing.key"),
	}})

	_, err := initSinks(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read salesforce JWT private key")
}

func TestInitApp_ValidatesFirst(t *testing.T) {
	withConfig(t, &config.Config{})
	_, err := initApp(context.Background(), "serve", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestInitApp_FromFeeds(t *testing.T) {
	withConfig(t, &config.Config{
		Store:     config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "showroom.db")},
		Anthropic: config.AnthropicConfig{Key: "sk-test"},
		Chat:      config.ChatConfig{TimeoutSecs: 5, MaxHistory: 10},
		Inventory: config.InventoryConfig{
			Source:      "feeds",
			Feeds:       []string{writeFeed(t)},
			SearchLimit: 6,
		},
		SessionLog: config.SessionLogConfig{Store: true, TimeoutSecs: 5},
	})

	env, err := initApp(context.Background(), "chat", nil)
	require.NoError(t, err)
	defer env.Close()

	require.NotNil(t, env.Catalog)
	vehicles, err := env.Inventory.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, vehicles, 3)
	assert.Equal(t, []string{"store"}, env.Sinks.Names())
	assert.NotNil(t, env.Conversation)
	assert.False(t, env.Speech.Speaking())
	assert.Equal(t, map[string]string{"anthropic": "closed"}, env.Breakers.States())
}
