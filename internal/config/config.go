package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	Chat       ChatConfig       `yaml:"chat" mapstructure:"chat"`
	Inventory  InventoryConfig  `yaml:"inventory" mapstructure:"inventory"`
	Speech     SpeechConfig     `yaml:"speech" mapstructure:"speech"`
	Salesforce SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	SessionLog SessionLogConfig `yaml:"sessionlog" mapstructure:"sessionlog"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Patterns   PatternsConfig   `yaml:"patterns" mapstructure:"patterns"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key        string `yaml:"key" mapstructure:"key"`
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Model      string `yaml:"model" mapstructure:"model"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
}

// ChatConfig tunes the remote chat call.
type ChatConfig struct {
	MaxTokens        int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxHistory       int     `yaml:"max_history" mapstructure:"max_history"`
	SystemPrompt     string  `yaml:"system_prompt" mapstructure:"system_prompt"`
	CacheTTL         string  `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// InventoryConfig configures where vehicles come from.
type InventoryConfig struct {
	// Source is "feeds" or "store".
	Source       string   `yaml:"source" mapstructure:"source"`
	Feeds        []string `yaml:"feeds" mapstructure:"feeds"`
	Watch        bool     `yaml:"watch" mapstructure:"watch"`
	SearchLimit  int      `yaml:"search_limit" mapstructure:"search_limit"`
	ContextLimit int      `yaml:"context_limit" mapstructure:"context_limit"`
	TimeoutSecs  int      `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries   int      `yaml:"max_retries" mapstructure:"max_retries"`
	RatePerHost  float64  `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	UserAgent    string   `yaml:"user_agent" mapstructure:"user_agent"`
}

// SpeechConfig configures spoken replies.
type SpeechConfig struct {
	Enabled          bool             `yaml:"enabled" mapstructure:"enabled"`
	ProbeTimeoutSecs int              `yaml:"probe_timeout_secs" mapstructure:"probe_timeout_secs"`
	PreferredVoices  []string         `yaml:"preferred_voices" mapstructure:"preferred_voices"`
	ElevenLabs       ElevenLabsConfig `yaml:"elevenlabs" mapstructure:"elevenlabs"`
	Local            LocalTTSConfig   `yaml:"local" mapstructure:"local"`
}

// ElevenLabsConfig holds hosted synthesis settings.
type ElevenLabsConfig struct {
	Key              string  `yaml:"key" mapstructure:"key"`
	VoiceID          string  `yaml:"voice_id" mapstructure:"voice_id"`
	ModelID          string  `yaml:"model_id" mapstructure:"model_id"`
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	OutputFormat     string  `yaml:"output_format" mapstructure:"output_format"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	Stability        float64 `yaml:"stability" mapstructure:"stability"`
	SimilarityBoost  float64 `yaml:"similarity_boost" mapstructure:"similarity_boost"`
	Style            float64 `yaml:"style" mapstructure:"style"`
	SpeakerBoost     bool    `yaml:"speaker_boost" mapstructure:"speaker_boost"`
	BreakerFailures  int     `yaml:"breaker_failures" mapstructure:"breaker_failures"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// LocalTTSConfig configures the on-device fallback voice and the audio player.
type LocalTTSConfig struct {
	Binary     string   `yaml:"binary" mapstructure:"binary"`
	Rate       int      `yaml:"rate" mapstructure:"rate"`
	Player     string   `yaml:"player" mapstructure:"player"`
	PlayerArgs []string `yaml:"player_args" mapstructure:"player_args"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID     string  `yaml:"client_id" mapstructure:"client_id"`
	Username     string  `yaml:"username" mapstructure:"username"`
	KeyPath      string  `yaml:"key_path" mapstructure:"key_path"`
	LoginURL     string  `yaml:"login_url" mapstructure:"login_url"`
	SessionField string  `yaml:"session_field" mapstructure:"session_field"`
	RateLimit    float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// Enabled reports whether any Salesforce setting was provided.
func (c SalesforceConfig) Enabled() bool {
	return c.ClientID != "" || c.Username != "" || c.KeyPath != ""
}

// NotionConfig holds Notion API credentials and the sessions database.
type NotionConfig struct {
	Token     string  `yaml:"token" mapstructure:"token"`
	SessionDB string  `yaml:"session_db" mapstructure:"session_db"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// SessionLogConfig selects the session-log sinks.
type SessionLogConfig struct {
	Store       bool `yaml:"store" mapstructure:"store"`
	TimeoutSecs int  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ServerConfig configures the kiosk API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// PatternsConfig points at the dealership vocabulary overrides.
type PatternsConfig struct {
	OverridesPath string `yaml:"overrides_path" mapstructure:"overrides_path"`
}

// Seconds converts a config value in seconds to a Duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SHOWROOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "showroom.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_retries", 1)
	v.SetDefault("chat.max_tokens", 400)
	v.SetDefault("chat.temperature", 0.0)
	v.SetDefault("chat.timeout_secs", 20)
	v.SetDefault("chat.max_history", 20)
	v.SetDefault("chat.system_prompt", "")
	v.SetDefault("chat.cache_ttl", "5m")
	v.SetDefault("chat.breaker_failures", 3)
	v.SetDefault("chat.breaker_reset_secs", 30)
	v.SetDefault("inventory.source", "feeds")
	v.SetDefault("inventory.feeds", []string{})
	v.SetDefault("inventory.watch", true)
	v.SetDefault("inventory.search_limit", 6)
	v.SetDefault("inventory.context_limit", 25)
	v.SetDefault("inventory.timeout_secs", 30)
	v.SetDefault("inventory.max_retries", 2)
	v.SetDefault("inventory.rate_per_host", 2.0)
	v.SetDefault("inventory.user_agent", "showroom-assistant/1.0")
	v.SetDefault("speech.enabled", true)
	v.SetDefault("speech.probe_timeout_secs", 5)
	v.SetDefault("speech.preferred_voices", []string{})
	v.SetDefault("speech.elevenlabs.key", "")
	v.SetDefault("speech.elevenlabs.voice_id", "")
	v.SetDefault("speech.elevenlabs.model_id", "eleven_turbo_v2_5")
	v.SetDefault("speech.elevenlabs.base_url", "https://api.elevenlabs.io")
	v.SetDefault("speech.elevenlabs.output_format", "mp3_44100_128")
	v.SetDefault("speech.elevenlabs.rate_limit", 2.0)
	v.SetDefault("speech.elevenlabs.stability", 0.5)
	v.SetDefault("speech.elevenlabs.similarity_boost", 0.75)
	v.SetDefault("speech.elevenlabs.style", 0.3)
	v.SetDefault("speech.elevenlabs.speaker_boost", true)
	v.SetDefault("speech.elevenlabs.breaker_failures", 2)
	v.SetDefault("speech.elevenlabs.breaker_reset_secs", 60)
	v.SetDefault("speech.local.binary", "espeak-ng")
	v.SetDefault("speech.local.rate", 0)
	v.SetDefault("speech.local.player", "ffplay")
	v.SetDefault("speech.local.player_args", []string{})
	v.SetDefault("salesforce.client_id", "")
	v.SetDefault("salesforce.username", "")
	v.SetDefault("salesforce.key_path", "")
	v.SetDefault("salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("salesforce.session_field", "Showroom_Session_Id__c")
	v.SetDefault("salesforce.rate_limit", 5.0)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.session_db", "")
	v.SetDefault("notion.rate_limit", 3.0)
	v.SetDefault("sessionlog.store", true)
	v.SetDefault("sessionlog.timeout_secs", 15)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("patterns.overrides_path", "")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. Modes are
// "serve", "chat", "inventory" and "sessions".
func (c *Config) Validate(mode string) error {
	var errs []string
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch mode {
	case "serve", "chat":
		if c.Anthropic.Key == "" {
			add("anthropic.key is required")
		}
		c.validateInventory(add)
		c.validateStore(add)
		c.validateSinks(add)
		c.validateSpeech(add)
		if c.Chat.TimeoutSecs <= 0 {
			add("chat.timeout_secs must be > 0")
		}
		if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
			add("server.port must be > 0 and <= 65535")
		}
	case "inventory":
		c.validateStore(add)
	case "sessions":
		if c.Store.Driver == "" {
			add("store.driver is required")
		}
		c.validateStore(add)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateInventory(add func(string, ...any)) {
	switch c.Inventory.Source {
	case "feeds":
		if len(c.Inventory.Feeds) == 0 {
			add("inventory.feeds is required when inventory.source is feeds")
		}
	case "store":
		if c.Store.Driver == "" {
			add("store.driver is required when inventory.source is store")
		}
	default:
		add("inventory.source must be feeds or store, got %q", c.Inventory.Source)
	}
	if c.Inventory.SearchLimit < 1 || c.Inventory.SearchLimit > 50 {
		add("inventory.search_limit must be between 1 and 50")
	}
}

func (c *Config) validateStore(add func(string, ...any)) {
	switch c.Store.Driver {
	case "", "sqlite":
	case "postgres":
		if c.Store.DatabaseURL == "" {
			add("store.database_url is required for postgres")
		}
	default:
		add("store.driver must be sqlite or postgres, got %q", c.Store.Driver)
	}
}

func (c *Config) validateSinks(add func(string, ...any)) {
	if c.Salesforce.Enabled() {
		if c.Salesforce.ClientID == "" {
			add("salesforce.client_id is required")
		}
		if c.Salesforce.Username == "" {
			add("salesforce.username is required")
		}
		if c.Salesforce.KeyPath == "" {
			add("salesforce.key_path is required")
		}
	}
	if c.Notion.Token != "" && c.Notion.SessionDB == "" {
		add("notion.session_db is required when notion.token is set")
	}
	if c.SessionLog.Store && c.Store.Driver == "" {
		add("store.driver is required when sessionlog.store is set")
	}
}

func (c *Config) validateSpeech(add func(string, ...any)) {
	el := c.Speech.ElevenLabs
	for name, v := range map[string]float64{
		"stability":        el.Stability,
		"similarity_boost": el.SimilarityBoost,
		"style":            el.Style,
	} {
		if v < 0 || v > 1 {
			add("speech.elevenlabs.%s must be between 0 and 1", name)
		}
	}
	if el.Key != "" && el.VoiceID == "" {
		add("speech.elevenlabs.voice_id is required when speech.elevenlabs.key is set")
	}
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
