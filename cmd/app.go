package main

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/chat"
	"github.com/sells-group/showroom-assistant/internal/config"
	"github.com/sells-group/showroom-assistant/internal/conversation"
	"github.com/sells-group/showroom-assistant/internal/extract"
	"github.com/sells-group/showroom-assistant/internal/fetcher"
	"github.com/sells-group/showroom-assistant/internal/inventory"
	"github.com/sells-group/showroom-assistant/internal/objection"
	"github.com/sells-group/showroom-assistant/internal/patterns"
	"github.com/sells-group/showroom-assistant/internal/resilience"
	"github.com/sells-group/showroom-assistant/internal/sessionlog"
	"github.com/sells-group/showroom-assistant/internal/speech"
	"github.com/sells-group/showroom-assistant/internal/store"
	anthropicpkg "github.com/sells-group/showroom-assistant/pkg/anthropic"
	"github.com/sells-group/showroom-assistant/pkg/elevenlabs"
	"github.com/sells-group/showroom-assistant/pkg/localtts"
	"github.com/sells-group/showroom-assistant/pkg/notion"
	sfpkg "github.com/sells-group/showroom-assistant/pkg/salesforce"
)

// appEnv holds everything the serve and chat commands share.
type appEnv struct {
	Store        store.Store
	Library      *patterns.Library
	Inventory    inventory.Source
	Catalog      *inventory.Catalog // nil when inventory comes from the store
	Speech       *speech.Coordinator
	Sinks        *sessionlog.MultiSink
	Breakers     *resilience.Breakers
	Conversation *conversation.Orchestrator
}

// Close waits for pending session-log writes and playback, then releases
// the store.
func (e *appEnv) Close() {
	if e.Conversation != nil {
		e.Conversation.Wait()
	}
	if e.Speech != nil {
		e.Speech.Close()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp builds the store, inventory, remote chat, speech and session-log
// sinks, and the orchestrator over them. onSpeech may be nil. Callers should
// defer env.Close().
func initApp(ctx context.Context, mode string, onSpeech func(from, to speech.State)) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	lib, err := patterns.Load(cfg.Patterns.OverridesPath)
	if err != nil {
		return nil, eris.Wrap(err, "load patterns")
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	env := &appEnv{Store: st, Library: lib, Breakers: newBreakers()}

	if err := initInventory(ctx, env); err != nil {
		env.Close()
		return nil, err
	}

	sinks, err := initSinks(st)
	if err != nil {
		env.Close()
		return nil, err
	}
	env.Sinks = sinks

	env.Speech = initSpeech(onSpeech, env.Breakers)
	env.Speech.Probe(ctx)

	env.Conversation = conversation.New(conversation.Options{
		Chat:         initChat(env.Breakers),
		Inventory:    env.Inventory,
		Extractor:    extract.New(lib),
		Classifier:   objection.New(lib),
		Speaker:      env.Speech,
		Sink:         sinks,
		SearchLimit:  cfg.Inventory.SearchLimit,
		ContextLimit: cfg.Inventory.ContextLimit,
		MaxHistory:   cfg.Chat.MaxHistory,
		LogTimeout:   config.Seconds(cfg.SessionLog.TimeoutSecs),
	})

	zap.L().Info("assistant ready",
		zap.String("mode", mode),
		zap.String("inventory_source", cfg.Inventory.Source),
		zap.Strings("sinks", sinks.Names()),
		zap.Bool("speech", cfg.Speech.Enabled),
	)
	return env, nil
}

// initStore opens and migrates the configured store.
func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL, &store.PoolConfig{
		MaxConns: cfg.Store.MaxConns,
		MinConns: cfg.Store.MinConns,
	})
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

func newFetcher() *fetcher.Router {
	return fetcher.NewRouter(fetcher.Options{
		HTTP: fetcher.HTTPOptions{
			UserAgent:   cfg.Inventory.UserAgent,
			Timeout:     config.Seconds(cfg.Inventory.TimeoutSecs),
			MaxRetries:  cfg.Inventory.MaxRetries,
			RatePerHost: cfg.Inventory.RatePerHost,
		},
		FTP: fetcher.FTPOptions{Timeout: config.Seconds(cfg.Inventory.TimeoutSecs)},
	})
}

// initInventory wires the vehicle source: either the configured feeds
// (loaded now and optionally watched) or the store's vehicles table.
func initInventory(ctx context.Context, env *appEnv) error {
	if cfg.Inventory.Source == "store" {
		env.Inventory = inventory.SourceFunc(env.Store.ListVehicles)
		return nil
	}

	catalog := inventory.NewCatalog(newFetcher(), cfg.Inventory.Feeds...)
	if err := catalog.Load(ctx); err != nil {
		return eris.Wrap(err, "load inventory")
	}
	vehicles, _ := catalog.List(ctx)
	zap.L().Info("inventory loaded",
		zap.Strings("feeds", catalog.Feeds()),
		zap.Int("vehicles", len(vehicles)),
	)
	if cfg.Inventory.Watch {
		if err := catalog.Watch(ctx); err != nil {
			zap.L().Warn("inventory watch disabled", zap.Error(err))
		}
	}
	env.Catalog = catalog
	env.Inventory = catalog
	return nil
}

// initChat builds the remote chat client. Without a key every reply falls
// back to the canned text.
func initChat(breakers *resilience.Breakers) chat.Client {
	if cfg.Anthropic.Key == "" {
		zap.L().Warn("SHOWROOM_ANTHROPIC_KEY not set, replies will use fallback text")
		return nil
	}

	var opts []anthropicpkg.Option
	if cfg.Anthropic.BaseURL != "" {
		opts = append(opts, anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL))
	}
	opts = append(opts, anthropicpkg.WithMaxRetries(cfg.Anthropic.MaxRetries))
	api := anthropicpkg.NewClient(cfg.Anthropic.Key, opts...)

	chatCfg := chat.AnthropicConfig{
		Model:        cfg.Anthropic.Model,
		MaxTokens:    cfg.Chat.MaxTokens,
		Timeout:      config.Seconds(cfg.Chat.TimeoutSecs),
		MaxHistory:   cfg.Chat.MaxHistory,
		SystemPrompt: cfg.Chat.SystemPrompt,
		CacheTTL:     cfg.Chat.CacheTTL,
	}
	if cfg.Chat.Temperature > 0 {
		temp := cfg.Chat.Temperature
		chatCfg.Temperature = &temp
	}

	breaker := breakers.Register(resilience.BreakerConfig{
		Name:             "anthropic",
		FailureThreshold: cfg.Chat.BreakerFailures,
		ResetTimeout:     config.Seconds(cfg.Chat.BreakerResetSecs),
	})
	return chat.NewAnthropicClient(api, chatCfg, breaker)
}

// speechOptions maps the speech config onto coordinator options. The
// hosted tier needs an API key and an audio player; the local tier needs a
// synthesizer binary.
func speechOptions(onChange func(from, to speech.State), breakers *resilience.Breakers) speech.Options {
	sc := cfg.Speech
	opts := speech.Options{
		Settings: speech.VoiceSettings{
			Stability:       sc.ElevenLabs.Stability,
			SimilarityBoost: sc.ElevenLabs.SimilarityBoost,
			Style:           sc.ElevenLabs.Style,
			SpeakerBoost:    sc.ElevenLabs.SpeakerBoost,
		},
		PreferredVoices: sc.PreferredVoices,
		ProbeTimeout:    config.Seconds(sc.ProbeTimeoutSecs),
		Enabled:         sc.Enabled,
		OnStateChange:   onChange,
	}

	if sc.ElevenLabs.Key != "" && sc.Local.Player != "" {
		var elOpts []elevenlabs.Option
		if sc.ElevenLabs.BaseURL != "" {
			elOpts = append(elOpts, elevenlabs.WithBaseURL(sc.ElevenLabs.BaseURL))
		}
		if sc.ElevenLabs.RateLimit > 0 {
			elOpts = append(elOpts, elevenlabs.WithRateLimit(sc.ElevenLabs.RateLimit))
		}
		if sc.ElevenLabs.OutputFormat != "" {
			elOpts = append(elOpts, elevenlabs.WithOutputFormat(sc.ElevenLabs.OutputFormat))
		}
		opts.Hosted = &speech.ElevenLabs{
			Client:  elevenlabs.NewClient(sc.ElevenLabs.Key, elOpts...),
			VoiceID: sc.ElevenLabs.VoiceID,
			ModelID: sc.ElevenLabs.ModelID,
		}
		opts.Player = &speech.ProcessPlayer{Player: localtts.NewPlayer(sc.Local.Player, sc.Local.PlayerArgs...)}
		opts.Breaker = breakers.Register(resilience.BreakerConfig{
			Name:             "elevenlabs",
			FailureThreshold: sc.ElevenLabs.BreakerFailures,
			ResetTimeout:     config.Seconds(sc.ElevenLabs.BreakerResetSecs),
		})
	}

	if sc.Local.Binary != "" {
		opts.Local = &speech.Engine{Speaker: localtts.NewSpeaker(sc.Local.Binary, sc.Local.Rate)}
	}
	return opts
}

func initSpeech(onChange func(from, to speech.State), breakers *resilience.Breakers) *speech.Coordinator {
	return speech.NewCoordinator(speechOptions(onChange, breakers))
}

// newBreakers is the process-wide breaker registry; every breaker logs its
// state changes.
func newBreakers() *resilience.Breakers {
	return resilience.NewBreakers(resilience.BreakerConfig{OnStateChange: logBreaker})
}

// initSinks builds the session-log fan-out: the store, then Salesforce and
// Notion when configured.
func initSinks(st store.Store) (*sessionlog.MultiSink, error) {
	var named []sessionlog.Named

	if cfg.SessionLog.Store && st != nil {
		named = append(named, sessionlog.Named{Name: "store", Sink: sessionlog.NewStoreSink(st)})
	}

	if cfg.Salesforce.Enabled() {
		sf, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		named = append(named, sessionlog.Named{
			Name: "salesforce",
			Sink: sessionlog.NewSalesforceSink(sf, cfg.Salesforce.SessionField),
		})
	} else {
		zap.L().Debug("salesforce not configured, lead sync disabled")
	}

	if cfg.Notion.Token != "" {
		var opts []notion.ClientOption
		if cfg.Notion.RateLimit > 0 {
			opts = append(opts, notion.WithRateLimit(cfg.Notion.RateLimit))
		}
		named = append(named, sessionlog.Named{
			Name: "notion",
			Sink: sessionlog.NewNotionSink(notion.NewClient(cfg.Notion.Token, opts...), cfg.Notion.SessionDB),
		})
	} else {
		zap.L().Debug("notion not configured, session pages disabled")
	}

	return sessionlog.NewMultiSink(named...), nil
}

func initSalesforce() (sfpkg.Client, error) {
	pemData, err := os.ReadFile(cfg.Salesforce.KeyPath)
	if err != nil {
		return nil, eris.Wrap(err, "read salesforce JWT private key")
	}

	var opts []sfpkg.ClientOption
	if cfg.Salesforce.RateLimit > 0 {
		opts = append(opts, sfpkg.WithRateLimit(cfg.Salesforce.RateLimit))
	}
	sf, err := sfpkg.Connect(sfpkg.Config{
		LoginURL:   cfg.Salesforce.LoginURL,
		Username:   cfg.Salesforce.Username,
		ClientID:   cfg.Salesforce.ClientID,
		PrivateKey: string(pemData),
	}, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "init salesforce")
	}
	return sf, nil
}

func logBreaker(name string, from, to resilience.State) {
	zap.L().Info("circuit breaker state change",
		zap.String("provider", name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}
