package speech

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/resilience"
)

// VoiceSettings are the hosted synthesis tuning constants.
type VoiceSettings struct {
	Stability       float64
	SimilarityBoost float64
	Style           float64
	SpeakerBoost    bool
}

// DefaultVoiceSettings are tuned for a warm, steady showroom voice.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{Stability: 0.5, SimilarityBoost: 0.75, Style: 0.3, SpeakerBoost: true}
}

// Audio is an encoded, playable audio resource.
type Audio struct {
	Data        []byte
	ContentType string
}

// Playback is one running utterance. Stop must be safe to call after the
// playback finished on its own.
type Playback interface {
	Stop() error
	Done() <-chan struct{}
	Err() error
}

// HostedSynthesizer is a remote text-to-speech provider.
type HostedSynthesizer interface {
	Available(ctx context.Context) (bool, error)
	Synthesize(ctx context.Context, text string, settings VoiceSettings) (*Audio, error)
}

// Player plays hosted audio on the kiosk speakers.
type Player interface {
	Play(ctx context.Context, audio *Audio) (Playback, error)
}

// LocalSynthesizer speaks text on-device.
type LocalSynthesizer interface {
	Voices(ctx context.Context) ([]Voice, error)
	Speak(ctx context.Context, text, voice string) (Playback, error)
}

// Tier is one strategy of the fixed fallback order. Start returns once
// playback has begun.
type Tier interface {
	Name() string
	Start(ctx context.Context, text string) (Playback, error)
	// Playing is the state reported while this tier's playback runs.
	Playing() State
}

type hostedTier struct {
	synth    HostedSynthesizer
	player   Player
	settings VoiceSettings
	breaker  *resilience.Breaker
}

func (t *hostedTier) Name() string   { return "hosted" }
func (t *hostedTier) Playing() State { return PlayingHosted }

func (t *hostedTier) Start(ctx context.Context, text string) (Playback, error) {
	audio, err := resilience.Call(ctx, t.breaker, func(ctx context.Context) (*Audio, error) {
		return t.synth.Synthesize(ctx, text, t.settings)
	})
	if err != nil {
		return nil, eris.Wrap(err, "speech: hosted synthesis")
	}
	pb, err := t.player.Play(ctx, audio)
	if err != nil {
		return nil, eris.Wrap(err, "speech: play hosted audio")
	}
	return pb, nil
}

// voiceListTimeout bounds the one-time local voice listing.
const voiceListTimeout = 5 * time.Second

type localTier struct {
	synth     LocalSynthesizer
	preferred []string

	mu       sync.Mutex
	resolved bool
	voice    string
}

func (t *localTier) Name() string   { return "local" }
func (t *localTier) Playing() State { return PlayingFallback }

func (t *localTier) Start(ctx context.Context, text string) (Playback, error) {
	pb, err := t.synth.Speak(ctx, text, t.selectVoice(ctx))
	if err != nil {
		return nil, eris.Wrap(err, "speech: local synthesis")
	}
	return pb, nil
}

// selectVoice lists voices on first use. The listing is detached from the
// utterance so stopping playback does not cancel it, and a failed listing
// is retried on the next utterance.
func (t *localTier) selectVoice(ctx context.Context) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resolved {
		return t.voice
	}

	lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), voiceListTimeout)
	defer cancel()
	voices, err := t.synth.Voices(lctx)
	if err != nil {
		zap.L().Debug("speech: list local voices", zap.Error(err))
		return ""
	}
	t.voice = SelectVoice(voices, t.preferred)
	t.resolved = true
	return t.voice
}
