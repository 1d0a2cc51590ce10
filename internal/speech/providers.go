package speech

import (
	"context"

	"github.com/sells-group/showroom-assistant/pkg/elevenlabs"
	"github.com/sells-group/showroom-assistant/pkg/localtts"
)

// ElevenLabs adapts an elevenlabs.Client to HostedSynthesizer.
type ElevenLabs struct {
	Client  elevenlabs.Client
	VoiceID string
	ModelID string
}

// Available implements HostedSynthesizer.
func (e *ElevenLabs) Available(ctx context.Context) (bool, error) {
	if e.VoiceID == "" {
		return false, nil
	}
	return e.Client.Available(ctx)
}

// Synthesize implements HostedSynthesizer.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string, s VoiceSettings) (*Audio, error) {
	resp, err := e.Client.TextToSpeech(ctx, elevenlabs.SpeechRequest{
		VoiceID: e.VoiceID,
		ModelID: e.ModelID,
		Text:    text,
		Settings: elevenlabs.VoiceSettings{
			Stability:       s.Stability,
			SimilarityBoost: s.SimilarityBoost,
			Style:           s.Style,
			SpeakerBoost:    s.SpeakerBoost,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Audio{Data: resp.Audio, ContentType: resp.ContentType}, nil
}

// ProcessPlayer adapts a localtts.Player to Player.
type ProcessPlayer struct {
	Player *localtts.Player
}

// Play implements Player.
func (p *ProcessPlayer) Play(ctx context.Context, a *Audio) (Playback, error) {
	proc, err := p.Player.Play(ctx, a.Data)
	if err != nil {
		return nil, err
	}
	return proc, nil
}

// Engine adapts a localtts.Speaker to LocalSynthesizer.
type Engine struct {
	Speaker *localtts.Speaker
}

// Voices implements LocalSynthesizer.
func (e *Engine) Voices(ctx context.Context) ([]Voice, error) {
	vs, err := e.Speaker.Voices(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Voice, len(vs))
	for i, v := range vs {
		out[i] = Voice{Name: v.Name, Locale: v.Locale}
	}
	return out, nil
}

// Speak implements LocalSynthesizer.
func (e *Engine) Speak(ctx context.Context, text, voice string) (Playback, error) {
	proc, err := e.Speaker.Speak(ctx, text, voice)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
