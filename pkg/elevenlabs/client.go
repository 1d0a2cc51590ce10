// Package elevenlabs provides a client for the ElevenLabs text-to-speech REST API.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_turbo_v2_5"
	defaultFormat  = "mp3_44100_128"
)

// Client defines the ElevenLabs operations used by the showroom.
type Client interface {
	// Available checks that the API key is accepted.
	Available(ctx context.Context) (bool, error)
	// TextToSpeech synthesizes text and returns encoded audio.
	TextToSpeech(ctx context.Context, req SpeechRequest) (*SpeechResponse, error)
}

// VoiceSettings are the per-request tuning knobs.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// SpeechRequest is one synthesis call.
type SpeechRequest struct {
	VoiceID  string
	ModelID  string
	Text     string
	Settings VoiceSettings
}

// SpeechResponse carries the encoded audio body.
type SpeechResponse struct {
	Audio       []byte
	ContentType string
}

type ttsBody struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings VoiceSettings `json:"voice_settings"`
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("elevenlabs: status %d: %s", e.StatusCode, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) { c.http = hc }
}

// WithRateLimit sets the request rate (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithOutputFormat overrides the output_format query parameter.
func WithOutputFormat(f string) Option {
	return func(c *httpClient) {
		if f != "" {
			c.format = f
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	format  string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an ElevenLabs client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: defaultBaseURL,
		format:  defaultFormat,
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(2), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Available(ctx context.Context) (bool, error) {
	if c.apiKey == "" {
		return false, nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return false, eris.Wrap(err, "elevenlabs: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/user", nil)
	if err != nil {
		return false, eris.Wrap(err, "elevenlabs: create probe request")
	}
	req.Header.Set("xi-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return false, eris.Wrap(err, "elevenlabs: probe")
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, nil
	default:
		return false, &APIError{StatusCode: resp.StatusCode}
	}
}

func (c *httpClient) TextToSpeech(ctx context.Context, r SpeechRequest) (*SpeechResponse, error) {
	if c.apiKey == "" {
		return nil, eris.New("elevenlabs: api key is required")
	}
	voiceID := strings.TrimSpace(r.VoiceID)
	if voiceID == "" {
		return nil, eris.New("elevenlabs: voice id is required")
	}
	if r.ModelID == "" {
		r.ModelID = defaultModel
	}

	body, err := json.Marshal(ttsBody{Text: r.Text, ModelID: r.ModelID, VoiceSettings: r.Settings})
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: marshal request")
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(voiceID), url.QueryEscape(c.format))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "elevenlabs: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: create request")
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: text-to-speech")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "elevenlabs: read audio")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), 200)}
	}
	if len(data) == 0 {
		return nil, eris.New("elevenlabs: empty audio response")
	}

	return &SpeechResponse{Audio: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
