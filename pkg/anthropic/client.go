// Package anthropic is a narrow client for the Messages API, built on the
// official SDK and mockable through the Client interface.
package anthropic

import (
	"context"
	"net/http"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"
)

// Client sends Messages API requests.
type Client interface {
	CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error)
}

type settings struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	timeout    time.Duration
}

// Option configures NewClient.
type Option func(*settings)

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) Option {
	return func(s *settings) { s.baseURL = url }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) { s.httpClient = c }
}

// WithMaxRetries sets how often the SDK retries a failed attempt. Negative
// values keep the SDK default.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.maxRetries = n }
}

// WithRequestTimeout bounds each attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

func (s settings) requestOptions(apiKey string) []option.RequestOption {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if s.baseURL != "" {
		opts = append(opts, option.WithBaseURL(s.baseURL))
	}
	if s.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(s.httpClient))
	}
	if s.maxRetries >= 0 {
		opts = append(opts, option.WithMaxRetries(s.maxRetries))
	}
	if s.timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(s.timeout))
	}
	return opts
}

type sdkClient struct {
	msgs sdk.MessageService
}

// NewClient creates a Client for apiKey.
func NewClient(apiKey string, opts ...Option) Client {
	s := settings{maxRetries: -1}
	for _, opt := range opts {
		opt(&s)
	}
	c := sdk.NewClient(s.requestOptions(apiKey)...)
	return &sdkClient{msgs: c.Messages}
}

func (c *sdkClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if len(req.Messages) == 0 {
		return nil, eris.New("anthropic: at least one message is required")
	}
	msg, err := c.msgs.New(ctx, buildParams(req))
	if err != nil {
		return nil, eris.Wrap(err, "anthropic: create message")
	}
	return readMessage(msg), nil
}

func buildParams(req MessageRequest) sdk.MessageNewParams {
	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
	}
	for _, m := range req.Messages {
		block := sdk.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			params.Messages = append(params.Messages, sdk.NewAssistantMessage(block))
		} else {
			params.Messages = append(params.Messages, sdk.NewUserMessage(block))
		}
	}
	for _, b := range req.System {
		block := sdk.TextBlockParam{Text: b.Text}
		if b.CacheControl != nil {
			block.CacheControl = sdk.NewCacheControlEphemeralParam()
			if b.CacheControl.TTL != "" {
				block.CacheControl.TTL = sdk.CacheControlEphemeralTTL(b.CacheControl.TTL)
			}
		}
		params.System = append(params.System, block)
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}
	return params
}

func readMessage(msg *sdk.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:         msg.ID,
		Model:      string(msg.Model),
		StopReason: string(msg.StopReason),
		Usage: Usage{
			InputTokens:      msg.Usage.InputTokens,
			OutputTokens:     msg.Usage.OutputTokens,
			CacheWriteTokens: msg.Usage.CacheCreationInputTokens,
			CacheReadTokens:  msg.Usage.CacheReadInputTokens,
		},
	}
	for _, b := range msg.Content {
		resp.Content = append(resp.Content, ContentBlock{Type: b.Type, Text: b.Text})
	}
	return resp
}
