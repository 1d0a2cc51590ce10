package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/internal/resilience"
	"github.com/sells-group/showroom-assistant/pkg/anthropic"
)

// DefaultSystemPrompt frames the model as the showroom's sales assistant.
const DefaultSystemPrompt = `You are a friendly, knowledgeable sales assistant on a touchscreen kiosk in a car dealership showroom.
Help the customer find a vehicle from the current inventory, answer questions about budget, financing and trade-ins, and address concerns honestly.
Keep answers short enough to be read aloud: two to four sentences, no lists, no markdown.
Only mention vehicles that appear in the inventory you are given. If nothing fits, say so and suggest talking with a sales consultant.`

// AnthropicConfig tunes AnthropicClient.
type AnthropicConfig struct {
	Model        string
	MaxTokens    int64
	Temperature  *float64
	Timeout      time.Duration
	MaxHistory   int
	SystemPrompt string
	CacheTTL     string
}

func (c AnthropicConfig) withDefaults() AnthropicConfig {
	if c.Model == "" {
		c.Model = "claude-haiku-4-5-20251001"
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = 400
	}
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = 20
	}
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.CacheTTL == "" {
		c.CacheTTL = "5m"
	}
	return c
}

// AnthropicClient implements Client on the Anthropic Messages API.
type AnthropicClient struct {
	api     anthropic.Client
	cfg     AnthropicConfig
	breaker *resilience.Breaker

	mu    sync.Mutex
	total anthropic.Usage
}

// NewAnthropicClient wraps api. A nil breaker gets a default one.
func NewAnthropicClient(api anthropic.Client, cfg AnthropicConfig, breaker *resilience.Breaker) *AnthropicClient {
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.BreakerConfig{Name: "chat"})
	}
	return &AnthropicClient{api: api, cfg: cfg.withDefaults(), breaker: breaker}
}

// Reply implements Client.
func (c *AnthropicClient) Reply(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, eris.New("chat: message is required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	msgReq := anthropic.MessageRequest{
		Model:       c.cfg.Model,
		MaxTokens:   c.cfg.MaxTokens,
		System:      c.system(req),
		Messages:    c.messages(req),
		Temperature: c.cfg.Temperature,
	}

	start := time.Now()
	resp, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.api.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		return nil, eris.Wrap(err, "chat: reply")
	}
	resp.Usage.Log(c.cfg.Model, "chat")
	c.mu.Lock()
	c.total = c.total.Add(resp.Usage)
	c.mu.Unlock()
	if resp.Truncated() {
		zap.L().Warn("chat: reply hit max_tokens", zap.Int64("max_tokens", c.cfg.MaxTokens))
	}

	text := resp.Text()
	if text == "" {
		return nil, ErrEmptyReply
	}
	zap.L().Debug("chat: reply",
		zap.Duration("elapsed", time.Since(start)),
		zap.String("stop_reason", resp.StopReason),
	)
	return &Response{Message: text}, nil
}

// system puts the fixed prompt in a cached block and the per-turn context
// after it.
func (c *AnthropicClient) system(req Request) []anthropic.SystemBlock {
	blocks := anthropic.CachedSystem(c.cfg.SystemPrompt, c.cfg.CacheTTL)

	var b strings.Builder
	if name := strings.TrimSpace(req.CustomerName); name != "" {
		fmt.Fprintf(&b, "The customer's name is %s.\n", name)
	}
	if inv := strings.TrimSpace(req.InventoryContext); inv != "" {
		fmt.Fprintf(&b, "Current inventory (JSON):\n%s\n", inv)
	}
	if b.Len() > 0 {
		blocks = append(blocks, anthropic.SystemBlock{Text: strings.TrimSpace(b.String())})
	}
	return blocks
}

// messages builds the API conversation. It must open with a user turn and
// end with the new message.
func (c *AnthropicClient) messages(req Request) []anthropic.Message {
	history := req.History
	if len(history) > c.cfg.MaxHistory {
		history = history[len(history)-c.cfg.MaxHistory:]
	}
	for len(history) > 0 && history[0].Role != model.RoleUser {
		history = history[1:]
	}

	out := make([]anthropic.Message, 0, len(history)+1)
	for _, t := range history {
		if strings.TrimSpace(t.Content) == "" {
			continue
		}
		out = append(out, anthropic.Message{Role: string(t.Role), Content: t.Content})
	}
	out = append(out, anthropic.Message{Role: anthropic.RoleUser, Content: req.Message})
	return out
}

// Usage returns the tokens billed across every reply so far.
func (c *AnthropicClient) Usage() anthropic.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}
