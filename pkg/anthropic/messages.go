package anthropic

import "strings"

// Message roles accepted by the Messages API.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MessageRequest is one Messages API call.
type MessageRequest struct {
	Model       string
	MaxTokens   int64
	System      []SystemBlock
	Messages    []Message
	Temperature *float64
}

// SystemBlock is one system prompt block. A non-nil CacheControl marks the
// end of the cached prefix.
type SystemBlock struct {
	Text         string
	CacheControl *CacheControl
}

// CacheControl sets the prompt cache lifetime: "5m" or "1h".
type CacheControl struct {
	TTL string
}

// CachedSystem returns the showroom prompt as a single cached block so
// repeated turns only pay for the per-turn context that follows it.
func CachedSystem(text, ttl string) []SystemBlock {
	return []SystemBlock{{Text: text, CacheControl: &CacheControl{TTL: ttl}}}
}

// Message is a single conversation turn.
type Message struct {
	Role    string
	Content string
}

// ContentBlock is one block of a reply.
type ContentBlock struct {
	Type string
	Text string
}

// MessageResponse is the reply to a MessageRequest.
type MessageResponse struct {
	ID         string
	Model      string
	Content    []ContentBlock
	StopReason string
	Usage      Usage
}

// Text joins the text blocks of the reply, one per line.
func (r *MessageResponse) Text() string {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type != "text" || block.Text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(block.Text)
	}
	return strings.TrimSpace(b.String())
}

// Truncated reports whether the reply stopped at the token limit.
func (r *MessageResponse) Truncated() bool {
	return r.StopReason == "max_tokens"
}
