// Package chat is the remote conversational backend: it turns the running
// transcript plus an inventory snapshot into the assistant's next reply.
package chat

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// ErrEmptyReply is returned when the backend answered with no text.
var ErrEmptyReply = eris.New("chat: empty reply")

// Turn is one prior exchange in the history sent with a request.
type Turn struct {
	Role    model.Role `json:"role"`
	Content string     `json:"content"`
}

// Request is the input of a remote chat call.
type Request struct {
	Message          string `json:"message"`
	InventoryContext string `json:"inventory_context,omitempty"`
	History          []Turn `json:"history,omitempty"`
	CustomerName     string `json:"customer_name,omitempty"`
}

// Response is the backend's reply.
type Response struct {
	Message string `json:"message"`
}

// Client produces assistant replies. Any error, including a timeout, is a
// failed call.
type Client interface {
	Reply(ctx context.Context, req Request) (*Response, error)
}

// History converts transcript messages into request turns, keeping at most
// the last max entries when max is positive.
func History(msgs []model.Message, max int) []Turn {
	if max > 0 && len(msgs) > max {
		msgs = msgs[len(msgs)-max:]
	}
	out := make([]Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Turn{Role: m.Role, Content: m.Text})
	}
	return out
}
