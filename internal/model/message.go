package model

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who authored a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation transcript. Messages are never
// modified after they are appended.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Vehicles  []Vehicle `json:"vehicles,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewMessage creates a message stamped with a fresh ID and the current UTC time.
func NewMessage(role Role, text string, vehicles []Vehicle) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Text:      text,
		Vehicles:  vehicles,
		CreatedAt: time.Now().UTC(),
	}
}
