package conversation

import (
	"time"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// Snapshot is a copy of the conversation state for display.
type Snapshot struct {
	SessionID       string                `json:"session_id"`
	CustomerName    string                `json:"customer_name,omitempty"`
	CurrentStep     string                `json:"current_step,omitempty"`
	Messages        []model.Message       `json:"messages"`
	Profile         model.Profile         `json:"profile"`
	Objection       model.ObjectionResult `json:"objection"`
	SelectedVehicle *model.Vehicle        `json:"selected_vehicle,omitempty"`
	Actions         []string              `json:"actions,omitempty"`
	Busy            bool                  `json:"busy"`
	CreatedAt       time.Time             `json:"created_at"`
}

// Followups returns the suggested prompts for the last detected objection.
func (s Snapshot) Followups() []string {
	return s.Objection.Followups
}

// Snapshot returns a deep enough copy that callers cannot alter the
// conversation.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := Snapshot{
		SessionID:    o.sessionID,
		CustomerName: o.customerName,
		CurrentStep:  o.step,
		Messages:     append([]model.Message{}, o.messages...),
		Profile:      o.profile.Clone(),
		Objection: model.ObjectionResult{
			Category:  o.objection.Category,
			Followups: append([]string(nil), o.objection.Followups...),
		},
		Actions:   append([]string(nil), o.actions...),
		Busy:      o.busy.Load(),
		CreatedAt: o.createdAt,
	}
	if o.selected != nil {
		v := *o.selected
		s.SelectedVehicle = &v
	}
	return s
}
