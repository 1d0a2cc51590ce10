package model

import (
	"math"
	"time"
)

// Action tags attached to a session log entry.
const (
	ActionChat           = "chat"
	ActionFallback       = "chat_fallback"
	ActionInventoryMatch = "inventory_match"
	ActionTradeIn        = "trade_in"
	ActionObjection      = "objection"
	ActionVehicleSelect  = "vehicle_selected"
)

// TranscriptEntry is the session-log rendering of a Message.
type TranscriptEntry struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"` // RFC 3339
}

// BudgetLog is Budget plus the derived down-payment percentage.
type BudgetLog struct {
	Budget
	DownPaymentPercent *float64 `json:"down_payment_percent,omitempty"`
}

// SessionLog is one write to the session-log sink. Each write carries the
// full transcript so far; sinks upsert by SessionID.
type SessionLog struct {
	SessionID       string            `json:"session_id"`
	CustomerName    string            `json:"customer_name,omitempty"`
	CurrentStep     string            `json:"current_step,omitempty"`
	Transcript      []TranscriptEntry `json:"transcript"`
	VehicleInterest VehicleInterest   `json:"vehicle_interest"`
	Budget          BudgetLog         `json:"budget"`
	TradeIn         TradeIn           `json:"trade_in"`
	SelectedVehicle *VehicleSummary   `json:"selected_vehicle,omitempty"`
	Actions         []string          `json:"actions,omitempty"`
	LoggedAt        time.Time         `json:"logged_at"`
}

// Transcript converts messages into session-log entries.
func Transcript(msgs []Message) []TranscriptEntry {
	out := make([]TranscriptEntry, len(msgs))
	for i, m := range msgs {
		out[i] = TranscriptEntry{
			Role:      m.Role,
			Content:   m.Text,
			Timestamp: m.CreatedAt.UTC().Format(time.RFC3339),
		}
	}
	return out
}

// DownPaymentPercent returns down/price*100 rounded to one decimal. The
// price is the selected vehicle's price when known, else the budget ceiling.
func DownPaymentPercent(b Budget, selected *Vehicle) *float64 {
	if b.DownPayment == nil {
		return nil
	}
	var base float64
	switch {
	case selected != nil && selected.Price > 0:
		base = selected.Price
	case b.Max != nil && *b.Max > 0:
		base = *b.Max
	default:
		return nil
	}
	pct := math.Round(*b.DownPayment/base*1000) / 10
	return &pct
}
