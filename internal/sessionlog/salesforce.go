package sessionlog

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/pkg/salesforce"
)

// LeadSource tags Leads created from the kiosk.
const LeadSource = "Showroom Kiosk"

// SalesforceSink upserts one Lead per session.
type SalesforceSink struct {
	client       salesforce.Client
	sessionField string
}

// NewSalesforceSink creates a sink. An empty sessionField uses
// salesforce.DefaultSessionField.
func NewSalesforceSink(c salesforce.Client, sessionField string) *SalesforceSink {
	if sessionField == "" {
		sessionField = salesforce.DefaultSessionField
	}
	return &SalesforceSink{client: c, sessionField: sessionField}
}

// Write implements Sink.
func (s *SalesforceSink) Write(ctx context.Context, log model.SessionLog) error {
	id, created, err := salesforce.UpsertLead(ctx, s.client, s.sessionField, log.SessionID, LeadFields(log))
	if err != nil {
		return eris.Wrap(err, "sessionlog: upsert lead")
	}
	zap.L().Debug("sessionlog: lead upserted",
		zap.String("session_id", log.SessionID),
		zap.String("lead_id", id),
		zap.Bool("created", created),
	)
	return nil
}

// LeadFields maps a session log onto standard Lead fields.
func LeadFields(log model.SessionLog) map[string]any {
	fields := map[string]any{
		"LeadSource": LeadSource,
	}
	first, last := splitName(log.CustomerName)
	if first != "" {
		fields["FirstName"] = first
	}
	if last != "" {
		fields["LastName"] = last
	}

	desc := Summary(log)
	if t := TranscriptText(log.Transcript); t != "" {
		if desc != "" {
			desc += "\n\n"
		}
		desc += t
	}
	fields["Description"] = truncate(desc, maxDescription)
	return fields
}

// Lead.Description is a 32k long text area.
const maxDescription = 32000

func splitName(name string) (first, last string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
