package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// DefaultSessionField is the custom Lead field holding the showroom session ID.
const DefaultSessionField = "Showroom_Session_Id__c"

// Lead is the subset of a Salesforce Lead the assistant reads back.
type Lead struct {
	ID     string `json:"Id" salesforce:"Id"`
	Status string `json:"Status" salesforce:"Status"`
}

// FindLeadBySession returns the Lead whose sessionField equals sessionID, or
// nil when there is none.
func FindLeadBySession(ctx context.Context, c Client, sessionField, sessionID string) (*Lead, error) {
	if sessionID == "" {
		return nil, eris.New("sf: session id is required")
	}
	soql := fmt.Sprintf(
		"SELECT Id, Status FROM Lead WHERE %s = '%s' LIMIT 1",
		sessionField,
		escapeSoql(sessionID),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead for session %s", sessionID))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLead updates the session's Lead or creates one. It returns the
// Lead ID and whether it was created.
func UpsertLead(ctx context.Context, c Client, sessionField, sessionID string, fields map[string]any) (string, bool, error) {
	existing, err := FindLeadBySession(ctx, c, sessionField, sessionID)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, "Lead", existing.ID, fields); err != nil {
			return "", false, eris.Wrap(err, fmt.Sprintf("sf: update lead %s", existing.ID))
		}
		return existing.ID, false, nil
	}

	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record[sessionField] = sessionID
	if name, _ := record["LastName"].(string); strings.TrimSpace(name) == "" {
		record["LastName"] = "Showroom Guest"
	}
	if company, _ := record["Company"].(string); strings.TrimSpace(company) == "" {
		record["Company"] = "Individual"
	}

	id, err := c.InsertOne(ctx, "Lead", record)
	if err != nil {
		return "", false, eris.Wrap(err, "sf: create lead")
	}
	return id, true, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
