package sessionlog

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/showroom-assistant/internal/model"
	"github.com/sells-group/showroom-assistant/pkg/notion"
)

// Property names of the showroom sessions database.
const (
	PropName       = "Name"
	PropSessionID  = "Session ID"
	PropStep       = "Step"
	PropSummary    = "Summary"
	PropTranscript = "Transcript"
	PropBudgetMax  = "Budget Max"
	PropActions    = "Actions"
	PropLoggedAt   = "Last Activity"
)

// NotionSink keeps one page per session in a Notion database.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink creates a sink writing to database dbID.
func NewNotionSink(c notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: c, dbID: dbID}
}

// Write implements Sink.
func (s *NotionSink) Write(ctx context.Context, log model.SessionLog) error {
	page, err := notion.FindPageByText(ctx, s.client, s.dbID, PropSessionID, log.SessionID)
	if err != nil {
		return eris.Wrap(err, "sessionlog: find notion page")
	}

	props := PageProperties(log)
	if page != nil {
		if _, err := s.client.UpdatePage(ctx, string(page.ID), &notionapi.PageUpdateRequest{Properties: props}); err != nil {
			return eris.Wrap(err, "sessionlog: update notion page")
		}
		return nil
	}

	_, err = s.client.CreatePage(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(s.dbID),
		},
		Properties: props,
	})
	if err != nil {
		return eris.Wrap(err, "sessionlog: create notion page")
	}
	return nil
}

// PageProperties maps a session log onto the sessions database schema.
func PageProperties(log model.SessionLog) notionapi.Properties {
	name := log.CustomerName
	if name == "" {
		name = "Showroom Guest"
	}
	props := notionapi.Properties{
		PropName:       notion.Title(name),
		PropSessionID:  notion.Text(log.SessionID),
		PropSummary:    notion.Text(Summary(log)),
		PropTranscript: notion.Text(TranscriptText(log.Transcript)),
		PropLoggedAt:   notion.Date(log.LoggedAt),
	}
	if log.CurrentStep != "" {
		props[PropStep] = notion.Select(log.CurrentStep)
	}
	if log.Budget.Max != nil {
		props[PropBudgetMax] = notion.Number(*log.Budget.Max)
	}
	if len(log.Actions) > 0 {
		props[PropActions] = notion.MultiSelect(log.Actions)
	}
	return props
}
