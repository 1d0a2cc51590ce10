package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// FindPageByText returns the first page whose rich_text property equals
// value, or nil when no page matches.
func FindPageByText(ctx context.Context, c Client, dbID, property, value string) (*notionapi.Page, error) {
	if value == "" {
		return nil, eris.New("notion: lookup value is required")
	}
	resp, err := c.QueryDatabase(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: property,
			RichText: &notionapi.TextFilterCondition{Equals: value},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: find page by %s", property)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}
