// Package notion mirrors showroom sessions into a Notion database, one page
// per session, through a throttled wrapper over notionapi.
package notion

import (
	"context"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultRateLimit is Notion's documented average request rate.
const DefaultRateLimit = 3.0

// Client is the subset of the Notion API the session sink needs.
type Client interface {
	QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// ClientOption configures NewClient.
type ClientOption func(*throttled)

// WithRateLimit sets requests per second; zero or less disables throttling.
func WithRateLimit(rps float64) ClientOption {
	return func(t *throttled) {
		t.limiter = nil
		if rps > 0 {
			t.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// throttled serializes calls through a limiter before reaching the API.
type throttled struct {
	api     *notionapi.Client
	limiter *rate.Limiter
}

// NewClient creates a Client for an integration token, throttled to
// DefaultRateLimit unless overridden.
func NewClient(token string, opts ...ClientOption) Client {
	t := &throttled{
		api:     notionapi.NewClient(notionapi.Token(token)),
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *throttled) acquire(ctx context.Context) error {
	if t.limiter == nil {
		return nil
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "notion: rate limit")
	}
	return nil
}

func (t *throttled) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	resp, err := t.api.Database.Query(ctx, notionapi.DatabaseID(dbID), req)
	return resp, eris.Wrapf(err, "notion: query database %s", dbID)
}

func (t *throttled) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	page, err := t.api.Page.Create(ctx, req)
	return page, eris.Wrap(err, "notion: create page")
}

func (t *throttled) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if err := t.acquire(ctx); err != nil {
		return nil, err
	}
	page, err := t.api.Page.Update(ctx, notionapi.PageID(pageID), req)
	return page, eris.Wrapf(err, "notion: update page %s", pageID)
}
