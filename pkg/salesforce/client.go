// Package salesforce keeps a CRM Lead in step with each showroom session,
// using the go-salesforce REST client behind a rate-limited interface.
package salesforce

import (
	"context"
	"strings"

	"github.com/k-capehart/go-salesforce/v3"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client is the slice of the Salesforce REST API the lead sync uses.
type Client interface {
	Query(ctx context.Context, soql string, out any) error
	InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

// ClientOption configures NewClient and Connect.
type ClientOption func(*restClient)

// WithRateLimit caps API calls per second, with a burst of the integer part
// of rps.
func WithRateLimit(rps float64) ClientOption {
	return func(c *restClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// restClient adapts *salesforce.Salesforce to Client. The library takes no
// context, so ctx only bounds the limiter wait.
type restClient struct {
	sf      *salesforce.Salesforce
	limiter *rate.Limiter
}

// NewClient wraps an initialized go-salesforce instance.
func NewClient(sf *salesforce.Salesforce, opts ...ClientOption) Client {
	c := &restClient{sf: sf}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config holds JWT bearer-flow credentials for the dealership's
// connected app.
type Config struct {
	LoginURL   string
	Username   string
	ClientID   string
	PrivateKey string // PEM
}

func (c Config) validate() error {
	var missing []string
	if c.ClientID == "" {
		missing = append(missing, "client id")
	}
	if c.Username == "" {
		missing = append(missing, "username")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "private key")
	}
	if len(missing) > 0 {
		return eris.Errorf("sf: %s required", strings.Join(missing, ", "))
	}
	return nil
}

// Connect authenticates with the JWT bearer flow.
func Connect(cfg Config, opts ...ClientOption) (Client, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	sf, err := salesforce.Init(salesforce.Creds{
		Domain:         cfg.LoginURL,
		Username:       cfg.Username,
		ConsumerKey:    cfg.ClientID,
		ConsumerRSAPem: cfg.PrivateKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "sf: init")
	}
	return NewClient(sf, opts...), nil
}

// throttle blocks until the limiter admits one call.
func (c *restClient) throttle(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return eris.Wrap(c.limiter.Wait(ctx), "sf: rate limit")
}

func (c *restClient) Query(ctx context.Context, soql string, out any) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	return eris.Wrap(c.sf.Query(soql, out), "sf: query")
}

func (c *restClient) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if err := c.throttle(ctx); err != nil {
		return "", err
	}
	res, err := c.sf.InsertOne(sObjectName, record)
	switch {
	case err != nil:
		return "", eris.Wrapf(err, "sf: insert %s", sObjectName)
	case !res.Success:
		return "", eris.Errorf("sf: insert %s failed: %v", sObjectName, res.Errors)
	}
	return res.Id, nil
}

// UpdateOne patches fields on the record; fields is not modified.
func (c *restClient) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if err := c.throttle(ctx); err != nil {
		return err
	}
	record := map[string]any{"Id": id}
	for k, v := range fields {
		if k != "Id" {
			record[k] = v
		}
	}
	return eris.Wrapf(c.sf.UpdateOne(sObjectName, record), "sf: update %s %s", sObjectName, id)
}
