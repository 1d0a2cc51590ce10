// Package store persists session logs and imported inventory in SQLite or
// Postgres.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// ErrNotFound is returned when a session does not exist.
var ErrNotFound = eris.New("store: not found")

// SessionFilter specifies criteria for listing sessions.
type SessionFilter struct {
	CustomerName string    `json:"customer_name,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}

func (f SessionFilter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return f.Limit
}

// SessionSummary is one row of a session listing.
type SessionSummary struct {
	SessionID    string    `json:"session_id"`
	CustomerName string    `json:"customer_name,omitempty"`
	CurrentStep  string    `json:"current_step,omitempty"`
	Messages     int       `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store defines the persistence interface for the assistant.
type Store interface {
	// Sessions. SaveSession upserts by SessionID; each write carries the
	// whole transcript so far.
	SaveSession(ctx context.Context, log model.SessionLog) error
	GetSession(ctx context.Context, sessionID string) (*model.SessionLog, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error)

	// Inventory imported from feeds.
	UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) (int64, error)
	ListVehicles(ctx context.Context) ([]model.Vehicle, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open picks the backend from the driver name: "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return NewPostgres(ctx, dsn, poolCfg)
	case "sqlite", "sqlite3", "":
		return NewSQLite(dsn)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func validateSession(log model.SessionLog) error {
	if strings.TrimSpace(log.SessionID) == "" {
		return eris.New("store: session id is required")
	}
	return nil
}

func updatedAt(log model.SessionLog) time.Time {
	if log.LoggedAt.IsZero() {
		return time.Now().UTC()
	}
	return log.LoggedAt.UTC()
}

// vehicleColumns is the column order used by both backends.
var vehicleColumns = []string{
	"stock_number", "vin", "year", "make", "model", "trim",
	"color", "body_style", "condition", "price", "updated_at",
}

func vehicleRow(v model.Vehicle, now time.Time) []any {
	return []any{
		v.StockNumber, v.VIN, v.Year, v.Make, v.Model, v.Trim,
		v.Color, v.BodyStyle, v.Condition, v.Price, now,
	}
}

// keyed drops vehicles without a stock number and keeps the first of each.
func keyed(vehicles []model.Vehicle) []model.Vehicle {
	seen := make(map[string]bool, len(vehicles))
	out := make([]model.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if v.StockNumber == "" || seen[v.StockNumber] {
			continue
		}
		seen[v.StockNumber] = true
		out = append(out, v)
	}
	return out
}
