package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS sessions`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	at := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	log := sessionLog("s-1", "Jordan", 2, at)

	mock.ExpectExec(`INSERT INTO sessions .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("s-1", "Jordan", "chat", 2, pgxmock.AnyArg(), at, at).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveSession(context.Background(), log))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	data, err := json.Marshal(sessionLog("s-1", "Jordan", 1, time.Now().UTC()))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT data FROM sessions WHERE id = \$1`).
		WithArgs("s-1").
		WillReturnRows(pgxmock.NewRows([]string{"data"}).AddRow(data))

	got, err := s.GetSession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "Jordan", got.CustomerName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT data FROM sessions`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSessions(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM sessions WHERE 1=1 AND lower\(customer_name\) LIKE \$1 ORDER BY updated_at DESC LIMIT \$2 OFFSET \$3`).
		WithArgs("%jordan%", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{"id", "customer_name", "current_step", "message_count", "created_at", "updated_at"}).
			AddRow("s-1", "Jordan", "chat", 4, now, now))

	list, err := s.ListSessions(context.Background(), SessionFilter{CustomerName: "Jordan", Limit: 10, Offset: 20})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 4, list[0].Messages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertVehicles(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_vehicles"}, vehicleColumns).WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "vehicles"`).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.UpsertVehicles(context.Background(), []model.Vehicle{
		{StockNumber: "A1", Make: "Chevrolet", Model: "Tahoe"},
		{StockNumber: "A1", Make: "Chevrolet", Model: "Duplicate"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestPostgresStore_ListVehicles(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`FROM vehicles ORDER BY`).
		WillReturnRows(pgxmock.NewRows([]string{"stock_number", "vin", "year", "make", "model", "trim", "color", "body_style", "condition", "price"}).
			AddRow("A1", "", 2024, "Chevrolet", "Tahoe", "Z71", "Black", "SUV", "new", 64500.0))

	vehicles, err := s.ListVehicles(context.Background())
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "Z71", vehicles[0].Trim)
	assert.NoError(t, mock.ExpectationsWereMet())
}
