package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/showroom-assistant/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL DEFAULT '',
	current_step  TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	data          TEXT NOT NULL,
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);
CREATE INDEX IF NOT EXISTS idx_sessions_customer ON sessions(customer_name);

CREATE TABLE IF NOT EXISTS vehicles (
	stock_number TEXT PRIMARY KEY,
	vin          TEXT NOT NULL DEFAULT '',
	year         INTEGER NOT NULL DEFAULT 0,
	make         TEXT NOT NULL DEFAULT '',
	model        TEXT NOT NULL DEFAULT '',
	trim         TEXT NOT NULL DEFAULT '',
	color        TEXT NOT NULL DEFAULT '',
	body_style   TEXT NOT NULL DEFAULT '',
	condition    TEXT NOT NULL DEFAULT '',
	price        REAL NOT NULL DEFAULT 0,
	updated_at   DATETIME NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSession(ctx context.Context, log model.SessionLog) error {
	if err := validateSession(log); err != nil {
		return err
	}
	data, err := json.Marshal(log)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal session")
	}
	now := updatedAt(log)

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, customer_name, current_step, message_count, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name = excluded.customer_name,
			current_step = excluded.current_step,
			message_count = excluded.message_count,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		log.SessionID, log.CustomerName, log.CurrentStep, len(log.Transcript), string(data), now, now,
	)
	return eris.Wrapf(err, "sqlite: save session %s", log.SessionID)
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.SessionLog, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "session %s", sessionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get session %s", sessionID)
	}

	var log model.SessionLog
	if err := json.Unmarshal([]byte(data), &log); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal session")
	}
	return &log, nil
}

func (s *SQLiteStore) ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error) {
	query := `SELECT id, customer_name, current_step, message_count, created_at, updated_at FROM sessions WHERE 1=1`
	var args []any

	if filter.CustomerName != "" {
		query += ` AND lower(customer_name) LIKE ?`
		args = append(args, "%"+strings.ToLower(filter.CustomerName)+"%")
	}
	if !filter.Since.IsZero() {
		query += ` AND updated_at >= ?`
		args = append(args, filter.Since.UTC())
	}
	query += ` ORDER BY updated_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list sessions")
	}
	defer rows.Close() //nolint:errcheck

	var out []SessionSummary
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.SessionID, &ss.CustomerName, &ss.CurrentStep, &ss.Messages, &ss.CreatedAt, &ss.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan session")
		}
		out = append(out, ss)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list sessions iterate")
}

func (s *SQLiteStore) UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) (int64, error) {
	vehicles = keyed(vehicles)
	if len(vehicles) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin vehicles tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vehicles (`+strings.Join(vehicleColumns, ", ")+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(stock_number) DO UPDATE SET
			vin = excluded.vin, year = excluded.year, make = excluded.make,
			model = excluded.model, trim = excluded.trim, color = excluded.color,
			body_style = excluded.body_style, condition = excluded.condition,
			price = excluded.price, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare vehicle upsert")
	}
	defer stmt.Close() //nolint:errcheck

	now := time.Now().UTC()
	for _, v := range vehicles {
		if _, err := stmt.ExecContext(ctx, vehicleRow(v, now)...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert vehicle %s", v.StockNumber)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit vehicles")
	}
	return int64(len(vehicles)), nil
}

func (s *SQLiteStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT stock_number, vin, year, make, model, trim, color, body_style, condition, price
		FROM vehicles ORDER BY make, model, year DESC, stock_number`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list vehicles")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan vehicle")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list vehicles iterate")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanVehicle(row scannable) (model.Vehicle, error) {
	var v model.Vehicle
	err := row.Scan(&v.StockNumber, &v.VIN, &v.Year, &v.Make, &v.Model, &v.Trim,
		&v.Color, &v.BodyStyle, &v.Condition, &v.Price)
	return v, err
}
