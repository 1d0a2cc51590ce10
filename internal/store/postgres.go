package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/showroom-assistant/internal/db"
	"github.com/sells-group/showroom-assistant/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Close does not close it.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	customer_name TEXT NOT NULL DEFAULT '',
	current_step  TEXT NOT NULL DEFAULT '',
	message_count INTEGER NOT NULL DEFAULT 0,
	data          JSONB NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_customer ON sessions(lower(customer_name));

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
	price        DOUBLE PRECISION NOT NULL DEFAULT 0,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, log model.SessionLog) error {
	if err := validateSession(log); err != nil {
		return err
	}
	data, err := json.Marshal(log)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal session")
	}
	now := updatedAt(log)

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, customer_name, current_step, message_count, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			customer_name = EXCLUDED.customer_name,
			current_step = EXCLUDED.current_step,
			message_count = EXCLUDED.message_count,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		log.SessionID, log.CustomerName, log.CurrentStep, len(log.Transcript), data, now, now,
	)
	return eris.Wrapf(err, "postgres: save session %s", log.SessionID)
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*model.SessionLog, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM sessions WHERE id = $1`, sessionID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "session %s", sessionID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", sessionID)
	}

	var log model.SessionLog
	if err := json.Unmarshal(data, &log); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal session")
	}
	return &log, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, filter SessionFilter) ([]SessionSummary, error) {
	query := `SELECT id, customer_name, current_step, message_count, created_at, updated_at FROM sessions WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.CustomerName != "" {
		query += ` AND lower(customer_name) LIKE ` + arg("%"+strings.ToLower(filter.CustomerName)+"%")
	}
	if !filter.Since.IsZero() {
		query += ` AND updated_at >= ` + arg(filter.Since.UTC())
	}
	query += ` ORDER BY updated_at DESC LIMIT ` + arg(filter.limit())
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list sessions")
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.SessionID, &ss.CustomerName, &ss.CurrentStep, &ss.Messages, &ss.CreatedAt, &ss.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan session")
		}
		out = append(out, ss)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list sessions iterate")
}

func (s *PostgresStore) UpsertVehicles(ctx context.Context, vehicles []model.Vehicle) (int64, error) {
	vehicles = keyed(vehicles)
	now := time.Now().UTC()
	rows := make([][]any, len(vehicles))
	for i, v := range vehicles {
		rows[i] = vehicleRow(v, now)
	}
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "vehicles",
		Columns:      vehicleColumns,
		ConflictKeys: []string{"stock_number"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert vehicles")
}

func (s *PostgresStore) ListVehicles(ctx context.Context) ([]model.Vehicle, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT stock_number, vin, year, make, model, trim, color, body_style, condition, price
		FROM vehicles ORDER BY make, model, year DESC, stock_number`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list vehicles")
	}
	defer rows.Close()

	var out []model.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan vehicle")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list vehicles iterate")
}
