package alert

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies the schema migrations to the database at dsn.
func Migrate(ctx context.Context, dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

// PostgresStore writes alerts to the drowsiness_alerts table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres migrates the schema and opens a connection pool.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	if err := Migrate(ctx, dsn); err != nil {
		return nil, err
	}
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Name identifies the publisher in logs.
func (s *PostgresStore) Name() string { return "postgres" }

// Publish inserts e. Replays of the same event ID are ignored.
func (s *PostgresStore) Publish(ctx context.Context, e Event) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO drowsiness_alerts
			(id, session_id, module_name, alert, eyes_detected, faces, total_alerts, closed_for_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.SessionID, e.Module, e.Alert, e.EyesDetected, e.Faces, e.TotalAlerts, e.ClosedForMS, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Recent returns up to limit alerts, newest first.
func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, module_name, alert, eyes_detected, faces, total_alerts, closed_for_ms, created_at
		FROM drowsiness_alerts
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var created time.Time
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Module, &e.Alert, &e.EyesDetected, &e.Faces,
			&e.TotalAlerts, &e.ClosedForMS, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		e.Timestamp = created
		events = append(events, e)
	}
	return events, rows.Err()
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
