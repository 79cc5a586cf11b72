package namelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Postgres persists the name log in a registered_names table.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects, tunes the pool and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS registered_names (
    id            BIGSERIAL PRIMARY KEY,
    name          TEXT NOT NULL,
    registered_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &Postgres{db: db}, nil
}

func ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func (p *Postgres) Append(ctx context.Context, name string) error {
	if _, err := p.db.ExecContext(ctx, `INSERT INTO registered_names (name) VALUES ($1)`, name); err != nil {
		return fmt.Errorf("insert name: %w", err)
	}
	return nil
}

func (p *Postgres) Distinct(ctx context.Context, limit int) ([]string, error) {
	q := `SELECT name FROM registered_names GROUP BY name ORDER BY MIN(id) LIMIT $1`
	rows, err := p.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (p *Postgres) Close() error { return p.db.Close() }
