// store/postgres.go
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dalemusser/leadcapture/lead"
)

const pgUniqueViolation = "23505"

const pgSchema = `
CREATE TABLE IF NOT EXISTS leads (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL UNIQUE,
    industry     TEXT NOT NULL,
    country      TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMPTZ NOT NULL
)`

// Postgres stores leads in PostgreSQL behind a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pool, pings it, and ensures the leads table exists.
// The caller owns Close.
func NewPostgres(ctx context.Context, connString string, timeout time.Duration) (*Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) SaveLead(ctx context.Context, l lead.Lead) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO leads (id, name, email, industry, country, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		l.ID, l.Name, l.Email, string(l.Industry), l.Country, l.SubmittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("email %s: %w", l.Email, ErrDuplicate)
		}
		return fmt.Errorf("postgres insert lead: %w", err)
	}
	return nil
}

func (p *Postgres) ListLeads(ctx context.Context) ([]lead.Lead, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, email, industry, country, submitted_at
		 FROM leads ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("postgres list leads: %w", err)
	}
	defer rows.Close()

	var out []lead.Lead
	for rows.Next() {
		var l lead.Lead
		var industry string
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &industry, &l.Country, &l.SubmittedAt); err != nil {
			return nil, fmt.Errorf("postgres scan lead: %w", err)
		}
		l.Industry = lead.Industry(industry)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close(_ context.Context) error {
	p.pool.Close()
	return nil
}
