// store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/dalemusser/leadcapture/lead"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS leads (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    email        TEXT NOT NULL UNIQUE,
    industry     TEXT NOT NULL,
    country      TEXT NOT NULL DEFAULT '',
    submitted_at TIMESTAMP NOT NULL
)`

// SQLite stores leads in a local SQLite file. Suited to single-instance
// deployments, which is what this service is.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database file and ensures the
// leads table exists.
func NewSQLite(ctx context.Context, path string, timeout time.Duration) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// SQLite allows one writer at a time; more connections just contend.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) SaveLead(ctx context.Context, l lead.Lead) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, email, industry, country, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Email, string(l.Industry), l.Country, l.SubmittedAt,
	)
	if err != nil {
		var sqErr sqlite3.Error
		if errors.As(err, &sqErr) &&
			(sqErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
				sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
			return fmt.Errorf("email %s: %w", l.Email, ErrDuplicate)
		}
		return fmt.Errorf("sqlite insert lead: %w", err)
	}
	return nil
}

func (s *SQLite) ListLeads(ctx context.Context) ([]lead.Lead, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, industry, country, submitted_at
		 FROM leads ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("sqlite list leads: %w", err)
	}
	defer rows.Close()

	var out []lead.Lead
	for rows.Next() {
		var l lead.Lead
		var industry string
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &industry, &l.Country, &l.SubmittedAt); err != nil {
			return nil, fmt.Errorf("sqlite scan lead: %w", err)
		}
		l.Industry = lead.Industry(industry)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close(_ context.Context) error {
	return s.db.Close()
}
