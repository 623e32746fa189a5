// store/mysql.go
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dalemusser/leadcapture/lead"
)

// mysqlDupEntry is MySQL error 1062 (ER_DUP_ENTRY).
const mysqlDupEntry = 1062

const mysqlSchema = `
CREATE TABLE IF NOT EXISTS leads (
    id           VARCHAR(64)  NOT NULL PRIMARY KEY,
    name         VARCHAR(100) NOT NULL,
    email        VARCHAR(254) NOT NULL,
    industry     VARCHAR(32)  NOT NULL,
    country      VARCHAR(2)   NOT NULL DEFAULT '',
    submitted_at DATETIME(6)  NOT NULL,
    UNIQUE KEY uq_leads_email (email)
)`

// MySQL stores leads in MySQL/MariaDB via database/sql.
type MySQL struct {
	db *sql.DB
}

// NewMySQL opens the DSN, pings it, and ensures the leads table exists.
func NewMySQL(ctx context.Context, dsn string, timeout time.Duration) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("mysql open: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("mysql ensure schema: %w", err)
	}
	return &MySQL{db: db}, nil
}

func (m *MySQL) SaveLead(ctx context.Context, l lead.Lead) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO leads (id, name, email, industry, country, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		l.ID, l.Name, l.Email, string(l.Industry), l.Country, l.SubmittedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDupEntry {
			return fmt.Errorf("email %s: %w", l.Email, ErrDuplicate)
		}
		return fmt.Errorf("mysql insert lead: %w", err)
	}
	return nil
}

func (m *MySQL) ListLeads(ctx context.Context) ([]lead.Lead, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id, name, email, industry, country, submitted_at
		 FROM leads ORDER BY submitted_at`)
	if err != nil {
		return nil, fmt.Errorf("mysql list leads: %w", err)
	}
	defer rows.Close()

	var out []lead.Lead
	for rows.Next() {
		var l lead.Lead
		var industry string
		if err := rows.Scan(&l.ID, &l.Name, &l.Email, &industry, &l.Country, &l.SubmittedAt); err != nil {
			return nil, fmt.Errorf("mysql scan lead: %w", err)
		}
		l.Industry = lead.Industry(industry)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (m *MySQL) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *MySQL) Close(_ context.Context) error {
	return m.db.Close()
}
