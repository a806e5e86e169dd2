// Package sqlite persists the leaderboard in a SQLite table. Each save
// replaces the whole table inside one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/okian/flashquiz/internal/domain/leaderboard"
)

// Persister implements leaderboard.Persister on SQLite.
type Persister struct {
	db *sql.DB
}

var _ leaderboard.Persister = (*Persister)(nil)

// New opens (or creates) the database at path.
func New(ctx context.Context, path string) (*Persister, error) {
	if strings.TrimSpace(path) == "" {
		path = "leaderboard.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	p := &Persister{db: db}
	if err := p.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return p, nil
}

func (p *Persister) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS leaderboard (
			position INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			score REAL NOT NULL,
			date TEXT NOT NULL
		);`,
	}
	for _, stmt := range statements {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init leaderboard schema: %w", err)
		}
	}
	return nil
}

// Close releases the database handle.
func (p *Persister) Close() error {
	return p.db.Close()
}

// Load returns the table in rank order.
func (p *Persister) Load(ctx context.Context) ([]leaderboard.Entry, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT name, score, date FROM leaderboard ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []leaderboard.Entry{}
	for rows.Next() {
		var e leaderboard.Entry
		if err := rows.Scan(&e.Name, &e.Score, &e.Date); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w: %w", leaderboard.ErrMalformed, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate leaderboard: %w", err)
	}
	return entries, nil
}

// Save replaces the table in one transaction.
func (p *Persister) Save(ctx context.Context, entries []leaderboard.Entry) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM leaderboard`); err != nil {
		return fmt.Errorf("clear leaderboard: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO leaderboard (position, name, score, date) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, i, e.Name, e.Score, e.Date); err != nil {
			return fmt.Errorf("insert leaderboard row %d: %w", i, err)
		}
	}
	return tx.Commit()
}
