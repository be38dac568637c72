// Package ledger is the dedup/record store: which listings have been
// applied to, which were skipped and why. Every mutating call commits
// before returning, so a crash never loses a decision.
package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

type Ledger struct {
	db *sql.DB
}

// AppliedRecord is one row of the applied set.
type AppliedRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Employer  string `json:"employer"`
	AppliedAt string `json:"appliedAt"`
}

// Stats is the operator-facing summary of the ledger.
type Stats struct {
	TotalApplied int             `json:"totalApplied"`
	TotalSkipped int             `json:"totalSkipped"`
	Recent       []AppliedRecord `json:"recent"`
}

func Open(path string) (*Ledger, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func (l *Ledger) HasApplied(id string) (bool, error) {
	var one int
	err := l.db.QueryRow(`SELECT 1 FROM applied WHERE id = ? LIMIT 1;`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// HasSeen reports whether the listing was already applied to or skipped.
func (l *Ledger) HasSeen(id string) (bool, error) {
	applied, err := l.HasApplied(id)
	if err != nil || applied {
		return applied, err
	}
	var one int
	err = l.db.QueryRow(`SELECT 1 FROM skipped WHERE id = ? LIMIT 1;`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkApplied upserts the listing into the applied set. Calling it twice for
// the same id keeps exactly one row.
func (l *Ledger) MarkApplied(id, title, employer, url string) error {
	_, err := l.db.Exec(`
INSERT OR REPLACE INTO applied (id, title, employer, url, applied_at)
VALUES (?, ?, ?, ?, ?);`,
		id, title, employer, url, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("mark applied %s: %w", id, err)
	}
	return nil
}

// MarkSkipped upserts the listing into the skipped set with a reason code.
func (l *Ledger) MarkSkipped(id, title, employer, url, reason string) error {
	_, err := l.db.Exec(`
INSERT OR REPLACE INTO skipped (id, title, employer, url, skipped_at, reason)
VALUES (?, ?, ?, ?, ?, ?);`,
		id, title, employer, url, time.Now().UTC().Format(time.RFC3339), reason)
	if err != nil {
		return fmt.Errorf("mark skipped %s: %w", id, err)
	}
	return nil
}

func (l *Ledger) Stats() (Stats, error) {
	var st Stats
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM applied;`).Scan(&st.TotalApplied); err != nil {
		return st, err
	}
	if err := l.db.QueryRow(`SELECT COUNT(*) FROM skipped;`).Scan(&st.TotalSkipped); err != nil {
		return st, err
	}

	rows, err := l.db.Query(`
SELECT id, title, employer, applied_at
FROM applied
ORDER BY applied_at DESC
LIMIT 10;`)
	if err != nil {
		return st, err
	}
	defer rows.Close()

	for rows.Next() {
		var r AppliedRecord
		if err := rows.Scan(&r.ID, &r.Title, &r.Employer, &r.AppliedAt); err != nil {
			return st, err
		}
		st.Recent = append(st.Recent, r)
	}
	return st, rows.Err()
}

// ClearAll empties both record sets in one transaction.
func (l *Ledger) ClearAll() error {
	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM applied;`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM skipped;`); err != nil {
		return err
	}
	return tx.Commit()
}
