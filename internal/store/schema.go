package store

import (
	"context"
	"database/sql"
	"fmt"
)

const schemaVersion = 1

// The column names match the browser build of the dashboard so that a
// .sqlite export from either side imports into the other.
const leadsTable = `
CREATE TABLE IF NOT EXISTS leads (
  id TEXT PRIMARY KEY,
  name TEXT,
  address TEXT,
  rating REAL,
  latitude REAL,
  longitude REAL,
  industry TEXT,
  marketGaps TEXT,
  pitchAngle TEXT,
  website TEXT,
  hasChatbot INTEGER,
  hasOnlineBooking INTEGER,
  sentiment TEXT,
  isSaved INTEGER DEFAULT 0,
  notes TEXT,
  proposal TEXT,
  createdAt DATETIME DEFAULT CURRENT_TIMESTAMP
);
`

// leadColumns is every column the repository reads or writes.
var leadColumns = []string{
	"id", "name", "address", "rating", "latitude", "longitude", "industry",
	"marketGaps", "pitchAngle", "website", "hasChatbot", "hasOnlineBooking",
	"sentiment", "isSaved", "notes", "proposal", "createdAt",
}

// missingColumns lists the lead columns the leads table lacks.
func missingColumns(ctx context.Context, db *sql.DB) []string {
	var missing []string
	for _, col := range leadColumns {
		if !columnExists(ctx, db, "leads", col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// Migrate brings an engine up to the current schema. It is safe on a fresh
// engine, on one of our own snapshots and on a foreign export that already
// has a leads table.
func Migrate(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRowContext(ctx, `PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= schemaVersion {
		return tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, leadsTable); err != nil {
		return fmt.Errorf("create leads: %w", err)
	}

	// Early exports predate the intelligence columns.
	for _, col := range []string{"notes", "proposal"} {
		if !columnExists(ctx, tx, "leads", col) {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE leads ADD COLUMN %s TEXT;`, col)); err != nil {
				return fmt.Errorf("add column %s: %w", col, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, `
CREATE INDEX IF NOT EXISTS idx_leads_created_at
ON leads(createdAt);
`); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d;`, schemaVersion)); err != nil {
		return err
	}

	return tx.Commit()
}

func columnExists(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, table, col string) bool {
	query := fmt.Sprintf(`
SELECT 1
FROM pragma_table_info('%s')
WHERE name = ?
LIMIT 1;
`, table)

	var one int
	err := q.QueryRowContext(ctx, query, col).Scan(&one)
	return err == nil
}

func tableExists(ctx context.Context, db *sql.DB, table string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx,
		`SELECT 1 FROM sqlite_master WHERE type = 'table' AND name = ? LIMIT 1;`, table).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
