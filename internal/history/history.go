package history

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/regoguard/regoguard/internal/domain/control"
	"github.com/regoguard/regoguard/internal/domain/scan"
)

// DB stores scan summaries and compliance exports locally so later
// exports can join in historical trend data.
type DB struct {
	sql *sql.DB
}

// Open opens (and migrates) the history database at path.
func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
CREATE TABLE IF NOT EXISTS scans (
    scan_id TEXT PRIMARY KEY,
    scanned_at INTEGER NOT NULL,
    environment TEXT,
    total_violations INTEGER NOT NULL,
    critical INTEGER NOT NULL DEFAULT 0,
    high INTEGER NOT NULL DEFAULT 0,
    medium INTEGER NOT NULL DEFAULT 0,
    low INTEGER NOT NULL DEFAULT 0,
    failed_groups INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    generated_at INTEGER NOT NULL,
    total_controls INTEGER NOT NULL
);
`)
	return err
}

// RecordScan persists one evaluation run summary.
func (d *DB) RecordScan(ctx context.Context, r *scan.Report) error {
	failed := 0
	for _, g := range r.Groups {
		if g.Status == scan.GroupStatusFailed {
			failed++
		}
	}
	_, err := d.sql.ExecContext(ctx, `
INSERT INTO scans (scan_id, scanned_at, environment, total_violations, critical, high, medium, low, failed_groups)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(scan_id) DO NOTHING
`,
		r.Metadata.ScanID,
		r.Metadata.Timestamp.Unix(),
		r.Metadata.Environment,
		r.Summary.Total,
		r.Summary.BySeverity[strings.ToLower(control.SeverityCritical)],
		r.Summary.BySeverity[strings.ToLower(control.SeverityHigh)],
		r.Summary.BySeverity[strings.ToLower(control.SeverityMedium)],
		r.Summary.BySeverity[strings.ToLower(control.SeverityLow)],
		failed,
	)
	return err
}

// RecordExport persists one compliance export summary.
func (d *DB) RecordExport(ctx context.Context, generatedAt time.Time, totalControls int) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO exports (generated_at, total_controls) VALUES (?, ?)`,
		generatedAt.Unix(), totalControls)
	return err
}

// Trend returns up to limit historical points, oldest first. Each
// point joins the export's control count with the violation total of
// the most recent scan on the same day, when one exists.
func (d *DB) Trend(ctx context.Context, limit int) ([]scan.TrendPoint, error) {
	rows, err := d.sql.QueryContext(ctx, `
SELECT e.generated_at, e.total_controls,
       COALESCE((SELECT s.total_violations FROM scans s
                 WHERE date(s.scanned_at, 'unixepoch') = date(e.generated_at, 'unixepoch')
                 ORDER BY s.scanned_at DESC LIMIT 1), 0)
FROM exports e
ORDER BY e.generated_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []scan.TrendPoint
	for rows.Next() {
		var ts int64
		var p scan.TrendPoint
		if err := rows.Scan(&ts, &p.TotalControls, &p.Violations); err != nil {
			return nil, err
		}
		p.Date = time.Unix(ts, 0).UTC().Format("2006-01-02")
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Oldest first for rendering.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
