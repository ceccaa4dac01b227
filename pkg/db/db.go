package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/thannaske/ocicost/pkg/models"
)

// DB represents the database connection
type DB struct {
	*sql.DB
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// InitDB initializes the database tables
func (db *DB) InitDB() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS report_runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_at DATETIME NOT NULL,
			window_start DATETIME NOT NULL,
			window_end DATETIME NOT NULL,
			tenancy_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			rows_written INTEGER NOT NULL,
			rows_skipped INTEGER NOT NULL,
			total_cost TEXT NOT NULL,
			partial BOOLEAN NOT NULL,
			query_error TEXT NOT NULL,
			uploaded BOOLEAN NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create an index on run_at for history listing and pruning
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_report_runs_run_at
		ON report_runs(run_at)
	`)
	return err
}

// StoreRun stores a report run and returns its id
func (db *DB) StoreRun(run models.ReportRun) (int64, error) {
	res, err := db.Exec(`
		INSERT INTO report_runs (run_at, window_start, window_end, tenancy_id, file_name,
			rows_written, rows_skipped, total_cost, partial, query_error, uploaded)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.RunAt.UTC(), run.WindowStart.UTC(), run.WindowEnd.UTC(), run.TenancyID, run.FileName,
		run.RowsWritten, run.RowsSkipped, run.TotalCost, run.Partial, run.QueryError, run.Uploaded)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// MarkUploaded records a successful upload for the latest run of fileName
func (db *DB) MarkUploaded(fileName string) error {
	_, err := db.Exec(`
		UPDATE report_runs SET uploaded = 1
		WHERE id = (SELECT MAX(id) FROM report_runs WHERE file_name = ?)
	`, fileName)
	return err
}

// GetRuns retrieves the most recent runs, newest first. A limit of zero or
// less returns all runs.
func (db *DB) GetRuns(limit int) ([]models.ReportRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(`
		SELECT id, run_at, window_start, window_end, tenancy_id, file_name,
			rows_written, rows_skipped, total_cost, partial, query_error, uploaded
		FROM report_runs
		ORDER BY run_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ReportRun
	for rows.Next() {
		var r models.ReportRun
		if err := rows.Scan(&r.ID, &r.RunAt, &r.WindowStart, &r.WindowEnd, &r.TenancyID, &r.FileName,
			&r.RowsWritten, &r.RowsSkipped, &r.TotalCost, &r.Partial, &r.QueryError, &r.Uploaded); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// PruneOldRuns removes run records older than cutoff
func (db *DB) PruneOldRuns(cutoff time.Time) (int64, error) {
	// Begin a transaction
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	result, err := tx.Exec(`
		DELETE FROM report_runs
		WHERE run_at < ?
	`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs before %s: %w", cutoff.Format("2006-01-02"), err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return rowsAffected, nil
}
