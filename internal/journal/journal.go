// Package journal keeps the local change history for bookings in sqlite.
// Bookings themselves live on the authority; the journal records what the
// portal changed and feeds the external sync queue.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"kovorka/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	db *sql.DB
}

func NewDB(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %v", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %v", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to journal database: %v", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &DB{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS change_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER NOT NULL,
            change_type TEXT NOT NULL,
            old_start DATETIME,
            old_end DATETIME,
            new_start DATETIME,
            new_end DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            change_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_change_log_booking_id ON change_log(booking_id)`,
		`CREATE INDEX IF NOT EXISTS idx_change_log_created_at ON change_log(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %v", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

// RecordChange appends one row to the change log and backfills the entry's
// id and timestamp.
func (db *DB) RecordChange(ctx context.Context, entry *models.ChangeEntry) error {
	query := `INSERT INTO change_log (booking_id, change_type, old_start, old_end, new_start, new_end, created_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	result, err := db.db.ExecContext(ctx, query,
		entry.BookingID,
		entry.ChangeType,
		entry.OldStart,
		entry.OldEnd,
		entry.NewStart,
		entry.NewEnd,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record change: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	entry.ID = id

	return nil
}

// ListChanges returns the most recent changes for one booking.
func (db *DB) ListChanges(ctx context.Context, bookingID int64, limit int) ([]*models.ChangeEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, booking_id, change_type, old_start, old_end, new_start, new_end, created_at
              FROM change_log WHERE booking_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`
	rows, err := db.db.QueryContext(ctx, query, bookingID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	return scanChanges(rows)
}

// ListAllChanges returns every change recorded at or after since, oldest
// first, for exports.
func (db *DB) ListAllChanges(ctx context.Context, since time.Time) ([]*models.ChangeEntry, error) {
	query := `SELECT id, booking_id, change_type, old_start, old_end, new_start, new_end, created_at
              FROM change_log WHERE created_at >= ? ORDER BY created_at ASC, id ASC`
	rows, err := db.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list all changes: %w", err)
	}
	defer rows.Close()

	return scanChanges(rows)
}

func scanChanges(rows *sql.Rows) ([]*models.ChangeEntry, error) {
	var entries []*models.ChangeEntry
	for rows.Next() {
		var e models.ChangeEntry
		err := rows.Scan(
			&e.ID, &e.BookingID, &e.ChangeType, &e.OldStart, &e.OldEnd, &e.NewStart, &e.NewEnd, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan change entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	query := `INSERT INTO sync_queue (task_type, change_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.db.ExecContext(ctx, query,
		task.TaskType,
		task.ChangeID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

func (db *DB) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	query := `SELECT id, task_type, change_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
              FROM sync_queue
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := db.db.QueryContext(ctx, query, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		var t models.SyncTask
		err := rows.Scan(
			&t.ID, &t.TaskType, &t.ChangeID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []interface{}
	now := time.Now()

	switch status {
	case "retry":
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	case "completed", "failed":
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE sync_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []interface{}{status, errMsg, nextRetryAt, id}
	}

	_, err := db.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update sync task status: %w", err)
	}
	return nil
}
