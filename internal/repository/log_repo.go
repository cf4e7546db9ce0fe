package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"sensor_node/internal/models"

	"github.com/google/uuid"
)

const (
	insertLogSQL = `
		INSERT INTO event_log (id, occurred_at, event)
		VALUES (?, ?, ?)
	`

	selectRecentLogSQL = `
		SELECT id, occurred_at, event FROM (
			SELECT seq, id, occurred_at, event FROM event_log
			ORDER BY seq DESC LIMIT ?
		) ORDER BY seq ASC
	`
)

type LogSQLite struct {
	db *sql.DB
}

func NewLogSQLite(db *sql.DB) *LogSQLite { return &LogSQLite{db: db} }

// Append inserts rec and returns it with ID and Timestamp filled in when
// they were empty.
func (r *LogSQLite) Append(ctx context.Context, rec models.LogRecord) (models.LogRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	} else {
		rec.Timestamp = rec.Timestamp.UTC()
	}

	if _, err := r.db.ExecContext(ctx, insertLogSQL, rec.ID, rec.Timestamp, int64(rec.Event)); err != nil {
		return rec, fmt.Errorf("insert log record %s: %w", rec.ID, err)
	}
	return rec, nil
}

// Recent returns the newest limit records in insertion order.
func (r *LogSQLite) Recent(ctx context.Context, limit int) ([]models.LogRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectRecentLogSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("query log: %w", err)
	}
	defer rows.Close()

	out := make([]models.LogRecord, 0, limit)
	for rows.Next() {
		var (
			rec   models.LogRecord
			event int64
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &event); err != nil {
			return nil, fmt.Errorf("scan log row: %w", err)
		}
		rec.Timestamp = rec.Timestamp.UTC()
		rec.Event = models.EventCode(event)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
