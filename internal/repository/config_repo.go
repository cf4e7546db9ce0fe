package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"sensor_node/internal/models"
)

const (
	thresholdsRowID = 1

	upsertThresholdsSQL = `
		INSERT INTO thresholds (id, hi_alarm, hi_warn, lo_alarm, lo_warn, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			hi_alarm=excluded.hi_alarm,
			hi_warn=excluded.hi_warn,
			lo_alarm=excluded.lo_alarm,
			lo_warn=excluded.lo_warn,
			updated_at=excluded.updated_at
	`

	selectThresholdsSQL = `
		SELECT hi_alarm, hi_warn, lo_alarm, lo_warn
		FROM thresholds WHERE id=?
	`
)

type ConfigSQLite struct {
	db *sql.DB
}

func NewConfigSQLite(db *sql.DB) *ConfigSQLite {
	return &ConfigSQLite{db: db}
}

// Save upserts the single thresholds row.
func (r *ConfigSQLite) Save(ctx context.Context, t models.Thresholds) error {
	_, err := r.db.ExecContext(ctx, upsertThresholdsSQL,
		thresholdsRowID,
		t.HiAlarm,
		t.HiWarn,
		t.LoAlarm,
		t.LoWarn,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save thresholds: %w", err)
	}
	return nil
}

// Load fetches the thresholds row. ok is false if it was never saved.
func (r *ConfigSQLite) Load(ctx context.Context) (models.Thresholds, bool, error) {
	var t models.Thresholds
	err := r.db.QueryRowContext(ctx, selectThresholdsSQL, thresholdsRowID).
		Scan(&t.HiAlarm, &t.HiWarn, &t.LoAlarm, &t.LoWarn)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Thresholds{}, false, nil
		}
		return models.Thresholds{}, false, fmt.Errorf("load thresholds: %w", err)
	}
	return t, true, nil
}
