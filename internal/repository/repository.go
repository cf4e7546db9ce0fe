package repository

import (
	"context"
	"database/sql"

	"sensor_node/internal/models"
)

// LogRepo persists event log records.
type LogRepo interface {
	Append(ctx context.Context, rec models.LogRecord) (models.LogRecord, error)
	Recent(ctx context.Context, limit int) ([]models.LogRecord, error)
}

// ConfigRepo persists the alarm thresholds. Load reports ok=false when
// nothing has been saved yet.
type ConfigRepo interface {
	Save(ctx context.Context, t models.Thresholds) error
	Load(ctx context.Context) (t models.Thresholds, ok bool, err error)
}

type Repository struct {
	LogRepo    LogRepo
	ConfigRepo ConfigRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		LogRepo:    NewLogSQLite(db),
		ConfigRepo: NewConfigSQLite(db),
	}
}
