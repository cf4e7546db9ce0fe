package service

import (
	"context"
	"time"

	"sensor_node/internal/logger"
	"sensor_node/internal/models"
	"sensor_node/internal/repository"
)

// Limits for the in-memory event history and its write-back.
const (
	DefaultLogCapacity = 16
	maxFlushPerCall    = 4
)

// LogStore keeps the newest records in memory for the GET response and
// writes new ones back to the repository a few at a time during idle slots.
type LogStore struct {
	repo     repository.LogRepo
	log      *logger.Logger
	now      func() time.Time
	capacity int

	records []models.LogRecord
	// unsaved counts the newest records not yet written back.
	unsaved int
}

// NewLogStore returns an empty store. A nil repo keeps the log in memory only.
func NewLogStore(repo repository.LogRepo, capacity int, now func() time.Time, log *logger.Logger) *LogStore {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	if now == nil {
		now = time.Now
	}
	return &LogStore{
		repo:     repo,
		log:      logger.OrNop(log),
		now:      now,
		capacity: capacity,
		records:  make([]models.LogRecord, 0, capacity),
	}
}

// Load replaces the in-memory history with the newest persisted records.
func (s *LogStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	recs, err := s.repo.Recent(ctx, s.capacity)
	if err != nil {
		return err
	}
	s.records = append(s.records[:0], recs...)
	s.unsaved = 0
	return nil
}

// Append records code at the current time. When the store is full the
// oldest record is dropped.
func (s *LogStore) Append(code models.EventCode) {
	if len(s.records) == s.capacity {
		copy(s.records, s.records[1:])
		s.records = s.records[:len(s.records)-1]
	}
	s.records = append(s.records, models.LogRecord{
		Timestamp: s.now().UTC(),
		Event:     code,
	})
	if s.unsaved < len(s.records) {
		s.unsaved++
	}
	s.log.Debugw("log_appended", "event", code.String(), "count", len(s.records))
}

func (s *LogStore) Count() int { return len(s.records) }

// At returns record i, oldest first. It panics if i is out of range.
func (s *LogStore) At(i int) models.LogRecord { return s.records[i] }

// Pending reports how many records still wait for write-back.
func (s *LogStore) Pending() int { return s.unsaved }

// FlushPendingWrites writes back up to maxFlushPerCall unsaved records,
// oldest first. Records that fail stay pending for the next idle slot.
func (s *LogStore) FlushPendingWrites(ctx context.Context) error {
	if s.unsaved == 0 {
		return nil
	}
	if s.repo == nil {
		s.unsaved = 0
		return nil
	}
	for n := 0; n < maxFlushPerCall && s.unsaved > 0; n++ {
		i := len(s.records) - s.unsaved
		saved, err := s.repo.Append(ctx, s.records[i])
		if err != nil {
			return err
		}
		s.records[i] = saved
		s.unsaved--
	}
	return nil
}
