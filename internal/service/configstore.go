package service

import (
	"context"

	"sensor_node/internal/logger"
	"sensor_node/internal/models"
	"sensor_node/internal/repository"
)

// ConfigStore holds the active thresholds and persists changes lazily.
type ConfigStore struct {
	repo  repository.ConfigRepo
	log   *logger.Logger
	t     models.Thresholds
	dirty bool
}

// NewConfigStore starts from defaults. A nil repo keeps them in memory only.
func NewConfigStore(repo repository.ConfigRepo, defaults models.Thresholds, log *logger.Logger) *ConfigStore {
	return &ConfigStore{repo: repo, log: logger.OrNop(log), t: defaults}
}

// Load adopts persisted thresholds when present. Otherwise the defaults are
// kept and marked for write-back.
func (s *ConfigStore) Load(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	t, ok, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		s.dirty = true
		return nil
	}
	if err := t.Validate(); err != nil {
		s.log.Errorw("config_persisted_invalid", "err", err)
		s.dirty = true
		return nil
	}
	s.t = t
	return nil
}

func (s *ConfigStore) Thresholds() models.Thresholds { return s.t }

// Set validates and adopts t; it is written back on the next flush.
func (s *ConfigStore) Set(t models.Thresholds) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if t != s.t {
		s.t = t
		s.dirty = true
	}
	return nil
}

// Dirty reports whether a write-back is pending.
func (s *ConfigStore) Dirty() bool { return s.dirty }

func (s *ConfigStore) FlushPendingWrites(ctx context.Context) error {
	if !s.dirty {
		return nil
	}
	if s.repo != nil {
		if err := s.repo.Save(ctx, s.t); err != nil {
			return err
		}
	}
	s.dirty = false
	return nil
}
