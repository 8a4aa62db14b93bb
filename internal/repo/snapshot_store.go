package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tdash/internal/models"
)

type SnapshotStore struct{ db *gorm.DB }

func NewSnapshotStore(db *gorm.DB) *SnapshotStore { return &SnapshotStore{db: db} }

// Put — upsert последнего удачного payload-а секции дашборда.
func (s *SnapshotStore) Put(ctx context.Context, key string, payload []byte) error {
	snap := models.DashboardSnapshot{
		Key:       key,
		Payload:   datatypes.JSON(payload),
		UpdatedAt: time.Now().UTC(),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
		}).
		Create(&snap).Error
}

// Get возвращает payload и момент снятия; (nil, zero, nil) — снапшота нет.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, time.Time, error) {
	var snap models.DashboardSnapshot
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, err
	}
	return []byte(snap.Payload), snap.UpdatedAt, nil
}
