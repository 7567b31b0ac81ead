package repositories

import (
	"context"
	"time"

	"github.com/learnproof/learnproof-api/model"
	"gorm.io/gorm"
)

type ActivityRepository struct {
	BaseRepository
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *ActivityRepository) Create(ctx context.Context, tx *gorm.DB, entry *model.UserActivityLog) error {
	if entry.ID == "" {
		entry.ID = newID()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	return r.conn(ctx, tx).Create(entry).Error
}

// ListTimestamps returns activity times in [from, to).
func (r *ActivityRepository) ListTimestamps(ctx context.Context, userID string, from, to time.Time) ([]time.Time, error) {
	var timestamps []time.Time
	err := r.conn(ctx, nil).Model(&model.UserActivityLog{}).
		Where("user_id = ? AND timestamp >= ? AND timestamp < ?", userID, from, to).
		Order("timestamp ASC").
		Pluck("timestamp", &timestamps).Error
	return timestamps, err
}
