package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnproof/learnproof-api/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const maxXPRetries = 5

var ErrXPContention = errors.New("xp update lost too many races")

// UserRepository handles user-related database operations
type UserRepository struct {
	BaseRepository
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *UserRepository) GetByID(ctx context.Context, tx *gorm.DB, userID string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := r.conn(ctx, tx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByUID(ctx context.Context, tx *gorm.DB, uid string) (*model.UserProfile, error) {
	var user model.UserProfile
	if err := r.conn(ctx, tx).Where("uid = ?", uid).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, tx *gorm.DB, user *model.UserProfile) error {
	if user.ID == "" {
		user.ID = newID()
	}
	if user.Level < 1 {
		user.Level = model.LevelForXP(user.XP)
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	return r.conn(ctx, tx).Create(user).Error
}

// AddXP applies delta through the ledger with a compare-and-swap on the
// current xp value, re-reading and retrying when another writer got there first.
func (r *UserRepository) AddXP(ctx context.Context, tx *gorm.DB, userID string, delta int) (*model.UserProfile, error) {
	for attempt := 1; attempt <= maxXPRetries; attempt++ {
		current, err := r.GetByID(ctx, tx, userID)
		if err != nil {
			return nil, err
		}

		next, err := model.ApplyXP(*current, delta)
		if err != nil {
			return nil, err
		}
		if delta == 0 {
			return &next, nil
		}

		res := r.conn(ctx, tx).Model(&model.UserProfile{}).
			Where("id = ? AND xp = ?", userID, current.XP).
			Updates(map[string]interface{}{
				"xp":         next.XP,
				"level":      next.Level,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &next, nil
		}

		log.WithFields(log.Fields{
			"user_id": userID,
			"attempt": attempt,
		}).Debug("XP update raced, retrying")
	}

	return nil, fmt.Errorf("user %s: %w", userID, ErrXPContention)
}

// TouchActivity advances the daily streak for activity happening at now.
func (r *UserRepository) TouchActivity(ctx context.Context, tx *gorm.DB, userID string, now time.Time) error {
	user, err := r.GetByID(ctx, tx, userID)
	if err != nil {
		return err
	}

	streak := model.NextStreak(user.StreakCount, user.LastActivityAt, now)
	return r.conn(ctx, tx).Model(&model.UserProfile{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"streak_count":     streak,
			"last_activity_at": now,
		}).Error
}

// TopByXP orders by xp, then by who got there first.
func (r *UserRepository) TopByXP(ctx context.Context, tx *gorm.DB, limit int) ([]model.UserProfile, error) {
	var users []model.UserProfile
	err := r.conn(ctx, tx).
		Order("xp DESC").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, err
}

// RankOf returns the 1-based position of user in the TopByXP ordering.
func (r *UserRepository) RankOf(ctx context.Context, tx *gorm.DB, user *model.UserProfile) (int, error) {
	var ahead int64
	err := r.conn(ctx, tx).Model(&model.UserProfile{}).
		Where("xp > ?", user.XP).
		Or("xp = ? AND created_at < ?", user.XP, user.CreatedAt).
		Or("xp = ? AND created_at = ? AND id < ?", user.XP, user.CreatedAt, user.ID).
		Count(&ahead).Error
	if err != nil {
		return 0, err
	}
	return int(ahead) + 1, nil
}
