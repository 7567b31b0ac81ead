package model

import (
	"time"

	"gorm.io/datatypes"
)

// UserActivityLog is append-only.
type UserActivityLog struct {
	ID           string `gorm:"primaryKey"`
	UserID       string `gorm:"index:idx_activity_user_time;not null"`
	ActivityType string `gorm:"not null"`
	Details      datatypes.JSON
	Timestamp    time.Time `gorm:"index:idx_activity_user_time"`
}
