package model

import "time"

// UserProfile is the local record for one identity-provider subject.
type UserProfile struct {
	ID             string  `gorm:"primaryKey"`
	UID            string  `gorm:"uniqueIndex;not null"`
	Email          *string `gorm:"uniqueIndex"`
	Name           string
	ProfilePic     string
	XP             int `gorm:"not null"`
	Level          int `gorm:"not null"`
	StreakCount    int `gorm:"not null"`
	LastActivityAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
