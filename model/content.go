package model

import "time"

type Playlist struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"uniqueIndex:idx_playlist_user_external;not null"`
	ExternalID  string `gorm:"uniqueIndex:idx_playlist_user_external;not null"`
	Name        string
	Description string
	URL         string
	Thumbnail   string
	ImportedAt  time.Time `gorm:"index"`
	UpdatedAt   time.Time

	Videos []Video `gorm:"foreignKey:PlaylistID"`
}

type Video struct {
	ID            string `gorm:"primaryKey"`
	UserID        string `gorm:"uniqueIndex:idx_video_user_external;not null"`
	ExternalID    string `gorm:"uniqueIndex:idx_video_user_external;not null"`
	Name          string
	URL           string
	Description   string
	Thumbnail     string
	Duration      string
	PlaylistID    *string `gorm:"index"`
	Position      *int
	ImportedAt    time.Time `gorm:"index"`
	WatchProgress float64
	IsCompleted   bool `gorm:"index"`
	UpdatedAt     time.Time
}

func (v Video) Standalone() bool {
	return v.PlaylistID == nil
}
