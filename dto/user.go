package dto

import "time"

type UserProfileResponse struct {
	ID            string    `json:"id"`
	UID           string    `json:"uid"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	ProfilePic    string    `json:"profile_pic"`
	XP            int       `json:"xp"`
	Level         int       `json:"level"`
	XPToNextLevel int       `json:"xp_to_next_level"`
	StreakCount   int       `json:"streak_count"`
	JoinedAt      time.Time `json:"joined_at"`
}

type ActivityDay struct {
	Date          string `json:"date"`
	ActivityCount int    `json:"activity_count"`
}

type ActivityQuery struct {
	Days int `query:"days" validate:"omitempty,min=1,max=90"`
}

func (q ActivityQuery) Validate() error {
	return GetValidator().Struct(q)
}

type LeaderboardQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

func (q LeaderboardQuery) Validate() error {
	return GetValidator().Struct(q)
}

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	ProfilePic string `json:"profile_pic"`
	XP         int    `json:"xp"`
	Level      int    `json:"level"`
}

type LeaderboardResponse struct {
	Entries     []LeaderboardEntry `json:"entries"`
	CurrentUser *LeaderboardEntry  `json:"current_user"`
}
