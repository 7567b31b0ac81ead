package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type TargetKind string

const (
	TargetVideo    TargetKind = "video"
	TargetPlaylist TargetKind = "playlist"
)

// Target names exactly one quizzable item by its internal id.
type Target struct {
	Kind TargetKind
	ID   string
}

func ParseTargetKind(s string) (TargetKind, error) {
	switch TargetKind(s) {
	case TargetVideo, TargetPlaylist:
		return TargetKind(s), nil
	}
	return "", fmt.Errorf("unknown target type %q", s)
}

type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   string   `json:"answer"`
}

type Quiz struct {
	ID          string  `gorm:"primaryKey"`
	UserID      string  `gorm:"index;not null"`
	VideoID     *string `gorm:"index"`
	PlaylistID  *string `gorm:"index"`
	Questions   datatypes.JSONType[[]Question]
	Score       *float64
	Passed      *bool
	AttemptedAt time.Time
	GradedAt    *time.Time
}

func NewQuiz(userID string, target Target, questions []Question) (*Quiz, error) {
	if target.ID == "" {
		return nil, fmt.Errorf("quiz target id is required")
	}
	q := &Quiz{
		UserID:    userID,
		Questions: datatypes.NewJSONType(questions),
	}
	switch target.Kind {
	case TargetVideo:
		q.VideoID = &target.ID
	case TargetPlaylist:
		q.PlaylistID = &target.ID
	default:
		return nil, fmt.Errorf("unknown target type %q", target.Kind)
	}
	return q, nil
}

// Target returns the reference the quiz was created for. It reports false
// once the referenced content has been deleted.
func (q Quiz) Target() (Target, bool) {
	switch {
	case q.VideoID != nil:
		return Target{Kind: TargetVideo, ID: *q.VideoID}, true
	case q.PlaylistID != nil:
		return Target{Kind: TargetPlaylist, ID: *q.PlaylistID}, true
	}
	return Target{}, false
}

func (q Quiz) Graded() bool {
	return q.Score != nil
}

type Certificate struct {
	ID            string  `gorm:"primaryKey"`
	CertificateID string  `gorm:"uniqueIndex;not null"`
	UserID        string  `gorm:"index;not null"`
	QuizID        *string `gorm:"index"`
	VideoID       *string `gorm:"index"`
	PlaylistID    *string `gorm:"index"`
	Score         float64
	IssuedAt      time.Time
	DownloadURL   string
}
