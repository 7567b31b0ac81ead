package dto

import "time"

type StartQuizRequest struct {
	TargetType string `json:"target_type" validate:"required"`
	TargetID   string `json:"target_id" validate:"required"`
}

func (r StartQuizRequest) Validate() error {
	return GetValidator().Struct(r)
}

// QuestionView is a question without its answer key.
type QuestionView struct {
	Index    int      `json:"index"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

type QuizStartResponse struct {
	QuizID           string         `json:"quiz_id"`
	TargetType       string         `json:"target_type"`
	TargetID         string         `json:"target_id"`
	Title            string         `json:"title"`
	Questions        []QuestionView `json:"questions"`
	TimeLimitMinutes int            `json:"time_limit_minutes"`
	StartedAt        time.Time      `json:"started_at"`
}

type SubmitQuizRequest struct {
	QuizID  string   `json:"quiz_id" validate:"required"`
	Answers []string `json:"answers"`
}

func (r SubmitQuizRequest) Validate() error {
	return GetValidator().Struct(r)
}

type QuizResultResponse struct {
	QuizID         string  `json:"quiz_id"`
	Score          float64 `json:"score"`
	Passed         bool    `json:"passed"`
	Correct        int     `json:"correct"`
	Total          int     `json:"total"`
	XPAwarded      int     `json:"xp_awarded"`
	CertificateID  *string `json:"certificate_id"`
	CertificateURL *string `json:"certificate_url"`
}

type QuizTarget struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Thumbnail  string `json:"thumbnail,omitempty"`
	VideoCount int    `json:"video_count,omitempty"`
}

type QuizTargetsResponse struct {
	Videos    []QuizTarget `json:"videos"`
	Playlists []QuizTarget `json:"playlists"`
}

type CertificateResponse struct {
	CertificateID string    `json:"certificate_id"`
	TargetType    string    `json:"target_type,omitempty"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Score         float64   `json:"score"`
	IssuedAt      time.Time `json:"issued_at"`
	DownloadURL   string    `json:"download_url"`
}

// CertificateDownload is either a presigned object URL or the rendered PNG.
type CertificateDownload struct {
	RedirectURL string
	PNG         []byte
	Filename    string
}
