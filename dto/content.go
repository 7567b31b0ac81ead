package dto

import "time"

type ImportRequest struct {
	URL string `json:"url" validate:"required,url,youtube_url"`
}

func (r ImportRequest) Validate() error {
	return GetValidator().Struct(r)
}

// ContentMetadata is the resolved description of a video or playlist.
type ContentMetadata struct {
	Type        string         `json:"type" validate:"required"`
	ID          string         `json:"id" validate:"required"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Channel     string         `json:"channel,omitempty"`
	PublishedAt string         `json:"published_at,omitempty"`
	Thumbnail   string         `json:"thumbnail"`
	Duration    string         `json:"duration,omitempty"`
	ViewCount   uint64         `json:"view_count,omitempty"`
	LikeCount   uint64         `json:"like_count,omitempty"`
	ItemCount   int64          `json:"item_count,omitempty"`
	URL         string         `json:"url"`
	Videos      []PlaylistItem `json:"videos,omitempty" validate:"dive"`
}

type PlaylistItem struct {
	VideoID     string `json:"video_id" validate:"required"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Position    int    `json:"position"`
	URL         string `json:"url"`
}

type SaveContentRequest struct {
	ContentMetadata
}

func (r SaveContentRequest) Validate() error {
	return GetValidator().Struct(r)
}

const (
	SaveStatusSaved     = "saved"
	SaveStatusDuplicate = "duplicate"
)

type SaveContentResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	ID         string `json:"id"`
	ExternalID string `json:"external_id"`
	VideoCount int    `json:"video_count,omitempty"`
}

type VideoResponse struct {
	ID            string    `json:"id"`
	VideoID       string    `json:"vid"`
	Name          string    `json:"name"`
	URL           string    `json:"url"`
	EmbedURL      string    `json:"embed_url"`
	Description   string    `json:"description"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Duration      string    `json:"duration,omitempty"`
	PlaylistID    *string   `json:"playlist_id"`
	Position      *int      `json:"position,omitempty"`
	ImportedAt    time.Time `json:"imported_at"`
	WatchProgress float64   `json:"watch_progress"`
	IsCompleted   bool      `json:"is_completed"`
}

type PlaylistResponse struct {
	ID             string          `json:"id"`
	PlaylistID     string          `json:"pid"`
	Name           string          `json:"name"`
	URL            string          `json:"url"`
	Thumbnail      string          `json:"thumbnail,omitempty"`
	ImportedAt     time.Time       `json:"imported_at"`
	VideoCount     int             `json:"video_count"`
	CompletedCount int             `json:"completed_count"`
	Videos         []VideoResponse `json:"videos"`
}

type CompletedResponse struct {
	Videos    []VideoResponse    `json:"videos"`
	Playlists []PlaylistResponse `json:"playlists"`
}

type PaginatedVideos struct {
	Count      int64           `json:"count"`
	Page       int             `json:"page"`
	PageSize   int             `json:"page_size"`
	TotalPages int             `json:"total_pages"`
	Results    []VideoResponse `json:"results"`
}

type MyLearningsQuery struct {
	Page     int    `query:"page" validate:"omitempty,min=1,max=10000"`
	PageSize int    `query:"page_size" validate:"omitempty,min=1,max=50"`
	Search   string `query:"search" validate:"max=200"`
}

func (q MyLearningsQuery) Validate() error {
	return GetValidator().Struct(q)
}

type MyLearningsResponse struct {
	Videos    PaginatedVideos    `json:"videos"`
	Playlists []PlaylistResponse `json:"playlists"`
}

type ClassroomResponse struct {
	Video    VideoResponse     `json:"video"`
	Playlist *PlaylistResponse `json:"playlist"`
}

const (
	CompletionStatusCompleted        = "completed"
	CompletionStatusAlreadyCompleted = "already_completed"
)

type CompletionResponse struct {
	VideoID   string `json:"vid"`
	Status    string `json:"status"`
	XPAwarded int    `json:"xp_awarded"`
	XP        int    `json:"xp"`
	Level     int    `json:"level"`
}

type UpdateProgressRequest struct {
	Progress *float64 `json:"watch_progress" validate:"required"`
}

func (r UpdateProgressRequest) Validate() error {
	return GetValidator().Struct(r)
}

type ProgressResponse struct {
	VideoID       string              `json:"vid"`
	WatchProgress float64             `json:"watch_progress"`
	IsCompleted   bool                `json:"is_completed"`
	Completion    *CompletionResponse `json:"completion,omitempty"`
}

type DeleteContentResponse struct {
	Type          string `json:"type"`
	ExternalID    string `json:"external_id"`
	DeletedVideos int64  `json:"deleted_videos"`
}
