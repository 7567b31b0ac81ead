package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/learnproof/learnproof-api/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContentRepository owns imported videos and playlists. Every query is scoped by user.
type ContentRepository struct {
	BaseRepository
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func orderedVideos(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC").Order("imported_at ASC")
}

func searchPattern(search string) string {
	return "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
}

// ==================== VIDEOS ====================

func (r *ContentRepository) GetVideo(ctx context.Context, tx *gorm.DB, userID, externalID string) (*model.Video, error) {
	var video model.Video
	if err := r.conn(ctx, tx).Where("user_id = ? AND external_id = ?", userID, externalID).First(&video).Error; err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *ContentRepository) CreateVideo(ctx context.Context, tx *gorm.DB, video *model.Video) error {
	if video.ID == "" {
		video.ID = newID()
	}
	now := time.Now()
	if video.ImportedAt.IsZero() {
		video.ImportedAt = now
	}
	video.UpdatedAt = now

	return r.conn(ctx, tx).Create(video).Error
}

// UpsertPlaylistVideos inserts each video or, when the user already owns it,
// moves it into the playlist and resets its progress.
func (r *ContentRepository) UpsertPlaylistVideos(ctx context.Context, tx *gorm.DB, videos []model.Video) error {
	if len(videos) == 0 {
		return nil
	}

	now := time.Now()
	for i := range videos {
		if videos[i].ID == "" {
			videos[i].ID = newID()
		}
		videos[i].ImportedAt = now
		videos[i].UpdatedAt = now
		videos[i].WatchProgress = 0
		videos[i].IsCompleted = false
	}

	return r.conn(ctx, tx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name", "url", "description", "thumbnail", "duration",
			"playlist_id", "position", "watch_progress", "is_completed", "updated_at",
		}),
	}).CreateInBatches(videos, 100).Error
}

// MarkVideoCompleted flips the completion flag only if it is still unset.
func (r *ContentRepository) MarkVideoCompleted(ctx context.Context, tx *gorm.DB, userID, videoID string) (int64, error) {
	res := r.conn(ctx, tx).Model(&model.Video{}).
		Where("id = ? AND user_id = ? AND is_completed = ?", videoID, userID, false).
		Updates(map[string]interface{}{
			"is_completed":   true,
			"watch_progress": 100,
			"updated_at":     time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *ContentRepository) UpdateWatchProgress(ctx context.Context, tx *gorm.DB, userID, videoID string, progress float64) error {
	return r.conn(ctx, tx).Model(&model.Video{}).
		Where("id = ? AND user_id = ? AND is_completed = ?", videoID, userID, false).
		Updates(map[string]interface{}{
			"watch_progress": progress,
			"updated_at":     time.Now(),
		}).Error
}

func (r *ContentRepository) ListIncompleteVideos(ctx context.Context, userID string, limit int) ([]model.Video, error) {
	var videos []model.Video
	err := r.conn(ctx, nil).
		Where("user_id = ? AND is_completed = ?", userID, false).
		Order("imported_at DESC").
		Limit(limit).
		Find(&videos).Error
	return videos, err
}

func (r *ContentRepository) ListCompletedStandaloneVideos(ctx context.Context, userID string, limit int) ([]model.Video, error) {
	var videos []model.Video
	err := r.conn(ctx, nil).
		Where("user_id = ? AND is_completed = ? AND playlist_id IS NULL", userID, true).
		Order("imported_at DESC").
		Limit(limit).
		Find(&videos).Error
	return videos, err
}

// ListStandaloneVideos pages through videos that do not belong to a playlist.
func (r *ContentRepository) ListStandaloneVideos(ctx context.Context, userID string, page, pageSize int, search string) ([]model.Video, int64, error) {
	query := r.conn(ctx, nil).Model(&model.Video{}).
		Where("user_id = ? AND playlist_id IS NULL", userID)
	if strings.TrimSpace(search) != "" {
		pattern := searchPattern(search)
		query = query.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var videos []model.Video
	err := query.
		Order("imported_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&videos).Error
	return videos, total, err
}

func (r *ContentRepository) ListStandaloneVideosAll(ctx context.Context, userID string) ([]model.Video, error) {
	var videos []model.Video
	err := r.conn(ctx, nil).
		Where("user_id = ? AND playlist_id IS NULL", userID).
		Order("imported_at DESC").
		Find(&videos).Error
	return videos, err
}

func (r *ContentRepository) GetVideosByIDs(ctx context.Context, userID string, ids []string) ([]model.Video, error) {
	var videos []model.Video
	if len(ids) == 0 {
		return videos, nil
	}
	err := r.conn(ctx, nil).Where("user_id = ? AND id IN ?", userID, ids).Find(&videos).Error
	return videos, err
}

func (r *ContentRepository) DeleteVideo(ctx context.Context, tx *gorm.DB, userID, videoID string) error {
	return r.conn(ctx, tx).Where("id = ? AND user_id = ?", videoID, userID).Delete(&model.Video{}).Error
}

// ==================== PLAYLISTS ====================

func (r *ContentRepository) GetPlaylist(ctx context.Context, tx *gorm.DB, userID, externalID string) (*model.Playlist, error) {
	var playlist model.Playlist
	if err := r.conn(ctx, tx).Where("user_id = ? AND external_id = ?", userID, externalID).First(&playlist).Error; err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (r *ContentRepository) GetPlaylistWithVideos(ctx context.Context, tx *gorm.DB, userID, playlistID string) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.conn(ctx, tx).
		Preload("Videos", orderedVideos).
		Where("id = ? AND user_id = ?", playlistID, userID).
		First(&playlist).Error
	if err != nil {
		return nil, err
	}
	return &playlist, nil
}

func (r *ContentRepository) CreatePlaylist(ctx context.Context, tx *gorm.DB, playlist *model.Playlist) error {
	if playlist.ID == "" {
		playlist.ID = newID()
	}
	now := time.Now()
	if playlist.ImportedAt.IsZero() {
		playlist.ImportedAt = now
	}
	playlist.UpdatedAt = now

	return r.conn(ctx, tx).Omit("Videos").Create(playlist).Error
}

func (r *ContentRepository) CountPlaylistVideos(ctx context.Context, tx *gorm.DB, playlistID string) (int64, error) {
	var count int64
	err := r.conn(ctx, tx).Model(&model.Video{}).Where("playlist_id = ?", playlistID).Count(&count).Error
	return count, err
}

func (r *ContentRepository) ListPlaylists(ctx context.Context, userID, search string) ([]model.Playlist, error) {
	query := r.conn(ctx, nil).Preload("Videos", orderedVideos).Where("user_id = ?", userID)
	if strings.TrimSpace(search) != "" {
		query = query.Where("LOWER(name) LIKE ?", searchPattern(search))
	}

	var playlists []model.Playlist
	err := query.Order("imported_at DESC").Find(&playlists).Error
	return playlists, err
}

// ListCompletedPlaylists returns playlists that have videos and no incomplete ones.
func (r *ContentRepository) ListCompletedPlaylists(ctx context.Context, userID string) ([]model.Playlist, error) {
	var playlists []model.Playlist
	err := r.conn(ctx, nil).
		Preload("Videos", orderedVideos).
		Where("user_id = ?", userID).
		Where("EXISTS (SELECT 1 FROM videos WHERE videos.playlist_id = playlists.id)").
		Where("NOT EXISTS (SELECT 1 FROM videos WHERE videos.playlist_id = playlists.id AND videos.is_completed = ?)", false).
		Order("imported_at DESC").
		Find(&playlists).Error
	return playlists, err
}

func (r *ContentRepository) GetPlaylistsByIDs(ctx context.Context, userID string, ids []string) ([]model.Playlist, error) {
	var playlists []model.Playlist
	if len(ids) == 0 {
		return playlists, nil
	}
	err := r.conn(ctx, nil).Where("user_id = ? AND id IN ?", userID, ids).Find(&playlists).Error
	return playlists, err
}

// DeletePlaylist removes the playlist and every member video, returning the
// ids of the removed videos.
func (r *ContentRepository) DeletePlaylist(ctx context.Context, tx *gorm.DB, userID, playlistID string) ([]string, error) {
	db := r.conn(ctx, tx)

	var videoIDs []string
	if err := db.Model(&model.Video{}).
		Where("playlist_id = ? AND user_id = ?", playlistID, userID).
		Pluck("id", &videoIDs).Error; err != nil {
		return nil, err
	}

	if len(videoIDs) > 0 {
		if err := db.Where("id IN ?", videoIDs).Delete(&model.Video{}).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Where("id = ? AND user_id = ?", playlistID, userID).Delete(&model.Playlist{}).Error; err != nil {
		return nil, err
	}
	return videoIDs, nil
}
