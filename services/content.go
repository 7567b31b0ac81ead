package services

import (
	"context"
	"errors"
	"math"
	"strings"

	appcontext "github.com/alphabatem/common/context"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var errDuplicateContent = errors.New("content already saved")

// ContentService imports, lists and deletes a user's videos and playlists.
type ContentService struct {
	appcontext.DefaultService

	db           *gorm.DB
	content      *repositories.ContentRepository
	quizzes      *repositories.QuizRepository
	certificates *repositories.CertificateRepository
	resolver     ContentResolver
	activity     *ActivityService
}

const CONTENT_SVC = "content_svc"

func (svc ContentService) Id() string {
	return CONTENT_SVC
}

func (svc *ContentService) Start() error {
	svc.setup(
		svc.Service(DATABASE_SVC).(*DatabaseService).Db(),
		svc.Service(YOUTUBE_SVC).(*YouTubeService),
		svc.Service(ACTIVITY_SVC).(*ActivityService),
	)
	return nil
}

func (svc *ContentService) setup(db *gorm.DB, resolver ContentResolver, activity *ActivityService) {
	svc.db = db
	svc.content = repositories.NewContentRepository(db)
	svc.quizzes = repositories.NewQuizRepository(db)
	svc.certificates = repositories.NewCertificateRepository(db)
	svc.resolver = resolver
	svc.activity = activity
}

// Import resolves metadata without persisting anything.
func (svc *ContentService) Import(ctx context.Context, userID, rawURL string) (*dto.ContentMetadata, error) {
	meta, err := svc.resolver.Resolve(ctx, rawURL)
	if err != nil {
		contentImportsTotal.WithLabelValues("unknown", "failed").Inc()
		return nil, err
	}
	contentImportsTotal.WithLabelValues(meta.Type, "resolved").Inc()

	log.WithFields(log.Fields{"user_id": userID, "type": meta.Type, "id": meta.ID}).Debug("Resolved content")
	return meta, nil
}

// Save persists resolved metadata. Content the user already owns yields a
// duplicate outcome rather than an error.
func (svc *ContentService) Save(ctx context.Context, userID string, meta dto.ContentMetadata) (*dto.SaveContentResponse, error) {
	var (
		resp *dto.SaveContentResponse
		err  error
	)

	switch meta.Type {
	case shared.ContentTypeVideo:
		resp, err = svc.saveVideo(ctx, userID, meta)
	case shared.ContentTypePlaylist:
		resp, err = svc.savePlaylist(ctx, userID, meta)
	default:
		return nil, shared.NewBadRequestError(nil, "Unsupported content type: "+meta.Type)
	}

	if errors.Is(err, errDuplicateContent) || isDuplicateKey(err) {
		contentImportsTotal.WithLabelValues(meta.Type, "duplicate").Inc()
		return &dto.SaveContentResponse{
			Status:     dto.SaveStatusDuplicate,
			Message:    "Content already saved",
			Type:       meta.Type,
			ExternalID: meta.ID,
		}, nil
	}
	if err != nil {
		return nil, handleDBError(err)
	}

	contentImportsTotal.WithLabelValues(meta.Type, "saved").Inc()
	return resp, nil
}

func (svc *ContentService) saveVideo(ctx context.Context, userID string, meta dto.ContentMetadata) (*dto.SaveContentResponse, error) {
	video := &model.Video{
		UserID:      userID,
		ExternalID:  meta.ID,
		Name:        meta.Title,
		URL:         defaultString(meta.URL, VideoURL(meta.ID)),
		Description: meta.Description,
		Thumbnail:   meta.Thumbnail,
		Duration:    meta.Duration,
	}

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.content.GetVideo(ctx, tx, userID, meta.ID)
		if err == nil {
			return errDuplicateContent
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := svc.content.CreateVideo(ctx, tx, video); err != nil {
			return err
		}
		return svc.activity.Record(ctx, tx, userID, shared.ActivityImport, map[string]interface{}{
			"type":  shared.ContentTypeVideo,
			"id":    meta.ID,
			"title": meta.Title,
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.SaveContentResponse{
		Status:     dto.SaveStatusSaved,
		Message:    "Video saved",
		Type:       shared.ContentTypeVideo,
		ID:         video.ID,
		ExternalID: video.ExternalID,
	}, nil
}

func (svc *ContentService) savePlaylist(ctx context.Context, userID string, meta dto.ContentMetadata) (*dto.SaveContentResponse, error) {
	playlist := &model.Playlist{
		UserID:      userID,
		ExternalID:  meta.ID,
		Name:        meta.Title,
		Description: meta.Description,
		URL:         meta.URL,
		Thumbnail:   meta.Thumbnail,
	}

	var videos []model.Video
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.content.GetPlaylist(ctx, tx, userID, meta.ID)
		if err == nil {
			return errDuplicateContent
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := svc.content.CreatePlaylist(ctx, tx, playlist); err != nil {
			return err
		}

		videos = playlistVideos(userID, playlist.ID, meta.Videos)
		if err := svc.content.UpsertPlaylistVideos(ctx, tx, videos); err != nil {
			return err
		}

		return svc.activity.Record(ctx, tx, userID, shared.ActivityImport, map[string]interface{}{
			"type":        shared.ContentTypePlaylist,
			"id":          meta.ID,
			"title":       meta.Title,
			"video_count": len(videos),
		})
	})
	if err != nil {
		return nil, err
	}

	return &dto.SaveContentResponse{
		Status:     dto.SaveStatusSaved,
		Message:    "Playlist saved",
		Type:       shared.ContentTypePlaylist,
		ID:         playlist.ID,
		ExternalID: playlist.ExternalID,
		VideoCount: len(videos),
	}, nil
}

// playlistVideos maps playlist items to videos, keeping the first occurrence
// of any video listed twice.
func playlistVideos(userID, playlistID string, items []dto.PlaylistItem) []model.Video {
	seen := make(map[string]bool, len(items))
	videos := make([]model.Video, 0, len(items))

	for i, item := range items {
		if item.VideoID == "" || seen[item.VideoID] {
			continue
		}
		seen[item.VideoID] = true

		position := item.Position
		if position <= 0 {
			position = i + 1
		}
		pid := playlistID
		videos = append(videos, model.Video{
			UserID:      userID,
			ExternalID:  item.VideoID,
			Name:        item.Title,
			URL:         defaultString(item.URL, VideoURL(item.VideoID)),
			Description: item.Description,
			Thumbnail:   item.Thumbnail,
			PlaylistID:  &pid,
			Position:    &position,
		})
	}
	return videos
}

func (svc *ContentService) ListMyLearnings(ctx context.Context, userID string, query dto.MyLearningsQuery) (*dto.MyLearningsResponse, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	if page > shared.MaxPage {
		page = shared.MaxPage
	}
	pageSize := query.PageSize
	if pageSize < 1 {
		pageSize = shared.DefaultPageSize
	}
	if pageSize > shared.MaxPageSize {
		pageSize = shared.MaxPageSize
	}

	videos, total, err := svc.content.ListStandaloneVideos(ctx, userID, page, pageSize, query.Search)
	if err != nil {
		return nil, handleDBError(err)
	}

	playlists, err := svc.content.ListPlaylists(ctx, userID, query.Search)
	if err != nil {
		return nil, handleDBError(err)
	}

	return &dto.MyLearningsResponse{
		Videos: dto.PaginatedVideos{
			Count:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: int(math.Ceil(float64(total) / float64(pageSize))),
			Results:    toVideoResponses(videos),
		},
		Playlists: toPlaylistResponses(playlists),
	}, nil
}

// GetClassroom returns the video with its playlist context and logs the visit.
func (svc *ContentService) GetClassroom(ctx context.Context, userID, videoExternalID string) (*dto.ClassroomResponse, error) {
	var resp dto.ClassroomResponse

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		video, err := svc.content.GetVideo(ctx, tx, userID, videoExternalID)
		if err != nil {
			return err
		}
		resp.Video = toVideoResponse(*video)

		if video.PlaylistID != nil {
			playlist, err := svc.content.GetPlaylistWithVideos(ctx, tx, userID, *video.PlaylistID)
			if err != nil {
				return err
			}
			pr := toPlaylistResponse(*playlist)
			resp.Playlist = &pr
		}

		return svc.activity.Record(ctx, tx, userID, shared.ActivityClassroomAccessed, map[string]interface{}{
			"id":    video.ExternalID,
			"title": video.Name,
		})
	})
	if err != nil {
		return nil, handleDBError(err)
	}
	return &resp, nil
}

// DeleteVideo removes an owned video. Quizzes and certificates that pointed
// at it are kept with the reference cleared.
func (svc *ContentService) DeleteVideo(ctx context.Context, userID, videoExternalID string) (*dto.DeleteContentResponse, error) {
	err := svc.db.Transaction(func(tx *gorm.DB) error {
		video, err := svc.content.GetVideo(ctx, tx, userID, videoExternalID)
		if err != nil {
			return err
		}

		ids := []string{video.ID}
		if err := svc.quizzes.DetachContent(ctx, tx, userID, ids, nil); err != nil {
			return err
		}
		if err := svc.certificates.DetachContent(ctx, tx, userID, ids, nil); err != nil {
			return err
		}
		if err := svc.content.DeleteVideo(ctx, tx, userID, video.ID); err != nil {
			return err
		}

		return svc.activity.Record(ctx, tx, userID, shared.ActivityContentDeleted, map[string]interface{}{
			"type":  shared.ContentTypeVideo,
			"id":    video.ExternalID,
			"title": video.Name,
		})
	})
	if err != nil {
		return nil, handleDBError(err)
	}

	return &dto.DeleteContentResponse{
		Type:          shared.ContentTypeVideo,
		ExternalID:    videoExternalID,
		DeletedVideos: 1,
	}, nil
}

// DeletePlaylist removes an owned playlist together with all of its videos.
func (svc *ContentService) DeletePlaylist(ctx context.Context, userID, playlistExternalID string) (*dto.DeleteContentResponse, error) {
	var deleted int64

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		playlist, err := svc.content.GetPlaylist(ctx, tx, userID, playlistExternalID)
		if err != nil {
			return err
		}

		var videoIDs []string
		if err := tx.WithContext(ctx).Model(&model.Video{}).
			Where("playlist_id = ? AND user_id = ?", playlist.ID, userID).
			Pluck("id", &videoIDs).Error; err != nil {
			return err
		}

		if err := svc.quizzes.DetachContent(ctx, tx, userID, videoIDs, []string{playlist.ID}); err != nil {
			return err
		}
		if err := svc.certificates.DetachContent(ctx, tx, userID, videoIDs, []string{playlist.ID}); err != nil {
			return err
		}

		removed, err := svc.content.DeletePlaylist(ctx, tx, userID, playlist.ID)
		if err != nil {
			return err
		}
		deleted = int64(len(removed))

		return svc.activity.Record(ctx, tx, userID, shared.ActivityContentDeleted, map[string]interface{}{
			"type":        shared.ContentTypePlaylist,
			"id":          playlist.ExternalID,
			"title":       playlist.Name,
			"video_count": deleted,
		})
	})
	if err != nil {
		return nil, handleDBError(err)
	}

	return &dto.DeleteContentResponse{
		Type:          shared.ContentTypePlaylist,
		ExternalID:    playlistExternalID,
		DeletedVideos: deleted,
	}, nil
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func toVideoResponse(v model.Video) dto.VideoResponse {
	return dto.VideoResponse{
		ID:            v.ID,
		VideoID:       v.ExternalID,
		Name:          v.Name,
		URL:           v.URL,
		EmbedURL:      EmbedURL(v.ExternalID),
		Description:   v.Description,
		Thumbnail:     v.Thumbnail,
		Duration:      v.Duration,
		PlaylistID:    v.PlaylistID,
		Position:      v.Position,
		ImportedAt:    v.ImportedAt,
		WatchProgress: v.WatchProgress,
		IsCompleted:   v.IsCompleted,
	}
}

func toVideoResponses(videos []model.Video) []dto.VideoResponse {
	out := make([]dto.VideoResponse, 0, len(videos))
	for _, v := range videos {
		out = append(out, toVideoResponse(v))
	}
	return out
}

func toPlaylistResponse(p model.Playlist) dto.PlaylistResponse {
	completed := 0
	for _, v := range p.Videos {
		if v.IsCompleted {
			completed++
		}
	}
	return dto.PlaylistResponse{
		ID:             p.ID,
		PlaylistID:     p.ExternalID,
		Name:           p.Name,
		URL:            p.URL,
		Thumbnail:      p.Thumbnail,
		ImportedAt:     p.ImportedAt,
		VideoCount:     len(p.Videos),
		CompletedCount: completed,
		Videos:         toVideoResponses(p.Videos),
	}
}

func toPlaylistResponses(playlists []model.Playlist) []dto.PlaylistResponse {
	out := make([]dto.PlaylistResponse, 0, len(playlists))
	for _, p := range playlists {
		out = append(out, toPlaylistResponse(p))
	}
	return out
}
