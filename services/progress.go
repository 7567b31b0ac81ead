package services

import (
	"context"
	"math"

	appcontext "github.com/alphabatem/common/context"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProgressService tracks watch progress and completion, awarding XP once per video.
type ProgressService struct {
	appcontext.DefaultService

	db       *gorm.DB
	content  *repositories.ContentRepository
	users    *repositories.UserRepository
	activity *ActivityService
}

const PROGRESS_SVC = "progress_svc"

func (svc ProgressService) Id() string {
	return PROGRESS_SVC
}

func (svc *ProgressService) Start() error {
	svc.setup(
		svc.Service(DATABASE_SVC).(*DatabaseService).Db(),
		svc.Service(ACTIVITY_SVC).(*ActivityService),
	)
	return nil
}

func (svc *ProgressService) setup(db *gorm.DB, activity *ActivityService) {
	svc.db = db
	svc.content = repositories.NewContentRepository(db)
	svc.users = repositories.NewUserRepository(db)
	svc.activity = activity
}

// MarkCompleted completes an owned video. A video that is already complete
// yields the already_completed outcome and earns nothing.
func (svc *ProgressService) MarkCompleted(ctx context.Context, userID, videoExternalID string) (*dto.CompletionResponse, error) {
	var resp *dto.CompletionResponse

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		var err error
		resp, err = svc.markCompleted(ctx, tx, userID, videoExternalID)
		return err
	})
	if err != nil {
		return nil, handleDBError(err)
	}

	if resp.XPAwarded > 0 {
		videoCompletionsTotal.Inc()
		xpAwardedTotal.WithLabelValues(shared.ActivityVideoCompleted).Add(float64(resp.XPAwarded))
	}
	return resp, nil
}

func (svc *ProgressService) markCompleted(ctx context.Context, tx *gorm.DB, userID, videoExternalID string) (*dto.CompletionResponse, error) {
	video, err := svc.content.GetVideo(ctx, tx, userID, videoExternalID)
	if err != nil {
		return nil, err
	}

	rows, err := svc.content.MarkVideoCompleted(ctx, tx, userID, video.ID)
	if err != nil {
		return nil, err
	}

	if rows == 0 {
		user, err := svc.users.GetByID(ctx, tx, userID)
		if err != nil {
			return nil, err
		}
		return &dto.CompletionResponse{
			VideoID: video.ExternalID,
			Status:  dto.CompletionStatusAlreadyCompleted,
			XP:      user.XP,
			Level:   user.Level,
		}, nil
	}

	user, err := svc.users.AddXP(ctx, tx, userID, shared.XPVideoCompleted)
	if err != nil {
		return nil, err
	}

	if err := svc.activity.Record(ctx, tx, userID, shared.ActivityVideoCompleted, map[string]interface{}{
		"id":        video.ExternalID,
		"title":     video.Name,
		"xp_earned": shared.XPVideoCompleted,
	}); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":  userID,
		"video_id": video.ExternalID,
		"xp":       user.XP,
		"level":    user.Level,
	}).Info("Video completed")

	return &dto.CompletionResponse{
		VideoID:   video.ExternalID,
		Status:    dto.CompletionStatusCompleted,
		XPAwarded: shared.XPVideoCompleted,
		XP:        user.XP,
		Level:     user.Level,
	}, nil
}

// UpdateWatchProgress stores a clamped percentage. Completed videos keep their
// state and reaching 100 completes the video.
func (svc *ProgressService) UpdateWatchProgress(ctx context.Context, userID, videoExternalID string, progress float64) (*dto.ProgressResponse, error) {
	if math.IsNaN(progress) {
		return nil, shared.NewBadRequestError(nil, "watch_progress must be a number")
	}
	progress = math.Max(0, math.Min(100, progress))

	if progress >= 100 {
		completion, err := svc.MarkCompleted(ctx, userID, videoExternalID)
		if err != nil {
			return nil, err
		}
		return &dto.ProgressResponse{
			VideoID:       completion.VideoID,
			WatchProgress: 100,
			IsCompleted:   true,
			Completion:    completion,
		}, nil
	}

	video, err := svc.content.GetVideo(ctx, nil, userID, videoExternalID)
	if err != nil {
		return nil, handleDBError(err)
	}
	if video.IsCompleted {
		return &dto.ProgressResponse{
			VideoID:       video.ExternalID,
			WatchProgress: video.WatchProgress,
			IsCompleted:   true,
		}, nil
	}

	if err := svc.content.UpdateWatchProgress(ctx, nil, userID, video.ID, progress); err != nil {
		return nil, handleDBError(err)
	}

	return &dto.ProgressResponse{
		VideoID:       video.ExternalID,
		WatchProgress: progress,
	}, nil
}

// ListContinueWatching returns the most recently imported unfinished videos.
func (svc *ProgressService) ListContinueWatching(ctx context.Context, userID string) ([]dto.VideoResponse, error) {
	videos, err := svc.content.ListIncompleteVideos(ctx, userID, shared.RecentItemsLimit)
	if err != nil {
		return nil, handleDBError(err)
	}
	return toVideoResponses(videos), nil
}

// ListCompleted returns recent completed standalone videos and every fully
// completed playlist.
func (svc *ProgressService) ListCompleted(ctx context.Context, userID string) (*dto.CompletedResponse, error) {
	videos, err := svc.content.ListCompletedStandaloneVideos(ctx, userID, shared.RecentItemsLimit)
	if err != nil {
		return nil, handleDBError(err)
	}

	playlists, err := svc.content.ListCompletedPlaylists(ctx, userID)
	if err != nil {
		return nil, handleDBError(err)
	}

	return &dto.CompletedResponse{
		Videos:    toVideoResponses(videos),
		Playlists: toPlaylistResponses(completePlaylists(playlists)),
	}, nil
}

// completePlaylists drops playlists with no videos or any unfinished one.
func completePlaylists(playlists []model.Playlist) []model.Playlist {
	out := playlists[:0]
	for _, p := range playlists {
		if len(p.Videos) == 0 {
			continue
		}
		done := true
		for _, v := range p.Videos {
			if !v.IsCompleted {
				done = false
				break
			}
		}
		if done {
			out = append(out, p)
		}
	}
	return out
}
