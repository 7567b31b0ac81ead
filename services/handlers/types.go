package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type AuthServiceInterface interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	RequiredAuth() fiber.Handler
}

type UserServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*dto.UserProfileResponse, error)
}

type LeaderboardServiceInterface interface {
	Leaderboard(ctx context.Context, userID string, limit int) (*dto.LeaderboardResponse, error)
}

type ActivityServiceInterface interface {
	Graph(ctx context.Context, userID string, days int) ([]dto.ActivityDay, error)
}

type ContentServiceInterface interface {
	Import(ctx context.Context, userID, rawURL string) (*dto.ContentMetadata, error)
	Save(ctx context.Context, userID string, meta dto.ContentMetadata) (*dto.SaveContentResponse, error)
	ListMyLearnings(ctx context.Context, userID string, query dto.MyLearningsQuery) (*dto.MyLearningsResponse, error)
	GetClassroom(ctx context.Context, userID, videoExternalID string) (*dto.ClassroomResponse, error)
	DeleteVideo(ctx context.Context, userID, videoExternalID string) (*dto.DeleteContentResponse, error)
	DeletePlaylist(ctx context.Context, userID, playlistExternalID string) (*dto.DeleteContentResponse, error)
}

type ProgressServiceInterface interface {
	MarkCompleted(ctx context.Context, userID, videoExternalID string) (*dto.CompletionResponse, error)
	UpdateWatchProgress(ctx context.Context, userID, videoExternalID string, progress float64) (*dto.ProgressResponse, error)
	ListContinueWatching(ctx context.Context, userID string) ([]dto.VideoResponse, error)
	ListCompleted(ctx context.Context, userID string) (*dto.CompletedResponse, error)
}

type QuizServiceInterface interface {
	StartQuiz(ctx context.Context, userID, targetType, targetID string) (*dto.QuizStartResponse, error)
	Submit(ctx context.Context, userID, quizID string, answers []string) (*dto.QuizResultResponse, error)
	ListTargets(ctx context.Context, userID string) (*dto.QuizTargetsResponse, error)
}

type CertificateServiceInterface interface {
	List(ctx context.Context, userID string) ([]dto.CertificateResponse, error)
	Download(ctx context.Context, certificateID string) (*dto.CertificateDownload, error)
}

func currentUserID(c *fiber.Ctx) string {
	userID, _ := c.Locals(shared.UserID).(string)
	return userID
}
