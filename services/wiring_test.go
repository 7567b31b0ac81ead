package services

import (
	"testing"

	"github.com/learnproof/learnproof-api/services/handlers"
	"github.com/stretchr/testify/assert"
)

var (
	_ handlers.AuthServiceInterface        = (*AuthService)(nil)
	_ handlers.UserServiceInterface        = (*UserService)(nil)
	_ handlers.LeaderboardServiceInterface = (*UserService)(nil)
	_ handlers.ActivityServiceInterface    = (*ActivityService)(nil)
	_ handlers.ContentServiceInterface     = (*ContentService)(nil)
	_ handlers.ProgressServiceInterface    = (*ProgressService)(nil)
	_ handlers.QuizServiceInterface        = (*QuizService)(nil)
	_ handlers.CertificateServiceInterface = (*CertificateService)(nil)
)

type identified interface {
	Id() string
}

func TestServiceIdentifiers(t *testing.T) {
	cases := map[string]identified{
		DATABASE_SVC:       &DatabaseService{},
		REDIS_SVC:          &RedisService{},
		MINIO_SVC:          &MinIOService{},
		MONITORING_SVC:     &MonitoringService{},
		EMAIL_SVC:          &EmailService{},
		IDENTITY_SVC:       &FirebaseIdentityService{},
		YOUTUBE_SVC:        &YouTubeService{},
		QUIZ_GENERATOR_SVC: &QuizGeneratorService{},
		ACTIVITY_SVC:       &ActivityService{},
		USER_SVC:           &UserService{},
		CONTENT_SVC:        &ContentService{},
		PROGRESS_SVC:       &ProgressService{},
		QUIZ_SVC:           &QuizService{},
		CERTIFICATE_SVC:    &CertificateService{},
		RATE_LIMIT_SVC:     &RateLimitService{},
		AUTH_SVC:           &AuthService{},
		HTTP_SVC:           &HttpService{},
	}

	seen := map[string]bool{}
	for want, svc := range cases {
		got := svc.Id()
		assert.Equal(t, want, got)
		assert.False(t, seen[got], "duplicate service id %s", got)
		seen[got] = true
	}
}
