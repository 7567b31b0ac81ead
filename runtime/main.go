package main

import (
	"os"
	"strings"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/learnproof/learnproof-api/services"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sirupsen/logrus"
)

// @title LearnProof API
// @version 1.0
// @description Track learning from YouTube videos and playlists with quizzes, XP and certificates.
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("No .env file loaded, using process environment")
	}

	configureLogging(os.Getenv("LOG_LEVEL"))

	ctx, err := context.NewCtx(
		&services.DatabaseService{},
		&services.RedisService{},
		&services.MinIOService{},
		&services.MonitoringService{},
		&services.EmailService{},

		&services.FirebaseIdentityService{},
		&services.YouTubeService{},
		&services.QuizGeneratorService{},

		&services.ActivityService{},
		&services.UserService{},
		&services.ContentService{},
		&services.ProgressService{},
		&services.QuizService{},
		&services.CertificateService{},

		&services.RateLimitService{},
		&services.AuthService{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure services")
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err).Msg("Service exited")
		return
	}
}

func configureLogging(level string) {
	zerologLevel, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		zerologLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(zerologLevel)

	logrusLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrusLevel = logrus.InfoLevel
	}
	logrus.SetLevel(logrusLevel)
	logrus.SetFormatter(&logrus.JSONFormatter{})
}
