package services

import (
	"fmt"
	"os"
	"strconv"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	docs "github.com/learnproof/learnproof-api/docs"
	"github.com/learnproof/learnproof-api/services/handlers"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
)

type HttpService struct {
	appcontext.DefaultService

	authSvc        *AuthService
	userSvc        *UserService
	activitySvc    *ActivityService
	contentSvc     *ContentService
	progressSvc    *ProgressService
	quizSvc        *QuizService
	certificateSvc *CertificateService
	rateLimitSvc   *RateLimitService
	monitoringSvc  *MonitoringService

	port int
	app  *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *appcontext.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.authSvc = svc.Service(AUTH_SVC).(*AuthService)
	svc.userSvc = svc.Service(USER_SVC).(*UserService)
	svc.activitySvc = svc.Service(ACTIVITY_SVC).(*ActivityService)
	svc.contentSvc = svc.Service(CONTENT_SVC).(*ContentService)
	svc.progressSvc = svc.Service(PROGRESS_SVC).(*ProgressService)
	svc.quizSvc = svc.Service(QUIZ_SVC).(*QuizService)
	svc.certificateSvc = svc.Service(CERTIFICATE_SVC).(*CertificateService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	if m, ok := svc.Service(MONITORING_SVC).(*MonitoringService); ok {
		svc.monitoringSvc = m
	}

	svc.app = svc.newApp()

	log.WithField("port", svc.port).Info("HTTP server starting")
	return svc.app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.app != nil {
		_ = svc.app.ShutdownWithTimeout(10 * time.Second)
	}
}

func (svc *HttpService) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "LearnProof API",
		JSONEncoder:  shared.JSONMarshal,
		JSONDecoder:  shared.JSONUnmarshal,
		ErrorHandler: shared.ErrorHandler,
		BodyLimit:    2 * 1024 * 1024,
	})

	docs.SwaggerInfo.BasePath = ""
	app.Use(recover.New())

	if os.Getenv("LOG_LEVEL") == "TRACE" {
		app.Use(logger.New())
	}
	if svc.monitoringSvc != nil {
		app.Use(MonitoringMiddleware(svc.monitoringSvc))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: envOr("CORS_ALLOW_ORIGINS", "*"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	app.Get("/ping", svc.ping)
	app.Get("/swagger/*", swagger.HandlerDefault)

	v1 := app.Group("/api/v1", svc.rateLimitSvc.IPRateLimit())
	v1.Get("/ping", svc.ping)

	svc.registerRoutes(v1)

	app.Use(func(c *fiber.Ctx) error {
		return shared.NewNotFoundError(nil, "Page not found")
	})

	return app
}

func (svc *HttpService) registerRoutes(v1 fiber.Router) {
	authHandler := handlers.NewAuthHandler(svc.authSvc)
	userHandler := handlers.NewUserHandler(svc.userSvc, svc.activitySvc)
	contentHandler := handlers.NewContentHandler(svc.contentSvc)
	learningHandler := handlers.NewLearningHandler(svc.progressSvc)
	quizHandler := handlers.NewQuizHandler(svc.quizSvc)
	certificateHandler := handlers.NewCertificateHandler(svc.certificateSvc)
	leaderboardHandler := handlers.NewLeaderboardHandler(svc.userSvc)

	requireAuth := svc.authSvc.RequiredAuth()

	v1.Post("/auth/login", svc.rateLimitSvc.RateLimit(RateLimitLogin), authHandler.Login)

	// Unauthenticated: the certificate id is an unguessable UUID.
	v1.Get("/certificates/:certificateId/download", certificateHandler.Download)

	content := v1.Group("/content", requireAuth)
	content.Post("/import", svc.rateLimitSvc.RateLimit(RateLimitImport), contentHandler.Import)
	content.Post("/save", contentHandler.Save)

	learning := v1.Group("/learning", requireAuth)
	learning.Get("/continue-watching", learningHandler.ContinueWatching)
	learning.Get("/completed", learningHandler.Completed)
	learning.Get("/my-learnings", contentHandler.ListMyLearnings)

	user := v1.Group("/user", requireAuth)
	user.Get("/profile", userHandler.GetUserProfile)
	user.Get("/activity", userHandler.GetActivityGraph)

	v1.Get("/certificates", requireAuth, certificateHandler.List)
	v1.Get("/leaderboard", requireAuth, leaderboardHandler.GetLeaderboard)

	quiz := v1.Group("/quiz", requireAuth)
	quiz.Get("/targets", quizHandler.ListTargets)
	quiz.Post("/start", svc.rateLimitSvc.RateLimit(RateLimitQuizStart), quizHandler.Start)
	quiz.Post("/submit", quizHandler.Submit)

	v1.Get("/classroom/:videoId", requireAuth, contentHandler.GetClassroom)

	videos := v1.Group("/videos", requireAuth)
	videos.Post("/:videoId/complete", learningHandler.MarkCompleted)
	videos.Put("/:videoId/progress", learningHandler.UpdateProgress)
	videos.Delete("/:videoId", contentHandler.DeleteVideo)

	v1.Delete("/playlists/:playlistId", requireAuth, contentHandler.DeletePlaylist)
}

// @Summary Ping
// @Description This endpoint checks the health of the service
// @Tags health
// @Accept  json
// @Produce json
// @Success 200 {object} shared.Response{data=string}
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "max-age=10")
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", "pong")
}
