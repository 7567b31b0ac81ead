package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/google/uuid"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// CertificateNotifier is told about certificates after the issuing
// transaction has committed.
type CertificateNotifier interface {
	SendCertificateEmail(ctx context.Context, to, name, title, downloadURL string) error
}

// QuizService runs the quiz lifecycle: start, grade once, reward and certify.
type QuizService struct {
	appcontext.DefaultService

	db           *gorm.DB
	content      *repositories.ContentRepository
	quizzes      *repositories.QuizRepository
	certificates *repositories.CertificateRepository
	users        *repositories.UserRepository
	generator    QuestionGenerator
	activity     *ActivityService
	notifier     CertificateNotifier

	baseURL string
	now     func() time.Time
}

const QUIZ_SVC = "quiz_svc"

func (svc QuizService) Id() string {
	return QUIZ_SVC
}

func (svc *QuizService) Configure(ctx *appcontext.Context) error {
	svc.baseURL = strings.TrimRight(envOr("BASE_URL", "http://localhost:8000"), "/")
	return svc.DefaultService.Configure(ctx)
}

func (svc *QuizService) Start() error {
	svc.setup(
		svc.Service(DATABASE_SVC).(*DatabaseService).Db(),
		svc.Service(QUIZ_GENERATOR_SVC).(*QuizGeneratorService),
		svc.Service(ACTIVITY_SVC).(*ActivityService),
		svc.baseURL,
	)

	if email, ok := svc.Service(EMAIL_SVC).(*EmailService); ok && email.Enabled() {
		svc.notifier = email
	}
	return nil
}

func (svc *QuizService) setup(db *gorm.DB, generator QuestionGenerator, activity *ActivityService, baseURL string) {
	svc.db = db
	svc.content = repositories.NewContentRepository(db)
	svc.quizzes = repositories.NewQuizRepository(db)
	svc.certificates = repositories.NewCertificateRepository(db)
	svc.users = repositories.NewUserRepository(db)
	svc.generator = generator
	svc.activity = activity
	svc.baseURL = strings.TrimRight(baseURL, "/")
	svc.now = time.Now
}

// CertificateURL is the public download location of a certificate.
func (svc *QuizService) CertificateURL(certificateID string) string {
	return fmt.Sprintf("%s/api/v1/certificates/%s/download", svc.baseURL, certificateID)
}

// quizSubject is the owned content a quiz is about.
type quizSubject struct {
	target      model.Target
	externalID  string
	title       string
	description string
	videoCount  int64
}

func (svc *QuizService) resolveSubject(ctx context.Context, tx *gorm.DB, userID string, kind model.TargetKind, externalID string) (*quizSubject, error) {
	switch kind {
	case model.TargetVideo:
		video, err := svc.content.GetVideo(ctx, tx, userID, externalID)
		if err != nil {
			return nil, err
		}
		return &quizSubject{
			target:      model.Target{Kind: model.TargetVideo, ID: video.ID},
			externalID:  video.ExternalID,
			title:       video.Name,
			description: video.Description,
			videoCount:  1,
		}, nil
	case model.TargetPlaylist:
		playlist, err := svc.content.GetPlaylist(ctx, tx, userID, externalID)
		if err != nil {
			return nil, err
		}
		count, err := svc.content.CountPlaylistVideos(ctx, tx, playlist.ID)
		if err != nil {
			return nil, err
		}
		return &quizSubject{
			target:      model.Target{Kind: model.TargetPlaylist, ID: playlist.ID},
			externalID:  playlist.ExternalID,
			title:       playlist.Name,
			description: playlist.Description,
			videoCount:  count,
		}, nil
	}
	return nil, shared.NewBadRequestError(nil, fmt.Sprintf("Unknown target type %q", kind))
}

// StartQuiz creates an ungraded quiz for an owned video or playlist.
func (svc *QuizService) StartQuiz(ctx context.Context, userID, targetType, targetID string) (*dto.QuizStartResponse, error) {
	kind, err := model.ParseTargetKind(targetType)
	if err != nil {
		return nil, shared.NewBadRequestError(err, fmt.Sprintf("Unknown target type %q", targetType))
	}

	subject, err := svc.resolveSubject(ctx, nil, userID, kind, targetID)
	if err != nil {
		return nil, handleDBError(err)
	}

	questions, err := svc.generator.Generate(ctx, subject.title, subject.description)
	if err != nil {
		return nil, shared.NewUpstreamError(err, "Failed to generate quiz questions")
	}
	if len(questions) == 0 {
		return nil, shared.NewInternalError(nil, "Question generator returned no questions")
	}

	quiz, err := model.NewQuiz(userID, subject.target, questions)
	if err != nil {
		return nil, shared.NewBadRequestError(err, err.Error())
	}
	quiz.AttemptedAt = svc.now()

	activityType := shared.ActivityQuizStarted
	if kind == model.TargetPlaylist {
		activityType = shared.ActivityPlaylistQuizStarted
	}

	err = svc.db.Transaction(func(tx *gorm.DB) error {
		if err := svc.quizzes.Create(ctx, tx, quiz); err != nil {
			return err
		}
		return svc.activity.Record(ctx, tx, userID, activityType, map[string]interface{}{
			"quiz_id": quiz.ID,
			"type":    string(kind),
			"id":      subject.externalID,
			"title":   subject.title,
		})
	})
	if err != nil {
		return nil, handleDBError(err)
	}

	views := make([]dto.QuestionView, len(questions))
	for i, q := range questions {
		views[i] = dto.QuestionView{Index: i, Question: q.Question, Options: q.Options}
	}

	return &dto.QuizStartResponse{
		QuizID:           quiz.ID,
		TargetType:       string(kind),
		TargetID:         subject.externalID,
		Title:            subject.title,
		Questions:        views,
		TimeLimitMinutes: shared.QuizTimeLimitMinutes,
		StartedAt:        quiz.AttemptedAt,
	}, nil
}

// Grade compares answers positionally against the key. Missing answers count
// as wrong. The score is a percentage rounded to two decimals.
func Grade(questions []model.Question, answers []string) (correct int, score float64, passed bool) {
	if len(questions) == 0 {
		return 0, 0, false
	}
	for i, q := range questions {
		if i < len(answers) && answers[i] == q.Answer {
			correct++
		}
	}
	score = math.Round(float64(correct)/float64(len(questions))*100*100) / 100
	return correct, score, score >= shared.PassingScore
}

// Submit grades a quiz exactly once. Passing awards XP and issues a
// certificate in the same transaction.
func (svc *QuizService) Submit(ctx context.Context, userID, quizID string, answers []string) (*dto.QuizResultResponse, error) {
	var (
		result  *dto.QuizResultResponse
		issued  *model.Certificate
		subject *quizSubject
	)

	err := svc.db.Transaction(func(tx *gorm.DB) error {
		quiz, err := svc.quizzes.GetForUser(ctx, tx, userID, quizID)
		if err != nil {
			return err
		}
		if quiz.Graded() {
			return shared.NewAlreadyGradedError("Quiz has already been submitted")
		}

		questions := quiz.Questions.Data()
		correct, score, passed := Grade(questions, answers)
		now := svc.now()

		rows, err := svc.quizzes.Grade(ctx, tx, quiz.ID, score, passed, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return shared.NewAlreadyGradedError("Quiz has already been submitted")
		}

		result = &dto.QuizResultResponse{
			QuizID:  quiz.ID,
			Score:   score,
			Passed:  passed,
			Correct: correct,
			Total:   len(questions),
		}

		target, hasTarget := quiz.Target()
		submitType := shared.ActivityQuizSubmitted
		if hasTarget && target.Kind == model.TargetPlaylist {
			submitType = shared.ActivityPlaylistQuizSubmitted
		}
		if hasTarget {
			subject, err = svc.subjectByID(ctx, tx, userID, target)
			if err != nil {
				return err
			}
		}

		if err := svc.activity.Record(ctx, tx, userID, submitType, map[string]interface{}{
			"quiz_id": quiz.ID,
			"score":   score,
			"passed":  passed,
		}); err != nil {
			return err
		}

		// Content deleted after the quiz started leaves nothing to certify.
		if !passed || subject == nil {
			return nil
		}

		xp := shared.XPVideoQuizPassed
		if subject.target.Kind == model.TargetPlaylist {
			xp = shared.XPPlaylistQuizPerItem * int(subject.videoCount)
		}
		if _, err := svc.users.AddXP(ctx, tx, userID, xp); err != nil {
			return err
		}
		result.XPAwarded = xp

		cert := &model.Certificate{
			CertificateID: uuid.NewString(),
			UserID:        userID,
			QuizID:        &quiz.ID,
			Score:         score,
			IssuedAt:      now,
		}
		cert.DownloadURL = svc.CertificateURL(cert.CertificateID)
		if subject.target.Kind == model.TargetVideo {
			cert.VideoID = &subject.target.ID
		} else {
			cert.PlaylistID = &subject.target.ID
		}
		if err := svc.certificates.Create(ctx, tx, cert); err != nil {
			return err
		}

		issued = cert
		result.CertificateID = &cert.CertificateID
		result.CertificateURL = &cert.DownloadURL

		return svc.activity.Record(ctx, tx, userID, shared.ActivityCertificateIssued, map[string]interface{}{
			"certificate_id": cert.CertificateID,
			"quiz_id":        quiz.ID,
			"title":          subject.title,
			"xp_earned":      xp,
		})
	})
	if err != nil {
		return nil, handleDBError(err)
	}

	quizzesGradedTotal.WithLabelValues(passedLabel(result.Passed)).Inc()
	if issued != nil {
		certificatesIssuedTotal.Inc()
		xpAwardedTotal.WithLabelValues(shared.ActivityCertificateIssued).Add(float64(result.XPAwarded))
		svc.notify(ctx, userID, subject.title, issued)
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"quiz_id": quizID,
		"score":   result.Score,
		"passed":  result.Passed,
	}).Info("Quiz graded")

	return result, nil
}

func (svc *QuizService) subjectByID(ctx context.Context, tx *gorm.DB, userID string, target model.Target) (*quizSubject, error) {
	switch target.Kind {
	case model.TargetVideo:
		var video model.Video
		err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", target.ID, userID).First(&video).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return &quizSubject{target: target, externalID: video.ExternalID, title: video.Name, description: video.Description, videoCount: 1}, nil
	default:
		var playlist model.Playlist
		err := tx.WithContext(ctx).Where("id = ? AND user_id = ?", target.ID, userID).First(&playlist).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		count, err := svc.content.CountPlaylistVideos(ctx, tx, playlist.ID)
		if err != nil {
			return nil, err
		}
		return &quizSubject{target: target, externalID: playlist.ExternalID, title: playlist.Name, description: playlist.Description, videoCount: count}, nil
	}
}

// notify sends the certificate email without affecting the response.
func (svc *QuizService) notify(ctx context.Context, userID, title string, cert *model.Certificate) {
	if svc.notifier == nil {
		return
	}
	user, err := svc.users.GetByID(ctx, nil, userID)
	if err != nil || user.Email == nil {
		return
	}

	go func(to, name string) {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := svc.notifier.SendCertificateEmail(sendCtx, to, name, title, cert.DownloadURL); err != nil {
			log.WithError(err).WithField("certificate_id", cert.CertificateID).Warn("Failed to send certificate email")
		}
	}(*user.Email, user.Name)
}

// ListTargets returns everything the user can take a quiz on.
func (svc *QuizService) ListTargets(ctx context.Context, userID string) (*dto.QuizTargetsResponse, error) {
	videos, err := svc.content.ListStandaloneVideosAll(ctx, userID)
	if err != nil {
		return nil, handleDBError(err)
	}
	playlists, err := svc.content.ListPlaylists(ctx, userID, "")
	if err != nil {
		return nil, handleDBError(err)
	}

	resp := &dto.QuizTargetsResponse{
		Videos:    make([]dto.QuizTarget, 0, len(videos)),
		Playlists: make([]dto.QuizTarget, 0, len(playlists)),
	}
	for _, v := range videos {
		resp.Videos = append(resp.Videos, dto.QuizTarget{ID: v.ExternalID, Name: v.Name, Thumbnail: v.Thumbnail})
	}
	for _, p := range playlists {
		resp.Playlists = append(resp.Playlists, dto.QuizTarget{ID: p.ExternalID, Name: p.Name, Thumbnail: p.Thumbnail, VideoCount: len(p.Videos)})
	}
	return resp, nil
}

func passedLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
