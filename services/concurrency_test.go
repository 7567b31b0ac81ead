package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const racers = 8

// race runs fn from racers goroutines released together.
func race(fn func() error) error {
	var (
		g     errgroup.Group
		start = make(chan struct{})
	)
	for i := 0; i < racers; i++ {
		g.Go(func() error {
			<-start
			return fn()
		})
	}
	close(start)
	return g.Wait()
}

func TestConcurrentCompletionAwardsXPOnce(t *testing.T) {
	env := newTestEnvOn(t, newSharedTestDB(t), nil, nil)
	user := env.createUser(t, "u1")
	env.saveVideo(t, user.ID, "vid00000001")

	var completed atomic.Int32
	err := race(func() error {
		resp, err := env.progress.MarkCompleted(context.Background(), user.ID, "vid00000001")
		if err != nil {
			return err
		}
		if resp.Status == dto.CompletionStatusCompleted {
			completed.Add(1)
		}
		return nil
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, completed.Load())
	assert.Equal(t, shared.XPVideoCompleted, env.reloadUser(t, user.ID).XP)
	assert.True(t, env.video(t, user.ID, "vid00000001").IsCompleted)

	var logs int64
	require.NoError(t, env.db.Model(&model.UserActivityLog{}).
		Where("user_id = ? AND activity_type = ?", user.ID, shared.ActivityVideoCompleted).
		Count(&logs).Error)
	assert.EqualValues(t, 1, logs)
}

func TestConcurrentFirstLoginCreatesOneProfile(t *testing.T) {
	env := newTestEnvOn(t, newSharedTestDB(t), nil, nil)

	var (
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	err := race(func() error {
		user, err := env.users.ResolveOrCreate(context.Background(), dto.Identity{
			Subject: "firebase-uid-1",
			Email:   "first@example.com",
			Name:    "First Login",
		})
		if err != nil {
			return err
		}
		mu.Lock()
		ids[user.ID] = true
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, ids, 1)

	var count int64
	require.NoError(t, env.db.Model(&model.UserProfile{}).Where("uid = ?", "firebase-uid-1").Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestConcurrentSubmitIssuesOneCertificate(t *testing.T) {
	env := newTestEnvOn(t, newSharedTestDB(t), nil, nil)
	user := env.createUser(t, "u1")
	env.saveVideo(t, user.ID, "vid00000001")
	ctx := context.Background()

	started, err := env.quiz.StartQuiz(ctx, user.ID, "video", "vid00000001")
	require.NoError(t, err)

	var graded, rejected atomic.Int32
	err = race(func() error {
		_, err := env.quiz.Submit(ctx, user.ID, started.QuizID, []string{"A", "D"})
		switch {
		case err == nil:
			graded.Add(1)
		case shared.IsKind(err, shared.KindAlreadyGraded):
			rejected.Add(1)
		default:
			return err
		}
		return nil
	})
	require.NoError(t, err)

	assert.EqualValues(t, 1, graded.Load())
	assert.EqualValues(t, racers-1, rejected.Load())

	var certs int64
	require.NoError(t, env.db.Model(&model.Certificate{}).Where("user_id = ?", user.ID).Count(&certs).Error)
	assert.EqualValues(t, 1, certs)
	assert.Equal(t, shared.XPVideoQuizPassed, env.reloadUser(t, user.ID).XP)
}
