package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a private in-memory database. One connection keeps every
// query on the same memory store.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := OpenDatabase(sqlite.Open("file::memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// newSharedTestDB opens a file-backed database that many connections can use
// at once. Transactions take the write lock up front and wait on busy_timeout
// instead of failing, so concurrent writers serialize.
func newSharedTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "learnproof.db") +
		"?_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate"
	db, err := OpenDatabase(sqlite.Open(dsn))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)

	require.NoError(t, Migrate(db))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

type fakeResolver struct {
	byURL map[string]dto.ContentMetadata
}

func (r fakeResolver) Resolve(_ context.Context, rawURL string) (*dto.ContentMetadata, error) {
	meta, ok := r.byURL[rawURL]
	if !ok {
		return nil, shared.NewNotFoundError(nil, "Content not found")
	}
	return &meta, nil
}

type staticGenerator struct {
	questions []model.Question
	err       error
}

func (g staticGenerator) Generate(context.Context, string, string) ([]model.Question, error) {
	return g.questions, g.err
}

type sentCertificate struct {
	to, name, title, url string
}

type recordingNotifier struct {
	sent chan sentCertificate
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan sentCertificate, 4)}
}

func (n *recordingNotifier) SendCertificateEmail(_ context.Context, to, name, title, downloadURL string) error {
	n.sent <- sentCertificate{to: to, name: name, title: title, url: downloadURL}
	return nil
}

var twoQuestions = []model.Question{
	{Question: "Q1", Options: []string{"A", "B"}, Answer: "A"},
	{Question: "Q2", Options: []string{"C", "D"}, Answer: "D"},
}

type testEnv struct {
	db       *gorm.DB
	clock    *testClock
	activity *ActivityService
	users    *UserService
	content  *ContentService
	progress *ProgressService
	quiz     *QuizService
	certs    *CertificateService
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestEnv(t *testing.T, resolver ContentResolver, generator QuestionGenerator) *testEnv {
	t.Helper()
	return newTestEnvOn(t, newTestDB(t), resolver, generator)
}

func newTestEnvOn(t *testing.T, db *gorm.DB, resolver ContentResolver, generator QuestionGenerator) *testEnv {
	t.Helper()

	env := &testEnv{
		db:    db,
		clock: &testClock{now: time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)},
	}

	env.activity = &ActivityService{}
	env.activity.setup(env.db, time.UTC, env.clock.Now)

	env.users = &UserService{}
	env.users.setup(env.db)

	env.content = &ContentService{}
	env.content.setup(env.db, resolver, env.activity)

	env.progress = &ProgressService{}
	env.progress.setup(env.db, env.activity)

	if generator == nil {
		generator = staticGenerator{questions: twoQuestions}
	}
	env.quiz = &QuizService{}
	env.quiz.setup(env.db, generator, env.activity, "https://learn.example.com/")

	env.certs = &CertificateService{}
	env.certs.setup(env.db, nil)

	return env
}

func (env *testEnv) createUser(t *testing.T, uid string) *model.UserProfile {
	t.Helper()
	user, err := env.users.ResolveOrCreate(context.Background(), dto.Identity{
		Subject: uid,
		Email:   uid + "@example.com",
		Name:    "User " + uid,
	})
	require.NoError(t, err)
	return user
}

func (env *testEnv) reloadUser(t *testing.T, userID string) *model.UserProfile {
	t.Helper()
	var user model.UserProfile
	require.NoError(t, env.db.Where("id = ?", userID).First(&user).Error)
	return &user
}

func (env *testEnv) video(t *testing.T, userID, externalID string) *model.Video {
	t.Helper()
	var video model.Video
	require.NoError(t, env.db.Where("user_id = ? AND external_id = ?", userID, externalID).First(&video).Error)
	return &video
}

func (env *testEnv) activityTypes(t *testing.T, userID string) []string {
	t.Helper()
	var types []string
	require.NoError(t, env.db.Model(&model.UserActivityLog{}).
		Where("user_id = ?", userID).
		Order("timestamp ASC").
		Pluck("activity_type", &types).Error)
	return types
}

func (env *testEnv) saveVideo(t *testing.T, userID, externalID string) {
	t.Helper()
	resp, err := env.content.Save(context.Background(), userID, videoMeta(externalID))
	require.NoError(t, err)
	require.Equal(t, dto.SaveStatusSaved, resp.Status)
}

func videoMeta(externalID string) dto.ContentMetadata {
	return dto.ContentMetadata{
		Type:        shared.ContentTypeVideo,
		ID:          externalID,
		Title:       "Video " + externalID,
		Description: "About " + externalID + ". More text.",
		Duration:    "4:13",
	}
}

func playlistMeta(externalID string, videoIDs ...string) dto.ContentMetadata {
	items := make([]dto.PlaylistItem, 0, len(videoIDs))
	for i, id := range videoIDs {
		items = append(items, dto.PlaylistItem{
			VideoID:  id,
			Title:    fmt.Sprintf("Part %d", i+1),
			Position: i + 1,
		})
	}
	return dto.ContentMetadata{
		Type:   shared.ContentTypePlaylist,
		ID:     externalID,
		Title:  "Playlist " + externalID,
		URL:    youtubeListURL + externalID,
		Videos: items,
	}
}
