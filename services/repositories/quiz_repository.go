package repositories

import (
	"context"
	"time"

	"github.com/learnproof/learnproof-api/model"
	"gorm.io/gorm"
)

type QuizRepository struct {
	BaseRepository
}

func NewQuizRepository(db *gorm.DB) *QuizRepository {
	return &QuizRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

func (r *QuizRepository) Create(ctx context.Context, tx *gorm.DB, quiz *model.Quiz) error {
	if quiz.ID == "" {
		quiz.ID = newID()
	}
	if quiz.AttemptedAt.IsZero() {
		quiz.AttemptedAt = time.Now()
	}
	return r.conn(ctx, tx).Create(quiz).Error
}

func (r *QuizRepository) GetForUser(ctx context.Context, tx *gorm.DB, userID, quizID string) (*model.Quiz, error) {
	var quiz model.Quiz
	if err := r.conn(ctx, tx).Where("id = ? AND user_id = ?", quizID, userID).First(&quiz).Error; err != nil {
		return nil, err
	}
	return &quiz, nil
}

// Grade stores the result only while the quiz is still ungraded. Zero rows
// affected means another submission won.
func (r *QuizRepository) Grade(ctx context.Context, tx *gorm.DB, quizID string, score float64, passed bool, gradedAt time.Time) (int64, error) {
	res := r.conn(ctx, tx).Model(&model.Quiz{}).
		Where("id = ? AND score IS NULL", quizID).
		Updates(map[string]interface{}{
			"score":     score,
			"passed":    passed,
			"graded_at": gradedAt,
		})
	return res.RowsAffected, res.Error
}

// DetachContent clears references to deleted videos and playlists so quiz
// history survives the deletion.
func (r *QuizRepository) DetachContent(ctx context.Context, tx *gorm.DB, userID string, videoIDs, playlistIDs []string) error {
	db := r.conn(ctx, tx)
	if len(videoIDs) > 0 {
		if err := db.Model(&model.Quiz{}).
			Where("user_id = ? AND video_id IN ?", userID, videoIDs).
			Update("video_id", nil).Error; err != nil {
			return err
		}
	}
	if len(playlistIDs) > 0 {
		if err := db.Model(&model.Quiz{}).
			Where("user_id = ? AND playlist_id IN ?", userID, playlistIDs).
			Update("playlist_id", nil).Error; err != nil {
			return err
		}
	}
	return nil
}
