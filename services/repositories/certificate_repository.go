package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/learnproof/learnproof-api/model"
	"gorm.io/gorm"
)

type CertificateRepository struct {
	BaseRepository
}

func NewCertificateRepository(db *gorm.DB) *CertificateRepository {
	return &CertificateRepository{
		BaseRepository: NewBaseRepository(db),
	}
}

// Create assigns the public certificate id when the caller has not.
func (r *CertificateRepository) Create(ctx context.Context, tx *gorm.DB, cert *model.Certificate) error {
	if cert.ID == "" {
		cert.ID = newID()
	}
	if cert.CertificateID == "" {
		cert.CertificateID = uuid.NewString()
	}
	if cert.IssuedAt.IsZero() {
		cert.IssuedAt = time.Now()
	}
	return r.conn(ctx, tx).Create(cert).Error
}

func (r *CertificateRepository) ListForUser(ctx context.Context, userID string) ([]model.Certificate, error) {
	var certs []model.Certificate
	err := r.conn(ctx, nil).
		Where("user_id = ?", userID).
		Order("issued_at DESC").
		Find(&certs).Error
	return certs, err
}

func (r *CertificateRepository) GetByCertificateID(ctx context.Context, certificateID string) (*model.Certificate, error) {
	var cert model.Certificate
	if err := r.conn(ctx, nil).Where("certificate_id = ?", certificateID).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *CertificateRepository) DetachContent(ctx context.Context, tx *gorm.DB, userID string, videoIDs, playlistIDs []string) error {
	db := r.conn(ctx, tx)
	if len(videoIDs) > 0 {
		if err := db.Model(&model.Certificate{}).
			Where("user_id = ? AND video_id IN ?", userID, videoIDs).
			Update("video_id", nil).Error; err != nil {
			return err
		}
	}
	if len(playlistIDs) > 0 {
		if err := db.Model(&model.Certificate{}).
			Where("user_id = ? AND playlist_id IN ?", userID, playlistIDs).
			Update("playlist_id", nil).Error; err != nil {
			return err
		}
	}
	return nil
}
