package services

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	appcontext "github.com/alphabatem/common/context"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/model"
	"github.com/learnproof/learnproof-api/services/repositories"
	"github.com/learnproof/learnproof-api/shared"
	log "github.com/sirupsen/logrus"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"gorm.io/gorm"
)

const (
	certificateWidth  = 1600
	certificateHeight = 1130
	certificateURLTTL = 15 * time.Minute
	deletedTitle      = "Removed content"
)

// CertificateService lists certificates and renders them as PNG images.
type CertificateService struct {
	appcontext.DefaultService

	db           *gorm.DB
	certificates *repositories.CertificateRepository
	content      *repositories.ContentRepository
	users        *repositories.UserRepository
	storage      *MinIOService

	fontsOnce sync.Once
	fontsErr  error
	titleFont *truetype.Font
	bodyFont  *truetype.Font
}

const CERTIFICATE_SVC = "certificate_svc"

func (svc *CertificateService) Id() string {
	return CERTIFICATE_SVC
}

func (svc *CertificateService) Start() error {
	var storage *MinIOService
	if s, ok := svc.Service(MINIO_SVC).(*MinIOService); ok && s.Enabled() {
		storage = s
	}
	svc.setup(svc.Service(DATABASE_SVC).(*DatabaseService).Db(), storage)
	return nil
}

func (svc *CertificateService) setup(db *gorm.DB, storage *MinIOService) {
	svc.db = db
	svc.certificates = repositories.NewCertificateRepository(db)
	svc.content = repositories.NewContentRepository(db)
	svc.users = repositories.NewUserRepository(db)
	svc.storage = storage
}

// certificateSubjects loads the content the certificates were issued for.
func (svc *CertificateService) certificateSubjects(ctx context.Context, userID string, certs []model.Certificate) (map[string]model.Video, map[string]model.Playlist, error) {
	var videoIDs, playlistIDs []string
	for _, c := range certs {
		if c.VideoID != nil {
			videoIDs = append(videoIDs, *c.VideoID)
		}
		if c.PlaylistID != nil {
			playlistIDs = append(playlistIDs, *c.PlaylistID)
		}
	}

	videos, err := svc.content.GetVideosByIDs(ctx, userID, videoIDs)
	if err != nil {
		return nil, nil, err
	}
	playlists, err := svc.content.GetPlaylistsByIDs(ctx, userID, playlistIDs)
	if err != nil {
		return nil, nil, err
	}

	videoByID := make(map[string]model.Video, len(videos))
	for _, v := range videos {
		videoByID[v.ID] = v
	}
	playlistByID := make(map[string]model.Playlist, len(playlists))
	for _, p := range playlists {
		playlistByID[p.ID] = p
	}
	return videoByID, playlistByID, nil
}

func describeCertificate(c model.Certificate, videos map[string]model.Video, playlists map[string]model.Playlist) dto.CertificateResponse {
	resp := dto.CertificateResponse{
		CertificateID: c.CertificateID,
		Title:         deletedTitle,
		Score:         c.Score,
		IssuedAt:      c.IssuedAt,
		DownloadURL:   c.DownloadURL,
	}
	switch {
	case c.VideoID != nil:
		resp.TargetType = string(model.TargetVideo)
		if v, ok := videos[*c.VideoID]; ok {
			resp.Title = v.Name
			resp.Description = v.Description
		}
	case c.PlaylistID != nil:
		resp.TargetType = string(model.TargetPlaylist)
		if p, ok := playlists[*c.PlaylistID]; ok {
			resp.Title = p.Name
			resp.Description = p.Description
		}
	}
	return resp
}

func (svc *CertificateService) List(ctx context.Context, userID string) ([]dto.CertificateResponse, error) {
	certs, err := svc.certificates.ListForUser(ctx, userID)
	if err != nil {
		return nil, handleDBError(err)
	}

	videos, playlists, err := svc.certificateSubjects(ctx, userID, certs)
	if err != nil {
		return nil, handleDBError(err)
	}

	out := make([]dto.CertificateResponse, 0, len(certs))
	for _, c := range certs {
		out = append(out, describeCertificate(c, videos, playlists))
	}
	return out, nil
}

// Download returns the certificate image. With object storage configured the
// PNG is uploaded once and served through a presigned URL.
func (svc *CertificateService) Download(ctx context.Context, certificateID string) (*dto.CertificateDownload, error) {
	cert, err := svc.certificates.GetByCertificateID(ctx, certificateID)
	if err != nil {
		return nil, handleDBError(err)
	}

	objectName := fmt.Sprintf("certificates/%s.png", cert.CertificateID)
	filename := fmt.Sprintf("certificate-%s.png", cert.CertificateID)

	if svc.storage != nil {
		exists, err := svc.storage.FileExists(ctx, objectName)
		if err != nil {
			log.WithError(err).WithField("certificate_id", certificateID).Warn("Certificate lookup in object storage failed")
		}
		if exists {
			return svc.presigned(ctx, objectName, filename)
		}
	}

	png, err := svc.renderFor(ctx, cert)
	if err != nil {
		return nil, err
	}

	if svc.storage != nil {
		if _, err := svc.storage.UploadFile(ctx, objectName, bytes.NewReader(png), int64(len(png)), "image/png"); err != nil {
			log.WithError(err).WithField("certificate_id", certificateID).Warn("Failed to store certificate, serving inline")
		} else {
			return svc.presigned(ctx, objectName, filename)
		}
	}

	return &dto.CertificateDownload{PNG: png, Filename: filename}, nil
}

func (svc *CertificateService) presigned(ctx context.Context, objectName, filename string) (*dto.CertificateDownload, error) {
	url, err := svc.storage.GetFileURL(ctx, objectName, certificateURLTTL)
	if err != nil {
		return nil, shared.NewUpstreamError(err, "Failed to sign certificate URL")
	}
	return &dto.CertificateDownload{RedirectURL: url, Filename: filename}, nil
}

func (svc *CertificateService) renderFor(ctx context.Context, cert *model.Certificate) ([]byte, error) {
	user, err := svc.users.GetByID(ctx, nil, cert.UserID)
	if err != nil {
		return nil, handleDBError(err)
	}

	videos, playlists, err := svc.certificateSubjects(ctx, cert.UserID, []model.Certificate{*cert})
	if err != nil {
		return nil, handleDBError(err)
	}
	info := describeCertificate(*cert, videos, playlists)

	name := user.Name
	if name == "" && user.Email != nil {
		name = *user.Email
	}

	png, err := svc.Render(name, info.Title, cert.Score, cert.IssuedAt, cert.CertificateID)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to render certificate")
	}
	return png, nil
}

func (svc *CertificateService) loadFonts() error {
	svc.fontsOnce.Do(func() {
		svc.titleFont, svc.fontsErr = truetype.Parse(gobold.TTF)
		if svc.fontsErr != nil {
			return
		}
		svc.bodyFont, svc.fontsErr = truetype.Parse(goregular.TTF)
	})
	return svc.fontsErr
}

func fontFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Render draws a landscape certificate and encodes it as PNG.
func (svc *CertificateService) Render(recipient, title string, score float64, issuedAt time.Time, certificateID string) ([]byte, error) {
	if err := svc.loadFonts(); err != nil {
		return nil, fmt.Errorf("failed to load fonts: %w", err)
	}

	const w, h = float64(certificateWidth), float64(certificateHeight)
	dc := gg.NewContext(certificateWidth, certificateHeight)

	dc.SetColor(color.NRGBA{R: 250, G: 248, B: 242, A: 255})
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()

	accent := color.NRGBA{R: 32, G: 84, B: 147, A: 255}
	dc.SetColor(accent)
	dc.SetLineWidth(14)
	dc.DrawRectangle(40, 40, w-80, h-80)
	dc.Stroke()
	dc.SetLineWidth(3)
	dc.DrawRectangle(70, 70, w-140, h-140)
	dc.Stroke()

	dc.SetFontFace(fontFace(svc.titleFont, 72))
	dc.DrawStringAnchored("Certificate of Completion", w/2, 240, 0.5, 0.5)

	dark := color.NRGBA{R: 40, G: 40, B: 40, A: 255}
	dc.SetColor(dark)
	dc.SetFontFace(fontFace(svc.bodyFont, 34))
	dc.DrawStringAnchored("This certifies that", w/2, 370, 0.5, 0.5)

	if recipient == "" {
		recipient = "LearnProof learner"
	}
	dc.SetColor(accent)
	dc.SetFontFace(fontFace(svc.titleFont, 64))
	dc.DrawStringAnchored(recipient, w/2, 470, 0.5, 0.5)

	dc.SetColor(dark)
	dc.SetFontFace(fontFace(svc.bodyFont, 34))
	dc.DrawStringAnchored("has successfully completed", w/2, 570, 0.5, 0.5)

	dc.SetFontFace(fontFace(svc.titleFont, 44))
	dc.DrawStringWrapped(title, w/2, 660, 0.5, 0.5, w-320, 1.3, gg.AlignCenter)

	dc.SetFontFace(fontFace(svc.bodyFont, 28))
	dc.DrawStringAnchored(fmt.Sprintf("Score: %.2f%%", score), w/2, 820, 0.5, 0.5)
	dc.DrawStringAnchored("Issued "+issuedAt.UTC().Format("January 2, 2006"), w/2, 870, 0.5, 0.5)

	dc.SetColor(color.NRGBA{R: 120, G: 120, B: 120, A: 255})
	dc.SetFontFace(fontFace(svc.bodyFont, 20))
	dc.DrawStringAnchored("Certificate ID "+certificateID, w/2, h-120, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf.Bytes(), nil
}
