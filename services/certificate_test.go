package services

import (
	"bytes"
	"context"
	"image/png"
	"testing"
	"time"

	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderCertificate(t *testing.T) {
	svc := &CertificateService{}

	out, err := svc.Render("Ada Lovelace", "Introduction to Go", 87.5, time.Date(2024, 5, 20, 0, 0, 0, 0, time.UTC), "cert-123")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, certificateWidth, img.Bounds().Dx())
	assert.Equal(t, certificateHeight, img.Bounds().Dy())
}

func TestListAndDownloadCertificates(t *testing.T) {
	env := newTestEnv(t, nil, nil)
	user := env.createUser(t, "u1")
	env.saveVideo(t, user.ID, "vid00000001")
	ctx := context.Background()

	started, err := env.quiz.StartQuiz(ctx, user.ID, "video", "vid00000001")
	require.NoError(t, err)
	result, err := env.quiz.Submit(ctx, user.ID, started.QuizID, []string{"A", "D"})
	require.NoError(t, err)
	require.NotNil(t, result.CertificateID)

	certs, err := env.certs.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, "Video vid00000001", certs[0].Title)
	assert.Equal(t, "video", certs[0].TargetType)
	assert.Equal(t, 100.0, certs[0].Score)

	file, err := env.certs.Download(ctx, *result.CertificateID)
	require.NoError(t, err)
	assert.Empty(t, file.RedirectURL)
	assert.Equal(t, "certificate-"+*result.CertificateID+".png", file.Filename)
	_, err = png.Decode(bytes.NewReader(file.PNG))
	require.NoError(t, err)

	_, err = env.certs.Download(ctx, "does-not-exist")
	assert.True(t, shared.IsKind(err, shared.KindNotFound))

	// Certificates outlive the content they were issued for.
	_, err = env.content.DeleteVideo(ctx, user.ID, "vid00000001")
	require.NoError(t, err)

	certs, err = env.certs.List(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, deletedTitle, certs[0].Title)
	assert.Empty(t, certs[0].TargetType)
}
