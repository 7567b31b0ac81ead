package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserID = "user-1"

type fakeContentService struct {
	ContentServiceInterface
	saved   []dto.ContentMetadata
	lastURL string
}

func (f *fakeContentService) Import(_ context.Context, userID, rawURL string) (*dto.ContentMetadata, error) {
	f.lastURL = rawURL
	return &dto.ContentMetadata{Type: shared.ContentTypeVideo, ID: "dQw4w9WgXcQ", Title: "Intro"}, nil
}

func (f *fakeContentService) Save(_ context.Context, userID string, meta dto.ContentMetadata) (*dto.SaveContentResponse, error) {
	for _, s := range f.saved {
		if s.ID == meta.ID {
			return &dto.SaveContentResponse{Status: dto.SaveStatusDuplicate, Message: "Already saved", ID: "row-1", ExternalID: meta.ID}, nil
		}
	}
	f.saved = append(f.saved, meta)
	return &dto.SaveContentResponse{Status: dto.SaveStatusSaved, Message: "Saved", ID: "row-1", ExternalID: meta.ID}, nil
}

type fakeQuizService struct {
	QuizServiceInterface
	err error
}

func (f *fakeQuizService) Submit(_ context.Context, userID, quizID string, answers []string) (*dto.QuizResultResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &dto.QuizResultResponse{Score: 100, Passed: true, Correct: len(answers), Total: len(answers)}, nil
}

type fakeCertificateService struct {
	CertificateServiceInterface
	file *dto.CertificateDownload
}

func (f *fakeCertificateService) Download(_ context.Context, certificateID string) (*dto.CertificateDownload, error) {
	if f.file == nil {
		return nil, shared.NewNotFoundError(nil, "Certificate not found")
	}
	return f.file, nil
}

func newTestApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: shared.ErrorHandler,
		JSONEncoder:  shared.JSONMarshal,
		JSONDecoder:  shared.JSONUnmarshal,
	})
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(shared.UserID, testUserID)
		return c.Next()
	})
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, shared.Response) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out shared.Response
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		require.NoError(t, shared.JSONUnmarshal(raw, &out), string(raw))
	}
	return resp, out
}

func TestSaveContentStatusCodes(t *testing.T) {
	app := newTestApp()
	h := NewContentHandler(&fakeContentService{})
	app.Post("/save", h.Save)

	body := `{"type": "video", "id": "dQw4w9WgXcQ", "title": "Intro", "url": "https://www.youtube.com/watch?v=dQw4w9WgXcQ"}`

	resp, out := doJSON(t, app, http.MethodPost, "/save", body)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "Saved", out.Message)

	resp, out = doJSON(t, app, http.MethodPost, "/save", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Already saved", out.Message)

	resp, _ = doJSON(t, app, http.MethodPost, "/save", `{"type": "video"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/save", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportValidatesURL(t *testing.T) {
	app := newTestApp()
	svc := &fakeContentService{}
	h := NewContentHandler(svc)
	app.Post("/import", h.Import)

	resp, _ := doJSON(t, app, http.MethodPost, "/import", `{"url": "https://vimeo.com/123"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, svc.lastURL)

	resp, out := doJSON(t, app, http.MethodPost, "/import", `{"url": "https://youtu.be/dQw4w9WgXcQ"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Content resolved", out.Message)
	assert.Equal(t, "https://youtu.be/dQw4w9WgXcQ", svc.lastURL)
}

func TestSubmitQuizErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"passed", nil, http.StatusOK},
		{"already graded", shared.NewAlreadyGradedError("Quiz already graded"), http.StatusConflict},
		{"not found", shared.NewNotFoundError(nil, "Quiz not found"), http.StatusNotFound},
		{"unexpected", errors.New("db gone"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newTestApp()
			h := NewQuizHandler(&fakeQuizService{err: tc.err})
			app.Post("/submit", h.Submit)

			resp, out := doJSON(t, app, http.MethodPost, "/submit", `{"quiz_id": "q1", "answers": ["A", "B"]}`)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.status, out.Code)
		})
	}

	app := newTestApp()
	app.Post("/submit", NewQuizHandler(&fakeQuizService{}).Submit)
	resp, _ := doJSON(t, app, http.MethodPost, "/submit", `{"answers": ["A"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDownloadCertificate(t *testing.T) {
	svc := &fakeCertificateService{}
	app := newTestApp()
	app.Get("/certificates/:certificateId/download", NewCertificateHandler(svc).Download)

	resp, _ := doJSON(t, app, http.MethodGet, "/certificates/c1/download", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	svc.file = &dto.CertificateDownload{RedirectURL: "https://files.example.com/c1.png?sig=x"}
	resp, _ = doJSON(t, app, http.MethodGet, "/certificates/c1/download", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://files.example.com/c1.png?sig=x", resp.Header.Get(fiber.HeaderLocation))

	png := []byte("\x89PNG\r\n\x1a\nfake")
	svc.file = &dto.CertificateDownload{PNG: png, Filename: "certificate-c1.png"}
	req := httptest.NewRequest(http.MethodGet, "/certificates/c1/download", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), `filename="certificate-c1.png"`)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, png, body)
}
