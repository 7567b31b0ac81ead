package services

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeVerifier map[string]dto.Identity

func (f fakeVerifier) Verify(_ context.Context, token string) (*dto.Identity, error) {
	identity, ok := f[token]
	if !ok {
		return nil, shared.NewUnauthorizedError(nil, "Invalid credentials")
	}
	return &identity, nil
}

func newTestAuth(t *testing.T) (*AuthService, *testEnv) {
	env := newTestEnv(t, nil, nil)
	auth := &AuthService{}
	auth.setup(fakeVerifier{
		"good-token": {Subject: "firebase-uid-1", Email: "ada@example.com", Name: "Ada"},
	}, env.users)
	return auth, env
}

func TestExtractTokenFromHeader(t *testing.T) {
	token, err := ExtractTokenFromHeader("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = ExtractTokenFromHeader("bearer  abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Token"} {
		_, err := ExtractTokenFromHeader(header)
		assert.Error(t, err, "header %q", header)
	}
}

func TestRequiredAuth(t *testing.T) {
	auth, _ := newTestAuth(t)

	app := fiber.New(fiber.Config{ErrorHandler: shared.ErrorHandler})
	app.All("/me", auth.RequiredAuth(), func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(shared.FirebaseUID).(string) + "|" + c.Locals(shared.UserID).(string))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer bad-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer good-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.True(t, strings.HasPrefix(string(body), "firebase-uid-1|"))

	req = httptest.NewRequest(fiber.MethodPost, "/me", strings.NewReader(`{"idToken":"good-token"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLoginCreatesProfileOnce(t *testing.T) {
	auth, env := newTestAuth(t)
	ctx := context.Background()

	first, err := auth.Login(ctx, dto.LoginRequest{IDToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-1", first.User.UID)
	assert.Equal(t, 1, first.User.Level)
	assert.Equal(t, 100, first.User.XPToNextLevel)

	second, err := auth.Login(ctx, dto.LoginRequest{IDToken: "good-token"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	var count int64
	require.NoError(t, env.db.Table("user_profiles").Count(&count).Error)
	assert.EqualValues(t, 1, count)

	_, err = auth.Login(ctx, dto.LoginRequest{IDToken: "nope"})
	assert.True(t, shared.IsKind(err, shared.KindAuthFailure))
}
