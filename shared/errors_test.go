package shared

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("submit: %w", NewAlreadyGradedError("Quiz already graded"))

	assert.True(t, IsKind(err, KindAlreadyGraded))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindInternal))
	assert.False(t, IsKind(nil, KindInternal))

	appErr, ok := GetAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)
}

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewUpstreamError(cause, "Failed to fetch content metadata")

	assert.Equal(t, "UPSTREAM_ERROR: Failed to fetch content metadata: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "NOT_FOUND: Video not found", NewNotFoundError(nil, "Video not found").Error())
}

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/app", func(c *fiber.Ctx) error {
		return NewValidationError([]string{"url is required"}, "Validation failed")
	})
	app.Get("/fiber", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusMethodNotAllowed, "Nope")
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return errors.New("secret database detail")
	})

	cases := []struct {
		path    string
		status  int
		message string
	}{
		{"/app", http.StatusBadRequest, "Validation failed"},
		{"/fiber", http.StatusMethodNotAllowed, "Nope"},
		{"/plain", http.StatusInternalServerError, "Internal Server Error"},
		{"/missing", http.StatusNotFound, "Cannot GET /missing"},
	}
	for _, tc := range cases {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tc.path, nil), -1)
		require.NoError(t, err)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		var body Response
		require.NoError(t, JSONUnmarshal(raw, &body), tc.path)
		assert.Equal(t, tc.status, resp.StatusCode, tc.path)
		assert.Equal(t, tc.status, body.Code, tc.path)
		assert.Equal(t, tc.message, body.Message, tc.path)
		assert.NotContains(t, string(raw), "secret", tc.path)
	}
}
