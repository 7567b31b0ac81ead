package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type AuthHandler struct {
	authSvc AuthServiceInterface
}

func NewAuthHandler(authSvc AuthServiceInterface) *AuthHandler {
	return &AuthHandler{
		authSvc: authSvc,
	}
}

// @Summary Login or register
// @Description Verify a Firebase ID token and return the caller's profile, creating it on first login
// @Tags auth
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer <Firebase ID token>"
// @Param loginRequest body dto.LoginRequest false "ID token, when not sent as a header"
// @Success 200 {object} shared.Response{data=dto.LoginResponse}
// @Failure 401 {object} shared.Response
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request body")
		}
	}

	if req.IDToken == "" {
		if header := c.Get(fiber.HeaderAuthorization); len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
			req.IDToken = strings.TrimSpace(header[7:])
		}
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.authSvc.Login(c.UserContext(), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Login successful", resp)
}
