package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type UserHandler struct {
	userSvc     UserServiceInterface
	activitySvc ActivityServiceInterface
}

func NewUserHandler(userSvc UserServiceInterface, activitySvc ActivityServiceInterface) *UserHandler {
	return &UserHandler{
		userSvc:     userSvc,
		activitySvc: activitySvc,
	}
}

// @Summary Get user profile
// @Description Profile with XP, level and streak
// @Tags user
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <firebase_id_token>)
// @Success 200 {object} shared.Response{data=dto.UserProfileResponse}
// @Router /api/v1/user/profile [get]
func (h *UserHandler) GetUserProfile(c *fiber.Ctx) error {
	profile, err := h.userSvc.GetProfile(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", profile)
}

// @Summary Activity graph
// @Description Activity count per day for the last N days, oldest first
// @Tags user
// @Produce json
// @Security Bearer
// @Param Authorization header string true "User Bearer Token" default(Bearer <firebase_id_token>)
// @Param days query int false "Number of days (1-90)" default(14)
// @Success 200 {object} shared.Response{data=[]dto.ActivityDay}
// @Router /api/v1/user/activity [get]
func (h *UserHandler) GetActivityGraph(c *fiber.Ctx) error {
	var query dto.ActivityQuery
	if err := c.QueryParser(&query); err != nil {
		return shared.NewBadRequestError(err, "Invalid query parameters")
	}

	if err := query.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	graph, err := h.activitySvc.Graph(c.UserContext(), currentUserID(c), query.Days)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", graph)
}
