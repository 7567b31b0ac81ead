package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type LeaderboardHandler struct {
	leaderboardSvc LeaderboardServiceInterface
}

func NewLeaderboardHandler(leaderboardSvc LeaderboardServiceInterface) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardSvc: leaderboardSvc,
	}
}

// @Summary XP leaderboard
// @Description Users ranked by total XP, plus the caller's own rank
// @Tags leaderboard
// @Produce json
// @Security Bearer
// @Param limit query int false "Limit results (1-100)" default(50)
// @Success 200 {object} shared.Response{data=dto.LeaderboardResponse}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Router /api/v1/leaderboard [get]
func (h *LeaderboardHandler) GetLeaderboard(c *fiber.Ctx) error {
	var query dto.LeaderboardQuery
	if err := c.QueryParser(&query); err != nil {
		return shared.NewBadRequestError(err, "Invalid query parameters")
	}

	if err := query.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	leaderboard, err := h.leaderboardSvc.Leaderboard(c.UserContext(), currentUserID(c), query.Limit)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", leaderboard)
}
