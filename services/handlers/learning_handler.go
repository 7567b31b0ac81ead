package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type LearningHandler struct {
	progressSvc ProgressServiceInterface
}

func NewLearningHandler(progressSvc ProgressServiceInterface) *LearningHandler {
	return &LearningHandler{
		progressSvc: progressSvc,
	}
}

// @Summary Continue watching
// @Description Up to three unfinished videos, most recently imported first
// @Tags learning
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=[]dto.VideoResponse}
// @Router /api/v1/learning/continue-watching [get]
func (h *LearningHandler) ContinueWatching(c *fiber.Ctx) error {
	videos, err := h.progressSvc.ListContinueWatching(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", videos)
}

// @Summary Completed
// @Description Recently completed standalone videos and fully completed playlists
// @Tags learning
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.CompletedResponse}
// @Router /api/v1/learning/completed [get]
func (h *LearningHandler) Completed(c *fiber.Ctx) error {
	resp, err := h.progressSvc.ListCompleted(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Mark video completed
// @Description Complete a video and award XP the first time
// @Tags learning
// @Produce json
// @Security Bearer
// @Param videoId path string true "YouTube video id"
// @Success 200 {object} shared.Response{data=dto.CompletionResponse}
// @Failure 404 {object} shared.Response
// @Router /api/v1/videos/{videoId}/complete [post]
func (h *LearningHandler) MarkCompleted(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.NewBadRequestError(nil, "Video ID is required")
	}

	resp, err := h.progressSvc.MarkCompleted(c.UserContext(), currentUserID(c), videoID)
	if err != nil {
		return err
	}

	message := "Video marked as completed"
	if resp.Status == dto.CompletionStatusAlreadyCompleted {
		message = "Video was already completed"
	}
	return shared.ResponseJSON(c, http.StatusOK, message, resp)
}

// @Summary Update watch progress
// @Description Store the watched percentage; 100 completes the video
// @Tags learning
// @Accept json
// @Produce json
// @Security Bearer
// @Param videoId path string true "YouTube video id"
// @Param progressRequest body dto.UpdateProgressRequest true "Watched percentage"
// @Success 200 {object} shared.Response{data=dto.ProgressResponse}
// @Router /api/v1/videos/{videoId}/progress [put]
func (h *LearningHandler) UpdateProgress(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.NewBadRequestError(nil, "Video ID is required")
	}

	var req dto.UpdateProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.progressSvc.UpdateWatchProgress(c.UserContext(), currentUserID(c), videoID, *req.Progress)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Progress updated", resp)
}
