package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type ContentHandler struct {
	contentSvc ContentServiceInterface
}

func NewContentHandler(contentSvc ContentServiceInterface) *ContentHandler {
	return &ContentHandler{
		contentSvc: contentSvc,
	}
}

// @Summary Import content
// @Description Resolve a YouTube video or playlist URL into metadata without saving it
// @Tags content
// @Accept json
// @Produce json
// @Security Bearer
// @Param importRequest body dto.ImportRequest true "YouTube URL"
// @Success 200 {object} shared.Response{data=dto.ContentMetadata}
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 502 {object} shared.Response
// @Router /api/v1/content/import [post]
func (h *ContentHandler) Import(c *fiber.Ctx) error {
	var req dto.ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	meta, err := h.contentSvc.Import(c.UserContext(), currentUserID(c), req.URL)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Content resolved", meta)
}

// @Summary Save content
// @Description Save resolved video or playlist metadata to the caller's library
// @Tags content
// @Accept json
// @Produce json
// @Security Bearer
// @Param saveRequest body dto.SaveContentRequest true "Resolved metadata"
// @Success 201 {object} shared.Response{data=dto.SaveContentResponse}
// @Success 200 {object} shared.Response{data=dto.SaveContentResponse} "Already saved"
// @Router /api/v1/content/save [post]
func (h *ContentHandler) Save(c *fiber.Ctx) error {
	var req dto.SaveContentRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.contentSvc.Save(c.UserContext(), currentUserID(c), req.ContentMetadata)
	if err != nil {
		return err
	}

	if resp.Status == dto.SaveStatusDuplicate {
		return shared.ResponseJSON(c, http.StatusOK, resp.Message, resp)
	}
	return shared.ResponseJSON(c, http.StatusCreated, resp.Message, resp)
}

// @Summary My learnings
// @Description Paginated standalone videos plus all playlists with their videos
// @Tags learning
// @Produce json
// @Security Bearer
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Items per page" default(10)
// @Param search query string false "Case-insensitive search on name and description"
// @Success 200 {object} shared.Response{data=dto.MyLearningsResponse}
// @Router /api/v1/learning/my-learnings [get]
func (h *ContentHandler) ListMyLearnings(c *fiber.Ctx) error {
	var query dto.MyLearningsQuery
	if err := c.QueryParser(&query); err != nil {
		return shared.NewBadRequestError(err, "Invalid query parameters")
	}

	if err := query.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.contentSvc.ListMyLearnings(c.UserContext(), currentUserID(c), query)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Classroom
// @Description A video with its playlist context
// @Tags learning
// @Produce json
// @Security Bearer
// @Param videoId path string true "YouTube video id"
// @Success 200 {object} shared.Response{data=dto.ClassroomResponse}
// @Failure 404 {object} shared.Response
// @Router /api/v1/classroom/{videoId} [get]
func (h *ContentHandler) GetClassroom(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.NewBadRequestError(nil, "Video ID is required")
	}

	resp, err := h.contentSvc.GetClassroom(c.UserContext(), currentUserID(c), videoID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Delete video
// @Description Remove a video from the caller's library
// @Tags content
// @Produce json
// @Security Bearer
// @Param videoId path string true "YouTube video id"
// @Success 200 {object} shared.Response{data=dto.DeleteContentResponse}
// @Router /api/v1/videos/{videoId} [delete]
func (h *ContentHandler) DeleteVideo(c *fiber.Ctx) error {
	videoID := c.Params("videoId")
	if videoID == "" {
		return shared.NewBadRequestError(nil, "Video ID is required")
	}

	resp, err := h.contentSvc.DeleteVideo(c.UserContext(), currentUserID(c), videoID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Video deleted", resp)
}

// @Summary Delete playlist
// @Description Remove a playlist and all of its videos from the caller's library
// @Tags content
// @Produce json
// @Security Bearer
// @Param playlistId path string true "YouTube playlist id"
// @Success 200 {object} shared.Response{data=dto.DeleteContentResponse}
// @Router /api/v1/playlists/{playlistId} [delete]
func (h *ContentHandler) DeletePlaylist(c *fiber.Ctx) error {
	playlistID := c.Params("playlistId")
	if playlistID == "" {
		return shared.NewBadRequestError(nil, "Playlist ID is required")
	}

	resp, err := h.contentSvc.DeletePlaylist(c.UserContext(), currentUserID(c), playlistID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Playlist deleted", resp)
}
