package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/dto"
	"github.com/learnproof/learnproof-api/shared"
)

type QuizHandler struct {
	quizSvc QuizServiceInterface
}

func NewQuizHandler(quizSvc QuizServiceInterface) *QuizHandler {
	return &QuizHandler{
		quizSvc: quizSvc,
	}
}

// @Summary Quiz targets
// @Description Standalone videos and playlists the caller can take a quiz on
// @Tags quiz
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=dto.QuizTargetsResponse}
// @Router /api/v1/quiz/targets [get]
func (h *QuizHandler) ListTargets(c *fiber.Ctx) error {
	resp, err := h.quizSvc.ListTargets(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", resp)
}

// @Summary Start quiz
// @Description Generate a quiz for an owned video or playlist. The answer key is withheld.
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param startRequest body dto.StartQuizRequest true "Quiz target"
// @Success 201 {object} shared.Response{data=dto.QuizStartResponse}
// @Failure 404 {object} shared.Response
// @Router /api/v1/quiz/start [post]
func (h *QuizHandler) Start(c *fiber.Ctx) error {
	var req dto.StartQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.quizSvc.StartQuiz(c.UserContext(), currentUserID(c), req.TargetType, req.TargetID)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusCreated, "Quiz started", resp)
}

// @Summary Submit quiz
// @Description Grade a quiz once. Passing awards XP and issues a certificate.
// @Tags quiz
// @Accept json
// @Produce json
// @Security Bearer
// @Param submitRequest body dto.SubmitQuizRequest true "Answers in question order"
// @Success 200 {object} shared.Response{data=dto.QuizResultResponse}
// @Failure 409 {object} shared.Response "Quiz already graded"
// @Router /api/v1/quiz/submit [post]
func (h *QuizHandler) Submit(c *fiber.Ctx) error {
	var req dto.SubmitQuizRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request body")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.quizSvc.Submit(c.UserContext(), currentUserID(c), req.QuizID, req.Answers)
	if err != nil {
		return err
	}

	message := "Quiz failed"
	if resp.Passed {
		message = "Quiz passed"
	}
	return shared.ResponseJSON(c, http.StatusOK, message, resp)
}
