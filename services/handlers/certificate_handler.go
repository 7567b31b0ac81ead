package handlers

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/learnproof/learnproof-api/shared"
)

type CertificateHandler struct {
	certificateSvc CertificateServiceInterface
}

func NewCertificateHandler(certificateSvc CertificateServiceInterface) *CertificateHandler {
	return &CertificateHandler{
		certificateSvc: certificateSvc,
	}
}

// @Summary List certificates
// @Description Certificates earned by the caller, newest first
// @Tags certificates
// @Produce json
// @Security Bearer
// @Success 200 {object} shared.Response{data=[]dto.CertificateResponse}
// @Router /api/v1/certificates [get]
func (h *CertificateHandler) List(c *fiber.Ctx) error {
	certs, err := h.certificateSvc.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, http.StatusOK, "Success", certs)
}

// @Summary Download certificate
// @Description Redirects to the stored PNG or streams it when no object store is configured
// @Tags certificates
// @Produce png
// @Param certificateId path string true "Certificate id"
// @Success 200 {file} binary
// @Success 302 "Redirect to the stored certificate"
// @Failure 404 {object} shared.Response
// @Router /api/v1/certificates/{certificateId}/download [get]
func (h *CertificateHandler) Download(c *fiber.Ctx) error {
	certificateID := c.Params("certificateId")
	if certificateID == "" {
		return shared.NewBadRequestError(nil, "Certificate ID is required")
	}

	file, err := h.certificateSvc.Download(c.UserContext(), certificateID)
	if err != nil {
		return err
	}

	if file.RedirectURL != "" {
		return c.Redirect(file.RedirectURL, fiber.StatusFound)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", file.Filename))
	c.Set(fiber.HeaderCacheControl, "private, max-age=3600")
	return c.Status(fiber.StatusOK).Send(file.PNG)
}
