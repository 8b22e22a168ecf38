package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// ExportHandler exposes note export and bundle download.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export notes
// @Description Renders permitted notes as json, csv or pdf; denied notes land on the skipped list
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportNotesRequest true "Export payload"
// @Success 200 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export payload"))
		return
	}
	result, err := h.service.ExportNotes(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download export bundle
// @Tags Exports
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	name := filepath.Base(file.Name())
	c.Header("Content-Disposition", "attachment; filename="+name)
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
