package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// BulkHandler exposes bulk mutation submission and reports.
type BulkHandler struct {
	service *service.BulkService
}

// NewBulkHandler constructs a bulk handler.
func NewBulkHandler(svc *service.BulkService) *BulkHandler {
	return &BulkHandler{service: svc}
}

// Submit godoc
// @Summary Submit bulk mutation
// @Description Applies one mutation kind to many notes; partial failures are tolerated
// @Tags Bulk
// @Accept json
// @Produce json
// @Param payload body dto.SubmitBulkRequest true "Bulk payload"
// @Success 202 {object} response.Envelope
// @Router /bulk [post]
func (h *BulkHandler) Submit(c *gin.Context) {
	var req dto.SubmitBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload"))
		return
	}
	ack, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, ack, nil)
}

// Report godoc
// @Summary Bulk operation report
// @Tags Bulk
// @Produce json
// @Param id path string true "Operation ID"
// @Success 200 {object} response.Envelope
// @Router /bulk/{id} [get]
func (h *BulkHandler) Report(c *gin.Context) {
	op, err := h.service.Report(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, op, nil)
}
