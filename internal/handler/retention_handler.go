package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/service"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// RetentionHandler exposes the manual retention trigger.
type RetentionHandler struct {
	service *service.RetentionService
}

// NewRetentionHandler constructs a retention handler.
func NewRetentionHandler(svc *service.RetentionService) *RetentionHandler {
	return &RetentionHandler{service: svc}
}

// Run godoc
// @Summary Run a retention pass now
// @Description Flags notes past their retention period and deletes notes past auto-delete
// @Tags Retention
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /retention/run [post]
func (h *RetentionHandler) Run(c *gin.Context) {
	report, err := h.service.RunPass(c.Request.Context(), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
