package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/models"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// AuditHandler exposes read access to the audit trail.
type AuditHandler struct {
	service *service.AuditService
}

// NewAuditHandler constructs an audit handler.
func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{service: svc}
}

// Query godoc
// @Summary Query audit trail
// @Description Admins see all entries; other roles only their own activity
// @Tags Audit
// @Produce json
// @Param noteId query string false "Filter by note"
// @Param actorId query string false "Filter by actor"
// @Param action query string false "Filter by action"
// @Param success query bool false "Filter by outcome"
// @Param dateFrom query string false "RFC3339 lower bound"
// @Param dateTo query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /audit [get]
func (h *AuditHandler) Query(c *gin.Context) {
	var filter models.AuditFilter
	filter.NoteID = c.Query("noteId")
	filter.ActorID = c.Query("actorId")
	filter.Action = models.Action(c.Query("action"))
	if success := c.Query("success"); success != "" {
		if val, err := strconv.ParseBool(success); err == nil {
			filter.Success = &val
		}
	}
	if from := c.Query("dateFrom"); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = &ts
		}
	}
	if to := c.Query("dateTo"); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.service.Query(c.Request.Context(), filter, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}
