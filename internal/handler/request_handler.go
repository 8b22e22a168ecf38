package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/models"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// RequestHandler exposes the data subject request workflow.
type RequestHandler struct {
	service *service.RequestService
}

// NewRequestHandler constructs a request handler.
func NewRequestHandler(svc *service.RequestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Submit godoc
// @Summary Submit data subject request
// @Tags DataSubjectRequests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitDataSubjectRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	var req dto.SubmitDataSubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload"))
		return
	}
	request, err := h.service.Submit(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// Get godoc
// @Summary Get data subject request
// @Tags DataSubjectRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// List godoc
// @Summary List data subject requests
// @Tags DataSubjectRequests
// @Produce json
// @Param subjectId query string false "Filter by subject"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	requests, err := h.service.List(c.Request.Context(),
		c.Query("subjectId"), models.RequestStatus(c.Query("status")), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// UpdateStatus godoc
// @Summary Advance request workflow
// @Description submitted → in_review → fulfilled|rejected; fulfilling an erasure request deletes the subject's notes
// @Tags DataSubjectRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateRequestStatusRequest true "Target status"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/status [put]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload"))
		return
	}
	request, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}
