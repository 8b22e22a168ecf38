package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// SavedSearchHandler exposes persisted, replayable search definitions.
type SavedSearchHandler struct {
	service *service.SavedSearchService
}

// NewSavedSearchHandler constructs a saved search handler.
func NewSavedSearchHandler(svc *service.SavedSearchService) *SavedSearchHandler {
	return &SavedSearchHandler{service: svc}
}

// Create godoc
// @Summary Save a named search
// @Tags SavedSearches
// @Accept json
// @Produce json
// @Param payload body dto.CreateSavedSearchRequest true "Saved search payload"
// @Success 201 {object} response.Envelope
// @Router /saved-searches [post]
func (h *SavedSearchHandler) Create(c *gin.Context) {
	var req dto.CreateSavedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid saved search payload"))
		return
	}
	search, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, search)
}

// List godoc
// @Summary List the caller's saved searches
// @Tags SavedSearches
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /saved-searches [get]
func (h *SavedSearchHandler) List(c *gin.Context) {
	searches, err := h.service.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, searches, nil)
}

// Get godoc
// @Summary Get a saved search
// @Tags SavedSearches
// @Produce json
// @Param id path string true "Saved search ID"
// @Success 200 {object} response.Envelope
// @Router /saved-searches/{id} [get]
func (h *SavedSearchHandler) Get(c *gin.Context) {
	search, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, search, nil)
}

// Update godoc
// @Summary Update a saved search
// @Tags SavedSearches
// @Accept json
// @Produce json
// @Param id path string true "Saved search ID"
// @Param payload body dto.UpdateSavedSearchRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /saved-searches/{id} [put]
func (h *SavedSearchHandler) Update(c *gin.Context) {
	var req dto.UpdateSavedSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid saved search payload"))
		return
	}
	search, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, search, nil)
}

// Delete godoc
// @Summary Delete a saved search
// @Tags SavedSearches
// @Param id path string true "Saved search ID"
// @Success 204
// @Router /saved-searches/{id} [delete]
func (h *SavedSearchHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Run godoc
// @Summary Execute a saved search
// @Description Replays the stored query through the live access-filtered search pipeline
// @Tags SavedSearches
// @Produce json
// @Param id path string true "Saved search ID"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /saved-searches/{id}/run [post]
func (h *SavedSearchHandler) Run(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	result, err := h.service.Run(c.Request.Context(), c.Param("id"), page, pageSize, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
