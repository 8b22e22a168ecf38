package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// SearchHandler exposes scored, access-filtered note search.
type SearchHandler struct {
	service *service.SearchService
}

// NewSearchHandler constructs a search handler.
func NewSearchHandler(svc *service.SearchService) *SearchHandler {
	return &SearchHandler{service: svc}
}

// Search godoc
// @Summary Search notes
// @Description Structural filters plus weighted term scoring over title, body and tags
// @Tags Search
// @Accept json
// @Produce json
// @Param payload body dto.SearchRequest true "Search query"
// @Success 200 {object} response.Envelope
// @Router /search [post]
func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid search payload"))
		return
	}
	result, err := h.service.Search(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
