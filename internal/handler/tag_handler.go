package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/service"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// TagHandler exposes the tag vocabulary.
type TagHandler struct {
	service *service.TagService
}

// NewTagHandler constructs a tag handler.
func NewTagHandler(svc *service.TagService) *TagHandler {
	return &TagHandler{service: svc}
}

// Vocabulary godoc
// @Summary List tag vocabulary
// @Description Predefined taxonomy plus custom tags, ordered by usage
// @Tags Tags
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tags [get]
func (h *TagHandler) Vocabulary(c *gin.Context) {
	records, err := h.service.Vocabulary(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
