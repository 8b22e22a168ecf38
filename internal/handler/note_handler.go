package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/coaching-notes-api/internal/dto"
	"github.com/noah-isme/coaching-notes-api/internal/service"
	appErrors "github.com/noah-isme/coaching-notes-api/pkg/errors"
	"github.com/noah-isme/coaching-notes-api/pkg/response"
)

// NoteHandler exposes the note CRUD and privacy endpoints.
type NoteHandler struct {
	service *service.NoteService
}

// NewNoteHandler constructs a note handler.
func NewNoteHandler(svc *service.NoteService) *NoteHandler {
	return &NoteHandler{service: svc}
}

// Create godoc
// @Summary Create note
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body dto.CreateNoteRequest true "Note payload"
// @Success 201 {object} response.Envelope
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	var req dto.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload"))
		return
	}
	note, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, note)
}

// Get godoc
// @Summary Get note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Param reason query string false "Access reason when the note requires one"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.service.Get(c.Request.Context(), c.Param("id"), c.Query("reason"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Update godoc
// @Summary Update note content
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.UpdateNoteRequest true "Partial patch"
// @Success 200 {object} response.Envelope
// @Router /notes/{id} [patch]
func (h *NoteHandler) Update(c *gin.Context) {
	var req dto.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid note payload"))
		return
	}
	note, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Delete godoc
// @Summary Delete note
// @Tags Notes
// @Param id path string true "Note ID"
// @Param reason query string false "Access reason"
// @Success 204
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), c.Query("reason"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Share godoc
// @Summary Share note with users
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.ShareRequest true "User ids"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/share [post]
func (h *NoteHandler) Share(c *gin.Context) {
	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload"))
		return
	}
	note, err := h.service.Share(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Unshare godoc
// @Summary Revoke note shares
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.ShareRequest true "User ids"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/unshare [post]
func (h *NoteHandler) Unshare(c *gin.Context) {
	var req dto.ShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid share payload"))
		return
	}
	note, err := h.service.Unshare(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// ChangePrivacy godoc
// @Summary Change note privacy settings
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.PrivacyChangeRequest true "Privacy patch"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/privacy [put]
func (h *NoteHandler) ChangePrivacy(c *gin.Context) {
	var req dto.PrivacyChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid privacy payload"))
		return
	}
	note, err := h.service.ChangePrivacy(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Archive godoc
// @Summary Archive note
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.ArchiveRequest false "Archive reason"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/archive [post]
func (h *NoteHandler) Archive(c *gin.Context) {
	var req dto.ArchiveRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive payload"))
		return
	}
	note, err := h.service.Archive(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// Restore godoc
// @Summary Restore archived note
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Param reason query string false "Access reason"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/restore [post]
func (h *NoteHandler) Restore(c *gin.Context) {
	note, err := h.service.Restore(c.Request.Context(), c.Param("id"), c.Query("reason"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}

// AssignCategory godoc
// @Summary Assign note category
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body dto.CategoryAssignRequest true "Category"
// @Success 200 {object} response.Envelope
// @Router /notes/{id}/category [put]
func (h *NoteHandler) AssignCategory(c *gin.Context) {
	var req dto.CategoryAssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid category payload"))
		return
	}
	note, err := h.service.AssignCategory(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, note, nil)
}
