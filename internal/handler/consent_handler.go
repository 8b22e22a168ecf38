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

// ConsentHandler exposes the append-only consent ledger.
type ConsentHandler struct {
	service *service.ConsentService
}

// NewConsentHandler constructs a consent handler.
func NewConsentHandler(svc *service.ConsentService) *ConsentHandler {
	return &ConsentHandler{service: svc}
}

// Record godoc
// @Summary Record consent grant or denial
// @Tags Consent
// @Accept json
// @Produce json
// @Param payload body dto.RecordConsentRequest true "Consent payload"
// @Success 201 {object} response.Envelope
// @Router /consents [post]
func (h *ConsentHandler) Record(c *gin.Context) {
	var req dto.RecordConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid consent payload"))
		return
	}
	record, err := h.service.RecordConsent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Withdraw godoc
// @Summary Withdraw an active consent grant
// @Tags Consent
// @Accept json
// @Produce json
// @Param payload body dto.WithdrawConsentRequest true "Withdrawal payload"
// @Success 201 {object} response.Envelope
// @Router /consents/withdraw [post]
func (h *ConsentHandler) Withdraw(c *gin.Context) {
	var req dto.WithdrawConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid withdrawal payload"))
		return
	}
	record, err := h.service.Withdraw(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Status godoc
// @Summary Current consent status for a subject
// @Tags Consent
// @Produce json
// @Param subjectId path string true "Subject ID"
// @Param type query string true "Consent type"
// @Success 200 {object} response.Envelope
// @Router /consents/{subjectId}/status [get]
func (h *ConsentHandler) Status(c *gin.Context) {
	subjectID := c.Param("subjectId")
	consentType := models.ConsentType(c.Query("type"))
	if !models.ValidConsentType(consentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported consent type"))
		return
	}
	status, err := h.service.CurrentStatus(c.Request.Context(), subjectID, consentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.ConsentStatusResponse{
		SubjectID:   subjectID,
		ConsentType: consentType,
		Status:      status,
	}, nil)
}

// History godoc
// @Summary Consent history for a subject
// @Tags Consent
// @Produce json
// @Param subjectId path string true "Subject ID"
// @Param type query string true "Consent type"
// @Success 200 {object} response.Envelope
// @Router /consents/{subjectId}/history [get]
func (h *ConsentHandler) History(c *gin.Context) {
	consentType := models.ConsentType(c.Query("type"))
	if !models.ValidConsentType(consentType) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unsupported consent type"))
		return
	}
	records, err := h.service.History(c.Request.Context(), c.Param("subjectId"), consentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}
