package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-desk-api/internal/models"
	appErrors "github.com/noah-isme/tutor-desk-api/pkg/errors"
	"github.com/noah-isme/tutor-desk-api/pkg/response"
)

type settingsService interface {
	Get(ctx context.Context) (*models.Tutor, error)
	Update(ctx context.Context, req models.SettingsUpdate) (*models.Tutor, error)
	UpdateSecurity(ctx context.Context, userID string, req models.SecurityUpdateRequest) error
}

// SettingsHandler exposes the tutor profile and credential endpoints.
type SettingsHandler struct {
	service settingsService
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(svc settingsService) *SettingsHandler {
	return &SettingsHandler{service: svc}
}

// Get godoc
// @Summary Tutor settings
// @Tags Settings
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /settings [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	tutor, err := h.service.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// Update godoc
// @Summary Update name, phone and bio
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.SettingsUpdate true "Settings"
// @Success 200 {object} response.Envelope
// @Router /settings [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	var req models.SettingsUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid settings payload"))
		return
	}
	tutor, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tutor, nil)
}

// UpdateSecurity godoc
// @Summary Change login email and/or password
// @Description The current email and password must match the signed-in account.
// @Tags Settings
// @Accept json
// @Produce json
// @Param payload body models.SecurityUpdateRequest true "Credentials"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /settings/security [put]
func (h *SettingsHandler) UpdateSecurity(c *gin.Context) {
	claims := actorFromContext(c)
	if claims == nil {
		return
	}
	var req models.SecurityUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Invalid(err, "invalid security payload"))
		return
	}
	if err := h.service.UpdateSecurity(c.Request.Context(), claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
