package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "meterku/internal/errors"
	"meterku/internal/services"
)

// SettingsHandler handles tariff and budget settings requests.
type SettingsHandler struct {
	settingsService services.SettingsServicer
	auditService    services.AuditServicer
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(settingsService services.SettingsServicer, auditService services.AuditServicer) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService, auditService: auditService}
}

// UpdateSettingsRequest represents the request payload for a partial
// settings update. Omitted fields keep their current values.
type UpdateSettingsRequest struct {
	MonthlyBudget        *float64 `json:"monthly_budget" binding:"omitempty,min=0"`
	TariffPerKwh         *float64 `json:"tariff_per_kwh" binding:"omitempty,gt=0"`
	AdminFee             *float64 `json:"admin_fee" binding:"omitempty,min=0"`
	TaxPercent           *float64 `json:"tax_percent" binding:"omitempty,min=0,max=100"`
	BudgetAlertThreshold *float64 `json:"budget_alert_threshold" binding:"omitempty,min=0,max=100"`
}

// GetSettings returns the user's settings.
// @Summary     Get settings
// @Description Get the user's tariff and budget settings, creating defaults on first access
// @Tags        settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} models.UserSettings "Settings"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settings [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	settings, err := h.settingsService.GetSettings(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

// UpdateSettings applies a partial settings update.
// @Summary     Update settings
// @Description Update any subset of the user's tariff and budget settings
// @Tags        settings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body UpdateSettingsRequest true "Fields to update"
// @Success     200 {object} models.UserSettings "Updated settings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /settings [put]
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	settings, err := h.settingsService.UpdateSettings(userID, services.SettingsUpdate{
		MonthlyBudget:        req.MonthlyBudget,
		TariffPerKwh:         req.TariffPerKwh,
		AdminFee:             req.AdminFee,
		TaxPercent:           req.TaxPercent,
		BudgetAlertThreshold: req.BudgetAlertThreshold,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_SETTINGS", "user_settings", settings.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"settings": settings})
}
