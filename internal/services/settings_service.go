package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "meterku/internal/errors"
	"meterku/internal/models"
)

// settingsService handles per-user tariff and budget settings.
type settingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new SettingsServicer.
func NewSettingsService(db *gorm.DB) SettingsServicer {
	return &settingsService{db: db}
}

// GetSettings returns the user's settings, creating a row with defaults on
// first access.
func (s *settingsService) GetSettings(userID uint) (*models.UserSettings, error) {
	var settings models.UserSettings
	err := s.db.Where("user_id = ?", userID).First(&settings).Error
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	defaults := models.DefaultUserSettings(userID)
	if err := s.db.Create(defaults).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return defaults, nil
}

// UpdateSettings applies a partial update to the user's settings.
func (s *settingsService) UpdateSettings(userID uint, update SettingsUpdate) (*models.UserSettings, error) {
	settings, err := s.GetSettings(userID)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if update.MonthlyBudget != nil {
		if *update.MonthlyBudget < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "monthly budget cannot be negative")
		}
		updates["monthly_budget"] = *update.MonthlyBudget
	}
	if update.TariffPerKwh != nil {
		if *update.TariffPerKwh <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tariff must be greater than zero")
		}
		updates["tariff_per_kwh"] = *update.TariffPerKwh
	}
	if update.AdminFee != nil {
		if *update.AdminFee < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "admin fee cannot be negative")
		}
		updates["admin_fee"] = *update.AdminFee
	}
	if update.TaxPercent != nil {
		if *update.TaxPercent < 0 || *update.TaxPercent > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "tax percent must be between 0 and 100")
		}
		updates["tax_percent"] = *update.TaxPercent
	}
	if update.BudgetAlertThreshold != nil {
		if *update.BudgetAlertThreshold < 0 || *update.BudgetAlertThreshold > 100 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be between 0 and 100")
		}
		updates["budget_alert_threshold"] = *update.BudgetAlertThreshold
	}

	if len(updates) > 0 {
		if err := s.db.Model(settings).Updates(updates).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return settings, nil
}
