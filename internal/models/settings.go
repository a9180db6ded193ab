package models

// Default settings applied when a user has no settings row yet.
// TariffPerKwh matches the PLN R1/900VA-RTM flat residential tariff.
const (
	DefaultTariffPerKwh         = 1444.70
	DefaultMonthlyBudget        = 500000
	DefaultBudgetAlertThreshold = 85
	DefaultAdminFee             = 0
	DefaultTaxPercent           = 0
)

// UserSettings holds per-user tariff and budget configuration. Monetary
// amounts are in Rupiah.
type UserSettings struct {
	Base
	UserID               uint    `gorm:"not null;uniqueIndex" json:"user_id"`
	MonthlyBudget        float64 `gorm:"not null" json:"monthly_budget"`
	TariffPerKwh         float64 `gorm:"not null" json:"tariff_per_kwh"`
	AdminFee             float64 `gorm:"not null;default:0" json:"admin_fee"`
	TaxPercent           float64 `gorm:"not null;default:0" json:"tax_percent"`
	BudgetAlertThreshold float64 `gorm:"not null" json:"budget_alert_threshold"`
}

// DefaultUserSettings returns a settings row populated with the defaults.
func DefaultUserSettings(userID uint) *UserSettings {
	return &UserSettings{
		UserID:               userID,
		MonthlyBudget:        DefaultMonthlyBudget,
		TariffPerKwh:         DefaultTariffPerKwh,
		AdminFee:             DefaultAdminFee,
		TaxPercent:           DefaultTaxPercent,
		BudgetAlertThreshold: DefaultBudgetAlertThreshold,
	}
}
