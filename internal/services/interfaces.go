package services

import (
	"time"

	"gorm.io/gorm"

	"meterku/internal/analytics"
	"meterku/internal/models"
	"meterku/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id uint) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID uint, tokenHash string) error
	GetRefreshTokenHash(userID uint) (string, error)
}

// SettingsUpdate holds optional settings fields for a partial update.
type SettingsUpdate struct {
	MonthlyBudget        *float64
	TariffPerKwh         *float64
	AdminFee             *float64
	TaxPercent           *float64
	BudgetAlertThreshold *float64
}

// SettingsServicer defines the contract for per-user tariff/budget settings.
type SettingsServicer interface {
	GetSettings(userID uint) (*models.UserSettings, error)
	UpdateSettings(userID uint, update SettingsUpdate) (*models.UserSettings, error)
}

// OutcomeStatus classifies the result of a reading write. Non-created
// statuses are signals the caller disambiguates, not failures.
type OutcomeStatus string

const (
	OutcomeCreated          OutcomeStatus = "created"
	OutcomeUpdated          OutcomeStatus = "updated"
	OutcomeDeleted          OutcomeStatus = "deleted"
	OutcomeDuplicateDate    OutcomeStatus = "duplicate_date"
	OutcomeAnomaly          OutcomeStatus = "anomaly_detected"
	OutcomeBackdateRequired OutcomeStatus = "backdate_confirmation_required"
	OutcomeBackdateBlocked  OutcomeStatus = "backdate_blocked"
)

// AnomalyInfo describes a reading-mode entry whose kWh exceeds the last
// known balance. Balances cannot rise without a top-up, so the entry needs
// to be redirected to top-up mode or acknowledged as a correction.
type AnomalyInfo struct {
	EnteredKwh float64   `json:"entered_kwh"`
	LastKwh    float64   `json:"last_kwh"`
	LastDate   time.Time `json:"last_date"`
	Message    string    `json:"message"`
}

// WriteOutcome is the typed result of a reading write. Which extra fields
// are populated depends on Status.
type WriteOutcome struct {
	Status   OutcomeStatus              `json:"status"`
	Reading  *models.Reading            `json:"reading,omitempty"`
	Existing *models.Reading            `json:"existing,omitempty"`
	Anomaly  *AnomalyInfo               `json:"anomaly,omitempty"`
	Preview  *BackdatePreview           `json:"preview,omitempty"`
	Batch    *models.RecalculationBatch `json:"batch,omitempty"`
}

// CreateReadingInput carries a new meter entry plus the disambiguation flags
// that resolve duplicate/anomaly/backdate signals on retry.
type CreateReadingInput struct {
	Date        time.Time
	Kind        models.ReadingKind
	KwhValue    float64
	TokenCost   *float64
	TokenAmount *float64
	Notes       string
	PhotoRef    string

	ReplaceExisting      bool
	AcknowledgeAnomaly   bool
	ConfirmRecalculation bool
}

// UpdateReadingInput carries editable reading fields. The entry's kind and
// date are fixed after creation.
type UpdateReadingInput struct {
	KwhValue    *float64
	TokenCost   *float64
	TokenAmount *float64
	Notes       *string
	PhotoRef    *string

	ConfirmRecalculation bool
}

// KwhUpdate is one row of a bulk balance adjustment.
type KwhUpdate struct {
	ReadingID uint
	NewKwh    float64
}

// ReadingServicer defines the contract for reading storage and the write
// protocol (duplicate guard, anomaly detection, backdate interception).
type ReadingServicer interface {
	CreateReading(userID uint, input CreateReadingInput) (*WriteOutcome, error)
	UpdateReading(userID, readingID uint, input UpdateReadingInput) (*WriteOutcome, error)
	DeleteReading(userID, readingID uint, confirmRecalculation bool) (*WriteOutcome, error)

	GetUserReadings(userID uint, page pagination.PageRequest, from, to *time.Time) (*pagination.PageResponse[models.Reading], error)
	GetReadingByID(userID, readingID uint) (*models.Reading, error)
	GetAllReadings(userID uint, limit int) ([]models.Reading, error)
	GetLastReadingBeforeDate(userID uint, date time.Time) (*models.Reading, error)
	GetReadingsAfterDate(userID uint, date time.Time) ([]models.Reading, error)
	CheckReadingExists(userID uint, date time.Time) (*models.Reading, error)
	BulkUpdateKwh(tx *gorm.DB, updates []KwhUpdate) error
}

// IssueSeverity classifies a backdate validation issue.
type IssueSeverity string

const (
	SeverityBlock IssueSeverity = "BLOCK"
	SeverityWarn  IssueSeverity = "WARN"
)

// ValidationIssue is one finding from backdate validation. Any BLOCK issue
// aborts the operation with nothing written.
type ValidationIssue struct {
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// PreviewEntry shows how one affected reading's balance would shift.
type PreviewEntry struct {
	ReadingID  uint      `json:"reading_id"`
	EventDate  time.Time `json:"event_date"`
	IsTopUp    bool      `json:"is_top_up"`
	CurrentKwh float64   `json:"current_kwh"`
	NewKwh     float64   `json:"new_kwh"`
}

// BackdatePreview is the pure, re-computable preview of a backdate repair:
// the constant offset, every affected reading's before/after balance, and
// the validation issues found.
type BackdatePreview struct {
	TriggerType models.TriggerType `json:"trigger_type"`
	KwhOffset   float64            `json:"kwh_offset"`
	Entries     []PreviewEntry     `json:"entries"`
	Issues      []ValidationIssue  `json:"issues,omitempty"`
	Blocked     bool               `json:"blocked"`
}

// RecalculationServicer defines the contract for the backdate recalculation
// engine: preview, atomic apply, and time-boxed rollback.
type RecalculationServicer interface {
	PreviewBackdate(userID uint, trigger models.TriggerType, date time.Time, kwhOffset float64) (*BackdatePreview, error)
	ApplyBackdate(tx *gorm.DB, userID uint, preview *BackdatePreview) (*models.RecalculationBatch, error)
	GetUserBatches(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecalculationBatch], error)
	GetBatchByID(userID uint, batchID string) (*models.RecalculationBatch, error)
	RollbackBatch(userID uint, batchID string) (*models.RecalculationBatch, error)
}

// TopUpEstimate is the kWh credit a purchase amount buys under the user's
// tariff settings.
type TopUpEstimate struct {
	TokenCost    float64 `json:"token_cost"`
	AdminFee     float64 `json:"admin_fee"`
	TaxPercent   float64 `json:"tax_percent"`
	TariffPerKwh float64 `json:"tariff_per_kwh"`
	EstimatedKwh float64 `json:"estimated_kwh"`
}

// AnalyticsServicer exposes the derived series computed from a user's
// readings. Everything is recomputed from the stored readings on each call.
type AnalyticsServicer interface {
	GetDailyUsage(userID uint, days int) ([]analytics.DailyUsagePoint, error)
	GetWeeklyUsage(userID uint, weeks int) ([]analytics.WeeklyUsage, error)
	GetMonthlyUsage(userID uint, months int) ([]analytics.MonthlyUsage, error)
	GetBurnRate(userID uint) (*analytics.BurnRateProjection, error)
	GetEfficiencyScore(userID uint) (*analytics.EfficiencyScore, error)
	EstimateTopUp(userID uint, tokenCost float64) (*TopUpEstimate, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID uint, action, resourceType string, resourceID uint, ipAddress string, changes map[string]interface{})
}
