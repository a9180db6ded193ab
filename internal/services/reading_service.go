package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"meterku/internal/analytics"
	apperrors "meterku/internal/errors"
	"meterku/internal/models"
	"meterku/internal/pagination"
)

// readingService handles reading storage and the write protocol: the
// duplicate-date guard, anomaly detection, and backdate interception.
type readingService struct {
	db       *gorm.DB
	recalc   RecalculationServicer
	settings SettingsServicer
}

// NewReadingService creates a new ReadingServicer.
func NewReadingService(db *gorm.DB, recalc RecalculationServicer, settings SettingsServicer) ReadingServicer {
	return &readingService{db: db, recalc: recalc, settings: settings}
}

// startOfDay truncates a timestamp to midnight in its own location.
// Duplicate and before/after checks work at calendar-day granularity even
// though full timestamps are stored.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CreateReading inserts a new meter entry, running it through the write
// protocol. Duplicate dates, anomalies, and pending backdate repairs come
// back as signal outcomes for the caller to resolve and retry; only
// infrastructure failures are errors.
func (s *readingService) CreateReading(userID uint, input CreateReadingInput) (*WriteOutcome, error) {
	if input.KwhValue < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kWh value cannot be negative")
	}
	if input.Date.IsZero() {
		input.Date = time.Now()
	}

	switch input.Kind {
	case models.ReadingKindTopUp:
		if input.TokenCost == nil || *input.TokenCost <= 0 {
			return nil, apperrors.ErrTopUpFieldsRequired
		}
		if input.TokenAmount == nil {
			// Estimate the credited kWh from the user's tariff settings.
			settings, err := s.settings.GetSettings(userID)
			if err != nil {
				return nil, err
			}
			estimated := analytics.EstimateKwh(*input.TokenCost, settings.AdminFee, settings.TaxPercent, settings.TariffPerKwh)
			input.TokenAmount = &estimated
		}
	case models.ReadingKindReading:
		if input.TokenCost != nil || input.TokenAmount != nil {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "token fields are only valid on top-up entries")
		}
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kind must be reading or topup")
	}

	day := startOfDay(input.Date)

	// Duplicate-date guard: one reading per calendar day.
	existing, err := s.CheckReadingExists(userID, day)
	if err != nil {
		return nil, err
	}
	if existing != nil && !input.ReplaceExisting {
		return &WriteOutcome{Status: OutcomeDuplicateDate, Existing: existing}, nil
	}

	// Anomaly detection: a plain reading cannot exceed the last known
	// balance; that only happens after a top-up.
	if input.Kind == models.ReadingKindReading {
		last, err := s.GetLastReadingBeforeDate(userID, day)
		if err != nil {
			return nil, err
		}
		if last != nil && input.KwhValue > last.KwhValue && !input.AcknowledgeAnomaly {
			return &WriteOutcome{
				Status: OutcomeAnomaly,
				Anomaly: &AnomalyInfo{
					EnteredKwh: input.KwhValue,
					LastKwh:    last.KwhValue,
					LastDate:   last.EntryDay,
					Message: fmt.Sprintf(
						"Entered balance %.2f kWh exceeds the last reading of %.2f kWh on %s; record a top-up instead, or acknowledge this as a correction",
						input.KwhValue, last.KwhValue, last.EntryDay.Format("2 Jan 2006")),
				},
			}, nil
		}
	}

	// Backdate detection: a top-up landing before existing readings shifts
	// every later balance by the credited amount. Replacing a same-day
	// entry folds the replaced credit into the offset.
	offset := creditedOf(input.Kind, input.TokenAmount)
	if existing != nil {
		offset -= existing.CreditedKwh()
	}

	var preview *BackdatePreview
	if offset != 0 {
		preview, err = s.recalc.PreviewBackdate(userID, models.TriggerInsert, day, offset)
		if err != nil {
			return nil, err
		}
		if len(preview.Entries) == 0 {
			preview = nil // nothing after this date; plain insert
		} else if preview.Blocked {
			return &WriteOutcome{Status: OutcomeBackdateBlocked, Preview: preview}, nil
		} else if !input.ConfirmRecalculation {
			return &WriteOutcome{Status: OutcomeBackdateRequired, Preview: preview}, nil
		}
	}

	reading := &models.Reading{
		UserID:      userID,
		ReadingDate: input.Date,
		EntryDay:    day,
		Kind:        input.Kind,
		KwhValue:    input.KwhValue,
		TokenCost:   input.TokenCost,
		TokenAmount: input.TokenAmount,
		Notes:       input.Notes,
		PhotoRef:    input.PhotoRef,
	}

	var batch *models.RecalculationBatch
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if existing != nil {
			if txErr := tx.Delete(existing).Error; txErr != nil {
				return txErr
			}
		}
		if txErr := tx.Create(reading).Error; txErr != nil {
			return txErr
		}
		if preview != nil {
			var txErr error
			batch, txErr = s.recalc.ApplyBackdate(tx, userID, preview)
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}

	return &WriteOutcome{Status: OutcomeCreated, Reading: reading, Batch: batch}, nil
}

// UpdateReading edits a reading's fields. Changing a top-up's credited kWh
// while later readings exist triggers the backdate protocol, since every
// later balance moves by the difference.
func (s *readingService) UpdateReading(userID, readingID uint, input UpdateReadingInput) (*WriteOutcome, error) {
	reading, err := s.GetReadingByID(userID, readingID)
	if err != nil {
		return nil, err
	}

	if reading.Kind == models.ReadingKindReading && (input.TokenCost != nil || input.TokenAmount != nil) {
		return nil, apperrors.ErrKindChange
	}
	if input.KwhValue != nil && *input.KwhValue < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "kWh value cannot be negative")
	}

	oldCredited := reading.CreditedKwh()
	newCredited := oldCredited
	if reading.Kind == models.ReadingKindTopUp {
		switch {
		case input.TokenAmount != nil:
			newCredited = *input.TokenAmount
		case input.TokenCost != nil:
			settings, err := s.settings.GetSettings(userID)
			if err != nil {
				return nil, err
			}
			newCredited = analytics.EstimateKwh(*input.TokenCost, settings.AdminFee, settings.TaxPercent, settings.TariffPerKwh)
			input.TokenAmount = &newCredited
		}
	}

	var preview *BackdatePreview
	if offset := newCredited - oldCredited; offset != 0 {
		preview, err = s.recalc.PreviewBackdate(userID, models.TriggerUpdate, reading.EntryDay, offset)
		if err != nil {
			return nil, err
		}
		if len(preview.Entries) == 0 {
			preview = nil
		} else if preview.Blocked {
			return &WriteOutcome{Status: OutcomeBackdateBlocked, Preview: preview}, nil
		} else if !input.ConfirmRecalculation {
			return &WriteOutcome{Status: OutcomeBackdateRequired, Preview: preview}, nil
		}
	}

	updates := make(map[string]interface{})
	if input.KwhValue != nil {
		updates["kwh_value"] = *input.KwhValue
	}
	if input.TokenCost != nil {
		updates["token_cost"] = *input.TokenCost
	}
	if input.TokenAmount != nil {
		updates["token_amount"] = *input.TokenAmount
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.PhotoRef != nil {
		updates["photo_ref"] = *input.PhotoRef
	}

	var batch *models.RecalculationBatch
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if txErr := tx.Model(reading).Updates(updates).Error; txErr != nil {
				return txErr
			}
		}
		if preview != nil {
			var txErr error
			batch, txErr = s.recalc.ApplyBackdate(tx, userID, preview)
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}

	return &WriteOutcome{Status: OutcomeUpdated, Reading: reading, Batch: batch}, nil
}

// DeleteReading removes a reading. Deleting a top-up with later readings
// withdraws its credit from every later balance, so it runs through the
// backdate protocol first.
func (s *readingService) DeleteReading(userID, readingID uint, confirmRecalculation bool) (*WriteOutcome, error) {
	reading, err := s.GetReadingByID(userID, readingID)
	if err != nil {
		return nil, err
	}

	var preview *BackdatePreview
	if offset := -reading.CreditedKwh(); offset != 0 {
		preview, err = s.recalc.PreviewBackdate(userID, models.TriggerDelete, reading.EntryDay, offset)
		if err != nil {
			return nil, err
		}
		if len(preview.Entries) == 0 {
			preview = nil
		} else if preview.Blocked {
			return &WriteOutcome{Status: OutcomeBackdateBlocked, Preview: preview}, nil
		} else if !confirmRecalculation {
			return &WriteOutcome{Status: OutcomeBackdateRequired, Preview: preview}, nil
		}
	}

	var batch *models.RecalculationBatch
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if txErr := tx.Delete(reading).Error; txErr != nil {
			return txErr
		}
		if preview != nil {
			var txErr error
			batch, txErr = s.recalc.ApplyBackdate(tx, userID, preview)
			return txErr
		}
		return nil
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}

	return &WriteOutcome{Status: OutcomeDeleted, Batch: batch}, nil
}

// GetUserReadings returns a paginated list of readings, newest first, with
// optional date-range filters.
func (s *readingService) GetUserReadings(userID uint, page pagination.PageRequest, from, to *time.Time) (*pagination.PageResponse[models.Reading], error) {
	page.Defaults()

	base := s.db.Model(&models.Reading{}).Where("user_id = ?", userID)
	if from != nil {
		base = base.Where("entry_day >= ?", startOfDay(*from))
	}
	if to != nil {
		base = base.Where("entry_day <= ?", startOfDay(*to))
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var readings []models.Reading
	if err := base.Order("entry_day DESC").Scopes(pagination.Paginate(page)).Find(&readings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(readings, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetReadingByID returns a reading by ID if it belongs to the user.
func (s *readingService) GetReadingByID(userID, readingID uint) (*models.Reading, error) {
	var reading models.Reading
	if err := s.db.Where("id = ? AND user_id = ?", readingID, userID).First(&reading).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReadingNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &reading, nil
}

// GetAllReadings returns the user's readings, newest first, up to limit
// (0 for no limit).
func (s *readingService) GetAllReadings(userID uint, limit int) ([]models.Reading, error) {
	query := s.db.Where("user_id = ?", userID).Order("entry_day DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var readings []models.Reading
	if err := query.Find(&readings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return readings, nil
}

// GetLastReadingBeforeDate returns the newest reading strictly before the
// given calendar date, or nil if none exists.
func (s *readingService) GetLastReadingBeforeDate(userID uint, date time.Time) (*models.Reading, error) {
	var reading models.Reading
	err := s.db.Where("user_id = ? AND entry_day < ?", userID, startOfDay(date)).
		Order("entry_day DESC").First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &reading, nil
}

// GetReadingsAfterDate returns all readings strictly after the given
// calendar date, ascending.
func (s *readingService) GetReadingsAfterDate(userID uint, date time.Time) ([]models.Reading, error) {
	var readings []models.Reading
	err := s.db.Where("user_id = ? AND entry_day > ?", userID, startOfDay(date)).
		Order("entry_day ASC").Find(&readings).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return readings, nil
}

// CheckReadingExists returns the reading on the given calendar date, or nil.
func (s *readingService) CheckReadingExists(userID uint, date time.Time) (*models.Reading, error) {
	var reading models.Reading
	err := s.db.Where("user_id = ? AND entry_day = ?", userID, startOfDay(date)).First(&reading).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &reading, nil
}

// BulkUpdateKwh applies a set of balance updates inside the given
// transaction; either all rows update or the transaction rolls back.
func (s *readingService) BulkUpdateKwh(tx *gorm.DB, updates []KwhUpdate) error {
	return bulkUpdateKwh(tx, updates)
}

func bulkUpdateKwh(tx *gorm.DB, updates []KwhUpdate) error {
	for _, u := range updates {
		result := tx.Model(&models.Reading{}).Where("id = ?", u.ReadingID).
			Update("kwh_value", u.NewKwh)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("reading %d not found during bulk update", u.ReadingID)
		}
	}
	return nil
}

// wrapTxErr preserves AppErrors surfaced inside a transaction and masks
// everything else as an internal error.
func wrapTxErr(err error) *apperrors.AppError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func creditedOf(kind models.ReadingKind, tokenAmount *float64) float64 {
	if kind != models.ReadingKindTopUp || tokenAmount == nil {
		return 0
	}
	return *tokenAmount
}
