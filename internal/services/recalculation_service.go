package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	apperrors "meterku/internal/errors"
	"meterku/internal/logger"
	"meterku/internal/models"
	"meterku/internal/pagination"
)

// recalculationService implements the backdate recalculation engine. A
// backdated write shifts every later reading's balance by one constant
// offset; shifting all affected rows by the same amount leaves every
// consecutive-pair difference, and therefore the reconstructed daily usage,
// untouched. Only the absolute balances move.
type recalculationService struct {
	db *gorm.DB
}

// NewRecalculationService creates a new RecalculationServicer.
func NewRecalculationService(db *gorm.DB) RecalculationServicer {
	return &recalculationService{db: db}
}

// PreviewBackdate computes, without writing anything, how a backdated write
// at the given date with the given kWh offset would shift every reading
// strictly after that date. Re-computable while the caller is still editing
// the triggering entry.
func (s *recalculationService) PreviewBackdate(userID uint, trigger models.TriggerType, date time.Time, kwhOffset float64) (*BackdatePreview, error) {
	var affected []models.Reading
	err := s.db.Where("user_id = ? AND entry_day > ?", userID, startOfDay(date)).
		Order("entry_day ASC").Find(&affected).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	preview := &BackdatePreview{
		TriggerType: trigger,
		KwhOffset:   kwhOffset,
		Entries:     make([]PreviewEntry, 0, len(affected)),
	}

	for _, r := range affected {
		newKwh := r.KwhValue + kwhOffset
		preview.Entries = append(preview.Entries, PreviewEntry{
			ReadingID:  r.ID,
			EventDate:  r.EntryDay,
			IsTopUp:    r.IsTopUp(),
			CurrentKwh: r.KwhValue,
			NewKwh:     newKwh,
		})

		if newKwh < 0 {
			preview.Issues = append(preview.Issues, ValidationIssue{
				Severity: SeverityBlock,
				Message: fmt.Sprintf("reading on %s would drop from %.2f to %.2f kWh; balances cannot go negative",
					r.EntryDay.Format("2 Jan 2006"), r.KwhValue, newKwh),
			})
		} else if r.IsTopUp() {
			preview.Issues = append(preview.Issues, ValidationIssue{
				Severity: SeverityWarn,
				Message: fmt.Sprintf("top-up on %s is affected; its recorded balance shifts by %.2f kWh",
					r.EntryDay.Format("2 Jan 2006"), kwhOffset),
			})
		}
	}

	for _, issue := range preview.Issues {
		if issue.Severity == SeverityBlock {
			preview.Blocked = true
			break
		}
	}

	return preview, nil
}

// ApplyBackdate performs the bulk balance shift described by a preview and
// records the audit batch, inside the caller's transaction. The whole batch
// applies or none of it does.
func (s *recalculationService) ApplyBackdate(tx *gorm.DB, userID uint, preview *BackdatePreview) (*models.RecalculationBatch, error) {
	if preview.Blocked {
		return nil, apperrors.ErrBackdateBlocked
	}

	updates := make([]KwhUpdate, 0, len(preview.Entries))
	events := make([]models.RecalculationEvent, 0, len(preview.Entries))
	for _, e := range preview.Entries {
		updates = append(updates, KwhUpdate{ReadingID: e.ReadingID, NewKwh: e.NewKwh})
		events = append(events, models.RecalculationEvent{
			ReadingID: e.ReadingID,
			OldKwh:    e.CurrentKwh,
			NewKwh:    e.NewKwh,
		})
	}

	if err := bulkUpdateKwh(tx, updates); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	batch := &models.RecalculationBatch{
		UserID:           userID,
		TriggerType:      preview.TriggerType,
		KwhOffset:        preview.KwhOffset,
		CanRollbackUntil: now.Add(models.RollbackWindow),
		Events:           events,
	}
	if err := tx.Create(batch).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	logger.Get().Infow("backdate recalculation applied",
		"user_id", userID,
		"batch_id", batch.ID,
		"trigger", preview.TriggerType,
		"kwh_offset", preview.KwhOffset,
		"affected", len(events),
	)
	return batch, nil
}

// GetUserBatches returns the user's recalculation batches, newest first.
func (s *recalculationService) GetUserBatches(userID uint, page pagination.PageRequest) (*pagination.PageResponse[models.RecalculationBatch], error) {
	page.Defaults()

	base := s.db.Model(&models.RecalculationBatch{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var batches []models.RecalculationBatch
	if err := base.Preload("Events").Order("created_at DESC").
		Scopes(pagination.Paginate(page)).Find(&batches).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(batches, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetBatchByID returns a batch with its events if it belongs to the user.
func (s *recalculationService) GetBatchByID(userID uint, batchID string) (*models.RecalculationBatch, error) {
	var batch models.RecalculationBatch
	err := s.db.Preload("Events").Where("id = ? AND user_id = ?", batchID, userID).First(&batch).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBatchNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &batch, nil
}

// RollbackBatch restores every reading touched by a batch to its recorded
// old balance. Only valid once, and only inside the 24-hour window; the
// expiry is checked lazily here, not by any scheduled task.
func (s *recalculationService) RollbackBatch(userID uint, batchID string) (*models.RecalculationBatch, error) {
	batch, err := s.GetBatchByID(userID, batchID)
	if err != nil {
		return nil, err
	}

	if batch.RolledBack {
		return nil, apperrors.ErrAlreadyRolledBack
	}
	if time.Now().After(batch.CanRollbackUntil) {
		return nil, apperrors.ErrRollbackExpired
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := make([]KwhUpdate, 0, len(batch.Events))
		for _, e := range batch.Events {
			updates = append(updates, KwhUpdate{ReadingID: e.ReadingID, NewKwh: e.OldKwh})
		}
		if txErr := bulkUpdateKwh(tx, updates); txErr != nil {
			return txErr
		}
		return tx.Model(batch).Update("rolled_back", true).Error
	})
	if err != nil {
		return nil, wrapTxErr(err)
	}

	logger.Get().Infow("recalculation batch rolled back",
		"user_id", userID,
		"batch_id", batch.ID,
		"restored", len(batch.Events),
	)
	batch.RolledBack = true
	return batch, nil
}
