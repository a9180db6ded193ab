package models

import (
	"time"

	"meterku/internal/uuid"

	"gorm.io/gorm"
)

// TriggerType identifies the write that caused a backdate recalculation.
type TriggerType string

const (
	TriggerInsert TriggerType = "insert"
	TriggerUpdate TriggerType = "update"
	TriggerDelete TriggerType = "delete"
)

// RollbackWindow is how long a recalculation batch stays reversible.
const RollbackWindow = 24 * time.Hour

// RecalculationBatch is the audit record for one backdate repair: a constant
// kWh offset applied to every reading after the backdated write. Batches are
// append-only; the only mutation ever made is flipping rolled_back.
type RecalculationBatch struct {
	ID               string               `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uint                 `gorm:"not null;index" json:"user_id"`
	TriggerType      TriggerType          `gorm:"not null" json:"trigger_type"`
	KwhOffset        float64              `gorm:"not null" json:"kwh_offset"`
	CreatedAt        time.Time            `json:"created_at"`
	CanRollbackUntil time.Time            `gorm:"not null" json:"can_rollback_until"`
	RolledBack       bool                 `gorm:"not null;default:false" json:"rolled_back"`
	Events           []RecalculationEvent `gorm:"foreignKey:BatchID" json:"events,omitempty"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (b *RecalculationBatch) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.New()
	}
	return nil
}

// CanRollback reports whether the batch is still reversible at the given time.
func (b *RecalculationBatch) CanRollback(now time.Time) bool {
	return !b.RolledBack && now.Before(b.CanRollbackUntil)
}

// RecalculationEvent records the before/after balance of a single reading
// touched by a batch.
type RecalculationEvent struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	BatchID   string  `gorm:"type:uuid;not null;index" json:"batch_id"`
	ReadingID uint    `gorm:"not null" json:"reading_id"`
	OldKwh    float64 `gorm:"not null" json:"old_kwh"`
	NewKwh    float64 `gorm:"not null" json:"new_kwh"`
}
