package models

import "time"

// ReadingKind distinguishes a plain balance checkpoint from a token top-up.
type ReadingKind string

const (
	ReadingKindReading ReadingKind = "reading"
	ReadingKindTopUp   ReadingKind = "topup"
)

// Reading represents a user-entered prepaid meter snapshot. KwhValue is the
// remaining balance on the meter at entry time, not cumulative consumption;
// daily usage is derived from the decrease between consecutive readings.
//
// At most one reading exists per (user, calendar day). The uniqueness is
// enforced by the duplicate guard in the reading service rather than a
// database constraint, so that a "replace" (soft-delete then insert on the
// same day) stays possible.
type Reading struct {
	Base
	UserID      uint        `gorm:"not null;index:idx_readings_user_day" json:"user_id"`
	ReadingDate time.Time   `gorm:"not null" json:"reading_date"`
	EntryDay    time.Time   `gorm:"not null;index:idx_readings_user_day" json:"entry_day"`
	Kind        ReadingKind `gorm:"not null;default:reading" json:"kind"`
	KwhValue    float64     `gorm:"not null" json:"kwh_value"`
	TokenCost   *float64    `json:"token_cost,omitempty"`
	TokenAmount *float64    `json:"token_amount,omitempty"`
	Notes       string      `json:"notes,omitempty"`
	PhotoRef    string      `json:"photo_ref,omitempty"`
}

// IsTopUp reports whether this reading recorded a token purchase.
func (r *Reading) IsTopUp() bool {
	return r.Kind == ReadingKindTopUp
}

// CreditedKwh returns the kWh credited by a top-up, or zero for a plain reading.
func (r *Reading) CreditedKwh() float64 {
	if r.Kind != ReadingKindTopUp || r.TokenAmount == nil {
		return 0
	}
	return *r.TokenAmount
}
