// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("reading_kind", validateReadingKind)
		_ = v.RegisterValidation("trigger_type", validateTriggerType)
		_ = v.RegisterValidation("not_future", validateNotFuture)
	}
}

func validateReadingKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "reading", "topup":
		return true
	}
	return false
}

func validateTriggerType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "insert", "update", "delete":
		return true
	}
	return false
}

// validateNotFuture rejects timestamps after the end of the current day.
// Entries dated today with a later wall-clock time are still accepted.
func validateNotFuture(fl validator.FieldLevel) bool {
	t, ok := fl.Field().Interface().(time.Time)
	if !ok {
		return false
	}
	now := time.Now()
	endOfToday := time.Date(now.Year(), now.Month(), now.Day(), 23, 59, 59, 0, t.Location())
	return !t.After(endOfToday)
}
