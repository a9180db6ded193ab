package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"meterku/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestReading creates a plain balance reading on the given day.
func CreateTestReading(t *testing.T, db *gorm.DB, userID uint, day time.Time, kwh float64) *models.Reading {
	t.Helper()

	entryDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	reading := &models.Reading{
		UserID:      userID,
		ReadingDate: day,
		EntryDay:    entryDay,
		Kind:        models.ReadingKindReading,
		KwhValue:    kwh,
	}
	if err := db.Create(reading).Error; err != nil {
		t.Fatalf("failed to create test reading: %v", err)
	}
	return reading
}

// CreateTestTopUp creates a top-up entry crediting the given kWh.
func CreateTestTopUp(t *testing.T, db *gorm.DB, userID uint, day time.Time, kwhAfter, cost, credited float64) *models.Reading {
	t.Helper()

	entryDay := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	reading := &models.Reading{
		UserID:      userID,
		ReadingDate: day,
		EntryDay:    entryDay,
		Kind:        models.ReadingKindTopUp,
		KwhValue:    kwhAfter,
		TokenCost:   &cost,
		TokenAmount: &credited,
	}
	if err := db.Create(reading).Error; err != nil {
		t.Fatalf("failed to create test top-up: %v", err)
	}
	return reading
}

// CreateTestSettings creates a settings row with defaults plus the given budget.
func CreateTestSettings(t *testing.T, db *gorm.DB, userID uint, monthlyBudget float64) *models.UserSettings {
	t.Helper()

	settings := models.DefaultUserSettings(userID)
	settings.MonthlyBudget = monthlyBudget
	if err := db.Create(settings).Error; err != nil {
		t.Fatalf("failed to create test settings: %v", err)
	}
	return settings
}
