package testutil_test

import (
	"testing"
	"time"

	"meterku/internal/errors"
	"meterku/internal/models"
	"meterku/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "user_settings", "readings", "recalculation_batches", "recalculation_events", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == 0 {
		t.Fatal("user should have a non-zero ID")
	}

	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC)
	reading := testutil.CreateTestReading(t, db, user.ID, day, 45)
	if reading.KwhValue != 45 {
		t.Errorf("expected kwh 45, got %f", reading.KwhValue)
	}
	if reading.Kind != models.ReadingKindReading {
		t.Errorf("expected reading kind, got %s", reading.Kind)
	}
	if !reading.EntryDay.Equal(day) {
		t.Errorf("expected entry day %v, got %v", day, reading.EntryDay)
	}

	topUp := testutil.CreateTestTopUp(t, db, user.ID, day.AddDate(0, 0, 1), 70, 100000, 30)
	if !topUp.IsTopUp() {
		t.Error("expected a top-up entry")
	}
	if topUp.CreditedKwh() != 30 {
		t.Errorf("expected credited 30 kWh, got %f", topUp.CreditedKwh())
	}

	settings := testutil.CreateTestSettings(t, db, user.ID, 750000)
	if settings.MonthlyBudget != 750000 {
		t.Errorf("expected budget 750000, got %f", settings.MonthlyBudget)
	}
	if settings.TariffPerKwh != models.DefaultTariffPerKwh {
		t.Errorf("expected default tariff, got %f", settings.TariffPerKwh)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrReadingNotFound, "custom message")
	testutil.AssertAppError(t, err, "READING_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
