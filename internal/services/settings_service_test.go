package services

import (
	"testing"

	"meterku/internal/models"
	"meterku/internal/testutil"
)

func TestGetSettings(t *testing.T) {
	t.Run("creates_defaults_on_first_access", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)
		user := testutil.CreateTestUser(t, db)

		settings, err := svc.GetSettings(user.ID)
		testutil.AssertNoError(t, err)

		if settings.TariffPerKwh != models.DefaultTariffPerKwh {
			t.Errorf("expected default tariff %.2f, got %.2f", models.DefaultTariffPerKwh, settings.TariffPerKwh)
		}
		if settings.MonthlyBudget != models.DefaultMonthlyBudget {
			t.Errorf("expected default budget %.0f, got %.0f", float64(models.DefaultMonthlyBudget), settings.MonthlyBudget)
		}

		// Second access returns the same persisted row.
		again, err := svc.GetSettings(user.ID)
		testutil.AssertNoError(t, err)
		if again.ID != settings.ID {
			t.Error("expected the same settings row on repeat access")
		}
	})
}

func TestUpdateSettings(t *testing.T) {
	t.Run("partial_update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateSettings(user.ID, SettingsUpdate{MonthlyBudget: floatPtr(750000)})
		testutil.AssertNoError(t, err)

		settings, err := svc.GetSettings(user.ID)
		testutil.AssertNoError(t, err)
		if settings.MonthlyBudget != 750000 {
			t.Errorf("expected budget 750000, got %.0f", settings.MonthlyBudget)
		}
		if settings.TariffPerKwh != models.DefaultTariffPerKwh {
			t.Error("untouched fields must keep their values")
		}
	})

	t.Run("rejects_out_of_range_values", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)
		user := testutil.CreateTestUser(t, db)

		cases := []struct {
			name   string
			update SettingsUpdate
		}{
			{"negative_budget", SettingsUpdate{MonthlyBudget: floatPtr(-1)}},
			{"zero_tariff", SettingsUpdate{TariffPerKwh: floatPtr(0)}},
			{"negative_fee", SettingsUpdate{AdminFee: floatPtr(-100)}},
			{"tax_over_100", SettingsUpdate{TaxPercent: floatPtr(101)}},
			{"threshold_over_100", SettingsUpdate{BudgetAlertThreshold: floatPtr(150)}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, err := svc.UpdateSettings(user.ID, tc.update)
				testutil.AssertAppError(t, err, "INVALID_INPUT")
			})
		}
	})

	t.Run("zero_budget_allowed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.UpdateSettings(user.ID, SettingsUpdate{MonthlyBudget: floatPtr(0)})
		testutil.AssertNoError(t, err)

		got, err := svc.GetSettings(user.ID)
		testutil.AssertNoError(t, err)
		if got.MonthlyBudget != 0 {
			t.Errorf("expected budget 0, got %.0f", got.MonthlyBudget)
		}
	})
}
