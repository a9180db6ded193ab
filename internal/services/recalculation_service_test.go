package services

import (
	"testing"
	"time"

	"gorm.io/gorm"

	"meterku/internal/models"
	"meterku/internal/pagination"
	"meterku/internal/testutil"
)

func TestPreviewBackdate(t *testing.T) {
	t.Run("shifts_only_later_readings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 1), 50)
		r2 := testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)
		r3 := testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 3), 40)

		preview, err := svc.PreviewBackdate(user.ID, models.TriggerInsert, testDay(2025, time.March, 1), 30)
		testutil.AssertNoError(t, err)

		if len(preview.Entries) != 2 {
			t.Fatalf("expected 2 affected readings, got %d", len(preview.Entries))
		}
		if preview.Entries[0].ReadingID != r2.ID || preview.Entries[1].ReadingID != r3.ID {
			t.Error("expected affected readings in ascending date order")
		}
		if preview.Entries[0].NewKwh != 75 || preview.Entries[1].NewKwh != 70 {
			t.Errorf("expected new balances 75/70, got %.2f/%.2f",
				preview.Entries[0].NewKwh, preview.Entries[1].NewKwh)
		}
		if preview.Blocked {
			t.Error("positive shift must not block")
		}

		// Preview writes nothing.
		var current models.Reading
		db.First(&current, r2.ID)
		if current.KwhValue != 45 {
			t.Errorf("preview must not modify balances, got %.2f", current.KwhValue)
		}
	})

	t.Run("blocks_on_negative_balance", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 20)

		preview, err := svc.PreviewBackdate(user.ID, models.TriggerDelete, testDay(2025, time.March, 1), -30)
		testutil.AssertNoError(t, err)

		if !preview.Blocked {
			t.Fatal("expected the preview to be blocked")
		}
		found := false
		for _, issue := range preview.Issues {
			if issue.Severity == SeverityBlock {
				found = true
			}
		}
		if !found {
			t.Error("expected a BLOCK issue")
		}
	})

	t.Run("warns_on_affected_topup", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		testutil.CreateTestTopUp(t, db, user.ID, testDay(2025, time.March, 3), 80, 45000, 30)

		preview, err := svc.PreviewBackdate(user.ID, models.TriggerInsert, testDay(2025, time.March, 1), 10)
		testutil.AssertNoError(t, err)

		if preview.Blocked {
			t.Fatal("a warning alone must not block")
		}
		if len(preview.Issues) != 1 || preview.Issues[0].Severity != SeverityWarn {
			t.Fatalf("expected one WARN issue, got %+v", preview.Issues)
		}
	})
}

func TestApplyBackdate(t *testing.T) {
	t.Run("applies_and_records_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		r2 := testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)

		preview, err := svc.PreviewBackdate(user.ID, models.TriggerInsert, testDay(2025, time.March, 1), 30)
		testutil.AssertNoError(t, err)

		var batch *models.RecalculationBatch
		err = db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			batch, txErr = svc.ApplyBackdate(tx, user.ID, preview)
			return txErr
		})
		testutil.AssertNoError(t, err)

		if batch.ID == "" {
			t.Error("expected the batch to get an ID")
		}
		if len(batch.Events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(batch.Events))
		}
		if batch.Events[0].OldKwh != 45 || batch.Events[0].NewKwh != 75 {
			t.Errorf("expected event 45 -> 75, got %.2f -> %.2f",
				batch.Events[0].OldKwh, batch.Events[0].NewKwh)
		}
		if !batch.CanRollbackUntil.After(time.Now().Add(23 * time.Hour)) {
			t.Error("expected a rollback window of about 24 hours")
		}

		var updated models.Reading
		db.First(&updated, r2.ID)
		if updated.KwhValue != 75 {
			t.Errorf("expected shifted balance 75, got %.2f", updated.KwhValue)
		}
	})

	t.Run("refuses_blocked_preview", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		err := db.Transaction(func(tx *gorm.DB) error {
			_, txErr := svc.ApplyBackdate(tx, user.ID, &BackdatePreview{Blocked: true})
			return txErr
		})
		testutil.AssertAppError(t, err, "BACKDATE_BLOCKED")
	})

	t.Run("rolls_back_whole_batch_on_failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		r2 := testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)

		// A preview entry pointing at a missing reading fails the bulk
		// update; the valid row's shift must not survive.
		preview := &BackdatePreview{
			TriggerType: models.TriggerInsert,
			KwhOffset:   30,
			Entries: []PreviewEntry{
				{ReadingID: r2.ID, CurrentKwh: 45, NewKwh: 75},
				{ReadingID: 9999, CurrentKwh: 40, NewKwh: 70},
			},
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			_, txErr := svc.ApplyBackdate(tx, user.ID, preview)
			return txErr
		})
		if err == nil {
			t.Fatal("expected the bulk update to fail")
		}

		var current models.Reading
		db.First(&current, r2.ID)
		if current.KwhValue != 45 {
			t.Errorf("expected the transaction to roll back, balance is %.2f", current.KwhValue)
		}
	})
}

func TestRollbackBatch(t *testing.T) {
	// applyTestBatch shifts the user's later readings by +30 and returns
	// the recorded batch.
	applyTestBatch := func(t *testing.T, db *gorm.DB, svc RecalculationServicer, userID uint) *models.RecalculationBatch {
		t.Helper()
		preview, err := svc.PreviewBackdate(userID, models.TriggerInsert, testDay(2025, time.March, 1), 30)
		testutil.AssertNoError(t, err)
		var batch *models.RecalculationBatch
		err = db.Transaction(func(tx *gorm.DB) error {
			var txErr error
			batch, txErr = svc.ApplyBackdate(tx, userID, preview)
			return txErr
		})
		testutil.AssertNoError(t, err)
		return batch
	}

	t.Run("restores_old_balances", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)
		r2 := testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)

		batch := applyTestBatch(t, db, svc, user.ID)

		rolled, err := svc.RollbackBatch(user.ID, batch.ID)
		testutil.AssertNoError(t, err)
		if !rolled.RolledBack {
			t.Error("expected the batch to be marked rolled back")
		}

		var current models.Reading
		db.First(&current, r2.ID)
		if current.KwhValue != 45 {
			t.Errorf("expected restored balance 45, got %.2f", current.KwhValue)
		}
	})

	t.Run("second_rollback_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)

		batch := applyTestBatch(t, db, svc, user.ID)

		_, err := svc.RollbackBatch(user.ID, batch.ID)
		testutil.AssertNoError(t, err)

		_, err = svc.RollbackBatch(user.ID, batch.ID)
		testutil.AssertAppError(t, err, "ALREADY_ROLLED_BACK")
	})

	t.Run("expired_window_rejected", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)
		testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)

		batch := applyTestBatch(t, db, svc, user.ID)

		// Age the batch past its window; expiry is checked lazily on use.
		expired := time.Now().Add(-time.Minute)
		db.Model(&models.RecalculationBatch{}).Where("id = ?", batch.ID).
			Update("can_rollback_until", expired)

		_, err := svc.RollbackBatch(user.ID, batch.ID)
		testutil.AssertAppError(t, err, "ROLLBACK_EXPIRED")
	})

	t.Run("unknown_batch", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewRecalculationService(db)
		user := testutil.CreateTestUser(t, db)

		_, err := svc.RollbackBatch(user.ID, "00000000-0000-0000-0000-000000000000")
		testutil.AssertAppError(t, err, "BATCH_NOT_FOUND")
	})
}

func TestGetUserBatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewRecalculationService(db)
	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)

	testutil.CreateTestReading(t, db, user.ID, testDay(2025, time.March, 2), 45)

	for i := 0; i < 3; i++ {
		preview, err := svc.PreviewBackdate(user.ID, models.TriggerInsert, testDay(2025, time.March, 1), 10)
		testutil.AssertNoError(t, err)
		err = db.Transaction(func(tx *gorm.DB) error {
			_, txErr := svc.ApplyBackdate(tx, user.ID, preview)
			return txErr
		})
		testutil.AssertNoError(t, err)
	}

	page, err := svc.GetUserBatches(user.ID, pagination.PageRequest{Page: 1, PageSize: 20})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 3 {
		t.Errorf("expected 3 batches, got %d", page.TotalItems)
	}
	if len(page.Data) != 3 || len(page.Data[0].Events) != 1 {
		t.Error("expected batches with preloaded events")
	}

	otherPage, err := svc.GetUserBatches(other.ID, pagination.PageRequest{Page: 1, PageSize: 20})
	testutil.AssertNoError(t, err)
	if otherPage.TotalItems != 0 {
		t.Errorf("expected no batches for the other user, got %d", otherPage.TotalItems)
	}
}
