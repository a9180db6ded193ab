package analytics

import (
	"testing"
)

// steadyBurn builds a daily 10 kWh draw ending at the given balance.
func steadyBurn(days int, endBalance float64) []Event {
	var events []Event
	for i := 0; i < days; i++ {
		events = append(events, Event{
			Date:       date(2025, 3, 1).AddDate(0, 0, i),
			BalanceKwh: endBalance + float64(days-1-i)*10,
		})
	}
	return events
}

func TestProject(t *testing.T) {
	t.Run("no_events", func(t *testing.T) {
		p := Project(nil, date(2025, 3, 10))
		if p.HasData {
			t.Error("expected no data")
		}
	})

	t.Run("warning_at_six_days", func(t *testing.T) {
		today := date(2025, 3, 10)
		p := Project(steadyBurn(10, 60), today)
		if !p.HasData {
			t.Fatal("expected data")
		}
		if p.RemainingKwh != 60 {
			t.Errorf("expected remaining 60, got %f", p.RemainingKwh)
		}
		if !almostEqual(p.AvgDailyUsage, 10) {
			t.Errorf("expected avg 10, got %f", p.AvgDailyUsage)
		}
		if p.DaysUntilDepletion != 6 {
			t.Errorf("expected 6 days until depletion, got %d", p.DaysUntilDepletion)
		}
		if p.IsCritical {
			t.Error("6 days out should not be critical")
		}
		if !p.IsWarning {
			t.Error("6 days out should be a warning")
		}
		if len(p.ProjectionPoints) != 7 {
			t.Fatalf("expected 7 projection points, got %d", len(p.ProjectionPoints))
		}
		last := p.ProjectionPoints[6]
		if last.DayIndex != 6 || last.KwhRemaining != 0 {
			t.Errorf("expected final point (index 6, 0 kWh), got (index %d, %f kWh)", last.DayIndex, last.KwhRemaining)
		}
		first := p.ProjectionPoints[0]
		if !first.IsActual || first.DayIndex != 0 || first.KwhRemaining != 60 {
			t.Errorf("unexpected first point: %+v", first)
		}
		if p.PredictedDepletionDate == nil || !p.PredictedDepletionDate.Equal(date(2025, 3, 16)) {
			t.Errorf("expected depletion Mar 16, got %v", p.PredictedDepletionDate)
		}
	})

	t.Run("critical_at_three_days", func(t *testing.T) {
		p := Project(steadyBurn(10, 25), date(2025, 3, 10))
		if p.DaysUntilDepletion != 3 {
			t.Fatalf("expected 3 days, got %d", p.DaysUntilDepletion)
		}
		if !p.IsCritical || p.IsWarning {
			t.Errorf("expected critical (not warning), got critical=%v warning=%v", p.IsCritical, p.IsWarning)
		}
		if !almostEqual(p.CriticalKwh, 30) || !almostEqual(p.WarningKwh, 70) {
			t.Errorf("unexpected thresholds: critical=%f warning=%f", p.CriticalKwh, p.WarningKwh)
		}
	})

	t.Run("caps_projection_at_sixty_points", func(t *testing.T) {
		p := Project(steadyBurn(10, 5000), date(2025, 3, 10))
		if p.DaysUntilDepletion != 500 {
			t.Fatalf("expected 500 days, got %d", p.DaysUntilDepletion)
		}
		if len(p.ProjectionPoints) != 61 {
			t.Errorf("expected 61 points (indices 0..60), got %d", len(p.ProjectionPoints))
		}
	})

	t.Run("zero_balance_has_no_projection", func(t *testing.T) {
		p := Project(steadyBurn(5, 0), date(2025, 3, 10))
		if p.HasData {
			t.Error("expected no data with depleted balance")
		}
		if p.RemainingKwh != 0 {
			t.Errorf("remaining should still be reported, got %f", p.RemainingKwh)
		}
	})

	t.Run("no_consumption_signal", func(t *testing.T) {
		events := []Event{
			{Date: date(2025, 3, 1), BalanceKwh: 50},
			{Date: date(2025, 3, 5), BalanceKwh: 50},
		}
		p := Project(events, date(2025, 3, 10))
		if p.HasData {
			t.Error("expected no data with zero average usage")
		}
		if p.RemainingKwh != 50 {
			t.Errorf("remaining should still be reported, got %f", p.RemainingKwh)
		}
	})

	t.Run("monotonically_decreasing", func(t *testing.T) {
		p := Project(steadyBurn(12, 73), date(2025, 3, 12))
		for i := 1; i < len(p.ProjectionPoints); i++ {
			if p.ProjectionPoints[i].KwhRemaining > p.ProjectionPoints[i-1].KwhRemaining {
				t.Fatalf("projection not monotonic at index %d", i)
			}
		}
	})
}
