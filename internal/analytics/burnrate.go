package analytics

import (
	"math"
	"time"
)

// maxProjectionDays bounds the generated projection series regardless of how
// far out depletion is.
const maxProjectionDays = 60

const (
	criticalDays = 3
	warningDays  = 7
)

// ProjectionPoint is one day in the depletion projection. DayIndex 0 is
// today and the only actual point; everything after is extrapolated.
type ProjectionPoint struct {
	Date         time.Time `json:"date"`
	KwhRemaining float64   `json:"kwh_remaining"`
	IsActual     bool      `json:"is_actual"`
	DayIndex     int       `json:"day_index"`
}

// BurnRateProjection projects when the remaining token balance runs out at
// the current average daily draw. A deliberately linear extrapolation, not a
// statistical model: deterministic given the same events and today.
type BurnRateProjection struct {
	HasData                bool              `json:"has_data"`
	RemainingKwh           float64           `json:"remaining_kwh"`
	AvgDailyUsage          float64           `json:"avg_daily_usage"`
	DaysUntilDepletion     int               `json:"days_until_depletion"`
	PredictedDepletionDate *time.Time        `json:"predicted_depletion_date,omitempty"`
	ProjectionPoints       []ProjectionPoint `json:"projection_points"`
	CriticalKwh            float64           `json:"critical_kwh"`
	WarningKwh             float64           `json:"warning_kwh"`
	IsCritical             bool              `json:"is_critical"`
	IsWarning              bool              `json:"is_warning"`
}

// Project computes the burn-rate depletion projection from the events as of
// today. The average daily draw is the mean of positive usage values over
// the last 30 reconstructed days; top-up days and zero-usage days do not
// count toward the denominator.
func Project(events []Event, today time.Time) BurnRateProjection {
	if len(events) == 0 {
		return BurnRateProjection{}
	}

	sorted := sortedByDate(events)
	remaining := sorted[len(sorted)-1].BalanceKwh

	avg := avgDailyUsage(Reconstruct(sorted), 30)
	if avg <= 0 || remaining <= 0 {
		return BurnRateProjection{RemainingKwh: remaining}
	}

	daysLeft := int(math.Ceil(remaining / avg))
	cappedDays := daysLeft
	if cappedDays > maxProjectionDays {
		cappedDays = maxProjectionDays
	}

	todayStart := dayOf(today)
	points := make([]ProjectionPoint, 0, cappedDays+1)
	for i := 0; i <= cappedDays; i++ {
		points = append(points, ProjectionPoint{
			Date:         todayStart.AddDate(0, 0, i),
			KwhRemaining: math.Max(0, remaining-avg*float64(i)),
			IsActual:     i == 0,
			DayIndex:     i,
		})
	}

	depletionDate := todayStart.AddDate(0, 0, daysLeft)
	return BurnRateProjection{
		HasData:                true,
		RemainingKwh:           remaining,
		AvgDailyUsage:          avg,
		DaysUntilDepletion:     daysLeft,
		PredictedDepletionDate: &depletionDate,
		ProjectionPoints:       points,
		CriticalKwh:            avg * criticalDays,
		WarningKwh:             avg * warningDays,
		IsCritical:             daysLeft <= criticalDays,
		IsWarning:              daysLeft > criticalDays && daysLeft <= warningDays,
	}
}

// avgDailyUsage returns the mean of positive usage values over the last
// windowDays entries of the daily series.
func avgDailyUsage(daily []DailyUsagePoint, windowDays int) float64 {
	if len(daily) > windowDays {
		daily = daily[len(daily)-windowDays:]
	}
	var sum float64
	var n int
	for _, p := range daily {
		if p.UsageKwh > 0 && !p.IsTopUp {
			sum += p.UsageKwh
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
