package analytics

import "time"

// DailyUsagePoint is one day in the reconstructed usage series. MeterValue
// is set only on days where an actual reading landed; interpolated gap days
// carry a nil MeterValue but still hold their distributed usage.
type DailyUsagePoint struct {
	Date        time.Time `json:"date"`
	UsageKwh    float64   `json:"usage_kwh"`
	MeterValue  *float64  `json:"meter_value,omitempty"`
	IsTopUp     bool      `json:"is_top_up"`
	TopUpAmount float64   `json:"top_up_amount,omitempty"`
}

// Reconstruct converts a set of meter events into a contiguous per-day usage
// series spanning the earliest to the latest event day, sorted ascending.
//
// Consumption between two consecutive readings is the balance decrease,
// distributed evenly across the days in (prev, curr]. A balance increase is
// a top-up: usage for that gap is clamped to zero and the arrival day is
// flagged. The earliest day always has zero usage, there being no prior
// reference point.
func Reconstruct(events []Event) []DailyUsagePoint {
	if len(events) == 0 {
		return nil
	}

	sorted := sortedByDate(events)

	first := sorted[0]
	firstBalance := first.BalanceKwh
	points := []DailyUsagePoint{{
		Date:        dayOf(first.Date),
		UsageKwh:    0,
		MeterValue:  &firstBalance,
		IsTopUp:     first.TopUp != nil,
		TopUpAmount: creditedKwh(first),
	}}

	for i := 1; i < len(sorted); i++ {
		prev, curr := sorted[i-1], sorted[i]

		consumption := prev.BalanceKwh - curr.BalanceKwh
		isTopUp := curr.TopUp != nil
		topUpAmount := creditedKwh(curr)
		if consumption < 0 {
			// Balance went up without consuming: a top-up landed. The true
			// consumption inside the gap is unknowable, so clamp to zero.
			isTopUp = true
			if topUpAmount == 0 {
				topUpAmount = -consumption
			}
			consumption = 0
		}

		days := daysBetween(prev.Date, curr.Date)
		if days < 1 {
			days = 1
		}
		perDay := consumption / float64(days)

		prevDay := dayOf(prev.Date)
		for d := 1; d <= days; d++ {
			point := DailyUsagePoint{
				Date:     prevDay.AddDate(0, 0, d),
				UsageKwh: perDay,
			}
			if d == days {
				balance := curr.BalanceKwh
				point.MeterValue = &balance
				point.IsTopUp = isTopUp
				point.TopUpAmount = topUpAmount
			}
			// Same-day pairs should not occur given the one-reading-per-day
			// invariant; fold them into the existing point defensively.
			if last := &points[len(points)-1]; !last.Date.Before(point.Date) {
				last.UsageKwh += point.UsageKwh
				if point.MeterValue != nil {
					last.MeterValue = point.MeterValue
					last.IsTopUp = last.IsTopUp || point.IsTopUp
					if point.TopUpAmount > 0 {
						last.TopUpAmount = point.TopUpAmount
					}
				}
				continue
			}
			points = append(points, point)
		}
	}

	return points
}

func creditedKwh(e Event) float64 {
	if e.TopUp == nil {
		return 0
	}
	return e.TopUp.AmountCredited
}
