// Package analytics implements the consumption reconstruction and
// forecasting core: the gap-filled daily usage series, weekly/monthly
// rollups, the burn-rate depletion projection, the composite efficiency
// score, and the tariff-to-kWh converter.
//
// Every function here is a pure function of its inputs. Readings arrive as
// Event values, "today" is always an explicit parameter, and settings are
// threaded in rather than read from ambient state, so results are
// deterministic and directly testable.
package analytics

import (
	"sort"
	"time"
)

// TopUpDetail carries the token purchase attached to a top-up event.
type TopUpDetail struct {
	Cost           float64 `json:"cost"`
	AmountCredited float64 `json:"amount_credited"`
}

// Event is one meter snapshot: the remaining balance at a point in time,
// optionally tagged as a top-up. TopUp is nil for plain readings.
type Event struct {
	Date       time.Time    `json:"date"`
	BalanceKwh float64      `json:"balance_kwh"`
	TopUp      *TopUpDetail `json:"top_up,omitempty"`
}

// Settings holds the configuration the efficiency scorer needs.
type Settings struct {
	MonthlyBudget float64 `json:"monthly_budget"`
	TariffPerKwh  float64 `json:"tariff_per_kwh"`
}

// dayOf truncates a timestamp to midnight in its own location.
func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// daysBetween returns the whole-day distance between two calendar days.
func daysBetween(from, to time.Time) int {
	return int(dayOf(to).Sub(dayOf(from)).Hours() / 24)
}

// sortedByDate returns a date-ascending copy of events.
func sortedByDate(events []Event) []Event {
	out := make([]Event, len(events))
	copy(out, events)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
