package analytics

import (
	"fmt"
	"sort"
	"time"
)

// WeeklyUsage aggregates the daily series over one ISO (Monday-start) week.
type WeeklyUsage struct {
	PeriodKey string  `json:"period_key"`
	Label     string  `json:"label"`
	UsageKwh  float64 `json:"usage_kwh"`
	AvgDaily  float64 `json:"avg_daily"`
	HasTopUp  bool    `json:"has_top_up"`
}

// MonthlyUsage aggregates the daily series over one calendar month. AvgDaily
// divides by the days actually present in the bucket, not the full month.
type MonthlyUsage struct {
	PeriodKey string  `json:"period_key"`
	Label     string  `json:"label"`
	UsageKwh  float64 `json:"usage_kwh"`
	AvgDaily  float64 `json:"avg_daily"`
	HasTopUp  bool    `json:"has_top_up"`
}

// AggregateWeekly folds the daily series into Monday-start weekly buckets,
// sorted ascending by week start and truncated to the most recent weekCount.
func AggregateWeekly(daily []DailyUsagePoint, weekCount int) []WeeklyUsage {
	type bucket struct {
		usage    float64
		hasTopUp bool
	}
	buckets := make(map[time.Time]*bucket)
	for _, p := range daily {
		start := weekStart(p.Date)
		b, ok := buckets[start]
		if !ok {
			b = &bucket{}
			buckets[start] = b
		}
		b.usage += p.UsageKwh
		b.hasTopUp = b.hasTopUp || p.IsTopUp
	}

	starts := make([]time.Time, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	if weekCount > 0 && len(starts) > weekCount {
		starts = starts[len(starts)-weekCount:]
	}

	weeks := make([]WeeklyUsage, 0, len(starts))
	for _, start := range starts {
		b := buckets[start]
		year, week := start.ISOWeek()
		end := start.AddDate(0, 0, 6)
		weeks = append(weeks, WeeklyUsage{
			PeriodKey: fmt.Sprintf("%d-W%02d", year, week),
			Label:     fmt.Sprintf("%s - %s", start.Format("2 Jan"), end.Format("2 Jan")),
			UsageKwh:  b.usage,
			AvgDaily:  b.usage / 7,
			HasTopUp:  b.hasTopUp,
		})
	}
	return weeks
}

// AggregateMonthly folds the daily series into calendar-month buckets,
// sorted ascending and truncated to the most recent monthCount.
func AggregateMonthly(daily []DailyUsagePoint, monthCount int) []MonthlyUsage {
	type bucket struct {
		usage    float64
		days     int
		hasTopUp bool
	}
	buckets := make(map[time.Time]*bucket)
	for _, p := range daily {
		start := time.Date(p.Date.Year(), p.Date.Month(), 1, 0, 0, 0, 0, p.Date.Location())
		b, ok := buckets[start]
		if !ok {
			b = &bucket{}
			buckets[start] = b
		}
		b.usage += p.UsageKwh
		b.days++
		b.hasTopUp = b.hasTopUp || p.IsTopUp
	}

	starts := make([]time.Time, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	if monthCount > 0 && len(starts) > monthCount {
		starts = starts[len(starts)-monthCount:]
	}

	months := make([]MonthlyUsage, 0, len(starts))
	for _, start := range starts {
		b := buckets[start]
		months = append(months, MonthlyUsage{
			PeriodKey: start.Format("2006-01"),
			Label:     start.Format("January 2006"),
			UsageKwh:  b.usage,
			AvgDaily:  b.usage / float64(b.days),
			HasTopUp:  b.hasTopUp,
		})
	}
	return months
}

// weekStart returns the Monday of the ISO week containing d.
func weekStart(d time.Time) time.Time {
	day := dayOf(d)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}
