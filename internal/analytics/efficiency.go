package analytics

import (
	"math"
	"time"
)

// Sub-score maxima. The composite score is always their exact sum.
const (
	maxConsistencyScore = 30
	maxBudgetScore      = 40
	maxTrendScore       = 30
)

// minScoreReadings is the minimum number of readings (and reconstructed
// days) required before a score is meaningful.
const minScoreReadings = 7

// ConsistencyDetail explains the consistency sub-score.
type ConsistencyDetail struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	CV     float64 `json:"cv"`
}

// BudgetDetail explains the budget pacing sub-score.
type BudgetDetail struct {
	MonthProgress float64 `json:"month_progress"`
	ThisMonthKwh  float64 `json:"this_month_kwh"`
	ActualCost    float64 `json:"actual_cost"`
	BudgetUsedPct float64 `json:"budget_used_pct"`
	PacingRatio   float64 `json:"pacing_ratio"`
}

// TrendDetail explains the trend sub-score.
type TrendDetail struct {
	ThisWeekKwh float64 `json:"this_week_kwh"`
	LastWeekKwh float64 `json:"last_week_kwh"`
	ChangePct   float64 `json:"change_pct"`
}

// Breakdown carries the inputs behind each sub-score. A nil entry means the
// sub-score had insufficient data and contributed its default.
type Breakdown struct {
	Consistency *ConsistencyDetail `json:"consistency,omitempty"`
	Budget      *BudgetDetail      `json:"budget,omitempty"`
	Trend       *TrendDetail       `json:"trend,omitempty"`
}

// EfficiencyScore is the 0-100 composite efficiency rating. TotalScore is
// always ConsistencyScore + BudgetScore + TrendScore, and Grade is a strict
// function of TotalScore.
type EfficiencyScore struct {
	HasData          bool      `json:"has_data"`
	Message          string    `json:"message,omitempty"`
	TotalScore       int       `json:"total_score"`
	Grade            string    `json:"grade,omitempty"`
	ConsistencyScore int       `json:"consistency_score"`
	BudgetScore      int       `json:"budget_score"`
	TrendScore       int       `json:"trend_score"`
	Breakdown        Breakdown `json:"breakdown"`
	Tips             []string  `json:"tips,omitempty"`
}

// Score computes the composite efficiency score from the events, the user's
// budget settings, and today's date. With fewer than seven readings or seven
// reconstructed days it returns a no-data result rather than an error.
func Score(events []Event, settings Settings, today time.Time) EfficiencyScore {
	daily := Reconstruct(events)
	if len(events) < minScoreReadings || len(daily) < minScoreReadings {
		return EfficiencyScore{
			Message: "Record at least a week of readings to unlock your efficiency score",
		}
	}

	// Sub-scores read the most recent 30 days of the series.
	window := daily
	if len(window) > 30 {
		window = window[len(window)-30:]
	}

	consistencyScore, consistency := scoreConsistency(window)
	budgetScore, budget := scoreBudget(window, settings, today)
	trendScore, trend := scoreTrend(daily)

	total := consistencyScore + budgetScore + trendScore

	var tips []string
	if consistencyScore < 18 {
		tips = append(tips, "consistency")
	}
	if budgetScore < 24 {
		tips = append(tips, "budget")
	}
	if trendScore < 20 {
		tips = append(tips, "trend")
	}

	return EfficiencyScore{
		HasData:          true,
		TotalScore:       total,
		Grade:            gradeFor(total),
		ConsistencyScore: consistencyScore,
		BudgetScore:      budgetScore,
		TrendScore:       trendScore,
		Breakdown: Breakdown{
			Consistency: consistency,
			Budget:      budget,
			Trend:       trend,
		},
		Tips: tips,
	}
}

// scoreConsistency maps the coefficient of variation of daily usage onto
// 0-30. Needs at least seven qualifying (positive-usage) days; otherwise it
// contributes nothing and is omitted from the breakdown.
func scoreConsistency(window []DailyUsagePoint) (int, *ConsistencyDetail) {
	var values []float64
	for _, p := range window {
		if p.UsageKwh > 0 {
			values = append(values, p.UsageKwh)
		}
	}
	if len(values) < minScoreReadings {
		return 0, nil
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(values)))
	cv := stdDev / mean * 100

	var score int
	switch {
	case cv < 15:
		score = 30
	case cv < 25:
		score = 24
	case cv < 40:
		score = 18
	case cv < 60:
		score = 12
	default:
		score = 6
	}
	return score, &ConsistencyDetail{Mean: mean, StdDev: stdDev, CV: cv}
}

// scoreBudget maps the pacing ratio (budget used vs month elapsed) onto
// 0-40. Without a positive monthly budget there is nothing to pace against
// and the sub-score defaults to the neutral 24.
func scoreBudget(window []DailyUsagePoint, settings Settings, today time.Time) (int, *BudgetDetail) {
	if settings.MonthlyBudget <= 0 {
		return 24, nil
	}

	daysInMonth := time.Date(today.Year(), today.Month()+1, 0, 0, 0, 0, 0, today.Location()).Day()
	monthProgress := float64(today.Day()) / float64(daysInMonth)

	var thisMonthKwh float64
	for _, p := range window {
		if p.Date.Year() == today.Year() && p.Date.Month() == today.Month() {
			thisMonthKwh += p.UsageKwh
		}
	}

	actualCost := thisMonthKwh * settings.TariffPerKwh
	budgetUsedPct := actualCost / settings.MonthlyBudget
	pacingRatio := budgetUsedPct / monthProgress

	var score int
	switch {
	case pacingRatio < 0.8:
		score = 40
	case pacingRatio < 1.0:
		score = 32
	case pacingRatio < 1.2:
		score = 24
	case pacingRatio < 1.5:
		score = 16
	default:
		score = 8
	}
	return score, &BudgetDetail{
		MonthProgress: monthProgress,
		ThisMonthKwh:  thisMonthKwh,
		ActualCost:    actualCost,
		BudgetUsedPct: budgetUsedPct,
		PacingRatio:   pacingRatio,
	}
}

// scoreTrend compares this week's usage against last week's, mapped onto
// 0-30. Without a full comparison week it defaults to the stable 20.
func scoreTrend(daily []DailyUsagePoint) (int, *TrendDetail) {
	var thisWeek, lastWeek float64
	for i := 0; i < len(daily); i++ {
		// Index from the most recent day backwards.
		p := daily[len(daily)-1-i]
		switch {
		case i < 7:
			thisWeek += p.UsageKwh
		case i < 14:
			lastWeek += p.UsageKwh
		}
	}

	if lastWeek <= 0 {
		return 20, &TrendDetail{ThisWeekKwh: thisWeek, LastWeekKwh: lastWeek}
	}

	changePct := (thisWeek - lastWeek) / lastWeek * 100
	var score int
	switch {
	case changePct < -10:
		score = 30
	case changePct < -5:
		score = 25
	case changePct <= 5:
		score = 20
	case changePct < 10:
		score = 12
	default:
		score = 6
	}
	return score, &TrendDetail{ThisWeekKwh: thisWeek, LastWeekKwh: lastWeek, ChangePct: changePct}
}

// gradeFor maps a total score onto its letter grade.
func gradeFor(total int) string {
	switch {
	case total >= 90:
		return "A+"
	case total >= 80:
		return "A"
	case total >= 70:
		return "B"
	case total >= 60:
		return "C"
	case total >= 50:
		return "D"
	default:
		return "F"
	}
}
