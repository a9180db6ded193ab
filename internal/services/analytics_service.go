package services

import (
	"time"

	"gorm.io/gorm"

	"meterku/internal/analytics"
	apperrors "meterku/internal/errors"
	"meterku/internal/models"
)

// analyticsService computes derived series on demand. Each call fetches one
// in-memory snapshot of the user's readings and hands it to the pure
// analytics core; nothing derived is ever persisted.
type analyticsService struct {
	db       *gorm.DB
	settings SettingsServicer
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB, settings SettingsServicer) AnalyticsServicer {
	return &analyticsService{db: db, settings: settings}
}

// loadEvents fetches the user's readings ascending and maps them to
// analytics events.
func (s *analyticsService) loadEvents(userID uint) ([]analytics.Event, error) {
	var readings []models.Reading
	err := s.db.Where("user_id = ?", userID).Order("entry_day ASC").Find(&readings).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	events := make([]analytics.Event, 0, len(readings))
	for i := range readings {
		events = append(events, toEvent(&readings[i]))
	}
	return events, nil
}

// toEvent maps a stored reading onto the analytics core's tagged event.
func toEvent(r *models.Reading) analytics.Event {
	e := analytics.Event{Date: r.EntryDay, BalanceKwh: r.KwhValue}
	if r.Kind == models.ReadingKindTopUp {
		detail := &analytics.TopUpDetail{AmountCredited: r.CreditedKwh()}
		if r.TokenCost != nil {
			detail.Cost = *r.TokenCost
		}
		e.TopUp = detail
	}
	return e
}

// GetDailyUsage returns the reconstructed daily series, optionally limited
// to the most recent days.
func (s *analyticsService) GetDailyUsage(userID uint, days int) ([]analytics.DailyUsagePoint, error) {
	events, err := s.loadEvents(userID)
	if err != nil {
		return nil, err
	}
	daily := analytics.Reconstruct(events)
	if days > 0 && len(daily) > days {
		daily = daily[len(daily)-days:]
	}
	return daily, nil
}

// GetWeeklyUsage returns the most recent weekly rollups.
func (s *analyticsService) GetWeeklyUsage(userID uint, weeks int) ([]analytics.WeeklyUsage, error) {
	events, err := s.loadEvents(userID)
	if err != nil {
		return nil, err
	}
	return analytics.AggregateWeekly(analytics.Reconstruct(events), weeks), nil
}

// GetMonthlyUsage returns the most recent monthly rollups.
func (s *analyticsService) GetMonthlyUsage(userID uint, months int) ([]analytics.MonthlyUsage, error) {
	events, err := s.loadEvents(userID)
	if err != nil {
		return nil, err
	}
	return analytics.AggregateMonthly(analytics.Reconstruct(events), months), nil
}

// GetBurnRate returns the depletion projection as of now.
func (s *analyticsService) GetBurnRate(userID uint) (*analytics.BurnRateProjection, error) {
	events, err := s.loadEvents(userID)
	if err != nil {
		return nil, err
	}
	projection := analytics.Project(events, time.Now())
	return &projection, nil
}

// GetEfficiencyScore returns the composite efficiency score under the
// user's settings.
func (s *analyticsService) GetEfficiencyScore(userID uint) (*analytics.EfficiencyScore, error) {
	events, err := s.loadEvents(userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	score := analytics.Score(events, analytics.Settings{
		MonthlyBudget: settings.MonthlyBudget,
		TariffPerKwh:  settings.TariffPerKwh,
	}, time.Now())
	return &score, nil
}

// EstimateTopUp converts a purchase amount into its estimated kWh credit
// under the user's tariff settings.
func (s *analyticsService) EstimateTopUp(userID uint, tokenCost float64) (*TopUpEstimate, error) {
	if tokenCost <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "token cost must be greater than zero")
	}
	settings, err := s.settings.GetSettings(userID)
	if err != nil {
		return nil, err
	}
	return &TopUpEstimate{
		TokenCost:    tokenCost,
		AdminFee:     settings.AdminFee,
		TaxPercent:   settings.TaxPercent,
		TariffPerKwh: settings.TariffPerKwh,
		EstimatedKwh: analytics.EstimateKwh(tokenCost, settings.AdminFee, settings.TaxPercent, settings.TariffPerKwh),
	}, nil
}
