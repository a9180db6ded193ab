package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "meterku/internal/errors"
	"meterku/internal/services"
)

// AnalyticsHandler handles derived usage series requests.
type AnalyticsHandler struct {
	analyticsService services.AnalyticsServicer
}

// NewAnalyticsHandler creates a new AnalyticsHandler.
func NewAnalyticsHandler(analyticsService services.AnalyticsServicer) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// parseCountQuery parses an optional positive integer query parameter,
// falling back to def when absent.
func parseCountQuery(c *gin.Context, param string, def, max int) (int, error) {
	v := c.Query(param)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > max {
		return 0, apperrors.WithMessage(apperrors.ErrInvalidInput,
			param+" must be between 1 and "+strconv.Itoa(max))
	}
	return n, nil
}

// GetDailyUsage returns the reconstructed daily usage series.
// @Summary     Get daily usage
// @Description Get the daily usage series reconstructed from balance readings
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       days query int false "Number of most recent days (default 30, max 365)"
// @Success     200 {array} analytics.DailyUsagePoint "Daily usage series"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/daily [get]
func (h *AnalyticsHandler) GetDailyUsage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	days, err := parseCountQuery(c, "days", 30, 365)
	if err != nil {
		respondWithError(c, err)
		return
	}

	daily, err := h.analyticsService.GetDailyUsage(userID, days)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"daily": daily})
}

// GetWeeklyUsage returns the weekly usage rollups.
// @Summary     Get weekly usage
// @Description Get Monday-start weekly usage totals
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       weeks query int false "Number of most recent weeks (default 8, max 52)"
// @Success     200 {array} analytics.WeeklyUsage "Weekly usage rollups"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/weekly [get]
func (h *AnalyticsHandler) GetWeeklyUsage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	weeks, err := parseCountQuery(c, "weeks", 8, 52)
	if err != nil {
		respondWithError(c, err)
		return
	}

	weekly, err := h.analyticsService.GetWeeklyUsage(userID, weeks)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"weekly": weekly})
}

// GetMonthlyUsage returns the monthly usage rollups.
// @Summary     Get monthly usage
// @Description Get calendar-month usage totals
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       months query int false "Number of most recent months (default 6, max 24)"
// @Success     200 {array} analytics.MonthlyUsage "Monthly usage rollups"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/monthly [get]
func (h *AnalyticsHandler) GetMonthlyUsage(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	months, err := parseCountQuery(c, "months", 6, 24)
	if err != nil {
		respondWithError(c, err)
		return
	}

	monthly, err := h.analyticsService.GetMonthlyUsage(userID, months)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"monthly": monthly})
}

// GetBurnRate returns the depletion projection.
// @Summary     Get burn rate
// @Description Project when the remaining balance runs out at the current average daily draw
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} analytics.BurnRateProjection "Depletion projection"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/burn-rate [get]
func (h *AnalyticsHandler) GetBurnRate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	projection, err := h.analyticsService.GetBurnRate(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, projection)
}

// GetEfficiencyScore returns the composite efficiency score.
// @Summary     Get efficiency score
// @Description Get the 0-100 efficiency score with its consistency, budget, and trend components
// @Tags        analytics
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} analytics.EfficiencyScore "Efficiency score"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /analytics/efficiency [get]
func (h *AnalyticsHandler) GetEfficiencyScore(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	score, err := h.analyticsService.GetEfficiencyScore(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// EstimateTariff converts a purchase amount to its estimated kWh credit.
// @Summary     Estimate token credit
// @Description Estimate the kWh a purchase amount buys under the user's tariff settings
// @Tags        tariff
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       cost query number true "Purchase amount in Rupiah"
// @Success     200 {object} services.TopUpEstimate "Estimated credit"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /tariff/estimate [get]
func (h *AnalyticsHandler) EstimateTariff(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cost, err := strconv.ParseFloat(c.Query("cost"), 64)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "cost must be a number"))
		return
	}

	estimate, err := h.analyticsService.EstimateTopUp(userID, cost)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, estimate)
}
