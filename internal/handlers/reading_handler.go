package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "meterku/internal/errors"
	"meterku/internal/models"
	"meterku/internal/pagination"
	"meterku/internal/services"
)

// ReadingHandler handles meter reading requests.
type ReadingHandler struct {
	readingService services.ReadingServicer
	auditService   services.AuditServicer
}

// NewReadingHandler creates a new ReadingHandler.
func NewReadingHandler(readingService services.ReadingServicer, auditService services.AuditServicer) *ReadingHandler {
	return &ReadingHandler{readingService: readingService, auditService: auditService}
}

// CreateReadingRequest represents the request payload for recording a meter
// entry. The three flags resolve the duplicate/anomaly/backdate signals a
// previous attempt returned.
type CreateReadingRequest struct {
	Date        time.Time          `json:"date" binding:"omitempty,not_future"`
	Kind        models.ReadingKind `json:"kind" binding:"required,reading_kind"`
	KwhValue    float64            `json:"kwh_value" binding:"min=0"`
	TokenCost   *float64           `json:"token_cost" binding:"omitempty,gt=0"`
	TokenAmount *float64           `json:"token_amount" binding:"omitempty,gt=0"`
	Notes       string             `json:"notes" binding:"max=500"`
	PhotoRef    string             `json:"photo_ref" binding:"max=255"`

	ReplaceExisting      bool `json:"replace_existing"`
	AcknowledgeAnomaly   bool `json:"acknowledge_anomaly"`
	ConfirmRecalculation bool `json:"confirm_recalculation"`
}

// UpdateReadingRequest represents the request payload for editing a reading.
// Kind and date are fixed after creation.
type UpdateReadingRequest struct {
	KwhValue    *float64 `json:"kwh_value" binding:"omitempty,min=0"`
	TokenCost   *float64 `json:"token_cost" binding:"omitempty,gt=0"`
	TokenAmount *float64 `json:"token_amount" binding:"omitempty,gt=0"`
	Notes       *string  `json:"notes" binding:"omitempty,max=500"`
	PhotoRef    *string  `json:"photo_ref" binding:"omitempty,max=255"`

	ConfirmRecalculation bool `json:"confirm_recalculation"`
}

// outcomeStatusCode maps a write outcome onto its HTTP status. Signal
// outcomes that need user resolution come back as 409; a blocked backdate
// is 422 because no retry flag can make it succeed.
func outcomeStatusCode(outcome *services.WriteOutcome) int {
	switch outcome.Status {
	case services.OutcomeCreated:
		return http.StatusCreated
	case services.OutcomeUpdated, services.OutcomeDeleted:
		return http.StatusOK
	case services.OutcomeBackdateBlocked:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusConflict
	}
}

// CreateReading records a new meter entry.
// @Summary     Record a reading
// @Description Record a balance reading or token top-up. Duplicate dates, anomalies, and backdated entries return a 409 with the signal to resolve; resend with the matching flag set to proceed.
// @Tags        readings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body CreateReadingRequest true "Meter entry"
// @Success     201 {object} services.WriteOutcome "Entry recorded"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     409 {object} services.WriteOutcome "Duplicate date, anomaly, or confirmation required"
// @Failure     422 {object} services.WriteOutcome "Backdate blocked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /readings [post]
func (h *ReadingHandler) CreateReading(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	outcome, err := h.readingService.CreateReading(userID, services.CreateReadingInput{
		Date:                 req.Date,
		Kind:                 req.Kind,
		KwhValue:             req.KwhValue,
		TokenCost:            req.TokenCost,
		TokenAmount:          req.TokenAmount,
		Notes:                req.Notes,
		PhotoRef:             req.PhotoRef,
		ReplaceExisting:      req.ReplaceExisting,
		AcknowledgeAnomaly:   req.AcknowledgeAnomaly,
		ConfirmRecalculation: req.ConfirmRecalculation,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if outcome.Status == services.OutcomeCreated {
		h.auditService.Log(userID, "CREATE_READING", "reading", outcome.Reading.ID, c.ClientIP(),
			map[string]interface{}{"kind": req.Kind, "kwh_value": req.KwhValue})
	}

	c.JSON(outcomeStatusCode(outcome), outcome)
}

// GetReadings lists the user's readings.
// @Summary     Get readings
// @Description Get a paginated list of readings, newest first
// @Tags        readings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       from      query string false "Start date (YYYY-MM-DD)"
// @Param       to        query string false "End date (YYYY-MM-DD)"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Reading] "Paginated readings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /readings [get]
func (h *ReadingHandler) GetReadings(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	from, err := parseDateQuery(c, "from")
	if err != nil {
		respondWithError(c, err)
		return
	}
	to, err := parseDateQuery(c, "to")
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.readingService.GetUserReadings(userID, page, from, to)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetReading returns a single reading.
// @Summary     Get a reading
// @Description Get a single reading by ID
// @Tags        readings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path int true "Reading ID"
// @Success     200 {object} models.Reading "Reading"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reading not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /readings/{id} [get]
func (h *ReadingHandler) GetReading(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	readingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	reading, err := h.readingService.GetReadingByID(userID, readingID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reading": reading})
}

// UpdateReading edits a reading.
// @Summary     Update a reading
// @Description Edit a reading's fields. Changing a top-up's credited kWh with later readings present returns a 409 preview; resend with confirm_recalculation to apply.
// @Tags        readings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path int                  true "Reading ID"
// @Param       request body UpdateReadingRequest true "Fields to update"
// @Success     200 {object} services.WriteOutcome "Reading updated"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reading not found"
// @Failure     409 {object} services.WriteOutcome "Confirmation required"
// @Failure     422 {object} services.WriteOutcome "Backdate blocked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /readings/{id} [put]
func (h *ReadingHandler) UpdateReading(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	readingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	outcome, err := h.readingService.UpdateReading(userID, readingID, services.UpdateReadingInput{
		KwhValue:             req.KwhValue,
		TokenCost:            req.TokenCost,
		TokenAmount:          req.TokenAmount,
		Notes:                req.Notes,
		PhotoRef:             req.PhotoRef,
		ConfirmRecalculation: req.ConfirmRecalculation,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	if outcome.Status == services.OutcomeUpdated {
		h.auditService.Log(userID, "UPDATE_READING", "reading", readingID, c.ClientIP(), nil)
	}

	c.JSON(outcomeStatusCode(outcome), outcome)
}

// DeleteReading removes a reading.
// @Summary     Delete a reading
// @Description Delete a reading. Deleting a top-up with later readings present returns a 409 preview; resend with confirm_recalculation=true to apply.
// @Tags        readings
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id                    path  int  true  "Reading ID"
// @Param       confirm_recalculation query bool false "Confirm the pending recalculation"
// @Success     200 {object} services.WriteOutcome "Reading deleted"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Reading not found"
// @Failure     409 {object} services.WriteOutcome "Confirmation required"
// @Failure     422 {object} services.WriteOutcome "Backdate blocked"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /readings/{id} [delete]
func (h *ReadingHandler) DeleteReading(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	readingID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	confirm := c.Query("confirm_recalculation") == "true"

	outcome, err := h.readingService.DeleteReading(userID, readingID, confirm)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if outcome.Status == services.OutcomeDeleted {
		h.auditService.Log(userID, "DELETE_READING", "reading", readingID, c.ClientIP(), nil)
	}

	c.JSON(outcomeStatusCode(outcome), outcome)
}

// parseDateQuery parses an optional YYYY-MM-DD query parameter.
func parseDateQuery(c *gin.Context, param string) (*time.Time, error) {
	v := c.Query(param)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, param+" must be YYYY-MM-DD")
	}
	return &t, nil
}
