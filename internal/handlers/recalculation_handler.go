package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "meterku/internal/errors"
	"meterku/internal/models"
	"meterku/internal/pagination"
	"meterku/internal/services"
	"meterku/internal/uuid"
)

// RecalculationHandler handles backdate recalculation requests.
type RecalculationHandler struct {
	recalcService services.RecalculationServicer
	auditService  services.AuditServicer
}

// NewRecalculationHandler creates a new RecalculationHandler.
func NewRecalculationHandler(recalcService services.RecalculationServicer, auditService services.AuditServicer) *RecalculationHandler {
	return &RecalculationHandler{recalcService: recalcService, auditService: auditService}
}

// BackdatePreviewRequest asks how a backdated write at the given date with
// the given kWh offset would shift later readings.
type BackdatePreviewRequest struct {
	Date        time.Time          `json:"date" binding:"required,not_future"`
	KwhOffset   float64            `json:"kwh_offset" binding:"required"`
	TriggerType models.TriggerType `json:"trigger_type" binding:"omitempty,trigger_type"`
}

// PreviewBackdate computes a backdate impact preview without writing.
// @Summary     Preview a backdate repair
// @Description Show how a backdated entry at the given date would shift every later reading's balance, without writing anything
// @Tags        recalculations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body BackdatePreviewRequest true "Backdate parameters"
// @Success     200 {object} services.BackdatePreview "Impact preview"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /readings/backdate/preview [post]
func (h *RecalculationHandler) PreviewBackdate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req BackdatePreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	trigger := req.TriggerType
	if trigger == "" {
		trigger = models.TriggerInsert
	}

	preview, err := h.recalcService.PreviewBackdate(userID, trigger, req.Date, req.KwhOffset)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// GetRecalculations lists the user's recalculation batches.
// @Summary     Get recalculation history
// @Description Get a paginated list of recalculation batches, newest first
// @Tags        recalculations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number (default 1)"
// @Param       page_size query int false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.RecalculationBatch] "Paginated batches"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recalculations [get]
func (h *RecalculationHandler) GetRecalculations(c *gin.Context) {
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

	result, err := h.recalcService.GetUserBatches(userID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetRecalculation returns a single batch with its per-reading events.
// @Summary     Get a recalculation batch
// @Description Get a recalculation batch and its per-reading balance shifts
// @Tags        recalculations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Batch ID"
// @Success     200 {object} models.RecalculationBatch "Batch"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Batch not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recalculations/{id} [get]
func (h *RecalculationHandler) GetRecalculation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batchID := c.Param("id")
	if !uuid.IsValid(batchID) {
		respondWithError(c, apperrors.ErrBatchNotFound)
		return
	}

	batch, err := h.recalcService.GetBatchByID(userID, batchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"batch": batch})
}

// RollbackRecalculation undoes a batch inside its rollback window.
// @Summary     Roll back a recalculation
// @Description Restore every reading touched by a batch to its previous balance. Allowed once, within 24 hours of the batch
// @Tags        recalculations
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Batch ID"
// @Success     200 {object} models.RecalculationBatch "Batch rolled back"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Batch not found"
// @Failure     409 {object} ErrorResponse "Window expired or already rolled back"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /recalculations/{id}/rollback [post]
func (h *RecalculationHandler) RollbackRecalculation(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	batchID := c.Param("id")
	if !uuid.IsValid(batchID) {
		respondWithError(c, apperrors.ErrBatchNotFound)
		return
	}

	batch, err := h.recalcService.RollbackBatch(userID, batchID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "ROLLBACK_RECALCULATION", "recalculation_batch", 0, c.ClientIP(),
		map[string]interface{}{"batch_id": batch.ID, "kwh_offset": batch.KwhOffset})

	c.JSON(http.StatusOK, gin.H{"batch": batch})
}
