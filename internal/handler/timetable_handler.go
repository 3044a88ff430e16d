package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type timetableStore interface {
	Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, error)
	Get(ctx context.Context, id string) (*models.Timetable, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableSummary, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
	AddSlot(ctx context.Context, timetableID string, req dto.AddSlotRequest) (*models.Timetable, error)
	MoveSlot(ctx context.Context, timetableID, slotID string, req dto.MoveSlotRequest) (*models.Timetable, error)
	RemoveSlot(ctx context.Context, timetableID, slotID string) (*models.Timetable, error)
	ReplaceSlots(ctx context.Context, timetableID string, req dto.ReplaceSlotsRequest) (*models.Timetable, error)
	SetStatus(ctx context.Context, timetableID string, req dto.SetStatusRequest) (*models.Timetable, error)
	DetectConflicts(ctx context.Context, timetableID string) ([]models.Conflict, error)
	ResolveConflict(ctx context.Context, timetableID, conflictID string) (*models.Conflict, error)
}

// TimetableHandler exposes timetable editing endpoints.
type TimetableHandler struct {
	service timetableStore
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// List godoc
// @Summary List timetables
// @Tags Timetables
// @Produce json
// @Param academicYear query string false "Academic year"
// @Param term query string false "Term"
// @Param type query string false "TEACHING or EXAM"
// @Param status query string false "DRAFT, ACTIVE or ARCHIVED"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	var query dto.TimetableQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get timetable with slots, conflicts and statistics
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id} [get]
func (h *TimetableHandler) Get(c *gin.Context) {
	tt, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}

// Create godoc
// @Summary Create draft timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body dto.CreateTimetableRequest true "Timetable payload"
// @Success 201 {object} response.Envelope
// @Router /timetables [post]
func (h *TimetableHandler) Create(c *gin.Context) {
	var req dto.CreateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid timetable payload"))
		return
	}
	tt, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tt)
}

// Delete godoc
// @Summary Delete draft timetable
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Success 204
// @Router /timetables/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddSlot godoc
// @Summary Add slot (or double period) to a draft timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.AddSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/slots [post]
func (h *TimetableHandler) AddSlot(c *gin.Context) {
	var req dto.AddSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slot payload"))
		return
	}
	tt, err := h.service.AddSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tt)
}

// MoveSlot godoc
// @Summary Move slot to another coordinate
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param slotId path string true "Slot ID"
// @Param payload body dto.MoveSlotRequest true "Target coordinate"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/slots/{slotId} [patch]
func (h *TimetableHandler) MoveSlot(c *gin.Context) {
	var req dto.MoveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid move payload"))
		return
	}
	tt, err := h.service.MoveSlot(c.Request.Context(), c.Param("id"), c.Param("slotId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}

// RemoveSlot godoc
// @Summary Remove slot (and its double-period partner)
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Param slotId path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/slots/{slotId} [delete]
func (h *TimetableHandler) RemoveSlot(c *gin.Context) {
	tt, err := h.service.RemoveSlot(c.Request.Context(), c.Param("id"), c.Param("slotId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}

// ReplaceSlots godoc
// @Summary Replace every slot when the version still matches
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.ReplaceSlotsRequest true "Slots payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/slots [put]
func (h *TimetableHandler) ReplaceSlots(c *gin.Context) {
	var req dto.ReplaceSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid slots payload"))
		return
	}
	tt, err := h.service.ReplaceSlots(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}

// SetStatus godoc
// @Summary Activate or archive a timetable
// @Tags Timetables
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body dto.SetStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/status [post]
func (h *TimetableHandler) SetStatus(c *gin.Context) {
	var req dto.SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	tt, err := h.service.SetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tt, nil)
}

// Conflicts godoc
// @Summary Detect conflicts of a timetable
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/conflicts [get]
func (h *TimetableHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.service.DetectConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	meta := map[string]interface{}{
		"bySeverity": scheduler.CountBySeverity(conflicts),
		"blocking":   scheduler.HasBlocking(conflicts),
	}
	response.JSON(c, http.StatusOK, conflicts, nil, meta)
}

// ResolveConflict godoc
// @Summary Acknowledge a conflict
// @Tags Timetables
// @Produce json
// @Param id path string true "Timetable ID"
// @Param conflictId path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/conflicts/{conflictId}/resolve [post]
func (h *TimetableHandler) ResolveConflict(c *gin.Context) {
	conflict, err := h.service.ResolveConflict(c.Request.Context(), c.Param("id"), c.Param("conflictId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}
