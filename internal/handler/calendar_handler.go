package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/service"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

type schoolCalendar interface {
	Days(ctx context.Context) ([]models.SchoolDay, error)
	UpsertPeriod(ctx context.Context, day, periodID string, req dto.UpsertPeriodRequest) ([]models.SchoolDay, error)
}

// CalendarHandler exposes the school week configuration.
type CalendarHandler struct {
	service schoolCalendar
}

// NewCalendarHandler constructs the handler.
func NewCalendarHandler(svc *service.CalendarService) *CalendarHandler {
	return &CalendarHandler{service: svc}
}

// Get godoc
// @Summary School week with periods per day
// @Tags Calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /calendar [get]
func (h *CalendarHandler) Get(c *gin.Context) {
	days, err := h.service.Days(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}

// UpsertPeriod godoc
// @Summary Create or edit a period
// @Description Periods used by an active or archived timetable cannot be edited.
// @Tags Calendar
// @Accept json
// @Produce json
// @Param day path string true "Weekday"
// @Param periodId path string true "Period ID"
// @Param payload body dto.UpsertPeriodRequest true "Period payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /calendar/days/{day}/periods/{periodId} [put]
func (h *CalendarHandler) UpsertPeriod(c *gin.Context) {
	var req dto.UpsertPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid period payload"))
		return
	}
	days, err := h.service.UpsertPeriod(c.Request.Context(), c.Param("day"), c.Param("periodId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, days, nil)
}
