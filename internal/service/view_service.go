package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

type timetableReader interface {
	Get(ctx context.Context, id string) (*models.Timetable, error)
}

// ViewService projects timetables onto class, teacher, subject and admin grids.
type ViewService struct {
	timetables timetableReader
	calendar   calendarProvider
	cache      *CacheService
	ttl        time.Duration
	logger     *zap.Logger
}

// NewViewService constructs the service. A nil cache disables caching.
func NewViewService(timetables timetableReader, calendars calendarProvider, cache *CacheService, ttl time.Duration, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{timetables: timetables, calendar: calendars, cache: cache, ttl: ttl, logger: logger}
}

// Project returns the grid of one viewpoint. An empty selectedID shows every slot.
func (s *ViewService) Project(ctx context.Context, timetableID, rawMode string, q dto.ViewQuery) (*dto.ViewResponse, error) {
	mode, ok := scheduler.ParseViewMode(rawMode)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown view mode %q", rawMode))
	}
	tt, err := s.timetables.Get(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	cal, err := s.calendar.Current(ctx)
	if err != nil {
		return nil, err
	}

	key := TimetableKey(tt.ID, tt.Version, "view", calendarFingerprint(cal), string(mode), q.SelectedID)
	var cached dto.ViewResponse
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, nil
	}

	slots := scheduler.Project(tt.Slots, mode, q.SelectedID)
	resp := &dto.ViewResponse{
		TimetableID: tt.ID,
		Version:     tt.Version,
		Mode:        mode,
		SelectedID:  q.SelectedID,
		Slots:       slots,
		Grid:        scheduler.BuildGrid(cal, slots),
	}
	_ = s.cache.Set(ctx, key, resp, s.ttl)
	return resp, nil
}

// calendarFingerprint changes whenever a period or day is edited, keeping cached
// grids from outliving the calendar they were built on.
func calendarFingerprint(cal *calendar.Calendar) string {
	data, err := json.Marshal(cal.Days())
	if err != nil {
		return "nocal"
	}
	return export.ContentHash(data)[:12]
}
