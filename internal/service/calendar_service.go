package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type calendarRepository interface {
	Load(ctx context.Context) ([]models.SchoolDay, error)
	UpsertPeriod(ctx context.Context, day models.Weekday, period models.Period) error
	SetDayActive(ctx context.Context, day models.Weekday, active bool) error
}

type periodReferenceCounter interface {
	CountPeriodReferences(ctx context.Context, day models.Weekday, periodID string) (int, error)
}

// CalendarService owns the school week and hands out validated calendars.
type CalendarService struct {
	repo       calendarRepository
	references periodReferenceCounter
	validator  *validator.Validate
	logger     *zap.Logger

	mu       sync.RWMutex
	cached   *calendar.Calendar
	defaults bool
}

// NewCalendarService constructs the service.
func NewCalendarService(repo calendarRepository, references periodReferenceCounter, validate *validator.Validate, logger *zap.Logger) *CalendarService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarService{repo: repo, references: references, validator: validate, logger: logger}
}

// Current returns the configured calendar, falling back to the default week when
// nothing has been stored yet.
func (s *CalendarService) Current(ctx context.Context) (*calendar.Calendar, error) {
	s.mu.RLock()
	cached := s.cached
	s.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	days, err := s.repo.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school calendar")
	}
	defaults := len(days) == 0
	if defaults {
		days = calendar.DefaultWeek()
	}
	cal, err := calendar.New(days)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored school calendar is invalid")
	}

	s.mu.Lock()
	s.cached = cal
	s.defaults = defaults
	s.mu.Unlock()
	return cal, nil
}

// Days returns the calendar configuration for display.
func (s *CalendarService) Days(ctx context.Context) ([]models.SchoolDay, error) {
	cal, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return cal.Days(), nil
}

// UpsertPeriod edits one period. A period referenced by an active or archived
// timetable is immutable; new periods are always accepted.
func (s *CalendarService) UpsertPeriod(ctx context.Context, rawDay, periodID string, req dto.UpsertPeriodRequest) ([]models.SchoolDay, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid period payload")
	}
	day, ok := models.ParseWeekday(rawDay)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown day %q", rawDay))
	}
	cal, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}

	period := models.Period{ID: periodID, Name: req.Name, StartTime: req.StartTime, EndTime: req.EndTime, Kind: req.Kind}
	if _, exists := cal.Period(day, periodID); exists && s.references != nil {
		count, err := s.references.CountPeriodReferences(ctx, day, periodID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check period references")
		}
		if count > 0 {
			return nil, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("period %s on %s is used by %d non-draft timetable(s)", periodID, day, count))
		}
	}

	days := mergePeriod(cal.Days(), day, period)
	next, err := calendar.New(days)
	if err != nil {
		if errors.Is(err, calendar.ErrInvalidCalendar) {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build calendar")
	}
	if err := s.persist(ctx, next, day); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save period")
	}

	s.mu.Lock()
	s.cached = next
	s.defaults = false
	s.mu.Unlock()
	s.logger.Info("calendar period updated", zap.String("day", string(day)), zap.String("period_id", periodID))
	return next.Days(), nil
}

// persist writes the edited day. While the built-in default week is in use the
// whole week is written so the stored calendar matches what callers saw.
func (s *CalendarService) persist(ctx context.Context, cal *calendar.Calendar, edited models.Weekday) error {
	s.mu.RLock()
	all := s.defaults
	s.mu.RUnlock()
	for _, d := range cal.Days() {
		if !all && d.Day != edited {
			continue
		}
		if err := s.repo.SetDayActive(ctx, d.Day, d.IsActive); err != nil {
			return err
		}
		for _, p := range d.Periods {
			if err := s.repo.UpsertPeriod(ctx, d.Day, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func mergePeriod(days []models.SchoolDay, day models.Weekday, period models.Period) []models.SchoolDay {
	for i := range days {
		if days[i].Day != day {
			continue
		}
		for j := range days[i].Periods {
			if days[i].Periods[j].ID == period.ID {
				days[i].Periods[j] = period
				return days
			}
		}
		days[i].Periods = append(days[i].Periods, period)
		return days
	}
	return append(days, models.SchoolDay{Day: day, IsActive: true, Periods: []models.Period{period}})
}
