package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Generation outcomes recorded in metrics and logs.
const (
	GenerationComplete  = "complete"
	GenerationPartial   = "partial"
	GenerationCancelled = "cancelled"
	GenerationFailed    = "failed"
)

type generationStore interface {
	Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, error)
	Get(ctx context.Context, id string) (*models.Timetable, error)
	ReplaceSlots(ctx context.Context, timetableID string, req dto.ReplaceSlotsRequest) (*models.Timetable, error)
}

// ScheduleGeneratorConfig governs generator behaviour.
type ScheduleGeneratorConfig struct {
	RetryBudget                int
	Weights                    scheduler.ScoringWeights
	Timeout                    time.Duration
	MaxPeriodsPerDayPerTeacher int
	SubjectTolerance           int
}

// ScheduleGeneratorService runs the constraint-based generator on a snapshot of
// the roster and calendar and applies the result to a draft timetable.
type ScheduleGeneratorService struct {
	store     generationStore
	roster    rosterLoader
	calendar  calendarProvider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	cfg       ScheduleGeneratorConfig
	generator *scheduler.Generator
}

// NewScheduleGeneratorService wires generator dependencies.
func NewScheduleGeneratorService(
	store generationStore,
	roster rosterLoader,
	calendars calendarProvider,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg ScheduleGeneratorConfig,
) *ScheduleGeneratorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxPeriodsPerDayPerTeacher <= 0 {
		cfg.MaxPeriodsPerDayPerTeacher = 6
	}
	return &ScheduleGeneratorService{
		store:     store,
		roster:    roster,
		calendar:  calendars,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		generator: scheduler.NewGenerator(scheduler.Options{RetryBudget: cfg.RetryBudget, Weights: cfg.Weights}),
	}
}

// Generate fills a draft timetable. Infeasible demand is reported in the
// response instead of failing the call. Structurally invalid input is rejected
// before any draft is created. A cancelled run is not applied; its partial
// schedule is returned in the response instead.
func (s *ScheduleGeneratorService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	settings := s.withDefaults(req.Settings)

	problem, err := s.problem(ctx, settings)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	if err := s.generator.Validate(problem); err != nil {
		s.observe(settings, GenerationFailed, time.Since(start), nil)
		return nil, s.generationError(err)
	}

	tt, err := s.target(ctx, req, settings)
	if err != nil {
		return nil, err
	}
	settings.TimetableType = tt.Type
	problem.Settings = settings

	runCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var result *scheduler.Result
	for attempt := 0; ; attempt++ {
		result, err = s.generator.Generate(runCtx, problem)
		if err != nil {
			s.observe(settings, GenerationFailed, time.Since(start), nil)
			return nil, s.generationError(err)
		}
		if result.Cancelled {
			break
		}
		applied, err := s.store.ReplaceSlots(ctx, tt.ID, dto.ReplaceSlotsRequest{ExpectedVersion: tt.Version, Slots: result.Slots})
		if err == nil {
			tt = applied
			break
		}
		if attempt > 0 || !appErrors.Retryable(err) {
			s.observe(settings, GenerationFailed, time.Since(start), nil)
			return nil, err
		}
		s.logger.Info("timetable changed during generation, retrying", zap.String("timetable_id", tt.ID))
		if tt, err = s.store.Get(ctx, tt.ID); err != nil {
			return nil, err
		}
		if !tt.Editable() {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "timetable was finalized during generation")
		}
	}
	duration := time.Since(start)

	outcome := GenerationComplete
	switch {
	case result.Cancelled:
		outcome = GenerationCancelled
	case len(result.Unplaced) > 0:
		outcome = GenerationPartial
	}
	s.observe(settings, outcome, duration, result.Unplaced)
	s.logger.Info("timetable generated",
		zap.String("timetable_id", tt.ID),
		zap.String("outcome", outcome),
		zap.Int("placed", len(result.Slots)),
		zap.Int("unplaced", len(result.Unplaced)),
		zap.Int("repaired", result.Stats.Repaired),
		zap.Duration("duration", duration),
	)

	unplaced := result.Unplaced
	if unplaced == nil {
		unplaced = []scheduler.UnplacedUnit{}
	}
	var partial []models.TimetableSlot
	if result.Cancelled {
		partial = result.Slots
	}
	return &dto.GenerationResponse{
		Timetable:  tt,
		Slots:      partial,
		Unplaced:   unplaced,
		Cancelled:  result.Cancelled,
		Stats:      result.Stats,
		DurationMs: duration.Milliseconds(),
	}, nil
}

func (s *ScheduleGeneratorService) withDefaults(settings models.GenerationSettings) models.GenerationSettings {
	if settings.OptimizeFor == "" {
		settings.OptimizeFor = models.OptimizeBalancedWorkload
	}
	if settings.MaxPeriodsPerDayPerTeacher <= 0 {
		settings.MaxPeriodsPerDayPerTeacher = s.cfg.MaxPeriodsPerDayPerTeacher
	}
	return settings
}

// target resolves the draft to generate into, creating one when no id is given.
func (s *ScheduleGeneratorService) target(ctx context.Context, req dto.GenerateTimetableRequest, settings models.GenerationSettings) (*models.Timetable, error) {
	if req.TimetableID == "" {
		kind := settings.TimetableType
		if kind == "" {
			kind = models.TimetableTypeTeaching
		}
		return s.store.Create(ctx, dto.CreateTimetableRequest{
			Name:         req.Name,
			AcademicYear: req.AcademicYear,
			Term:         req.Term,
			Type:         kind,
			Rules: &models.DetectionRules{
				MaxPeriodsPerDayPerTeacher: settings.MaxPeriodsPerDayPerTeacher,
				SubjectTolerance:           s.cfg.SubjectTolerance,
			},
		})
	}

	tt, err := s.store.Get(ctx, req.TimetableID)
	if err != nil {
		return nil, err
	}
	if !tt.Editable() {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "only draft timetables can be generated")
	}
	if settings.TimetableType != "" && settings.TimetableType != tt.Type {
		return nil, appErrors.Clone(appErrors.ErrValidation, "settings.timetableType does not match the timetable")
	}
	return tt, nil
}

// problem snapshots the calendar and roster for one generation request.
func (s *ScheduleGeneratorService) problem(ctx context.Context, settings models.GenerationSettings) (scheduler.Problem, error) {
	cal, err := s.calendar.Current(ctx)
	if err != nil {
		return scheduler.Problem{}, err
	}
	roster, err := s.roster.Load(ctx)
	if err != nil {
		return scheduler.Problem{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return scheduler.Problem{Calendar: cal, Roster: roster, Settings: settings}, nil
}

func (s *ScheduleGeneratorService) generationError(err error) error {
	var inputErr *scheduler.InputError
	if errors.As(err, &inputErr) {
		return appErrors.WithDetails(inputErr, appErrors.ErrInvalidInput, appErrors.ErrInvalidInput.Message, inputErr)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate timetable")
}

func (s *ScheduleGeneratorService) observe(settings models.GenerationSettings, outcome string, duration time.Duration, unplaced []scheduler.UnplacedUnit) {
	byReason := make(map[string]int)
	for _, unit := range unplaced {
		byReason[unit.Reason]++
	}
	s.metrics.ObserveGeneration(settings.TimetableType, settings.OptimizeFor, outcome, duration, byReason)
}
