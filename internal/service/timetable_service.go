package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type timetableRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error)
	FindActive(ctx context.Context, exec sqlx.ExtContext, academicYear, term string, kind models.TimetableType) (*models.Timetable, error)
	Update(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable, expectedVersion int) error
	Delete(ctx context.Context, id string) error
}

type rosterLoader interface {
	Load(ctx context.Context) (models.Roster, error)
}

type calendarProvider interface {
	Current(ctx context.Context) (*calendar.Calendar, error)
}

type timetableCache interface {
	InvalidateTimetable(ctx context.Context, timetableID string) error
}

// TimetableConfig holds store defaults.
type TimetableConfig struct {
	DefaultRules models.DetectionRules
}

// TimetableService is the schedule store: it owns timetables, enforces slot
// invariants on every mutation and keeps conflicts and statistics current.
type TimetableService struct {
	repo      timetableRepository
	roster    rosterLoader
	calendar  calendarProvider
	tx        txProvider
	cache     timetableCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	locks     *keyedMutex
	rules     models.DetectionRules
	newID     func() string
}

// NewTimetableService wires store dependencies. tx may be nil, in which case
// activation with supersede runs without a transaction.
func NewTimetableService(
	repo timetableRepository,
	roster rosterLoader,
	calendars calendarProvider,
	tx txProvider,
	cache timetableCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultRules.MaxPeriodsPerDayPerTeacher <= 0 {
		cfg.DefaultRules.MaxPeriodsPerDayPerTeacher = 6
	}
	return &TimetableService{
		repo:      repo,
		roster:    roster,
		calendar:  calendars,
		tx:        tx,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		locks:     newKeyedMutex(),
		rules:     cfg.DefaultRules,
		newID:     uuid.NewString,
	}
}

// environment is the roster and calendar a mutation is validated against.
type environment struct {
	cal    *calendar.Calendar
	roster *scheduler.RosterIndex
}

func (s *TimetableService) environment(ctx context.Context) (environment, error) {
	cal, err := s.calendar.Current(ctx)
	if err != nil {
		return environment{}, err
	}
	roster, err := s.roster.Load(ctx)
	if err != nil {
		return environment{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return environment{cal: cal, roster: scheduler.NewRosterIndex(roster)}, nil
}

func (s *TimetableService) rosterIndex(ctx context.Context) (*scheduler.RosterIndex, error) {
	roster, err := s.roster.Load(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}
	return scheduler.NewRosterIndex(roster), nil
}

// Create opens a new draft timetable.
func (s *TimetableService) Create(ctx context.Context, req dto.CreateTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable payload")
	}
	kind := req.Type
	if kind == "" {
		kind = models.TimetableTypeTeaching
	}
	rules := s.rules
	if req.Rules != nil {
		rules = *req.Rules
		if rules.MaxPeriodsPerDayPerTeacher <= 0 {
			rules.MaxPeriodsPerDayPerTeacher = s.rules.MaxPeriodsPerDayPerTeacher
		}
	}
	tt := &models.Timetable{
		Name:         req.Name,
		AcademicYear: req.AcademicYear,
		Term:         req.Term,
		Type:         kind,
		Slots:        []models.TimetableSlot{},
		Conflicts:    []models.Conflict{},
		Rules:        rules,
	}
	if err := s.repo.Create(ctx, nil, tt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}
	idx, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	s.decorate(tt, idx)
	s.logger.Info("timetable created", zap.String("timetable_id", tt.ID), zap.String("type", string(tt.Type)))
	return tt, nil
}

// Get returns a copy of the timetable with statistics filled in.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	idx, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	s.decorate(tt, idx)
	return tt, nil
}

// List returns timetable summaries, most recently updated first.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableSummary, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable filter")
	}
	items, err := s.repo.List(ctx, models.TimetableFilter{
		AcademicYear: query.AcademicYear,
		Term:         query.Term,
		Type:         models.TimetableType(query.Type),
		Status:       models.TimetableStatus(query.Status),
	})
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize}
	start, end := pagination.Paginate(len(items))
	items = items[start:end]

	idx, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, nil, err
	}
	summaries := make([]models.TimetableSummary, 0, len(items))
	for i := range items {
		s.decorate(&items[i], idx)
		summaries = append(summaries, items[i].Summary())
	}
	return summaries, pagination, nil
}

// Delete removes a draft timetable.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	tt, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !tt.Editable() {
		return appErrors.Clone(appErrors.ErrFinalized, "only draft timetables can be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrFinalized, "only draft timetables can be deleted")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	s.invalidate(ctx, id)
	return nil
}

// AddSlot places a slot, or a double-period pair starting at the requested
// coordinate with the partner in the next adjacent teaching period.
func (s *TimetableService) AddSlot(ctx context.Context, timetableID string, req dto.AddSlotRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot payload")
	}

	unlock := s.locks.Lock(timetableID)
	defer unlock()

	tt, env, err := s.editable(ctx, timetableID)
	if err != nil {
		return nil, err
	}

	slot := models.TimetableSlot{
		ID:        s.newID(),
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Day:       req.Day,
		PeriodID:  req.PeriodID,
		RoomID:    normalizeRoom(req.RoomID),
		IsExam:    req.IsExam || tt.Type == models.TimetableTypeExam,
		ExamType:  req.ExamType,
	}
	incoming := []models.TimetableSlot{slot}
	if req.IsDoublePeriod {
		if !env.cal.IsAddressable(req.Day, req.PeriodID) {
			return nil, invalidCoordinate(slot, models.InvariantTeachingPeriod,
				fmt.Sprintf("%s %s is not a teaching period", req.Day, req.PeriodID))
		}
		next, ok := env.cal.NextAdjacentTeaching(req.Day, req.PeriodID)
		if !ok {
			return nil, invalidCoordinate(slot, models.InvariantDoublePeriod, "no adjacent teaching period for the second half")
		}
		partner := slot
		partner.ID = s.newID()
		partner.PeriodID = next.ID
		partner.RoomID = normalizeRoom(req.RoomID)
		incoming = pairSlots(slot, partner)
	}

	if err := (placementCheck{cal: env.cal, roster: env.roster}).validate(tt.Slots, incoming); err != nil {
		s.logger.Warn("slot rejected", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}

	expected := tt.Version
	tt.Slots = append(tt.Slots, incoming...)
	if err := s.save(ctx, tt, env.roster, expected); err != nil {
		return nil, err
	}
	return tt, nil
}

// MoveSlot relocates a slot. A double-period partner moves with it and keeps its
// position relative to the moved half.
func (s *TimetableService) MoveSlot(ctx context.Context, timetableID, slotID string, req dto.MoveSlotRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid move payload")
	}

	unlock := s.locks.Lock(timetableID)
	defer unlock()

	tt, env, err := s.editable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	slot, _, ok := tt.SlotByID(slotID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}

	moved := slot
	moved.Day = req.Day
	moved.PeriodID = req.PeriodID
	if req.RoomID != nil {
		moved.RoomID = normalizeRoom(req.RoomID)
	}
	incoming := []models.TimetableSlot{moved}

	partner, hasPartner := partnerOf(tt, slot)
	if hasPartner {
		if !env.cal.IsAddressable(moved.Day, moved.PeriodID) {
			return nil, invalidCoordinate(moved, models.InvariantTeachingPeriod,
				fmt.Sprintf("%s %s is not a teaching period", moved.Day, moved.PeriodID))
		}
		var target models.Period
		var found bool
		if leads(env.cal, slot, partner) {
			target, found = env.cal.NextAdjacentTeaching(moved.Day, moved.PeriodID)
		} else {
			target, found = env.cal.PreviousAdjacentTeaching(moved.Day, moved.PeriodID)
		}
		if !found {
			return nil, invalidCoordinate(moved, models.InvariantDoublePeriod, "no adjacent teaching period for the partner slot")
		}
		movedPartner := partner
		movedPartner.Day = moved.Day
		movedPartner.PeriodID = target.ID
		if req.RoomID != nil {
			movedPartner.RoomID = normalizeRoom(req.RoomID)
		}
		incoming = append(incoming, movedPartner)
	}

	exclude := map[string]bool{slot.ID: true}
	if hasPartner {
		exclude[partner.ID] = true
	}
	kept := withoutSlots(tt.Slots, exclude)
	if err := (placementCheck{cal: env.cal, roster: env.roster}).validate(kept, incoming); err != nil {
		s.logger.Warn("slot move rejected", zap.String("timetable_id", timetableID), zap.String("slot_id", slotID), zap.Error(err))
		return nil, err
	}

	expected := tt.Version
	tt.Slots = replaceSlots(tt.Slots, incoming)
	if err := s.save(ctx, tt, env.roster, expected); err != nil {
		return nil, err
	}
	return tt, nil
}

// RemoveSlot deletes a slot together with its double-period partner.
func (s *TimetableService) RemoveSlot(ctx context.Context, timetableID, slotID string) (*models.Timetable, error) {
	unlock := s.locks.Lock(timetableID)
	defer unlock()

	tt, env, err := s.editable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	slot, _, ok := tt.SlotByID(slotID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "slot not found")
	}
	exclude := map[string]bool{slot.ID: true}
	if partner, ok := partnerOf(tt, slot); ok {
		exclude[partner.ID] = true
	}

	expected := tt.Version
	tt.Slots = withoutSlots(tt.Slots, exclude)
	if err := s.save(ctx, tt, env.roster, expected); err != nil {
		return nil, err
	}
	return tt, nil
}

// ReplaceSlots swaps the whole slot set when expectedVersion still matches.
// The new set is validated as a unit; nothing is written on failure.
func (s *TimetableService) ReplaceSlots(ctx context.Context, timetableID string, req dto.ReplaceSlotsRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot set")
	}

	unlock := s.locks.Lock(timetableID)
	defer unlock()

	tt, env, err := s.editable(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if tt.Version != req.ExpectedVersion {
		return nil, appErrors.Clone(appErrors.ErrConcurrentEdit, fmt.Sprintf("timetable is at version %d, expected %d", tt.Version, req.ExpectedVersion))
	}

	slots := models.CloneSlots(req.Slots)
	if slots == nil {
		slots = []models.TimetableSlot{}
	}
	seen := make(map[string]bool, len(slots))
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = s.newID()
		}
		if seen[slots[i].ID] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate slot id %s", slots[i].ID))
		}
		seen[slots[i].ID] = true
		slots[i].RoomID = normalizeRoom(slots[i].RoomID)
		if tt.Type == models.TimetableTypeExam {
			slots[i].IsExam = true
		}
	}
	if err := (placementCheck{cal: env.cal, roster: env.roster}).validate(nil, slots); err != nil {
		s.logger.Warn("slot set rejected", zap.String("timetable_id", timetableID), zap.Error(err))
		return nil, err
	}

	tt.Slots = slots
	if err := s.save(ctx, tt, env.roster, req.ExpectedVersion); err != nil {
		return nil, err
	}
	return tt, nil
}

// SetStatus moves a timetable through DRAFT, ACTIVE and ARCHIVED. Activation is
// refused while unresolved CRITICAL conflicts exist or, without supersede, while
// another timetable is ACTIVE for the same year, term and type.
func (s *TimetableService) SetStatus(ctx context.Context, timetableID string, req dto.SetStatusRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	unlock := s.locks.Lock(timetableID)
	defer unlock()

	tt, err := s.load(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	idx, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	if tt.Status == req.Status {
		s.decorate(tt, idx)
		return tt, nil
	}
	if !allowedTransition(tt.Status, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("cannot change status from %s to %s", tt.Status, req.Status))
	}
	if req.Status == models.TimetableStatusActive {
		// Activations of different drafts for one tuple must not both see no ACTIVE row.
		unlockTuple := s.locks.Lock(repository.ActivationLockKey(tt.AcademicYear, tt.Term, tt.Type))
		defer unlockTuple()
	}

	tt.Conflicts = s.detect(tt, idx)
	if req.Status == models.TimetableStatusActive && scheduler.HasBlocking(tt.Conflicts) {
		detail := blockingDetail(tt.Conflicts)
		return nil, appErrors.WithDetails(detail, appErrors.ErrActivationBlocked, detail.Message, detail)
	}

	var demoted *models.Timetable
	err = s.withTx(ctx, func(exec sqlx.ExtContext) error {
		if req.Status == models.TimetableStatusActive {
			current, err := s.repo.FindActive(ctx, exec, tt.AcademicYear, tt.Term, tt.Type)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to look up active timetable")
			}
			if current != nil && current.ID != tt.ID {
				if !req.Supersede {
					detail := &models.ScheduleConflictError{
						Type:      appErrors.ErrActivationBlocked.Code,
						Invariant: models.InvariantSingleActive,
						Message:   fmt.Sprintf("timetable %s is already active for %s %s", current.ID, tt.AcademicYear, tt.Term),
					}
					return appErrors.WithDetails(detail, appErrors.ErrActivationBlocked, detail.Message, detail)
				}
				current.Status = models.TimetableStatusArchived
				if err := s.update(ctx, exec, current, current.Version); err != nil {
					return err
				}
				demoted = current
			}
		}
		expected := tt.Version
		tt.Status = req.Status
		return s.update(ctx, exec, tt, expected)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tt.ID)
	if demoted != nil {
		s.invalidate(ctx, demoted.ID)
		s.logger.Info("timetable superseded", zap.String("timetable_id", demoted.ID), zap.String("by", tt.ID))
	}
	s.decorate(tt, idx)
	s.reportConflicts(tt.Conflicts)
	s.logger.Info("timetable status changed", zap.String("timetable_id", tt.ID), zap.String("status", string(tt.Status)))
	return tt, nil
}

// DetectConflicts recomputes conflicts against the current roster. The stored
// acknowledgements carry over; nothing is written.
func (s *TimetableService) DetectConflicts(ctx context.Context, timetableID string) ([]models.Conflict, error) {
	tt, err := s.load(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	idx, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}
	conflicts := s.detect(tt, idx)
	s.reportConflicts(conflicts)
	return conflicts, nil
}

// ResolveConflict acknowledges a conflict. The flag sticks for as long as the
// conflict keeps the same type and slot set.
func (s *TimetableService) ResolveConflict(ctx context.Context, timetableID, conflictID string) (*models.Conflict, error) {
	unlock := s.locks.Lock(timetableID)
	defer unlock()

	tt, err := s.load(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	if tt.Status == models.TimetableStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "archived timetables are read-only")
	}
	idx, err := s.rosterIndex(ctx)
	if err != nil {
		return nil, err
	}

	expected := tt.Version
	tt.Conflicts = s.detect(tt, idx)
	var found *models.Conflict
	for i := range tt.Conflicts {
		if tt.Conflicts[i].ID == conflictID {
			tt.Conflicts[i].Resolved = true
			found = &tt.Conflicts[i]
			break
		}
	}
	if found == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
	}
	if err := s.update(ctx, nil, tt, expected); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tt.ID)
	s.reportConflicts(tt.Conflicts)
	resolved := *found
	resolved.SlotIDs = append([]string(nil), found.SlotIDs...)
	return &resolved, nil
}

func (s *TimetableService) load(ctx context.Context, id string) (*models.Timetable, error) {
	tt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return tt, nil
}

func (s *TimetableService) editable(ctx context.Context, id string) (*models.Timetable, environment, error) {
	tt, err := s.load(ctx, id)
	if err != nil {
		return nil, environment{}, err
	}
	if !tt.Editable() {
		return nil, environment{}, appErrors.Clone(appErrors.ErrFinalized, fmt.Sprintf("%s timetables are read-only", tt.Status))
	}
	env, err := s.environment(ctx)
	if err != nil {
		return nil, environment{}, err
	}
	return tt, env, nil
}

// save recomputes derived state and writes the timetable when expected is still
// the stored version.
func (s *TimetableService) save(ctx context.Context, tt *models.Timetable, idx *scheduler.RosterIndex, expected int) error {
	tt.Conflicts = s.detect(tt, idx)
	if err := s.update(ctx, nil, tt, expected); err != nil {
		return err
	}
	s.decorate(tt, idx)
	s.invalidate(ctx, tt.ID)
	s.reportConflicts(tt.Conflicts)
	return nil
}

func (s *TimetableService) update(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable, expected int) error {
	if err := s.repo.Update(ctx, exec, tt, expected); err != nil {
		if errors.Is(err, repository.ErrVersionMismatch) {
			return appErrors.Wrap(err, appErrors.ErrConcurrentEdit.Code, appErrors.ErrConcurrentEdit.Status, appErrors.ErrConcurrentEdit.Message)
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	return nil
}

func (s *TimetableService) withTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) (err error) {
	if s.tx == nil {
		return fn(nil)
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

func (s *TimetableService) detect(tt *models.Timetable, idx *scheduler.RosterIndex) []models.Conflict {
	conflicts := scheduler.DetectConflicts(scheduler.DetectInput{
		Type:     tt.Type,
		Slots:    tt.Slots,
		Rules:    tt.Rules,
		Roster:   idx,
		Previous: tt.Conflicts,
	})
	if conflicts == nil {
		conflicts = []models.Conflict{}
	}
	return conflicts
}

func (s *TimetableService) decorate(tt *models.Timetable, idx *scheduler.RosterIndex) {
	if tt.Slots == nil {
		tt.Slots = []models.TimetableSlot{}
	}
	if tt.Conflicts == nil {
		tt.Conflicts = []models.Conflict{}
	}
	tt.Statistics = scheduler.ComputeStatistics(tt.Type, tt.Slots, tt.Conflicts, idx)
}

func (s *TimetableService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateTimetable(ctx, id); err != nil {
		s.logger.Warn("failed to invalidate timetable cache", zap.String("timetable_id", id), zap.Error(err))
	}
}

func (s *TimetableService) reportConflicts(conflicts []models.Conflict) {
	s.metrics.SetOpenConflicts(scheduler.CountBySeverity(conflicts))
}

func allowedTransition(from, to models.TimetableStatus) bool {
	switch from {
	case models.TimetableStatusDraft:
		return to == models.TimetableStatusActive || to == models.TimetableStatusArchived
	case models.TimetableStatusActive:
		return to == models.TimetableStatusArchived
	default:
		return false
	}
}

func blockingDetail(conflicts []models.Conflict) *models.ScheduleConflictError {
	seen := make(map[string]bool)
	var ids []string
	count := 0
	for _, c := range conflicts {
		if !c.Blocking() {
			continue
		}
		count++
		for _, id := range c.SlotIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	sort.Strings(ids)
	return &models.ScheduleConflictError{
		Type:      appErrors.ErrActivationBlocked.Code,
		Invariant: models.InvariantUnresolvedCritical,
		Message:   fmt.Sprintf("%d unresolved critical conflict(s) block activation", count),
		SlotIDs:   ids,
	}
}

// pairSlots cross-links two halves of a double period.
func pairSlots(first, second models.TimetableSlot) []models.TimetableSlot {
	firstID, secondID := first.ID, second.ID
	first.IsDoublePeriod, second.IsDoublePeriod = true, true
	first.PairSlotID = &secondID
	second.PairSlotID = &firstID
	return []models.TimetableSlot{first, second}
}

func partnerOf(tt *models.Timetable, slot models.TimetableSlot) (models.TimetableSlot, bool) {
	if slot.PairSlotID != nil {
		if partner, _, ok := tt.SlotByID(*slot.PairSlotID); ok {
			return partner, true
		}
	}
	for _, other := range tt.Slots {
		if other.PairSlotID != nil && *other.PairSlotID == slot.ID {
			return other, true
		}
	}
	return models.TimetableSlot{}, false
}

// leads reports whether slot is the earlier half of its pair.
func leads(cal *calendar.Calendar, slot, partner models.TimetableSlot) bool {
	next, ok := cal.NextAdjacentTeaching(slot.Day, slot.PeriodID)
	if ok && slot.Day == partner.Day && next.ID == partner.PeriodID {
		return true
	}
	prev, ok := cal.PreviousAdjacentTeaching(slot.Day, slot.PeriodID)
	if ok && slot.Day == partner.Day && prev.ID == partner.PeriodID {
		return false
	}
	return slot.ID < partner.ID
}

func withoutSlots(slots []models.TimetableSlot, exclude map[string]bool) []models.TimetableSlot {
	out := make([]models.TimetableSlot, 0, len(slots))
	for _, slot := range slots {
		if !exclude[slot.ID] {
			out = append(out, slot)
		}
	}
	return out
}

func replaceSlots(slots, updated []models.TimetableSlot) []models.TimetableSlot {
	byID := make(map[string]models.TimetableSlot, len(updated))
	for _, slot := range updated {
		byID[slot.ID] = slot
	}
	out := make([]models.TimetableSlot, len(slots))
	for i, slot := range slots {
		if replacement, ok := byID[slot.ID]; ok {
			out[i] = replacement
			continue
		}
		out[i] = slot
	}
	return out
}

func normalizeRoom(room *string) *string {
	if room == nil || *room == "" {
		return nil
	}
	value := *room
	return &value
}
