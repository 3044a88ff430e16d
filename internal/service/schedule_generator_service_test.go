package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// racingStore loses the first ReplaceSlots to a concurrent editor.
type racingStore struct {
	*TimetableService
	calls int
}

func (r *racingStore) ReplaceSlots(ctx context.Context, id string, req dto.ReplaceSlotsRequest) (*models.Timetable, error) {
	r.calls++
	if r.calls == 1 {
		return nil, appErrors.Clone(appErrors.ErrConcurrentEdit, "")
	}
	return r.TimetableService.ReplaceSlots(ctx, id, req)
}

func newGeneratorFixture(t *testing.T, store generationStore, roster models.Roster) (*ScheduleGeneratorService, *MetricsService) {
	t.Helper()
	metrics := NewMetricsService()
	svc := NewScheduleGeneratorService(
		store,
		rosterStub{roster: roster},
		calendarStub{cal: calendar.MustNew(calendar.DefaultWeek())},
		metrics,
		nil,
		nil,
		ScheduleGeneratorConfig{RetryBudget: 3},
	)
	return svc, metrics
}

func TestScheduleGeneratorServiceCreatesDraft(t *testing.T) {
	f := newTimetableFixture(t, nil)
	svc, metrics := newGeneratorFixture(t, f.service, testRoster())

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{
		Name:         "Generated",
		AcademicYear: "2024/2025",
		Term:         "1",
		Settings:     models.GenerationSettings{OptimizeFor: models.OptimizeSubjectDistribution},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Timetable)
	assert.Empty(t, resp.Unplaced)
	assert.False(t, resp.Cancelled)
	assert.Len(t, resp.Timetable.Slots, 23)
	assert.Equal(t, 2, resp.Timetable.Version)
	assert.Equal(t, 100.0, resp.Timetable.Statistics.CompletionPercent)
	assert.False(t, scheduler.HasBlocking(resp.Timetable.Conflicts))

	stored := f.repo.stored(resp.Timetable.ID)
	assert.Len(t, stored.Slots, 23)
	assert.Equal(t, uint64(1), metrics.Snapshot().GenerationRuns)
}

func TestScheduleGeneratorServiceExistingDraft(t *testing.T) {
	active := draftTimetable("tt-active")
	active.Status = models.TimetableStatusActive
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"), active)
	svc, _ := newGeneratorFixture(t, f.service, testRoster())
	ctx := context.Background()

	resp, err := svc.Generate(ctx, dto.GenerateTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	assert.Equal(t, "tt-1", resp.Timetable.ID)
	assert.NotEmpty(t, resp.Timetable.Slots)

	_, err = svc.Generate(ctx, dto.GenerateTimetableRequest{TimetableID: "tt-active"})
	requireAppError(t, err, appErrors.ErrFinalized.Code)

	_, err = svc.Generate(ctx, dto.GenerateTimetableRequest{
		TimetableID: "tt-1",
		Settings:    models.GenerationSettings{TimetableType: models.TimetableTypeExam},
	})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	_, err = svc.Generate(ctx, dto.GenerateTimetableRequest{})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestScheduleGeneratorServiceRetriesOnceOnConcurrentEdit(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	store := &racingStore{TimetableService: f.service}
	svc, _ := newGeneratorFixture(t, store, testRoster())

	resp, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
	assert.Len(t, resp.Timetable.Slots, 23)
}

func TestScheduleGeneratorServiceInvalidInput(t *testing.T) {
	roster := testRoster()
	roster.Subjects[0].PeriodsPerWeek = 0
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	svc, metrics := newGeneratorFixture(t, f.service, roster)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{TimetableID: "tt-1"})
	appErr := requireAppError(t, err, appErrors.ErrInvalidInput.Code)
	inputErr, ok := appErr.Details.(*scheduler.InputError)
	require.True(t, ok)
	assert.Equal(t, scheduler.EntitySubject, inputErr.Entity)
	assert.Equal(t, "MATH", inputErr.ID)
	assert.Equal(t, 1, f.repo.stored("tt-1").Version)
	assert.Equal(t, uint64(1), metrics.Snapshot().GenerationRuns)
}

func TestScheduleGeneratorServiceInvalidInputCreatesNoDraft(t *testing.T) {
	roster := testRoster()
	roster.Subjects[0].PeriodsPerWeek = 0
	f := newTimetableFixture(t, nil)
	svc, _ := newGeneratorFixture(t, f.service, roster)

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{
		Name:         "Generated",
		AcademicYear: "2024/2025",
		Term:         "1",
	})
	appErr := requireAppError(t, err, appErrors.ErrInvalidInput.Code)
	assert.Equal(t, appErrors.ErrInvalidInput.Message, appErr.Message)
	assert.Equal(t, 1, strings.Count(appErr.Error(), "periodsPerWeek must be positive"))

	items, err := f.repo.List(context.Background(), models.TimetableFilter{})
	require.NoError(t, err)
	assert.Empty(t, items)
}

// countdownCtx reports cancellation once its Err budget is spent.
type countdownCtx struct {
	context.Context
	remaining int
}

func (c *countdownCtx) Err() error {
	if c.remaining <= 0 {
		return context.Canceled
	}
	c.remaining--
	return nil
}

func TestScheduleGeneratorServiceCancelledRunReturnsPartialSchedule(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	svc, metrics := newGeneratorFixture(t, f.service, testRoster())
	ctx := &countdownCtx{Context: context.Background(), remaining: 8}

	resp, err := svc.Generate(ctx, dto.GenerateTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.Equal(t, 8, resp.Stats.Placed)
	assert.GreaterOrEqual(t, len(resp.Slots), 8)
	assert.False(t, scheduler.HasBlocking(scheduler.DetectConflicts(scheduler.DetectInput{Slots: resp.Slots})))
	require.Len(t, resp.Unplaced, 12)
	for _, unit := range resp.Unplaced {
		assert.Equal(t, scheduler.ReasonCancelled, unit.Reason)
	}

	assert.Equal(t, 1, f.repo.stored("tt-1").Version)
	assert.Empty(t, resp.Timetable.Slots)
	assert.Equal(t, uint64(1), metrics.Snapshot().GenerationRuns)
}

func TestScheduleGeneratorServiceCancelledBeforeStart(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	svc, _ := newGeneratorFixture(t, f.service, testRoster())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	resp, err := svc.Generate(ctx, dto.GenerateTimetableRequest{TimetableID: "tt-1"})
	require.NoError(t, err)
	assert.True(t, resp.Cancelled)
	assert.Empty(t, resp.Slots)
	require.NotEmpty(t, resp.Unplaced)
	assert.Equal(t, 1, f.repo.stored("tt-1").Version)
}
