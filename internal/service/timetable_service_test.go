package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/dto"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/repository"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

type timetableRepoStub struct {
	mu      sync.Mutex
	items   map[string]*models.Timetable
	updates int
	seq     int
}

func newTimetableRepoStub(items ...*models.Timetable) *timetableRepoStub {
	stub := &timetableRepoStub{items: make(map[string]*models.Timetable)}
	for _, tt := range items {
		if tt.Version == 0 {
			tt.Version = 1
		}
		stub.items[tt.ID] = tt.Clone()
	}
	return stub
}

func (s *timetableRepoStub) Create(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tt.ID == "" {
		s.seq++
		tt.ID = fmt.Sprintf("tt-%d", s.seq)
	}
	if tt.Status == "" {
		tt.Status = models.TimetableStatusDraft
	}
	tt.Version = 1
	s.items[tt.ID] = tt.Clone()
	return nil
}

func (s *timetableRepoStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tt.Clone(), nil
}

func (s *timetableRepoStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Timetable
	for _, tt := range s.items {
		if filter.AcademicYear != "" && tt.AcademicYear != filter.AcademicYear {
			continue
		}
		if filter.Term != "" && tt.Term != filter.Term {
			continue
		}
		out = append(out, *tt.Clone())
	}
	return out, nil
}

func (s *timetableRepoStub) FindActive(ctx context.Context, exec sqlx.ExtContext, academicYear, term string, kind models.TimetableType) (*models.Timetable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tt := range s.items {
		if tt.AcademicYear == academicYear && tt.Term == term && tt.Type == kind && tt.Status == models.TimetableStatusActive {
			return tt.Clone(), nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *timetableRepoStub) Update(ctx context.Context, exec sqlx.ExtContext, tt *models.Timetable, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[tt.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrVersionMismatch
	}
	tt.Version = expectedVersion + 1
	s.items[tt.ID] = tt.Clone()
	s.updates++
	return nil
}

func (s *timetableRepoStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tt, ok := s.items[id]
	if !ok || tt.Status != models.TimetableStatusDraft {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	return nil
}

func (s *timetableRepoStub) stored(id string) *models.Timetable {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Clone()
}

type rosterStub struct {
	roster models.Roster
	err    error
}

func (r rosterStub) Load(ctx context.Context) (models.Roster, error) {
	return r.roster, r.err
}

type calendarStub struct {
	cal *calendar.Calendar
}

func (c calendarStub) Current(ctx context.Context) (*calendar.Calendar, error) {
	return c.cal, nil
}

type cacheInvalidatorStub struct {
	mu  sync.Mutex
	ids []string
}

func (c *cacheInvalidatorStub) InvalidateTimetable(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, id)
	return nil
}

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func strRef(v string) *string { return &v }

func testRoster() models.Roster {
	return models.Roster{
		Subjects: []models.Subject{
			{ID: "MATH", Name: "Mathematics", PeriodsPerWeek: 4, DoublePeriodsPerWeek: 1, DifficultyLevel: models.DifficultyHigh, Category: models.SubjectCategoryCore},
			{ID: "ENG", Name: "English", PeriodsPerWeek: 3, DifficultyLevel: models.DifficultyMedium, Category: models.SubjectCategoryCore},
			{ID: "CHEM", Name: "Chemistry", PeriodsPerWeek: 2, RequiresLab: true, Category: models.SubjectCategoryCore, FormLevels: []string{"11"}},
		},
		Classes: []models.SchoolClass{
			{ID: "X-A", Name: "X-A", FormLevel: "10"},
			{ID: "X-B", Name: "X-B", FormLevel: "10"},
			{ID: "XI-A", Name: "XI-A", FormLevel: "11"},
		},
		Teachers: []models.Teacher{
			{ID: "T1", Name: "Budi", SubjectIDs: []string{"MATH"}},
			{ID: "T2", Name: "Sari", SubjectIDs: []string{"ENG"}},
			{ID: "T3", Name: "Dewi", SubjectIDs: []string{"MATH", "CHEM"}},
		},
		Rooms: []models.Room{{ID: "R1", Name: "Room 1"}, {ID: "LAB", Name: "Lab", IsLab: true}},
	}
}

type timetableFixture struct {
	service *TimetableService
	repo    *timetableRepoStub
	cache   *cacheInvalidatorStub
}

func newTimetableFixture(t *testing.T, tx txProvider, items ...*models.Timetable) timetableFixture {
	t.Helper()
	repo := newTimetableRepoStub(items...)
	cache := &cacheInvalidatorStub{}
	svc := NewTimetableService(
		repo,
		rosterStub{roster: testRoster()},
		calendarStub{cal: calendar.MustNew(calendar.DefaultWeek())},
		tx,
		cache,
		nil,
		nil,
		nil,
		TimetableConfig{DefaultRules: models.DetectionRules{MaxPeriodsPerDayPerTeacher: 6}},
	)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("slot-%02d", n)
	}
	return timetableFixture{service: svc, repo: repo, cache: cache}
}

func draftTimetable(id string, slots ...models.TimetableSlot) *models.Timetable {
	return &models.Timetable{
		ID:           id,
		Name:         "Semester 1",
		AcademicYear: "2024/2025",
		Term:         "1",
		Type:         models.TimetableTypeTeaching,
		Status:       models.TimetableStatusDraft,
		Slots:        slots,
		Rules:        models.DetectionRules{MaxPeriodsPerDayPerTeacher: 6},
		Version:      1,
	}
}

func addReq(classID, subjectID, teacherID string, day models.Weekday, periodID string) dto.AddSlotRequest {
	return dto.AddSlotRequest{ClassID: classID, SubjectID: subjectID, TeacherID: teacherID, Day: day, PeriodID: periodID}
}

func requireAppError(t *testing.T, err error, code string) *appErrors.Error {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected typed error, got %v", err)
	assert.Equal(t, code, appErr.Code)
	return appErr
}

func conflictDetail(t *testing.T, appErr *appErrors.Error) *models.ScheduleConflictError {
	t.Helper()
	detail, ok := appErr.Details.(*models.ScheduleConflictError)
	require.True(t, ok, "expected schedule conflict details")
	return detail
}

func TestTimetableServiceCreateAndGet(t *testing.T) {
	f := newTimetableFixture(t, nil)

	tt, err := f.service.Create(context.Background(), dto.CreateTimetableRequest{Name: "Semester 1", AcademicYear: "2024/2025", Term: "1"})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusDraft, tt.Status)
	assert.Equal(t, models.TimetableTypeTeaching, tt.Type)
	assert.Equal(t, 6, tt.Rules.MaxPeriodsPerDayPerTeacher)
	assert.Equal(t, 1, tt.Version)

	got, err := f.service.Get(context.Background(), tt.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Statistics.TotalSlots)
	assert.Equal(t, 23, got.Statistics.RequiredPeriods)

	_, err = f.service.Get(context.Background(), "missing")
	requireAppError(t, err, appErrors.ErrNotFound.Code)

	_, err = f.service.Create(context.Background(), dto.CreateTimetableRequest{Name: "x"})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestTimetableServiceListFiltersByYearAndTerm(t *testing.T) {
	other := draftTimetable("tt-2")
	other.Term = "2"
	f := newTimetableFixture(t, nil, draftTimetable("tt-1", models.TimetableSlot{ID: "s1", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1"}), other)

	items, pagination, err := f.service.List(context.Background(), dto.TimetableQuery{AcademicYear: "2024/2025", Term: "1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "tt-1", items[0].ID)
	assert.Equal(t, 1, items[0].SlotCount)
	assert.Greater(t, items[0].CompletionPercent, 0.0)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: models.DefaultPageSize, TotalCount: 1}, *pagination)

	_, _, err = f.service.List(context.Background(), dto.TimetableQuery{Status: "BOGUS"})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestTimetableServiceListPages(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"), draftTimetable("tt-2"), draftTimetable("tt-3"))

	items, pagination, err := f.service.List(context.Background(), dto.TimetableQuery{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 3, pagination.TotalCount)

	items, _, err = f.service.List(context.Background(), dto.TimetableQuery{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestTimetableServiceAddSlot(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))

	tt, err := f.service.AddSlot(context.Background(), "tt-1", addReq("X-A", "MATH", "T1", models.Monday, "P1"))
	require.NoError(t, err)
	require.Len(t, tt.Slots, 1)
	assert.Equal(t, "slot-01", tt.Slots[0].ID)
	assert.Equal(t, 2, tt.Version)
	assert.Equal(t, 1, tt.Statistics.TotalSlots)
	assert.Equal(t, []string{"tt-1"}, f.cache.ids)
	assert.Equal(t, 2, f.repo.stored("tt-1").Version)
}

func TestTimetableServiceAddSlotRejectsClashes(t *testing.T) {
	existing := models.TimetableSlot{ID: "s1", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1", RoomID: strRef("R1")}

	cases := []struct {
		name      string
		req       dto.AddSlotRequest
		invariant string
	}{
		{"class", addReq("X-A", "ENG", "T2", models.Monday, "P1"), models.InvariantClassCoordinate},
		{"teacher", addReq("X-B", "MATH", "T1", models.Monday, "P1"), models.InvariantTeacherCoordinate},
		{"room", func() dto.AddSlotRequest {
			req := addReq("X-B", "ENG", "T2", models.Monday, "P1")
			req.RoomID = strRef("R1")
			return req
		}(), models.InvariantRoomCoordinate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newTimetableFixture(t, nil, draftTimetable("tt-1", existing))

			_, err := f.service.AddSlot(context.Background(), "tt-1", tc.req)
			appErr := requireAppError(t, err, appErrors.ErrConflictOnInsert.Code)
			detail := conflictDetail(t, appErr)
			assert.Equal(t, tc.invariant, detail.Invariant)
			assert.Contains(t, detail.SlotIDs, "s1")
			assert.Equal(t, 0, f.repo.updates)
		})
	}
}

func TestTimetableServiceAddSlotRejectsInvalidCoordinateAndRoster(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))

	_, err := f.service.AddSlot(context.Background(), "tt-1", addReq("X-A", "MATH", "T1", models.Monday, "BRK"))
	appErr := requireAppError(t, err, appErrors.ErrInvalidCoordinate.Code)
	assert.Equal(t, models.InvariantTeachingPeriod, conflictDetail(t, appErr).Invariant)

	_, err = f.service.AddSlot(context.Background(), "tt-1", addReq("X-A", "MATH", "T1", models.Saturday, "P1"))
	requireAppError(t, err, appErrors.ErrInvalidCoordinate.Code)

	_, err = f.service.AddSlot(context.Background(), "tt-1", addReq("X-A", "MATH", "T2", models.Monday, "P1"))
	appErr = requireAppError(t, err, appErrors.ErrValidation.Code)
	assert.Equal(t, models.InvariantRoster, conflictDetail(t, appErr).Invariant)

	_, err = f.service.AddSlot(context.Background(), "tt-1", addReq("X-A", "CHEM", "T3", models.Monday, "P1"))
	requireAppError(t, err, appErrors.ErrValidation.Code)

	req := addReq("X-A", "MATH", "T1", models.Monday, "P1")
	req.RoomID = strRef("NOWHERE")
	_, err = f.service.AddSlot(context.Background(), "tt-1", req)
	requireAppError(t, err, appErrors.ErrValidation.Code)

	assert.Equal(t, 0, f.repo.updates)
}

func TestTimetableServiceExamSlotsMayShareTeacher(t *testing.T) {
	exam := draftTimetable("tt-exam")
	exam.Type = models.TimetableTypeExam
	f := newTimetableFixture(t, nil, exam)

	_, err := f.service.AddSlot(context.Background(), "tt-exam", addReq("X-A", "MATH", "T1", models.Monday, "P1"))
	require.NoError(t, err)
	tt, err := f.service.AddSlot(context.Background(), "tt-exam", addReq("X-B", "MATH", "T1", models.Monday, "P1"))
	require.NoError(t, err)
	require.Len(t, tt.Slots, 2)
	assert.True(t, tt.Slots[0].IsExam)
	assert.True(t, tt.Slots[1].IsExam)
	assert.Empty(t, tt.Conflicts)
}

func TestTimetableServiceDoublePeriodLifecycle(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	ctx := context.Background()

	req := addReq("X-A", "MATH", "T1", models.Monday, "P1")
	req.IsDoublePeriod = true
	tt, err := f.service.AddSlot(ctx, "tt-1", req)
	require.NoError(t, err)
	require.Len(t, tt.Slots, 2)
	lead, trail := tt.Slots[0], tt.Slots[1]
	assert.Equal(t, "P1", lead.PeriodID)
	assert.Equal(t, "P2", trail.PeriodID)
	require.NotNil(t, lead.PairSlotID)
	assert.Equal(t, trail.ID, *lead.PairSlotID)
	assert.Equal(t, lead.ID, *trail.PairSlotID)

	// Moving the trailing half keeps it trailing.
	tt, err = f.service.MoveSlot(ctx, "tt-1", trail.ID, dto.MoveSlotRequest{Day: models.Tuesday, PeriodID: "P5"})
	require.NoError(t, err)
	movedLead, _, _ := tt.SlotByID(lead.ID)
	movedTrail, _, _ := tt.SlotByID(trail.ID)
	assert.Equal(t, models.Tuesday, movedLead.Day)
	assert.Equal(t, "P4", movedLead.PeriodID)
	assert.Equal(t, "P5", movedTrail.PeriodID)

	// P3 is followed by the break, so the pair cannot start there.
	_, err = f.service.MoveSlot(ctx, "tt-1", lead.ID, dto.MoveSlotRequest{Day: models.Monday, PeriodID: "P3"})
	appErr := requireAppError(t, err, appErrors.ErrInvalidCoordinate.Code)
	assert.Equal(t, models.InvariantDoublePeriod, conflictDetail(t, appErr).Invariant)

	tt, err = f.service.RemoveSlot(ctx, "tt-1", trail.ID)
	require.NoError(t, err)
	assert.Empty(t, tt.Slots)

	req.PeriodID = "P3"
	_, err = f.service.AddSlot(ctx, "tt-1", req)
	requireAppError(t, err, appErrors.ErrInvalidCoordinate.Code)
}

func TestTimetableServiceMoveSlotValidatesTarget(t *testing.T) {
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1"},
		{ID: "s2", ClassID: "X-B", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P2"},
	}
	f := newTimetableFixture(t, nil, draftTimetable("tt-1", slots...))
	ctx := context.Background()

	_, err := f.service.MoveSlot(ctx, "tt-1", "s2", dto.MoveSlotRequest{Day: models.Monday, PeriodID: "P1"})
	requireAppError(t, err, appErrors.ErrConflictOnInsert.Code)

	_, err = f.service.MoveSlot(ctx, "tt-1", "missing", dto.MoveSlotRequest{Day: models.Monday, PeriodID: "P3"})
	requireAppError(t, err, appErrors.ErrNotFound.Code)

	tt, err := f.service.MoveSlot(ctx, "tt-1", "s2", dto.MoveSlotRequest{Day: models.Monday, PeriodID: "P3", RoomID: strRef("R1")})
	require.NoError(t, err)
	moved, _, _ := tt.SlotByID("s2")
	assert.Equal(t, "P3", moved.PeriodID)
	assert.Equal(t, "R1", moved.Room())
}

func TestTimetableServiceFinalizedTimetablesAreReadOnly(t *testing.T) {
	active := draftTimetable("tt-1")
	active.Status = models.TimetableStatusActive
	f := newTimetableFixture(t, nil, active)
	ctx := context.Background()

	_, err := f.service.AddSlot(ctx, "tt-1", addReq("X-A", "MATH", "T1", models.Monday, "P1"))
	requireAppError(t, err, appErrors.ErrFinalized.Code)
	_, err = f.service.RemoveSlot(ctx, "tt-1", "s1")
	requireAppError(t, err, appErrors.ErrFinalized.Code)
	err = f.service.Delete(ctx, "tt-1")
	requireAppError(t, err, appErrors.ErrFinalized.Code)
}

func TestTimetableServiceReplaceSlots(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	ctx := context.Background()

	slots := []models.TimetableSlot{
		{ID: "a", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1", IsDoublePeriod: true, PairSlotID: strRef("b")},
		{ID: "b", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P2", IsDoublePeriod: true, PairSlotID: strRef("a")},
		{ClassID: "X-B", SubjectID: "ENG", TeacherID: "T2", Day: models.Monday, PeriodID: "P1"},
	}
	tt, err := f.service.ReplaceSlots(ctx, "tt-1", dto.ReplaceSlotsRequest{ExpectedVersion: 1, Slots: slots})
	require.NoError(t, err)
	require.Len(t, tt.Slots, 3)
	assert.Equal(t, "slot-01", tt.Slots[2].ID)
	assert.Equal(t, 2, tt.Version)

	_, err = f.service.ReplaceSlots(ctx, "tt-1", dto.ReplaceSlotsRequest{ExpectedVersion: 1, Slots: slots})
	appErr := requireAppError(t, err, appErrors.ErrConcurrentEdit.Code)
	assert.True(t, appErrors.Retryable(appErr))

	broken := models.CloneSlots(slots[:2])
	broken[1].PairSlotID = nil
	_, err = f.service.ReplaceSlots(ctx, "tt-1", dto.ReplaceSlotsRequest{ExpectedVersion: 2, Slots: broken})
	requireAppError(t, err, appErrors.ErrInvalidCoordinate.Code)

	clash := []models.TimetableSlot{
		{ID: "x", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1"},
		{ID: "y", ClassID: "X-A", SubjectID: "ENG", TeacherID: "T2", Day: models.Monday, PeriodID: "P1"},
	}
	_, err = f.service.ReplaceSlots(ctx, "tt-1", dto.ReplaceSlotsRequest{ExpectedVersion: 2, Slots: clash})
	requireAppError(t, err, appErrors.ErrConflictOnInsert.Code)

	dup := []models.TimetableSlot{clash[0], clash[0]}
	_, err = f.service.ReplaceSlots(ctx, "tt-1", dto.ReplaceSlotsRequest{ExpectedVersion: 2, Slots: dup})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	assert.Len(t, f.repo.stored("tt-1").Slots, 3)
}

func TestTimetableServiceActivationBlockedByCriticalConflict(t *testing.T) {
	// Imported data bypassed the store, so the clash is stored as-is.
	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "X-A", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1"},
		{ID: "s2", ClassID: "X-B", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1"},
	}
	f := newTimetableFixture(t, nil, draftTimetable("tt-1", slots...))
	ctx := context.Background()

	conflicts, err := f.service.DetectConflicts(ctx, "tt-1")
	require.NoError(t, err)
	var critical models.Conflict
	for _, c := range conflicts {
		if c.Severity == models.SeverityCritical {
			critical = c
		}
	}
	require.Equal(t, models.ConflictTeacherDoubleBooked, critical.Type)

	_, err = f.service.SetStatus(ctx, "tt-1", dto.SetStatusRequest{Status: models.TimetableStatusActive})
	appErr := requireAppError(t, err, appErrors.ErrActivationBlocked.Code)
	detail := conflictDetail(t, appErr)
	assert.Equal(t, models.InvariantUnresolvedCritical, detail.Invariant)
	assert.Equal(t, []string{"s1", "s2"}, detail.SlotIDs)

	resolved, err := f.service.ResolveConflict(ctx, "tt-1", critical.ID)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)

	again, err := f.service.DetectConflicts(ctx, "tt-1")
	require.NoError(t, err)
	for _, c := range again {
		if c.ID == critical.ID {
			assert.True(t, c.Resolved)
		}
	}

	tt, err := f.service.SetStatus(ctx, "tt-1", dto.SetStatusRequest{Status: models.TimetableStatusActive})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusActive, tt.Status)

	_, err = f.service.ResolveConflict(ctx, "tt-1", "unknown")
	requireAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestTimetableServiceSingleActivePerTerm(t *testing.T) {
	current := draftTimetable("tt-old")
	current.Status = models.TimetableStatusActive
	tx, mock := newTxProviderMock(t)
	f := newTimetableFixture(t, tx, current, draftTimetable("tt-new"))
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := f.service.SetStatus(ctx, "tt-new", dto.SetStatusRequest{Status: models.TimetableStatusActive})
	appErr := requireAppError(t, err, appErrors.ErrActivationBlocked.Code)
	assert.Equal(t, models.InvariantSingleActive, conflictDetail(t, appErr).Invariant)

	mock.ExpectBegin()
	mock.ExpectCommit()
	tt, err := f.service.SetStatus(ctx, "tt-new", dto.SetStatusRequest{Status: models.TimetableStatusActive, Supersede: true})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusActive, tt.Status)
	assert.Equal(t, models.TimetableStatusArchived, f.repo.stored("tt-old").Status)
	assert.Contains(t, f.cache.ids, "tt-old")
	require.NoError(t, mock.ExpectationsWereMet())
}

// slowActiveRepo widens the gap between reading the ACTIVE row and writing the new status.
type slowActiveRepo struct {
	*timetableRepoStub
}

func (r slowActiveRepo) FindActive(ctx context.Context, exec sqlx.ExtContext, academicYear, term string, kind models.TimetableType) (*models.Timetable, error) {
	tt, err := r.timetableRepoStub.FindActive(ctx, exec, academicYear, term, kind)
	time.Sleep(20 * time.Millisecond)
	return tt, err
}

func TestTimetableServiceConcurrentActivationKeepsSingleActive(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"), draftTimetable("tt-2"))
	f.service.repo = slowActiveRepo{f.repo}

	ids := []string{"tt-1", "tt-2"}
	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.service.SetStatus(context.Background(), id, dto.SetStatusRequest{Status: models.TimetableStatusActive})
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		appErr := requireAppError(t, err, appErrors.ErrActivationBlocked.Code)
		assert.Equal(t, models.InvariantSingleActive, conflictDetail(t, appErr).Invariant)
	}
	assert.Equal(t, 1, succeeded)

	active := 0
	for _, id := range ids {
		if f.repo.stored(id).Status == models.TimetableStatusActive {
			active++
		}
	}
	assert.Equal(t, 1, active)
	assert.Equal(t, 0, f.service.locks.size())
}

func TestTimetableServiceStatusTransitions(t *testing.T) {
	archived := draftTimetable("tt-arch")
	archived.Status = models.TimetableStatusArchived
	f := newTimetableFixture(t, nil, archived, draftTimetable("tt-1"))
	ctx := context.Background()

	_, err := f.service.SetStatus(ctx, "tt-arch", dto.SetStatusRequest{Status: models.TimetableStatusDraft})
	requireAppError(t, err, appErrors.ErrConflict.Code)
	_, err = f.service.ResolveConflict(ctx, "tt-arch", "any")
	requireAppError(t, err, appErrors.ErrFinalized.Code)

	tt, err := f.service.SetStatus(ctx, "tt-1", dto.SetStatusRequest{Status: models.TimetableStatusArchived})
	require.NoError(t, err)
	assert.Equal(t, models.TimetableStatusArchived, tt.Status)

	_, err = f.service.SetStatus(ctx, "tt-1", dto.SetStatusRequest{Status: "BOGUS"})
	requireAppError(t, err, appErrors.ErrValidation.Code)
}

func TestTimetableServiceDeleteDraft(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))

	require.NoError(t, f.service.Delete(context.Background(), "tt-1"))
	_, err := f.service.Get(context.Background(), "tt-1")
	requireAppError(t, err, appErrors.ErrNotFound.Code)
}

func TestTimetableServiceSerialisesConcurrentMutations(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	svc := f.service
	var mu sync.Mutex
	n := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("slot-%02d", n)
	}

	periods := []string{"P1", "P2", "P3", "P4", "P5", "P6", "P7", "P8"}
	var wg sync.WaitGroup
	errs := make(chan error, len(periods))
	for _, period := range periods {
		wg.Add(1)
		go func(period string) {
			defer wg.Done()
			_, err := svc.AddSlot(context.Background(), "tt-1", addReq("X-A", "ENG", "T2", models.Wednesday, period))
			errs <- err
		}(period)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stored := f.repo.stored("tt-1")
	assert.Len(t, stored.Slots, len(periods))
	assert.Equal(t, 1+len(periods), stored.Version)
	assert.Equal(t, 0, svc.locks.size())
}

// TestTimetableServiceRandomEditsKeepInvariants drives random add, move and
// remove operations and checks the stored grid after every step.
func TestTimetableServiceRandomEditsKeepInvariants(t *testing.T) {
	f := newTimetableFixture(t, nil, draftTimetable("tt-1"))
	ctx := context.Background()
	rng := rand.New(rand.NewSource(11))
	cal := calendar.MustNew(calendar.DefaultWeek())

	type offer struct{ class, subject, teacher string }
	offers := []offer{
		{"X-A", "MATH", "T1"}, {"X-A", "MATH", "T3"}, {"X-A", "ENG", "T2"},
		{"X-B", "MATH", "T1"}, {"X-B", "ENG", "T2"}, {"XI-A", "CHEM", "T3"}, {"XI-A", "ENG", "T2"},
	}
	days := []models.Weekday{models.Monday, models.Tuesday, models.Wednesday, models.Saturday}
	periods := []string{"P1", "P2", "P3", "BRK", "P4", "P6", "LUN", "P7", "P8"}
	rooms := []*string{nil, strRef("R1"), strRef("LAB")}

	for step := 0; step < 300; step++ {
		current := f.repo.stored("tt-1")
		day := days[rng.Intn(len(days))]
		period := periods[rng.Intn(len(periods))]
		switch op := rng.Intn(4); {
		case op <= 1 || len(current.Slots) == 0:
			o := offers[rng.Intn(len(offers))]
			req := addReq(o.class, o.subject, o.teacher, day, period)
			req.RoomID = rooms[rng.Intn(len(rooms))]
			req.IsDoublePeriod = rng.Intn(4) == 0
			_, _ = f.service.AddSlot(ctx, "tt-1", req)
		case op == 2:
			slot := current.Slots[rng.Intn(len(current.Slots))]
			_, _ = f.service.MoveSlot(ctx, "tt-1", slot.ID, dto.MoveSlotRequest{Day: day, PeriodID: period})
		default:
			slot := current.Slots[rng.Intn(len(current.Slots))]
			_, err := f.service.RemoveSlot(ctx, "tt-1", slot.ID)
			require.NoError(t, err)
		}

		stored := f.repo.stored("tt-1")
		classCells := map[string]bool{}
		teacherCells := map[string]bool{}
		roomCells := map[string]bool{}
		byID := map[string]models.TimetableSlot{}
		for _, s := range stored.Slots {
			byID[s.ID] = s
			key := fmt.Sprintf("%s|%s|%s", s.Day, s.PeriodID, s.ClassID)
			require.False(t, classCells[key], "step %d: class double booked at %s", step, key)
			classCells[key] = true
			key = fmt.Sprintf("%s|%s|%s", s.Day, s.PeriodID, s.TeacherID)
			require.False(t, teacherCells[key], "step %d: teacher double booked at %s", step, key)
			teacherCells[key] = true
			if room := s.Room(); room != "" {
				key = fmt.Sprintf("%s|%s|%s", s.Day, s.PeriodID, room)
				require.False(t, roomCells[key], "step %d: room double booked at %s", step, key)
				roomCells[key] = true
			}
			require.True(t, cal.IsAddressable(s.Day, s.PeriodID), "step %d: %s not addressable", step, s.ID)
		}
		for _, s := range stored.Slots {
			if !s.IsDoublePeriod {
				continue
			}
			require.NotNil(t, s.PairSlotID, "step %d", step)
			partner, ok := byID[*s.PairSlotID]
			require.True(t, ok, "step %d: dangling double %s", step, s.ID)
			assert.Equal(t, s.Day, partner.Day)
		}
		for _, c := range stored.Conflicts {
			assert.NotEqual(t, models.SeverityCritical, c.Severity, "step %d", step)
		}
	}
}
