package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	"github.com/noah-isme/sma-timetable-api/pkg/export"
)

func strPtr(v string) *string { return &v }

func fixture(t *testing.T) (*calendar.Calendar, []models.TimetableSlot, Names) {
	t.Helper()
	cal, err := calendar.New([]models.SchoolDay{
		{Day: models.Monday, IsActive: true, Periods: []models.Period{
			{ID: "P1", Name: "Period 1", StartTime: "07:00", EndTime: "07:40"},
			{ID: "BRK", Name: "Break", StartTime: "07:40", EndTime: "08:00", Kind: models.PeriodKindBreak},
			{ID: "P2", Name: "Period 2", StartTime: "08:00", EndTime: "08:40"},
		}},
		{Day: models.Friday, IsActive: true, Periods: []models.Period{
			{ID: "P1", Name: "Period 1", StartTime: "07:00", EndTime: "07:40"},
		}},
	})
	require.NoError(t, err)

	slots := []models.TimetableSlot{
		{ID: "s1", ClassID: "C1", SubjectID: "MATH", TeacherID: "T1", Day: models.Monday, PeriodID: "P1", IsDoublePeriod: true},
		{ID: "s2", ClassID: "C1", SubjectID: "CHEM", TeacherID: "T2", Day: models.Friday, PeriodID: "P1", RoomID: strPtr("LAB")},
	}
	names := NamesFromRoster(models.Roster{
		Subjects: []models.Subject{{ID: "MATH", Name: "Mathematics"}, {ID: "CHEM", Name: "Chemistry"}},
		Classes:  []models.SchoolClass{{ID: "C1", Name: "X-A"}},
		Teachers: []models.Teacher{{ID: "T1", Name: "Budi"}},
		Rooms:    []models.Room{{ID: "LAB", Name: "Lab 1"}},
	})
	return cal, slots, names
}

func TestBuildDocumentClassView(t *testing.T) {
	cal, slots, names := fixture(t)
	grid := scheduler.BuildGrid(cal, scheduler.Project(slots, scheduler.ViewClass, "C1"))

	doc := BuildDocument(grid, names, Options{
		SchoolName: "SMA Negeri 1",
		Timetable:  models.TimetableSummary{Name: "Main", AcademicYear: "2025/2026", Term: "1", Type: models.TimetableTypeTeaching},
		Mode:       scheduler.ViewClass,
		SelectedID: "C1",
	})

	assert.Equal(t, "SMA Negeri 1 Timetable", doc.Title)
	assert.Equal(t, "Main | 2025/2026 | Term 1 | Class X-A", doc.Subtitle)
	assert.Equal(t, []string{"Monday", "Friday"}, doc.Columns)
	assert.Equal(t, export.OrientationLandscape, doc.Orientation)
	assert.Equal(t, export.PageSizeA4, doc.PageSize)
	require.Len(t, doc.Rows, 3)

	assert.Equal(t, []string{"Mathematics - Budi [DOUBLE]"}, doc.Rows[0].Cells[0].Lines)
	// T2 has no name in the roster, so the id is shown.
	assert.Equal(t, []string{"Chemistry - T2 - Lab 1"}, doc.Rows[0].Cells[1].Lines)

	assert.Equal(t, "Break", doc.Rows[1].Label)
	assert.Equal(t, []string{"Break"}, doc.Rows[1].Cells[0].Lines)
	assert.Equal(t, []string{"N/A"}, doc.Rows[1].Cells[1].Lines)
	assert.Equal(t, []string{"free"}, doc.Rows[2].Cells[0].Lines)
	assert.Equal(t, string(scheduler.CellNotApplicable), doc.Rows[2].Cells[1].State)

	assert.Equal(t, "[DOUBLE]", doc.Legend[0].Symbol)
	assert.Empty(t, doc.Statistics)
}

func TestBuildDocumentTeacherAndAdminViews(t *testing.T) {
	cal, slots, names := fixture(t)
	slots[0].IsExam = true
	slots[0].IsDoublePeriod = false

	teacherDoc := BuildDocument(scheduler.BuildGrid(cal, scheduler.Project(slots, scheduler.ViewTeacher, "T1")), names, Options{
		Mode:       scheduler.ViewTeacher,
		SelectedID: "T1",
		Timetable:  models.TimetableSummary{Type: models.TimetableTypeExam},
	})
	assert.Equal(t, "School Exam Timetable", teacherDoc.Title)
	assert.Equal(t, []string{"Mathematics - X-A [EXAM]"}, teacherDoc.Rows[0].Cells[0].Lines)
	assert.Equal(t, []string{"free"}, teacherDoc.Rows[0].Cells[1].Lines)

	adminDoc := BuildDocument(scheduler.BuildGrid(cal, slots), names, Options{
		Mode:              scheduler.ViewAdmin,
		IncludeStatistics: true,
		Statistics: models.TimetableStatistics{
			TotalSlots:          2,
			CompletionPercent:   50,
			ConflictsBySeverity: map[string]int{"INFO": 1, "CRITICAL": 0, "WARNING": 2},
		},
	})
	assert.Contains(t, adminDoc.Subtitle, "All classes")
	assert.Equal(t, []string{"Mathematics - X-A - Budi [EXAM]"}, adminDoc.Rows[0].Cells[0].Lines)
	require.NotEmpty(t, adminDoc.Statistics)
	assert.Equal(t, "50.0%", adminDoc.Statistics[2].Value)
	last := adminDoc.Statistics[len(adminDoc.Statistics)-1]
	assert.Equal(t, "Open info conflicts", last.Label)
}

func TestBuildDocumentIsDeterministic(t *testing.T) {
	cal, slots, names := fixture(t)
	opts := Options{SchoolName: "SMA", Mode: scheduler.ViewAdmin, Orientation: export.OrientationPortrait, PageSize: export.PageSizeLegal}

	first, err := export.NewTextRenderer().Render(BuildDocument(scheduler.BuildGrid(cal, slots), names, opts))
	require.NoError(t, err)
	second, err := export.NewTextRenderer().Render(BuildDocument(scheduler.BuildGrid(cal, slots), names, opts))
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Contains(t, string(first), "Layout: Legal portrait")
}
