package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func strPtr(v string) *string { return &v }

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%02d", prefix, n)
	}
}

func teaching(id, start, end string) models.Period {
	return models.Period{ID: id, Name: id, StartTime: start, EndTime: end, Kind: models.PeriodKindTeaching}
}

func newCalendar(t *testing.T, days ...models.SchoolDay) *calendar.Calendar {
	t.Helper()
	cal, err := calendar.New(days)
	require.NoError(t, err)
	return cal
}

func day(weekday models.Weekday, periods ...models.Period) models.SchoolDay {
	return models.SchoolDay{Day: weekday, IsActive: true, Periods: periods}
}

// twoPeriodMonday is the canonical P1 08:00-08:40, P2 08:40-09:20 Monday.
func twoPeriodMonday(t *testing.T) *calendar.Calendar {
	return newCalendar(t, day(models.Monday,
		teaching("P1", "08:00", "08:40"),
		teaching("P2", "08:40", "09:20"),
	))
}

func subject(id string, perWeek int) models.Subject {
	return models.Subject{ID: id, Name: id, PeriodsPerWeek: perWeek, DifficultyLevel: models.DifficultyMedium, Category: models.SubjectCategoryCore}
}

func class(id string) models.SchoolClass {
	return models.SchoolClass{ID: id, Name: id, FormLevel: "10"}
}

func teacher(id string, subjects ...string) models.Teacher {
	return models.Teacher{ID: id, Name: id, SubjectIDs: subjects}
}

func slotAt(id, classID, subjectID, teacherID string, weekday models.Weekday, periodID string) models.TimetableSlot {
	return models.TimetableSlot{ID: id, ClassID: classID, SubjectID: subjectID, TeacherID: teacherID, Day: weekday, PeriodID: periodID}
}
