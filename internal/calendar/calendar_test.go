package calendar

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func sampleDays() []models.SchoolDay {
	return []models.SchoolDay{
		{
			Day:      models.Tuesday,
			IsActive: true,
			Periods: []models.Period{
				{ID: "P1", Name: "Period 1", StartTime: "08:00", EndTime: "08:40", Kind: models.PeriodKindTeaching},
				{ID: "P2", Name: "Period 2", StartTime: "08:40", EndTime: "09:20", Kind: models.PeriodKindTeaching},
			},
		},
		{
			Day:      models.Monday,
			IsActive: true,
			Periods: []models.Period{
				{ID: "P2", Name: "Period 2", StartTime: "08:40", EndTime: "09:20", Kind: models.PeriodKindTeaching},
				{ID: "P1", Name: "Period 1", StartTime: "08:00", EndTime: "08:40", Kind: models.PeriodKindTeaching},
				{ID: "BRK", Name: "Break", StartTime: "09:20", EndTime: "09:40", Kind: models.PeriodKindBreak},
				{ID: "P3", Name: "Period 3", StartTime: "09:40", EndTime: "10:20", Kind: models.PeriodKindTeaching},
			},
		},
		{
			Day:      models.Saturday,
			IsActive: false,
			Periods: []models.Period{
				{ID: "S1", Name: "Saturday Club", StartTime: "07:30", EndTime: "08:30", Kind: models.PeriodKindTeaching},
			},
		},
	}
}

func TestNewOrdersDaysAndPeriods(t *testing.T) {
	cal, err := New(sampleDays())
	require.NoError(t, err)

	days := cal.Days()
	require.Len(t, days, 3)
	assert.Equal(t, models.Monday, days[0].Day)
	assert.Equal(t, models.Tuesday, days[1].Day)
	assert.Equal(t, models.Saturday, days[2].Day)

	assert.Equal(t, "P1", days[0].Periods[0].ID)
	assert.Equal(t, 40, days[0].Periods[0].DurationMinutes)
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cases := map[string][]models.SchoolDay{
		"unknown day":      {{Day: "FUNDAY", IsActive: true}},
		"duplicate day":    {{Day: models.Monday}, {Day: models.Monday}},
		"duplicate period": {{Day: models.Monday, Periods: []models.Period{{ID: "P1", StartTime: "08:00", EndTime: "08:40"}, {ID: "P1", StartTime: "09:00", EndTime: "09:40"}}}},
		"bad clock":        {{Day: models.Monday, Periods: []models.Period{{ID: "P1", StartTime: "8am", EndTime: "08:40"}}}},
		"end before start": {{Day: models.Monday, Periods: []models.Period{{ID: "P1", StartTime: "09:00", EndTime: "08:40"}}}},
	}
	for name, days := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := New(days)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCalendar))
		})
	}
}

func TestActiveDaysAndTeachingPeriods(t *testing.T) {
	cal := MustNew(sampleDays())

	active := cal.ActiveDays()
	require.Len(t, active, 2)

	periods := cal.TeachingPeriods(models.Monday)
	ids := make([]string, 0, len(periods))
	for _, p := range periods {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"P1", "P2", "P3"}, ids)
	assert.Empty(t, cal.TeachingPeriods(models.Saturday))
	assert.Empty(t, cal.TeachingPeriods(models.Sunday))
}

func TestAllDistinctPeriodsUnionsActiveDays(t *testing.T) {
	cal := MustNew(sampleDays())

	periods := cal.AllDistinctPeriods()
	ids := make([]string, 0, len(periods))
	for _, p := range periods {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"P1", "P2", "BRK", "P3"}, ids)
}

func TestAddressability(t *testing.T) {
	cal := MustNew(sampleDays())

	assert.True(t, cal.IsAddressable(models.Monday, "P3"))
	assert.False(t, cal.IsAddressable(models.Monday, "BRK"))
	assert.False(t, cal.IsAddressable(models.Tuesday, "P3"))
	assert.False(t, cal.IsAddressable(models.Saturday, "S1"))
	assert.Len(t, cal.Coordinates(), 5)
}

func TestAdjacencyStopsAtBreaks(t *testing.T) {
	cal := MustNew(sampleDays())

	next, ok := cal.NextAdjacentTeaching(models.Monday, "P1")
	require.True(t, ok)
	assert.Equal(t, "P2", next.ID)

	_, ok = cal.NextAdjacentTeaching(models.Monday, "P2")
	assert.False(t, ok)

	prev, ok := cal.PreviousAdjacentTeaching(models.Tuesday, "P2")
	require.True(t, ok)
	assert.Equal(t, "P1", prev.ID)
}

func TestWithoutDeactivatesDay(t *testing.T) {
	cal := MustNew(sampleDays())
	reduced := cal.Without(models.Tuesday)

	assert.Len(t, reduced.ActiveDays(), 1)
	assert.Len(t, cal.ActiveDays(), 2)
	assert.False(t, reduced.IsAddressable(models.Tuesday, "P1"))
}

func TestDefaultWeekIsValid(t *testing.T) {
	cal, err := New(DefaultWeek())
	require.NoError(t, err)
	assert.Len(t, cal.ActiveDays(), 5)
	assert.Equal(t, 40, cal.TeachingPeriodCount())
	assert.Len(t, cal.AllDistinctPeriods(), 10)
}
