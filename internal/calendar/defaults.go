package calendar

import (
	"fmt"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DefaultWeek is the fallback configuration used when no school days are stored:
// Monday to Friday active, Saturday configured but inactive, eight 40 minute
// teaching periods with a morning break and lunch.
func DefaultWeek() []models.SchoolDay {
	layout := []struct {
		id   string
		name string
		kind models.PeriodKind
		mins int
	}{
		{"P1", "Period 1", models.PeriodKindTeaching, 40},
		{"P2", "Period 2", models.PeriodKindTeaching, 40},
		{"P3", "Period 3", models.PeriodKindTeaching, 40},
		{"BRK", "Break", models.PeriodKindBreak, 20},
		{"P4", "Period 4", models.PeriodKindTeaching, 40},
		{"P5", "Period 5", models.PeriodKindTeaching, 40},
		{"P6", "Period 6", models.PeriodKindTeaching, 40},
		{"LUN", "Lunch", models.PeriodKindLunch, 40},
		{"P7", "Period 7", models.PeriodKindTeaching, 40},
		{"P8", "Period 8", models.PeriodKindTeaching, 40},
	}

	var periods []models.Period
	clock := 7 * 60
	for _, item := range layout {
		periods = append(periods, models.Period{
			ID:              item.id,
			Name:            item.name,
			StartTime:       formatClock(clock),
			EndTime:         formatClock(clock + item.mins),
			DurationMinutes: item.mins,
			Kind:            item.kind,
		})
		clock += item.mins
	}

	days := []models.Weekday{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday}
	week := make([]models.SchoolDay, 0, len(days))
	for _, day := range days {
		week = append(week, models.SchoolDay{
			Day:      day,
			IsActive: day != models.Saturday,
			Periods:  append([]models.Period(nil), periods...),
		})
	}
	return week
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
