package models

import "strings"

// Weekday identifies a school day in the weekly grid.
type Weekday string

const (
	Monday    Weekday = "MONDAY"
	Tuesday   Weekday = "TUESDAY"
	Wednesday Weekday = "WEDNESDAY"
	Thursday  Weekday = "THURSDAY"
	Friday    Weekday = "FRIDAY"
	Saturday  Weekday = "SATURDAY"
	Sunday    Weekday = "SUNDAY"
)

var weekdayOrder = map[Weekday]int{
	Monday:    1,
	Tuesday:   2,
	Wednesday: 3,
	Thursday:  4,
	Friday:    5,
	Saturday:  6,
	Sunday:    7,
}

// ParseWeekday normalises user input ("monday", "Mon") into a Weekday.
func ParseWeekday(raw string) (Weekday, bool) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for day := range weekdayOrder {
		if string(day) == value || (len(value) >= 3 && strings.HasPrefix(string(day), value)) {
			return day, true
		}
	}
	return "", false
}

// Index returns the ISO weekday number (Monday = 1) or 0 for unknown days.
func (d Weekday) Index() int {
	return weekdayOrder[d]
}

// Valid reports whether the weekday is one of the known constants.
func (d Weekday) Valid() bool {
	return d.Index() > 0
}

// Title returns the capitalised day name used in exports.
func (d Weekday) Title() string {
	if d == "" {
		return ""
	}
	lower := strings.ToLower(string(d))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// PeriodKind classifies what happens during a period.
type PeriodKind string

const (
	PeriodKindTeaching PeriodKind = "TEACHING"
	PeriodKindBreak    PeriodKind = "BREAK"
	PeriodKindLunch    PeriodKind = "LUNCH"
	PeriodKindAssembly PeriodKind = "ASSEMBLY"
	PeriodKindStudy    PeriodKind = "STUDY"
)

// Period is a named time interval within a school day.
type Period struct {
	ID              string     `db:"id" json:"id" yaml:"id"`
	Name            string     `db:"name" json:"name" yaml:"name"`
	StartTime       string     `db:"start_time" json:"startTime" yaml:"start"`
	EndTime         string     `db:"end_time" json:"endTime" yaml:"end"`
	DurationMinutes int        `db:"duration_minutes" json:"durationMinutes" yaml:"duration"`
	Kind            PeriodKind `db:"kind" json:"kind" yaml:"kind"`
}

// IsTeaching reports whether a slot may be placed in this period.
func (p Period) IsTeaching() bool {
	return p.Kind == PeriodKindTeaching
}

// SchoolDay is one weekday plus its ordered periods.
type SchoolDay struct {
	Day      Weekday  `json:"day" yaml:"day"`
	IsActive bool     `json:"isActive" yaml:"active"`
	Periods  []Period `json:"periods" yaml:"periods"`
}

// Coordinate addresses a single cell in the weekly grid.
type Coordinate struct {
	Day      Weekday `json:"day"`
	PeriodID string  `json:"periodId"`
}
