package scheduler

import (
	"sort"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ViewMode selects the viewpoint a timetable is projected from.
type ViewMode string

const (
	ViewClass   ViewMode = "class"
	ViewTeacher ViewMode = "teacher"
	ViewSubject ViewMode = "subject"
	ViewAdmin   ViewMode = "admin"
)

// ParseViewMode accepts the mode names case-insensitively.
func ParseViewMode(raw string) (ViewMode, bool) {
	switch mode := ViewMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case ViewClass, ViewTeacher, ViewSubject, ViewAdmin:
		return mode, true
	case "":
		return ViewAdmin, true
	default:
		return "", false
	}
}

// Project filters slots for a viewpoint. An empty selectedID or the admin mode
// returns every slot. The input is never modified.
func Project(slots []models.TimetableSlot, mode ViewMode, selectedID string) []models.TimetableSlot {
	out := make([]models.TimetableSlot, 0, len(slots))
	for _, slot := range slots {
		if selectedID == "" || mode == ViewAdmin || matches(slot, mode, selectedID) {
			out = append(out, slot)
		}
	}
	return models.CloneSlots(out)
}

func matches(slot models.TimetableSlot, mode ViewMode, id string) bool {
	switch mode {
	case ViewClass:
		return slot.ClassID == id
	case ViewTeacher:
		return slot.TeacherID == id
	case ViewSubject:
		return slot.SubjectID == id
	default:
		return true
	}
}

// CellState distinguishes actionable free cells from cells that do not exist on a day.
type CellState string

const (
	CellOccupied      CellState = "OCCUPIED"
	CellFree          CellState = "FREE"
	CellNotApplicable CellState = "NOT_APPLICABLE"
	CellNonTeaching   CellState = "NON_TEACHING"
)

// GridCell is one (day, period) intersection.
type GridCell struct {
	Day      models.Weekday         `json:"day"`
	PeriodID string                 `json:"periodId"`
	State    CellState              `json:"state"`
	Slots    []models.TimetableSlot `json:"slots,omitempty"`
}

// GridRow is one period across all active days.
type GridRow struct {
	Period models.Period `json:"period"`
	Cells  []GridCell    `json:"cells"`
}

// Grid is the time by day matrix of a projected view.
type Grid struct {
	Days []models.Weekday `json:"days"`
	Rows []GridRow        `json:"rows"`
}

// BuildGrid lays slots onto the calendar. Rows are AllDistinctPeriods, columns are
// active days. A period missing on a day is NOT_APPLICABLE, never FREE.
func BuildGrid(cal *calendar.Calendar, slots []models.TimetableSlot) Grid {
	at := make(map[models.Coordinate][]models.TimetableSlot)
	for _, slot := range slots {
		at[slot.Coordinate()] = append(at[slot.Coordinate()], slot)
	}

	var grid Grid
	for _, day := range cal.ActiveDays() {
		grid.Days = append(grid.Days, day.Day)
	}
	for _, period := range cal.AllDistinctPeriods() {
		row := GridRow{Period: period}
		for _, day := range grid.Days {
			c := GridCell{Day: day, PeriodID: period.ID}
			local, exists := cal.Period(day, period.ID)
			occupants := at[models.Coordinate{Day: day, PeriodID: period.ID}]
			switch {
			case !exists:
				c.State = CellNotApplicable
			case len(occupants) > 0:
				c.State = CellOccupied
				c.Slots = sortedSlots(occupants)
			case !local.IsTeaching():
				c.State = CellNonTeaching
			default:
				c.State = CellFree
			}
			row.Cells = append(row.Cells, c)
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

func sortedSlots(slots []models.TimetableSlot) []models.TimetableSlot {
	out := models.CloneSlots(slots)
	sort.Slice(out, func(i, j int) bool {
		if out[i].ClassID != out[j].ClassID {
			return out[i].ClassID < out[j].ClassID
		}
		if out[i].SubjectID != out[j].SubjectID {
			return out[i].SubjectID < out[j].SubjectID
		}
		return out[i].ID < out[j].ID
	})
	return out
}
