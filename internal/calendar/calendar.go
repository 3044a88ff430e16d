// Package calendar defines the addressable weekly grid: active school days and
// their teaching periods. All queries are pure; the configuration is owned by
// whoever loads the school days.
package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// ErrInvalidCalendar is wrapped by every configuration error returned from New.
var ErrInvalidCalendar = errors.New("invalid calendar")

// Calendar is an immutable view over the configured school days.
type Calendar struct {
	days  []models.SchoolDay
	index map[models.Weekday]int
}

// New validates the configuration and returns a calendar ordered Monday first.
// Periods are ordered by start time; zero durations are derived from the clock times.
func New(days []models.SchoolDay) (*Calendar, error) {
	cal := &Calendar{index: make(map[models.Weekday]int, len(days))}
	for _, day := range days {
		if !day.Day.Valid() {
			return nil, fmt.Errorf("%w: unknown day %q", ErrInvalidCalendar, day.Day)
		}
		if _, dup := cal.index[day.Day]; dup {
			return nil, fmt.Errorf("%w: day %s configured twice", ErrInvalidCalendar, day.Day)
		}
		periods, err := normalizePeriods(day)
		if err != nil {
			return nil, err
		}
		cal.index[day.Day] = -1
		cal.days = append(cal.days, models.SchoolDay{Day: day.Day, IsActive: day.IsActive, Periods: periods})
	}
	sort.SliceStable(cal.days, func(i, j int) bool {
		return cal.days[i].Day.Index() < cal.days[j].Day.Index()
	})
	for i, day := range cal.days {
		cal.index[day.Day] = i
	}
	return cal, nil
}

// MustNew panics on invalid configuration. Intended for fixtures.
func MustNew(days []models.SchoolDay) *Calendar {
	cal, err := New(days)
	if err != nil {
		panic(err)
	}
	return cal
}

func normalizePeriods(day models.SchoolDay) ([]models.Period, error) {
	seen := make(map[string]bool, len(day.Periods))
	periods := make([]models.Period, 0, len(day.Periods))
	for _, period := range day.Periods {
		if strings.TrimSpace(period.ID) == "" {
			return nil, fmt.Errorf("%w: %s has a period without id", ErrInvalidCalendar, day.Day)
		}
		if seen[period.ID] {
			return nil, fmt.Errorf("%w: period %s repeated on %s", ErrInvalidCalendar, period.ID, day.Day)
		}
		seen[period.ID] = true
		start, err := ParseClock(period.StartTime)
		if err != nil {
			return nil, fmt.Errorf("%w: period %s on %s: %v", ErrInvalidCalendar, period.ID, day.Day, err)
		}
		end, err := ParseClock(period.EndTime)
		if err != nil {
			return nil, fmt.Errorf("%w: period %s on %s: %v", ErrInvalidCalendar, period.ID, day.Day, err)
		}
		if end <= start {
			return nil, fmt.Errorf("%w: period %s on %s ends before it starts", ErrInvalidCalendar, period.ID, day.Day)
		}
		if period.DurationMinutes == 0 {
			period.DurationMinutes = end - start
		}
		if period.Kind == "" {
			period.Kind = models.PeriodKindTeaching
		}
		periods = append(periods, period)
	}
	sort.SliceStable(periods, func(i, j int) bool {
		return MustClock(periods[i].StartTime) < MustClock(periods[j].StartTime)
	})
	return periods, nil
}

// ParseClock converts "HH:MM" into minutes after midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("time %q has invalid hour", raw)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("time %q has invalid minute", raw)
	}
	return hours*60 + minutes, nil
}

// MustClock is ParseClock for values already validated by New.
func MustClock(raw string) int {
	v, _ := ParseClock(raw)
	return v
}

// Days returns every configured day, active or not.
func (c *Calendar) Days() []models.SchoolDay {
	out := make([]models.SchoolDay, len(c.days))
	for i, day := range c.days {
		out[i] = copyDay(day)
	}
	return out
}

// ActiveDays returns the days that participate in scheduling.
func (c *Calendar) ActiveDays() []models.SchoolDay {
	out := make([]models.SchoolDay, 0, len(c.days))
	for _, day := range c.days {
		if day.IsActive {
			out = append(out, copyDay(day))
		}
	}
	return out
}

// TeachingPeriods lists the periods of an active day that may host a slot.
func (c *Calendar) TeachingPeriods(day models.Weekday) []models.Period {
	sd, ok := c.day(day)
	if !ok || !sd.IsActive {
		return nil
	}
	var out []models.Period
	for _, period := range sd.Periods {
		if period.IsTeaching() {
			out = append(out, period)
		}
	}
	return out
}

// AllDistinctPeriods is the union of periods across active days, de-duplicated by id
// and ordered by start time then id. It defines the rows of a uniform grid.
func (c *Calendar) AllDistinctPeriods() []models.Period {
	seen := make(map[string]bool)
	var out []models.Period
	for _, day := range c.days {
		if !day.IsActive {
			continue
		}
		for _, period := range day.Periods {
			if seen[period.ID] {
				continue
			}
			seen[period.ID] = true
			out = append(out, period)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := MustClock(out[i].StartTime), MustClock(out[j].StartTime)
		if si != sj {
			return si < sj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Period looks up a period configured on the given day.
func (c *Calendar) Period(day models.Weekday, periodID string) (models.Period, bool) {
	sd, ok := c.day(day)
	if !ok {
		return models.Period{}, false
	}
	for _, period := range sd.Periods {
		if period.ID == periodID {
			return period, true
		}
	}
	return models.Period{}, false
}

// IsAddressable reports whether (day, periodID) is a teaching period on an active day.
func (c *Calendar) IsAddressable(day models.Weekday, periodID string) bool {
	sd, ok := c.day(day)
	if !ok || !sd.IsActive {
		return false
	}
	period, ok := c.Period(day, periodID)
	return ok && period.IsTeaching()
}

// Coordinates enumerates the addressable grid, day by day in period order.
func (c *Calendar) Coordinates() []models.Coordinate {
	var out []models.Coordinate
	for _, day := range c.days {
		for _, period := range c.TeachingPeriods(day.Day) {
			out = append(out, models.Coordinate{Day: day.Day, PeriodID: period.ID})
		}
	}
	return out
}

// NextAdjacentTeaching returns the period directly following periodID on the day
// when it is also a teaching period. A break in between means no adjacency.
func (c *Calendar) NextAdjacentTeaching(day models.Weekday, periodID string) (models.Period, bool) {
	return c.neighbour(day, periodID, 1)
}

// PreviousAdjacentTeaching is the mirror of NextAdjacentTeaching.
func (c *Calendar) PreviousAdjacentTeaching(day models.Weekday, periodID string) (models.Period, bool) {
	return c.neighbour(day, periodID, -1)
}

func (c *Calendar) neighbour(day models.Weekday, periodID string, step int) (models.Period, bool) {
	sd, ok := c.day(day)
	if !ok || !sd.IsActive {
		return models.Period{}, false
	}
	for i, period := range sd.Periods {
		if period.ID != periodID {
			continue
		}
		j := i + step
		if j < 0 || j >= len(sd.Periods) || !sd.Periods[j].IsTeaching() {
			return models.Period{}, false
		}
		return sd.Periods[j], true
	}
	return models.Period{}, false
}

// Without returns a copy with the given day marked inactive.
func (c *Calendar) Without(day models.Weekday) *Calendar {
	clone := &Calendar{index: make(map[models.Weekday]int, len(c.index))}
	for i, sd := range c.days {
		cp := copyDay(sd)
		if cp.Day == day {
			cp.IsActive = false
		}
		clone.days = append(clone.days, cp)
		clone.index[cp.Day] = i
	}
	return clone
}

// TeachingPeriodCount is the number of addressable coordinates.
func (c *Calendar) TeachingPeriodCount() int {
	return len(c.Coordinates())
}

func (c *Calendar) day(day models.Weekday) (models.SchoolDay, bool) {
	idx, ok := c.index[day]
	if !ok || idx < 0 {
		return models.SchoolDay{}, false
	}
	return c.days[idx], true
}

func copyDay(day models.SchoolDay) models.SchoolDay {
	day.Periods = append([]models.Period(nil), day.Periods...)
	return day
}
