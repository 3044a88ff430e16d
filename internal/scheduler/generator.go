package scheduler

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Input error entities.
const (
	EntityCalendar = "CALENDAR"
	EntitySubject  = "SUBJECT"
	EntityClass    = "CLASS"
)

// InputError rejects structurally invalid generator input before any placement.
type InputError struct {
	Entity string `json:"entity"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

func (e *InputError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("invalid %s: %s", strings.ToLower(e.Entity), e.Reason)
	}
	return fmt.Sprintf("invalid %s %s: %s", strings.ToLower(e.Entity), e.ID, e.Reason)
}

// Problem is a complete generator input. Academic year and term are carried by
// the caller; the generator only sees the grid, roster and settings.
type Problem struct {
	Calendar *calendar.Calendar
	Roster   models.Roster
	Settings models.GenerationSettings
}

// Options configure a Generator. Zero values fall back to defaults.
type Options struct {
	RetryBudget int
	Weights     ScoringWeights
	NewID       func() string
}

// GenerationStats summarises a run.
type GenerationStats struct {
	DemandUnits int `json:"demandUnits"`
	Placed      int `json:"placed"`
	Repaired    int `json:"repaired"`
	Evictions   int `json:"evictions"`
}

// Result is the slot set produced by a run plus every unit that could not be placed.
type Result struct {
	Slots     []models.TimetableSlot `json:"slots"`
	Unplaced  []UnplacedUnit         `json:"unplacedUnits"`
	Cancelled bool                   `json:"cancelled"`
	Stats     GenerationStats        `json:"stats"`
}

// Generator places demand units greedily, most constrained first, then repairs
// stuck units by swapping them with placements that can move elsewhere.
type Generator struct {
	budget  int
	weights ScoringWeights
	newID   func() string
}

// NewGenerator builds a generator with defaults applied.
func NewGenerator(opts Options) *Generator {
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = 3
	}
	if opts.Weights == (ScoringWeights{}) {
		opts.Weights = DefaultWeights()
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Generator{budget: opts.RetryBudget, weights: opts.Weights, newID: opts.NewID}
}

// Generate runs the placement pipeline. Infeasibility is reported through
// Result.Unplaced; only structurally invalid input returns an error. When ctx is
// cancelled the partial result is returned with Cancelled set.
func (g *Generator) Generate(ctx context.Context, p Problem) (*Result, error) {
	r, err := g.prepare(p)
	if err != nil {
		return nil, err
	}

	units, unplaced := buildDemand(r.idx, r.exam, len(r.labs) > 0)
	for _, unit := range units {
		r.teachers[unit.TeacherID] = true
		unit.preferred = r.preferredCount(unit)
		unit.blocked = r.blockedCount[unit.TeacherID]
	}
	orderUnits(units, r.exam && p.Settings.Exam.PrioritizeCore)

	result := &Result{Stats: GenerationStats{DemandUnits: len(units) + len(unplaced)}}
	var queue []*DemandUnit
	for i, unit := range units {
		if ctx.Err() != nil {
			result.Cancelled = true
			for _, rest := range units[i:] {
				unplaced = append(unplaced, UnplacedUnit{Unit: *rest, Reason: ReasonCancelled})
			}
			break
		}
		if !r.placeBest(unit) {
			queue = append(queue, unit)
		}
	}

	for _, unit := range queue {
		if !result.Cancelled && ctx.Err() != nil {
			result.Cancelled = true
		}
		if result.Cancelled {
			unplaced = append(unplaced, UnplacedUnit{Unit: *unit, Reason: ReasonNoFeasibleCoordinate})
			continue
		}
		if r.repair(ctx, unit, g.budget) {
			result.Stats.Repaired++
			continue
		}
		unplaced = append(unplaced, UnplacedUnit{Unit: *unit, Reason: ReasonNoFeasibleCoordinate})
	}

	sort.SliceStable(unplaced, func(i, j int) bool { return unplaced[i].Unit.ID < unplaced[j].Unit.ID })
	result.Unplaced = unplaced
	result.Slots = r.materialize(g.newID)
	result.Stats.Placed = len(r.state.placed)
	result.Stats.Evictions = r.evictions
	return result, nil
}

// Validate reports the InputError Generate would return for p, without placing anything.
func (g *Generator) Validate(p Problem) error {
	_, err := g.prepare(p)
	return err
}

func (g *Generator) prepare(p Problem) (*run, error) {
	if p.Calendar == nil {
		return nil, &InputError{Entity: EntityCalendar, Reason: "calendar is required"}
	}
	cal := p.Calendar
	if !p.Settings.IncludeSaturday {
		cal = cal.Without(models.Saturday)
	}
	r := newRun(cal, NewRosterIndex(p.Roster), p.Settings, g.weights)
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// run holds per-invocation lookups and the mutable grid.
type run struct {
	cal          *calendar.Calendar
	idx          *RosterIndex
	settings     models.GenerationSettings
	weights      ScoringWeights
	exam         bool
	coords       []models.Coordinate
	dayRank      map[models.Weekday]int
	labs         []models.Room
	blocked      map[cell]bool
	blockedCount map[string]int
	avoided      map[cell]bool
	teachers     map[string]bool
	state        *gridState
	evictions    int
}

func newRun(cal *calendar.Calendar, idx *RosterIndex, settings models.GenerationSettings, weights ScoringWeights) *run {
	r := &run{
		cal:          cal,
		idx:          idx,
		settings:     settings,
		weights:      weights,
		exam:         settings.TimetableType == models.TimetableTypeExam,
		coords:       cal.Coordinates(),
		dayRank:      make(map[models.Weekday]int),
		labs:         idx.LabRooms(),
		blocked:      make(map[cell]bool),
		blockedCount: make(map[string]int),
		avoided:      make(map[cell]bool),
		teachers:     make(map[string]bool),
	}
	r.state = newGridState(r.exam)
	for i, day := range cal.ActiveDays() {
		r.dayRank[day.Day] = i
	}
	for _, window := range settings.TeacherUnavailability {
		for _, c := range r.coords {
			key := cell{c.Day, c.PeriodID, window.TeacherID}
			if window.Covers(c.Day, c.PeriodID) && !r.blocked[key] {
				r.blocked[key] = true
				r.blockedCount[window.TeacherID]++
			}
		}
	}
	for _, avoid := range settings.ClassAvoidedSlots {
		for _, c := range r.coords {
			if c.Day == avoid.Day && (avoid.PeriodID == "" || avoid.PeriodID == c.PeriodID) {
				r.avoided[cell{c.Day, c.PeriodID, avoid.ClassID}] = true
			}
		}
	}
	return r
}

func (r *run) validate() error {
	if len(r.coords) == 0 {
		return &InputError{Entity: EntityCalendar, Reason: "no teaching periods on active days"}
	}
	subjects := append([]models.Subject(nil), r.idx.Roster().Subjects...)
	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	for _, subject := range subjects {
		if subject.PeriodsPerWeek <= 0 {
			return &InputError{Entity: EntitySubject, ID: subject.ID, Reason: "periodsPerWeek must be positive"}
		}
		if subject.DoublePeriodsPerWeek < 0 || subject.DoublePeriodsPerWeek*2 > subject.PeriodsPerWeek {
			return &InputError{Entity: EntitySubject, ID: subject.ID, Reason: "doublePeriodsPerWeek exceeds periodsPerWeek"}
		}
	}
	for _, classID := range r.idx.ClassIDs() {
		if len(r.idx.SubjectsForClass(classID)) == 0 {
			continue
		}
		available := 0
		for _, c := range r.coords {
			if !r.avoided[cell{c.Day, c.PeriodID, classID}] {
				available++
			}
		}
		if available == 0 {
			return &InputError{Entity: EntityClass, ID: classID, Reason: "no teaching periods available"}
		}
	}
	return nil
}

type candidate struct {
	coords []models.Coordinate
	room   string
}

// feasible applies the hard filters for placing unit at start.
func (r *run) feasible(u *DemandUnit, start models.Coordinate) (candidate, bool) {
	coords := []models.Coordinate{start}
	if u.Span == 2 {
		next, ok := r.cal.NextAdjacentTeaching(start.Day, start.PeriodID)
		if !ok {
			return candidate{}, false
		}
		coords = append(coords, models.Coordinate{Day: start.Day, PeriodID: next.ID})
	}
	for _, c := range coords {
		if !r.state.classFree(c, u.ClassID) || !r.state.teacherFree(c, u.TeacherID) {
			return candidate{}, false
		}
		if r.blocked[cell{c.Day, c.PeriodID, u.TeacherID}] || r.avoided[cell{c.Day, c.PeriodID, u.ClassID}] {
			return candidate{}, false
		}
	}

	cand := candidate{coords: coords}
	if u.RequiresLab {
		for _, lab := range r.labs {
			free := true
			for _, c := range coords {
				if !r.state.roomFree(c, lab.ID) {
					free = false
					break
				}
			}
			if free {
				cand.room = lab.ID
				break
			}
		}
		if cand.room == "" {
			return candidate{}, false
		}
	}

	if r.exam && !r.examAllowed(u, coords) {
		return candidate{}, false
	}
	return cand, true
}

func (r *run) examAllowed(u *DemandUnit, coords []models.Coordinate) bool {
	exam := r.settings.Exam
	day := coords[0].Day
	if exam.MaxExamsPerDay > 0 && r.state.classDay[u.ClassID][day] >= exam.MaxExamsPerDay {
		return false
	}
	if exam.MinTimeBetweenExams <= 0 {
		return true
	}
	start, end := r.span(coords)
	for _, other := range r.state.byClass[u.ClassID] {
		if other.coords[0].Day != day {
			continue
		}
		os, oe := r.span(other.coords)
		gap := start - oe
		if os > start {
			gap = os - end
		}
		if gap < exam.MinTimeBetweenExams {
			return false
		}
	}
	return true
}

// span returns the start and end minute of a run of coordinates on one day.
func (r *run) span(coords []models.Coordinate) (int, int) {
	first, _ := r.cal.Period(coords[0].Day, coords[0].PeriodID)
	last, _ := r.cal.Period(coords[len(coords)-1].Day, coords[len(coords)-1].PeriodID)
	return calendar.MustClock(first.StartTime), calendar.MustClock(last.EndTime)
}

func (r *run) terms(u *DemandUnit, cand candidate) scoreTerms {
	var t scoreTerms
	first := cand.coords[0]
	day := first.Day

	matched, has := r.preferenceMatch(u, first)
	t.preferenceMatched = matched
	t.preferenceMismatch = has && !matched

	if u.Difficulty == models.DifficultyHigh {
		if r.settings.PreferMorningForDifficult {
			period, _ := r.cal.Period(day, first.PeriodID)
			if calendar.MustClock(period.StartTime) < 12*60 {
				t.morning = 1
			} else {
				t.morning = -1
			}
		}
		if !r.settings.AllowBackToBackDifficult {
			t.backToBack = r.difficultNeighbours(u, cand.coords)
		}
	}

	if !r.exam {
		load := r.state.teacherDay[u.TeacherID][day] + len(cand.coords)
		if limit := r.settings.MaxPeriodsPerDayPerTeacher; limit > 0 && load > limit {
			t.overload = load - limit
		}
		if diff := load - r.minTeacherLoad(day); diff > 0 {
			t.balance = diff
		}
	}
	t.clustering = r.state.subjectDay[u.ClassID+"|"+u.SubjectID][day]

	if r.exam && r.settings.Exam.PrioritizeCore && u.Core {
		t.coreEarly = len(r.dayRank) - 1 - r.dayRank[day]
	}
	return t
}

func (r *run) difficultNeighbours(u *DemandUnit, coords []models.Coordinate) int {
	count := 0
	check := func(day models.Weekday, period models.Period, ok bool) {
		if !ok {
			return
		}
		other, taken := r.state.classAt[cell{day, period.ID, u.ClassID}]
		if taken && other.unit.SubjectID != u.SubjectID && other.unit.Difficulty == models.DifficultyHigh {
			count++
		}
	}
	first, last := coords[0], coords[len(coords)-1]
	prev, ok := r.cal.PreviousAdjacentTeaching(first.Day, first.PeriodID)
	check(first.Day, prev, ok)
	next, ok := r.cal.NextAdjacentTeaching(last.Day, last.PeriodID)
	check(last.Day, next, ok)
	return count
}

func (r *run) minTeacherLoad(day models.Weekday) int {
	lowest := -1
	for teacherID := range r.teachers {
		load := r.state.teacherDay[teacherID][day]
		if lowest < 0 || load < lowest {
			lowest = load
		}
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}

func (r *run) preferenceMatch(u *DemandUnit, c models.Coordinate) (matched bool, has bool) {
	for _, pref := range r.settings.SubjectPreferences {
		if pref.SubjectID != u.SubjectID || (pref.ClassID != "" && pref.ClassID != u.ClassID) {
			continue
		}
		has = true
		if containsDay(pref.Days, c.Day) && containsString(pref.PeriodIDs, c.PeriodID) {
			matched = true
		}
	}
	if subject, ok := r.idx.Subject(u.SubjectID); ok && len(subject.PreferredPeriods) > 0 {
		has = true
		for _, id := range subject.PreferredPeriods {
			if id == c.PeriodID {
				matched = true
			}
		}
	}
	return matched, has
}

func (r *run) preferredCount(u *DemandUnit) int {
	count := 0
	for _, c := range r.coords {
		if matched, _ := r.preferenceMatch(u, c); matched {
			count++
		}
	}
	return count
}

// best returns the highest scoring feasible candidate. Ties keep the earliest coordinate.
func (r *run) best(u *DemandUnit) (candidate, bool) {
	var (
		chosen    candidate
		bestScore float64
		found     bool
	)
	for _, c := range r.coords {
		cand, ok := r.feasible(u, c)
		if !ok {
			continue
		}
		score := r.weights.combine(r.settings.OptimizeFor, r.terms(u, cand))
		if !found || score > bestScore {
			chosen, bestScore, found = cand, score, true
		}
	}
	return chosen, found
}

func (r *run) placeBest(u *DemandUnit) bool {
	cand, ok := r.best(u)
	if !ok {
		return false
	}
	r.state.add(&placement{unit: u, coords: cand.coords, room: cand.room})
	return true
}

func (r *run) materialize(newID func() string) []models.TimetableSlot {
	var slots []models.TimetableSlot
	var examType *string
	if r.exam && r.settings.Exam.ExamType != "" {
		value := r.settings.Exam.ExamType
		examType = &value
	}
	for _, p := range r.state.ordered(r.cal) {
		ids := make([]string, len(p.coords))
		for i := range p.coords {
			ids[i] = newID()
		}
		for i, c := range p.coords {
			slot := models.TimetableSlot{
				ID:             ids[i],
				ClassID:        p.unit.ClassID,
				SubjectID:      p.unit.SubjectID,
				TeacherID:      p.unit.TeacherID,
				Day:            c.Day,
				PeriodID:       c.PeriodID,
				IsExam:         r.exam,
				IsDoublePeriod: len(p.coords) == 2,
			}
			if p.room != "" {
				room := p.room
				slot.RoomID = &room
			}
			if examType != nil {
				value := *examType
				slot.ExamType = &value
			}
			if len(p.coords) == 2 {
				pair := ids[1-i]
				slot.PairSlotID = &pair
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

func containsDay(days []models.Weekday, day models.Weekday) bool {
	if len(days) == 0 {
		return true
	}
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

func containsString(values []string, value string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
