package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

type cell struct {
	day      models.Weekday
	periodID string
	ref      string
}

type placement struct {
	unit   *DemandUnit
	coords []models.Coordinate
	room   string
}

// gridState tracks occupancy while the generator places units.
type gridState struct {
	exam       bool
	classAt    map[cell]*placement
	teacherAt  map[cell]*placement
	roomAt     map[cell]*placement
	teacherDay map[string]map[models.Weekday]int
	classDay   map[string]map[models.Weekday]int
	subjectDay map[string]map[models.Weekday]int
	byClass    map[string][]*placement
	placed     map[*placement]struct{}
}

func newGridState(exam bool) *gridState {
	return &gridState{
		exam:       exam,
		classAt:    make(map[cell]*placement),
		teacherAt:  make(map[cell]*placement),
		roomAt:     make(map[cell]*placement),
		teacherDay: make(map[string]map[models.Weekday]int),
		classDay:   make(map[string]map[models.Weekday]int),
		subjectDay: make(map[string]map[models.Weekday]int),
		byClass:    make(map[string][]*placement),
		placed:     make(map[*placement]struct{}),
	}
}

func (s *gridState) add(p *placement) {
	u := p.unit
	day := p.coords[0].Day
	for _, c := range p.coords {
		s.classAt[cell{c.Day, c.PeriodID, u.ClassID}] = p
		if !s.exam {
			s.teacherAt[cell{c.Day, c.PeriodID, u.TeacherID}] = p
		}
		if p.room != "" {
			s.roomAt[cell{c.Day, c.PeriodID, p.room}] = p
		}
	}
	bump(s.teacherDay, u.TeacherID, day, len(p.coords))
	bump(s.classDay, u.ClassID, day, 1)
	bump(s.subjectDay, u.ClassID+"|"+u.SubjectID, day, 1)
	s.byClass[u.ClassID] = append(s.byClass[u.ClassID], p)
	s.placed[p] = struct{}{}
}

func (s *gridState) remove(p *placement) {
	if _, ok := s.placed[p]; !ok {
		return
	}
	u := p.unit
	day := p.coords[0].Day
	for _, c := range p.coords {
		delete(s.classAt, cell{c.Day, c.PeriodID, u.ClassID})
		if !s.exam {
			delete(s.teacherAt, cell{c.Day, c.PeriodID, u.TeacherID})
		}
		if p.room != "" {
			delete(s.roomAt, cell{c.Day, c.PeriodID, p.room})
		}
	}
	bump(s.teacherDay, u.TeacherID, day, -len(p.coords))
	bump(s.classDay, u.ClassID, day, -1)
	bump(s.subjectDay, u.ClassID+"|"+u.SubjectID, day, -1)
	list := s.byClass[u.ClassID]
	for i, item := range list {
		if item == p {
			s.byClass[u.ClassID] = append(list[:i], list[i+1:]...)
			break
		}
	}
	delete(s.placed, p)
}

func bump(m map[string]map[models.Weekday]int, key string, day models.Weekday, delta int) {
	if m[key] == nil {
		m[key] = make(map[models.Weekday]int)
	}
	m[key][day] += delta
}

func (s *gridState) classFree(c models.Coordinate, classID string) bool {
	_, taken := s.classAt[cell{c.Day, c.PeriodID, classID}]
	return !taken
}

func (s *gridState) teacherFree(c models.Coordinate, teacherID string) bool {
	if s.exam {
		return true
	}
	_, taken := s.teacherAt[cell{c.Day, c.PeriodID, teacherID}]
	return !taken
}

func (s *gridState) roomFree(c models.Coordinate, roomID string) bool {
	_, taken := s.roomAt[cell{c.Day, c.PeriodID, roomID}]
	return !taken
}

// ordered returns placements sorted by day, period start, class and subject.
func (s *gridState) ordered(cal *calendar.Calendar) []*placement {
	out := make([]*placement, 0, len(s.placed))
	for p := range s.placed {
		out = append(out, p)
	}
	start := func(p *placement) int {
		period, _ := cal.Period(p.coords[0].Day, p.coords[0].PeriodID)
		return calendar.MustClock(period.StartTime)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.coords[0].Day != b.coords[0].Day {
			return a.coords[0].Day.Index() < b.coords[0].Day.Index()
		}
		if sa, sb := start(a), start(b); sa != sb {
			return sa < sb
		}
		if a.unit.ClassID != b.unit.ClassID {
			return a.unit.ClassID < b.unit.ClassID
		}
		return a.unit.ID < b.unit.ID
	})
	return out
}
