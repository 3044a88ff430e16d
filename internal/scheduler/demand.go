package scheduler

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// Reasons attached to unplaced demand units.
const (
	ReasonNoQualifiedTeacher   = "NO_QUALIFIED_TEACHER"
	ReasonNoLabRoom            = "NO_LAB_ROOM"
	ReasonNoFeasibleCoordinate = "NO_FEASIBLE_COORDINATE"
	ReasonCancelled            = "CANCELLED"
)

// DemandUnit is one required occurrence of a class and subject pairing. A double
// period is a single unit with Span 2.
type DemandUnit struct {
	ID          string                 `json:"id"`
	ClassID     string                 `json:"classId"`
	SubjectID   string                 `json:"subjectId"`
	TeacherID   string                 `json:"teacherId,omitempty"`
	Occurrence  int                    `json:"occurrence"`
	Span        int                    `json:"span"`
	Difficulty  models.DifficultyLevel `json:"difficulty"`
	RequiresLab bool                   `json:"requiresLab"`
	Core        bool                   `json:"core"`

	preferred int
	blocked   int
	order     int
}

// UnplacedUnit is demand the generator could not schedule, with the reason.
type UnplacedUnit struct {
	Unit   DemandUnit `json:"unit"`
	Reason string     `json:"reason"`
}

// buildDemand expands the roster into demand units and picks one teacher per
// class and subject, spreading weekly load across equally qualified teachers.
func buildDemand(idx *RosterIndex, exam bool, hasLabs bool) ([]*DemandUnit, []UnplacedUnit) {
	var (
		units    []*DemandUnit
		unplaced []UnplacedUnit
		assigned = make(map[string]int)
	)

	for _, classID := range idx.ClassIDs() {
		for _, subject := range idx.SubjectsForClass(classID) {
			doubles, singles := 0, subject.PeriodsPerWeek
			if exam {
				singles = 1
			} else if subject.DoublePeriodsPerWeek > 0 {
				doubles = subject.DoublePeriodsPerWeek
				singles = subject.PeriodsPerWeek - 2*doubles
			}

			teacherID := pickTeacher(idx.QualifiedTeachers(classID, subject.ID), assigned)
			if teacherID != "" {
				assigned[teacherID] += doubles*2 + singles
			}

			occurrence := 0
			emit := func(span int) {
				occurrence++
				unit := &DemandUnit{
					ID:          fmt.Sprintf("%s/%s/%d", classID, subject.ID, occurrence),
					ClassID:     classID,
					SubjectID:   subject.ID,
					TeacherID:   teacherID,
					Occurrence:  occurrence,
					Span:        span,
					Difficulty:  subject.DifficultyLevel,
					RequiresLab: subject.RequiresLab,
					Core:        subject.Category == models.SubjectCategoryCore,
				}
				switch {
				case teacherID == "":
					unplaced = append(unplaced, UnplacedUnit{Unit: *unit, Reason: ReasonNoQualifiedTeacher})
				case unit.RequiresLab && !hasLabs:
					unplaced = append(unplaced, UnplacedUnit{Unit: *unit, Reason: ReasonNoLabRoom})
				default:
					units = append(units, unit)
				}
			}
			for i := 0; i < doubles; i++ {
				emit(2)
			}
			for i := 0; i < singles; i++ {
				emit(1)
			}
		}
	}
	return units, unplaced
}

func pickTeacher(qualified []string, assigned map[string]int) string {
	best := ""
	for _, id := range qualified {
		if best == "" || assigned[id] < assigned[best] {
			best = id
		}
	}
	return best
}

// orderUnits sorts most-constrained first and records the resulting priority.
// Lower order means higher priority; repair only evicts units with a higher order.
func orderUnits(units []*DemandUnit, prioritizeCore bool) {
	sort.SliceStable(units, func(i, j int) bool {
		a, b := units[i], units[j]
		if ah, bh := a.Difficulty == models.DifficultyHigh, b.Difficulty == models.DifficultyHigh; ah != bh {
			return ah
		}
		if a.RequiresLab != b.RequiresLab {
			return a.RequiresLab
		}
		if a.Span != b.Span {
			return a.Span > b.Span
		}
		if prioritizeCore && a.Core != b.Core {
			return a.Core
		}
		if ap, bp := preferenceRank(a.preferred), preferenceRank(b.preferred); ap != bp {
			return ap < bp
		}
		if a.blocked != b.blocked {
			return a.blocked > b.blocked
		}
		return a.ID < b.ID
	})
	for i, unit := range units {
		unit.order = i
	}
}

// preferenceRank treats "no preference" as the least constrained.
func preferenceRank(preferred int) int {
	if preferred == 0 {
		return int(^uint(0) >> 1)
	}
	return preferred
}
