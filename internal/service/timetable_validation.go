package service

import (
	"fmt"
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/calendar"
	"github.com/noah-isme/sma-timetable-api/internal/models"
	"github.com/noah-isme/sma-timetable-api/internal/scheduler"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
)

// Conflict dimensions reported in ScheduleConflict.Dimension.
const (
	dimensionClass   = "CLASS"
	dimensionTeacher = "TEACHER"
	dimensionRoom    = "ROOM"
	dimensionPeriod  = "PERIOD"
	dimensionRoster  = "ROSTER"
	dimensionDouble  = "DOUBLE_PERIOD"
)

var dimensionInvariant = map[string]string{
	dimensionClass:   models.InvariantClassCoordinate,
	dimensionTeacher: models.InvariantTeacherCoordinate,
	dimensionRoom:    models.InvariantRoomCoordinate,
}

// placementCheck validates slots about to be written against the calendar, the
// roster and the slots that stay in place.
type placementCheck struct {
	cal    *calendar.Calendar
	roster *scheduler.RosterIndex
}

// validate checks incoming slots in order: coordinates, roster rules, double
// period pairing and finally structural clashes.
func (p placementCheck) validate(kept, incoming []models.TimetableSlot) error {
	for _, slot := range incoming {
		if !p.cal.IsAddressable(slot.Day, slot.PeriodID) {
			return invalidCoordinate(slot, models.InvariantTeachingPeriod,
				fmt.Sprintf("%s %s is not a teaching period", slot.Day, slot.PeriodID))
		}
		if err := p.rosterRule(slot); err != nil {
			return err
		}
	}
	if err := p.doubles(kept, incoming); err != nil {
		return err
	}

	clashes := findClashes(kept, incoming)
	if len(clashes) == 0 {
		return nil
	}
	first := clashes[0]
	detail := &models.ScheduleConflictError{
		Type:      appErrors.ErrConflictOnInsert.Code,
		Invariant: dimensionInvariant[first.Dimension],
		Message:   fmt.Sprintf("%s already booked at %s %s", lowerDimension(first.Dimension), first.Day, first.PeriodID),
		SlotIDs:   clashSlotIDs(incoming, clashes),
		Conflict:  first,
		Errors:    clashes,
	}
	return appErrors.WithDetails(detail, appErrors.ErrConflictOnInsert, detail.Message, detail)
}

func (p placementCheck) rosterRule(slot models.TimetableSlot) error {
	reject := func(reason string) error {
		detail := &models.ScheduleConflictError{
			Type:      appErrors.ErrValidation.Code,
			Invariant: models.InvariantRoster,
			Message:   reason,
			SlotIDs:   nonEmpty(slot.ID),
			Conflict:  conflictFor(slot, dimensionRoster),
		}
		return appErrors.WithDetails(detail, appErrors.ErrValidation, reason, detail)
	}

	if p.roster == nil {
		return nil
	}
	class, ok := p.roster.Class(slot.ClassID)
	if !ok {
		return reject(fmt.Sprintf("unknown class %s", slot.ClassID))
	}
	subject, ok := p.roster.Subject(slot.SubjectID)
	if !ok {
		return reject(fmt.Sprintf("unknown subject %s", slot.SubjectID))
	}
	if !subject.OffersForm(class.FormLevel) {
		return reject(fmt.Sprintf("subject %s is not offered to form %s", subject.ID, class.FormLevel))
	}
	if !p.roster.CanTeach(slot.TeacherID, slot.ClassID, slot.SubjectID) {
		return reject(fmt.Sprintf("teacher %s may not teach %s to %s", slot.TeacherID, subject.ID, class.ID))
	}
	if room := slot.Room(); room != "" {
		if _, ok := p.roster.Room(room); !ok {
			return reject(fmt.Sprintf("unknown room %s", room))
		}
	}
	return nil
}

// doubles requires every double-period slot to point at a mutual partner with
// the same class, subject and teacher in the adjacent teaching period.
func (p placementCheck) doubles(kept, incoming []models.TimetableSlot) error {
	byID := make(map[string]models.TimetableSlot, len(kept)+len(incoming))
	for _, slot := range kept {
		byID[slot.ID] = slot
	}
	for _, slot := range incoming {
		byID[slot.ID] = slot
	}

	for _, slot := range incoming {
		if !slot.IsDoublePeriod {
			if slot.PairSlotID != nil {
				return invalidCoordinate(slot, models.InvariantDoublePeriod, "single slot cannot reference a partner")
			}
			continue
		}
		if slot.PairSlotID == nil {
			return invalidCoordinate(slot, models.InvariantDoublePeriod, "double period slot has no partner")
		}
		partner, ok := byID[*slot.PairSlotID]
		if !ok || partner.PairSlotID == nil || *partner.PairSlotID != slot.ID || !partner.IsDoublePeriod {
			return invalidCoordinate(slot, models.InvariantDoublePeriod, "double period partner is missing or not mutual")
		}
		if partner.ClassID != slot.ClassID || partner.SubjectID != slot.SubjectID || partner.TeacherID != slot.TeacherID {
			return invalidCoordinate(slot, models.InvariantDoublePeriod, "double period halves must share class, subject and teacher")
		}
		if !p.adjacent(slot, partner) {
			return invalidCoordinate(slot, models.InvariantDoublePeriod, "double period halves must be adjacent")
		}
	}
	return nil
}

func (p placementCheck) adjacent(a, b models.TimetableSlot) bool {
	if a.Day != b.Day {
		return false
	}
	if next, ok := p.cal.NextAdjacentTeaching(a.Day, a.PeriodID); ok && next.ID == b.PeriodID {
		return true
	}
	prev, ok := p.cal.PreviousAdjacentTeaching(a.Day, a.PeriodID)
	return ok && prev.ID == b.PeriodID
}

// findClashes pairs every incoming slot with the kept and incoming slots it
// collides with. Teacher clashes only count between teaching slots.
func findClashes(kept, incoming []models.TimetableSlot) []models.ScheduleConflict {
	var out []models.ScheduleConflict
	for i, slot := range incoming {
		for _, other := range kept {
			out = append(out, clash(slot, other)...)
		}
		for _, other := range incoming[i+1:] {
			out = append(out, clash(slot, other)...)
		}
	}
	return out
}

func clash(a, b models.TimetableSlot) []models.ScheduleConflict {
	if a.Day != b.Day || a.PeriodID != b.PeriodID {
		return nil
	}
	var out []models.ScheduleConflict
	if a.ClassID == b.ClassID {
		out = append(out, conflictFor(b, dimensionClass))
	}
	if !a.IsExam && !b.IsExam && a.TeacherID == b.TeacherID {
		out = append(out, conflictFor(b, dimensionTeacher))
	}
	if room := a.Room(); room != "" && room == b.Room() {
		out = append(out, conflictFor(b, dimensionRoom))
	}
	return out
}

func conflictFor(slot models.TimetableSlot, dimension string) models.ScheduleConflict {
	return models.ScheduleConflict{
		SlotID:    slot.ID,
		ClassID:   slot.ClassID,
		SubjectID: slot.SubjectID,
		TeacherID: slot.TeacherID,
		Day:       slot.Day,
		PeriodID:  slot.PeriodID,
		RoomID:    slot.Room(),
		Dimension: dimension,
	}
}

func invalidCoordinate(slot models.TimetableSlot, invariant, reason string) error {
	detail := &models.ScheduleConflictError{
		Type:      appErrors.ErrInvalidCoordinate.Code,
		Invariant: invariant,
		Message:   reason,
		SlotIDs:   nonEmpty(slot.ID),
		Conflict:  conflictFor(slot, dimensionPeriod),
	}
	if invariant == models.InvariantDoublePeriod {
		detail.Conflict.Dimension = dimensionDouble
	}
	return appErrors.WithDetails(detail, appErrors.ErrInvalidCoordinate, reason, detail)
}

func clashSlotIDs(incoming []models.TimetableSlot, clashes []models.ScheduleConflict) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, slot := range incoming {
		add(slot.ID)
	}
	for _, c := range clashes {
		add(c.SlotID)
	}
	sort.Strings(ids)
	return ids
}

func nonEmpty(ids ...string) []string {
	var out []string
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

func lowerDimension(dimension string) string {
	switch dimension {
	case dimensionClass:
		return "class"
	case dimensionTeacher:
		return "teacher"
	case dimensionRoom:
		return "room"
	default:
		return "slot"
	}
}
