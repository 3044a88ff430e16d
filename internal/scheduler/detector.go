package scheduler

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// DetectInput is everything the detector reads. Roster may be nil, in which case
// subject overload is not evaluated.
type DetectInput struct {
	Type     models.TimetableType
	Slots    []models.TimetableSlot
	Rules    models.DetectionRules
	Roster   *RosterIndex
	Previous []models.Conflict
}

type groupKey struct {
	day      models.Weekday
	periodID string
	ref      string
}

// DetectConflicts computes the full conflict set for a slot list. The result is
// sorted by severity, type and identity, and carries over resolved flags from
// Previous for conflicts whose identity is unchanged.
func DetectConflicts(in DetectInput) []models.Conflict {
	var conflicts []models.Conflict

	byClass := make(map[groupKey][]string)
	byTeacher := make(map[groupKey][]string)
	byRoom := make(map[groupKey][]string)
	for _, slot := range in.Slots {
		classKey := groupKey{slot.Day, slot.PeriodID, slot.ClassID}
		byClass[classKey] = append(byClass[classKey], slot.ID)
		if !slot.IsExam {
			teacherKey := groupKey{slot.Day, slot.PeriodID, slot.TeacherID}
			byTeacher[teacherKey] = append(byTeacher[teacherKey], slot.ID)
		}
		if room := slot.Room(); room != "" {
			roomKey := groupKey{slot.Day, slot.PeriodID, room}
			byRoom[roomKey] = append(byRoom[roomKey], slot.ID)
		}
	}

	conflicts = appendDoubleBookings(conflicts, byClass, models.ConflictClassDoubleBooked, "class")
	conflicts = appendDoubleBookings(conflicts, byTeacher, models.ConflictTeacherDoubleBooked, "teacher")
	conflicts = appendDoubleBookings(conflicts, byRoom, models.ConflictRoomDoubleBooked, "room")
	conflicts = append(conflicts, teacherOverloads(in)...)
	if in.Type != models.TimetableTypeExam && in.Roster != nil {
		conflicts = append(conflicts, subjectOverloads(in)...)
	}

	resolved := make(map[string]bool, len(in.Previous))
	for _, prev := range in.Previous {
		if prev.Resolved {
			resolved[prev.Identity()] = true
		}
	}
	for i := range conflicts {
		sort.Strings(conflicts[i].SlotIDs)
		identity := conflicts[i].Identity()
		conflicts[i].ID = ConflictID(identity)
		conflicts[i].Resolved = resolved[identity]
	}

	sortConflicts(conflicts)
	return conflicts
}

// ConflictID derives a stable id from a conflict identity.
func ConflictID(identity string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(identity)).String()
}

func appendDoubleBookings(dst []models.Conflict, groups map[groupKey][]string, kind models.ConflictType, label string) []models.Conflict {
	for key, ids := range groups {
		if len(ids) < 2 {
			continue
		}
		dst = append(dst, models.Conflict{
			Type:        kind,
			Severity:    models.SeverityCritical,
			Description: fmt.Sprintf("%s %s booked %d times on %s %s", label, key.ref, len(ids), key.day, key.periodID),
			SlotIDs:     append([]string(nil), ids...),
		})
	}
	return dst
}

func teacherOverloads(in DetectInput) []models.Conflict {
	limit := in.Rules.MaxPeriodsPerDayPerTeacher
	if limit <= 0 {
		return nil
	}
	type dayKey struct {
		teacher string
		day     models.Weekday
	}
	load := make(map[dayKey][]string)
	for _, slot := range in.Slots {
		if slot.IsExam {
			continue
		}
		key := dayKey{slot.TeacherID, slot.Day}
		load[key] = append(load[key], slot.ID)
	}
	var out []models.Conflict
	for key, ids := range load {
		if len(ids) <= limit {
			continue
		}
		out = append(out, models.Conflict{
			Type:        models.ConflictTeacherOverload,
			Severity:    models.SeverityWarning,
			Description: fmt.Sprintf("teacher %s has %d periods on %s, limit %d", key.teacher, len(ids), key.day, limit),
			SlotIDs:     append([]string(nil), ids...),
		})
	}
	return out
}

func subjectOverloads(in DetectInput) []models.Conflict {
	type pair struct{ class, subject string }
	counts := make(map[pair][]string)
	classes := make(map[string]bool)
	for _, slot := range in.Slots {
		classes[slot.ClassID] = true
		key := pair{slot.ClassID, slot.SubjectID}
		counts[key] = append(counts[key], slot.ID)
	}
	for classID := range classes {
		for _, subject := range in.Roster.SubjectsForClass(classID) {
			key := pair{classID, subject.ID}
			if _, ok := counts[key]; !ok {
				counts[key] = nil
			}
		}
	}

	tolerance := in.Rules.SubjectTolerance
	var out []models.Conflict
	for key, ids := range counts {
		subject, ok := in.Roster.Subject(key.subject)
		if !ok {
			continue
		}
		diff := len(ids) - subject.PeriodsPerWeek
		if int(math.Abs(float64(diff))) <= tolerance {
			continue
		}
		severity := models.SeverityInfo
		direction := "over"
		if diff < 0 {
			severity = models.SeverityWarning
			direction = "under"
		}
		out = append(out, models.Conflict{
			Type:        models.ConflictSubjectOverload,
			Severity:    severity,
			Description: fmt.Sprintf("class %s is %s-scheduled for %s: %d of %d periods", key.class, direction, key.subject, len(ids), subject.PeriodsPerWeek),
			SlotIDs:     append([]string(nil), ids...),
			Scope:       key.class + ":" + key.subject,
		})
	}
	return out
}

func sortConflicts(conflicts []models.Conflict) {
	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Identity() < b.Identity()
	})
}

// HasBlocking reports whether any unresolved CRITICAL conflict exists.
func HasBlocking(conflicts []models.Conflict) bool {
	for _, c := range conflicts {
		if c.Blocking() {
			return true
		}
	}
	return false
}

// CountBySeverity tallies unresolved conflicts per severity.
func CountBySeverity(conflicts []models.Conflict) map[string]int {
	out := map[string]int{
		string(models.SeverityCritical): 0,
		string(models.SeverityWarning):  0,
		string(models.SeverityInfo):     0,
	}
	for _, c := range conflicts {
		if c.Resolved {
			continue
		}
		out[string(c.Severity)]++
	}
	return out
}

// ComputeStatistics derives the statistics block from slots and conflicts.
func ComputeStatistics(kind models.TimetableType, slots []models.TimetableSlot, conflicts []models.Conflict, roster *RosterIndex) models.TimetableStatistics {
	stats := models.TimetableStatistics{
		TotalSlots:          len(slots),
		ConflictsBySeverity: CountBySeverity(conflicts),
	}
	classes := make(map[string]bool)
	teachers := make(map[string]bool)
	subjects := make(map[string]bool)
	for _, slot := range slots {
		classes[slot.ClassID] = true
		teachers[slot.TeacherID] = true
		subjects[slot.SubjectID] = true
		if slot.IsDoublePeriod {
			stats.DoublePeriodSlots++
		}
		if slot.IsExam {
			stats.ExamSlots++
		}
	}
	stats.ClassCount = len(classes)
	stats.TeacherCount = len(teachers)
	stats.SubjectCount = len(subjects)
	if roster != nil {
		if kind == models.TimetableTypeExam {
			stats.RequiredPeriods = roster.RequiredExams()
		} else {
			stats.RequiredPeriods = roster.RequiredPeriods()
		}
	}
	if stats.RequiredPeriods > 0 {
		pct := float64(stats.TotalSlots) / float64(stats.RequiredPeriods) * 100
		stats.CompletionPercent = math.Min(100, math.Round(pct*10)/10)
	}
	return stats
}
