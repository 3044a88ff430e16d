package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestDetectConflictsDoubleBookings(t *testing.T) {
	slots := []models.TimetableSlot{
		slotAt("s1", "C1", "MATH", "T1", models.Monday, "P1"),
		slotAt("s2", "C2", "MATH", "T1", models.Monday, "P1"),
		slotAt("s3", "C1", "ENG", "T2", models.Monday, "P1"),
		slotAt("s4", "C3", "ART", "T3", models.Monday, "P2"),
		slotAt("s5", "C4", "ART", "T4", models.Monday, "P2"),
	}
	slots[3].RoomID = strPtr("R1")
	slots[4].RoomID = strPtr("R1")

	conflicts := DetectConflicts(DetectInput{Type: models.TimetableTypeTeaching, Slots: slots})
	require.Len(t, conflicts, 3)

	byType := map[models.ConflictType]models.Conflict{}
	for _, c := range conflicts {
		assert.Equal(t, models.SeverityCritical, c.Severity)
		assert.NotEmpty(t, c.ID)
		byType[c.Type] = c
	}
	assert.Equal(t, []string{"s1", "s3"}, byType[models.ConflictClassDoubleBooked].SlotIDs)
	assert.Equal(t, []string{"s1", "s2"}, byType[models.ConflictTeacherDoubleBooked].SlotIDs)
	assert.Equal(t, []string{"s4", "s5"}, byType[models.ConflictRoomDoubleBooked].SlotIDs)
}

func TestDetectConflictsIgnoresExamTeacherOverlap(t *testing.T) {
	a := slotAt("e1", "C1", "MATH", "T1", models.Monday, "P1")
	b := slotAt("e2", "C2", "MATH", "T1", models.Monday, "P1")
	a.IsExam, b.IsExam = true, true

	conflicts := DetectConflicts(DetectInput{Type: models.TimetableTypeExam, Slots: []models.TimetableSlot{a, b}})
	assert.Empty(t, conflicts)
}

func TestDetectConflictsTeacherOverload(t *testing.T) {
	slots := []models.TimetableSlot{
		slotAt("s1", "C1", "MATH", "T1", models.Monday, "P1"),
		slotAt("s2", "C2", "MATH", "T1", models.Monday, "P2"),
		slotAt("s3", "C3", "MATH", "T1", models.Monday, "P3"),
		slotAt("s4", "C3", "MATH", "T1", models.Tuesday, "P3"),
	}

	conflicts := DetectConflicts(DetectInput{Slots: slots, Rules: models.DetectionRules{MaxPeriodsPerDayPerTeacher: 2}})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherOverload, conflicts[0].Type)
	assert.Equal(t, models.SeverityWarning, conflicts[0].Severity)
	assert.Equal(t, []string{"s1", "s2", "s3"}, conflicts[0].SlotIDs)
}

func TestDetectConflictsSubjectOverload(t *testing.T) {
	idx := NewRosterIndex(models.Roster{
		Subjects: []models.Subject{subject("MATH", 2), subject("ENG", 1), subject("PE", 1)},
		Classes:  []models.SchoolClass{class("C1")},
	})
	slots := []models.TimetableSlot{
		slotAt("s1", "C1", "MATH", "T1", models.Monday, "P1"),
		slotAt("s2", "C1", "ENG", "T2", models.Monday, "P2"),
		slotAt("s3", "C1", "ENG", "T2", models.Tuesday, "P2"),
	}

	conflicts := DetectConflicts(DetectInput{Type: models.TimetableTypeTeaching, Slots: slots, Roster: idx})
	require.Len(t, conflicts, 3)

	assert.Equal(t, models.SeverityWarning, conflicts[0].Severity)
	assert.Equal(t, models.SeverityWarning, conflicts[1].Severity)
	assert.Equal(t, models.SeverityInfo, conflicts[2].Severity)
	assert.Equal(t, []string{"s2", "s3"}, conflicts[2].SlotIDs)

	var empty *models.Conflict
	for i := range conflicts {
		if len(conflicts[i].SlotIDs) == 0 {
			empty = &conflicts[i]
		}
	}
	require.NotNil(t, empty)
	assert.Equal(t, "C1:PE", empty.Scope)

	tolerant := DetectConflicts(DetectInput{Slots: slots, Roster: idx, Rules: models.DetectionRules{SubjectTolerance: 1}})
	assert.Empty(t, tolerant)

	exam := DetectConflicts(DetectInput{Type: models.TimetableTypeExam, Slots: slots, Roster: idx})
	assert.Empty(t, exam)
}

func TestDetectConflictsIsIdempotentAndKeepsResolved(t *testing.T) {
	slots := []models.TimetableSlot{
		slotAt("s1", "C1", "MATH", "T1", models.Monday, "P1"),
		slotAt("s2", "C2", "MATH", "T1", models.Monday, "P1"),
		slotAt("s3", "C3", "ENG", "T2", models.Monday, "P2"),
		slotAt("s4", "C4", "ENG", "T2", models.Monday, "P2"),
	}
	in := DetectInput{Slots: slots}

	first := DetectConflicts(in)
	second := DetectConflicts(in)
	assert.Equal(t, first, second)
	require.Len(t, first, 2)

	first[0].Resolved = true
	in.Previous = first
	again := DetectConflicts(in)
	assert.True(t, again[0].Resolved)
	assert.False(t, again[1].Resolved)
	assert.Equal(t, first[0].ID, again[0].ID)
	assert.False(t, HasBlocking(again[:1]))
	assert.True(t, HasBlocking(again))

	// Changing the slot set of the acknowledged conflict drops the acknowledgement.
	in.Slots = append(in.Slots, slotAt("s5", "C5", "MATH", "T1", models.Monday, "P1"))
	changed := DetectConflicts(in)
	for _, c := range changed {
		if c.Type == models.ConflictTeacherDoubleBooked && len(c.SlotIDs) == 3 {
			assert.False(t, c.Resolved)
		}
	}
}

func TestComputeStatistics(t *testing.T) {
	idx := NewRosterIndex(models.Roster{
		Subjects: []models.Subject{subject("MATH", 3), subject("ENG", 1)},
		Classes:  []models.SchoolClass{class("C1")},
	})
	slots := []models.TimetableSlot{
		slotAt("s1", "C1", "MATH", "T1", models.Monday, "P1"),
		slotAt("s2", "C1", "MATH", "T1", models.Monday, "P2"),
	}
	slots[0].IsDoublePeriod, slots[1].IsDoublePeriod = true, true
	conflicts := []models.Conflict{{Severity: models.SeverityWarning}, {Severity: models.SeverityCritical, Resolved: true}}

	stats := ComputeStatistics(models.TimetableTypeTeaching, slots, conflicts, idx)
	assert.Equal(t, 2, stats.TotalSlots)
	assert.Equal(t, 4, stats.RequiredPeriods)
	assert.Equal(t, 50.0, stats.CompletionPercent)
	assert.Equal(t, 2, stats.DoublePeriodSlots)
	assert.Equal(t, 1, stats.ConflictsBySeverity["WARNING"])
	assert.Equal(t, 0, stats.ConflictsBySeverity["CRITICAL"])

	exam := ComputeStatistics(models.TimetableTypeExam, slots, nil, idx)
	assert.Equal(t, 2, exam.RequiredPeriods)
	assert.Equal(t, 100.0, exam.CompletionPercent)
}
