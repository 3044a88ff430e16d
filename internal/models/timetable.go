package models

import "time"

// TimetableType distinguishes regular teaching grids from exam sittings.
type TimetableType string

const (
	TimetableTypeTeaching TimetableType = "TEACHING"
	TimetableTypeExam     TimetableType = "EXAM"
)

// TimetableStatus represents lifecycle phases for a timetable.
type TimetableStatus string

const (
	TimetableStatusDraft    TimetableStatus = "DRAFT"
	TimetableStatusActive   TimetableStatus = "ACTIVE"
	TimetableStatusArchived TimetableStatus = "ARCHIVED"
)

// TimetableSlot assigns a class, subject and teacher to a grid coordinate.
type TimetableSlot struct {
	ID             string  `json:"id" yaml:"id"`
	ClassID        string  `json:"classId" yaml:"class"`
	SubjectID      string  `json:"subjectId" yaml:"subject"`
	TeacherID      string  `json:"teacherId" yaml:"teacher"`
	Day            Weekday `json:"day" yaml:"day"`
	PeriodID       string  `json:"periodId" yaml:"period"`
	RoomID         *string `json:"roomId,omitempty" yaml:"room,omitempty"`
	IsExam         bool    `json:"isExam" yaml:"exam,omitempty"`
	IsDoublePeriod bool    `json:"isDoublePeriod" yaml:"double,omitempty"`
	ExamType       *string `json:"examType,omitempty" yaml:"examType,omitempty"`
	PairSlotID     *string `json:"pairSlotId,omitempty" yaml:"pair,omitempty"`
}

// Coordinate returns the slot's grid coordinate.
func (s TimetableSlot) Coordinate() Coordinate {
	return Coordinate{Day: s.Day, PeriodID: s.PeriodID}
}

// Room returns the room id or an empty string.
func (s TimetableSlot) Room() string {
	if s.RoomID == nil {
		return ""
	}
	return *s.RoomID
}

// DetectionRules parameterise soft-constraint checks for a timetable.
type DetectionRules struct {
	MaxPeriodsPerDayPerTeacher int `json:"maxPeriodsPerDayPerTeacher" yaml:"maxPeriodsPerDayPerTeacher"`
	SubjectTolerance           int `json:"subjectTolerance" yaml:"subjectTolerance"`
}

// TimetableStatistics is derived from slots and conflicts on every mutation.
type TimetableStatistics struct {
	TotalSlots          int            `json:"totalSlots"`
	RequiredPeriods     int            `json:"requiredPeriods"`
	CompletionPercent   float64        `json:"completionPercent"`
	ClassCount          int            `json:"classCount"`
	TeacherCount        int            `json:"teacherCount"`
	SubjectCount        int            `json:"subjectCount"`
	DoublePeriodSlots   int            `json:"doublePeriodSlots"`
	ExamSlots           int            `json:"examSlots"`
	ConflictsBySeverity map[string]int `json:"conflictsBySeverity"`
}

// Timetable is the unit of storage: metadata plus inline slots and derived caches.
type Timetable struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	AcademicYear string              `json:"academicYear"`
	Term         string              `json:"term"`
	Type         TimetableType       `json:"type"`
	Status       TimetableStatus     `json:"status"`
	Slots        []TimetableSlot     `json:"slots"`
	Conflicts    []Conflict          `json:"conflicts"`
	Statistics   TimetableStatistics `json:"statistics"`
	Rules        DetectionRules      `json:"rules"`
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate without touching shared state.
func (t *Timetable) Clone() *Timetable {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Slots = CloneSlots(t.Slots)
	clone.Conflicts = make([]Conflict, len(t.Conflicts))
	for i, conflict := range t.Conflicts {
		conflict.SlotIDs = append([]string(nil), conflict.SlotIDs...)
		clone.Conflicts[i] = conflict
	}
	if t.Statistics.ConflictsBySeverity != nil {
		clone.Statistics.ConflictsBySeverity = make(map[string]int, len(t.Statistics.ConflictsBySeverity))
		for k, v := range t.Statistics.ConflictsBySeverity {
			clone.Statistics.ConflictsBySeverity[k] = v
		}
	}
	return &clone
}

// SlotByID finds a slot and its index.
func (t *Timetable) SlotByID(id string) (TimetableSlot, int, bool) {
	for idx, slot := range t.Slots {
		if slot.ID == id {
			return slot, idx, true
		}
	}
	return TimetableSlot{}, -1, false
}

// Editable reports whether the grid editor may mutate slots.
func (t *Timetable) Editable() bool {
	return t.Status == TimetableStatusDraft
}

// CloneSlots deep-copies a slot list including pointer fields.
func CloneSlots(slots []TimetableSlot) []TimetableSlot {
	if slots == nil {
		return nil
	}
	out := make([]TimetableSlot, len(slots))
	for i, slot := range slots {
		out[i] = slot
		out[i].RoomID = clonePtr(slot.RoomID)
		out[i].ExamType = clonePtr(slot.ExamType)
		out[i].PairSlotID = clonePtr(slot.PairSlotID)
	}
	return out
}

func clonePtr(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// TimetableSummary is the lightweight list representation.
type TimetableSummary struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	AcademicYear      string          `json:"academicYear"`
	Term              string          `json:"term"`
	Type              TimetableType   `json:"type"`
	Status            TimetableStatus `json:"status"`
	Version           int             `json:"version"`
	SlotCount         int             `json:"slotCount"`
	CompletionPercent float64         `json:"completionPercent"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Summary projects a timetable for list responses.
func (t *Timetable) Summary() TimetableSummary {
	return TimetableSummary{
		ID:                t.ID,
		Name:              t.Name,
		AcademicYear:      t.AcademicYear,
		Term:              t.Term,
		Type:              t.Type,
		Status:            t.Status,
		Version:           t.Version,
		SlotCount:         len(t.Slots),
		CompletionPercent: t.Statistics.CompletionPercent,
		UpdatedAt:         t.UpdatedAt,
	}
}

// TimetableFilter narrows timetable listings. Empty fields match everything.
type TimetableFilter struct {
	AcademicYear string
	Term         string
	Type         TimetableType
	Status       TimetableStatus
}
