package models

// Invariant names carried by structural conflict errors.
const (
	InvariantClassCoordinate    = "CLASS_COORDINATE"
	InvariantTeacherCoordinate  = "TEACHER_COORDINATE"
	InvariantRoomCoordinate     = "ROOM_COORDINATE"
	InvariantTeachingPeriod     = "TEACHING_PERIOD"
	InvariantRoster             = "ROSTER"
	InvariantDoublePeriod       = "DOUBLE_PERIOD"
	InvariantUnresolvedCritical = "UNRESOLVED_CRITICAL"
	InvariantSingleActive       = "SINGLE_ACTIVE"
)

// ScheduleConflict describes an existing slot that collides with a requested placement.
type ScheduleConflict struct {
	SlotID    string  `json:"slotId,omitempty"`
	ClassID   string  `json:"classId,omitempty"`
	SubjectID string  `json:"subjectId,omitempty"`
	TeacherID string  `json:"teacherId,omitempty"`
	Day       Weekday `json:"day,omitempty"`
	PeriodID  string  `json:"periodId,omitempty"`
	RoomID    string  `json:"roomId,omitempty"`
	Dimension string  `json:"dimension"`
}

// ScheduleConflictError is returned when a mutation would break a store invariant.
type ScheduleConflictError struct {
	Type      string             `json:"type"`
	Invariant string             `json:"invariant"`
	Message   string             `json:"message"`
	SlotIDs   []string           `json:"slotIds,omitempty"`
	Conflict  ScheduleConflict   `json:"conflict"`
	Errors    []ScheduleConflict `json:"errors,omitempty"`
}

// Error implements the error interface for conflict errors.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
