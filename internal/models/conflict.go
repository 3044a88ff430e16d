package models

import (
	"sort"
	"strings"
)

// ConflictType enumerates the conflict taxonomy reported by the detector.
type ConflictType string

const (
	ConflictTeacherDoubleBooked ConflictType = "TEACHER_DOUBLE_BOOKED"
	ConflictClassDoubleBooked   ConflictType = "CLASS_DOUBLE_BOOKED"
	ConflictRoomDoubleBooked    ConflictType = "ROOM_DOUBLE_BOOKED"
	ConflictSubjectOverload     ConflictType = "SUBJECT_OVERLOAD"
	ConflictTeacherOverload     ConflictType = "TEACHER_OVERLOAD"
)

// Severity ranks conflicts; CRITICAL blocks activation.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
	SeverityInfo     Severity = "INFO"
)

// Rank orders severities with CRITICAL first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeverityInfo:
		return 2
	default:
		return 3
	}
}

// Conflict is a derived violation over a timetable's slots.
type Conflict struct {
	ID          string       `json:"id"`
	Type        ConflictType `json:"type"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	SlotIDs     []string     `json:"slotIds"`
	Resolved    bool         `json:"resolved"`
	Scope       string       `json:"scope,omitempty"`
}

// Identity is type plus sorted slot ids. Scope only disambiguates empty slot sets.
func (c Conflict) Identity() string {
	ids := append([]string(nil), c.SlotIDs...)
	sort.Strings(ids)
	key := string(c.Type) + "|" + strings.Join(ids, ",")
	if len(ids) == 0 && c.Scope != "" {
		key += "|" + c.Scope
	}
	return key
}

// Blocking reports whether the conflict prevents activation.
func (c Conflict) Blocking() bool {
	return c.Severity == SeverityCritical && !c.Resolved
}
