package models

import "github.com/lib/pq"

// Teacher lists the subjects a teacher may teach and, optionally, the classes they cover.
type Teacher struct {
	ID         string         `db:"id" json:"id" yaml:"id"`
	Name       string         `db:"full_name" json:"name" yaml:"name"`
	SubjectIDs pq.StringArray `db:"subject_ids" json:"subjectIds" yaml:"subjects"`
	ClassIDs   pq.StringArray `db:"class_ids" json:"classIds" yaml:"classes"`
}

// Teaches reports whether the teacher is assigned to the subject.
func (t Teacher) Teaches(subjectID string) bool {
	for _, id := range t.SubjectIDs {
		if id == subjectID {
			return true
		}
	}
	return false
}

// Covers reports whether the teacher may take the class. An empty list means any class.
func (t Teacher) Covers(classID string) bool {
	if len(t.ClassIDs) == 0 {
		return true
	}
	for _, id := range t.ClassIDs {
		if id == classID {
			return true
		}
	}
	return false
}

// Roster bundles the read-only reference data handed to the scheduler.
type Roster struct {
	Subjects []Subject     `json:"subjects" yaml:"subjects"`
	Classes  []SchoolClass `json:"classes" yaml:"classes"`
	Teachers []Teacher     `json:"teachers" yaml:"teachers"`
	Rooms    []Room        `json:"rooms" yaml:"rooms"`
}
