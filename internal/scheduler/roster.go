package scheduler

import (
	"sort"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// RosterIndex provides keyed lookups over read-only roster data, including the
// derived teacher to class-teacher-of index.
type RosterIndex struct {
	roster         models.Roster
	subjects       map[string]models.Subject
	classes        map[string]models.SchoolClass
	teachers       map[string]models.Teacher
	rooms          map[string]models.Room
	classTeacherOf map[string][]string
}

// NewRosterIndex indexes the roster. Later duplicates overwrite earlier ones.
func NewRosterIndex(roster models.Roster) *RosterIndex {
	idx := &RosterIndex{
		roster:         roster,
		subjects:       make(map[string]models.Subject, len(roster.Subjects)),
		classes:        make(map[string]models.SchoolClass, len(roster.Classes)),
		teachers:       make(map[string]models.Teacher, len(roster.Teachers)),
		rooms:          make(map[string]models.Room, len(roster.Rooms)),
		classTeacherOf: make(map[string][]string),
	}
	for _, subject := range roster.Subjects {
		idx.subjects[subject.ID] = subject
	}
	for _, class := range roster.Classes {
		idx.classes[class.ID] = class
		if class.ClassTeacherID != nil && *class.ClassTeacherID != "" {
			idx.classTeacherOf[*class.ClassTeacherID] = append(idx.classTeacherOf[*class.ClassTeacherID], class.ID)
		}
	}
	for _, teacher := range roster.Teachers {
		idx.teachers[teacher.ID] = teacher
	}
	for _, room := range roster.Rooms {
		idx.rooms[room.ID] = room
	}
	for teacherID := range idx.classTeacherOf {
		sort.Strings(idx.classTeacherOf[teacherID])
	}
	return idx
}

// Roster returns the underlying roster.
func (r *RosterIndex) Roster() models.Roster {
	return r.roster
}

func (r *RosterIndex) Subject(id string) (models.Subject, bool) {
	s, ok := r.subjects[id]
	return s, ok
}

func (r *RosterIndex) Class(id string) (models.SchoolClass, bool) {
	c, ok := r.classes[id]
	return c, ok
}

func (r *RosterIndex) Teacher(id string) (models.Teacher, bool) {
	t, ok := r.teachers[id]
	return t, ok
}

func (r *RosterIndex) Room(id string) (models.Room, bool) {
	room, ok := r.rooms[id]
	return room, ok
}

// ClassesOfTeacher lists the classes for which the teacher is class teacher.
func (r *RosterIndex) ClassesOfTeacher(teacherID string) []string {
	return append([]string(nil), r.classTeacherOf[teacherID]...)
}

// ClassIDs returns every class id in stable order.
func (r *RosterIndex) ClassIDs() []string {
	ids := make([]string, 0, len(r.classes))
	for id := range r.classes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SubjectsForClass returns the subjects offered at the class's form level, ordered by id.
func (r *RosterIndex) SubjectsForClass(classID string) []models.Subject {
	class, ok := r.classes[classID]
	if !ok {
		return nil
	}
	var out []models.Subject
	for _, subject := range r.subjects {
		if subject.OffersForm(class.FormLevel) {
			out = append(out, subject)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CanTeach checks the roster rule for a slot: the subject is offered to the class and the
// teacher is assigned to it, or the teacher is the class teacher for a GENERAL period.
func (r *RosterIndex) CanTeach(teacherID, classID, subjectID string) bool {
	class, ok := r.classes[classID]
	if !ok {
		return false
	}
	subject, ok := r.subjects[subjectID]
	if !ok || !subject.OffersForm(class.FormLevel) {
		return false
	}
	if teacher, ok := r.teachers[teacherID]; ok && teacher.Teaches(subjectID) && teacher.Covers(classID) {
		return true
	}
	return subject.Category == models.SubjectCategoryGeneral &&
		class.ClassTeacherID != nil && *class.ClassTeacherID == teacherID
}

// QualifiedTeachers lists teachers allowed to take the class for the subject.
// Teachers naming the class explicitly come first, then the rest by id.
func (r *RosterIndex) QualifiedTeachers(classID, subjectID string) []string {
	type candidate struct {
		id       string
		explicit bool
	}
	var list []candidate
	for id, teacher := range r.teachers {
		if !r.CanTeach(id, classID, subjectID) {
			continue
		}
		explicit := false
		for _, c := range teacher.ClassIDs {
			if c == classID {
				explicit = true
				break
			}
		}
		list = append(list, candidate{id: id, explicit: explicit})
	}
	if class, ok := r.classes[classID]; ok && class.ClassTeacherID != nil {
		ct := *class.ClassTeacherID
		if _, known := r.teachers[ct]; !known && r.CanTeach(ct, classID, subjectID) {
			list = append(list, candidate{id: ct, explicit: true})
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].explicit != list[j].explicit {
			return list[i].explicit
		}
		return list[i].id < list[j].id
	})
	out := make([]string, len(list))
	for i, c := range list {
		out[i] = c.id
	}
	return out
}

// LabRooms returns lab rooms ordered by id.
func (r *RosterIndex) LabRooms() []models.Room {
	var out []models.Room
	for _, room := range r.rooms {
		if room.IsLab {
			out = append(out, room)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RequiredPeriods is the weekly demand across all classes.
func (r *RosterIndex) RequiredPeriods() int {
	total := 0
	for _, classID := range r.ClassIDs() {
		for _, subject := range r.SubjectsForClass(classID) {
			total += subject.PeriodsPerWeek
		}
	}
	return total
}

// RequiredExams is one sitting per class and offered subject.
func (r *RosterIndex) RequiredExams() int {
	total := 0
	for _, classID := range r.ClassIDs() {
		total += len(r.SubjectsForClass(classID))
	}
	return total
}
