package models

// SchoolClass is a teaching group. The class teacher link is one-directional.
type SchoolClass struct {
	ID             string  `db:"id" json:"id" yaml:"id"`
	Name           string  `db:"name" json:"name" yaml:"name"`
	FormLevel      string  `db:"form_level" json:"formLevel" yaml:"formLevel"`
	ClassTeacherID *string `db:"class_teacher_id" json:"classTeacherId,omitempty" yaml:"classTeacher,omitempty"`
}

// Room is a bookable space; labs host RequiresLab subjects.
type Room struct {
	ID       string `db:"id" json:"id" yaml:"id"`
	Name     string `db:"name" json:"name" yaml:"name"`
	IsLab    bool   `db:"is_lab" json:"isLab" yaml:"lab"`
	Capacity int    `db:"capacity" json:"capacity" yaml:"capacity"`
}
