package models

// OptimizeFor selects the scoring objective used by the generator.
type OptimizeFor string

const (
	OptimizeBalancedWorkload    OptimizeFor = "BALANCED_WORKLOAD"
	OptimizeTeacherPreferences  OptimizeFor = "TEACHER_PREFERENCES"
	OptimizeSubjectDistribution OptimizeFor = "SUBJECT_DISTRIBUTION"
	OptimizeMinimizeConflicts   OptimizeFor = "MINIMIZE_CONFLICTS"
)

// TeacherUnavailability blocks a teacher on a day. Empty PeriodIDs blocks the whole day.
type TeacherUnavailability struct {
	TeacherID string   `json:"teacherId" yaml:"teacher" validate:"required"`
	Day       Weekday  `json:"day" yaml:"day" validate:"required"`
	PeriodIDs []string `json:"periodIds,omitempty" yaml:"periods,omitempty"`
}

// Covers reports whether the window blocks the coordinate.
func (u TeacherUnavailability) Covers(day Weekday, periodID string) bool {
	if u.Day != day {
		return false
	}
	if len(u.PeriodIDs) == 0 {
		return true
	}
	for _, id := range u.PeriodIDs {
		if id == periodID {
			return true
		}
	}
	return false
}

// SubjectPreference is a soft day/period preference for a subject.
type SubjectPreference struct {
	SubjectID string    `json:"subjectId" yaml:"subject" validate:"required"`
	ClassID   string    `json:"classId,omitempty" yaml:"class,omitempty"`
	Days      []Weekday `json:"days,omitempty" yaml:"days,omitempty"`
	PeriodIDs []string  `json:"periodIds,omitempty" yaml:"periods,omitempty"`
}

// ClassAvoidedSlot is a coordinate a class must not be scheduled at.
type ClassAvoidedSlot struct {
	ClassID  string  `json:"classId" yaml:"class" validate:"required"`
	Day      Weekday `json:"day" yaml:"day" validate:"required"`
	PeriodID string  `json:"periodId,omitempty" yaml:"period,omitempty"`
}

// ExamSettings only apply when TimetableType is EXAM.
type ExamSettings struct {
	MaxExamsPerDay      int    `json:"maxExamsPerDay" yaml:"maxExamsPerDay" validate:"gte=0"`
	MinTimeBetweenExams int    `json:"minTimeBetweenExams" yaml:"minTimeBetweenExams" validate:"gte=0"`
	PrioritizeCore      bool   `json:"prioritizeCore" yaml:"prioritizeCore"`
	ExamType            string `json:"examType,omitempty" yaml:"examType,omitempty"`
}

// GenerationSettings is the generator input beyond the roster and calendar.
type GenerationSettings struct {
	TimetableType              TimetableType           `json:"timetableType" yaml:"timetableType" validate:"omitempty,oneof=TEACHING EXAM"`
	OptimizeFor                OptimizeFor             `json:"optimizeFor" yaml:"optimizeFor" validate:"omitempty,oneof=BALANCED_WORKLOAD TEACHER_PREFERENCES SUBJECT_DISTRIBUTION MINIMIZE_CONFLICTS"`
	MaxPeriodsPerDayPerTeacher int                     `json:"maxPeriodsPerDayPerTeacher" yaml:"maxPeriodsPerDayPerTeacher" validate:"gte=0"`
	PreferMorningForDifficult  bool                    `json:"preferMorningForDifficult" yaml:"preferMorningForDifficult"`
	AllowBackToBackDifficult   bool                    `json:"allowBackToBackDifficult" yaml:"allowBackToBackDifficult"`
	IncludeSaturday            bool                    `json:"includeSaturday" yaml:"includeSaturday"`
	TeacherUnavailability      []TeacherUnavailability `json:"teacherUnavailability" yaml:"teacherUnavailability" validate:"dive"`
	SubjectPreferences         []SubjectPreference     `json:"subjectPreferences" yaml:"subjectPreferences" validate:"dive"`
	ClassAvoidedSlots          []ClassAvoidedSlot      `json:"classAvoidedSlots" yaml:"classAvoidedSlots" validate:"dive"`
	Exam                       ExamSettings            `json:"exam" yaml:"exam"`
}
