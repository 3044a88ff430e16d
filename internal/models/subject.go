package models

import "github.com/lib/pq"

// DifficultyLevel drives placement order and morning preference.
type DifficultyLevel string

const (
	DifficultyLow    DifficultyLevel = "LOW"
	DifficultyMedium DifficultyLevel = "MEDIUM"
	DifficultyHigh   DifficultyLevel = "HIGH"
)

// SubjectCategory groups subjects; CORE subjects are favoured in exam mode.
type SubjectCategory string

const (
	SubjectCategoryCore            SubjectCategory = "CORE"
	SubjectCategoryElective        SubjectCategory = "ELECTIVE"
	SubjectCategoryExtracurricular SubjectCategory = "EXTRACURRICULAR"
	// SubjectCategoryGeneral covers non-subject-specific periods the class teacher may take.
	SubjectCategoryGeneral SubjectCategory = "GENERAL"
)

// Subject is roster reference data consumed by the scheduler.
type Subject struct {
	ID                   string          `db:"id" json:"id" yaml:"id"`
	Code                 string          `db:"code" json:"code" yaml:"code"`
	Name                 string          `db:"name" json:"name" yaml:"name"`
	PeriodsPerWeek       int             `db:"periods_per_week" json:"periodsPerWeek" yaml:"periodsPerWeek"`
	DoublePeriodsPerWeek int             `db:"double_periods_per_week" json:"doublePeriodsPerWeek" yaml:"doublePeriodsPerWeek"`
	DifficultyLevel      DifficultyLevel `db:"difficulty_level" json:"difficultyLevel" yaml:"difficulty"`
	RequiresLab          bool            `db:"requires_lab" json:"requiresLab" yaml:"requiresLab"`
	Category             SubjectCategory `db:"category" json:"category" yaml:"category"`
	FormLevels           pq.StringArray  `db:"form_levels" json:"formLevels" yaml:"formLevels"`
	PreferredPeriods     pq.StringArray  `db:"preferred_periods" json:"preferredPeriods" yaml:"preferredPeriods"`
}

// OffersForm reports whether the subject is taught at the given form level.
func (s Subject) OffersForm(formLevel string) bool {
	if len(s.FormLevels) == 0 {
		return true
	}
	for _, level := range s.FormLevels {
		if level == formLevel {
			return true
		}
	}
	return false
}
