package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestBuildDemandExpandsDoublesAndSpreadsTeachers(t *testing.T) {
	math := subject("MATH", 4)
	math.DoublePeriodsPerWeek = 1
	idx := NewRosterIndex(models.Roster{
		Subjects: []models.Subject{math},
		Classes:  []models.SchoolClass{class("C1"), class("C2")},
		Teachers: []models.Teacher{teacher("T1", "MATH"), teacher("T2", "MATH")},
	})

	units, unplaced := buildDemand(idx, false, false)
	assert.Empty(t, unplaced)
	require.Len(t, units, 6)

	spans := map[string][]int{}
	teachers := map[string]string{}
	for _, u := range units {
		spans[u.ClassID] = append(spans[u.ClassID], u.Span)
		teachers[u.ClassID] = u.TeacherID
	}
	assert.Equal(t, []int{2, 1, 1}, spans["C1"])
	assert.NotEqual(t, teachers["C1"], teachers["C2"])

	examUnits, _ := buildDemand(idx, true, false)
	assert.Len(t, examUnits, 2)
}

func TestQualifiedTeachersAndClassTeacher(t *testing.T) {
	homeroom := subject("HOMEROOM", 1)
	homeroom.Category = models.SubjectCategoryGeneral
	c1 := class("C1")
	c1.ClassTeacherID = strPtr("T9")
	explicit := teacher("T3", "MATH")
	explicit.ClassIDs = []string{"C1"}
	other := teacher("T4", "MATH")
	other.ClassIDs = []string{"C2"}

	idx := NewRosterIndex(models.Roster{
		Subjects: []models.Subject{subject("MATH", 2), homeroom},
		Classes:  []models.SchoolClass{c1, class("C2")},
		Teachers: []models.Teacher{teacher("T1", "MATH"), explicit, other, teacher("T9")},
	})

	assert.Equal(t, []string{"T3", "T1"}, idx.QualifiedTeachers("C1", "MATH"))
	assert.Equal(t, []string{"T9"}, idx.QualifiedTeachers("C1", "HOMEROOM"))
	assert.Empty(t, idx.QualifiedTeachers("C2", "HOMEROOM"))
	assert.Equal(t, []string{"C1"}, idx.ClassesOfTeacher("T9"))
	assert.True(t, idx.CanTeach("T9", "C1", "HOMEROOM"))
	assert.False(t, idx.CanTeach("T9", "C1", "MATH"))
}

func TestOrderUnitsMostConstrainedFirst(t *testing.T) {
	units := []*DemandUnit{
		{ID: "a", Difficulty: models.DifficultyLow, Span: 1},
		{ID: "b", Difficulty: models.DifficultyLow, Span: 1, preferred: 3},
		{ID: "c", Difficulty: models.DifficultyLow, Span: 2},
		{ID: "d", Difficulty: models.DifficultyLow, Span: 1, RequiresLab: true},
		{ID: "e", Difficulty: models.DifficultyHigh, Span: 1},
		{ID: "f", Difficulty: models.DifficultyLow, Span: 1, blocked: 5},
	}
	orderUnits(units, false)

	ids := make([]string, len(units))
	for i, u := range units {
		ids[i] = u.ID
		assert.Equal(t, i, u.order)
	}
	assert.Equal(t, []string{"e", "d", "c", "b", "f", "a"}, ids)
}
