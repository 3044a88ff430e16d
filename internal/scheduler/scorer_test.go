package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-timetable-api/internal/models"
)

func TestCombineEmphasisesObjective(t *testing.T) {
	w := DefaultWeights()
	clustered := scoreTerms{clustering: 1}

	balanced := w.combine(models.OptimizeBalancedWorkload, clustered)
	distribution := w.combine(models.OptimizeSubjectDistribution, clustered)
	assert.Less(t, distribution, balanced)

	matched := scoreTerms{preferenceMatched: true}
	assert.Greater(t,
		w.combine(models.OptimizeTeacherPreferences, matched),
		w.combine(models.OptimizeBalancedWorkload, matched))

	loaded := scoreTerms{balance: 2}
	assert.Less(t,
		w.combine(models.OptimizeBalancedWorkload, loaded),
		w.combine(models.OptimizeSubjectDistribution, loaded))
}

func TestCombineMinimizeConflictsCountsViolations(t *testing.T) {
	w := DefaultWeights()
	terms := scoreTerms{backToBack: 1, overload: 2, preferenceMismatch: true, clustering: 1}
	assert.Equal(t, 4, terms.violations())

	clean := w.combine(models.OptimizeMinimizeConflicts, scoreTerms{})
	dirty := w.combine(models.OptimizeMinimizeConflicts, terms)
	assert.Equal(t, 0.0, clean)
	assert.Less(t, dirty, -4*w.SoftViolation)
}

func TestCombineMorningAndCoreBias(t *testing.T) {
	w := DefaultWeights()
	assert.Greater(t, w.combine("", scoreTerms{morning: 1}), w.combine("", scoreTerms{morning: -1}))
	assert.Greater(t, w.combine("", scoreTerms{coreEarly: 3}), w.combine("", scoreTerms{coreEarly: 0}))
}
