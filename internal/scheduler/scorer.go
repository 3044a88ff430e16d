package scheduler

import "github.com/noah-isme/sma-timetable-api/internal/models"

// ScoringWeights tune candidate scoring. ObjectiveBoost multiplies the term the
// selected OptimizeFor objective targets.
type ScoringWeights struct {
	PreferenceMatch     float64
	PreferenceMismatch  float64
	MorningDifficult    float64
	BackToBackDifficult float64
	TeacherOverload     float64
	WorkloadBalance     float64
	SubjectClustering   float64
	SoftViolation       float64
	CoreEarlyDay        float64
	ObjectiveBoost      float64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() ScoringWeights {
	return ScoringWeights{
		PreferenceMatch:     2.0,
		PreferenceMismatch:  1.0,
		MorningDifficult:    1.5,
		BackToBackDifficult: 3.0,
		TeacherOverload:     5.0,
		WorkloadBalance:     1.0,
		SubjectClustering:   2.0,
		SoftViolation:       4.0,
		CoreEarlyDay:        1.0,
		ObjectiveBoost:      3.0,
	}
}

// scoreTerms are the raw measurements of a candidate before weighting.
type scoreTerms struct {
	preferenceMatched  bool
	preferenceMismatch bool
	morning            float64
	backToBack         int
	overload           int
	balance            int
	clustering         int
	coreEarly          int
}

func (t scoreTerms) violations() int {
	n := t.backToBack
	if t.overload > 0 {
		n++
	}
	if t.preferenceMismatch {
		n++
	}
	if t.clustering > 0 {
		n++
	}
	return n
}

// combine folds measured terms into a single score. Higher is better.
func (w ScoringWeights) combine(objective models.OptimizeFor, t scoreTerms) float64 {
	preference := 0.0
	if t.preferenceMatched {
		preference += w.PreferenceMatch
	}
	if t.preferenceMismatch {
		preference -= w.PreferenceMismatch
	}
	balance := w.WorkloadBalance * float64(t.balance)
	clustering := w.SubjectClustering * float64(t.clustering)

	score := preference +
		w.MorningDifficult*t.morning -
		w.BackToBackDifficult*float64(t.backToBack) -
		w.TeacherOverload*float64(t.overload) -
		balance -
		clustering +
		w.CoreEarlyDay*float64(t.coreEarly)

	boost := w.ObjectiveBoost - 1
	switch objective {
	case models.OptimizeTeacherPreferences:
		score += boost * preference
	case models.OptimizeSubjectDistribution:
		score -= boost * clustering
	case models.OptimizeMinimizeConflicts:
		score -= w.SoftViolation * float64(t.violations())
	default:
		score -= boost * balance
	}
	return score
}
