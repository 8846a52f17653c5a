package evaluation

import (
	"github.com/ameistad/carenote/internal/db"
)

const (
	Pass = "O"
	Fail = "X"
)

// OXEvaluation is the three-criteria verdict the model returns for a note.
type OXEvaluation struct {
	OERFidelity string `json:"oer_fidelity"`
	Specificity string `json:"specificity"`
	Grammar     string `json:"grammar"`
}

func (e OXEvaluation) isEmpty() bool {
	return e.OERFidelity == "" && e.Specificity == "" && e.Grammar == ""
}

func (e OXEvaluation) passes() int {
	n := 0
	for _, v := range []string{e.OERFidelity, e.Specificity, e.Grammar} {
		if v == Pass {
			n++
		}
	}
	return n
}

// ScoredEvaluation is an OXEvaluation with its score and grade.
type ScoredEvaluation struct {
	OXEvaluation
	Score int    `json:"score"`
	Grade string `json:"grade"`
}

// ConvertOXToScore scores an evaluation by its number of O marks: 3 is 우수, 2 is 평균,
// anything less is 개선 with a score of 1. An empty evaluation stays empty.
func ConvertOXToScore(e OXEvaluation) ScoredEvaluation {
	if e.isEmpty() {
		return ScoredEvaluation{}
	}
	scored := ScoredEvaluation{OXEvaluation: e, Score: e.passes()}
	switch {
	case scored.Score >= 3:
		scored.Grade = db.GradeExcellent
	case scored.Score == 2:
		scored.Grade = db.GradeAverage
	default:
		scored.Score = 1
		scored.Grade = db.GradeImprove
	}
	return scored
}

// NumericEvaluation carries 0-100 scores from numeric graders.
type NumericEvaluation struct {
	ConsistencyScore float64 `json:"consistency_score"`
	GrammarScore     float64 `json:"grammar_score"`
	SpecificityScore float64 `json:"specificity_score"`
}

// CalculateGrade grades the average of the three numeric scores.
func CalculateGrade(e *NumericEvaluation) string {
	if e == nil {
		return db.GradeNone
	}
	avg := (e.ConsistencyScore + e.GrammarScore + e.SpecificityScore) / 3
	switch {
	case avg >= 90:
		return db.GradeExcellent
	case avg >= 75:
		return db.GradeAverage
	default:
		return db.GradeImprove
	}
}

// EmptyEvaluation is stored for notes that were not evaluated.
func EmptyEvaluation() ScoredEvaluation {
	return ScoredEvaluation{
		OXEvaluation: OXEvaluation{OERFidelity: Fail, Specificity: Fail, Grammar: Fail},
		Grade:        db.GradeNone,
	}
}

// baselineEvaluation is stored for nursing and recovery notes, which are not sent to the model.
func baselineEvaluation() ScoredEvaluation {
	return ScoredEvaluation{
		OXEvaluation: OXEvaluation{OERFidelity: Pass, Specificity: Pass, Grammar: Fail},
		Score:        2,
		Grade:        db.GradeAverage,
	}
}
