package intake

import (
	"slices"

	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
)

// AnswerSet maps question id to the respondent's score.
type AnswerSet map[int]int

// Answer is one accepted response, tagged with its owning instrument.
type Answer struct {
	QuestionID int
	Instrument repo.AssessmentType
	OrderNum   int
	SelfHarm   bool
	Score      int
}

// ValidatedAnswers is a complete, in-range answer set for one order. It can
// only be built by Validate.
type ValidatedAnswers struct {
	Type    repo.AssessmentType
	answers []Answer
}

// All returns the answers in questionnaire order.
func (v *ValidatedAnswers) All() []Answer {
	return slices.Clone(v.answers)
}

// For returns the answers belonging to instrument.
func (v *ValidatedAnswers) For(instrument repo.AssessmentType) []Answer {
	return lo.Filter(v.answers, func(a Answer, _ int) bool { return a.Instrument == instrument })
}

// Responses converts the answers into persisted response rows.
func (v *ValidatedAnswers) Responses() []repo.AssessmentResponse {
	return lo.Map(v.answers, func(a Answer, _ int) repo.AssessmentResponse {
		return repo.AssessmentResponse{
			QuestionID:     a.QuestionID,
			QuestionOrder:  a.OrderNum,
			AssessmentType: a.Instrument,
			Score:          a.Score,
		}
	})
}

// Validate checks set against the questions administered for t. Checks run
// in a fixed order: unknown ids, then out-of-range scores, then missing
// answers. Nothing partial is ever returned.
func Validate(t repo.AssessmentType, questions []repo.Question, set AnswerSet) (*ValidatedAnswers, error) {
	byID := lo.KeyBy(questions, func(q repo.Question) int { return q.ID })

	var unknown []int
	for id := range set {
		if _, ok := byID[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, &UnknownQuestionError{QuestionIDs: unknown}
	}

	ids := lo.Keys(set)
	slices.Sort(ids)
	for _, id := range ids {
		q, v := byID[id], set[id]
		if v < q.MinScore || v > q.MaxScore {
			return nil, &ScoreOutOfRangeError{QuestionID: id, Value: v, Min: q.MinScore, Max: q.MaxScore}
		}
	}

	var missing []int
	answers := make([]Answer, 0, len(questions))
	for _, q := range questions {
		v, ok := set[q.ID]
		if !ok {
			missing = append(missing, q.ID)
			continue
		}
		answers = append(answers, Answer{
			QuestionID: q.ID,
			Instrument: q.AssessmentType,
			OrderNum:   q.OrderNum,
			SelfHarm:   q.SelfHarm,
			Score:      v,
		})
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, &IncompleteSubmissionError{Missing: missing}
	}

	return &ValidatedAnswers{Type: t, answers: answers}, nil
}
