package scoring

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/intake"
)

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrScoreOutOfBand    = errors.New("score outside instrument range")
)

// Classification is the severity band a raw score falls into.
type Classification struct {
	Level       repo.Severity
	Label       string
	Description string
}

// Outcome is the full scored result of a validated submission.
type Outcome struct {
	Results     []repo.InstrumentResult
	SuicideRisk int
}

// Score sums the answers belonging to instrument. Answers of other
// instruments in the same set are ignored.
func Score(instrument repo.AssessmentType, v *intake.ValidatedAnswers) int {
	return lo.SumBy(v.For(instrument), func(a intake.Answer) int { return a.Score })
}

// Classify maps a raw score to its fixed severity band.
func Classify(instrument repo.AssessmentType, score int) (Classification, error) {
	b, err := band(instrument, score)
	if err != nil {
		return Classification{}, err
	}
	return Classification{Level: b.Level, Label: b.Label, Description: b.Description}, nil
}

// Recommend returns the follow-up text for a severity level of instrument.
// Levels the instrument does not publish return "".
func Recommend(instrument repo.AssessmentType, level repo.Severity) string {
	b, ok := lo.Find(bandsFor(instrument), func(b Band) bool { return b.Level == level })
	if !ok {
		return ""
	}
	return b.Recommendation
}

// SuicideRisk is the score of the designated self-harm item, or 0 when the
// administered instruments have none. It never looks at totals.
func SuicideRisk(v *intake.ValidatedAnswers) int {
	a, ok := lo.Find(v.All(), func(a intake.Answer) bool { return a.SelfHarm })
	if !ok {
		return 0
	}
	return a.Score
}

// Evaluate scores and classifies every instrument of v independently.
func Evaluate(v *intake.ValidatedAnswers) (*Outcome, error) {
	instruments := v.Type.Instruments()
	if len(instruments) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInstrument, v.Type)
	}

	out := &Outcome{SuicideRisk: SuicideRisk(v)}
	for _, inst := range instruments {
		score := Score(inst, v)
		c, err := Classify(inst, score)
		if err != nil {
			return nil, err
		}
		out.Results = append(out.Results, repo.InstrumentResult{
			Instrument:     inst,
			Score:          score,
			Severity:       c.Level,
			Label:          c.Label,
			Recommendation: Recommend(inst, c.Level),
		})
	}
	return out, nil
}

func band(instrument repo.AssessmentType, score int) (Band, error) {
	bands := bandsFor(instrument)
	if bands == nil {
		return Band{}, fmt.Errorf("%w: %q", ErrUnknownInstrument, instrument)
	}
	for _, b := range bands {
		if score >= b.Min && score <= b.Max {
			return b, nil
		}
	}
	return Band{}, fmt.Errorf("%w: %s score %d", ErrScoreOutOfBand, instrument, score)
}
