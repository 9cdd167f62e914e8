package catalog

import "github.com/Alijeyrad/simorq_screening/internal/repo"

// Item ids are global across instruments: PHQ-9 owns 1..9, GAD-7 owns 10..16.
const (
	PHQ9SelfHarmItem = 9
	gad7FirstID      = 10
)

var phq9Items = []string{
	"Little interest or pleasure in doing things",
	"Feeling down, depressed, or hopeless",
	"Trouble falling or staying asleep, or sleeping too much",
	"Feeling tired or having little energy",
	"Poor appetite or overeating",
	"Feeling bad about yourself, or that you are a failure or have let yourself or your family down",
	"Trouble concentrating on things, such as reading the newspaper or watching television",
	"Moving or speaking so slowly that other people could have noticed, or the opposite, being so fidgety or restless that you have been moving around a lot more than usual",
	"Thoughts that you would be better off dead, or of hurting yourself in some way",
}

var gad7Items = []string{
	"Feeling nervous, anxious, or on edge",
	"Not being able to stop or control worrying",
	"Worrying too much about different things",
	"Trouble relaxing",
	"Being so restless that it is hard to sit still",
	"Becoming easily annoyed or irritable",
	"Feeling afraid, as if something awful might happen",
}

// Standard returns the published PHQ-9 and GAD-7 items, each scored 0..3.
func Standard() []repo.Question {
	out := make([]repo.Question, 0, len(phq9Items)+len(gad7Items))
	for i, text := range phq9Items {
		out = append(out, repo.Question{
			ID:             i + 1,
			AssessmentType: repo.TypePHQ9,
			OrderNum:       i + 1,
			Text:           text,
			MinScore:       0,
			MaxScore:       3,
			SelfHarm:       i+1 == PHQ9SelfHarmItem,
		})
	}
	for i, text := range gad7Items {
		out = append(out, repo.Question{
			ID:             gad7FirstID + i,
			AssessmentType: repo.TypeGAD7,
			OrderNum:       i + 1,
			Text:           text,
			MinScore:       0,
			MaxScore:       3,
		})
	}
	return out
}
