package scoring

import "github.com/Alijeyrad/simorq_screening/internal/repo"

// Band is one row of an instrument's published severity table. Bounds are
// inclusive.
type Band struct {
	Min, Max       int
	Level          repo.Severity
	Label          string
	Description    string
	Recommendation string
}

// Kroenke, Spitzer & Williams (2001).
var phq9Bands = []Band{
	{0, 4, repo.SeverityMinimal, "Minimal depression",
		"Symptoms are minimal or absent.",
		"No treatment indicated. Rescreen at the next routine visit."},
	{5, 9, repo.SeverityMild, "Mild depression",
		"Mild depressive symptoms.",
		"Watchful waiting. Repeat the PHQ-9 at follow-up."},
	{10, 14, repo.SeverityModerate, "Moderate depression",
		"Moderate depressive symptoms.",
		"Treatment plan indicated. Consider counseling, follow-up and/or pharmacotherapy."},
	{15, 19, repo.SeverityModeratelySevere, "Moderately severe depression",
		"Moderately severe depressive symptoms.",
		"Active treatment with pharmacotherapy and/or psychotherapy."},
	{20, 27, repo.SeveritySevere, "Severe depression",
		"Severe depressive symptoms.",
		"Immediate initiation of pharmacotherapy and, if impairment is severe or response poor, expedited referral to a mental health specialist."},
}

// Spitzer, Kroenke, Williams & Löwe (2006). GAD-7 publishes four bands.
var gad7Bands = []Band{
	{0, 4, repo.SeverityMinimal, "Minimal anxiety",
		"Symptoms are minimal or absent.",
		"No treatment indicated. Rescreen at the next routine visit."},
	{5, 9, repo.SeverityMild, "Mild anxiety",
		"Mild anxiety symptoms.",
		"Monitor. Repeat the GAD-7 at follow-up."},
	{10, 14, repo.SeverityModerate, "Moderate anxiety",
		"Moderate anxiety symptoms; probable anxiety disorder.",
		"Further clinical evaluation. Consider psychotherapy and/or pharmacotherapy."},
	{15, 21, repo.SeveritySevere, "Severe anxiety",
		"Severe anxiety symptoms.",
		"Active treatment warranted with psychotherapy and/or pharmacotherapy."},
}

func bandsFor(instrument repo.AssessmentType) []Band {
	switch instrument {
	case repo.TypePHQ9:
		return phq9Bands
	case repo.TypeGAD7:
		return gad7Bands
	}
	return nil
}

// MaxScore is the top of the instrument's published range.
func MaxScore(instrument repo.AssessmentType) int {
	b := bandsFor(instrument)
	if len(b) == 0 {
		return 0
	}
	return b[len(b)-1].Max
}
