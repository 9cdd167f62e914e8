package email

import (
	"fmt"
	"strings"
)

// ResultLine is one scored instrument as shown to the clinician.
type ResultLine struct {
	Instrument string
	Score      int
	MaxScore   int
	Label      string
}

// CompletionNoticeData feeds the doctor-facing completion email. It carries
// no patient name and no answers; the clinician opens the dashboard for those.
type CompletionNoticeData struct {
	DoctorName   string
	DoctorEmail  string
	AssessmentID string
	Results      []ResultLine
	SuicideRisk  int
	DashboardURL string
}

// BuildCompletionNotice creates the email sent to the ordering doctor when a
// patient submits an assessment. A non-zero self-harm score is flagged in the
// subject line.
func BuildCompletionNotice(data CompletionNoticeData) Message {
	name := data.DoctorName
	if name == "" {
		name = "Doctor"
	}

	subject := "Screening assessment completed"
	if data.SuicideRisk > 0 {
		subject = fmt.Sprintf("[URGENT: self-harm item %d/3] %s", data.SuicideRisk, subject)
	}

	link := strings.TrimRight(data.DashboardURL, "/") + "/assessments/" + data.AssessmentID

	var text, rows strings.Builder
	for _, r := range data.Results {
		fmt.Fprintf(&text, "  %s: %d/%d (%s)\n", r.Instrument, r.Score, r.MaxScore, r.Label)
		fmt.Fprintf(&rows, `<tr><td style="padding: 4px 12px;">%s</td><td style="padding: 4px 12px;">%d/%d</td><td style="padding: 4px 12px;">%s</td></tr>`,
			r.Instrument, r.Score, r.MaxScore, r.Label)
	}

	riskText, riskHTML := "", ""
	if data.SuicideRisk > 0 {
		riskText = fmt.Sprintf("\nThe patient scored %d of 3 on the self-harm item. Please review promptly.\n", data.SuicideRisk)
		riskHTML = fmt.Sprintf(`<p style="background-color: #fee2e2; color: #991b1b; padding: 10px 15px; border-radius: 4px;"><strong>The patient scored %d of 3 on the self-harm item. Please review promptly.</strong></p>`, data.SuicideRisk)
	}

	textBody := fmt.Sprintf(`Hi %s,

A patient has completed a screening assessment you ordered.

%s%s
Review it here:
%s
`, name, text.String(), riskText, link)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="color: #2563eb;">Hi %s,</h2>
    <p>A patient has completed a screening assessment you ordered.</p>
    %s
    <table style="border-collapse: collapse; margin: 20px 0;">%s</table>
    <p style="text-align: center; margin: 30px 0;">
        <a href="%s" style="background-color: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; display: inline-block;">Open assessment</a>
    </p>
</body>
</html>`, name, riskHTML, rows.String(), link)

	return Message{
		To:       []string{data.DoctorEmail},
		Subject:  subject,
		TextBody: textBody,
		HTMLBody: htmlBody,
		Urgent:   data.SuicideRisk > 0,
	}
}
