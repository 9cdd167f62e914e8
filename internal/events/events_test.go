package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
)

func TestSubject(t *testing.T) {
	id := uuid.MustParse("0190f1a2-0000-7000-8000-000000000001")
	e := AssessmentCompleted{OrderID: id, AssessmentID: uuid.New()}

	want := "screening.assessment.completed." + id.String()
	if got := Subject("screening", e); got != want {
		t.Fatalf("Subject = %q, want %q", got, want)
	}
	if got := Wildcard("screening", KindTokenIssued); got != "screening.token.issued.*" {
		t.Fatalf("Wildcard = %q", got)
	}
}

func TestAssessmentCompleted_JSON(t *testing.T) {
	e := AssessmentCompleted{
		OrderID:        uuid.New(),
		AssessmentType: repo.TypeComprehensive,
		Results: []repo.InstrumentResult{
			{Instrument: repo.TypePHQ9, Score: 12, Severity: repo.SeverityModerate},
			{Instrument: repo.TypeGAD7, Score: 3, Severity: repo.SeverityMinimal},
		},
		SuicideRisk: 2,
	}
	data, err := json.Marshal(e)
	if err != nil {
		t.Fatal(err)
	}
	var back AssessmentCompleted
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.SuicideRisk != 2 || len(back.Results) != 2 || back.Results[0].Score != 12 {
		t.Fatalf("round trip = %+v", back)
	}
}

func TestMemoryPublisher(t *testing.T) {
	p := &MemoryPublisher{}
	_ = p.Publish(context.Background(), TokenIssued{OrderID: uuid.New()})
	p.Err = errors.New("down")
	if err := p.Publish(context.Background(), TokenIssued{OrderID: uuid.New()}); err == nil {
		t.Fatal("expected error")
	}
	if n := len(p.Events()); n != 2 {
		t.Fatalf("events = %d, want 2", n)
	}
}
