package audit

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

func TestNewEntry_FromContext(t *testing.T) {
	ctx := reqctx.WithActor(context.Background(), reqctx.Actor{ID: "d-7", Role: "clinician"})
	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: "req-1", ClientIP: "10.0.0.1", UserAgent: "ua"})

	pid := uuid.New()
	e := NewEntry(ctx, pid, ResourceAssessment, "a-1", ActionRead)

	if e.Actor.ID != "d-7" || e.Actor.Role != "clinician" {
		t.Errorf("actor = %+v", e.Actor)
	}
	if e.RequestID != "req-1" || e.IPAddress != "10.0.0.1" || e.UserAgent != "ua" {
		t.Errorf("meta = %+v", e)
	}
	if e.PatientID != pid || e.AccessedAt.IsZero() || e.ID == uuid.Nil {
		t.Errorf("entry = %+v", e)
	}
}

func TestNewEntry_Anonymous(t *testing.T) {
	e := NewEntry(context.Background(), uuid.New(), ResourceAssessment, "a-1", ActionRead)
	if e.Actor.ID != "anonymous" {
		t.Fatalf("actor = %+v", e.Actor)
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	r := NewLogRecorder(slog.New(slog.NewJSONHandler(&buf, nil)))
	e := NewEntry(context.Background(), uuid.New(), ResourceAssessment, "a-9", ActionRead)

	if err := r.Record(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `"resource_id":"a-9"`) || !strings.Contains(out, "phi access") {
		t.Fatalf("log = %s", out)
	}
	// Patient identifiers stay out of the log line.
	if strings.Contains(out, e.PatientID.String()) {
		t.Fatal("patient id leaked into log")
	}
}
