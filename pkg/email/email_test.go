package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"
)

func TestBuildCompletionNotice(t *testing.T) {
	data := CompletionNoticeData{
		DoctorName:   "Dr Rahimi",
		DoctorEmail:  "rahimi@example.com",
		AssessmentID: "a-1",
		Results: []ResultLine{
			{Instrument: "PHQ-9", Score: 12, MaxScore: 27, Label: "Moderate depression"},
		},
		DashboardURL: "https://clinic.example.com/",
	}

	m := BuildCompletionNotice(data)
	if m.Subject != "Screening assessment completed" {
		t.Errorf("subject = %q", m.Subject)
	}
	if !strings.Contains(m.TextBody, "PHQ-9: 12/27 (Moderate depression)") {
		t.Errorf("text body = %s", m.TextBody)
	}
	if !strings.Contains(m.TextBody, "https://clinic.example.com/assessments/a-1") {
		t.Errorf("missing link: %s", m.TextBody)
	}

	data.SuicideRisk = 2
	m = BuildCompletionNotice(data)
	if !strings.HasPrefix(m.Subject, "[URGENT: self-harm item 2/3]") {
		t.Errorf("risk subject = %q", m.Subject)
	}
	if !strings.Contains(m.HTMLBody, "scored 2 of 3") {
		t.Error("risk banner missing from html body")
	}
	if !m.Urgent {
		t.Error("risk notice should be urgent")
	}
}

func TestBuildMessage_UrgentHeaders(t *testing.T) {
	msg, err := buildMessage("x@y.z", Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b", Urgent: true})
	if err != nil {
		t.Fatal(err)
	}
	if got := msg.GetHeader("X-Priority"); len(got) != 1 || got[0] != "1" {
		t.Errorf("X-Priority = %v", got)
	}

	msg, err = buildMessage("x@y.z", Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"})
	if err != nil {
		t.Fatal(err)
	}
	if got := msg.GetHeader("X-Priority"); len(got) != 0 {
		t.Errorf("non-urgent X-Priority = %v", got)
	}
}

func TestSend_Dispatch(t *testing.T) {
	c, err := New(Config{Enabled: true, From: "x@y.z", SMTPHost: "smtp.example.com"})
	if err != nil {
		t.Fatal(err)
	}

	var sent *gomail.Message
	c.dispatch = func(m *gomail.Message) error { sent = m; return nil }
	if err := c.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent == nil || sent.GetHeader("To")[0] != "a@b.c" {
		t.Fatalf("dispatched message = %v", sent)
	}

	boom := errors.New("connection refused")
	c.dispatch = func(*gomail.Message) error { return boom }
	err = c.Send(context.Background(), Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestSend_ContextDeadline(t *testing.T) {
	c, err := New(Config{Enabled: true, From: "x@y.z", SMTPHost: "smtp.example.com"})
	if err != nil {
		t.Fatal(err)
	}
	release := make(chan struct{})
	defer close(release)
	c.dispatch = func(*gomail.Message) error { <-release; return nil }

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = c.Send(ctx, Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestBuildMessage_Validation(t *testing.T) {
	tests := []struct {
		name string
		from string
		msg  Message
	}{
		{"no from", "", Message{To: []string{"a@b.c"}, Subject: "s", TextBody: "b"}},
		{"no recipient", "x@y.z", Message{To: []string{"  "}, Subject: "s", TextBody: "b"}},
		{"no subject", "x@y.z", Message{To: []string{"a@b.c"}, TextBody: "b"}},
		{"no body", "x@y.z", Message{To: []string{"a@b.c"}, Subject: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildMessage(tt.from, tt.msg)
			var inv ErrInvalidMessage
			if !errors.As(err, &inv) {
				t.Fatalf("err = %v, want ErrInvalidMessage", err)
			}
		})
	}
}

func TestSend_Disabled(t *testing.T) {
	c, err := New(Config{Enabled: false})
	if err != nil {
		t.Fatal(err)
	}
	err = c.Send(context.Background(), Message{})
	var disabled ErrDisabled
	if !errors.As(err, &disabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}
