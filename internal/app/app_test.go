package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/internal/events"
	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/audit"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/internal/service/screening"
	"github.com/Alijeyrad/simorq_screening/internal/service/token"
	"github.com/Alijeyrad/simorq_screening/pkg/email"
	"github.com/Alijeyrad/simorq_screening/pkg/util/codes"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []email.Message
}

func (m *fakeMailer) Send(_ context.Context, msg email.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type fakeArchive struct {
	ids     []uuid.UUID
	reports []any
}

func (a *fakeArchive) PutReport(_ context.Context, id uuid.UUID, report any) (string, error) {
	a.ids = append(a.ids, id)
	a.reports = append(a.reports, report)
	return "assessments/" + id.String() + ".json", nil
}

type fakeSMS struct {
	phone, link string
}

func (s *fakeSMS) SendAssessmentLink(_ context.Context, phone, link string) error {
	s.phone, s.link = phone, link
	return nil
}

func completedEvent(doctorID uuid.UUID, risk int) events.AssessmentCompleted {
	return events.AssessmentCompleted{
		AssessmentID:   repo.NewID(),
		OrderID:        repo.NewID(),
		PatientID:      repo.NewID(),
		DoctorID:       doctorID,
		AssessmentType: repo.TypePHQ9,
		Results: []repo.InstrumentResult{
			{Instrument: repo.TypePHQ9, Score: 12, Severity: repo.SeverityModerate, Label: "Moderate depression"},
		},
		SuicideRisk: risk,
		CompletedOn: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestCompletionNotifier(t *testing.T) {
	store := repo.NewMemoryStore()
	doctor := repo.Doctor{ID: repo.NewID(), FullName: "Dr Example", Email: "dr@example.com"}
	store.AddDoctor(doctor)
	mailer := &fakeMailer{}

	n := &completionNotifier{store: store, mail: mailer, dashboardURL: "https://dash.example.com", log: quietLogger()}

	e := completedEvent(doctor.ID, 2)
	if err := n.Handle(context.Background(), e); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if msg.To[0] != doctor.Email {
		t.Errorf("to = %v", msg.To)
	}
	if !strings.HasPrefix(msg.Subject, "[URGENT: self-harm item 2/3]") {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.TextBody, "PHQ-9: 12/27") {
		t.Errorf("body missing score line: %s", msg.TextBody)
	}
}

func TestCompletionNotifier_NoEmail(t *testing.T) {
	store := repo.NewMemoryStore()
	doctor := repo.Doctor{ID: repo.NewID(), FullName: "Dr Silent"}
	store.AddDoctor(doctor)
	mailer := &fakeMailer{}

	n := &completionNotifier{store: store, mail: mailer, log: quietLogger()}
	if err := n.Handle(context.Background(), completedEvent(doctor.ID, 0)); err != nil {
		t.Fatal(err)
	}
	if len(mailer.sent) != 0 {
		t.Fatal("no message expected without a doctor email")
	}
}

func TestCompletionNotifier_UnknownDoctor(t *testing.T) {
	n := &completionNotifier{store: repo.NewMemoryStore(), mail: &fakeMailer{}, log: quietLogger()}
	if err := n.Handle(context.Background(), completedEvent(repo.NewID(), 0)); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestReportArchiver(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	a := &repo.Assessment{
		ID:             repo.NewID(),
		OrderID:        repo.NewID(),
		PatientID:      repo.NewID(),
		DoctorID:       repo.NewID(),
		AssessmentType: repo.TypeGAD7,
		Results:        []repo.InstrumentResult{{Instrument: repo.TypeGAD7, Score: 4, Severity: repo.SeverityMinimal}},
		Status:         repo.AssessmentCompleted,
		Responses:      []repo.AssessmentResponse{{QuestionID: 10, QuestionOrder: 1, AssessmentType: repo.TypeGAD7, Score: 1}},
	}
	if err := store.InsertAssessment(ctx, a); err != nil {
		t.Fatal(err)
	}

	archive := &fakeArchive{}
	rec := &audit.MemoryRecorder{}
	w := &reportArchiver{store: store, archive: archive, audit: rec, log: quietLogger()}

	if err := w.Handle(ctx, events.AssessmentCompleted{AssessmentID: a.ID}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(archive.ids) != 1 || archive.ids[0] != a.ID {
		t.Fatalf("archived %v", archive.ids)
	}
	report := archive.reports[0].(assessmentReport)
	if len(report.Responses) != 1 || report.PatientID != a.PatientID {
		t.Fatalf("report = %+v", report)
	}

	entries := rec.Entries()
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionExport || entries[0].Actor.ID != "system" {
		t.Fatalf("entry = %+v", entries[0])
	}
}

func TestReportArchiver_AuditFailureBlocksExport(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	a := &repo.Assessment{ID: repo.NewID(), OrderID: repo.NewID(), AssessmentType: repo.TypePHQ9}
	if err := store.InsertAssessment(ctx, a); err != nil {
		t.Fatal(err)
	}

	archive := &fakeArchive{}
	auditErr := errors.New("audit down")
	w := &reportArchiver{store: store, archive: archive, audit: &audit.MemoryRecorder{Err: auditErr}, log: quietLogger()}

	if err := w.Handle(ctx, events.AssessmentCompleted{AssessmentID: a.ID}); !errors.Is(err, auditErr) {
		t.Fatalf("err = %v", err)
	}
	if len(archive.ids) != 0 {
		t.Fatal("report must not be archived without an audit entry")
	}
}

func TestLinkDelivery(t *testing.T) {
	store := repo.NewMemoryStore()
	patient := repo.Patient{ID: repo.NewID(), FullName: "Pat", Phone: "09121234567"}
	store.AddPatient(patient)
	sender := &fakeSMS{}

	d := &linkDelivery{store: store, sms: sender, log: quietLogger()}
	link := "https://screen.example.com/assess/abc123"
	if err := d.Handle(context.Background(), events.TokenIssued{OrderID: repo.NewID(), PatientID: patient.ID, Link: link}); err != nil {
		t.Fatal(err)
	}
	if sender.phone != patient.Phone || sender.link != link {
		t.Fatalf("sent %q to %q", sender.link, sender.phone)
	}
}

func TestLinkFingerprint(t *testing.T) {
	if got, want := linkFingerprint("https://x.example/assess/tok"), codes.Fingerprint("tok"); got != want {
		t.Fatalf("linkFingerprint = %q, want %q", got, want)
	}
}

func TestInvoicingTrigger(t *testing.T) {
	w := &invoicingTrigger{log: quietLogger()}
	if err := w.Handle(context.Background(), completedEvent(repo.NewID(), 0)); err != nil {
		t.Fatal(err)
	}
}

func TestSweeper_RunOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	store := repo.NewMemoryStore()
	cat := catalog.New(store)
	if _, err := cat.Seed(ctx); err != nil {
		t.Fatal(err)
	}
	patient := repo.Patient{ID: repo.NewID(), FullName: "Pat"}
	doctor := repo.Doctor{ID: repo.NewID(), FullName: "Dr"}
	store.AddPatient(patient)
	store.AddDoctor(doctor)

	svc := screening.New(screening.Deps{
		Store:   store,
		Catalog: cat,
		Tokens:  token.New(store, token.Options{Now: clock}),
		Audit:   &audit.MemoryRecorder{},
		Logger:  quietLogger(),
	}, screening.Options{TokenTTL: time.Hour, Now: clock})

	o, err := svc.CreateOrder(ctx, screening.CreateOrderRequest{PatientID: patient.ID, DoctorID: doctor.ID, AssessmentType: repo.TypePHQ9})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.IssueToken(ctx, o.ID); err != nil {
		t.Fatal(err)
	}

	s := NewSweeper(svc, nil, time.Minute, quietLogger())

	if n, err := s.RunOnce(ctx); err != nil || n != 0 {
		t.Fatalf("before expiry: n=%d err=%v", n, err)
	}

	mu.Lock()
	now = now.Add(2 * time.Hour)
	mu.Unlock()

	if n, err := s.RunOnce(ctx); err != nil || n != 1 {
		t.Fatalf("after expiry: n=%d err=%v", n, err)
	}
	got, _ := store.GetOrder(ctx, o.ID)
	if got.Status != repo.OrderExpired {
		t.Fatalf("status = %s, want expired", got.Status)
	}
}

func TestSweeper_LeaseTTL(t *testing.T) {
	s := NewSweeper(nil, nil, 10*time.Minute, quietLogger())
	if s.rdb != nil {
		t.Fatal("nil redis client must leave the lock disabled")
	}
	if got := s.leaseTTL(); got != 9*time.Minute {
		t.Fatalf("leaseTTL = %v", got)
	}
}

func TestNewMemoryStore_Directory(t *testing.T) {
	ctx := context.Background()
	patientID, doctorID := uuid.New(), uuid.New()
	store, err := NewMemoryStore(ctx, config.DirectoryConfig{
		Patients: []config.DirectoryEntry{{ID: patientID.String(), FullName: "Demo Patient", Phone: "+989121234567"}},
		Doctors:  []config.DirectoryEntry{{ID: doctorID.String(), FullName: "Demo Doctor", Email: "dr@example.com"}},
	})
	if err != nil {
		t.Fatalf("NewMemoryStore: %v", err)
	}

	svc := screening.New(screening.Deps{
		Store:   store,
		Catalog: catalog.New(store),
		Tokens:  token.New(store, token.Options{}),
		Logger:  quietLogger(),
	}, screening.Options{})

	o, err := svc.CreateOrder(ctx, screening.CreateOrderRequest{
		PatientID:      patientID,
		DoctorID:       doctorID,
		AssessmentType: repo.TypeComprehensive,
	})
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	issued, err := svc.IssueToken(ctx, o.ID)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	qs, err := svc.QuestionsForToken(ctx, issued.Token)
	if err != nil || len(qs) != 16 {
		t.Fatalf("questions = %d, %v; want 16", len(qs), err)
	}
}

func TestNewMemoryStore_InvalidID(t *testing.T) {
	_, err := NewMemoryStore(context.Background(), config.DirectoryConfig{
		Doctors: []config.DirectoryEntry{{ID: "dr-1"}},
	})
	if err == nil || !strings.Contains(err.Error(), "doctors[0]") {
		t.Fatalf("err = %v", err)
	}
}
