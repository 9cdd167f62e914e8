package token

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/pkg/util/codes"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store *repo.MemoryStore
	svc   Service
	clock *clock
	order *repo.AssessmentOrder
}

func setup(t *testing.T) *fixture {
	t.Helper()
	c := &clock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	store := repo.NewMemoryStore()

	patient := repo.Patient{ID: repo.NewID(), FullName: "Test Patient"}
	doctor := repo.Doctor{ID: repo.NewID(), FullName: "Test Doctor"}
	store.AddPatient(patient)
	store.AddDoctor(doctor)

	order := &repo.AssessmentOrder{
		ID:             repo.NewID(),
		PatientID:      patient.ID,
		DoctorID:       doctor.ID,
		AssessmentType: repo.TypePHQ9,
		Status:         repo.OrderPending,
		OrderedOn:      c.t,
		UpdatedAt:      c.t,
	}
	if err := store.CreateOrder(context.Background(), order); err != nil {
		t.Fatal(err)
	}
	return &fixture{
		store: store,
		svc:   New(store, Options{ByteLength: 32, Now: c.Now}),
		clock: c,
		order: order,
	}
}

func TestIssue(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	issued, err := f.svc.Issue(ctx, f.order.ID, time.Hour)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !issued.ExpiresAt.Equal(f.clock.t.Add(time.Hour)) {
		t.Errorf("expires_at = %v", issued.ExpiresAt)
	}

	order, _ := f.store.GetOrder(ctx, f.order.ID)
	if order.Status != repo.OrderSent || order.SentAt == nil {
		t.Fatalf("order after issue = %+v", order)
	}

	stored, err := f.store.GetToken(ctx, codes.HashToken(issued.Token))
	if err != nil {
		t.Fatalf("token not stored by hash: %v", err)
	}
	if stored.TokenHash == issued.Token {
		t.Fatal("plaintext token persisted")
	}

	if _, err := f.svc.Issue(ctx, f.order.ID, time.Hour); !errors.Is(err, ErrOrderNotSendable) {
		t.Fatalf("second issue err = %v, want ErrOrderNotSendable", err)
	}
}

func TestIssue_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.Issue(ctx, uuid.New(), time.Hour); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("unknown order err = %v", err)
	}
	if _, err := f.svc.Issue(ctx, f.order.ID, 0); !errors.Is(err, ErrInvalidTTL) {
		t.Errorf("zero ttl err = %v", err)
	}
}

func TestValidate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued, err := f.svc.Issue(ctx, f.order.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	v, err := f.svc.Validate(ctx, issued.Token)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if v.Order.ID != f.order.ID || v.Patient.ID != f.order.PatientID || v.Doctor.ID != f.order.DoctorID {
		t.Fatalf("validation = %+v", v)
	}

	// Read-only: validating twice is fine and nothing is consumed.
	if _, err := f.svc.Validate(ctx, issued.Token); err != nil {
		t.Fatalf("second Validate: %v", err)
	}
	tok, _ := f.store.GetToken(ctx, codes.HashToken(issued.Token))
	if tok.ConsumedAt != nil {
		t.Fatal("Validate consumed the token")
	}

	if _, err := f.svc.Validate(ctx, "nope"); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("unknown token err = %v", err)
	}
	if _, err := f.svc.Validate(ctx, ""); !errors.Is(err, ErrTokenNotFound) {
		t.Errorf("empty token err = %v", err)
	}
}

func TestValidate_ExpiredLeavesOrderSent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued, _ := f.svc.Issue(ctx, f.order.ID, time.Hour)

	f.clock.Advance(time.Hour + time.Second)

	if _, err := f.svc.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
	if _, err := f.svc.Consume(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("consume err = %v, want ErrTokenExpired", err)
	}
	order, _ := f.store.GetOrder(ctx, f.order.ID)
	if order.Status != repo.OrderSent {
		t.Fatalf("status = %s, want sent", order.Status)
	}
}

func TestValidate_CompletedOrderReportsConsumed(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued, err := f.svc.Issue(ctx, f.order.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.store.TransitionOrder(ctx, f.order.ID, repo.OrderSent, repo.OrderCompleted, time.Now()); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenAlreadyConsumed) {
		t.Fatalf("err = %v, want ErrTokenAlreadyConsumed", err)
	}
}

func TestValidate_CancelledOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued, _ := f.svc.Issue(ctx, f.order.ID, time.Hour)

	if err := f.store.TransitionOrder(ctx, f.order.ID, repo.OrderSent, repo.OrderCancelled, f.clock.t); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("err = %v, want ErrTokenExpired", err)
	}
}

func TestConsume_Once(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued, _ := f.svc.Issue(ctx, f.order.ID, time.Hour)

	orderID, err := f.svc.Consume(ctx, issued.Token)
	if err != nil || orderID != f.order.ID {
		t.Fatalf("Consume = %v, %v", orderID, err)
	}
	if _, err := f.svc.Consume(ctx, issued.Token); !errors.Is(err, ErrTokenAlreadyConsumed) {
		t.Fatalf("second consume err = %v", err)
	}
	if _, err := f.svc.Validate(ctx, issued.Token); !errors.Is(err, ErrTokenAlreadyConsumed) {
		t.Fatalf("validate after consume err = %v", err)
	}
}

func TestConsume_Concurrent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	issued, _ := f.svc.Issue(ctx, f.order.ID, time.Hour)

	const n = 32
	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		consumed atomic.Int32
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Consume(ctx, issued.Token)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, ErrTokenAlreadyConsumed):
				consumed.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins.Load() != 1 || consumed.Load() != n-1 {
		t.Fatalf("wins=%d consumed=%d", wins.Load(), consumed.Load())
	}
}

func TestNew_ClampsByteLength(t *testing.T) {
	f := setup(t)
	svc := New(f.store, Options{ByteLength: 4, Now: f.clock.Now})
	issued, err := svc.Issue(context.Background(), f.order.ID, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	// 16 bytes of raw url base64 is 22 chars.
	if len(issued.Token) < 22 {
		t.Fatalf("token length %d below 128 bits", len(issued.Token))
	}
}
