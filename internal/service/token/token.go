package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/pkg/util/codes"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Issued carries the plaintext token. It is returned exactly once and never
// persisted.
type Issued struct {
	Token     string
	OrderID   uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Validation is what a live token resolves to.
type Validation struct {
	Token   *repo.AssessmentToken
	Order   *repo.AssessmentOrder
	Patient *repo.Patient
	Doctor  *repo.Doctor
}

type Options struct {
	// ByteLength is the random length of issued tokens. Clamped up to
	// codes.MinTokenByteLength.
	ByteLength int
	Now        func() time.Time
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// Issue mints a token for a pending order and moves the order to sent.
	Issue(ctx context.Context, orderID uuid.UUID, ttl time.Duration) (*Issued, error)
	// Validate resolves a token without touching its consumption state.
	Validate(ctx context.Context, token string) (*Validation, error)
	// Consume marks the token used. At most one call per token succeeds.
	Consume(ctx context.Context, token string) (uuid.UUID, error)
	// With returns a Service bound to store, typically a transaction view.
	With(store repo.Store) Service
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	store repo.Store
	bytes int
	now   func() time.Time
}

func New(store repo.Store, opts Options) Service {
	if opts.ByteLength < codes.MinTokenByteLength {
		opts.ByteLength = codes.MinTokenByteLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &service{store: store, bytes: opts.ByteLength, now: opts.Now}
}

func (s *service) With(store repo.Store) Service {
	cp := *s
	cp.store = store
	return &cp
}

func (s *service) Issue(ctx context.Context, orderID uuid.UUID, ttl time.Duration) (*Issued, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != repo.OrderPending {
		return nil, ErrOrderNotSendable
	}

	plain, err := codes.GenerateURLSafeToken(s.bytes)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	now := s.now().UTC()
	tok := &repo.AssessmentToken{
		TokenHash: codes.HashToken(plain),
		OrderID:   orderID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}

	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		if err := tx.TransitionOrder(ctx, orderID, repo.OrderPending, repo.OrderSent, now); err != nil {
			if errors.Is(err, repo.ErrStaleState) {
				return ErrOrderNotSendable
			}
			return fmt.Errorf("mark order sent: %w", err)
		}
		if err := tx.InsertToken(ctx, tok); err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Issued{Token: plain, OrderID: orderID, IssuedAt: tok.IssuedAt, ExpiresAt: tok.ExpiresAt}, nil
}

func (s *service) Validate(ctx context.Context, token string) (*Validation, error) {
	tok, order, err := s.lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	// A completed order reports the token as consumed rather than as an
	// invalid transition, so the respondent is told to ask for a new link.
	if tok.ConsumedAt != nil || order.Status == repo.OrderCompleted {
		return nil, ErrTokenAlreadyConsumed
	}
	if order.Status != repo.OrderSent || tok.Expired(s.now()) {
		return nil, ErrTokenExpired
	}

	patient, err := s.store.GetPatient(ctx, order.PatientID)
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}
	doctor, err := s.store.GetDoctor(ctx, order.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("get doctor: %w", err)
	}

	return &Validation{Token: tok, Order: order, Patient: patient, Doctor: doctor}, nil
}

func (s *service) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	tok, order, err := s.lookup(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if tok.ConsumedAt != nil {
		return uuid.Nil, ErrTokenAlreadyConsumed
	}
	now := s.now()
	if order.Status != repo.OrderSent || tok.Expired(now) {
		return uuid.Nil, ErrTokenExpired
	}

	if err := s.store.ConsumeToken(ctx, tok.TokenHash, now.UTC()); err != nil {
		if errors.Is(err, repo.ErrStaleState) {
			return uuid.Nil, ErrTokenAlreadyConsumed
		}
		return uuid.Nil, fmt.Errorf("consume token: %w", err)
	}
	return tok.OrderID, nil
}

func (s *service) lookup(ctx context.Context, token string) (*repo.AssessmentToken, *repo.AssessmentOrder, error) {
	if token == "" {
		return nil, nil, ErrTokenNotFound
	}
	tok, err := s.store.GetToken(ctx, codes.HashToken(token))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, ErrTokenNotFound
		}
		return nil, nil, fmt.Errorf("get token: %w", err)
	}
	order, err := s.store.GetOrder(ctx, tok.OrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("get order: %w", err)
	}
	return tok, order, nil
}
