package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("record not found")

	// ErrStaleState is returned by conditional writes whose precondition no
	// longer holds: the row moved on before the write landed.
	ErrStaleState = errors.New("record state changed concurrently")
)

// Store is the persistence contract of the screening engine. Every write that
// guards a state transition is a conditional update; none are read-then-write.
type Store interface {
	// WithTx runs fn against a transactional view of the store. All writes made
	// through the view commit together when fn returns nil and are discarded
	// otherwise.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)

	// ListQuestions returns every catalog item of the given types, retired ones included.
	ListQuestions(ctx context.Context, types ...AssessmentType) ([]Question, error)
	SaveQuestions(ctx context.Context, qs []Question) error

	CreateOrder(ctx context.Context, o *AssessmentOrder) error
	GetOrder(ctx context.Context, id uuid.UUID) (*AssessmentOrder, error)
	// TransitionOrder moves the order from `from` to `to`. When to is
	// OrderSent, sent_at is stamped with at. ErrStaleState if status != from.
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to OrderStatus, at time.Time) error
	// ListExpiredOrders returns sent orders whose latest token is unconsumed and past expiry.
	ListExpiredOrders(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	InsertToken(ctx context.Context, t *AssessmentToken) error
	GetToken(ctx context.Context, tokenHash string) (*AssessmentToken, error)
	// ConsumeToken sets consumed_at only if it is still unset. ErrStaleState otherwise.
	ConsumeToken(ctx context.Context, tokenHash string, at time.Time) error

	InsertAssessment(ctx context.Context, a *Assessment) error
	GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error)
	GetAssessmentByOrder(ctx context.Context, orderID uuid.UUID) (*Assessment, error)
	// MarkAssessmentReviewed moves a completed assessment to reviewed. ErrStaleState
	// if it is no longer completed.
	MarkAssessmentReviewed(ctx context.Context, id uuid.UUID, reviewer *uuid.UUID, at time.Time) error
}
