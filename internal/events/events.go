// Package events defines what the screening engine announces after a
// transaction commits, and how it is published. Publishing is fire-and-forget:
// a failed publish is logged by the caller and never undoes the write.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
)

const (
	KindTokenIssued         = "token.issued"
	KindAssessmentCompleted = "assessment.completed"
)

// Event is a payload published on <prefix>.<kind>.<order_id>.
type Event interface {
	Kind() string
	Key() uuid.UUID
}

// TokenIssued carries the one-time link for delivery to the patient. It is the
// only place the plaintext token travels after Issue returns.
type TokenIssued struct {
	OrderID        uuid.UUID           `json:"order_id"`
	PatientID      uuid.UUID           `json:"patient_id"`
	AssessmentType repo.AssessmentType `json:"assessment_type"`
	Link           string              `json:"link"`
	ExpiresAt      time.Time           `json:"expires_at"`
}

func (e TokenIssued) Kind() string   { return KindTokenIssued }
func (e TokenIssued) Key() uuid.UUID { return e.OrderID }

// AssessmentCompleted is emitted once per order, when it reaches completed.
// It makes the order billing-eligible. Answers are not included.
type AssessmentCompleted struct {
	AssessmentID   uuid.UUID               `json:"assessment_id"`
	OrderID        uuid.UUID               `json:"order_id"`
	PatientID      uuid.UUID               `json:"patient_id"`
	DoctorID       uuid.UUID               `json:"doctor_id"`
	AssessmentType repo.AssessmentType     `json:"assessment_type"`
	Results        []repo.InstrumentResult `json:"results"`
	SuicideRisk    int                     `json:"suicide_risk"`
	CompletedOn    time.Time               `json:"completed_on"`
}

func (e AssessmentCompleted) Kind() string   { return KindAssessmentCompleted }
func (e AssessmentCompleted) Key() uuid.UUID { return e.OrderID }

// Subject returns the NATS subject for e under prefix.
func Subject(prefix string, e Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, e.Kind(), e.Key())
}

// Wildcard returns the subscription subject for every event of kind.
func Wildcard(prefix, kind string) string {
	return prefix + "." + kind + ".*"
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// ---------------------------------------------------------------------------
// NATS
// ---------------------------------------------------------------------------

type natsPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewNatsPublisher(nc *nats.Conn, prefix string) Publisher {
	return &natsPublisher{nc: nc, prefix: prefix}
}

func (p *natsPublisher) Publish(_ context.Context, e Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s: %w", e.Kind(), err)
	}
	if err := p.nc.Publish(Subject(p.prefix, e), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Kind(), err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// No-op and in-memory
// ---------------------------------------------------------------------------

type nopPublisher struct{}

// Nop drops every event. Used when NATS is disabled.
func Nop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }

// MemoryPublisher collects events in process. Err, when set, fails every
// Publish after the event is recorded.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (p *MemoryPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.Err
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
