package repo

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentType names a questionnaire an order can be placed for.
type AssessmentType string

const (
	TypePHQ9          AssessmentType = "PHQ-9"
	TypeGAD7          AssessmentType = "GAD-7"
	TypeComprehensive AssessmentType = "comprehensive"
)

// Valid reports whether t is one of the orderable assessment types.
func (t AssessmentType) Valid() bool {
	switch t {
	case TypePHQ9, TypeGAD7, TypeComprehensive:
		return true
	}
	return false
}

// Instruments expands t into the scored instruments it administers, in
// presentation order. Comprehensive is PHQ-9 followed by GAD-7.
func (t AssessmentType) Instruments() []AssessmentType {
	switch t {
	case TypePHQ9, TypeGAD7:
		return []AssessmentType{t}
	case TypeComprehensive:
		return []AssessmentType{TypePHQ9, TypeGAD7}
	}
	return nil
}

// Includes reports whether instrument is administered as part of t.
func (t AssessmentType) Includes(instrument AssessmentType) bool {
	for _, i := range t.Instruments() {
		if i == instrument {
			return true
		}
	}
	return false
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderSent      OrderStatus = "sent"
	OrderCompleted OrderStatus = "completed"
	OrderExpired   OrderStatus = "expired"
	OrderCancelled OrderStatus = "cancelled"
)

type AssessmentStatus string

const (
	AssessmentCompleted AssessmentStatus = "completed"
	AssessmentReviewed  AssessmentStatus = "reviewed"
)

type Severity string

const (
	SeverityMinimal          Severity = "minimal"
	SeverityMild             Severity = "mild"
	SeverityModerate         Severity = "moderate"
	SeverityModeratelySevere Severity = "moderately_severe"
	SeveritySevere           Severity = "severe"
)

// Question is an immutable catalog item. Retired items stay in storage so
// historical responses keep resolving.
type Question struct {
	ID             int            `json:"id"`
	AssessmentType AssessmentType `json:"assessment_type"`
	OrderNum       int            `json:"order_num"`
	Text           string         `json:"text"`
	MinScore       int            `json:"min_score"`
	MaxScore       int            `json:"max_score"`
	SelfHarm       bool           `json:"-"`
	Retired        bool           `json:"-"`
}

type Patient struct {
	ID       uuid.UUID
	FullName string
	Email    string
	Phone    string
}

type Doctor struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

type AssessmentOrder struct {
	ID                uuid.UUID
	PatientID         uuid.UUID
	DoctorID          uuid.UUID
	AssessingDoctorID *uuid.UUID
	AssessmentType    AssessmentType
	Instructions      *string
	Status            OrderStatus
	OrderedOn         time.Time
	SentAt            *time.Time
	UpdatedAt         time.Time
}

// AssessmentToken is the stored half of a single-use access token. Only the
// SHA-256 of the token is kept; the plaintext leaves the process once, at issue.
type AssessmentToken struct {
	TokenHash  string
	OrderID    uuid.UUID
	IssuedAt   time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// Expired reports whether the token's validity window has elapsed at now.
func (t *AssessmentToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

type AssessmentResponse struct {
	QuestionID     int            `json:"question_id"`
	QuestionOrder  int            `json:"question_order"`
	AssessmentType AssessmentType `json:"assessment_type"`
	Score          int            `json:"score"`
}

// InstrumentResult is the scored outcome of one instrument. An Assessment
// carries one per instrument its type administers.
type InstrumentResult struct {
	Instrument     AssessmentType `json:"instrument"`
	Score          int            `json:"score"`
	Severity       Severity       `json:"severity"`
	Label          string         `json:"label"`
	Recommendation string         `json:"recommendation"`
}

type Assessment struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	AssessmentType AssessmentType
	Results        []InstrumentResult
	SuicideRisk    int
	Status         AssessmentStatus
	CompletedOn    time.Time
	ReviewedAt     *time.Time
	ReviewedBy     *uuid.UUID
	Responses      []AssessmentResponse
}

// Result returns the result for instrument, if the assessment administered it.
func (a *Assessment) Result(instrument AssessmentType) (InstrumentResult, bool) {
	for _, r := range a.Results {
		if r.Instrument == instrument {
			return r, true
		}
	}
	return InstrumentResult{}, false
}

// NewID returns a time-ordered UUIDv7, falling back to v4.
func NewID() uuid.UUID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
