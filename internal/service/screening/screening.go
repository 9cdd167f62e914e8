package screening

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/internal/events"
	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/audit"
	"github.com/Alijeyrad/simorq_screening/internal/service/catalog"
	"github.com/Alijeyrad/simorq_screening/internal/service/intake"
	"github.com/Alijeyrad/simorq_screening/internal/service/scoring"
	"github.com/Alijeyrad/simorq_screening/internal/service/token"
	"github.com/Alijeyrad/simorq_screening/pkg/observability"
	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
	"github.com/Alijeyrad/simorq_screening/pkg/util/codes"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type CreateOrderRequest struct {
	PatientID         uuid.UUID
	DoctorID          uuid.UUID
	AssessingDoctorID *uuid.UUID
	AssessmentType    repo.AssessmentType
	Instructions      *string
}

// TokenInfo is what the public assessment page needs before rendering.
type TokenInfo struct {
	OrderID        uuid.UUID
	AssessmentType repo.AssessmentType
	Instructions   *string
	Patient        repo.Patient
	Doctor         repo.Doctor
	ExpiresAt      time.Time
}

type Options struct {
	TokenTTL time.Duration
	// PublicBaseURL prefixes the link delivered to patients: <base>/assess/<token>.
	PublicBaseURL string
	Now           func() time.Time
}

type Deps struct {
	Store   repo.Store
	Catalog catalog.Service
	Tokens  token.Service
	Audit   audit.Recorder
	Events  events.Publisher
	Metrics *observability.ScreeningMetrics
	Logger  *slog.Logger
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*repo.AssessmentOrder, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*repo.AssessmentOrder, error)
	IssueToken(ctx context.Context, orderID uuid.UUID) (*token.Issued, error)
	ReissueToken(ctx context.Context, orderID uuid.UUID) (*token.Issued, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) error
	ExpireOrder(ctx context.Context, orderID uuid.UUID) error
	SweepExpired(ctx context.Context) (int, error)

	ValidateToken(ctx context.Context, tok string) (*TokenInfo, error)
	QuestionsForToken(ctx context.Context, tok string) ([]repo.Question, error)
	SubmitAnswers(ctx context.Context, tok string, answers intake.AnswerSet) (*repo.Assessment, error)

	GetAssessment(ctx context.Context, assessmentID uuid.UUID) (*repo.Assessment, error)
	MarkReviewed(ctx context.Context, assessmentID uuid.UUID) (*repo.Assessment, error)
	ReviewOrder(ctx context.Context, orderID uuid.UUID) (*repo.Assessment, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	store   repo.Store
	catalog catalog.Service
	tokens  token.Service
	audit   audit.Recorder
	events  events.Publisher
	metrics *observability.ScreeningMetrics
	log     *slog.Logger

	ttl     time.Duration
	baseURL string
	now     func() time.Time
}

func New(d Deps, opts Options) Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = 7 * 24 * time.Hour
	}
	if d.Events == nil {
		d.Events = events.Nop()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Audit == nil {
		d.Audit = audit.NewLogRecorder(d.Logger)
	}
	return &service{
		store:   d.Store,
		catalog: d.Catalog,
		tokens:  d.Tokens,
		audit:   d.Audit,
		events:  d.Events,
		metrics: d.Metrics,
		log:     d.Logger.With("component", "screening"),
		ttl:     opts.TokenTTL,
		baseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		now:     opts.Now,
	}
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func (s *service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*repo.AssessmentOrder, error) {
	if !req.AssessmentType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAssessment, req.AssessmentType)
	}
	if _, err := s.store.GetPatient(ctx, req.PatientID); err != nil {
		return nil, notFoundAs(err, ErrPatientNotFound, "get patient")
	}
	if _, err := s.store.GetDoctor(ctx, req.DoctorID); err != nil {
		return nil, notFoundAs(err, ErrDoctorNotFound, "get doctor")
	}
	if req.AssessingDoctorID != nil {
		if _, err := s.store.GetDoctor(ctx, *req.AssessingDoctorID); err != nil {
			return nil, notFoundAs(err, ErrDoctorNotFound, "get assessing doctor")
		}
	}

	now := s.now().UTC()
	order := &repo.AssessmentOrder{
		ID:                repo.NewID(),
		PatientID:         req.PatientID,
		DoctorID:          req.DoctorID,
		AssessingDoctorID: req.AssessingDoctorID,
		AssessmentType:    req.AssessmentType,
		Instructions:      req.Instructions,
		Status:            repo.OrderPending,
		OrderedOn:         now,
		UpdatedAt:         now,
	}
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.log.InfoContext(ctx, "order created", "order_id", order.ID, "type", order.AssessmentType)
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*repo.AssessmentOrder, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundAs(err, ErrOrderNotFound, "get order")
	}
	return o, nil
}

func (s *service) IssueToken(ctx context.Context, orderID uuid.UUID) (*token.Issued, error) {
	issued, err := s.tokens.Issue(ctx, orderID, s.ttl)
	if err != nil {
		return nil, err
	}
	s.metrics.TokenIssued(ctx)
	s.log.InfoContext(ctx, "token issued",
		"order_id", orderID,
		"token_fp", codes.Fingerprint(issued.Token),
		"expires_at", issued.ExpiresAt,
	)

	if order, err := s.store.GetOrder(ctx, orderID); err == nil {
		s.publish(ctx, events.TokenIssued{
			OrderID:        orderID,
			PatientID:      order.PatientID,
			AssessmentType: order.AssessmentType,
			Link:           s.link(issued.Token),
			ExpiresAt:      issued.ExpiresAt,
		})
	}
	return issued, nil
}

// ReissueToken replaces an expired token. A sent order whose token has lapsed
// is expired first; a sent order with a live token is refused, so an order
// never has two live tokens.
func (s *service) ReissueToken(ctx context.Context, orderID uuid.UUID) (*token.Issued, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case repo.OrderPending:
	case repo.OrderSent:
		if err := s.ExpireOrder(ctx, orderID); err != nil {
			return nil, err
		}
		fallthrough
	case repo.OrderExpired:
		if err := s.transition(ctx, "reissue", orderID, repo.OrderExpired, repo.OrderPending); err != nil {
			return nil, err
		}
	default:
		return nil, orderTransitionError("reissue", order.Status, repo.OrderSent)
	}
	return s.IssueToken(ctx, orderID)
}

func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := s.transition(ctx, "cancel", orderID, order.Status, repo.OrderCancelled); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "order cancelled", "order_id", orderID, "from", order.Status)
	return nil
}

// ExpireOrder moves a sent order to expired once its token has lapsed unused.
func (s *service) ExpireOrder(ctx context.Context, orderID uuid.UUID) error {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status != repo.OrderSent {
		return orderTransitionError("expire", order.Status, repo.OrderExpired)
	}
	lapsed, err := s.store.ListExpiredOrders(ctx, s.now())
	if err != nil {
		return fmt.Errorf("list expired orders: %w", err)
	}
	if !slices.Contains(lapsed, orderID) {
		return &InvalidTransitionError{Op: "expire", From: "sent (token live)", To: string(repo.OrderExpired)}
	}
	return s.transition(ctx, "expire", orderID, repo.OrderSent, repo.OrderExpired)
}

// SweepExpired expires every sent order whose token lapsed. Expiry is also
// enforced lazily on every token access, so the sweep only keeps order
// statuses tidy.
func (s *service) SweepExpired(ctx context.Context) (int, error) {
	ids, err := s.store.ListExpiredOrders(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("list expired orders: %w", err)
	}
	n := 0
	for _, id := range ids {
		err := s.transition(ctx, "expire", id, repo.OrderSent, repo.OrderExpired)
		switch {
		case err == nil:
			n++
		case errors.Is(err, ErrInvalidStateTransition):
			// Submitted or cancelled since the listing.
		default:
			return n, err
		}
	}
	if n > 0 {
		s.log.InfoContext(ctx, "expired orders swept", "count", n)
	}
	return n, nil
}

func (s *service) transition(ctx context.Context, op string, orderID uuid.UUID, from, to repo.OrderStatus) error {
	if !CanTransition(from, to) {
		return orderTransitionError(op, from, to)
	}
	err := s.store.TransitionOrder(ctx, orderID, from, to, s.now().UTC())
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repo.ErrNotFound):
		return ErrOrderNotFound
	case errors.Is(err, repo.ErrStaleState):
		return orderTransitionError(op, from, to)
	}
	return fmt.Errorf("%s order: %w", op, err)
}

// ---------------------------------------------------------------------------
// Public token flow
// ---------------------------------------------------------------------------

func (s *service) ValidateToken(ctx context.Context, tok string) (*TokenInfo, error) {
	v, err := s.tokens.Validate(ctx, tok)
	if err != nil {
		return nil, err
	}
	return &TokenInfo{
		OrderID:        v.Order.ID,
		AssessmentType: v.Order.AssessmentType,
		Instructions:   v.Order.Instructions,
		Patient:        *v.Patient,
		Doctor:         *v.Doctor,
		ExpiresAt:      v.Token.ExpiresAt,
	}, nil
}

func (s *service) QuestionsForToken(ctx context.Context, tok string) ([]repo.Question, error) {
	v, err := s.tokens.Validate(ctx, tok)
	if err != nil {
		return nil, err
	}
	return s.catalog.LoadQuestions(ctx, v.Order.AssessmentType)
}

// SubmitAnswers validates, scores and completes the order behind tok. Token
// consumption, the order update and the assessment insert commit together;
// events go out only after that commit.
func (s *service) SubmitAnswers(ctx context.Context, tok string, answers intake.AnswerSet) (*repo.Assessment, error) {
	v, err := s.tokens.Validate(ctx, tok)
	if err != nil {
		s.metrics.Submission(ctx, "unknown", observability.OutcomeTokenRejected)
		return nil, err
	}
	order := v.Order
	instrument := string(order.AssessmentType)

	questions, err := s.catalog.LoadQuestions(ctx, order.AssessmentType)
	if err != nil {
		s.metrics.Submission(ctx, instrument, observability.OutcomeInternalFailure)
		return nil, fmt.Errorf("load questions: %w", err)
	}
	validated, err := intake.Validate(order.AssessmentType, questions, answers)
	if err != nil {
		s.metrics.Submission(ctx, instrument, observability.OutcomeInvalidAnswers)
		return nil, err
	}
	outcome, err := scoring.Evaluate(validated)
	if err != nil {
		s.metrics.Submission(ctx, instrument, observability.OutcomeInternalFailure)
		return nil, fmt.Errorf("score answers: %w", err)
	}

	now := s.now().UTC()
	assessment := &repo.Assessment{
		ID:             repo.NewID(),
		OrderID:        order.ID,
		PatientID:      order.PatientID,
		DoctorID:       order.DoctorID,
		AssessmentType: order.AssessmentType,
		Results:        outcome.Results,
		SuicideRisk:    outcome.SuicideRisk,
		Status:         repo.AssessmentCompleted,
		CompletedOn:    now,
		Responses:      validated.Responses(),
	}

	err = s.store.WithTx(ctx, func(tx repo.Store) error {
		if _, err := s.tokens.With(tx).Consume(ctx, tok); err != nil {
			return err
		}
		if err := tx.TransitionOrder(ctx, order.ID, repo.OrderSent, repo.OrderCompleted, now); err != nil {
			if errors.Is(err, repo.ErrStaleState) {
				return orderTransitionError("complete", order.Status, repo.OrderCompleted)
			}
			return fmt.Errorf("complete order: %w", err)
		}
		if err := tx.InsertAssessment(ctx, assessment); err != nil {
			if errors.Is(err, repo.ErrStaleState) {
				return token.ErrTokenAlreadyConsumed
			}
			return fmt.Errorf("insert assessment: %w", err)
		}
		return nil
	})
	if err != nil {
		if isTokenError(err) {
			s.metrics.Submission(ctx, instrument, observability.OutcomeTokenRejected)
		} else {
			s.metrics.Submission(ctx, instrument, observability.OutcomeInternalFailure)
		}
		return nil, err
	}

	s.metrics.Submission(ctx, instrument, observability.OutcomeCompleted)
	s.log.InfoContext(ctx, "assessment completed",
		"assessment_id", assessment.ID,
		"order_id", order.ID,
		"type", order.AssessmentType,
	)
	if assessment.SuicideRisk > 0 {
		s.metrics.SuicideRiskFlag(ctx, assessment.SuicideRisk)
		s.log.WarnContext(ctx, "suicide risk flagged",
			"assessment_id", assessment.ID,
			"suicide_risk", assessment.SuicideRisk,
		)
	}

	s.publish(ctx, events.AssessmentCompleted{
		AssessmentID:   assessment.ID,
		OrderID:        order.ID,
		PatientID:      order.PatientID,
		DoctorID:       order.DoctorID,
		AssessmentType: order.AssessmentType,
		Results:        assessment.Results,
		SuicideRisk:    assessment.SuicideRisk,
		CompletedOn:    now,
	})
	return assessment, nil
}

// ---------------------------------------------------------------------------
// Clinician reads and review
// ---------------------------------------------------------------------------

// GetAssessment returns the assessment with its responses. The read is
// refused when it cannot be audited.
func (s *service) GetAssessment(ctx context.Context, assessmentID uuid.UUID) (*repo.Assessment, error) {
	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, notFoundAs(err, ErrAssessmentNotFound, "get assessment")
	}
	if err := s.auditRead(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// MarkReviewed moves a completed assessment to reviewed and returns it with
// its responses. Reviewing an already reviewed assessment returns it
// unchanged. Either way the returned answers count as a PHI read.
func (s *service) MarkReviewed(ctx context.Context, assessmentID uuid.UUID) (*repo.Assessment, error) {
	a, err := s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, notFoundAs(err, ErrAssessmentNotFound, "get assessment")
	}
	if a.Status == repo.AssessmentReviewed {
		if err := s.auditRead(ctx, a); err != nil {
			return nil, err
		}
		return a, nil
	}

	err = s.store.MarkAssessmentReviewed(ctx, a.ID, reviewerID(ctx), s.now().UTC())
	if err != nil && !errors.Is(err, repo.ErrStaleState) {
		return nil, fmt.Errorf("mark reviewed: %w", err)
	}
	// ErrStaleState here means a concurrent review won; both succeed.
	a, err = s.store.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, fmt.Errorf("get assessment: %w", err)
	}
	if a.Status != repo.AssessmentReviewed {
		return nil, &InvalidTransitionError{Op: "review", From: string(a.Status), To: string(repo.AssessmentReviewed)}
	}
	s.log.InfoContext(ctx, "assessment reviewed", "assessment_id", a.ID)
	if err := s.auditRead(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ReviewOrder reviews the assessment of a completed order. Orders that never
// completed have nothing to review.
func (s *service) ReviewOrder(ctx context.Context, orderID uuid.UUID) (*repo.Assessment, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != repo.OrderCompleted {
		return nil, &InvalidTransitionError{Op: "review", From: string(order.Status), To: string(repo.AssessmentReviewed)}
	}
	a, err := s.store.GetAssessmentByOrder(ctx, orderID)
	if err != nil {
		return nil, notFoundAs(err, ErrAssessmentNotFound, "get assessment")
	}
	return s.MarkReviewed(ctx, a.ID)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// auditRead records that the actor in ctx saw a's responses. Callers must
// withhold the assessment when it fails.
func (s *service) auditRead(ctx context.Context, a *repo.Assessment) error {
	entry := audit.NewEntry(ctx, a.PatientID, audit.ResourceAssessment, a.ID.String(), audit.ActionRead)
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.ErrorContext(ctx, "phi audit failed", "assessment_id", a.ID, "err", err)
		return fmt.Errorf("%w: %v", ErrAuditUnavailable, err)
	}
	return nil
}

func (s *service) publish(ctx context.Context, e events.Event) {
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WarnContext(ctx, "event publish failed", "kind", e.Kind(), "order_id", e.Key(), "err", err)
	}
}

func (s *service) link(tok string) string {
	return s.baseURL + "/assess/" + tok
}

func reviewerID(ctx context.Context) *uuid.UUID {
	a, ok := reqctx.ActorFromContext(ctx)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(a.ID)
	if err != nil {
		return nil
	}
	return &id
}

func notFoundAs(err, sentinel error, op string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isTokenError(err error) bool {
	return errors.Is(err, token.ErrTokenAlreadyConsumed) ||
		errors.Is(err, token.ErrTokenExpired) ||
		errors.Is(err, token.ErrTokenNotFound)
}
