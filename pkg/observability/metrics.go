package observability

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Submission outcomes recorded on screening.submissions.
const (
	OutcomeCompleted       = "completed"
	OutcomeInvalidAnswers  = "invalid_answers"
	OutcomeTokenRejected   = "token_rejected"
	OutcomeInternalFailure = "error"
)

// ScreeningMetrics are the domain counters of the screening engine. A nil
// *ScreeningMetrics records nothing.
type ScreeningMetrics struct {
	submissions metric.Int64Counter
	riskFlags   metric.Int64Counter
	issued      metric.Int64Counter
}

// NewScreeningMetrics registers the counters on mp, or on the global meter
// provider when mp is nil. With the Prometheus exporter they surface as
// screening_submissions_total, screening_suicide_risk_flags_total and
// screening_tokens_issued_total.
func NewScreeningMetrics(mp metric.MeterProvider) (*ScreeningMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(tracerName)

	submissions, err := meter.Int64Counter("screening.submissions",
		metric.WithDescription("Answer submissions by instrument and outcome"))
	if err != nil {
		return nil, err
	}
	riskFlags, err := meter.Int64Counter("screening.suicide_risk_flags",
		metric.WithDescription("Completed assessments with a non-zero self-harm item"))
	if err != nil {
		return nil, err
	}
	issued, err := meter.Int64Counter("screening.tokens_issued",
		metric.WithDescription("Access tokens issued"))
	if err != nil {
		return nil, err
	}
	return &ScreeningMetrics{submissions: submissions, riskFlags: riskFlags, issued: issued}, nil
}

func (m *ScreeningMetrics) Submission(ctx context.Context, instrument, outcome string) {
	if m == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("instrument", instrument),
		attribute.String("outcome", outcome),
	))
}

func (m *ScreeningMetrics) SuicideRiskFlag(ctx context.Context, level int) {
	if m == nil || level <= 0 {
		return
	}
	m.riskFlags.Add(ctx, 1, metric.WithAttributes(attribute.String("level", strconv.Itoa(level))))
}

func (m *ScreeningMetrics) TokenIssued(ctx context.Context) {
	if m == nil {
		return
	}
	m.issued.Add(ctx, 1)
}
