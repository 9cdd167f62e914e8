package app

import (
	"context"
	"encoding/json"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/samber/lo"
	"go.uber.org/fx"

	"github.com/Alijeyrad/simorq_screening/config"
	"github.com/Alijeyrad/simorq_screening/internal/events"
	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/internal/service/audit"
	"github.com/Alijeyrad/simorq_screening/internal/service/scoring"
	"github.com/Alijeyrad/simorq_screening/pkg/email"
	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
	s3pkg "github.com/Alijeyrad/simorq_screening/pkg/s3"
	"github.com/Alijeyrad/simorq_screening/pkg/sms"
	"github.com/Alijeyrad/simorq_screening/pkg/util/codes"
)

const workerTimeout = 30 * time.Second

// WorkerModule registers all NATS event workers.
var WorkerModule = fx.Module("workers",
	fx.Invoke(RegisterWorkers),
)

type WorkerParams struct {
	fx.In

	Lc     fx.Lifecycle
	Cfg    *config.Config
	NC     *nats.Conn
	Store  repo.Store
	Audit  audit.Recorder
	Email  *email.Client
	SMS    *sms.Client
	S3     *s3pkg.Client
	Logger *slog.Logger
}

func RegisterWorkers(p WorkerParams) {
	if p.NC == nil {
		p.Logger.Info("nats disabled; event workers not started")
		return
	}
	prefix := p.Cfg.Nats.SubjectPrefix
	completed := events.Wildcard(prefix, events.KindAssessmentCompleted)
	issued := events.Wildcard(prefix, events.KindTokenIssued)

	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := subscribe(p.NC, completed, "screening-invoicing", p.Logger,
				(&invoicingTrigger{log: p.Logger}).Handle); err != nil {
				return err
			}
			if p.Cfg.Email.Enabled {
				n := &completionNotifier{
					store:        p.Store,
					mail:         p.Email,
					dashboardURL: p.Cfg.Email.DashboardURL,
					log:          p.Logger,
				}
				if err := subscribe(p.NC, completed, "screening-notify", p.Logger, n.Handle); err != nil {
					return err
				}
			}
			if p.S3 != nil {
				r := &reportArchiver{store: p.Store, archive: p.S3, audit: p.Audit, log: p.Logger}
				if err := subscribe(p.NC, completed, "screening-report", p.Logger, r.Handle); err != nil {
					return err
				}
			}
			if p.SMS.IsEnabled() {
				d := &linkDelivery{store: p.Store, sms: p.SMS, log: p.Logger}
				if err := subscribe(p.NC, issued, "screening-sms", p.Logger, d.Handle); err != nil {
					return err
				}
			}
			return nil
		},
	})
}

// subscribe joins queue so each event is handled by one replica only.
func subscribe[T any](nc *nats.Conn, subject, queue string, log *slog.Logger, handle func(context.Context, T) error) error {
	log = log.With("worker", queue)
	_, err := nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var payload T
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Warn("dropping undecodable event", "subject", msg.Subject, "error", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
		defer cancel()
		if err := handle(ctx, payload); err != nil {
			log.Warn("event handling failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		log.Error("subscribe failed", "subject", subject, "error", err)
	}
	return err
}

// ---------------------------------------------------------------------------
// notification_worker
// ---------------------------------------------------------------------------

type completionNotifier struct {
	store        repo.Store
	mail         email.Sender
	dashboardURL string
	log          *slog.Logger
}

func (w *completionNotifier) Handle(ctx context.Context, e events.AssessmentCompleted) error {
	doctor, err := w.store.GetDoctor(ctx, e.DoctorID)
	if err != nil {
		return err
	}
	if doctor.Email == "" {
		w.log.Info("doctor has no email; completion notice skipped", "assessment_id", e.AssessmentID)
		return nil
	}

	msg := email.BuildCompletionNotice(email.CompletionNoticeData{
		DoctorName:   doctor.FullName,
		DoctorEmail:  doctor.Email,
		AssessmentID: e.AssessmentID.String(),
		Results: lo.Map(e.Results, func(r repo.InstrumentResult, _ int) email.ResultLine {
			return email.ResultLine{
				Instrument: string(r.Instrument),
				Score:      r.Score,
				MaxScore:   scoring.MaxScore(r.Instrument),
				Label:      r.Label,
			}
		}),
		SuicideRisk:  e.SuicideRisk,
		DashboardURL: w.dashboardURL,
	})
	if err := w.mail.Send(ctx, msg); err != nil {
		return err
	}
	w.log.Info("completion notice sent", "assessment_id", e.AssessmentID)
	return nil
}

// ---------------------------------------------------------------------------
// invoicing_worker
// ---------------------------------------------------------------------------

// invoicingTrigger marks completed orders as billable. Invoice creation lives
// in the billing system, which tails these log lines.
type invoicingTrigger struct {
	log *slog.Logger
}

func (w *invoicingTrigger) Handle(_ context.Context, e events.AssessmentCompleted) error {
	w.log.Info("order billing-eligible",
		"order_id", e.OrderID,
		"doctor_id", e.DoctorID,
		"assessment_type", e.AssessmentType,
		"completed_on", e.CompletedOn,
	)
	return nil
}

// ---------------------------------------------------------------------------
// report_worker
// ---------------------------------------------------------------------------

// assessmentReport is the snapshot handed to the PDF renderer.
type assessmentReport struct {
	AssessmentID   uuid.UUID                 `json:"assessment_id"`
	OrderID        uuid.UUID                 `json:"order_id"`
	PatientID      uuid.UUID                 `json:"patient_id"`
	DoctorID       uuid.UUID                 `json:"doctor_id"`
	AssessmentType repo.AssessmentType       `json:"assessment_type"`
	Results        []repo.InstrumentResult   `json:"results"`
	SuicideRisk    int                       `json:"suicide_risk"`
	CompletedOn    time.Time                 `json:"completed_on"`
	Responses      []repo.AssessmentResponse `json:"responses"`
}

type reportArchiver struct {
	store   repo.Store
	archive s3pkg.ReportArchiver
	audit   audit.Recorder
	log     *slog.Logger
}

func (w *reportArchiver) Handle(ctx context.Context, e events.AssessmentCompleted) error {
	a, err := w.store.GetAssessment(ctx, e.AssessmentID)
	if err != nil {
		return err
	}

	ctx = reqctx.WithActor(ctx, reqctx.System)
	entry := audit.NewEntry(ctx, a.PatientID, audit.ResourceAssessment, a.ID.String(), audit.ActionExport)
	if err := w.audit.Record(ctx, entry); err != nil {
		return err
	}

	key, err := w.archive.PutReport(ctx, a.ID, assessmentReport{
		AssessmentID:   a.ID,
		OrderID:        a.OrderID,
		PatientID:      a.PatientID,
		DoctorID:       a.DoctorID,
		AssessmentType: a.AssessmentType,
		Results:        a.Results,
		SuicideRisk:    a.SuicideRisk,
		CompletedOn:    a.CompletedOn,
		Responses:      a.Responses,
	})
	if err != nil {
		return err
	}
	w.log.Info("assessment report archived", "assessment_id", a.ID, "key", key)
	return nil
}

// ---------------------------------------------------------------------------
// sms_worker
// ---------------------------------------------------------------------------

type linkDelivery struct {
	store repo.Store
	sms   sms.LinkSender
	log   *slog.Logger
}

func (w *linkDelivery) Handle(ctx context.Context, e events.TokenIssued) error {
	patient, err := w.store.GetPatient(ctx, e.PatientID)
	if err != nil {
		return err
	}
	if patient.Phone == "" {
		w.log.Info("patient has no phone; link not sent", "order_id", e.OrderID)
		return nil
	}
	if err := w.sms.SendAssessmentLink(ctx, patient.Phone, e.Link); err != nil {
		return err
	}
	w.log.Info("assessment link sent", "order_id", e.OrderID, "token_fp", linkFingerprint(e.Link))
	return nil
}

// linkFingerprint identifies the token at the end of an assessment link.
func linkFingerprint(link string) string {
	return codes.Fingerprint(path.Base(link))
}
