package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

const (
	ActionRead   = "read"
	ActionExport = "export"

	ResourceAssessment = "assessment"
)

// Entry is one PHI access: who read which patient's data, and from where.
type Entry struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	Actor        reqctx.Actor
	ResourceType string
	ResourceID   string
	Action       string
	IPAddress    string
	UserAgent    string
	RequestID    string
	AccessedAt   time.Time
}

// NewEntry builds an entry stamped with the actor and request metadata found
// in ctx. Unknown actors are recorded as "anonymous".
func NewEntry(ctx context.Context, patientID uuid.UUID, resourceType, resourceID, action string) *Entry {
	e := &Entry{
		ID:           repo.NewID(),
		PatientID:    patientID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Action:       action,
		AccessedAt:   time.Now().UTC(),
		Actor:        reqctx.Actor{ID: "anonymous", Role: "anonymous"},
	}
	if a, ok := reqctx.ActorFromContext(ctx); ok {
		e.Actor = a
	}
	if meta, ok := reqctx.RequestMetaFromContext(ctx); ok {
		e.IPAddress = meta.ClientIP
		e.UserAgent = meta.UserAgent
		e.RequestID = meta.RequestID
	}
	return e
}

// Recorder persists PHI access entries. A failed Record must make the caller
// deny the read.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// ---------------------------------------------------------------------------
// slog
// ---------------------------------------------------------------------------

type logRecorder struct {
	log *slog.Logger
}

// NewLogRecorder writes entries to the structured log only. Used with the
// in-memory store.
func NewLogRecorder(log *slog.Logger) Recorder {
	return &logRecorder{log: log}
}

func (r *logRecorder) Record(ctx context.Context, e *Entry) error {
	r.log.InfoContext(ctx, "phi access",
		"audit_id", e.ID.String(),
		"actor_id", e.Actor.ID,
		"actor_role", e.Actor.Role,
		"resource_type", e.ResourceType,
		"resource_id", e.ResourceID,
		"action", e.Action,
		"request_id", e.RequestID,
	)
	return nil
}

// ---------------------------------------------------------------------------
// Postgres
// ---------------------------------------------------------------------------

type pgRecorder struct {
	pool *pgxpool.Pool
}

func NewPostgresRecorder(pool *pgxpool.Pool) Recorder {
	return &pgRecorder{pool: pool}
}

func (r *pgRecorder) Record(ctx context.Context, e *Entry) error {
	var patientID *uuid.UUID
	if e.PatientID != uuid.Nil {
		patientID = &e.PatientID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO phi_access_log (id, patient_id, actor_id, actor_role, resource_type,
			resource_id, action, ip_address, user_agent, request_id, accessed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		e.ID, patientID, e.Actor.ID, e.Actor.Role, e.ResourceType,
		e.ResourceID, e.Action, e.IPAddress, e.UserAgent, e.RequestID, e.AccessedAt)
	return err
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

// MemoryRecorder keeps entries in process. Err, when set, is returned from
// every Record call.
type MemoryRecorder struct {
	mu      sync.Mutex
	entries []Entry
	Err     error
}

func (r *MemoryRecorder) Record(_ context.Context, e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.entries = append(r.entries, *e)
	return nil
}

func (r *MemoryRecorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.entries...)
}
