package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore implements Store on a pgx pool. Inside WithTx, q is the pgx.Tx.
type PostgresStore struct {
	pool *pgxpool.Pool
	q    queryable
	inTx bool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

const uniqueViolation = "23505"

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&PostgresStore{pool: s.pool, q: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	err := s.q.QueryRow(ctx,
		`SELECT id, full_name, email, phone FROM patients WHERE id = $1`, id).
		Scan(&p.ID, &p.FullName, &p.Email, &p.Phone)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

func (s *PostgresStore) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := s.q.QueryRow(ctx,
		`SELECT id, full_name, email FROM doctors WHERE id = $1`, id).
		Scan(&d.ID, &d.FullName, &d.Email)
	if err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, types ...AssessmentType) ([]Question, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	rows, err := s.q.Query(ctx, `
		SELECT id, assessment_type, order_num, text, min_score, max_score, self_harm, retired
		FROM questions WHERE assessment_type = ANY($1) ORDER BY id`, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var q Question
		if err := rows.Scan(&q.ID, &q.AssessmentType, &q.OrderNum, &q.Text,
			&q.MinScore, &q.MaxScore, &q.SelfHarm, &q.Retired); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveQuestions(ctx context.Context, qs []Question) error {
	b := &pgx.Batch{}
	for _, q := range qs {
		b.Queue(`
			INSERT INTO questions (id, assessment_type, order_num, text, min_score, max_score, self_harm, retired)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO UPDATE SET text = EXCLUDED.text, self_harm = EXCLUDED.self_harm, retired = EXCLUDED.retired`,
			q.ID, q.AssessmentType, q.OrderNum, q.Text, q.MinScore, q.MaxScore, q.SelfHarm, q.Retired)
	}
	return s.q.SendBatch(ctx, b).Close()
}

const orderCols = `id, patient_id, doctor_id, assessing_doctor_id, assessment_type, instructions,
	status, ordered_on, sent_at, updated_at`

func (s *PostgresStore) CreateOrder(ctx context.Context, o *AssessmentOrder) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO assessment_orders (`+orderCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		o.ID, o.PatientID, o.DoctorID, o.AssessingDoctorID, o.AssessmentType, o.Instructions,
		o.Status, o.OrderedOn, o.SentAt, o.UpdatedAt)
	return err
}

func (s *PostgresStore) GetOrder(ctx context.Context, id uuid.UUID) (*AssessmentOrder, error) {
	var o AssessmentOrder
	err := s.q.QueryRow(ctx, `SELECT `+orderCols+` FROM assessment_orders WHERE id = $1`, id).
		Scan(&o.ID, &o.PatientID, &o.DoctorID, &o.AssessingDoctorID, &o.AssessmentType, &o.Instructions,
			&o.Status, &o.OrderedOn, &o.SentAt, &o.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *PostgresStore) TransitionOrder(ctx context.Context, id uuid.UUID, from, to OrderStatus, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE assessment_orders
		SET status = $3,
		    updated_at = $4,
		    sent_at = CASE WHEN $3 = 'sent' THEN $4 ELSE sent_at END
		WHERE id = $1 AND status = $2`,
		id, from, to, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.staleOrMissing(ctx, `SELECT EXISTS(SELECT 1 FROM assessment_orders WHERE id = $1)`, id)
	}
	return nil
}

func (s *PostgresStore) ListExpiredOrders(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	rows, err := s.q.Query(ctx, `
		SELECT o.id
		FROM assessment_orders o
		JOIN LATERAL (
			SELECT expires_at, consumed_at FROM assessment_tokens t
			WHERE t.order_id = o.id
			ORDER BY t.issued_at DESC
			LIMIT 1
		) t ON true
		WHERE o.status = 'sent' AND t.consumed_at IS NULL AND t.expires_at < $1`, now)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (s *PostgresStore) InsertToken(ctx context.Context, t *AssessmentToken) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO assessment_tokens (token_hash, order_id, issued_at, expires_at, consumed_at)
		VALUES ($1,$2,$3,$4,$5)`,
		t.TokenHash, t.OrderID, t.IssuedAt, t.ExpiresAt, t.ConsumedAt)
	return err
}

func (s *PostgresStore) GetToken(ctx context.Context, tokenHash string) (*AssessmentToken, error) {
	var t AssessmentToken
	err := s.q.QueryRow(ctx, `
		SELECT token_hash, order_id, issued_at, expires_at, consumed_at
		FROM assessment_tokens WHERE token_hash = $1`, tokenHash).
		Scan(&t.TokenHash, &t.OrderID, &t.IssuedAt, &t.ExpiresAt, &t.ConsumedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (s *PostgresStore) ConsumeToken(ctx context.Context, tokenHash string, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE assessment_tokens SET consumed_at = $2
		WHERE token_hash = $1 AND consumed_at IS NULL`, tokenHash, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.staleOrMissing(ctx, `SELECT EXISTS(SELECT 1 FROM assessment_tokens WHERE token_hash = $1)`, tokenHash)
	}
	return nil
}

func (s *PostgresStore) InsertAssessment(ctx context.Context, a *Assessment) error {
	results, err := json.Marshal(a.Results)
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	score, phq9, gad7 := scoreColumns(a)

	_, err = s.q.Exec(ctx, `
		INSERT INTO assessments (id, order_id, patient_id, doctor_id, assessment_type,
			score, phq9_score, gad7_score, results, suicide_risk, status, completed_on)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.OrderID, a.PatientID, a.DoctorID, a.AssessmentType,
		score, phq9, gad7, results, a.SuicideRisk, a.Status, a.CompletedOn)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrStaleState
		}
		return err
	}

	b := &pgx.Batch{}
	for _, r := range a.Responses {
		b.Queue(`
			INSERT INTO assessment_responses (assessment_id, question_id, question_order, assessment_type, score)
			VALUES ($1,$2,$3,$4,$5)`,
			a.ID, r.QuestionID, r.QuestionOrder, r.AssessmentType, r.Score)
	}
	return s.q.SendBatch(ctx, b).Close()
}

// scoreColumns flattens the results into the score / phq9_score / gad7_score
// columns: single-instrument assessments fill score (and their own instrument
// column), comprehensive ones fill both instrument columns and leave score NULL.
func scoreColumns(a *Assessment) (score, phq9, gad7 *int) {
	if r, ok := a.Result(TypePHQ9); ok {
		v := r.Score
		phq9 = &v
	}
	if r, ok := a.Result(TypeGAD7); ok {
		v := r.Score
		gad7 = &v
	}
	if a.AssessmentType != TypeComprehensive && len(a.Results) == 1 {
		v := a.Results[0].Score
		score = &v
	}
	return score, phq9, gad7
}

const assessmentCols = `id, order_id, patient_id, doctor_id, assessment_type, results,
	suicide_risk, status, completed_on, reviewed_at, reviewed_by`

func (s *PostgresStore) GetAssessment(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return s.scanAssessment(ctx, s.q.QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE id = $1`, id))
}

func (s *PostgresStore) GetAssessmentByOrder(ctx context.Context, orderID uuid.UUID) (*Assessment, error) {
	return s.scanAssessment(ctx, s.q.QueryRow(ctx, `SELECT `+assessmentCols+` FROM assessments WHERE order_id = $1`, orderID))
}

func (s *PostgresStore) scanAssessment(ctx context.Context, row pgx.Row) (*Assessment, error) {
	var (
		a       Assessment
		results []byte
	)
	err := row.Scan(&a.ID, &a.OrderID, &a.PatientID, &a.DoctorID, &a.AssessmentType, &results,
		&a.SuicideRisk, &a.Status, &a.CompletedOn, &a.ReviewedAt, &a.ReviewedBy)
	if err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(results, &a.Results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	rows, err := s.q.Query(ctx, `
		SELECT question_id, question_order, assessment_type, score
		FROM assessment_responses WHERE assessment_id = $1
		ORDER BY question_order, question_id`, a.ID)
	if err != nil {
		return nil, err
	}
	a.Responses, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (AssessmentResponse, error) {
		var r AssessmentResponse
		err := row.Scan(&r.QuestionID, &r.QuestionOrder, &r.AssessmentType, &r.Score)
		return r, err
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *PostgresStore) MarkAssessmentReviewed(ctx context.Context, id uuid.UUID, reviewer *uuid.UUID, at time.Time) error {
	tag, err := s.q.Exec(ctx, `
		UPDATE assessments SET status = 'reviewed', reviewed_at = $2, reviewed_by = $3
		WHERE id = $1 AND status = 'completed'`, id, at, reviewer)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return s.staleOrMissing(ctx, `SELECT EXISTS(SELECT 1 FROM assessments WHERE id = $1)`, id)
	}
	return nil
}

func (s *PostgresStore) staleOrMissing(ctx context.Context, existsQuery string, key any) error {
	var exists bool
	if err := s.q.QueryRow(ctx, existsQuery, key).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrStaleState
}

var (
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
