package repo

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store. A single mutex serialises every write,
// and WithTx stages changes on a copy that replaces the live state on commit.
type MemoryStore struct {
	mu   *sync.Mutex
	st   *memState
	inTx bool
}

type memState struct {
	patients    map[uuid.UUID]Patient
	doctors     map[uuid.UUID]Doctor
	questions   map[int]Question
	orders      map[uuid.UUID]AssessmentOrder
	tokens      map[string]AssessmentToken
	assessments map[uuid.UUID]Assessment
	byOrder     map[uuid.UUID]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		mu: &sync.Mutex{},
		st: &memState{
			patients:    map[uuid.UUID]Patient{},
			doctors:     map[uuid.UUID]Doctor{},
			questions:   map[int]Question{},
			orders:      map[uuid.UUID]AssessmentOrder{},
			tokens:      map[string]AssessmentToken{},
			assessments: map[uuid.UUID]Assessment{},
			byOrder:     map[uuid.UUID]uuid.UUID{},
		},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		patients:    make(map[uuid.UUID]Patient, len(s.patients)),
		doctors:     make(map[uuid.UUID]Doctor, len(s.doctors)),
		questions:   make(map[int]Question, len(s.questions)),
		orders:      make(map[uuid.UUID]AssessmentOrder, len(s.orders)),
		tokens:      make(map[string]AssessmentToken, len(s.tokens)),
		assessments: make(map[uuid.UUID]Assessment, len(s.assessments)),
		byOrder:     make(map[uuid.UUID]uuid.UUID, len(s.byOrder)),
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	for k, v := range s.doctors {
		c.doctors[k] = v
	}
	for k, v := range s.questions {
		c.questions[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	// Assessments are never mutated in place except via MarkAssessmentReviewed,
	// which replaces the map value, so sharing slices here is safe.
	for k, v := range s.assessments {
		c.assessments[k] = v
	}
	for k, v := range s.byOrder {
		c.byOrder[k] = v
	}
	return c
}

func (s *MemoryStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	staged := s.st.clone()
	if err := fn(&MemoryStore{mu: s.mu, st: staged, inTx: true}); err != nil {
		return err
	}
	s.st = staged
	return nil
}

// AddPatient and AddDoctor stand in for the identity directory owned by the
// surrounding product.
func (s *MemoryStore) AddPatient(p Patient) {
	defer s.lock()()
	s.st.patients[p.ID] = p
}

func (s *MemoryStore) AddDoctor(d Doctor) {
	defer s.lock()()
	s.st.doctors[d.ID] = d
}

func (s *MemoryStore) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	defer s.lock()()
	p, ok := s.st.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	defer s.lock()()
	d, ok := s.st.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &d, nil
}

func (s *MemoryStore) ListQuestions(_ context.Context, types ...AssessmentType) ([]Question, error) {
	defer s.lock()()
	var out []Question
	for _, q := range s.st.questions {
		if slices.Contains(types, q.AssessmentType) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SaveQuestions(_ context.Context, qs []Question) error {
	defer s.lock()()
	for _, q := range qs {
		s.st.questions[q.ID] = q
	}
	return nil
}

func (s *MemoryStore) CreateOrder(_ context.Context, o *AssessmentOrder) error {
	defer s.lock()()
	s.st.orders[o.ID] = *o
	return nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id uuid.UUID) (*AssessmentOrder, error) {
	defer s.lock()()
	o, ok := s.st.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) TransitionOrder(_ context.Context, id uuid.UUID, from, to OrderStatus, at time.Time) error {
	defer s.lock()()
	o, ok := s.st.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != from {
		return ErrStaleState
	}
	o.Status = to
	o.UpdatedAt = at
	if to == OrderSent {
		sent := at
		o.SentAt = &sent
	}
	s.st.orders[id] = o
	return nil
}

func (s *MemoryStore) ListExpiredOrders(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	defer s.lock()()
	latest := map[uuid.UUID]AssessmentToken{}
	for _, t := range s.st.tokens {
		if cur, ok := latest[t.OrderID]; !ok || t.IssuedAt.After(cur.IssuedAt) {
			latest[t.OrderID] = t
		}
	}
	var out []uuid.UUID
	for id, o := range s.st.orders {
		if o.Status != OrderSent {
			continue
		}
		t, ok := latest[id]
		if ok && t.ConsumedAt == nil && t.Expired(now) {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertToken(_ context.Context, t *AssessmentToken) error {
	defer s.lock()()
	s.st.tokens[t.TokenHash] = *t
	return nil
}

func (s *MemoryStore) GetToken(_ context.Context, tokenHash string) (*AssessmentToken, error) {
	defer s.lock()()
	t, ok := s.st.tokens[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) ConsumeToken(_ context.Context, tokenHash string, at time.Time) error {
	defer s.lock()()
	t, ok := s.st.tokens[tokenHash]
	if !ok {
		return ErrNotFound
	}
	if t.ConsumedAt != nil {
		return ErrStaleState
	}
	consumed := at
	t.ConsumedAt = &consumed
	s.st.tokens[tokenHash] = t
	return nil
}

func (s *MemoryStore) InsertAssessment(_ context.Context, a *Assessment) error {
	defer s.lock()()
	if _, exists := s.st.byOrder[a.OrderID]; exists {
		return ErrStaleState
	}
	cp := *a
	cp.Results = slices.Clone(a.Results)
	cp.Responses = slices.Clone(a.Responses)
	s.st.assessments[a.ID] = cp
	s.st.byOrder[a.OrderID] = a.ID
	return nil
}

func (s *MemoryStore) GetAssessment(_ context.Context, id uuid.UUID) (*Assessment, error) {
	defer s.lock()()
	return s.st.assessment(id)
}

func (s *MemoryStore) GetAssessmentByOrder(_ context.Context, orderID uuid.UUID) (*Assessment, error) {
	defer s.lock()()
	id, ok := s.st.byOrder[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return s.st.assessment(id)
}

func (s *memState) assessment(id uuid.UUID) (*Assessment, error) {
	a, ok := s.assessments[id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Results = slices.Clone(a.Results)
	a.Responses = slices.Clone(a.Responses)
	return &a, nil
}

func (s *MemoryStore) MarkAssessmentReviewed(_ context.Context, id uuid.UUID, reviewer *uuid.UUID, at time.Time) error {
	defer s.lock()()
	a, ok := s.st.assessments[id]
	if !ok {
		return ErrNotFound
	}
	if a.Status != AssessmentCompleted {
		return ErrStaleState
	}
	reviewed := at
	a.Status = AssessmentReviewed
	a.ReviewedAt = &reviewed
	a.ReviewedBy = reviewer
	s.st.assessments[id] = a
	return nil
}
