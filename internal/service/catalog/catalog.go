package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
)

var (
	ErrUnknownType  = errors.New("unknown assessment type")
	ErrEmptyCatalog = errors.New("no active questions for assessment type")
	// ErrSelfHarmItem is returned when retiring the PHQ-9 self-harm item.
	ErrSelfHarmItem = errors.New("the self-harm item cannot be retired")
	// ErrSelfHarmMissing means the PHQ-9 catalog lost its active self-harm
	// item; administering it would silently drop the suicide-risk signal.
	ErrSelfHarmMissing = errors.New("PHQ-9 catalog has no active self-harm item")
)

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

type Service interface {
	// LoadQuestions returns the active items administered for t, ordered by
	// order_num ascending. Ties keep instrument order (PHQ-9 before GAD-7).
	LoadQuestions(ctx context.Context, t repo.AssessmentType) ([]repo.Question, error)
	// Seed writes any standard item that is missing or whose text drifted.
	// Existing rows keep their retired flag, except the self-harm item,
	// which is always restored.
	Seed(ctx context.Context) (int, error)
	// Retire hides an item from future questionnaires. The self-harm item
	// is refused with ErrSelfHarmItem.
	Retire(ctx context.Context, questionID int) error
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type service struct {
	store repo.Store
}

func New(store repo.Store) Service {
	return &service{store: store}
}

func (s *service) LoadQuestions(ctx context.Context, t repo.AssessmentType) ([]repo.Question, error) {
	instruments := t.Instruments()
	if len(instruments) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t)
	}

	all, err := s.store.ListQuestions(ctx, instruments...)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}

	byInstrument := lo.GroupBy(lo.Reject(all, func(q repo.Question, _ int) bool {
		return q.Retired
	}), func(q repo.Question) repo.AssessmentType {
		return q.AssessmentType
	})

	var out []repo.Question
	for _, inst := range instruments {
		items := byInstrument[inst]
		if len(items) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, inst)
		}
		if inst == repo.TypePHQ9 && !lo.ContainsBy(items, func(q repo.Question) bool { return q.SelfHarm }) {
			return nil, ErrSelfHarmMissing
		}
		slices.SortFunc(items, func(a, b repo.Question) int { return a.ID - b.ID })
		out = append(out, items...)
	}

	slices.SortStableFunc(out, func(a, b repo.Question) int { return a.OrderNum - b.OrderNum })
	return out, nil
}

func (s *service) Seed(ctx context.Context) (int, error) {
	existing, err := s.store.ListQuestions(ctx, repo.TypePHQ9, repo.TypeGAD7)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}
	current := lo.KeyBy(existing, func(q repo.Question) int { return q.ID })

	var changed []repo.Question
	for _, q := range Standard() {
		old, ok := current[q.ID]
		if ok && old.Text == q.Text && old.SelfHarm == q.SelfHarm && !(old.Retired && q.SelfHarm) {
			continue
		}
		if ok {
			q.Retired = old.Retired && !q.SelfHarm
		}
		changed = append(changed, q)
	}
	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.store.SaveQuestions(ctx, changed); err != nil {
		return 0, fmt.Errorf("save questions: %w", err)
	}
	return len(changed), nil
}

// Historical responses keep referencing retired items, so items are never
// deleted.
func (s *service) Retire(ctx context.Context, questionID int) error {
	all, err := s.store.ListQuestions(ctx, repo.TypePHQ9, repo.TypeGAD7)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	q, ok := lo.Find(all, func(q repo.Question) bool { return q.ID == questionID })
	if !ok {
		return fmt.Errorf("question %d: %w", questionID, repo.ErrNotFound)
	}
	if q.SelfHarm {
		return fmt.Errorf("question %d: %w", questionID, ErrSelfHarmItem)
	}
	if q.Retired {
		return nil
	}
	q.Retired = true
	return s.store.SaveQuestions(ctx, []repo.Question{q})
}
