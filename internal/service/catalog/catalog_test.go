package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/Alijeyrad/simorq_screening/internal/repo"
)

func seeded(t *testing.T) (Service, *repo.MemoryStore) {
	t.Helper()
	store := repo.NewMemoryStore()
	svc := New(store)
	n, err := svc.Seed(context.Background())
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 16 {
		t.Fatalf("seeded %d questions, want 16", n)
	}
	return svc, store
}

func TestStandard_Shape(t *testing.T) {
	var phq, gad, selfHarm int
	for _, q := range Standard() {
		if q.MinScore != 0 || q.MaxScore != 3 {
			t.Errorf("question %d range = [%d,%d]", q.ID, q.MinScore, q.MaxScore)
		}
		switch q.AssessmentType {
		case repo.TypePHQ9:
			phq++
		case repo.TypeGAD7:
			gad++
		}
		if q.SelfHarm {
			selfHarm++
			if q.ID != PHQ9SelfHarmItem || q.AssessmentType != repo.TypePHQ9 {
				t.Errorf("self-harm flag on question %d (%s)", q.ID, q.AssessmentType)
			}
		}
	}
	if phq != 9 || gad != 7 || selfHarm != 1 {
		t.Fatalf("phq=%d gad=%d selfHarm=%d", phq, gad, selfHarm)
	}
}

func TestLoadQuestions(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	tests := []struct {
		typ     repo.AssessmentType
		wantLen int
		first   []int
	}{
		{repo.TypePHQ9, 9, []int{1, 2, 3}},
		{repo.TypeGAD7, 7, []int{10, 11, 12}},
		// Stable by order_num: each PHQ-9 item precedes the GAD-7 item of the same rank.
		{repo.TypeComprehensive, 16, []int{1, 10, 2, 11}},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			qs, err := svc.LoadQuestions(ctx, tt.typ)
			if err != nil {
				t.Fatalf("LoadQuestions: %v", err)
			}
			if len(qs) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(qs), tt.wantLen)
			}
			for i, id := range tt.first {
				if qs[i].ID != id {
					t.Errorf("qs[%d].ID = %d, want %d", i, qs[i].ID, id)
				}
			}
			for i := 1; i < len(qs); i++ {
				if qs[i].OrderNum < qs[i-1].OrderNum {
					t.Fatalf("order_num not ascending at %d", i)
				}
			}
		})
	}
}

func TestLoadQuestions_UnknownType(t *testing.T) {
	svc, _ := seeded(t)
	_, err := svc.LoadQuestions(context.Background(), "BDI-II")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v, want ErrUnknownType", err)
	}
}

func TestRetire_HidesButKeeps(t *testing.T) {
	svc, store := seeded(t)
	ctx := context.Background()

	if err := svc.Retire(ctx, 3); err != nil {
		t.Fatalf("Retire: %v", err)
	}
	qs, err := svc.LoadQuestions(ctx, repo.TypePHQ9)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 8 {
		t.Fatalf("active PHQ-9 items = %d, want 8", len(qs))
	}
	all, _ := store.ListQuestions(ctx, repo.TypePHQ9)
	if len(all) != 9 {
		t.Fatalf("stored PHQ-9 items = %d, want 9", len(all))
	}

	// Reseeding must not resurrect the retired item.
	if n, err := svc.Seed(ctx); err != nil || n != 0 {
		t.Fatalf("reseed = %d, %v; want 0, nil", n, err)
	}
	if err := svc.Retire(ctx, 99); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("retire unknown err = %v", err)
	}
}

func TestRetire_SelfHarmItemRefused(t *testing.T) {
	svc, _ := seeded(t)
	ctx := context.Background()

	if err := svc.Retire(ctx, PHQ9SelfHarmItem); !errors.Is(err, ErrSelfHarmItem) {
		t.Fatalf("err = %v, want ErrSelfHarmItem", err)
	}
	qs, err := svc.LoadQuestions(ctx, repo.TypePHQ9)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 9 || !qs[8].SelfHarm {
		t.Fatalf("PHQ-9 items = %d, last self-harm = %v", len(qs), qs[len(qs)-1].SelfHarm)
	}
}

func TestLoadQuestions_SelfHarmMissing(t *testing.T) {
	svc, store := seeded(t)
	ctx := context.Background()

	// A row retired outside Retire, e.g. by hand in the database.
	all, _ := store.ListQuestions(ctx, repo.TypePHQ9)
	for _, q := range all {
		if q.SelfHarm {
			q.Retired = true
			if err := store.SaveQuestions(ctx, []repo.Question{q}); err != nil {
				t.Fatal(err)
			}
		}
	}

	for _, typ := range []repo.AssessmentType{repo.TypePHQ9, repo.TypeComprehensive} {
		if _, err := svc.LoadQuestions(ctx, typ); !errors.Is(err, ErrSelfHarmMissing) {
			t.Fatalf("%s: err = %v, want ErrSelfHarmMissing", typ, err)
		}
	}
	if _, err := svc.LoadQuestions(ctx, repo.TypeGAD7); err != nil {
		t.Fatalf("GAD-7 unaffected: %v", err)
	}

	// Reseeding restores the item.
	if n, err := svc.Seed(ctx); err != nil || n != 1 {
		t.Fatalf("reseed = %d, %v; want 1, nil", n, err)
	}
	if _, err := svc.LoadQuestions(ctx, repo.TypePHQ9); err != nil {
		t.Fatalf("after reseed: %v", err)
	}
}
