package reqctx

import (
	"context"
	"testing"
)

func TestRequestMeta(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("empty ctx request id = %q", got)
	}
	ctx = WithRequestMeta(ctx, &RequestMeta{RequestID: "r-1"})
	if got := RequestIDFromContext(ctx); got != "r-1" {
		t.Fatalf("request id = %q", got)
	}
}

func TestActor(t *testing.T) {
	ctx := context.Background()
	if _, ok := ActorFromContext(ctx); ok {
		t.Fatal("actor found in empty context")
	}
	if _, ok := ActorFromContext(WithActor(ctx, Actor{Role: "clinician"})); ok {
		t.Fatal("actor without id accepted")
	}
	a, ok := ActorFromContext(WithActor(ctx, Actor{ID: "d-1", Role: "clinician"}))
	if !ok || a.ID != "d-1" || a.Role != "clinician" {
		t.Fatalf("actor = %+v, %v", a, ok)
	}
}
