package reqctx

import "context"

// Actor is the clinician or system principal behind a request. Authentication
// happens upstream; the gateway forwards the resolved identity.
type Actor struct {
	ID   string
	Role string
}

// System is the actor used by background jobs such as the expiry sweep.
var System = Actor{ID: "system", Role: "system"}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, keyActor, a)
}

// ActorFromContext returns the actor set by middleware, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(keyActor).(Actor)
	return a, ok && a.ID != ""
}
