// Package reqctx carries request-scoped data through context.Context.
//
// HTTP middleware sets RequestMeta on every request and an Actor on clinician
// routes. Services read them back to stamp audit entries; they never reach
// into fiber.Ctx directly.
//
//	ctx = reqctx.WithRequestMeta(ctx, &reqctx.RequestMeta{RequestID: "abc-123"})
//	ctx = reqctx.WithActor(ctx, reqctx.Actor{ID: "d-42", Role: "clinician"})
//
//	actor, ok := reqctx.ActorFromContext(ctx)
package reqctx
