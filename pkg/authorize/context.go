package authorize

import (
	"context"
	"errors"

	"github.com/Alijeyrad/simorq_screening/pkg/reqctx"
)

var ErrNoSubjectInContext = errors.New("no actor found in context")

// RoleFromContext returns the policy role of the request actor.
func RoleFromContext(ctx context.Context) (Role, error) {
	actor, ok := reqctx.ActorFromContext(ctx)
	if !ok {
		return "", ErrNoSubjectInContext
	}
	return RoleFromName(actor.Role), nil
}
