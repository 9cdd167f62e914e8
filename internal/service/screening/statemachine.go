package screening

import "github.com/Alijeyrad/simorq_screening/internal/repo"

// orderTransitions is the complete order lifecycle. expired -> pending is the
// clinician's reissue path.
var orderTransitions = map[repo.OrderStatus][]repo.OrderStatus{
	repo.OrderPending: {repo.OrderSent, repo.OrderCancelled},
	repo.OrderSent:    {repo.OrderCompleted, repo.OrderExpired, repo.OrderCancelled},
	repo.OrderExpired: {repo.OrderPending},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to repo.OrderStatus) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func orderTransitionError(op string, from, to repo.OrderStatus) error {
	return &InvalidTransitionError{Op: op, From: string(from), To: string(to)}
}
