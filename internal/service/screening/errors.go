package screening

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrAssessmentNotFound     = errors.New("assessment not found")
	ErrPatientNotFound        = errors.New("patient not found")
	ErrDoctorNotFound         = errors.New("doctor not found")
	ErrInvalidAssessment      = errors.New("invalid assessment type")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAuditUnavailable       = errors.New("phi access could not be audited")
)

// InvalidTransitionError names the rejected move. No state was changed.
type InvalidTransitionError struct {
	Op   string
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s: %s cannot move %s -> %s", ErrInvalidStateTransition, e.Op, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidStateTransition }
