package intake

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrIncompleteSubmission = errors.New("incomplete submission")
	ErrScoreOutOfRange      = errors.New("score out of range")
	ErrUnknownQuestion      = errors.New("unknown question")
)

// IncompleteSubmissionError lists every question of the order left unanswered.
type IncompleteSubmissionError struct {
	Missing []int
}

func (e *IncompleteSubmissionError) Error() string {
	return fmt.Sprintf("%s: missing questions %s", ErrIncompleteSubmission, joinIDs(e.Missing))
}

func (e *IncompleteSubmissionError) Is(target error) bool { return target == ErrIncompleteSubmission }

type ScoreOutOfRangeError struct {
	QuestionID int
	Value      int
	Min, Max   int
}

func (e *ScoreOutOfRangeError) Error() string {
	return fmt.Sprintf("%s: question %d scored %d, allowed %d..%d",
		ErrScoreOutOfRange, e.QuestionID, e.Value, e.Min, e.Max)
}

func (e *ScoreOutOfRangeError) Is(target error) bool { return target == ErrScoreOutOfRange }

// UnknownQuestionError lists answered ids that are not part of the order's
// instrument set.
type UnknownQuestionError struct {
	QuestionIDs []int
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnknownQuestion, joinIDs(e.QuestionIDs))
}

func (e *UnknownQuestionError) Is(target error) bool { return target == ErrUnknownQuestion }

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return "[" + strings.Join(parts, ",") + "]"
}
