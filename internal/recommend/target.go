package recommend

import "github.com/cpcoach/backend/internal/models"

const (
	AcceptedStep    = 100
	WrongAnswerStep = 50

	// OffsetStep is the increment the UI adjusts the manual offset by.
	OffsetStep = 100
	MaxOffset  = 500
)

// ComputeTarget maps the user's rating, last attempt outcome and manual
// offset to the ideal difficulty of the next problem.
//
// accepted:     rating + 100
// wrong_answer: rating - 50
// none:         rating
//
// The offset is added afterwards and the result never drops below 0.
// There is no upper bound. A target above every catalog rating falls
// through to the easiest-available fallback.
func ComputeTarget(userRating int, last models.Outcome, offset int) int {
	target := userRating
	switch last {
	case models.OutcomeAccepted:
		target += AcceptedStep
	case models.OutcomeWrongAnswer:
		target -= WrongAnswerStep
	}
	target += offset
	if target < 0 {
		target = 0
	}
	return target
}

// ApplyTopicFloor raises target to the highest rating already solved in the
// topic.
func ApplyTopicFloor(target, topicMaxSolved int) int {
	if topicMaxSolved > target {
		return topicMaxSolved
	}
	return target
}

// ClampOffset bounds a stored manual offset to [-MaxOffset, MaxOffset].
func ClampOffset(offset int) int {
	if offset < -MaxOffset {
		return -MaxOffset
	}
	if offset > MaxOffset {
		return MaxOffset
	}
	return offset
}
