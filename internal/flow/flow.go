// Package flow implements the state machine driving one guided entry.
// Apply advances a session by exactly one accepted step; any validation
// failure leaves the session untouched so the interaction layer can
// silently ignore stale or garbled button payloads.
package flow

import (
	"errors"
	"strconv"

	"github.com/m3rciful/memobot/internal/domain"
)

var (
	// ErrStepMismatch is returned when the action tag does not match the
	// session's current step (a stale keyboard press).
	ErrStepMismatch = errors.New("flow: action does not match current step")
	// ErrInvalidValue is returned when the payload fails validation against
	// the step's accepted values.
	ErrInvalidValue = errors.New("flow: invalid value for step")
)

// Transition is the result of one accepted action. Next is empty when the
// flow reached its terminal step and the caller must finalize the session.
type Transition struct {
	Next     domain.Step
	Terminal bool
}

// Apply validates raw against the step matching action, records the answer
// on the session, and advances it. The session is mutated only on success.
func Apply(sess *domain.Session, action domain.Action, raw string) (Transition, error) {
	if domain.ExpectedAction(sess.Step) != action {
		return Transition{}, ErrStepMismatch
	}

	switch action {
	case domain.ActionRating:
		rating, err := strconv.Atoi(raw)
		if err != nil || rating < 1 || rating > 5 {
			return Transition{}, ErrInvalidValue
		}
		sess.Rating = &rating
		sess.Step = domain.StepDuration
		return Transition{Next: domain.StepDuration}, nil

	case domain.ActionDuration:
		code, err := domain.ParseDurationCode(raw)
		if err != nil {
			return Transition{}, ErrInvalidValue
		}
		sess.DurationCode = &code
		sess.Step = domain.StepVolume
		return Transition{Next: domain.StepVolume}, nil

	case domain.ActionVolume:
		code, err := domain.ParseVolumeCode(raw)
		if err != nil {
			return Transition{}, ErrInvalidValue
		}
		sess.VolumeCode = &code
		sess.Step = domain.StepViscosity
		return Transition{Next: domain.StepViscosity}, nil

	case domain.ActionViscosity:
		code, err := domain.ParseViscosityCode(raw)
		if err != nil {
			return Transition{}, ErrInvalidValue
		}
		sess.ViscosityCode = &code
		return Transition{Terminal: true}, nil
	}

	return Transition{}, ErrStepMismatch
}
