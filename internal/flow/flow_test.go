package flow

import (
	"errors"
	"testing"

	"github.com/m3rciful/memobot/internal/domain"
)

func newSession(step domain.Step) *domain.Session {
	return &domain.Session{
		ID:     "7_1700000000000_ab12",
		UserID: 7,
		ChatID: 7,
		Step:   step,
	}
}

func TestApplyAdvancesThroughAllSteps(t *testing.T) {
	sess := newSession(domain.StepRating)

	tr, err := Apply(sess, domain.ActionRating, "4")
	if err != nil {
		t.Fatalf("rating: %v", err)
	}
	if tr.Next != domain.StepDuration || tr.Terminal {
		t.Fatalf("rating transition = %+v", tr)
	}
	if sess.Rating == nil || *sess.Rating != 4 {
		t.Fatalf("rating not recorded: %v", sess.Rating)
	}

	tr, err = Apply(sess, domain.ActionDuration, "LE30")
	if err != nil {
		t.Fatalf("duration: %v", err)
	}
	if tr.Next != domain.StepVolume {
		t.Fatalf("duration transition = %+v", tr)
	}
	if sess.DurationCode == nil || *sess.DurationCode != domain.DurationLE30 {
		t.Fatalf("duration not recorded: %v", sess.DurationCode)
	}

	tr, err = Apply(sess, domain.ActionVolume, "MID")
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if tr.Next != domain.StepViscosity {
		t.Fatalf("volume transition = %+v", tr)
	}

	tr, err = Apply(sess, domain.ActionViscosity, "V5")
	if err != nil {
		t.Fatalf("viscosity: %v", err)
	}
	if !tr.Terminal || tr.Next != "" {
		t.Fatalf("terminal transition = %+v", tr)
	}
	if !sess.Complete() {
		t.Fatal("session should be complete after the terminal step")
	}
}

func TestApplyRatingBounds(t *testing.T) {
	tests := []struct {
		raw string
		ok  bool
	}{
		{"1", true},
		{"2", true},
		{"3", true},
		{"4", true},
		{"5", true},
		{"0", false},
		{"6", false},
		{"-1", false},
		{"abc", false},
		{"", false},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			sess := newSession(domain.StepRating)
			_, err := Apply(sess, domain.ActionRating, tc.raw)
			if tc.ok && err != nil {
				t.Fatalf("expected accept, got %v", err)
			}
			if !tc.ok {
				if !errors.Is(err, ErrInvalidValue) {
					t.Fatalf("expected ErrInvalidValue, got %v", err)
				}
				if sess.Rating != nil || sess.Step != domain.StepRating {
					t.Fatal("rejected value must not mutate the session")
				}
			}
		})
	}
}

func TestApplyUnknownCodesRejected(t *testing.T) {
	tests := []struct {
		step   domain.Step
		action domain.Action
		raw    string
	}{
		{domain.StepDuration, domain.ActionDuration, "LE99"},
		{domain.StepVolume, domain.ActionVolume, "HUGE"},
		{domain.StepViscosity, domain.ActionViscosity, "V9"},
		{domain.StepViscosity, domain.ActionViscosity, ""},
	}
	for _, tc := range tests {
		t.Run(string(tc.step)+"/"+tc.raw, func(t *testing.T) {
			sess := newSession(tc.step)
			before := *sess
			_, err := Apply(sess, tc.action, tc.raw)
			if !errors.Is(err, ErrInvalidValue) {
				t.Fatalf("expected ErrInvalidValue, got %v", err)
			}
			if *sess != before {
				t.Fatal("rejected value must not mutate the session")
			}
		})
	}
}

func TestApplyStepMismatchIsNoop(t *testing.T) {
	sess := newSession(domain.StepVolume)
	rating := 3
	dur := domain.DurationLE10
	sess.Rating = &rating
	sess.DurationCode = &dur
	before := *sess

	// Stale press from the rating keyboard after the session advanced.
	_, err := Apply(sess, domain.ActionRating, "5")
	if !errors.Is(err, ErrStepMismatch) {
		t.Fatalf("expected ErrStepMismatch, got %v", err)
	}
	if *sess != before {
		t.Fatal("mismatched action must leave the session byte-identical")
	}
	if *sess.Rating != 3 {
		t.Fatalf("rating changed: %d", *sess.Rating)
	}
}

func TestApplyNeverMovesBackward(t *testing.T) {
	order := []domain.Step{domain.StepRating, domain.StepDuration, domain.StepVolume, domain.StepViscosity}
	values := map[domain.Step]string{
		domain.StepRating:    "2",
		domain.StepDuration:  "GT60",
		domain.StepVolume:    "LOW",
		domain.StepViscosity: "V1",
	}

	sess := newSession(domain.StepRating)
	for i, step := range order {
		if sess.Step != step {
			t.Fatalf("step %d: at %s, want %s", i, sess.Step, step)
		}
		tr, err := Apply(sess, domain.ExpectedAction(step), values[step])
		if err != nil {
			t.Fatalf("step %s: %v", step, err)
		}
		if tr.Terminal {
			if i != len(order)-1 {
				t.Fatalf("terminal reached early at %s", step)
			}
			return
		}
		if tr.Next != order[i+1] {
			t.Fatalf("step %s advanced to %s, want %s", step, tr.Next, order[i+1])
		}
	}
}
