package estimate

import (
	"errors"
	"fmt"
)

// Step is a wizard page.
type Step int

const (
	StepServices Step = iota + 1
	StepDetails
	StepContact
	StepReview
)

func (s Step) String() string {
	switch s {
	case StepServices:
		return "services"
	case StepDetails:
		return "details"
	case StepContact:
		return "contact"
	case StepReview:
		return "review"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// Valid reports whether s is one of the four steps.
func (s Step) Valid() bool {
	return s >= StepServices && s <= StepReview
}

var (
	// ErrStepBlocked is returned by Next when the current step has errors.
	ErrStepBlocked = errors.New("current step is incomplete")
	ErrFirstStep   = errors.New("already at the first step")
	ErrLastStep    = errors.New("already at the last step")
	ErrSubmitted   = errors.New("estimate already submitted")
)

// Wizard is the wizard state: the current step and the form data.
type Wizard struct {
	Step               Step     `json:"step"`
	Data               FormData `json:"data"`
	SubmissionComplete bool     `json:"submission_complete"`
	ReferenceNumber    string   `json:"reference_number,omitempty"`
}

// New starts a wizard at step 1 with empty data.
func New() *Wizard {
	return &Wizard{Step: StepServices}
}

// CanProceed reports whether the current step has no validation errors.
func (w *Wizard) CanProceed() bool {
	return len(Errors(w.Step, w.Data)) == 0
}

// Next advances one step if the current step is complete.
func (w *Wizard) Next() error {
	if w.SubmissionComplete {
		return ErrSubmitted
	}
	if w.Step >= StepReview {
		return ErrLastStep
	}
	if errs := Errors(w.Step, w.Data); len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrStepBlocked, w.Step, errs[0].Message)
	}
	w.Step++
	return nil
}

// Previous goes back one step. Going back is never gated.
func (w *Wizard) Previous() error {
	if w.SubmissionComplete {
		return ErrSubmitted
	}
	if w.Step <= StepServices {
		return ErrFirstStep
	}
	w.Step--
	return nil
}

// Complete marks the wizard as submitted under ref.
func (w *Wizard) Complete(ref string) {
	w.SubmissionComplete = true
	w.ReferenceNumber = ref
}

// Resume builds a wizard from full form data, advancing through each step in
// order. It stops at the first incomplete step and returns that step's errors,
// so a client can never skip past an invalid step.
func Resume(data FormData) (*Wizard, []FieldError) {
	data.derive()
	w := &Wizard{Step: StepServices, Data: data}
	for w.Next() == nil {
	}
	return w, Errors(w.Step, w.Data)
}

// Promo returns the promotion matching the entered promo code, if any.
func (w *Wizard) Promo() (Promo, bool) {
	return LookupPromo(w.Data.ContactInfo.PromoCode)
}

// Update merges patch into one section of the form data.
func (w *Wizard) Update(section Section, patch []byte) error {
	if w.SubmissionComplete {
		return ErrSubmitted
	}
	return w.Data.Merge(section, patch)
}
