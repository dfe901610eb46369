package chat

import (
	"errors"
	"fmt"
	"strings"

	"arxenbot/internal/config"
	"arxenbot/internal/kb"
)

// ErrUnknownAction is returned by Dispatch for actions outside the table.
var ErrUnknownAction = errors.New("unknown chat action")

// DirectiveKind tells the widget what to do with a button press.
type DirectiveKind string

const (
	DirectiveNavigate DirectiveKind = "navigate"
	DirectiveRestart  DirectiveKind = "restart"
	DirectiveClose    DirectiveKind = "close"
)

// Directive is the resolved effect of an action.
type Directive struct {
	Action kb.Action     `json:"action"`
	Kind   DirectiveKind `json:"kind"`
	Target string        `json:"target,omitempty"`
}

// Dispatcher maps every button action to its directive.
type Dispatcher map[kb.Action]Directive

// NewDispatcher builds the dispatch table from the business contact details.
func NewDispatcher(cfg config.EstimateConfig) Dispatcher {
	return Dispatcher{
		kb.ActionOpenEstimate: {Action: kb.ActionOpenEstimate, Kind: DirectiveNavigate, Target: cfg.EstimateURL},
		kb.ActionCallOffice:   {Action: kb.ActionCallOffice, Kind: DirectiveNavigate, Target: "tel:" + dialable(cfg.OfficePhone)},
		kb.ActionEmailOffice:  {Action: kb.ActionEmailOffice, Kind: DirectiveNavigate, Target: "mailto:" + cfg.SupportEmail},
		kb.ActionRestartChat:  {Action: kb.ActionRestartChat, Kind: DirectiveRestart},
		kb.ActionEndChat:      {Action: kb.ActionEndChat, Kind: DirectiveClose},
	}
}

// Dispatch resolves a.
func (d Dispatcher) Dispatch(a kb.Action) (Directive, error) {
	dir, ok := d[a]
	if !ok {
		return Directive{}, fmt.Errorf("%w: %q", ErrUnknownAction, a)
	}
	return dir, nil
}

// dialable keeps the leading + and digits of a phone number.
func dialable(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if (r >= '0' && r <= '9') || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HeaderButtons are always shown above the conversation.
func HeaderButtons() []kb.Button {
	return []kb.Button{
		{Text: "Free Estimate", Action: kb.ActionOpenEstimate},
		{Text: "Call", Action: kb.ActionCallOffice},
		{Text: "Email", Action: kb.ActionEmailOffice},
	}
}
