package conversation

import (
	"errors"
	"fmt"
)

// Kind classifies conversation failures.
type Kind string

const (
	// KindValidation is recoverable: the step is repeated with nothing changed.
	KindValidation Kind = "validation"
	// KindWrongState is recoverable: the action does not belong to the current step.
	KindWrongState Kind = "wrong_state"
	// KindInvalidSelection ends the conversation: a roster index was out of range.
	KindInvalidSelection Kind = "invalid_selection"
	// KindMissingSession ends the conversation: there is no meetup in progress.
	KindMissingSession Kind = "missing_session"
	// KindInvariant ends the conversation: the draft was inconsistent when sent.
	KindInvariant Kind = "invariant"
)

// Terminal reports whether errors of kind k end the conversation.
func (k Kind) Terminal() bool {
	switch k {
	case KindInvalidSelection, KindMissingSession, KindInvariant:
		return true
	}
	return false
}

// Error is returned in Result.Err for every rejected action.
type Error struct {
	Kind   Kind
	Action ActionKind
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return fmt.Sprintf("conversation %s (%s): %s", e.Kind, e.Action, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Code feeds the err_code field of handler logs.
func (e *Error) Code() string { return string(e.Kind) }

// KindOf extracts the Kind of err, if it carries one.
func KindOf(err error) (Kind, bool) {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

// IsTerminal reports whether err ends the conversation.
func IsTerminal(err error) bool {
	k, ok := KindOf(err)
	return ok && k.Terminal()
}
