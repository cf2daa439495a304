package conversation

import (
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/notify"
)

// ActionKind names an input the conversation reacts to.
type ActionKind string

const (
	ActionStartLunch     ActionKind = "start_lunch"
	ActionStartStudy     ActionKind = "start_study"
	ActionSelectLocation ActionKind = "select_location"
	ActionSubmitTime     ActionKind = "submit_time"
	ActionSkipTime       ActionKind = "skip_time"
	ActionToggleFriend   ActionKind = "toggle_friend"
	ActionConfirmFriends ActionKind = "confirm_friends"
	ActionSend           ActionKind = "send"
	ActionCancel         ActionKind = "cancel"
	ActionTimeout        ActionKind = "timeout"
)

// Action is one user (or timer) input addressed to a user's conversation.
type Action struct {
	UserID int64
	Kind   ActionKind
	// Index is the roster position for select_location and toggle_friend.
	Index int
	// Text is the raw input for submit_time.
	Text string
	// DisplayName refreshes the stored name on start actions.
	DisplayName string
}

// Phase is the conversation position reported back to the transport.
type Phase string

const (
	PhaseUnstarted Phase = "unstarted"
	PhaseLocation  Phase = "location"
	PhaseTime      Phase = "time"
	PhaseFriends   Phase = "friends"
	PhaseConfirm   Phase = "confirm"
	PhaseEnded     Phase = "ended"
)

// Active reports whether the conversation is waiting for more input.
func (p Phase) Active() bool {
	switch p {
	case PhaseLocation, PhaseTime, PhaseFriends, PhaseConfirm:
		return true
	}
	return false
}

// PhaseOf maps a stored session state onto a Phase.
func PhaseOf(s meetup.State) Phase {
	switch s {
	case meetup.StateLocation:
		return PhaseLocation
	case meetup.StateTime:
		return PhaseTime
	case meetup.StateFriends:
		return PhaseFriends
	case meetup.StateConfirm:
		return PhaseConfirm
	}
	return PhaseUnstarted
}

// Result is the outcome of applying an Action.
type Result struct {
	Phase   Phase
	Session meetup.Session
	// Ping and Invitations are set only by a successful send.
	Ping        *meetup.Ping
	Invitations []notify.Invitation
	Err         error

	// Friend and FriendAdded describe a successful toggle.
	Friend      string
	FriendAdded bool
	// Discarded is true when cancel or timeout dropped a meetup in progress.
	Discarded bool
}
