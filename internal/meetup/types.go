package meetup

import "strings"

// Type is the kind of meetup being organized.
type Type string

const (
	TypeLunch Type = "lunch"
	TypeStudy Type = "study"
)

// ParseType maps user-facing input onto a Type.
func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeLunch:
		return TypeLunch, true
	case TypeStudy:
		return TypeStudy, true
	}
	return "", false
}

// Valid reports whether t is one of the known meetup types.
func (t Type) Valid() bool {
	return t == TypeLunch || t == TypeStudy
}

// State is the conversation step a session is waiting on.
type State string

const (
	StateNone     State = ""
	StateLocation State = "location"
	StateTime     State = "time"
	StateFriends  State = "friends"
	StateConfirm  State = "confirm"
)

// Active reports whether a meetup draft is in progress.
func (s State) Active() bool {
	return s != StateNone
}

// Valid reports whether s is a known state, including StateNone.
func (s State) Valid() bool {
	switch s {
	case StateNone, StateLocation, StateTime, StateFriends, StateConfirm:
		return true
	}
	return false
}

// Order returns the position of s in the forward progression, StateNone being 0.
func (s State) Order() int {
	switch s {
	case StateLocation:
		return 1
	case StateTime:
		return 2
	case StateFriends:
		return 3
	case StateConfirm:
		return 4
	}
	return 0
}
