package meetup

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Session is the per-user conversation record. Meetup fields are wiped on
// reset; identity and timestamps survive.
type Session struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"username,omitempty"`

	State    State  `json:"current_state,omitempty"`
	Type     Type   `json:"meetup_type,omitempty"`
	Location string `json:"location,omitempty"`
	// Time is nil until the time step ran; an empty string means flexible.
	Time            *string  `json:"time,omitempty"`
	SelectedFriends []string `json:"selected_friends"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession returns an identity-only session.
func NewSession(userID int64, displayName string, now time.Time) Session {
	return Session{
		UserID:          userID,
		DisplayName:     displayName,
		SelectedFriends: []string{},
		CreatedAt:       now,
		LastActivity:    now,
	}
}

// Touch moves LastActivity forward. It never moves backwards.
func (s *Session) Touch(now time.Time) {
	if now.After(s.LastActivity) {
		s.LastActivity = now
	}
}

// Reset clears the meetup draft and keeps the identity.
func (s *Session) Reset(now time.Time) {
	s.State = StateNone
	s.Type = ""
	s.Location = ""
	s.Time = nil
	s.SelectedFriends = []string{}
	s.Touch(now)
}

// Start resets the draft and begins a new meetup of type t.
func (s *Session) Start(t Type, now time.Time) {
	s.Reset(now)
	s.Type = t
	s.State = StateLocation
}

// SetTime records the meetup time; an empty value means flexible.
func (s *Session) SetTime(value string, now time.Time) {
	s.Time = &value
	s.Touch(now)
}

// ToggleFriend adds name when absent and removes it otherwise. It reports
// whether name is selected afterwards.
func (s *Session) ToggleFriend(name string, now time.Time) bool {
	defer s.Touch(now)
	if i := slices.Index(s.SelectedFriends, name); i >= 0 {
		s.SelectedFriends = slices.Delete(s.SelectedFriends, i, i+1)
		return false
	}
	s.SelectedFriends = append(s.SelectedFriends, name)
	return true
}

// HasFriend reports whether name is currently selected.
func (s Session) HasFriend(name string) bool {
	return slices.Contains(s.SelectedFriends, name)
}

// Complete reports whether the draft can be sent.
func (s Session) Complete() bool {
	return s.Type.Valid() && s.Location != "" && len(s.SelectedFriends) > 0
}

// TimeValue returns the chosen time, or "" when flexible or unset.
func (s Session) TimeValue() string {
	if s.Time == nil {
		return ""
	}
	return *s.Time
}

// Clone returns a deep copy that shares no mutable state with s.
func (s Session) Clone() Session {
	out := s
	out.SelectedFriends = slices.Clone(s.SelectedFriends)
	if out.SelectedFriends == nil {
		out.SelectedFriends = []string{}
	}
	if s.Time != nil {
		t := *s.Time
		out.Time = &t
	}
	return out
}

// Validate checks structural invariants of a session record.
func (s Session) Validate() error {
	var errs []error
	if s.UserID == 0 {
		errs = append(errs, errors.New("missing user id"))
	}
	if !s.State.Valid() {
		errs = append(errs, fmt.Errorf("unknown state %q", s.State))
	}
	if s.Type != "" && !s.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown meetup type %q", s.Type))
	}
	if s.State.Active() && !s.Type.Valid() {
		errs = append(errs, fmt.Errorf("state %q without meetup type", s.State))
	}
	if s.State.Order() > StateLocation.Order() && s.Location == "" {
		errs = append(errs, fmt.Errorf("state %q without location", s.State))
	}
	if len(s.SelectedFriends) > 0 && s.Location == "" {
		errs = append(errs, errors.New("friends selected before location"))
	}
	seen := make(map[string]struct{}, len(s.SelectedFriends))
	for _, f := range s.SelectedFriends {
		if _, dup := seen[f]; dup {
			errs = append(errs, fmt.Errorf("duplicate friend %q", f))
		}
		seen[f] = struct{}{}
	}
	if s.CreatedAt.IsZero() {
		errs = append(errs, errors.New("missing created_at"))
	}
	if s.LastActivity.Before(s.CreatedAt) {
		errs = append(errs, errors.New("last_activity before created_at"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("session %d: %w", s.UserID, errors.Join(errs...))
}
