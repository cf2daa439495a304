// Package notify turns a completed meetup draft into a Ping and the
// per-friend invitations that announce it.
package notify

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/unilinkup/internal/meetup"
)

// Invitation is the message addressed to one invited friend.
type Invitation struct {
	Recipient string      `json:"recipient"`
	Organizer string      `json:"organizer"`
	Type      meetup.Type `json:"meetup_type"`
	Location  string      `json:"location"`
	// Time is empty for a flexible meetup.
	Time string `json:"time"`
	// Others lists the remaining invitees, never including Recipient.
	Others []string `json:"others"`
}

// Projector builds pings and invitations. It does not touch any store.
type Projector struct {
	now   func() time.Time
	newID func() string
}

// Option customises a Projector.
type Option func(*Projector)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Projector) { p.now = now }
}

// WithIDs overrides the ping id generator.
func WithIDs(newID func() string) Option {
	return func(p *Projector) { p.newID = newID }
}

// NewProjector returns a Projector using wall-clock time and random UUIDs by default.
func NewProjector(opts ...Option) *Projector {
	p := &Projector{now: time.Now, newID: uuid.NewString}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Project snapshots a complete session into a Ping and derives one
// invitation per invited friend, in selection order.
func (p *Projector) Project(s meetup.Session) (meetup.Ping, []Invitation, error) {
	ping, err := meetup.NewPing(p.newID(), s, p.now())
	if err != nil {
		return meetup.Ping{}, nil, fmt.Errorf("project meetup for user %d: %w", s.UserID, err)
	}
	return ping, Invitations(ping), nil
}

// Invitations derives the invitation set of an existing ping.
func Invitations(p meetup.Ping) []Invitation {
	out := make([]Invitation, 0, len(p.InvitedFriends))
	for _, friend := range p.InvitedFriends {
		out = append(out, Invitation{
			Recipient: friend,
			Organizer: p.OrganizerName,
			Type:      p.Type,
			Location:  p.Location,
			Time:      p.Time,
			Others:    p.OthersFor(friend),
		})
	}
	return out
}
