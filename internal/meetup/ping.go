package meetup

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrIncomplete is returned when a ping is requested for a draft that lacks
// a type, a location or at least one friend.
var ErrIncomplete = errors.New("meetup: session incomplete")

// Ping is an immutable record of a sent meetup invitation.
type Ping struct {
	ID             string    `json:"id"`
	OrganizerID    int64     `json:"organizer_id"`
	OrganizerName  string    `json:"organizer_name"`
	Type           Type      `json:"meetup_type"`
	Location       string    `json:"location"`
	Time           string    `json:"time"`
	InvitedFriends []string  `json:"invited_friends"`
	CreatedAt      time.Time `json:"timestamp"`
}

// OrganizerLabel returns the name shown for the organizer of s.
func OrganizerLabel(s Session) string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return fmt.Sprintf("User%d", s.UserID)
}

// NewPing snapshots a complete session into a Ping. The friend list is copied
// so later edits to the session cannot reach the ping.
func NewPing(id string, s Session, now time.Time) (Ping, error) {
	if !s.Complete() {
		return Ping{}, ErrIncomplete
	}
	return Ping{
		ID:             id,
		OrganizerID:    s.UserID,
		OrganizerName:  OrganizerLabel(s),
		Type:           s.Type,
		Location:       s.Location,
		Time:           s.TimeValue(),
		InvitedFriends: slices.Clone(s.SelectedFriends),
		CreatedAt:      now,
	}, nil
}

// Clone returns a copy that shares no slice storage with p.
func (p Ping) Clone() Ping {
	p.InvitedFriends = slices.Clone(p.InvitedFriends)
	return p
}

// OthersFor lists the invited friends other than recipient, in invitation order.
func (p Ping) OthersFor(recipient string) []string {
	others := make([]string, 0, len(p.InvitedFriends))
	for _, f := range p.InvitedFriends {
		if f != recipient {
			others = append(others, f)
		}
	}
	return others
}

// Validate checks structural invariants of a ping record.
func (p Ping) Validate() error {
	var errs []error
	if p.OrganizerID == 0 {
		errs = append(errs, errors.New("missing organizer id"))
	}
	if !p.Type.Valid() {
		errs = append(errs, fmt.Errorf("unknown meetup type %q", p.Type))
	}
	if p.Location == "" {
		errs = append(errs, errors.New("missing location"))
	}
	if len(p.InvitedFriends) == 0 {
		errs = append(errs, errors.New("no invited friends"))
	}
	if p.CreatedAt.IsZero() {
		errs = append(errs, errors.New("missing timestamp"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("ping %q: %w", p.ID, errors.Join(errs...))
}

// PingFilter selects pings; zero fields match everything.
type PingFilter struct {
	Type        Type
	Location    string
	OrganizerID int64
}

// Match reports whether p satisfies every non-empty filter field.
func (f PingFilter) Match(p Ping) bool {
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Location != "" && p.Location != f.Location {
		return false
	}
	if f.OrganizerID != 0 && p.OrganizerID != f.OrganizerID {
		return false
	}
	return true
}

// Summary aggregates statistics over a set of pings.
type Summary struct {
	Total            int    `json:"total"`
	Lunch            int    `json:"lunch"`
	Study            int    `json:"study"`
	UniqueOrganizers int    `json:"unique_organizers"`
	UniqueLocations  int    `json:"unique_locations"`
	PopularLocation  string `json:"most_popular_location,omitempty"`
	PopularCount     int    `json:"most_popular_count,omitempty"`
}

// Summarize computes ping statistics. Ties for the most popular location go
// to the location that appears first in pings.
func Summarize(pings []Ping) Summary {
	sum := Summary{Total: len(pings)}
	organizers := make(map[int64]struct{})
	counts := make(map[string]int)
	var order []string
	for _, p := range pings {
		switch p.Type {
		case TypeLunch:
			sum.Lunch++
		case TypeStudy:
			sum.Study++
		}
		organizers[p.OrganizerID] = struct{}{}
		if _, seen := counts[p.Location]; !seen {
			order = append(order, p.Location)
		}
		counts[p.Location]++
	}
	sum.UniqueOrganizers = len(organizers)
	sum.UniqueLocations = len(counts)
	for _, loc := range order {
		if counts[loc] > sum.PopularCount {
			sum.PopularLocation, sum.PopularCount = loc, counts[loc]
		}
	}
	return sum
}
