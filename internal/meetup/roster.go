package meetup

import (
	"fmt"
	"slices"
	"strings"
)

// DefaultLocations is the built-in campus location roster.
var DefaultLocations = []string{
	"📚 Main Library",
	"☕ Campus Café",
	"🍕 Student Union",
	"🏫 Study Hall A",
	"🌳 Campus Quad",
	"🏃 Recreation Center",
	"🍔 Food Court",
	"🔬 Science Building",
}

// DefaultFriends is the built-in friend roster.
var DefaultFriends = []string{
	"Alex", "Sam", "Jordan", "Casey", "Taylor", "Morgan", "Riley", "Avery",
}

// Roster is an ordered, immutable list of unique names addressed by index.
type Roster struct {
	names []string
}

// NewRoster validates names and builds a roster.
func NewRoster(names []string) (Roster, error) {
	if len(names) == 0 {
		return Roster{}, fmt.Errorf("roster is empty")
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return Roster{}, fmt.Errorf("roster entry %d is blank", i)
		}
		if _, dup := seen[n]; dup {
			return Roster{}, fmt.Errorf("roster entry %q is duplicated", n)
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return Roster{names: out}, nil
}

// MustRoster is NewRoster that panics on invalid input. Intended for static data.
func MustRoster(names []string) Roster {
	r, err := NewRoster(names)
	if err != nil {
		panic(err)
	}
	return r
}

// At returns the entry at index i, or false when i is out of range.
func (r Roster) At(i int) (string, bool) {
	if i < 0 || i >= len(r.names) {
		return "", false
	}
	return r.names[i], true
}

// Index returns the position of name, or false if it is not on the roster.
func (r Roster) Index(name string) (int, bool) {
	i := slices.Index(r.names, name)
	return i, i >= 0
}

// Contains reports whether name is on the roster.
func (r Roster) Contains(name string) bool {
	return slices.Contains(r.names, name)
}

// Len returns the number of entries.
func (r Roster) Len() int { return len(r.names) }

// Names returns a copy of the entries in order.
func (r Roster) Names() []string { return slices.Clone(r.names) }
