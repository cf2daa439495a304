package meetup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeSession(t *testing.T) Session {
	t.Helper()
	s := NewSession(42, "ana", t0)
	s.Start(TypeLunch, t0)
	s.Location = "☕ Campus Café"
	s.SetTime("12:30", t0)
	s.ToggleFriend("Alex", t0)
	s.ToggleFriend("Sam", t0)
	require.True(t, s.Complete())
	return s
}

func TestNewPingSnapshotsFriends(t *testing.T) {
	t.Parallel()

	s := completeSession(t)
	p, err := NewPing("p1", s, t0)
	require.NoError(t, err)

	s.ToggleFriend("Jordan", t0)
	s.SelectedFriends[0] = "Mallory"

	assert.Equal(t, []string{"Alex", "Sam"}, p.InvitedFriends)
	assert.Equal(t, "ana", p.OrganizerName)
	assert.Equal(t, "12:30", p.Time)
	assert.Equal(t, TypeLunch, p.Type)
}

func TestNewPingRejectsIncomplete(t *testing.T) {
	t.Parallel()

	s := NewSession(1, "", t0)
	s.Start(TypeStudy, t0)
	s.Location = "🌳 Campus Quad"
	_, err := NewPing("p", s, t0)
	assert.ErrorIs(t, err, ErrIncomplete)
}

func TestOrganizerLabelFallback(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "User99", OrganizerLabel(NewSession(99, "", t0)))
}

func TestPingOthersForExcludesRecipient(t *testing.T) {
	t.Parallel()

	p := Ping{InvitedFriends: []string{"Alex", "Sam", "Jordan"}}
	assert.Equal(t, []string{"Alex", "Jordan"}, p.OthersFor("Sam"))
	assert.Equal(t, []string{"Alex", "Sam", "Jordan"}, p.OthersFor("Nobody"))
	assert.Empty(t, Ping{InvitedFriends: []string{"Alex"}}.OthersFor("Alex"))
}

func TestPingFilter(t *testing.T) {
	t.Parallel()

	p := Ping{Type: TypeStudy, Location: "🏫 Study Hall A", OrganizerID: 7}
	assert.True(t, PingFilter{}.Match(p))
	assert.True(t, PingFilter{OrganizerID: 7}.Match(p))
	assert.False(t, PingFilter{Type: TypeStudy, OrganizerID: 8}.Match(p))
	assert.True(t, PingFilter{Type: TypeStudy}.Match(p))
	assert.False(t, PingFilter{Type: TypeLunch}.Match(p))
	assert.True(t, PingFilter{Type: TypeStudy, Location: "🏫 Study Hall A"}.Match(p))
	assert.False(t, PingFilter{Type: TypeStudy, Location: "🍔 Food Court"}.Match(p))
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	now := time.Now()
	pings := []Ping{
		{OrganizerID: 1, Type: TypeLunch, Location: "A", CreatedAt: now},
		{OrganizerID: 2, Type: TypeStudy, Location: "B", CreatedAt: now},
		{OrganizerID: 1, Type: TypeLunch, Location: "B", CreatedAt: now},
		{OrganizerID: 3, Type: TypeLunch, Location: "A", CreatedAt: now},
	}
	sum := Summarize(pings)
	assert.Equal(t, Summary{
		Total: 4, Lunch: 3, Study: 1,
		UniqueOrganizers: 3, UniqueLocations: 2,
		PopularLocation: "A", PopularCount: 2,
	}, sum)

	assert.Equal(t, Summary{}, Summarize(nil))
}
