package meetup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

func TestSessionToggleFriendIsIdempotentInPairs(t *testing.T) {
	t.Parallel()

	s := NewSession(1, "ana", t0)
	s.Start(TypeLunch, t0)
	s.Location = DefaultLocations[0]

	assert.True(t, s.ToggleFriend("Alex", t0))
	assert.True(t, s.ToggleFriend("Sam", t0))
	before := s.Clone()

	assert.True(t, s.ToggleFriend("Jordan", t0))
	assert.False(t, s.ToggleFriend("Jordan", t0))
	assert.Equal(t, before.SelectedFriends, s.SelectedFriends)
}

func TestSessionToggleKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	s := NewSession(1, "", t0)
	s.ToggleFriend("Casey", t0)
	s.ToggleFriend("Alex", t0)
	s.ToggleFriend("Riley", t0)
	s.ToggleFriend("Alex", t0)
	assert.Equal(t, []string{"Casey", "Riley"}, s.SelectedFriends)
}

func TestSessionCompleteAndReset(t *testing.T) {
	t.Parallel()

	s := NewSession(7, "ana", t0)
	assert.False(t, s.Complete())

	s.Start(TypeStudy, t0)
	s.Location = "📚 Main Library"
	assert.False(t, s.Complete(), "no friends yet")
	s.ToggleFriend("Alex", t0)
	assert.True(t, s.Complete())

	later := t0.Add(time.Minute)
	s.Reset(later)
	assert.Equal(t, StateNone, s.State)
	assert.Equal(t, Type(""), s.Type)
	assert.Empty(t, s.Location)
	assert.Nil(t, s.Time)
	assert.Empty(t, s.SelectedFriends)
	assert.Equal(t, int64(7), s.UserID)
	assert.Equal(t, "ana", s.DisplayName)
	assert.Equal(t, later, s.LastActivity)
}

func TestSessionTouchNeverMovesBackwards(t *testing.T) {
	t.Parallel()

	s := NewSession(1, "", t0)
	s.Touch(t0.Add(-time.Hour))
	assert.Equal(t, t0, s.LastActivity)
	s.Touch(t0.Add(time.Second))
	assert.Equal(t, t0.Add(time.Second), s.LastActivity)
}

func TestSessionTimeDistinguishesUnsetFromFlexible(t *testing.T) {
	t.Parallel()

	s := NewSession(1, "", t0)
	assert.Nil(t, s.Time)
	s.SetTime("", t0)
	require.NotNil(t, s.Time)
	assert.Equal(t, "", s.TimeValue())
	s.SetTime("12:30", t0)
	assert.Equal(t, "12:30", s.TimeValue())
}

func TestSessionCloneDoesNotAlias(t *testing.T) {
	t.Parallel()

	s := NewSession(1, "", t0)
	s.ToggleFriend("Alex", t0)
	s.SetTime("noon", t0)

	c := s.Clone()
	c.SelectedFriends[0] = "Mallory"
	*c.Time = "midnight"

	assert.Equal(t, "Alex", s.SelectedFriends[0])
	assert.Equal(t, "noon", s.TimeValue())
}

func TestSessionValidate(t *testing.T) {
	t.Parallel()

	ok := NewSession(1, "ana", t0)
	ok.Start(TypeLunch, t0)
	require.NoError(t, ok.Validate())

	bad := ok.Clone()
	bad.State = StateFriends
	assert.Error(t, bad.Validate(), "friends state without location")

	bad = ok.Clone()
	bad.Type = "brunch"
	assert.Error(t, bad.Validate())

	bad = ok.Clone()
	bad.Location = "Quad"
	bad.SelectedFriends = []string{"Alex", "Alex"}
	assert.Error(t, bad.Validate())

	bad = ok.Clone()
	bad.UserID = 0
	assert.Error(t, bad.Validate())
}

func TestParseType(t *testing.T) {
	t.Parallel()

	got, ok := ParseType(" Lunch ")
	assert.True(t, ok)
	assert.Equal(t, TypeLunch, got)
	_, ok = ParseType("brunch")
	assert.False(t, ok)
}
