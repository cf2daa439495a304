package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/unilinkup/internal/meetup"
)

var fixed = time.Date(2026, 4, 1, 12, 30, 0, 0, time.UTC)

func draft(friends ...string) meetup.Session {
	s := meetup.NewSession(5, "ana", fixed)
	s.Start(meetup.TypeLunch, fixed)
	s.Location = "🍕 Student Union"
	for _, f := range friends {
		s.ToggleFriend(f, fixed)
	}
	return s
}

func TestProjectOneInvitationPerFriend(t *testing.T) {
	t.Parallel()

	p := NewProjector(WithClock(func() time.Time { return fixed }), WithIDs(func() string { return "ping-1" }))
	ping, invs, err := p.Project(draft("Alex", "Sam", "Jordan"))
	require.NoError(t, err)

	assert.Equal(t, "ping-1", ping.ID)
	assert.Equal(t, fixed, ping.CreatedAt)
	require.Len(t, invs, 3)
	for i, friend := range []string{"Alex", "Sam", "Jordan"} {
		assert.Equal(t, friend, invs[i].Recipient)
		assert.NotContains(t, invs[i].Others, friend)
		assert.Len(t, invs[i].Others, 2)
		assert.Equal(t, "ana", invs[i].Organizer)
		assert.Equal(t, "🍕 Student Union", invs[i].Location)
		assert.Equal(t, "", invs[i].Time)
	}
	assert.Equal(t, []string{"Sam", "Jordan"}, invs[0].Others)
}

func TestProjectSingleFriendHasNoOthers(t *testing.T) {
	t.Parallel()

	_, invs, err := NewProjector().Project(draft("Alex"))
	require.NoError(t, err)
	require.Len(t, invs, 1)
	assert.Empty(t, invs[0].Others)
}

func TestProjectIncompleteSession(t *testing.T) {
	t.Parallel()

	_, invs, err := NewProjector().Project(draft())
	assert.ErrorIs(t, err, meetup.ErrIncomplete)
	assert.Nil(t, invs)
}

func TestProjectDoesNotMutateSession(t *testing.T) {
	t.Parallel()

	s := draft("Alex", "Sam")
	before := s.Clone()
	_, _, err := NewProjector().Project(s)
	require.NoError(t, err)
	assert.Equal(t, before, s)
}
