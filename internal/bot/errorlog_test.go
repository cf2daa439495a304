package bot

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/unilinkup/internal/conversation"
)

func TestErrorLogKeepsNewestEntries(t *testing.T) {
	t.Parallel()
	l := NewErrorLog(2)

	l.Record(1, errors.New("first"))
	l.Record(2, errors.New("second"))
	l.Record(3, &conversation.Error{Kind: conversation.KindInvariant, Msg: "third"})

	recent := l.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, int64(3), recent[0].UserID)
	assert.Equal(t, "invariant", recent[0].Kind)
	assert.Equal(t, int64(2), recent[1].UserID)

	stats := l.Stats()
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByKind["internal"])
	assert.Equal(t, 1, stats.ByKind["invariant"])
}

func TestErrorLogDefaultsAndPartialRing(t *testing.T) {
	t.Parallel()
	l := NewErrorLog(0)
	assert.Empty(t, l.Recent())
	l.Record(5, context.DeadlineExceeded)
	recent := l.Recent()
	require.Len(t, recent, 1)
	assert.Equal(t, "timeout", recent[0].Kind)
	assert.Len(t, l.entries, DefaultErrorLogSize)
}

func TestErrorKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "missing_session", ErrorKind(fmt.Errorf("wrap: %w", &conversation.Error{Kind: conversation.KindMissingSession})))
	assert.Equal(t, "telegram_api", ErrorKind(tele.ErrBlockedByUser))
	assert.Equal(t, "internal", ErrorKind(errors.New("x")))
}

func TestOnErrorRecordsAndAnswersCallback(t *testing.T) {
	t.Parallel()
	l := NewErrorLog(3)
	c := newCallbackContext(ana, CallbackFriend, "0")

	l.OnError(errors.New("boom"), c)
	assert.Equal(t, 1, l.Stats().Total)
	assert.Equal(t, ana.ID, l.Recent()[0].UserID)
	require.Len(t, c.responses, 1)
	assert.Equal(t, msgStartOver, c.responses[0].Text)

	l.OnError(errors.New("no update"), nil)
	assert.Equal(t, 2, l.Stats().Total)
}
