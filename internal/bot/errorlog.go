package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/unilinkup/core/telegram/helpers"
	"github.com/m3rciful/unilinkup/internal/conversation"
)

// DefaultErrorLogSize is the ring capacity used when none is configured.
const DefaultErrorLogSize = 10

// ErrorEntry is one recorded handler failure.
type ErrorEntry struct {
	At      time.Time `json:"at"`
	Kind    string    `json:"kind"`
	UserID  int64     `json:"user_id,omitempty"`
	Message string    `json:"message"`
}

// ErrorStats summarizes everything recorded since start.
type ErrorStats struct {
	Total  int            `json:"total"`
	ByKind map[string]int `json:"by_kind"`
}

// ErrorLog keeps the most recent handler failures in a bounded ring and
// counts all of them by kind.
type ErrorLog struct {
	mu      sync.Mutex
	entries []ErrorEntry
	next    int
	full    bool
	total   int
	byKind  map[string]int
	now     func() time.Time
}

// NewErrorLog returns an ErrorLog holding up to size entries.
func NewErrorLog(size int) *ErrorLog {
	if size <= 0 {
		size = DefaultErrorLogSize
	}
	return &ErrorLog{
		entries: make([]ErrorEntry, size),
		byKind:  make(map[string]int),
		now:     time.Now,
	}
}

// Record stores err under its derived kind.
func (l *ErrorLog) Record(userID int64, err error) ErrorEntry {
	e := ErrorEntry{Kind: ErrorKind(err), UserID: userID}
	if err != nil {
		e.Message = logger.SanitizeLimit(err.Error(), 256)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	e.At = l.now()
	l.entries[l.next] = e
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
	l.total++
	l.byKind[e.Kind]++
	return e
}

// Recent returns the retained entries, newest first.
func (l *ErrorLog) Recent() []ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := l.next
	if l.full {
		n = len(l.entries)
	}
	out := make([]ErrorEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (l.next - i + len(l.entries)) % len(l.entries)
		out = append(out, l.entries[idx])
	}
	return out
}

// Stats returns the running totals.
func (l *ErrorLog) Stats() ErrorStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	by := make(map[string]int, len(l.byKind))
	for k, v := range l.byKind {
		by[k] = v
	}
	return ErrorStats{Total: l.total, ByKind: by}
}

// OnError is installed as the bot's error hook. It records the failure and,
// for callback updates not yet answered, stops the client spinner.
func (l *ErrorLog) OnError(err error, c tele.Context) {
	ctx := context.Background()
	var userID int64
	if c != nil {
		ctx = tghelpers.BuildContext(c)
		if u := c.Sender(); u != nil {
			userID = u.ID
		}
	}
	e := l.Record(userID, err)
	logger.Error(ctx, "bot", "handler.error",
		slog.String("err_code", e.Kind),
		slog.String("err", e.Message),
	)
	if c != nil && c.Callback() != nil {
		_ = callbacks.Answer(c, msgStartOver, false)
	}
}

// ErrorKind classifies err for counting.
func ErrorKind(err error) string {
	if k, ok := conversation.KindOf(err); ok {
		return string(k)
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "telegram_flood"
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return "telegram_api"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "internal"
}
