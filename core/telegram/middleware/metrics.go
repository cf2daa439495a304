package middleware

import (
	"time"

	tele "gopkg.in/telebot.v4"
)

const replyStatsKey = "reply_stats"

// replyStats counts what a handler sent back for one update.
type replyStats struct {
	messages int
	keyboard bool
}

// countingContext records every successful reply on the shared replyStats.
type countingContext struct {
	tele.Context
	stats *replyStats
}

func (c countingContext) count(err error, opts []any) error {
	if err != nil {
		return err
	}
	c.stats.messages++
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.SendOptions:
			c.stats.keyboard = c.stats.keyboard || (v != nil && v.ReplyMarkup != nil)
		case *tele.ReplyMarkup:
			c.stats.keyboard = c.stats.keyboard || v != nil
		}
	}
	return nil
}

func (c countingContext) Send(what any, opts ...any) error {
	return c.count(c.Context.Send(what, opts...), opts)
}

func (c countingContext) Reply(what any, opts ...any) error {
	return c.count(c.Context.Reply(what, opts...), opts)
}

func (c countingContext) Edit(what any, opts ...any) error {
	return c.count(c.Context.Edit(what, opts...), opts)
}

func (c countingContext) EditOrSend(what any, opts ...any) error {
	return c.count(c.Context.EditOrSend(what, opts...), opts)
}

// MessageMetricsMiddleware counts the replies sent while handling an update.
// Read the totals with GetCounters.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		stats := &replyStats{}
		c.Set(replyStatsKey, stats)
		return next(countingContext{Context: c, stats: stats})
	}
}

// GetCounters returns how many replies were sent for the update and whether
// any of them carried a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	stats, ok := c.Get(replyStatsKey).(*replyStats)
	if !ok {
		return 0, false
	}
	return stats.messages, stats.keyboard
}

// UpdateSample describes one processed update.
type UpdateSample struct {
	Kind     string
	Err      error
	Duration time.Duration
}

// UpdateKind classifies an update for metrics labels.
func UpdateKind(c tele.Context) string {
	upd := c.Update()
	switch {
	case upd.Callback != nil:
		return "callback"
	case upd.Message != nil && upd.Message.Document != nil:
		return "document"
	case upd.Message != nil && len(upd.Message.Entities) > 0 && upd.Message.Entities[0].Type == tele.EntityCommand:
		return "command"
	case upd.Message != nil:
		return "message"
	default:
		return "other"
	}
}

// UpdateMetricsMiddleware reports every processed update to observe.
func UpdateMetricsMiddleware(observe func(UpdateSample)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		if observe == nil {
			return next
		}
		return func(c tele.Context) error {
			start := time.Now()
			err := next(c)
			observe(UpdateSample{Kind: UpdateKind(c), Err: err, Duration: time.Since(start)})
			return err
		}
	}
}
