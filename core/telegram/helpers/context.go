package helpers

import (
	"context"

	"github.com/m3rciful/unilinkup/core/logger"

	tele "gopkg.in/telebot.v4"
)

const (
	contextKey = "logger_ctx"
	ridKey     = "rid"
)

// StoreContext caches ctx on c for later handlers of the same update.
func StoreContext(c tele.Context, ctx context.Context) {
	if c != nil && ctx != nil {
		c.Set(contextKey, ctx)
	}
}

// ContextFrom returns the context cached on c, if any.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(contextKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the logging context for the update behind c. The
// first call derives the rid and update metadata and caches the result.
func BuildContext(c tele.Context) context.Context {
	if ctx, ok := ContextFrom(c); ok {
		return ctx
	}

	var m logger.Meta
	m.UpdateID = c.Update().ID
	if chat := c.Chat(); chat != nil {
		m.ChatID = chat.ID
	}
	if u := c.Sender(); u != nil {
		m.UserID = u.ID
	}
	m.RID, _ = c.Get(ridKey).(string)
	if m.RID == "" {
		m.RID = logger.BuildRID(m.UpdateID, m.ChatID, m.UserID)
		c.Set(ridKey, m.RID)
	}

	ctx := logger.WithLogger(logger.WithMeta(context.Background(), m), logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler records handler in the cached context and returns it.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler != "" {
		ctx = logger.WithHandler(ctx, handler)
		StoreContext(c, ctx)
	}
	return ctx
}
