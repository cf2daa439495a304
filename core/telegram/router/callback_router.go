package router

import (
	"log/slog"

	tg "github.com/m3rciful/unilinkup/core/telegram"
	"github.com/m3rciful/unilinkup/core/telegram/callbacks"
	"github.com/m3rciful/unilinkup/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CallbackOptions customises fallback behaviour for callbacks.
type CallbackOptions struct {
	NotFound tele.HandlerFunc
}

// CallbackRoute returns a handler that routes callbacks through the registry.
// Handlers may answer the query themselves via callbacks.Answer; otherwise an
// empty answer is sent once the handler returns.
func CallbackRoute(reg *tg.Registry, opts CallbackOptions) tg.Route {
	handler := func(c tele.Context) error {
		if c.Callback() == nil {
			return nil
		}
		defer func() { _ = callbacks.Answer(c, "", false) }()

		key := callbacks.CallbackKey(c)
		name := "callback." + handlerName(key)
		keyAttr := slog.String("cb_key", key)

		if h, ok := reg.GetCallback(key); ok && h != nil {
			return dispatch(c, name, h, keyAttr)
		}
		fallback := opts.NotFound
		if fallback == nil {
			fallback = reg.CallbackNotFound()
		}
		if fallback == nil {
			fallback = func(tele.Context) error { return nil }
		}
		return dispatch(c, name, fallback, keyAttr, slog.String("reason", "not_found"))
	}
	return tg.Route{
		Endpoint: tele.OnCallback,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}
}
