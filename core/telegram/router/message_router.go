package router

import (
	tg "github.com/m3rciful/unilinkup/core/telegram"
	"github.com/m3rciful/unilinkup/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is consulted before command lookup so that free text typed during a
// conversation step reaches the conversation instead of the fallbacks.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions sets the handlers for text and documents nobody claimed.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
}

// TextRoutes routes plain text and documents. Text goes to an active
// conversation first, then to a command matched by name or alias, then to
// the registry fallback and finally to UnknownText.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	inConversation := func(c tele.Context) bool {
		return fsm != nil && c.Sender() != nil && fsm.InProgress(c.Sender().ID)
	}

	onText := func(c tele.Context) error {
		if inConversation(c) {
			return dispatch(c, "fsm", fsm.ManagerHandler)
		}
		if reg != nil {
			if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
				return dispatch(c, handlerName(key), cmd.Handler)
			}
			if fb := reg.TextFallback(); fb != nil {
				return dispatch(c, "fallback", fb)
			}
		}
		if opts.UnknownText != nil {
			return dispatch(c, "unknown_text", opts.UnknownText)
		}
		skip(c, "unknown_text")
		return nil
	}

	onDocument := func(c tele.Context) error {
		switch {
		case inConversation(c):
			return dispatch(c, "fsm_document", fsm.ManagerHandler)
		case opts.UnknownDocument != nil:
			return dispatch(c, "unexpected_document", opts.UnknownDocument)
		}
		skip(c, "unexpected_document")
		return nil
	}

	wrap := func(h tele.HandlerFunc) tele.HandlerFunc {
		return middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
	}
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(onText)},
		{Endpoint: tele.OnDocument, Handler: wrap(onDocument)},
	}
}
