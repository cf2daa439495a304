package middleware

import (
	"log/slog"

	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/unilinkup/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const receiptLoggedKey = "update_logged"

// LoggerMiddleware attaches the request context (rid and update metadata) to
// c and logs one sampled debug receipt per update, however many times the
// middleware appears in the chain.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		if logged, _ := c.Get(receiptLoggedKey).(bool); !logged {
			c.Set(receiptLoggedKey, true)
			if logger.ShouldSampleDebug() {
				logger.Debug(ctx, "tg", "update.received", receiptAttrs(c)...)
			}
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if u := c.Sender(); u != nil {
		if u.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(u.Username, 64)))
		}
		if u.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", u.LanguageCode))
		}
	}

	var payload string
	if cb := c.Callback(); cb != nil {
		var key string
		key, payload = callbacks.ParseCallbackData(cb)
		if key != "" {
			attrs = append(attrs, slog.String("cb_key", logger.SanitizeLimit(key, 128)))
		}
	} else if c.Message() != nil {
		payload = c.Text()
	}
	if payload != "" {
		attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(payload, 256)))
	}
	return attrs
}
