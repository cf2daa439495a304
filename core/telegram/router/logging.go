package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/unilinkup/core/logger"
	tghelpers "github.com/m3rciful/unilinkup/core/telegram/helpers"
	"github.com/m3rciful/unilinkup/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// dispatch runs fn as the named handler and logs one handler.handled line.
func dispatch(c tele.Context, name string, fn tele.HandlerFunc, extras ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)
	err := fn(c)
	status := "ok"
	if err != nil {
		status = "fail"
	}
	logHandled(ctx, c, status, start, err, extras...)
	return err
}

// skip logs that no handler took the update.
func skip(c tele.Context, name string) {
	logHandled(tghelpers.WithHandler(c, name), c, "skip", time.Now(), nil)
}

func logHandled(ctx context.Context, c tele.Context, status string, start time.Time, err error, extras ...slog.Attr) {
	msgs, kb := middleware.GetCounters(c)
	outcome := "ok"
	if err != nil {
		outcome = "fail"
	}
	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.Info(ctx, "tg", "handler.handled", append(attrs, extras...)...)
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(key string) string {
	key = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(key), "/"))
	if key == "" {
		return "unknown"
	}
	return strings.ReplaceAll(key, " ", "_")
}

// errorCode prefers a Code() method anywhere in the chain and falls back to
// the concrete type name, both upper-snake-cased.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	code := ""
	if errors.As(err, &coded) {
		code = strings.TrimSpace(coded.Code())
	}
	if code == "" {
		code = fmt.Sprintf("%T", err)
		code = code[strings.LastIndex(code, ".")+1:]
		code = strings.TrimLeft(code, "*")
	}
	return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
}
