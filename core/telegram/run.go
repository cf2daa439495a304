package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	coreconfig "github.com/m3rciful/unilinkup/core/config"
	"github.com/m3rciful/unilinkup/core/logger"
	tghelpers "github.com/m3rciful/unilinkup/core/telegram/helpers"
	"github.com/m3rciful/unilinkup/core/telegram/netutil"
	tgsender "github.com/m3rciful/unilinkup/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

const stopHookTimeout = 10 * time.Second

// Middleware is a named global middleware installed with bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to a telebot endpoint such as "/start" or tele.OnText.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions describes the bot RunTelegram assembles.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	Middlewares []Middleware
	Routes      []Route

	// OnError receives handler errors that escaped the middleware chain.
	OnError func(err error, c tele.Context)

	// OnStart runs before updates are consumed; an error aborts the run.
	OnStart func(ctx context.Context, rt Runtime) error
	// OnStop runs after the poller has stopped with a fresh bounded context.
	OnStop func(ctx context.Context, rt Runtime) error
}

// Runtime is handed to the lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// RunTelegram builds the bot described by opts and consumes updates until
// ctx is cancelled or the poller exits. Cancellation is not an error.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if opts.Config == nil {
		return errors.New("telegram: nil config provided")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}

	bot, err := newBot(ctx, opts)
	if err != nil {
		return err
	}
	rt := Runtime{
		Bot:        bot,
		Dispatcher: tgsender.NewDispatcher(tgsender.OptionsFromConfig(opts.Config.Sender)),
		Registry:   opts.Registry,
	}
	tghelpers.SetDispatcher(rt.Dispatcher)
	defer func() {
		rt.Dispatcher.Close()
		tghelpers.SetDispatcher(nil)
	}()

	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	for _, r := range opts.Routes {
		if r.Endpoint != nil && r.Handler != nil {
			bot.Handle(r.Endpoint, r.Handler)
		}
	}
	InitBotCommands(bot, rt.Registry)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)

	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopHookTimeout)
		defer cancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// serve blocks in bot.Start until ctx is done or the poller returns.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	}
}

func newBot(ctx context.Context, opts RunOptions) (*tele.Bot, error) {
	tg := opts.Config.Telegram
	poller := BuildPoller(PollerOptions{
		RunMode:                tg.RunMode,
		LongPollTimeoutSeconds: tg.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: opts.Config.Webhook.Listen,
			Port:   opts.Config.Webhook.Port,
			URL:    opts.Config.Webhook.URL,
		},
	})

	var pollTimeout time.Duration
	if lp, ok := poller.(*tele.LongPoller); ok {
		pollTimeout = lp.Timeout
	}

	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:   tg.Token,
		Poller:  poller,
		Client:  BuildHTTPClient(pollTimeout),
		OnError: opts.OnError,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	took := slog.Duration("duration", logger.Took(start))

	switch p := poller.(type) {
	case *tele.Webhook:
		logger.Info(ctx, "tg.runtime", "mode",
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
			took,
		)
	case *tele.LongPoller:
		logger.Info(ctx, "tg.runtime", "mode",
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Int("timeout_seconds", int(p.Timeout/time.Second)),
			took,
		)
		// A webhook left over from an earlier deployment blocks getUpdates.
		if err := bot.RemoveWebhook(); err != nil {
			logger.Warn(ctx, "tg.runtime", "webhook.remove",
				slog.String("status", "fail"),
				slog.String("err", netutil.Redact(err)),
			)
		}
	}
	return bot, nil
}
