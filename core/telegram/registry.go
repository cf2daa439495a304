package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/core/telegram/callbacks"
	"github.com/m3rciful/unilinkup/core/telegram/commands"
	"github.com/m3rciful/unilinkup/core/telegram/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	errInvalidCommand  = errors.New("command needs a handler and a description")
	errNoSlash         = errors.New("command name must start with /")
	errInvalidCallback = errors.New("callback needs a key and a handler")
)

// Registry maps slash commands and callback keys to handlers. Commands are
// registered during startup; callbacks may be added at any time.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback handler
// answers with a generic notice.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return callbacks.Answer(c, "Unsupported action", false)
		},
	}
}

// RegisterCommand adds cmd under name. Invalid or duplicate registrations
// are logged and ignored.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	var err error
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		err = errInvalidCommand
	case !strings.HasPrefix(name, "/"):
		err = errNoSlash
	}
	if err == nil {
		r.mu.Lock()
		if _, dup := r.commands[name]; dup {
			err = fmt.Errorf("command %s already registered", name)
		} else {
			r.commands[name] = cmd
			for _, alias := range cmd.Aliases {
				r.aliases[slashed(alias)] = name
			}
		}
		r.mu.Unlock()
	}
	if err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("err", err.Error()),
		)
	}
}

// ListCommands returns the commands sorted by name. With visibleOnly set,
// hidden and admin-only commands are left out, which suits the bot menu.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []tele.Command
	for _, name := range slices.Sorted(maps.Keys(r.commands)) {
		cmd := r.commands[name]
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		out = append(out, tele.Command{Text: name, Description: cmd.Description})
	}
	return out
}

// LookupCommand resolves name, with or without the leading slash, either
// directly or through an alias. It returns the canonical name.
func (r *Registry) LookupCommand(name string) (string, commands.Command, bool) {
	name = slashed(name)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if canonical, ok := r.aliases[name]; ok {
		name = canonical
	}
	cmd, ok := r.commands[name]
	if !ok {
		return "", commands.Command{}, false
	}
	return name, cmd, true
}

// Commands returns a copy of the registered commands keyed by name.
func (r *Registry) Commands() map[string]commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.commands)
}

// RegisterCallback binds handler to key. A key can be bound once.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		return errInvalidCallback
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.callbacks[key]; dup {
		return fmt.Errorf("callback %q already registered", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler bound to key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// ListCallbacks returns the bound keys in order.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.callbacks))
}

// SetCallbackNotFound replaces the unknown-callback handler; nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.callbackNotFound = h
	r.mu.Unlock()
}

// CallbackNotFound returns the unknown-callback handler.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text that matches no command.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the handler for text that matches no command.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the visible commands as the bot menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("err", netutil.Redact(err)),
		)
	}
}

func slashed(name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return "/" + name
}
