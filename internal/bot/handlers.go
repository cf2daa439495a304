// Package bot adapts Telegram updates to the meetup conversation: it turns
// commands, button presses and typed text into conversation actions and
// renders the results.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/unilinkup/core/logger"
	tg "github.com/m3rciful/unilinkup/core/telegram"
	"github.com/m3rciful/unilinkup/core/telegram/callbacks"
	"github.com/m3rciful/unilinkup/core/telegram/commands"
	tghelpers "github.com/m3rciful/unilinkup/core/telegram/helpers"
	"github.com/m3rciful/unilinkup/internal/conversation"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/store"
)

// Conversation is the state machine the handlers drive.
type Conversation interface {
	Apply(ctx context.Context, a conversation.Action) conversation.Result
	Locations() meetup.Roster
	Friends() meetup.Roster
}

// Store is the read side of the store the handlers need.
type Store interface {
	GetOrCreateSession(userID int64, displayName string) meetup.Session
	Session(userID int64) (meetup.Session, bool)
	RecentPings(limit int) []meetup.Ping
	PingsByOrganizer(userID int64, limit int) []meetup.Ping
	Stats() store.Stats
	Now() time.Time
}

// SnapshotFunc saves a snapshot on demand.
type SnapshotFunc func(ctx context.Context) (store.SaveResult, error)

// Notifier delivers a message to a user outside of any incoming update.
type Notifier interface {
	Notify(ctx context.Context, userID int64, text string) error
}

// Options configure Handlers.
type Options struct {
	Machine  Conversation
	Store    Store
	ErrorLog *ErrorLog

	// IdleWindow enables the inactivity timeout when positive.
	IdleWindow time.Duration
	// RecentLimit bounds /recent and /mine listings.
	RecentLimit int
	// MaxInputLength rejects longer typed text before it reaches the conversation.
	MaxInputLength int

	Snapshot SnapshotFunc
}

// Handlers holds every Telegram handler of the bot.
type Handlers struct {
	machine  Conversation
	store    Store
	errs     *ErrorLog
	snapshot SnapshotFunc
	idle     *conversation.IdleTimer

	idleWindow  time.Duration
	recentLimit int
	maxInput    int

	mu       sync.RWMutex
	notifier Notifier
}

// New builds Handlers. Machine and Store are required.
func New(opts Options) (*Handlers, error) {
	if opts.Machine == nil || opts.Store == nil {
		return nil, errors.New("bot: machine and store are required")
	}
	if opts.ErrorLog == nil {
		opts.ErrorLog = NewErrorLog(DefaultErrorLogSize)
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = 5
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = 100
	}
	h := &Handlers{
		machine:     opts.Machine,
		store:       opts.Store,
		errs:        opts.ErrorLog,
		snapshot:    opts.Snapshot,
		idleWindow:  opts.IdleWindow,
		recentLimit: opts.RecentLimit,
		maxInput:    opts.MaxInputLength,
	}
	if opts.IdleWindow > 0 {
		h.idle = conversation.NewIdleTimer(opts.IdleWindow, h.expire)
	}
	return h, nil
}

// ErrorLog returns the injected error log.
func (h *Handlers) ErrorLog() *ErrorLog { return h.errs }

// SetNotifier installs the channel used for timeout notices.
func (h *Handlers) SetNotifier(n Notifier) {
	h.mu.Lock()
	h.notifier = n
	h.mu.Unlock()
}

// Close stops pending inactivity timers.
func (h *Handlers) Close() {
	if h.idle != nil {
		h.idle.Close()
	}
}

// Register adds commands and callbacks to reg.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.RegisterCommand("/start", commands.Command{Handler: h.onStart, Description: "Start using UniLinkUp"})
	reg.RegisterCommand("/help", commands.Command{Handler: h.onHelp, Description: "Show help"})
	reg.RegisterCommand("/lunch", commands.Command{Handler: h.onLunch, Description: "Organize a lunch meetup"})
	reg.RegisterCommand("/study", commands.Command{Handler: h.onStudy, Description: "Plan a study session"})
	reg.RegisterCommand("/recent", commands.Command{Handler: h.onRecent, Description: "View recent invitations"})
	reg.RegisterCommand("/mine", commands.Command{Handler: h.onMine, Description: "View invitations you sent"})
	reg.RegisterCommand("/cancel", commands.Command{Handler: h.onCancel, Description: "Cancel the meetup in progress"})
	reg.RegisterCommand("/skip", commands.Command{Handler: h.onSkip, Description: "Skip the time step", Hidden: true})
	reg.RegisterCommand("/stats", commands.Command{Handler: h.onStats, Description: "Bot statistics", AdminOnly: true})
	reg.RegisterCommand("/snapshot", commands.Command{Handler: h.onSnapshot, Description: "Save a snapshot", AdminOnly: true})

	for key, fn := range map[string]tele.HandlerFunc{
		CallbackLocation: h.onLocation,
		CallbackTimeSkip: h.onTimeSkip,
		CallbackFriend:   h.onFriend,
		CallbackConfirm:  h.onConfirm,
	} {
		if err := reg.RegisterCallback(key, fn); err != nil {
			return err
		}
	}
	reg.SetCallbackNotFound(h.UnknownCallback())
	return nil
}

// AdminReject answers non-admins that call an admin command.
func (h *Handlers) AdminReject(c tele.Context) error {
	return tghelpers.SendMD(c, msgAdminOnly)
}

func senderInfo(c tele.Context) (int64, string, bool) {
	u := c.Sender()
	if u == nil {
		return 0, "", false
	}
	name := u.Username
	if name == "" {
		name = strings.TrimSpace(u.FirstName)
	}
	return u.ID, name, true
}

// apply runs a against the machine and keeps the idle timer in step.
func (h *Handlers) apply(c tele.Context, a conversation.Action) conversation.Result {
	res := h.machine.Apply(tghelpers.BuildContext(c), a)
	if h.idle != nil {
		h.idle.Track(a.UserID, res.Phase)
	}
	return res
}

func (h *Handlers) onStart(c tele.Context) error {
	id, name, ok := senderInfo(c)
	if !ok {
		return nil
	}
	h.store.GetOrCreateSession(id, name)
	return tghelpers.SendMD(c, WelcomeMessage(name))
}

func (h *Handlers) onHelp(c tele.Context) error {
	return tghelpers.SendMD(c, msgHelp)
}

func (h *Handlers) onLunch(c tele.Context) error { return h.begin(c, conversation.ActionStartLunch) }
func (h *Handlers) onStudy(c tele.Context) error { return h.begin(c, conversation.ActionStartStudy) }

func (h *Handlers) begin(c tele.Context, kind conversation.ActionKind) error {
	id, name, ok := senderInfo(c)
	if !ok {
		return nil
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: kind, DisplayName: name})
	if res.Err != nil {
		return h.fail(c, res)
	}
	return tghelpers.SendMD(c, StartPrompt(res.Session.Type), LocationKeyboard(h.machine.Locations()))
}

func (h *Handlers) onRecent(c tele.Context) error {
	pings := h.store.RecentPings(h.recentLimit)
	return tghelpers.SendMD(c, PingListMessage("📋 *Recent Invitations:*", pings, msgNoRecentPings))
}

func (h *Handlers) onMine(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	pings := h.store.PingsByOrganizer(id, h.recentLimit)
	return tghelpers.SendMD(c, PingListMessage("🙋 *Your Invitations:*", pings, msgNoOwnPings))
}

func (h *Handlers) onCancel(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionCancel})
	if !res.Discarded {
		return tghelpers.SendMD(c, msgNothingCancel)
	}
	return tghelpers.SendMD(c, msgCancelled)
}

func (h *Handlers) onSkip(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionSkipTime})
	if res.Err != nil {
		return h.fail(c, res)
	}
	return tghelpers.SendMD(c, TimeChosenMessage(""), FriendsKeyboard(h.machine.Friends(), res.Session))
}

func (h *Handlers) onStats(c tele.Context) error {
	sum := meetup.Summarize(h.store.RecentPings(0))
	return tghelpers.SendMD(c, StatsMessage(sum, h.store.Stats(), h.errs.Stats()))
}

func (h *Handlers) onSnapshot(c tele.Context) error {
	if h.snapshot == nil {
		return tghelpers.SendMD(c, msgSnapshotOff)
	}
	id, _, _ := senderInfo(c)
	res, err := h.snapshot(tghelpers.BuildContext(c))
	if err != nil {
		h.errs.Record(id, err)
		return tghelpers.SendMD(c, msgSnapshotFailed)
	}
	return tghelpers.SendMD(c, SnapshotMessage(res, res.Backup))
}

func (h *Handlers) onLocation(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	idx, err := callbacks.PayloadInt(c)
	if err != nil {
		idx = -1
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionSelectLocation, Index: idx})
	if res.Err != nil {
		return h.fail(c, res)
	}
	return tghelpers.EditOrSendMD(c, LocationChosenMessage(res.Session.Location), TimeKeyboard())
}

func (h *Handlers) onTimeSkip(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionSkipTime})
	if res.Err != nil {
		return h.fail(c, res)
	}
	return tghelpers.EditOrSendMD(c, TimeChosenMessage(""), FriendsKeyboard(h.machine.Friends(), res.Session))
}

func (h *Handlers) onFriend(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	idx, err := callbacks.PayloadInt(c)
	if err != nil {
		idx = -1
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionToggleFriend, Index: idx})
	if res.Err != nil {
		return h.fail(c, res)
	}
	verb := "Removed"
	if res.FriendAdded {
		verb = "Added"
	}
	_ = callbacks.Answer(c, verb+" "+res.Friend, false)
	return tghelpers.EditOrSendMD(c, FriendsMessage(res.Session.SelectedFriends), FriendsKeyboard(h.machine.Friends(), res.Session))
}

func (h *Handlers) onConfirm(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	switch callbacks.CallbackPayload(c) {
	case ConfirmYes:
		res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionConfirmFriends})
		if res.Err != nil {
			return h.fail(c, res)
		}
		return tghelpers.EditOrSendMD(c, ConfirmMessage(res.Session), ConfirmKeyboard())
	case ConfirmSend:
		res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionSend})
		if res.Err != nil {
			return h.fail(c, res)
		}
		_ = callbacks.Answer(c, "Invitations sent!", false)
		return tghelpers.EditOrSendMD(c, SentMessage(res.Invitations))
	case ConfirmCancel:
		res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionCancel})
		if !res.Discarded {
			_ = callbacks.Answer(c, msgStaleButton, false)
			return nil
		}
		return tghelpers.EditOrSendMD(c, msgCancelled)
	}
	return h.UnknownCallback()(c)
}

// InProgress reports whether typed text belongs to the user's conversation.
func (h *Handlers) InProgress(userID int64) bool {
	s, ok := h.store.Session(userID)
	return ok && s.State.Active()
}

// ManagerHandler receives typed text while a conversation is in progress.
// Only the time step accepts text; other steps point back at the buttons.
func (h *Handlers) ManagerHandler(c tele.Context) error {
	id, _, ok := senderInfo(c)
	if !ok {
		return nil
	}
	s, found := h.store.Session(id)
	if !found || s.State != meetup.StateTime {
		return tghelpers.SendMD(c, msgUseButtons)
	}
	text := c.Text()
	if utf8.RuneCountInString(text) > h.maxInput {
		return tghelpers.SendMD(c, msgInputTooLong)
	}
	res := h.apply(c, conversation.Action{UserID: id, Kind: conversation.ActionSubmitTime, Text: text})
	if res.Err != nil {
		return h.fail(c, res)
	}
	return tghelpers.SendMD(c, TimeChosenMessage(res.Session.TimeValue()), FriendsKeyboard(h.machine.Friends(), res.Session))
}

// UnknownText answers text no route claimed.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendMD(c, msgUnknownText) }
}

// UnknownDocument answers unexpected files.
func (h *Handlers) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error { return tghelpers.SendMD(c, msgUnknownDocument) }
}

// UnknownCallback answers presses of buttons no handler knows.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error { return callbacks.Answer(c, msgExpiredButton, false) }
}

// fail renders a rejected action. Recoverable errors get a corrective
// prompt; terminal ones end the conversation and are returned so the
// router logs them and the error hook records them and answers the callback.
func (h *Handlers) fail(c tele.Context, res conversation.Result) error {
	kind, _ := conversation.KindOf(res.Err)
	isCallback := c.Callback() != nil

	var text string
	switch kind {
	case conversation.KindValidation:
		switch {
		case errors.Is(res.Err, meetup.ErrTimeTooLong):
			text = msgTimeTooLong
		case errors.Is(res.Err, meetup.ErrTimeEmpty), errors.Is(res.Err, meetup.ErrTimeUnrecognized):
			text = msgInvalidTime
		default:
			text = msgNoFriends
		}
		if isCallback {
			return callbacks.Answer(c, text, true)
		}
		return tghelpers.SendMD(c, text)
	case conversation.KindWrongState:
		if isCallback {
			return callbacks.Answer(c, msgStaleButton, false)
		}
		return tghelpers.SendMD(c, msgUseButtons)
	}

	if isCallback {
		_ = tghelpers.EditOrSendMD(c, msgStartOver)
	} else {
		_ = tghelpers.SendMD(c, msgStartOver)
	}
	if kind == conversation.KindMissingSession {
		// Stale buttons after a restart land here routinely.
		if isCallback {
			_ = callbacks.Answer(c, "", false)
		}
		return nil
	}
	// ErrorLog.OnError answers the callback.
	return res.Err
}

// expire runs on the idle timer goroutine.
func (h *Handlers) expire(userID int64) {
	ctx := logger.WithLogger(context.Background(), logger.Component("bot"))
	if !h.idleFor(userID) {
		logger.Debug(ctx, "bot", "timeout.skip", slog.Int64("user_id", userID))
		return
	}
	res := h.machine.Apply(ctx, conversation.Action{UserID: userID, Kind: conversation.ActionTimeout})
	if !res.Discarded {
		return
	}
	h.mu.RLock()
	n := h.notifier
	h.mu.RUnlock()
	if n == nil {
		return
	}
	if err := n.Notify(ctx, userID, msgTimeout); err != nil {
		logger.Warn(ctx, "bot", "timeout.notify_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
	}
}

// idleFor reports whether the user's conversation really sat idle for the
// whole window. An action racing the timer re-arms it or refreshes the
// session, and then the timeout must not fire.
func (h *Handlers) idleFor(userID int64) bool {
	if h.idle != nil && h.idle.Armed(userID) {
		return false
	}
	s, ok := h.store.Session(userID)
	if !ok {
		return true
	}
	return !h.store.Now().Before(s.LastActivity.Add(h.idleWindow))
}
