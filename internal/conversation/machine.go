// Package conversation drives the button-based meetup planning flow:
// location, then time, then friends, then confirmation and send.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/m3rciful/unilinkup/core/logger"
	"github.com/m3rciful/unilinkup/internal/meetup"
	"github.com/m3rciful/unilinkup/internal/notify"
)

// SessionStore is the storage the machine needs. *store.Store implements it.
type SessionStore interface {
	GetOrCreateSession(userID int64, displayName string) meetup.Session
	SaveSession(meetup.Session)
	UpdateSession(userID int64, fn func(*meetup.Session) error) (meetup.Session, bool, error)
	AppendPing(meetup.Ping)
}

// Observer is notified of every applied action.
type Observer interface {
	ObserveAction(a Action, r Result)
}

// Options configure a Machine. Zero rosters fall back to the built-in ones.
type Options struct {
	Locations     meetup.Roster
	Friends       meetup.Roster
	MaxTimeLength int
	Projector     *notify.Projector
	Now           func() time.Time
	Observer      Observer
}

// Machine applies actions to sessions held in a SessionStore.
// Concurrent use is safe; each transition is atomic with respect to the store.
type Machine struct {
	store      SessionStore
	locations  meetup.Roster
	friends    meetup.Roster
	maxTimeLen int
	projector  *notify.Projector
	now        func() time.Time
	observer   Observer
}

var errNotActive = errors.New("no meetup in progress")

// New constructs a Machine.
func New(st SessionStore, opts Options) *Machine {
	if opts.Locations.Len() == 0 {
		opts.Locations = meetup.MustRoster(meetup.DefaultLocations)
	}
	if opts.Friends.Len() == 0 {
		opts.Friends = meetup.MustRoster(meetup.DefaultFriends)
	}
	if opts.MaxTimeLength <= 0 {
		opts.MaxTimeLength = meetup.DefaultMaxTimeLength
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Projector == nil {
		opts.Projector = notify.NewProjector(notify.WithClock(opts.Now))
	}
	return &Machine{
		store:      st,
		locations:  opts.Locations,
		friends:    opts.Friends,
		maxTimeLen: opts.MaxTimeLength,
		projector:  opts.Projector,
		now:        opts.Now,
		observer:   opts.Observer,
	}
}

// Locations returns the location roster.
func (m *Machine) Locations() meetup.Roster { return m.locations }

// Friends returns the friend roster.
func (m *Machine) Friends() meetup.Roster { return m.friends }

// Apply performs a guarded transition for a.UserID and reports the outcome.
// Errors never panic; they are returned in Result.Err.
func (m *Machine) Apply(ctx context.Context, a Action) Result {
	res := m.apply(ctx, a)
	m.log(ctx, a, res)
	if m.observer != nil {
		m.observer.ObserveAction(a, res)
	}
	return res
}

func (m *Machine) apply(ctx context.Context, a Action) Result {
	switch a.Kind {
	case ActionStartLunch:
		return m.start(a, meetup.TypeLunch)
	case ActionStartStudy:
		return m.start(a, meetup.TypeStudy)
	case ActionCancel, ActionTimeout:
		return m.end(a)
	case ActionSelectLocation:
		return m.step(a, meetup.StateLocation, m.selectLocation(a))
	case ActionSubmitTime:
		return m.step(a, meetup.StateTime, m.submitTime(a))
	case ActionSkipTime:
		return m.step(a, meetup.StateTime, func(s *meetup.Session, now time.Time) error {
			s.SetTime("", now)
			s.State = meetup.StateFriends
			return nil
		})
	case ActionToggleFriend:
		var res Result
		out := m.step(a, meetup.StateFriends, func(s *meetup.Session, now time.Time) error {
			name, ok := m.friends.At(a.Index)
			if !ok {
				return &Error{Kind: KindInvalidSelection, Action: a.Kind, Msg: "friend index out of range"}
			}
			res.Friend = name
			res.FriendAdded = s.ToggleFriend(name, now)
			return nil
		})
		if out.Err == nil {
			out.Friend, out.FriendAdded = res.Friend, res.FriendAdded
		}
		return out
	case ActionConfirmFriends:
		return m.step(a, meetup.StateFriends, func(s *meetup.Session, now time.Time) error {
			if len(s.SelectedFriends) == 0 {
				return &Error{Kind: KindValidation, Action: a.Kind, Msg: "select at least one friend"}
			}
			s.State = meetup.StateConfirm
			s.Touch(now)
			return nil
		})
	case ActionSend:
		return m.send(ctx, a)
	}
	return Result{
		Phase: PhaseUnstarted,
		Err:   &Error{Kind: KindValidation, Action: a.Kind, Msg: "unknown action"},
	}
}

func (m *Machine) start(a Action, t meetup.Type) Result {
	now := m.now()
	m.store.GetOrCreateSession(a.UserID, a.DisplayName)
	sess, ok, _ := m.store.UpdateSession(a.UserID, func(s *meetup.Session) error {
		s.Start(t, now)
		return nil
	})
	if !ok {
		// Evicted between the two calls; start over from a fresh record.
		sess = meetup.NewSession(a.UserID, a.DisplayName, now)
		sess.Start(t, now)
		m.store.SaveSession(sess)
	}
	return Result{Phase: PhaseLocation, Session: sess}
}

func (m *Machine) end(a Action) Result {
	now := m.now()
	var discarded bool
	sess, ok, _ := m.store.UpdateSession(a.UserID, func(s *meetup.Session) error {
		discarded = s.State.Active()
		s.Reset(now)
		return nil
	})
	if !ok {
		return Result{Phase: PhaseEnded}
	}
	return Result{Phase: PhaseEnded, Session: sess, Discarded: discarded}
}

// step runs apply when the session sits in state want. Terminal errors reset
// the draft and end the conversation; other errors leave the session as it was.
func (m *Machine) step(a Action, want meetup.State, apply func(*meetup.Session, time.Time) error) Result {
	now := m.now()
	var terminal error
	sess, ok, err := m.store.UpdateSession(a.UserID, func(s *meetup.Session) error {
		if !s.State.Active() {
			return errNotActive
		}
		if s.State != want {
			return &Error{Kind: KindWrongState, Action: a.Kind, Msg: "expected step " + string(want) + ", at " + string(s.State)}
		}
		if err := apply(s, now); err != nil {
			if IsTerminal(err) {
				terminal = err
				s.Reset(now)
				return nil
			}
			return err
		}
		return nil
	})
	switch {
	case !ok:
		return Result{Phase: PhaseEnded, Err: &Error{Kind: KindMissingSession, Action: a.Kind, Msg: "no session"}}
	case errors.Is(err, errNotActive):
		return Result{Phase: PhaseEnded, Session: sess, Err: &Error{Kind: KindMissingSession, Action: a.Kind, Err: err}}
	case err != nil:
		return Result{Phase: PhaseOf(sess.State), Session: sess, Err: err}
	case terminal != nil:
		return Result{Phase: PhaseEnded, Session: sess, Err: terminal}
	}
	return Result{Phase: PhaseOf(sess.State), Session: sess}
}

func (m *Machine) selectLocation(a Action) func(*meetup.Session, time.Time) error {
	return func(s *meetup.Session, now time.Time) error {
		name, ok := m.locations.At(a.Index)
		if !ok {
			return &Error{Kind: KindInvalidSelection, Action: a.Kind, Msg: "location index out of range"}
		}
		s.Location = name
		s.State = meetup.StateTime
		s.Touch(now)
		return nil
	}
}

func (m *Machine) submitTime(a Action) func(*meetup.Session, time.Time) error {
	return func(s *meetup.Session, now time.Time) error {
		value, err := meetup.ValidateTime(a.Text, m.maxTimeLen)
		if err != nil {
			return &Error{Kind: KindValidation, Action: a.Kind, Err: err}
		}
		s.SetTime(value, now)
		s.State = meetup.StateFriends
		return nil
	}
}

func (m *Machine) send(ctx context.Context, a Action) Result {
	var (
		ping meetup.Ping
		invs []notify.Invitation
	)
	res := m.step(a, meetup.StateConfirm, func(s *meetup.Session, now time.Time) error {
		p, out, err := m.projector.Project(*s)
		if err != nil {
			return &Error{Kind: KindInvariant, Action: a.Kind, Err: err}
		}
		ping, invs = p, out
		s.Reset(now)
		return nil
	})
	if res.Err != nil {
		return res
	}
	m.store.AppendPing(ping)
	res.Phase = PhaseEnded
	res.Ping = &ping
	res.Invitations = invs
	logger.Info(ctx, "conversation", "ping.sent",
		slog.Int64("user_id", a.UserID),
		slog.String("ping_id", ping.ID),
		slog.String("meetup_type", string(ping.Type)),
		slog.String("location", ping.Location),
		slog.Int("invitations", len(invs)),
		slog.String("friends", friendsSummary(ping.InvitedFriends)),
	)
	return res
}

func friendsSummary(friends []string) string {
	joined, truncated := logger.SummarizeStrings(friends, 5)
	if truncated {
		return joined + ", ..."
	}
	return joined
}

func (m *Machine) log(ctx context.Context, a Action, res Result) {
	attrs := []slog.Attr{
		slog.Int64("user_id", a.UserID),
		slog.String("action", string(a.Kind)),
		slog.String("phase", string(res.Phase)),
	}
	if res.Err == nil {
		logger.Debug(ctx, "conversation", "transition", attrs...)
		return
	}
	kind, _ := KindOf(res.Err)
	attrs = append(attrs,
		slog.String("err", res.Err.Error()),
		slog.String("err_code", string(kind)),
	)
	switch kind {
	case KindInvariant:
		logger.Error(ctx, "conversation", "transition.invariant", attrs...)
	case KindValidation, KindWrongState:
		logger.Debug(ctx, "conversation", "transition.rejected", attrs...)
	default:
		logger.Warn(ctx, "conversation", "transition.rejected", attrs...)
	}
}
