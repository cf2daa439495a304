package middleware

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tele "gopkg.in/telebot.v4"
)

type stubContext struct {
	tele.Context

	mu     sync.Mutex
	user   *tele.User
	upd    tele.Update
	values map[string]any
	sent   int
}

func newStub(userID int64) *stubContext {
	return &stubContext{
		user:   &tele.User{ID: userID},
		upd:    tele.Update{ID: 3, Message: &tele.Message{Text: "hi"}},
		values: map[string]any{},
	}
}

func (s *stubContext) Update() tele.Update      { return s.upd }
func (s *stubContext) Sender() *tele.User       { return s.user }
func (s *stubContext) Chat() *tele.Chat         { return &tele.Chat{ID: s.user.ID, Type: tele.ChatPrivate} }
func (s *stubContext) Message() *tele.Message   { return s.upd.Message }
func (s *stubContext) Callback() *tele.Callback { return s.upd.Callback }
func (s *stubContext) Text() string             { return s.upd.Message.Text }

func (s *stubContext) Get(k string) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[k]
}

func (s *stubContext) Set(k string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[k] = v
}

func (s *stubContext) Send(any, ...any) error {
	s.sent++
	return nil
}

func (s *stubContext) EditOrSend(any, ...any) error {
	return errors.New("message to edit not found")
}

func TestMessageMetricsCountsReplies(t *testing.T) {
	c := newStub(1)
	var msgs int
	var kb bool
	h := MessageMetricsMiddleware(func(c tele.Context) error {
		_ = c.Send("plain")
		_ = c.Send("menu", &tele.SendOptions{ReplyMarkup: &tele.ReplyMarkup{}})
		_ = c.EditOrSend("failed edit", &tele.ReplyMarkup{})
		msgs, kb = GetCounters(c)
		return nil
	})
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if msgs != 2 || !kb {
		t.Fatalf("counters = %d, %v", msgs, kb)
	}
	if c.sent != 2 {
		t.Fatalf("sent = %d", c.sent)
	}
	if m, k := GetCounters(newStub(2)); m != 0 || k {
		t.Fatalf("uninstrumented counters = %d, %v", m, k)
	}
}

func TestUpdateMetricsObservesKind(t *testing.T) {
	var got UpdateSample
	boom := errors.New("boom")
	h := UpdateMetricsMiddleware(func(s UpdateSample) { got = s })(func(tele.Context) error {
		time.Sleep(time.Millisecond)
		return boom
	})
	if err := h(newStub(1)); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if got.Kind != "message" || !errors.Is(got.Err, boom) || got.Duration <= 0 {
		t.Fatalf("sample = %+v", got)
	}
	if UpdateMetricsMiddleware(nil)(nil) != nil {
		t.Fatal("nil observer should pass next through")
	}
}

func TestUpdateKind(t *testing.T) {
	cases := []struct {
		upd  tele.Update
		want string
	}{
		{tele.Update{Callback: &tele.Callback{}}, "callback"},
		{tele.Update{Message: &tele.Message{Document: &tele.Document{}}}, "document"},
		{tele.Update{Message: &tele.Message{Text: "/lunch", Entities: tele.Entities{{Type: tele.EntityCommand}}}}, "command"},
		{tele.Update{Message: &tele.Message{Text: "hi"}}, "message"},
		{tele.Update{}, "other"},
	}
	for _, tc := range cases {
		c := newStub(1)
		c.upd = tc.upd
		if got := UpdateKind(c); got != tc.want {
			t.Fatalf("UpdateKind = %q, want %q", got, tc.want)
		}
	}
}

func TestLoggerMiddlewareSetsRID(t *testing.T) {
	c := newStub(9)
	calls := 0
	h := LoggerMiddleware(LoggerMiddleware(func(tele.Context) error {
		calls++
		return nil
	}))
	if err := h(c); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d", calls)
	}
	if rid := c.Get("rid"); rid != "3:9:9" {
		t.Fatalf("rid = %v", rid)
	}
	if c.Get(receiptLoggedKey) != true {
		t.Fatal("receipt not marked")
	}
}

func TestRecoverTurnsPanicIntoError(t *testing.T) {
	h := RecoverMiddleware(func(tele.Context) error { panic("kaboom") })
	err := h(newStub(1))
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("err = %v", err)
	}
}

func TestAdminOnly(t *testing.T) {
	rejected, ran := 0, 0
	mw := AdminOnlyMiddleware(AdminOptions{AdminID: 42, OnReject: func(tele.Context) error { rejected++; return nil }})
	h := mw(func(tele.Context) error { ran++; return nil })

	_ = h(newStub(42))
	_ = h(newStub(7))
	if ran != 1 || rejected != 1 {
		t.Fatalf("ran=%d rejected=%d", ran, rejected)
	}
	if (AdminOptions{}).IsAdmin(newStub(0)) {
		t.Fatal("zero admin id must not match")
	}
}
