package bot

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context

	mu        sync.Mutex
	user      *tele.User
	text      string
	cb        *tele.Callback
	values    map[string]any
	sent      []string
	edited    []string
	markups   []*tele.ReplyMarkup
	responses []*tele.CallbackResponse
}

func newTextContext(user *tele.User, text string) *fakeContext {
	return &fakeContext{user: user, text: text, values: map[string]any{}}
}

func newCallbackContext(user *tele.User, unique, data string) *fakeContext {
	return &fakeContext{
		user:   user,
		cb:     &tele.Callback{ID: "cb", Unique: unique, Data: data, Sender: user},
		values: map[string]any{},
	}
}

func (f *fakeContext) Sender() *tele.User       { return f.user }
func (f *fakeContext) Chat() *tele.Chat         { return &tele.Chat{ID: f.user.ID} }
func (f *fakeContext) Text() string             { return f.text }
func (f *fakeContext) Callback() *tele.Callback { return f.cb }

func (f *fakeContext) Update() tele.Update {
	return tele.Update{ID: 1, Callback: f.cb}
}

func (f *fakeContext) Get(key string) interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[key]
}

func (f *fakeContext) Set(key string, val interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = val
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, what.(string))
	f.markups = append(f.markups, markupOf(opts))
	return nil
}

func (f *fakeContext) EditOrSend(what interface{}, opts ...interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edited = append(f.edited, what.(string))
	f.markups = append(f.markups, markupOf(opts))
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(resp) == 0 {
		resp = []*tele.CallbackResponse{{}}
	}
	f.responses = append(f.responses, resp[0])
	return nil
}

func (f *fakeContext) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1]
}

func (f *fakeContext) lastEdited() string {
	if len(f.edited) == 0 {
		return ""
	}
	return f.edited[len(f.edited)-1]
}

func (f *fakeContext) lastMarkup() *tele.ReplyMarkup {
	if len(f.markups) == 0 {
		return nil
	}
	return f.markups[len(f.markups)-1]
}

func markupOf(opts []interface{}) *tele.ReplyMarkup {
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			return so.ReplyMarkup
		}
	}
	return nil
}
