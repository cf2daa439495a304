package bot

import (
	"strconv"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/unilinkup/core/telegram/keyboard"
	"github.com/m3rciful/unilinkup/internal/meetup"
)

// Callback uniques. Payloads carry roster indices or a confirm verb.
const (
	CallbackLocation = "loc"
	CallbackTimeSkip = "time_skip"
	CallbackFriend   = "friend"
	CallbackConfirm  = "confirm"
)

// Confirm verbs.
const (
	ConfirmYes    = "yes"
	ConfirmSend   = "send"
	ConfirmCancel = "cancel"
)

const buttonsPerRow = 2

func cancelBtn() keyboard.Button {
	return keyboard.Cancel(CallbackConfirm, ConfirmCancel)
}

// LocationKeyboard lists the location roster two per row.
func LocationKeyboard(locations meetup.Roster) *tele.ReplyMarkup {
	names := locations.Names()
	buttons := make([]keyboard.Button, len(names))
	for i, name := range names {
		buttons[i] = keyboard.Button{Text: name, Unique: CallbackLocation, Data: strconv.Itoa(i)}
	}
	rows := keyboard.Chunk(buttons, buttonsPerRow)
	rows = append(rows, []keyboard.Button{cancelBtn()})
	return keyboard.Markup(rows...)
}

// TimeKeyboard offers skipping the time step.
func TimeKeyboard() *tele.ReplyMarkup {
	return keyboard.Markup(
		[]keyboard.Button{{Text: "⏭️ Skip (Flexible Time)", Unique: CallbackTimeSkip}},
		[]keyboard.Button{cancelBtn()},
	)
}

// FriendsKeyboard lists the friend roster with selection marks. The confirm
// button only appears once at least one friend is selected.
func FriendsKeyboard(friends meetup.Roster, s meetup.Session) *tele.ReplyMarkup {
	names := friends.Names()
	buttons := make([]keyboard.Button, len(names))
	for i, name := range names {
		mark := "⬜ "
		if s.HasFriend(name) {
			mark = "✅ "
		}
		buttons[i] = keyboard.Button{Text: mark + name, Unique: CallbackFriend, Data: strconv.Itoa(i)}
	}
	rows := keyboard.Chunk(buttons, buttonsPerRow)

	var actions []keyboard.Button
	if len(s.SelectedFriends) > 0 {
		actions = append(actions, keyboard.Button{Text: "✅ Confirm Selection", Unique: CallbackConfirm, Data: ConfirmYes})
	}
	actions = append(actions, cancelBtn())
	rows = append(rows, actions)
	return keyboard.Markup(rows...)
}

// ConfirmKeyboard offers sending or cancelling the finished draft.
func ConfirmKeyboard() *tele.ReplyMarkup {
	return keyboard.Markup([]keyboard.Button{
		{Text: "✅ Send Invitations", Unique: CallbackConfirm, Data: ConfirmSend},
		cancelBtn(),
	})
}
