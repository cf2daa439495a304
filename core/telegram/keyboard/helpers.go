// Package keyboard builds inline keyboards from plain button descriptions.
package keyboard

import (
	"slices"

	tele "gopkg.in/telebot.v4"
)

// CancelText labels the button returned by Cancel.
const CancelText = "❌ Cancel"

// Button is one inline button. Unique selects the callback handler and
// Data is handed to it as the payload.
type Button struct {
	Text   string
	Unique string
	Data   string
}

// Cancel returns a cancel button routed to unique with the given payload.
func Cancel(unique, payload string) Button {
	return Button{Text: CancelText, Unique: unique, Data: payload}
}

// Chunk lays buttons out n per row; n below one means one per row.
func Chunk(buttons []Button, n int) [][]Button {
	return slices.Collect(slices.Chunk(buttons, max(n, 1)))
}

// Markup turns rows of buttons into an inline keyboard. Empty rows are dropped.
func Markup(rows ...[]Button) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, *m.Data(b.Text, b.Unique, b.Data).Inline())
		}
		m.InlineKeyboard = append(m.InlineKeyboard, line)
	}
	return m
}
