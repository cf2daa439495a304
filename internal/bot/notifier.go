package bot

import (
	"context"

	tele "gopkg.in/telebot.v4"

	tgsender "github.com/m3rciful/unilinkup/core/telegram/sender"
)

// DispatchNotifier queues direct messages through the outbound dispatcher.
type DispatchNotifier struct {
	Dispatcher *tgsender.Dispatcher
	API        tgsender.MessageSender
}

// Notify sends text to the private chat of userID.
func (n DispatchNotifier) Notify(ctx context.Context, userID int64, text string) error {
	return n.Dispatcher.SendTo(ctx, n.API, tele.ChatID(userID), text, &tele.SendOptions{ParseMode: tele.ModeMarkdown})
}
