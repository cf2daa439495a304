// Package commands describes slash commands kept in the registry.
package commands

import tele "gopkg.in/telebot.v4"

// Command is one slash command.
type Command struct {
	Handler     tele.HandlerFunc
	Description string // shown in the bot menu
	AdminOnly   bool   // restricted to the configured admin and left out of the menu
	Hidden      bool   // routable but left out of the menu
	Aliases     []string
}
