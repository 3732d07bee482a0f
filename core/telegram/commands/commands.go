// Package commands describes slash commands exposed through the registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command handler plus the metadata used for the Telegram
// command menu and for admin gating.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// AdminOnly commands run behind the router's admin check.
	AdminOnly bool
	// Hidden commands work but are left out of the command menu.
	Hidden  bool
	Aliases []string
}
