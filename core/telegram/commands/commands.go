// Package commands describes slash commands offered by a bot.
package commands

import tele "gopkg.in/telebot.v4"

// Command is a slash command. Name carries the leading slash; Aliases may
// be typed as plain text with or without one.
type Command struct {
	Name        string
	Description string
	Handler     tele.HandlerFunc
	AdminOnly   bool
	Hidden      bool
	Aliases     []string
}

// Listed reports whether the command belongs in the public command menu.
func (c Command) Listed() bool {
	return !c.Hidden && !c.AdminOnly
}
