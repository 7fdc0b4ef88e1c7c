package middleware

import (
	tele "gopkg.in/telebot.v4"

	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
)

// ReplyTally installs a per-update reply tally so handler summaries can
// report how many replies were queued and whether any carried a keyboard.
func ReplyTally(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		tghelpers.TrackReplies(c)
		return next(c)
	}
}

// Tally returns the reply count and keyboard flag recorded under ReplyTally.
func Tally(c tele.Context) (replies int, keyboard bool) {
	return tghelpers.Replies(c)
}
