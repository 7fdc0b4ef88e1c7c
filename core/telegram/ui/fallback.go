// Package ui holds the contracts between the transport routers and the bot's
// user-facing replies.
package ui

import tele "gopkg.in/telebot.v4"

// FallbackProvider answers updates no route claimed: free text outside any
// flow, stray documents and callbacks of unknown namespaces.
type FallbackProvider interface {
	UnknownText() tele.HandlerFunc
	UnknownDocument() tele.HandlerFunc
	UnknownCallback() tele.HandlerFunc
}
