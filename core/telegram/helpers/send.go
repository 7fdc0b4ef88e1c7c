package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/core/telegram/sender"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the send pool used by Async; nil makes sends
// synchronous.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Async runs fn on the send pool, or inline when none is installed or the
// pool refuses the job. Sends issued inside fn keep their order.
func Async(c tele.Context, action, endpoint string, fn func() error) error {
	d := dispatcher.Load()
	if d == nil {
		return fn()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, fn)
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.TG.LogAttrs(ctx, slog.LevelWarn, "send queue refused job",
			slog.String("event", "queue.fallback"),
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return fn()
	}
	return err
}

// SendText sends plain text with optional send options.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	CountReplies(c, 1, len(opts) > 0 && opts[0] != nil && opts[0].ReplyMarkup != nil)
	return Async(c, "send.text", "sendMessage", func() error {
		if len(opts) > 0 && opts[0] != nil {
			return c.Send(text, opts[0])
		}
		return c.Send(text)
	})
}

// SendMD sends Markdown text with an optional keyboard.
func SendMD(c tele.Context, text string, markup ...*tele.ReplyMarkup) error {
	opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
	if len(markup) > 0 {
		opts.ReplyMarkup = markup[0]
	}
	return SendText(c, text, opts)
}
