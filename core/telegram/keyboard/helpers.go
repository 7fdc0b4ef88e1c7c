// Package keyboard builds Telegram reply and inline keyboards.
package keyboard

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/core/telegram/callbacks"
)

// Button is one inline button.
type Button struct {
	Text string
	Data callbacks.Data
}

// Menu builds a resized reply keyboard with one row per slice.
func Menu(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	for _, labels := range rows {
		row := make([]tele.ReplyButton, 0, len(labels))
		for _, l := range labels {
			row = append(row, tele.ReplyButton{Text: l})
		}
		markup.ReplyKeyboard = append(markup.ReplyKeyboard, row)
	}
	return markup
}

// Inline builds an inline keyboard. Buttons whose callback data exceeds
// the Telegram limit are left out, since one would fail the whole message;
// rows left empty are dropped too.
func Inline(ctx context.Context, rows ...[]Button) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	for _, buttons := range rows {
		row := make([]tele.InlineButton, 0, len(buttons))
		for _, b := range buttons {
			if !b.Data.Fits() {
				logger.TG.LogAttrs(ctx, slog.LevelWarn, "callback data too long",
					slog.String("event", "keyboard.skip"),
					slog.String("namespace", b.Data.Namespace),
					slog.Int("bytes", len(b.Data.Encode())),
				)
				continue
			}
			row = append(row, tele.InlineButton{Text: b.Text, Unique: b.Data.Namespace, Data: b.Data.Payload})
		}
		if len(row) > 0 {
			markup.InlineKeyboard = append(markup.InlineKeyboard, row)
		}
	}
	return markup
}
