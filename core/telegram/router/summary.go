package router

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
	"github.com/m3rciful/pharmtutor/core/telegram/middleware"
)

// serve runs h as the named handler and writes one handler.handled line
// with its outcome, reply tally and duration. A nil h is logged as skipped.
func serve(c tele.Context, name string, h tele.HandlerFunc, extra ...slog.Attr) error {
	start := time.Now()
	ctx := tghelpers.WithHandler(c, name)

	status, outcome := "skip", "ok"
	var err error
	if h != nil {
		status = "ok"
		if err = h(c); err != nil {
			status, outcome = "fail", "fail"
		}
	}

	replies, kb := middleware.Tally(c)
	attrs := append([]slog.Attr{
		slog.String("event", "handler.handled"),
		slog.String("status", status),
		slog.String("outcome", outcome),
		slog.Int("messages", replies),
		slog.Bool("kb", kb),
		slog.Duration("duration", time.Since(start)),
	}, extra...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.TG.LogAttrs(ctx, slog.LevelInfo, "handler.handled", attrs...)
	return err
}

// handlerName lower-cases a command or namespace into a log-friendly name.
func handlerName(prefix, key string) string {
	key = strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(strings.TrimSpace(key), "/"), " ", "_"))
	if key == "" {
		key = "unknown"
	}
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// errorCode classifies err for dashboards: telebot API errors by their
// code, the rest as TIMEOUT, CANCELLED or INTERNAL.
func errorCode(err error) string {
	var apiErr *tele.Error
	switch {
	case errors.As(err, &apiErr):
		return "TG_" + strconv.Itoa(apiErr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	}
	return "INTERNAL"
}
