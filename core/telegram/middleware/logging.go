package middleware

import (
	"log/slog"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
)

// seenUpdates remembers the last few hundred update ids so an update passing
// through several middleware chains is logged once.
type seenUpdates struct {
	mu   sync.Mutex
	ring [512]int
	set  map[int]struct{}
	next int
}

func (s *seenUpdates) firstTime(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set == nil {
		s.set = make(map[int]struct{}, len(s.ring))
	}
	if _, ok := s.set[id]; ok {
		return false
	}
	delete(s.set, s.ring[s.next])
	s.ring[s.next] = id
	s.set[id] = struct{}{}
	s.next = (s.next + 1) % len(s.ring)
	return true
}

var received seenUpdates

// LoggerMiddleware stores the update's log context and writes a sampled
// update.received debug line.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		upd := c.Update()
		if logger.ShouldSampleDebug() && received.firstTime(upd.ID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", UpdateKind(c)),
			}
			if chat := c.Chat(); chat != nil {
				attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
			}
			if user := c.Sender(); user != nil && user.Username != "" {
				attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
			}
			switch {
			case upd.Callback != nil:
				d := callbacks.Decode(upd.Callback)
				attrs = append(attrs,
					slog.String("namespace", logger.SanitizeLimit(d.Namespace, 64)),
					slog.String("payload", logger.SanitizeLimit(d.Payload, 128)),
				)
			case upd.Message != nil:
				attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(c.Text(), 128)))
			}
			logger.TG.LogAttrs(ctx, slog.LevelDebug, "update.received",
				append([]slog.Attr{slog.String("event", "update.received")}, attrs...)...)
		}
		return next(c)
	}
}
