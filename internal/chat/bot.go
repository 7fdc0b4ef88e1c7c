// Package chat connects the conversation router to Telegram: it turns
// telebot updates into conversation events, keeps one session per user and
// renders replies as messages, edits and callback answers.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	tg "github.com/m3rciful/pharmtutor/core/telegram"
	"github.com/m3rciful/pharmtutor/core/telegram/callbacks"
	"github.com/m3rciful/pharmtutor/core/telegram/commands"
	tghelpers "github.com/m3rciful/pharmtutor/core/telegram/helpers"
	"github.com/m3rciful/pharmtutor/core/telegram/keyboard"
	"github.com/m3rciful/pharmtutor/core/telegram/router"
	"github.com/m3rciful/pharmtutor/core/telegram/state"
	"github.com/m3rciful/pharmtutor/core/telegram/ui"
	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
	"github.com/m3rciful/pharmtutor/internal/tutor"
)

// SlowDown is the notice for updates refused by the rate limiter.
const SlowDown = "⏳ Слишком много запросов. Подождите немного и попробуйте снова."

var (
	_ router.FSM          = (*Bot)(nil)
	_ ui.FallbackProvider = (*Bot)(nil)
)

// Admin serves the admin commands.
type Admin interface {
	AdminStats(ctx context.Context) string
}

// Options configure a Bot. Router and Decode are required.
type Options struct {
	Router   *conversation.Router
	Decode   conversation.Decoder
	Sessions state.Store[conversation.Session]
	// Namespaces are registered as callback keys; others reach UnknownCallback.
	Namespaces []string
	Admin      Admin
	// Reload swaps in a fresh catalog for /admin_reload.
	Reload func() (content.Counts, error)
}

// Bot adapts Telegram updates to conversation turns.
type Bot struct {
	router     *conversation.Router
	decode     conversation.Decoder
	sessions   state.Store[conversation.Session]
	namespaces []string
	admin      Admin
	reload     func() (content.Counts, error)
}

// New builds a bot. A nil Sessions store defaults to process memory.
func New(opts Options) *Bot {
	if opts.Sessions == nil {
		opts.Sessions = state.NewMemoryStore[conversation.Session]()
	}
	return &Bot{
		router:     opts.Router,
		decode:     opts.Decode,
		sessions:   opts.Sessions,
		namespaces: opts.Namespaces,
		admin:      opts.Admin,
		reload:     opts.Reload,
	}
}

// Register wires commands, callbacks and fallbacks into reg.
func (b *Bot) Register(reg *tg.Registry) {
	errs := []error{
		reg.RegisterCommand(commands.Command{
			Name:        "/start",
			Description: "Главное меню",
			Handler:     b.handleStart,
			Aliases:     []string{"меню"},
		}),
		reg.RegisterCommand(commands.Command{
			Name:        "/help",
			Description: "Справка",
			Handler:     b.handleHelp,
			Aliases:     []string{"помощь", "справка"},
		}),
		reg.RegisterCommand(commands.Command{
			Name:        "/admin_stats",
			Description: "Статистика бота",
			Handler:     b.handleAdminStats,
			AdminOnly:   true,
		}),
		reg.RegisterCommand(commands.Command{
			Name:        "/admin_reload",
			Description: "Перезагрузить данные",
			Handler:     b.handleAdminReload,
			AdminOnly:   true,
		}),
	}
	for _, ns := range b.namespaces {
		errs = append(errs, reg.RegisterCallback(ns, b.handleCallback))
	}
	if err := errors.Join(errs...); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.failed",
			slog.String("event", "chat.register"),
			slog.String("err", err.Error()),
		)
	}
	reg.SetCallbackNotFound(b.UnknownCallback())
	reg.SetTextFallback(b.handleText)
}

// InProgress reports whether the user has a stored session.
func (b *Bot) InProgress(userID int64) bool {
	_, ok := b.sessions.Get(userID)
	return ok
}

// ManagerHandler routes text of users with a session. Files get the menu
// hint instead of being read as input.
func (b *Bot) ManagerHandler(c tele.Context) error {
	if msg := c.Message(); msg != nil && msg.Document != nil {
		return b.UnknownDocument()(c)
	}
	return b.handleText(c)
}

// UnknownText routes text that no command matched.
func (b *Bot) UnknownText() tele.HandlerFunc { return b.handleText }

// UnknownDocument answers files with the menu hint.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, tutor.MenuHint)
	}
}

// UnknownCallback routes callbacks with an unregistered key. They decode to
// no action, so the current state answers with its hint.
func (b *Bot) UnknownCallback() tele.HandlerFunc { return b.handleCallback }

// Sessions reports the number of stored sessions.
func (b *Bot) Sessions() int { return b.sessions.Len() }

// EvictIdle drops sessions untouched for ttl every interval until ctx is done.
func (b *Bot) EvictIdle(ctx context.Context, ttl, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := b.sessions.Evict(now.Add(-ttl)); n > 0 {
				logger.Conv.LogAttrs(ctx, slog.LevelDebug, "session.evict",
					slog.Int("count", n),
				)
			}
		}
	}
}

func (b *Bot) handleStart(c tele.Context) error {
	return b.turn(c, conversation.Restart{})
}

func (b *Bot) handleText(c tele.Context) error {
	return b.turn(c, conversation.Text{Body: c.Text()})
}

func (b *Bot) handleCallback(c tele.Context) error {
	return b.turn(c, callbackEvent(c.Callback(), b.decode))
}

func (b *Bot) handleHelp(c tele.Context) error {
	return tghelpers.SendMD(c, tutor.HelpText)
}

func (b *Bot) handleAdminStats(c tele.Context) error {
	if b.admin == nil {
		return nil
	}
	return tghelpers.SendMD(c, b.admin.AdminStats(tghelpers.BuildContext(c)))
}

func (b *Bot) handleAdminReload(c tele.Context) error {
	if b.reload == nil {
		return nil
	}
	counts, err := b.reload()
	if err != nil {
		logger.Warn(tghelpers.BuildContext(c), "content", "reload.rejected",
			slog.String("err", err.Error()),
		)
		return tghelpers.SendText(c, tutor.ReloadFailedText(err))
	}
	return tghelpers.SendMD(c, tutor.ReloadText(counts))
}

// AdminReject answers non-admins calling admin commands.
func AdminReject(c tele.Context) error {
	return tghelpers.SendText(c, tutor.AccessDenied)
}

// turn runs one event through the router, commits the session and renders
// the replies. Per-user serialisation upstream makes Get/Set race free.
func (b *Bot) turn(c tele.Context, ev conversation.Event) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	cur, _ := b.sessions.Get(user.ID)
	d := b.router.Dispatch(ctx, conversation.Turn{UserID: user.ID, Username: user.Username}, cur, ev)
	b.sessions.Set(user.ID, d.Session)
	return render(ctx, c, d.Replies)
}

func callbackEvent(cb *tele.Callback, decode conversation.Decoder) conversation.Callback {
	d := callbacks.Decode(cb)
	tok := conversation.Token{Namespace: d.Namespace, Payload: d.Payload}
	ev := conversation.Callback{Raw: tok}
	if decode != nil && tok.Namespace != "" {
		ev.Action = decode(tok)
	}
	return ev
}

// render answers toasts right away and hands the rest to the sender as one
// job so a turn's messages keep their order.
func render(ctx context.Context, c tele.Context, replies []conversation.Reply) error {
	isCallback := c.Callback() != nil
	var out []conversation.Reply
	for _, r := range replies {
		if r.Toast != "" {
			if isCallback {
				if err := c.Respond(&tele.CallbackResponse{Text: r.Toast}); err != nil {
					logger.Debug(ctx, "tg", "callback.answer_failed", slog.String("err", err.Error()))
				}
			} else {
				out = append(out, conversation.Reply{Text: r.Toast})
			}
		}
		if r.Text != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil
	}
	markup := false
	for _, r := range out {
		markup = markup || r.Menu != nil || len(r.Buttons) > 0
	}
	tghelpers.CountReplies(c, len(out), markup)
	sent := 0
	return tghelpers.Async(c, "turn.replies", "sendMessage", func() error {
		// a retried job resumes after the last delivered reply
		for ; sent < len(out); sent++ {
			if err := deliver(ctx, c, isCallback, out[sent]); err != nil {
				return err
			}
		}
		return nil
	})
}

func deliver(ctx context.Context, c tele.Context, isCallback bool, r conversation.Reply) error {
	opts := sendOptions(ctx, r)
	if r.Edit && isCallback && r.Menu == nil {
		err := c.Edit(r.Text, opts)
		if err == nil || errors.Is(err, tele.ErrSameMessageContent) {
			return nil
		}
		logger.Debug(ctx, "tg", "edit.fallback_send", slog.String("err", err.Error()))
	}
	return c.Send(r.Text, opts)
}

func sendOptions(ctx context.Context, r conversation.Reply) *tele.SendOptions {
	opts := &tele.SendOptions{}
	if r.Format == conversation.Markdown {
		opts.ParseMode = tele.ModeMarkdown
	}
	switch {
	case r.Menu != nil:
		opts.ReplyMarkup = keyboard.Menu(r.Menu...)
	case len(r.Buttons) > 0:
		opts.ReplyMarkup = inlineMarkup(ctx, r.Buttons)
	}
	return opts
}

func inlineMarkup(ctx context.Context, buttons [][]conversation.Button) *tele.ReplyMarkup {
	rows := make([][]keyboard.Button, 0, len(buttons))
	for _, row := range buttons {
		r := make([]keyboard.Button, 0, len(row))
		for _, btn := range row {
			tok := btn.Action.Token()
			r = append(r, keyboard.Button{Text: btn.Text, Data: callbacks.Data{Namespace: tok.Namespace, Payload: tok.Payload}})
		}
		rows = append(rows, r)
	}
	return keyboard.Inline(ctx, rows...)
}
