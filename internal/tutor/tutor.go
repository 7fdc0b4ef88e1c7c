// Package tutor implements the study flows of the bot on top of the
// conversation router: drug reference, quizzes, flashcards, clinical cases,
// interaction checks, search, reference screens and drug comparisons.
package tutor

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
	"github.com/m3rciful/pharmtutor/internal/progress"
)

// Store is the persistence the tutor needs. Reads degrade to zero values and
// writes are best effort, so no Store error ever fails a turn.
type Store interface {
	EnsureUser(ctx context.Context, userID int64, username string) error
	RecordEvent(ctx context.Context, ev progress.Event) (bool, error)
	AggregateStats(ctx context.Context, userID int64) (progress.Stats, error)
	UpsertPreference(ctx context.Context, userID int64, key, value string) error
	TouchDailyStreak(ctx context.Context, userID int64, today time.Time) (progress.Streak, error)
	AdminStats(ctx context.Context) (progress.AdminStats, error)
}

// Options configure a Tutor. Content and Store are required; the rest have
// defaults.
type Options struct {
	Content content.Source
	Store   Store

	Now     func() time.Time
	Shuffle func(n int, swap func(i, j int))
	Pick    func(n int) int
	NewID   func() string
	Observe func(state conversation.State, outcome conversation.Outcome, took time.Duration)
}

// Tutor owns the flow handlers.
type Tutor struct {
	content content.Source
	store   Store
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
	pick    func(n int) int
	newID   func() string
	observe func(conversation.State, conversation.Outcome, time.Duration)
}

// New builds a tutor.
func New(opts Options) *Tutor {
	t := &Tutor{
		content: opts.Content,
		store:   opts.Store,
		now:     opts.Now,
		shuffle: opts.Shuffle,
		pick:    opts.Pick,
		newID:   opts.NewID,
		observe: opts.Observe,
	}
	if t.now == nil {
		t.now = time.Now
	}
	if t.shuffle == nil {
		t.shuffle = rand.Shuffle
	}
	if t.pick == nil {
		t.pick = rand.IntN
	}
	if t.newID == nil {
		t.newID = uuid.NewString
	}
	return t
}

// Router builds the conversation router with every tutor state registered.
func (t *Tutor) Router() *conversation.Router {
	r := conversation.NewRouter(conversation.Options{
		Entry:         func() conversation.Session { return MainMenu{} },
		Welcome:       t.welcome,
		BackNamespace: nsBack,
		Back:          t.back,
		Hint:          t.hint,
		Fault:         faultReply,
		Observe:       t.observe,
	})

	r.Handle(StateMainMenu, conversation.Route{Text: conversation.OnText(t.mainMenuText)})
	t.registerDrugs(r)
	t.registerQuiz(r)
	t.registerFlashcards(r)
	t.registerCases(r)
	t.registerInteractions(r)
	t.registerSearch(r)
	t.registerReference(r)
	t.registerCompare(r)
	t.registerPharma(r)
	return r
}

// MenuHint is the reply to input the current screen does not expect.
const MenuHint = "Используйте кнопки меню или /start для возврата в главное меню."

var faultReply = conversation.Reply{
	Text: "⚠️ Произошла ошибка. Нажмите /start, чтобы вернуться в главное меню.",
}

func (t *Tutor) catalog() *content.Catalog {
	return t.content.Current()
}

func (t *Tutor) welcome(ctx context.Context, turn conversation.Turn) []conversation.Reply {
	if err := t.store.EnsureUser(ctx, turn.UserID, turn.Username); err != nil {
		t.storeFault(ctx, "ensure_user", err)
	}
	return []conversation.Reply{{Text: welcomeText, Format: conversation.Markdown, Menu: mainMenuRows}}
}

func (t *Tutor) hint(cur conversation.Session) conversation.Reply {
	if cur.State() == StateMainMenu {
		return conversation.Reply{Text: "Пожалуйста, воспользуйтесь кнопками меню.", Menu: mainMenuRows}
	}
	return conversation.Reply{Text: MenuHint}
}

func (t *Tutor) mainMenuText(ctx context.Context, turn conversation.Turn, _ MainMenu, text string) (conversation.Result, error) {
	switch text {
	case menuDrugs:
		return t.showClasses(false), nil
	case menuQuiz:
		return t.showQuizMenu(false), nil
	case menuFlashcards:
		return t.showDecks(false), nil
	case menuCases:
		return t.showCaseList(false), nil
	case menuInteractions:
		return t.askFirstDrug(), nil
	case menuSearch:
		return t.askSearch(), nil
	case menuTransmitters:
		return t.showTransmitters(false), nil
	case menuProgress:
		return t.showProgress(ctx, turn), nil
	case menuGlossary:
		return t.showGlossary(0, false, true), nil
	case menuTip:
		return t.showTip(), nil
	case menuPharma:
		return t.askPharmaDrugs(), nil
	case menuCompare:
		return t.showCompareFirst(false), nil
	}
	return conversation.Stay(t.hint(MainMenu{})), nil
}

// back handles the shared back namespace. Targets that need scratch fields
// read them from the current session and fall back to the parent screen.
func (t *Tutor) back(ctx context.Context, _ conversation.Turn, cur conversation.Session, act conversation.Action) (conversation.Result, error) {
	b, _ := act.(Back)
	switch b.Target {
	case BackMain:
		return toMainMenu(), nil
	case BackClassSelect:
		return t.showClasses(true), nil
	case BackDrugList:
		if d, ok := cur.(DrugDetail); ok {
			if res, ok := t.showDrugList(d.Class); ok {
				return res, nil
			}
		}
		return t.showClasses(true), nil
	case BackQuizMenu:
		return t.showQuizMenu(true), nil
	case BackQuizCat:
		return t.showQuizCategories(), nil
	case BackCaseList:
		return t.showCaseList(true), nil
	case BackGlossary:
		page := 0
		if g, ok := cur.(GlossaryBrowse); ok {
			page = g.Page
		}
		return t.showGlossary(page, true, false), nil
	case BackNTSelect:
		return t.showTransmitters(true), nil
	}
	logger.Debug(ctx, "conv", "back.unknown_target",
		slog.String("state", string(cur.State())),
		slog.String("target", b.Target),
	)
	return conversation.Stay(t.hint(cur)), nil
}

func toMainMenu() conversation.Result {
	return conversation.Go(MainMenu{}, mainMenuReply())
}

func mainMenuReply() conversation.Reply {
	return conversation.Reply{Text: "Главное меню:", Menu: mainMenuRows}
}

func (t *Tutor) record(ctx context.Context, ev progress.Event) {
	if _, err := t.store.RecordEvent(ctx, ev); err != nil {
		t.storeFault(ctx, "record_event", err)
	}
}

func (t *Tutor) visit(ctx context.Context, userID int64, subject string) {
	t.record(ctx, progress.Event{UserID: userID, Kind: progress.KindVisit, Subject: subject})
}

func (t *Tutor) stats(ctx context.Context, userID int64) progress.Stats {
	st, err := t.store.AggregateStats(ctx, userID)
	if err != nil {
		t.storeFault(ctx, "aggregate_stats", err)
		return progress.Stats{}
	}
	return st
}

func (t *Tutor) storeFault(ctx context.Context, op string, err error) {
	logger.Warn(ctx, "store", "degraded",
		slog.String("op", op),
		slog.String("err", err.Error()),
	)
}
