package tutor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
	"github.com/m3rciful/pharmtutor/internal/progress"
)

// Quiz commands.
const (
	QuizStart  = "start"
	QuizStats  = "stats"
	QuizNextQ  = "next"
	QuizFinish = "finish"
)

// PrefQuizDifficulty is the preference key holding the last chosen difficulty.
const PrefQuizDifficulty = "quiz_difficulty"

const difficultyAll = "all"

var difficultyLabels = map[string]string{
	content.DifficultyEasy:   "🟢 Лёгкий",
	content.DifficultyMedium: "🟡 Средний",
	content.DifficultyHard:   "🔴 Сложный",
}

func (t *Tutor) registerQuiz(r *conversation.Router) {
	r.Handle(StateQuizMenu, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsQuiz: conversation.OnAction(t.quizMenuCommand),
	}})
	r.Handle(StateQuizCategory, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsQuizCat: conversation.OnAction(t.pickQuizCategory),
	}})
	r.Handle(StateQuizDifficulty, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsQuizDiff: conversation.OnAction(t.pickDifficulty),
	}})
	r.Handle(StateQuizQuestion, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsQuizAnswer: conversation.OnAction(t.answerQuiz),
	}})
	r.Handle(StateQuizNext, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsQuiz: conversation.OnAction(t.quizNextCommand),
	}})
}

func (t *Tutor) showQuizMenu(edit bool) conversation.Result {
	return conversation.Go(QuizMenu{}, editIf(edit, md("📝 *Тест по психофармакологии*\n\nПроверьте свои знания!",
		btn("▶️ Начать тест", QuizCommand{Cmd: QuizStart}),
		btn("📊 Моя статистика", QuizCommand{Cmd: QuizStats}),
		backRow(BackMain),
	)))
}

func (t *Tutor) showQuizCategories() conversation.Result {
	cats := t.catalog().QuizCategories
	rows := make([][]conversation.Button, 0, len(cats)+2)
	for i, c := range cats {
		rows = append(rows, btn(c, PickQuizCategory{Index: i}))
	}
	rows = append(rows,
		btn("🔀 Все категории", PickQuizCategory{All: true}),
		backRow(BackQuizMenu),
	)
	return conversation.Go(QuizCategory{}, edited(md("Выберите *категорию* вопросов:", rows...)))
}

func difficultyRows() [][]conversation.Button {
	return [][]conversation.Button{
		btn(difficultyLabels[content.DifficultyEasy], PickDifficulty{Level: content.DifficultyEasy}),
		btn(difficultyLabels[content.DifficultyMedium], PickDifficulty{Level: content.DifficultyMedium}),
		btn(difficultyLabels[content.DifficultyHard], PickDifficulty{Level: content.DifficultyHard}),
		btn("🔀 Все уровни", PickDifficulty{Level: difficultyAll}),
		backRow(BackQuizCat),
	}
}

func (t *Tutor) quizMenuCommand(ctx context.Context, turn conversation.Turn, cur QuizMenu, a QuizCommand) (conversation.Result, error) {
	switch a.Cmd {
	case QuizStart:
		return t.showQuizCategories(), nil
	case QuizStats:
		st := t.stats(ctx, turn.UserID)
		return conversation.Go(MainMenu{}, edited(md(quizStatsText(st))), mainMenuReply()), nil
	}
	return conversation.Stay(t.hint(cur)), nil
}

func (t *Tutor) pickQuizCategory(_ context.Context, _ conversation.Turn, _ QuizCategory, a PickQuizCategory) (conversation.Result, error) {
	category := ""
	if !a.All {
		c, ok := t.catalog().QuizCategory(a.Index)
		if !ok {
			return conversation.Stay(notFound("Категория не найдена.")), nil
		}
		category = c
	}
	return conversation.Go(QuizDifficulty{Category: category},
		edited(md("Выберите *уровень сложности*:", difficultyRows()...))), nil
}

func (t *Tutor) pickDifficulty(ctx context.Context, turn conversation.Turn, cur QuizDifficulty, a PickDifficulty) (conversation.Result, error) {
	difficulty := a.Level
	switch difficulty {
	case difficultyAll:
		difficulty = ""
	case content.DifficultyEasy, content.DifficultyMedium, content.DifficultyHard:
	default:
		return conversation.Stay(notFound("Уровень не найден.")), nil
	}
	if err := t.store.UpsertPreference(ctx, turn.UserID, PrefQuizDifficulty, a.Level); err != nil {
		t.storeFault(ctx, "upsert_preference", err)
	}

	questions := t.catalog().FilterQuestions(cur.Category, difficulty)
	if len(questions) == 0 {
		return conversation.Stay(edited(plain("По выбранным фильтрам нет вопросов. Попробуйте другую комбинацию.",
			difficultyRows()...))), nil
	}
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	t.shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return t.sendQuestion(QuizRun{ID: t.newID(), Questions: ids}), nil
}

// sendQuestion shows the question at run.Index, dropping ids that vanished
// from the catalog since the run started.
func (t *Tutor) sendQuestion(run QuizRun) conversation.Result {
	cat := t.catalog()
	for run.Index < len(run.Questions) {
		if _, ok := cat.Question(run.Questions[run.Index]); ok {
			break
		}
		rest := make([]string, 0, len(run.Questions)-1)
		rest = append(rest, run.Questions[:run.Index]...)
		run.Questions = append(rest, run.Questions[run.Index+1:]...)
	}
	if run.Index >= len(run.Questions) {
		return finishQuiz(run)
	}

	q, _ := cat.Question(run.Questions[run.Index])
	text := fmt.Sprintf("❓ *Вопрос %d/%d*\nКатегория: %s | %s\n\n%s",
		run.Index+1, len(run.Questions), q.Category, difficultyLabel(q.Difficulty), q.Text)
	rows := make([][]conversation.Button, len(q.Options))
	for i, opt := range q.Options {
		rows[i] = btn(optionLabel(i)+". "+opt, AnswerQuiz{Option: i})
	}
	return conversation.Go(QuizQuestion{Run: run}, edited(md(text, rows...)))
}

func (t *Tutor) answerQuiz(ctx context.Context, turn conversation.Turn, cur QuizQuestion, a AnswerQuiz) (conversation.Result, error) {
	run := cur.Run
	if run.Index >= len(run.Questions) {
		return finishQuiz(run), nil
	}
	q, ok := t.catalog().Question(run.Questions[run.Index])
	if !ok {
		return t.sendQuestion(run), nil
	}
	if a.Option < 0 || a.Option >= len(q.Options) {
		return conversation.Stay(notFound("Вариант ответа не найден.")), nil
	}

	outcome := progress.OutcomeWrong
	result := "❌ Неправильно. Правильный ответ: " + strong(q.Options[q.Correct])
	if a.Option == q.Correct {
		run.Score++
		outcome = progress.OutcomeCorrect
		result = "✅ Правильно!"
	}
	t.record(ctx, progress.Event{
		UserID:   turn.UserID,
		Kind:     progress.KindQuizAnswer,
		Subject:  q.Category,
		Outcome:  outcome,
		DedupKey: run.ID + ":" + strconv.Itoa(run.Index),
	})
	run.Index++

	text := fmt.Sprintf("%s\n\n💬 *Пояснение:*\n%s\n\n📊 Счёт: %d/%d", result, q.Explanation, run.Score, run.Index)
	return conversation.Go(QuizNext{Run: run}, edited(md(text,
		btn("▶️ Следующий вопрос", QuizCommand{Cmd: QuizNextQ}),
		btn("⏹ Завершить тест", QuizCommand{Cmd: QuizFinish}),
	))), nil
}

func (t *Tutor) quizNextCommand(_ context.Context, _ conversation.Turn, cur QuizNext, a QuizCommand) (conversation.Result, error) {
	switch a.Cmd {
	case QuizNextQ:
		return t.sendQuestion(cur.Run), nil
	case QuizFinish:
		return finishQuiz(cur.Run), nil
	}
	return conversation.Stay(t.hint(cur)), nil
}

func finishQuiz(run QuizRun) conversation.Result {
	total := run.Index
	pct := percent(run.Score, total)
	text := fmt.Sprintf("🏁 *Тест завершён!*\n\nПравильных ответов: *%d/%d* (%d%%)\n%s",
		run.Score, total, pct, grade(pct))
	return conversation.Go(MainMenu{}, edited(md(text)), mainMenuReply())
}

func grade(pct int) string {
	switch {
	case pct >= 80:
		return "🏆 Отлично!"
	case pct >= 60:
		return "👍 Хороший результат"
	case pct >= 40:
		return "📚 Нужно повторить"
	}
	return "💪 Продолжайте учиться!"
}

func difficultyLabel(d string) string {
	if l, ok := difficultyLabels[d]; ok {
		return l
	}
	return d
}

func quizStatsText(st progress.Stats) string {
	lines := []string{
		"📊 *Ваша статистика*\n",
		fmt.Sprintf("Всего ответов: *%d*", st.TotalQuestions),
		fmt.Sprintf("Правильных: *%d* (%s%%)\n", st.CorrectAnswers, formatAccuracy(st.Accuracy)),
	}
	if len(st.Categories) == 0 {
		lines = append(lines, "Вы ещё не проходили тесты.")
		return strings.Join(lines, "\n")
	}
	lines = append(lines, "*По категориям:*")
	for _, c := range st.Categories {
		lines = append(lines, fmt.Sprintf("  • %s: %d/%d (%d%%)", c.Category, c.Correct, c.Total, percent(c.Correct, c.Total)))
	}
	return strings.Join(lines, "\n")
}

func formatAccuracy(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
