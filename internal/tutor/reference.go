package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
	"github.com/m3rciful/pharmtutor/internal/progress"
)

// GlossaryPageSize is the number of terms per glossary page.
const GlossaryPageSize = 8

func (t *Tutor) registerReference(r *conversation.Router) {
	r.Handle(StateNTSelect, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsNT: conversation.OnAction(t.pickTransmitter),
	}})
	r.Handle(StateGlossaryBrowse, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsGlossPage: conversation.OnAction(t.turnGlossaryPage),
		nsGlossTerm: conversation.OnAction(t.pickTerm),
		nsNoop:      conversation.OnAction(ignore[GlossaryBrowse]),
	}})
	r.Handle(StateTipView, conversation.Route{})
	r.Handle(StateProgressView, conversation.Route{})
}

func ignore[S conversation.Session](context.Context, conversation.Turn, S, Noop) (conversation.Result, error) {
	return conversation.Stay(), nil
}

// Neurotransmitters.

func (t *Tutor) showTransmitters(edit bool) conversation.Result {
	nts := t.catalog().Neurotransmitters
	rows := make([][]conversation.Button, 0, len(nts)+1)
	for _, nt := range nts {
		rows = append(rows, btn(nt.Name, PickTransmitter{Key: nt.Key}))
	}
	rows = append(rows, backRow(BackMain))
	return conversation.Go(NTSelect{}, editIf(edit, md("🧠 *Нейромедиаторные системы*\n\nВыберите систему для изучения:", rows...)))
}

func (t *Tutor) pickTransmitter(_ context.Context, _ conversation.Turn, _ NTSelect, a PickTransmitter) (conversation.Result, error) {
	nt, ok := t.catalog().Neurotransmitter(a.Key)
	if !ok {
		return conversation.Stay(notFound("Нейромедиатор не найден.")), nil
	}
	return conversation.Stay(edited(md(transmitterText(nt),
		btn("⬅️ К нейромедиаторам", Back{Target: BackNTSelect}),
		homeRow(),
	))), nil
}

func transmitterText(nt content.Neurotransmitter) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🧠 *%s*\n\n", nt.Name)
	fmt.Fprintf(&b, "*Синтез:*\n%s\n\n", nt.Synthesis)
	fmt.Fprintf(&b, "*Деградация:*\n%s\n\n", nt.Degradation)
	fmt.Fprintf(&b, "*Рецепторы:*\n%s\n\n", nt.Receptors)
	b.WriteString("*Пути:*\n" + bullets(nt.Pathways) + "\n\n")
	fmt.Fprintf(&b, "*Клиническое значение:*\n%s\n\n", nt.ClinicalRelevance)
	b.WriteString("*Связанные препараты:*\n" + bullets(nt.RelatedDrugs))
	return b.String()
}

// Glossary.

// showGlossary renders page; an out of range page degrades to the first one.
func (t *Tutor) showGlossary(page int, edit, intro bool) conversation.Result {
	terms := t.catalog().Glossary
	pages := (len(terms) + GlossaryPageSize - 1) / GlossaryPageSize
	if page < 0 || page >= pages {
		page = 0
	}

	rows := make([][]conversation.Button, 0, GlossaryPageSize+2)
	start := page * GlossaryPageSize
	end := min(start+GlossaryPageSize, len(terms))
	for i := start; i < end; i++ {
		rows = append(rows, btn(truncate(terms[i].Term, 30, "…"), PickTerm{Index: i}))
	}
	if pages > 0 {
		var nav []conversation.Button
		if page > 0 {
			nav = append(nav, conversation.Button{Text: "◀️", Action: GlossaryPage{Page: page - 1}})
		}
		nav = append(nav, conversation.Button{Text: fmt.Sprintf("%d/%d", page+1, pages), Action: Noop{}})
		if page < pages-1 {
			nav = append(nav, conversation.Button{Text: "▶️", Action: GlossaryPage{Page: page + 1}})
		}
		rows = append(rows, nav)
	}
	rows = append(rows, backRow(BackMain))

	text := "📖 *Глоссарий* — выберите термин:"
	if intro {
		text = "📖 *Глоссарий психофармакологии*\n\nВыберите термин:"
	}
	return conversation.Go(GlossaryBrowse{Page: page}, editIf(edit, md(text, rows...)))
}

func (t *Tutor) turnGlossaryPage(_ context.Context, _ conversation.Turn, _ GlossaryBrowse, a GlossaryPage) (conversation.Result, error) {
	return t.showGlossary(a.Page, true, false), nil
}

func (t *Tutor) pickTerm(_ context.Context, _ conversation.Turn, cur GlossaryBrowse, a PickTerm) (conversation.Result, error) {
	term, ok := t.catalog().Term(a.Index)
	if !ok {
		return conversation.Stay(notFound("Термин не найден.")), nil
	}
	return conversation.Go(GlossaryBrowse{Page: cur.Page}, edited(md(fmt.Sprintf("📖 *%s*\n\n%s", term.Term, term.Definition),
		btn("⬅️ К глоссарию", Back{Target: BackGlossary}),
		homeRow(),
	))), nil
}

// Tip of the day.

func (t *Tutor) showTip() conversation.Result {
	tips := t.catalog().Tips
	tip := tips[t.pick(len(tips))]
	return conversation.Go(TipView{}, md("💡 *Совет дня*\n\n"+tip, backRow(BackMain)))
}

// Progress.

func (t *Tutor) showProgress(ctx context.Context, turn conversation.Turn) conversation.Result {
	st := t.stats(ctx, turn.UserID)
	streak, err := t.store.TouchDailyStreak(ctx, turn.UserID, t.now())
	if err != nil {
		t.storeFault(ctx, "touch_streak", err)
		streak = progress.Streak{}
	}
	return conversation.Go(ProgressView{}, md(progressText(st, streak), backRow(BackMain)))
}

var sectionPrefixes = strings.NewReplacer(
	"drug:", "Препарат: ",
	"case:", "Случай #",
	"flashcard:", "Карточка: ",
)

func progressText(st progress.Stats, streak progress.Streak) string {
	lines := []string{"📊 *Ваш прогресс*\n"}

	fire := strings.Repeat("🔥", min(max(streak.Current, 0), 5))
	lines = append(lines, fmt.Sprintf("*Стрик активности:* %s %d %s", fire, streak.Current, dayWord(streak.Current)))
	if streak.Longest > streak.Current {
		lines = append(lines, fmt.Sprintf("  _Рекорд: %d дней_", streak.Longest))
	}
	lines = append(lines, "")

	if st.TotalQuestions > 0 {
		lines = append(lines,
			"*📝 Тесты:*",
			fmt.Sprintf("  Всего ответов: %d", st.TotalQuestions),
			fmt.Sprintf("  Правильных: %d (%s%%)", st.CorrectAnswers, formatAccuracy(st.Accuracy)),
		)
		if len(st.Categories) > 0 {
			lines = append(lines, "\n  *По категориям:*")
			for _, c := range st.Categories {
				lines = append(lines, fmt.Sprintf("    • %s: %d/%d (%d%%)", c.Category, c.Correct, c.Total, percent(c.Correct, c.Total)))
			}
		}
	} else {
		lines = append(lines, "*📝 Тесты:* _ещё не проходили_")
	}

	if len(st.FlashcardRatings) > 0 {
		total := 0
		for _, n := range st.FlashcardRatings {
			total += n
		}
		lines = append(lines, "\n*🃏 Карточки:*", fmt.Sprintf("  Оценено карточек: %d", total))
		for _, r := range []struct{ key, label string }{
			{RatingEasy, "😊 Легко"},
			{RatingMedium, "🤔 Средне"},
			{RatingHard, "😓 Сложно"},
		} {
			if n, ok := st.FlashcardRatings[r.key]; ok {
				lines = append(lines, fmt.Sprintf("  %s: %d", r.label, n))
			}
		}
	} else {
		lines = append(lines, "\n*🃏 Карточки:* _ещё не изучали_")
	}

	if len(st.Sections) > 0 {
		lines = append(lines, "\n*📚 Изученные разделы:*")
		for i, s := range st.Sections {
			if i == 5 {
				lines = append(lines, fmt.Sprintf("  _...и ещё %d разделов_", len(st.Sections)-5))
				break
			}
			lines = append(lines, fmt.Sprintf("  • %s (×%d)", esc(sectionPrefixes.Replace(s.Section)), s.Count))
		}
	} else {
		lines = append(lines, "\n*📚 Разделы:* _ещё не изучали_")
	}
	return strings.Join(lines, "\n")
}

func dayWord(n int) string {
	if n == 1 {
		return "день"
	}
	return "дней"
}
