package tutor

import (
	"context"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
)

func (t *Tutor) registerCompare(r *conversation.Router) {
	r.Handle(StateCompareSelect1, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCompare1: conversation.OnAction(t.pickFirstClass),
	}})
	r.Handle(StateCompareSelect2, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCompare2: conversation.OnAction(t.pickSecondClass),
		nsCompare:  conversation.OnAction(t.compareAgain),
	}})
}

func (t *Tutor) compareRows(step int) [][]conversation.Button {
	classes := t.catalog().Classes
	rows := make([][]conversation.Button, 0, len(classes)+1)
	for i, cl := range classes {
		rows = append(rows, btn(cl, PickCompare{Step: step, Index: i}))
	}
	return append(rows, backRow(BackMain))
}

func (t *Tutor) showCompareFirst(edit bool) conversation.Result {
	return conversation.Go(CompareSelect1{}, editIf(edit,
		md("⚖️ *Сравнение классов*\n\nВыберите *первый* класс препаратов:", t.compareRows(1)...)))
}

func (t *Tutor) pickFirstClass(_ context.Context, _ conversation.Turn, _ CompareSelect1, a PickCompare) (conversation.Result, error) {
	class, ok := t.catalog().Class(a.Index)
	if !ok {
		return conversation.Stay(notFound("Класс не найден.")), nil
	}
	return conversation.Go(CompareSelect2{First: class}, edited(md(
		"Первый класс: *"+class+"*\n\nВыберите *второй* класс:", t.compareRows(2)...))), nil
}

func (t *Tutor) pickSecondClass(_ context.Context, _ conversation.Turn, cur CompareSelect2, a PickCompare) (conversation.Result, error) {
	cat := t.catalog()
	second, ok := cat.Class(a.Index)
	if !ok {
		return conversation.Stay(notFound("Класс не найден.")), nil
	}
	text := comparisonText(cur.First, cat.DrugsByClass(cur.First), second, cat.DrugsByClass(second))
	return conversation.Stay(edited(md(text,
		btn("🔄 Новое сравнение", Again{Flow: nsCompare}),
		homeRow(),
	))), nil
}

func (t *Tutor) compareAgain(_ context.Context, _ conversation.Turn, _ CompareSelect2, _ Again) (conversation.Result, error) {
	return conversation.Go(CompareSelect1{}, edited(md("⚖️ Выберите *первый* класс препаратов:", t.compareRows(1)...))), nil
}

func comparisonText(first string, left []content.Drug, second string, right []content.Drug) string {
	lines := []string{"⚖️ *" + first + "* vs *" + second + "*\n"}
	section := func(class string, drugs []content.Drug) {
		lines = append(lines, "*── "+class+" ──*")
		if len(drugs) == 0 {
			lines = append(lines, "_Нет данных_")
			return
		}
		for _, d := range drugs {
			lines = append(lines,
				"• *"+d.Name+"*",
				"  _"+truncate(d.Mechanism, 100, "...")+"_",
				"  Показания: "+strings.Join(firstN(d.Indications, 2), ", "),
			)
		}
	}
	section(first, left)
	lines = append(lines, "")
	section(second, right)
	return strings.Join(lines, "\n")
}
