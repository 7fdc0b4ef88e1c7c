package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
)

func (t *Tutor) registerDrugs(r *conversation.Router) {
	r.Handle(StateDrugClassSelect, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsClass: conversation.OnAction(t.pickClass),
	}})
	r.Handle(StateDrugList, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsDrug: conversation.OnAction(t.pickDrug),
	}})
	r.Handle(StateDrugDetail, conversation.Route{})
}

func (t *Tutor) showClasses(edit bool) conversation.Result {
	cat := t.catalog()
	rows := make([][]conversation.Button, 0, len(cat.Classes)+1)
	for i, cl := range cat.Classes {
		rows = append(rows, btn(cl, PickClass{Index: i}))
	}
	rows = append(rows, backRow(BackMain))
	return conversation.Go(DrugClassSelect{},
		editIf(edit, md("💊 *Справочник препаратов*\n\nВыберите фармакологический класс:", rows...)))
}

func (t *Tutor) showDrugList(class string) (conversation.Result, bool) {
	drugs := t.catalog().DrugsByClass(class)
	if len(drugs) == 0 {
		return conversation.Result{}, false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "💊 *%s* — %d препарат(ов)\n\n", class, len(drugs))
	rows := make([][]conversation.Button, 0, len(drugs)+1)
	for i, d := range drugs {
		fmt.Fprintf(&b, "• %s\n", d.Name)
		rows = append(rows, btn(d.Name, PickDrug{Index: i}))
	}
	b.WriteString("\nВыберите препарат для подробной информации:")
	rows = append(rows, btn("⬅️ Назад к классам", Back{Target: BackClassSelect}))
	return conversation.Go(DrugList{Class: class}, edited(md(b.String(), rows...))), true
}

func (t *Tutor) pickClass(_ context.Context, _ conversation.Turn, _ DrugClassSelect, a PickClass) (conversation.Result, error) {
	class, ok := t.catalog().Class(a.Index)
	if !ok {
		return conversation.Stay(notFound("Класс не найден.")), nil
	}
	res, ok := t.showDrugList(class)
	if !ok {
		return conversation.Stay(notFound("Препараты не найдены.")), nil
	}
	return res, nil
}

func (t *Tutor) pickDrug(ctx context.Context, turn conversation.Turn, cur DrugList, a PickDrug) (conversation.Result, error) {
	drugs := t.catalog().DrugsByClass(cur.Class)
	if a.Index < 0 || a.Index >= len(drugs) {
		return conversation.Stay(notFound("Препарат не найден.")), nil
	}
	d := drugs[a.Index]
	t.visit(ctx, turn.UserID, "drug:"+d.Name)
	return conversation.Go(DrugDetail{Class: cur.Class, Drug: d.Name}, edited(md(drugSummary(d),
		btn("⬅️ Назад к списку", Back{Target: BackDrugList}),
		homeRow(),
	))), nil
}

func drugSummary(d content.Drug) string {
	var b strings.Builder
	fmt.Fprintf(&b, "💊 *%s* (%s)\n\n", d.Name, d.Class)
	fmt.Fprintf(&b, "*Механизм действия:*\n%s\n\n", d.Mechanism)
	b.WriteString("*Показания:*\n" + bullets(d.Indications) + "\n\n")
	b.WriteString("*Побочные эффекты:*\n" + bullets(d.SideEffects) + "\n\n")
	b.WriteString("*Взаимодействия:*\n" + bullets(d.Interactions) + "\n\n")
	fmt.Fprintf(&b, "*Дозировка:*\n  %s", orDash(d.Dosage))
	return b.String()
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "  —"
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = "  • " + it
	}
	return strings.Join(lines, "\n")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

// notFound reports a stale or unknown selection without leaving the screen.
func notFound(text string) conversation.Reply {
	return conversation.Reply{Toast: text}
}
