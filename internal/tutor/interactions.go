package tutor

import (
	"context"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
)

// maxInput caps free text kept in a session or echoed back.
const maxInput = 100

var severityLabels = map[string]string{
	content.SeveritySevere:   "🔴 Серьёзное",
	content.SeverityModerate: "🟡 Умеренное",
	content.SeverityMild:     "🟢 Незначительное",
}

func (t *Tutor) registerInteractions(r *conversation.Router) {
	r.Handle(StateInterDrug1, conversation.Route{Text: conversation.OnText(t.firstDrug)})
	r.Handle(StateInterDrug2, conversation.Route{Text: conversation.OnText(t.secondDrug)})
	r.Handle(StateInterResult, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsInter: conversation.OnAction(t.interAgain),
	}})
}

func (t *Tutor) askFirstDrug() conversation.Result {
	return conversation.Go(InterDrug1{}, md("⚠️ *Проверка взаимодействий*\n\n"+
		"Введите название *первого препарата* (на русском или латинском):", backRow(BackMain)))
}

func cleanInput(text string) string {
	return truncate(strings.TrimSpace(text), maxInput, "")
}

func (t *Tutor) firstDrug(_ context.Context, _ conversation.Turn, _ InterDrug1, text string) (conversation.Result, error) {
	drug := cleanInput(text)
	if drug == "" {
		return conversation.Stay(plain("Пожалуйста, введите название препарата.")), nil
	}
	return conversation.Go(InterDrug2{First: drug}, md("Первый препарат: "+strong(drug)+"\n\n"+
		"Теперь введите название *второго препарата*:", backRow(BackMain))), nil
}

func (t *Tutor) secondDrug(_ context.Context, _ conversation.Turn, cur InterDrug2, text string) (conversation.Result, error) {
	second := cleanInput(text)
	if second == "" {
		return conversation.Stay(plain("Пожалуйста, введите название препарата.")), nil
	}
	found := t.catalog().FindInteractions(cur.First, second)
	return conversation.Go(InterResult{}, md(interactionText(cur.First, second, found),
		btn("🔄 Проверить другую пару", Again{Flow: nsInter}),
		homeRow(),
	)), nil
}

func (t *Tutor) interAgain(_ context.Context, _ conversation.Turn, _ InterResult, _ Again) (conversation.Result, error) {
	return conversation.Go(InterDrug1{}, edited(md("Введите название *первого препарата*:"))), nil
}

func interactionText(first, second string, found []content.Interaction) string {
	if len(found) == 0 {
		return "✅ *Взаимодействия не найдены*\n\n" +
			"Между " + strong(first) + " и " + strong(second) + " нет зарегистрированных взаимодействий в базе.\n\n" +
			"⚠️ _База данных неполная — всегда консультируйтесь с актуальными источниками._"
	}
	lines := []string{"⚠️ " + strong("Взаимодействия: "+first+" + "+second) + "\n"}
	for _, in := range found {
		label, ok := severityLabels[in.Severity]
		if !ok {
			label = in.Severity
		}
		lines = append(lines, "*"+label+"*", in.Description, "")
	}
	return strings.Join(lines, "\n")
}
