package tutor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/pharmtutor/core/telegram/format"
	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
)

// Audiences of the pharma comparison report.
const (
	AudienceResident   = "resident"
	AudienceSpecialist = "specialist"
)

const (
	pharmaMinDrugs   = 2
	pharmaMaxDrugs   = 4
	pharmaContextMax = 300
	// messageLimit keeps chunks below Telegram's 4096 character cap.
	messageLimit = 4000
)

func (t *Tutor) registerPharma(r *conversation.Router) {
	r.Handle(StatePharmaInput, conversation.Route{Text: conversation.OnText(t.pharmaDrugs)})
	r.Handle(StatePharmaContext, conversation.Route{Text: conversation.OnText(t.pharmaContext)})
	r.Handle(StatePharmaFocus, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsPharmaFoc: conversation.OnAction(t.pharmaFocus),
	}})
	r.Handle(StatePharmaAudience, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsPharmaAud: conversation.OnAction(t.pharmaAudience),
		nsPharma:    conversation.OnAction(t.pharmaAgain),
	}})
}

func (t *Tutor) askPharmaDrugs() conversation.Result {
	return conversation.Go(PharmaInput{}, md("🔬 *Детальный сравнительный анализ*\n\n"+
		"Введите МНН препаратов через запятую (2–4 препарата):\n"+
		"_Например: Флуоксетин, Эсциталопрам, Пароксетин_", backRow(BackMain)))
}

// splitDrugList parses a comma or newline separated list, keeping at most
// pharmaMaxDrugs entries.
func splitDrugList(text string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '\n' }) {
		if p := cleanInput(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > pharmaMaxDrugs {
		out = out[:pharmaMaxDrugs]
	}
	return out
}

func (t *Tutor) pharmaDrugs(_ context.Context, _ conversation.Turn, _ PharmaInput, text string) (conversation.Result, error) {
	drugs := splitDrugList(text)
	if len(drugs) < pharmaMinDrugs {
		return conversation.Stay(md("⚠️ Укажите *минимум 2 препарата* через запятую.")), nil
	}
	return conversation.Go(PharmaContext{Drugs: drugs}, md("Препараты: "+strong(strings.Join(drugs, " / "))+"\n\n"+
		"Введите клинический контекст (нозология, тип пациента, цель):\n"+
		"_Или_ /skip _для общего сравнения_", backRow(BackMain))), nil
}

func (t *Tutor) pharmaContext(_ context.Context, _ conversation.Turn, cur PharmaContext, text string) (conversation.Result, error) {
	ctxText := truncate(strings.TrimSpace(text), pharmaContextMax, "…")
	switch strings.ToLower(ctxText) {
	case "/skip", "skip":
		ctxText = ""
	}
	rows := make([][]conversation.Button, 0, len(focusOptions)+1)
	for i, f := range focusOptions {
		rows = append(rows, btn(f.Label, PickFocus{Index: i}))
	}
	rows = append(rows, backRow(BackMain))
	return conversation.Go(PharmaFocus{Drugs: cur.Drugs, Context: ctxText},
		md("Выберите *приоритетный фокус* сравнения:", rows...)), nil
}

func (t *Tutor) pharmaFocus(_ context.Context, _ conversation.Turn, cur PharmaFocus, a PickFocus) (conversation.Result, error) {
	if a.Index < 0 || a.Index >= len(focusOptions) {
		return conversation.Stay(notFound("Фокус не найден.")), nil
	}
	return conversation.Go(PharmaAudience{Drugs: cur.Drugs, Context: cur.Context, Focus: focusOptions[a.Index].Value},
		edited(md("Выберите *аудиторию*:",
			btn("🎓 Ординатор", PickAudience{Audience: AudienceResident}),
			btn("🔬 Специалист", PickAudience{Audience: AudienceSpecialist}),
			backRow(BackMain),
		))), nil
}

func (t *Tutor) pharmaAudience(_ context.Context, _ conversation.Turn, cur PharmaAudience, a PickAudience) (conversation.Result, error) {
	switch a.Audience {
	case AudienceResident, AudienceSpecialist:
	default:
		return conversation.Stay(notFound("Аудитория не найдена.")), nil
	}
	report := t.buildReport(cur.Drugs, cur.Context, cur.Focus)
	replies := []conversation.Reply{edited(plain("⏳ Генерирую сравнительный анализ..."))}
	for _, chunk := range format.SplitMessage(report.text(a.Audience), messageLimit) {
		replies = append(replies, md(chunk))
	}
	replies = append(replies, plain("Анализ готов.",
		btn("🔄 Новый анализ", Again{Flow: nsPharma}),
		homeRow(),
	))
	return conversation.Stay(replies...), nil
}

func (t *Tutor) pharmaAgain(_ context.Context, _ conversation.Turn, _ PharmaAudience, _ Again) (conversation.Result, error) {
	return conversation.Go(PharmaInput{}, edited(plain("Введите МНН препаратов через запятую:"))), nil
}

// pharmaDrug is a requested drug resolved against the catalog.
type pharmaDrug struct {
	content.Drug
	Found bool
}

type pharmaReport struct {
	Drugs    []pharmaDrug
	Context  string
	Focus    string
	profiles func(class string) (content.ClassProfile, bool)
}

// buildReport resolves each name by exact lookup, then by search, and keeps
// unknown names as placeholders.
func (t *Tutor) buildReport(names []string, ctxText, focus string) pharmaReport {
	cat := t.catalog()
	r := pharmaReport{Context: ctxText, Focus: focus, profiles: cat.Profile}
	if r.Focus == "" {
		r.Focus = FocusOverview
	}
	for _, name := range names {
		d, ok := cat.Drug(name)
		if !ok {
			if hits := cat.SearchDrugs(name); len(hits) > 0 {
				d, ok = hits[0], true
			}
		}
		if !ok {
			d = content.Drug{Name: name, Class: "—", Mechanism: "Данные не найдены", Dosage: "Уточнить по инструкции"}
		}
		r.Drugs = append(r.Drugs, pharmaDrug{Drug: d, Found: ok})
	}
	return r
}

func (r pharmaReport) hasName(name string) bool {
	for _, d := range r.Drugs {
		if d.Found && strings.EqualFold(d.Name, name) {
			return true
		}
		if !d.Found && strings.EqualFold(strings.TrimSpace(d.Name), name) {
			return true
		}
	}
	return false
}

func (r pharmaReport) hasClass(class string) bool {
	return r.anyClass(func(c string) bool { return c == class })
}

func (r pharmaReport) anyClass(match func(string) bool) bool {
	for _, d := range r.Drugs {
		if d.Found && match(d.Class) {
			return true
		}
	}
	return false
}

func (r pharmaReport) profile(d pharmaDrug) content.ClassProfile {
	p := content.ClassProfile{Onset: "Индивидуально", Withdrawal: "Уточнить", Special: "Уточнить"}
	if !d.Found || r.profiles == nil {
		return p
	}
	if got, ok := r.profiles(d.Class); ok {
		if got.Onset != "" {
			p.Onset = got.Onset
		}
		if got.Withdrawal != "" {
			p.Withdrawal = got.Withdrawal
		}
		if got.Special != "" {
			p.Special = got.Special
		}
	}
	return p
}

// text renders the report. Residents get the short comparison; specialists
// also get the criteria table, clinical scenarios and evidence.
func (r pharmaReport) text(audience string) string {
	names := make([]string, len(r.Drugs))
	for i, d := range r.Drugs {
		names[i] = d.Name
	}
	lines := []string{"⚖️ " + strong(strings.Join(names, " vs ")), "Сравнительный разбор", ""}
	if r.Context != "" {
		lines = append(lines, "📌 *Контекст:* "+esc(r.Context), "")
	}
	lines = append(lines, "🔎 *Фокус:* "+r.Focus, "")

	lines = append(lines, "🔑 *Механизмы и классы:*")
	for _, d := range r.Drugs {
		lines = append(lines, "• "+strong(d.Name)+" ("+d.Class+"): "+truncate(d.Mechanism, 100, "…"))
	}
	lines = append(lines, "")

	for _, d := range r.Drugs {
		lines = append(lines, "✅ "+strong(d.Name)+" предпочтителен при:")
		for _, ind := range firstN(d.Indications, 3) {
			lines = append(lines, "  • "+ind)
		}
	}
	lines = append(lines, "")

	traps := r.traps()
	lines = append(lines, "⚠️ *Ловушка:*", traps[0], "", "💡 *Жемчужина:*", r.pearl(), "")

	if audience == AudienceSpecialist {
		lines = append(lines, r.specialistSections()...)
	}

	tags := make([]string, 0, 3)
	for _, n := range firstN(names, 3) {
		tags = append(tags, "#"+esc(strings.ToLower(strings.ReplaceAll(n, " ", ""))))
	}
	lines = append(lines, "#психофармакология #сравнение "+strings.Join(tags, " "))
	return strings.Join(lines, "\n")
}

func (r pharmaReport) specialistSections() []string {
	var lines []string
	lines = append(lines, "📋 *Сравнительная таблица:*")
	for _, d := range r.Drugs {
		p := r.profile(d)
		lines = append(lines,
			strong(d.Name),
			"  Начало действия: "+p.Onset,
			"  Дозирование: "+orDash(d.Dosage),
			"  Побочные эффекты: "+orDash(strings.Join(firstN(d.SideEffects, 3), ", ")),
			"  Взаимодействия: "+orDash(strings.Join(firstN(d.Interactions, 2), ", ")),
			"  Особые группы: "+p.Special,
			"  Синдром отмены: "+p.Withdrawal,
		)
	}
	lines = append(lines, "")

	if sc := r.scenarios(); len(sc) > 0 {
		lines = append(lines, "🩺 *Клинические сценарии:*")
		for i, s := range sc {
			lines = append(lines,
				fmt.Sprintf("%d. *%s*", i+1, s.Title),
				"  Выбор: "+strings.ReplaceAll(s.Choice, "*", ""),
				"  Обоснование: "+strings.ReplaceAll(s.Rationale, "*", ""),
				"  Альтернатива: "+strings.ReplaceAll(s.Alternative, "*", ""),
			)
		}
		lines = append(lines, "")
	}

	if traps := r.traps(); len(traps) > 1 {
		lines = append(lines, "❌ *Подводные камни:*")
		for _, tr := range traps {
			lines = append(lines, "• "+tr)
		}
		lines = append(lines, "")
	}

	ev := r.evidence()
	lines = append(lines, "📚 *Доказательная база ("+strconv.Itoa(len(ev))+"):*")
	for _, e := range ev {
		lines = append(lines, "• "+esc(e))
	}
	return append(lines, "")
}
