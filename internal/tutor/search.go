package tutor

import (
	"context"
	"fmt"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
)

const (
	searchDrugLimit  = 5
	searchTermLimit  = 3
	suggestionsLimit = 3
)

func (t *Tutor) registerSearch(r *conversation.Router) {
	r.Handle(StateSearchInput, conversation.Route{Text: conversation.OnText(t.searchQuery)})
	r.Handle(StateSearchResult, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsSearch: conversation.OnAction(t.searchAgain),
	}})
}

func (t *Tutor) askSearch() conversation.Result {
	return conversation.Go(SearchInput{}, md("🔍 *Поиск*\n\nВведите название препарата, класс, показание или термин:",
		backRow(BackMain)))
}

func (t *Tutor) searchQuery(_ context.Context, _ conversation.Turn, _ SearchInput, text string) (conversation.Result, error) {
	q := cleanInput(text)
	if q == "" {
		return conversation.Stay(plain("Введите поисковый запрос.")), nil
	}
	cat := t.catalog()
	drugs := cat.SearchDrugs(q)
	terms := cat.SearchGlossary(q)

	var body string
	if len(drugs) == 0 && len(terms) == 0 {
		body = searchMissText(q, cat.Suggest(q, suggestionsLimit))
	} else {
		body = searchResultText(q, drugs, terms)
	}
	return conversation.Go(SearchResult{Query: q}, md(body,
		btn("🔄 Новый поиск", Again{Flow: nsSearch}),
		homeRow(),
	)), nil
}

func (t *Tutor) searchAgain(_ context.Context, _ conversation.Turn, _ SearchResult, _ Again) (conversation.Result, error) {
	return conversation.Go(SearchInput{}, edited(plain("Введите поисковый запрос:"))), nil
}

func searchMissText(q string, suggestions []string) string {
	head := "🔍 По запросу " + strong("«"+q+"»") + " ничего не найдено.\n\n"
	if len(suggestions) == 0 {
		return head + "Попробуйте другой запрос (например: «флуоксетин», «SSRI», «депрессия»)."
	}
	marked := make([]string, len(suggestions))
	for i, s := range suggestions {
		marked[i] = "*" + s + "*"
	}
	return head + "Возможно, вы имели в виду: " + strings.Join(marked, ", ") + "?"
}

func searchResultText(q string, drugs []content.Drug, terms []content.Term) string {
	lines := []string{"🔍 Результаты по запросу " + strong("«"+q+"»") + "\n"}
	if len(drugs) > 0 {
		lines = append(lines, fmt.Sprintf("*💊 Препараты (%d):*", len(drugs)))
		for _, d := range firstDrugs(drugs, searchDrugLimit) {
			lines = append(lines,
				fmt.Sprintf("  • *%s* (%s)", d.Name, d.Class),
				"    _"+truncate(d.Mechanism, 80, "...")+"_",
			)
		}
		if len(drugs) > searchDrugLimit {
			lines = append(lines, fmt.Sprintf("  _...и ещё %d препарат(ов)_", len(drugs)-searchDrugLimit))
		}
	}
	if len(terms) > 0 {
		lines = append(lines, fmt.Sprintf("\n*📖 Глоссарий (%d):*", len(terms)))
		for i, term := range terms {
			if i == searchTermLimit {
				break
			}
			lines = append(lines, fmt.Sprintf("  • *%s*: %s", term.Term, truncate(term.Definition, 100, "...")))
		}
		if len(terms) > searchTermLimit {
			lines = append(lines, fmt.Sprintf("  _...и ещё %d термин(ов)_", len(terms)-searchTermLimit))
		}
	}
	return strings.Join(lines, "\n")
}

func firstDrugs(drugs []content.Drug, n int) []content.Drug {
	if len(drugs) > n {
		return drugs[:n]
	}
	return drugs
}
