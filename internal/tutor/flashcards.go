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

// Card commands and ratings.
const (
	CardReveal = "reveal"
	CardSkip   = "skip"

	RatingEasy   = "easy"
	RatingMedium = "medium"
	RatingHard   = "hard"
)

func (t *Tutor) registerFlashcards(r *conversation.Router) {
	r.Handle(StateFlashcardCategory, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsDeck: conversation.OnAction(t.pickDeck),
	}})
	r.Handle(StateFlashcardShow, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCard: conversation.OnAction(t.cardCommand),
	}})
	r.Handle(StateFlashcardRate, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCardRate: conversation.OnAction(t.rateCard),
	}})
}

func (t *Tutor) showDecks(edit bool) conversation.Result {
	cat := t.catalog()
	rows := make([][]conversation.Button, 0, len(cat.Classes)+2)
	for i, cl := range cat.Classes {
		rows = append(rows, btn(cl, PickDeck{Index: i}))
	}
	rows = append(rows,
		btn("🔀 Все карточки", PickDeck{All: true}),
		backRow(BackMain),
	)
	return conversation.Go(FlashcardCategory{},
		editIf(edit, md("🃏 *Карточки*\n\nВыберите класс препаратов для изучения:", rows...)))
}

func (t *Tutor) pickDeck(_ context.Context, _ conversation.Turn, _ FlashcardCategory, a PickDeck) (conversation.Result, error) {
	cat := t.catalog()
	var drugs []content.Drug
	if a.All {
		drugs = cat.Drugs
	} else {
		class, ok := cat.Class(a.Index)
		if !ok {
			return conversation.Stay(notFound("Класс не найден.")), nil
		}
		drugs = cat.DrugsByClass(class)
	}
	if len(drugs) == 0 {
		return conversation.Stay(notFound("Нет препаратов в этой категории.")), nil
	}
	names := content.DrugNames(drugs)
	t.shuffle(len(names), func(i, j int) { names[i], names[j] = names[j], names[i] })
	return t.cardFront(Deck{ID: t.newID(), Drugs: names}), nil
}

// cardFront shows the card at deck.Index, skipping drugs no longer in the
// catalog, and returns to the main menu when the deck is exhausted.
func (t *Tutor) cardFront(deck Deck) conversation.Result {
	cat := t.catalog()
	for deck.Index < len(deck.Drugs) {
		d, ok := cat.Drug(deck.Drugs[deck.Index])
		if !ok {
			deck.Index++
			continue
		}
		text := fmt.Sprintf("🃏 *Карточка %d/%d*\n\nПрепарат: *%s*\nКласс: %s\n\n_Что вы знаете об этом препарате? Нажмите «Показать ответ»._",
			deck.Index+1, len(deck.Drugs), d.Name, d.Class)
		return conversation.Go(FlashcardShow{Deck: deck}, edited(md(text,
			btn("👁 Показать ответ", CardCommand{Cmd: CardReveal}),
			btn("⏭ Пропустить", CardCommand{Cmd: CardSkip}),
			btn("⏹ Выйти", Back{Target: BackMain}),
		)))
	}
	return conversation.Go(MainMenu{}, edited(plain("🎉 Вы прошли все карточки!\n\nОтличная работа!")), mainMenuReply())
}

func (t *Tutor) cardCommand(_ context.Context, _ conversation.Turn, cur FlashcardShow, a CardCommand) (conversation.Result, error) {
	deck := cur.Deck
	switch a.Cmd {
	case CardSkip:
		deck.Index++
		return t.cardFront(deck), nil
	case CardReveal:
		if deck.Index >= len(deck.Drugs) {
			return t.cardFront(deck), nil
		}
		d, ok := t.catalog().Drug(deck.Drugs[deck.Index])
		if !ok {
			deck.Index++
			return t.cardFront(deck), nil
		}
		return conversation.Go(FlashcardRate{Deck: deck}, edited(md(cardBack(d),
			[]conversation.Button{
				{Text: "😊 Легко", Action: RateCard{Rating: RatingEasy}},
				{Text: "🤔 Средне", Action: RateCard{Rating: RatingMedium}},
				{Text: "😓 Сложно", Action: RateCard{Rating: RatingHard}},
			},
			btn("⏹ Выйти", Back{Target: BackMain}),
		))), nil
	}
	return conversation.Stay(t.hint(cur)), nil
}

func (t *Tutor) rateCard(ctx context.Context, turn conversation.Turn, cur FlashcardRate, a RateCard) (conversation.Result, error) {
	switch a.Rating {
	case RatingEasy, RatingMedium, RatingHard:
	default:
		return conversation.Stay(notFound("Оценка не распознана.")), nil
	}
	deck := cur.Deck
	if deck.Index < len(deck.Drugs) {
		name := deck.Drugs[deck.Index]
		t.record(ctx, progress.Event{
			UserID:   turn.UserID,
			Kind:     progress.KindFlashcard,
			Subject:  name,
			Outcome:  a.Rating,
			DedupKey: deck.ID + ":" + strconv.Itoa(deck.Index),
		})
		t.visit(ctx, turn.UserID, "flashcard:"+name)
	}
	deck.Index++
	return t.cardFront(deck), nil
}

func cardBack(d content.Drug) string {
	return fmt.Sprintf("🃏 *%s* (%s)\n\n*Механизм:*\n%s\n\n*Ключевые показания:*\n%s\n\n*Основные побочные эффекты:*\n%s\n\n*Дозировка:* %s\n\n_Оцените, насколько хорошо вы знали этот препарат:_",
		d.Name, d.Class, d.Mechanism,
		strings.Join(firstN(d.Indications, 3), " / "),
		orDash(strings.Join(firstN(d.SideEffects, 3), " / ")),
		orDash(d.Dosage),
	)
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}
