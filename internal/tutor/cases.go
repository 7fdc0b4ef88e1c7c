package tutor

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/pharmtutor/internal/conversation"
)

func (t *Tutor) registerCases(r *conversation.Router) {
	r.Handle(StateCaseList, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCase: conversation.OnAction(t.openCase),
	}})
	r.Handle(StateCaseRead, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCaseAsk: conversation.OnAction(t.askCase),
	}})
	r.Handle(StateCaseQuestion, conversation.Route{Actions: map[string]conversation.ActionHandler{
		nsCaseAnswer: conversation.OnAction(t.answerCase),
	}})
	r.Handle(StateCaseAnswer, conversation.Route{})
}

func (t *Tutor) showCaseList(edit bool) conversation.Result {
	cases := t.catalog().Cases
	rows := make([][]conversation.Button, 0, len(cases)+1)
	for _, c := range cases {
		rows = append(rows, btn(fmt.Sprintf("#%d %s", c.ID, c.Title), OpenCase{ID: c.ID}))
	}
	rows = append(rows, backRow(BackMain))
	return conversation.Go(CaseList{}, editIf(edit, md("🏥 *Клинические случаи*\n\nВыберите случай для разбора:", rows...)))
}

func (t *Tutor) openCase(_ context.Context, _ conversation.Turn, _ CaseList, a OpenCase) (conversation.Result, error) {
	c, ok := t.catalog().Case(a.ID)
	if !ok {
		return conversation.Stay(notFound("Случай не найден.")), nil
	}
	text := fmt.Sprintf("🏥 *Случай #%d: %s*\n\n%s", c.ID, c.Title, c.Presentation)
	return conversation.Go(CaseRead{CaseID: c.ID}, edited(md(text,
		btn("▶️ Перейти к вопросу", AskCase{ID: c.ID}),
		btn("⬅️ К списку случаев", Back{Target: BackCaseList}),
	))), nil
}

func (t *Tutor) askCase(_ context.Context, _ conversation.Turn, cur CaseRead, a AskCase) (conversation.Result, error) {
	if a.ID != cur.CaseID {
		return conversation.Stay(notFound("Случай не найден.")), nil
	}
	c, ok := t.catalog().Case(a.ID)
	if !ok {
		return conversation.Stay(notFound("Случай не найден.")), nil
	}
	opts := make([]string, len(c.Options))
	rows := make([][]conversation.Button, len(c.Options))
	for i, o := range c.Options {
		opts[i] = optionLabel(i) + ". " + o
		rows[i] = btn(opts[i], AnswerCase{Option: i})
	}
	text := fmt.Sprintf("❓ *Вопрос:*\n%s\n\n%s", c.Question, strings.Join(opts, "\n"))
	return conversation.Go(CaseQuestion{CaseID: c.ID}, edited(md(text, rows...))), nil
}

func (t *Tutor) answerCase(ctx context.Context, turn conversation.Turn, cur CaseQuestion, a AnswerCase) (conversation.Result, error) {
	c, ok := t.catalog().Case(cur.CaseID)
	if !ok {
		res := t.showCaseList(true)
		res.Replies = append([]conversation.Reply{notFound("Случай не найден.")}, res.Replies...)
		return res, nil
	}
	if a.Option < 0 || a.Option >= len(c.Options) {
		return conversation.Stay(notFound("Вариант ответа не найден.")), nil
	}
	result := "❌ *Неправильно.* Правильный ответ: " + strong(c.Options[c.Correct])
	if a.Option == c.Correct {
		result = "✅ *Правильно!*"
	}
	t.visit(ctx, turn.UserID, "case:"+strconv.Itoa(c.ID))
	return conversation.Go(CaseAnswer{CaseID: c.ID}, edited(md(result+"\n\n💬 *Разбор:*\n"+c.Explanation,
		btn("📋 К списку случаев", Back{Target: BackCaseList}),
		homeRow(),
	))), nil
}
