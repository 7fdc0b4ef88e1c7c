package tutor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pharmtutor/internal/content"
	"github.com/m3rciful/pharmtutor/internal/conversation"
	"github.com/m3rciful/pharmtutor/internal/progress"
)

type fakeStore struct {
	mu     sync.Mutex
	err    error
	events []progress.Event
	prefs  map[string]string
	stats  progress.Stats
	streak progress.Streak
}

func (s *fakeStore) EnsureUser(context.Context, int64, string) error { return s.err }

func (s *fakeStore) RecordEvent(_ context.Context, ev progress.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.events = append(s.events, ev)
	return true, nil
}

func (s *fakeStore) AggregateStats(context.Context, int64) (progress.Stats, error) {
	return s.stats, s.err
}

func (s *fakeStore) UpsertPreference(_ context.Context, _ int64, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.prefs == nil {
		s.prefs = map[string]string{}
	}
	s.prefs[key] = value
	return nil
}

func (s *fakeStore) TouchDailyStreak(context.Context, int64, time.Time) (progress.Streak, error) {
	return s.streak, s.err
}

func (s *fakeStore) AdminStats(context.Context) (progress.AdminStats, error) {
	return progress.AdminStats{TotalUsers: 3}, s.err
}

func (s *fakeStore) recorded() []progress.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]progress.Event(nil), s.events...)
}

const quizCatalog = `
classes: ["SSRI", "MAOI"]
quiz_categories: ["Механизмы", "Побочные эффекты"]
drugs:
  - name: "Флуоксетин"
    class: "SSRI"
    mechanism: "Блокирует SERT"
    indications: ["Депрессия"]
  - name: "Сертралин"
    class: "SSRI"
    mechanism: "Блокирует SERT"
    indications: ["Депрессия", "ПТСР"]
  - name: "Фенелзин"
    class: "MAOI"
    mechanism: "Ингибирует МАО"
    indications: ["Атипичная депрессия"]
questions:
  - id: "q1"
    category: "Механизмы"
    difficulty: "easy"
    question: "Первый?"
    options: ["a", "b"]
    correct: 1
    explanation: "b"
  - id: "q2"
    category: "Механизмы"
    difficulty: "easy"
    question: "Второй?"
    options: ["a", "b", "c"]
    correct: 0
    explanation: "a"
tips: ["Совет"]
`

func newTestTutor(t *testing.T, cat *content.Catalog, st *fakeStore) *conversation.Router {
	t.Helper()
	tu := New(Options{
		Content: content.Static{C: cat},
		Store:   st,
		Now:     func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		Shuffle: func(int, func(i, j int)) {},
		Pick:    func(int) int { return 0 },
		NewID:   func() string { return "run-1" },
	})
	return tu.Router()
}

func defaultCatalog(t *testing.T) *content.Catalog {
	t.Helper()
	c, err := content.Default()
	require.NoError(t, err)
	return c
}

func parseCatalog(t *testing.T, y string) *content.Catalog {
	t.Helper()
	c, err := content.Parse([]byte(y))
	require.NoError(t, err)
	return c
}

func step(r *conversation.Router, cur conversation.Session, ev conversation.Event) conversation.Dispatch {
	return r.Dispatch(context.Background(), conversation.Turn{UserID: 42, Username: "alice"}, cur, ev)
}

func press(a conversation.Action) conversation.Callback {
	return conversation.Callback{Raw: a.Token(), Action: a}
}

func say(text string) conversation.Text {
	return conversation.Text{Body: text}
}

func lastText(d conversation.Dispatch) string {
	if len(d.Replies) == 0 {
		return ""
	}
	return d.Replies[len(d.Replies)-1].Text
}

// sessions holds one zero session per state.
var sessions = []conversation.Session{
	MainMenu{}, DrugClassSelect{}, DrugList{}, DrugDetail{},
	QuizMenu{}, QuizCategory{}, QuizDifficulty{}, QuizQuestion{}, QuizNext{},
	FlashcardCategory{}, FlashcardShow{}, FlashcardRate{},
	CaseList{}, CaseRead{}, CaseQuestion{}, CaseAnswer{},
	InterDrug1{}, InterDrug2{}, InterResult{},
	SearchInput{}, SearchResult{},
	NTSelect{}, GlossaryBrowse{}, ProgressView{}, TipView{},
	CompareSelect1{}, CompareSelect2{},
	PharmaInput{}, PharmaContext{}, PharmaFocus{}, PharmaAudience{},
}

func TestEveryStateIsRegistered(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	want := make([]conversation.State, len(AllStates))
	copy(want, AllStates)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	assert.Empty(t, cmp.Diff(want, r.States()))

	require.Len(t, sessions, len(AllStates))
	for i, s := range sessions {
		assert.Equal(t, AllStates[i], s.State())
	}
}

func TestBackToMainFromEveryState(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})
	for _, s := range sessions {
		t.Run(string(s.State()), func(t *testing.T) {
			d := step(r, s, press(Back{Target: BackMain}))
			assert.Equal(t, conversation.Handled, d.Outcome)
			assert.Equal(t, MainMenu{}, d.Session)
			require.NotEmpty(t, d.Replies)
			assert.NotNil(t, lastReply(d).Menu)
		})
	}
}

// sampleTexts are typed into every state that reads text.
var sampleTexts = []string{"", "   ", "xyz", "Флуоксетин", "Сертралин", "Флуоксетин, Сертралин", "/skip", "5-HT"}

// samplePayloads mixes valid, stale and malformed callback payloads.
var samplePayloads = []string{
	"", "x", "-1", "0", "1", "2", "999",
	payloadAll, payloadAgain, BackMain, QuizStart, QuizNextQ, CardReveal,
	RatingEasy, RatingHard, content.DifficultyMedium, AudienceResident, AudienceSpecialist,
}

// routeEvents builds the events rt declares: every payload that decodes in
// each of its namespaces, texts when it reads text, and an undecodable
// callback when it has a default.
func routeEvents(t *testing.T, rt conversation.Route) []conversation.Event {
	t.Helper()
	var evs []conversation.Event
	for ns := range rt.Actions {
		n := 0
		for _, p := range samplePayloads {
			if act := Decode(conversation.Token{Namespace: ns, Payload: p}); act != nil {
				evs = append(evs, press(act))
				n++
			}
		}
		assert.NotZero(t, n, "namespace %q never decodes", ns)
	}
	if rt.Text != nil {
		for _, text := range sampleTexts {
			evs = append(evs, say(text))
		}
	}
	if rt.Default != nil {
		evs = append(evs, conversation.Callback{Raw: conversation.Token{Namespace: "zzz", Payload: "1"}})
	}
	return evs
}

func assertDeclared(t *testing.T, from conversation.Session, ev conversation.Event, d conversation.Dispatch) {
	t.Helper()
	declared := make(map[conversation.State]bool, len(AllStates))
	for _, st := range AllStates {
		declared[st] = true
	}
	assert.NotEqual(t, conversation.Faulted, d.Outcome, "%#v on %#v: %v", ev, from, d.Err)
	if assert.NotNil(t, d.Session, "%#v on %#v", ev, from) {
		assert.True(t, declared[d.Session.State()], "%#v on %#v went to %q", ev, from, d.Session.State())
	}
}

func TestEveryStateHandlesItsEvents(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})
	for _, s := range sessions {
		t.Run(string(s.State()), func(t *testing.T) {
			rt, ok := r.Route(s.State())
			require.True(t, ok)
			evs := routeEvents(t, rt)
			require.NotEmpty(t, evs)
			for _, ev := range evs {
				assertDeclared(t, s, ev, step(r, s, ev))
			}
		})
	}
}

// TestEveryStateReachableFromMainMenu walks the bot the way a user would:
// typing menu labels and sample texts and pressing every offered button.
func TestEveryStateReachableFromMainMenu(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	var labels []string
	for _, row := range MainMenuRows() {
		labels = append(labels, row...)
	}

	type node struct {
		session conversation.Session
		offered []conversation.Reply
	}
	seen := map[string]bool{fmt.Sprintf("%#v", MainMenu{}): true}
	expanded := map[conversation.State]int{}
	reached := map[conversation.State]bool{}
	queue := []node{{session: MainMenu{}}}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		st := n.session.State()
		reached[st] = true
		// a few sessions per state are enough to find its exits
		if expanded[st] == 3 {
			continue
		}
		expanded[st]++

		var evs []conversation.Event
		for _, text := range append(append([]string(nil), labels...), sampleTexts...) {
			evs = append(evs, say(text))
		}
		for _, rep := range n.offered {
			for _, row := range rep.Buttons {
				for _, b := range row {
					evs = append(evs, press(b.Action))
				}
			}
		}
		for _, ev := range evs {
			d := step(r, n.session, ev)
			assertDeclared(t, n.session, ev, d)
			if d.Session == nil {
				continue
			}
			key := fmt.Sprintf("%#v", d.Session)
			if seen[key] {
				continue
			}
			seen[key] = true
			queue = append(queue, node{session: d.Session, offered: d.Replies})
		}
	}

	for _, st := range AllStates {
		assert.True(t, reached[st], "state %q unreachable from main menu", st)
	}
}

func lastReply(d conversation.Dispatch) conversation.Reply {
	return d.Replies[len(d.Replies)-1]
}

func TestRestartClearsScratchFields(t *testing.T) {
	st := &fakeStore{}
	r := newTestTutor(t, defaultCatalog(t), st)

	d := step(r, InterDrug1{}, say("Флуоксетин"))
	require.Equal(t, InterDrug2{First: "Флуоксетин"}, d.Session)

	d = step(r, d.Session, conversation.Restart{})
	assert.Equal(t, conversation.Restarted, d.Outcome)
	assert.Equal(t, MainMenu{}, d.Session)
	require.Len(t, d.Replies, 1)
	assert.Contains(t, d.Replies[0].Text, "Добро пожаловать")
	assert.Equal(t, mainMenuRows, d.Replies[0].Menu)
}

func TestRestartSurvivesStoreFailure(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{err: errors.New("db down")})
	d := step(r, QuizQuestion{Run: QuizRun{ID: "x"}}, conversation.Restart{})
	assert.Equal(t, MainMenu{}, d.Session)
	assert.NotEmpty(t, d.Replies)
}

func TestStaleSelectionsKeepTheScreen(t *testing.T) {
	cat := defaultCatalog(t)
	r := newTestTutor(t, cat, &fakeStore{})

	tests := []struct {
		name string
		cur  conversation.Session
		act  conversation.Action
	}{
		{"class", DrugClassSelect{}, PickClass{Index: len(cat.Classes)}},
		{"drug", DrugList{Class: "SSRI"}, PickDrug{Index: len(cat.DrugsByClass("SSRI"))}},
		{"malformed drug", DrugList{Class: "SSRI"}, Decode(conversation.Token{Namespace: nsDrug, Payload: "x"})},
		{"quiz category", QuizCategory{}, PickQuizCategory{Index: len(cat.QuizCategories)}},
		{"difficulty", QuizDifficulty{}, PickDifficulty{Level: "insane"}},
		{"deck", FlashcardCategory{}, PickDeck{Index: len(cat.Classes)}},
		{"rating", FlashcardRate{Deck: Deck{Drugs: []string{"Литий"}}}, RateCard{Rating: "meh"}},
		{"case", CaseList{}, OpenCase{ID: 9999}},
		{"case question", CaseRead{CaseID: 1}, AskCase{ID: 2}},
		{"term", GlossaryBrowse{Page: 1}, PickTerm{Index: len(cat.Glossary)}},
		{"transmitter", NTSelect{}, PickTransmitter{Key: "nope"}},
		{"compare first", CompareSelect1{}, PickCompare{Step: 1, Index: len(cat.Classes)}},
		{"compare second", CompareSelect2{First: "SSRI"}, PickCompare{Step: 2, Index: len(cat.Classes)}},
		{"focus", PharmaFocus{Drugs: []string{"a", "b"}}, PickFocus{Index: len(focusOptions)}},
		{"audience", PharmaAudience{Drugs: []string{"a", "b"}}, PickAudience{Audience: "everyone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := step(r, tt.cur, press(tt.act))
			assert.Equal(t, conversation.Handled, d.Outcome)
			assert.Empty(t, cmp.Diff(tt.cur, d.Session))
			require.Len(t, d.Replies, 1)
			assert.NotEmpty(t, d.Replies[0].Toast)
		})
	}
}

func TestUnmatchedEventsHint(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	d := step(r, MainMenu{}, say("привет"))
	assert.Equal(t, MainMenu{}, d.Session)
	require.Len(t, d.Replies, 1)
	assert.Equal(t, mainMenuRows, d.Replies[0].Menu)

	d = step(r, QuizMenu{}, say(menuDrugs))
	assert.Equal(t, conversation.Unmatched, d.Outcome)
	assert.Equal(t, QuizMenu{}, d.Session)

	d = step(r, DrugClassSelect{}, press(PickDrug{Index: 0}))
	assert.Equal(t, conversation.Unmatched, d.Outcome)
}

func TestMainMenuLabels(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})
	tests := map[string]conversation.State{
		menuDrugs:        StateDrugClassSelect,
		menuQuiz:         StateQuizMenu,
		menuFlashcards:   StateFlashcardCategory,
		menuCases:        StateCaseList,
		menuInteractions: StateInterDrug1,
		menuSearch:       StateSearchInput,
		menuTransmitters: StateNTSelect,
		menuProgress:     StateProgressView,
		menuGlossary:     StateGlossaryBrowse,
		menuTip:          StateTipView,
		menuPharma:       StatePharmaInput,
		menuCompare:      StateCompareSelect1,
	}
	for label, want := range tests {
		d := step(r, MainMenu{}, say(label))
		assert.Equal(t, want, d.Session.State(), label)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	actions := []conversation.Action{
		Back{Target: BackGlossary},
		PickClass{Index: 3},
		PickDrug{Index: 0},
		QuizCommand{Cmd: QuizFinish},
		PickQuizCategory{Index: 2},
		PickQuizCategory{All: true},
		PickDifficulty{Level: content.DifficultyHard},
		AnswerQuiz{Option: 1},
		PickDeck{Index: 4},
		PickDeck{All: true},
		CardCommand{Cmd: CardReveal},
		RateCard{Rating: RatingHard},
		OpenCase{ID: 7},
		AskCase{ID: 7},
		AnswerCase{Option: 2},
		Again{Flow: nsInter},
		Again{Flow: nsSearch},
		Again{Flow: nsCompare},
		Again{Flow: nsPharma},
		PickTransmitter{Key: "serotonin"},
		GlossaryPage{Page: 2},
		PickTerm{Index: 11},
		Noop{},
		PickCompare{Step: 1, Index: 5},
		PickCompare{Step: 2, Index: 0},
		PickFocus{Index: 6},
		PickAudience{Audience: AudienceSpecialist},
	}
	for _, a := range actions {
		tok := a.Token()
		assert.Empty(t, cmp.Diff(a, Decode(tok)), tok.String())
		assert.LessOrEqual(t, len(tok.Namespace)+len(tok.Payload), 60, tok.String())
	}

	assert.Nil(t, Decode(conversation.Token{Namespace: "unknown", Payload: "1"}))
	assert.Nil(t, Decode(conversation.Token{Namespace: nsInter, Payload: "later"}))
	assert.Equal(t, PickClass{Index: -1}, Decode(conversation.Token{Namespace: nsClass, Payload: "abc"}))
}

func TestQuizRunScoresAndDedups(t *testing.T) {
	st := &fakeStore{}
	r := newTestTutor(t, parseCatalog(t, quizCatalog), st)

	d := step(r, QuizMenu{}, press(QuizCommand{Cmd: QuizStart}))
	require.Equal(t, QuizCategory{}, d.Session)
	d = step(r, d.Session, press(PickQuizCategory{Index: 0}))
	require.Equal(t, QuizDifficulty{Category: "Механизмы"}, d.Session)
	d = step(r, d.Session, press(PickDifficulty{Level: difficultyAll}))
	require.Equal(t, QuizQuestion{Run: QuizRun{ID: "run-1", Questions: []string{"q1", "q2"}}}, d.Session)
	assert.Contains(t, lastText(d), "Вопрос 1/2")

	d = step(r, d.Session, press(AnswerQuiz{Option: 1}))
	require.Equal(t, QuizNext{Run: QuizRun{ID: "run-1", Questions: []string{"q1", "q2"}, Index: 1, Score: 1}}, d.Session)
	assert.Contains(t, lastText(d), "Правильно")

	d = step(r, d.Session, press(QuizCommand{Cmd: QuizNextQ}))
	require.Equal(t, StateQuizQuestion, d.Session.State())
	d = step(r, d.Session, press(AnswerQuiz{Option: 2}))
	require.Equal(t, QuizNext{Run: QuizRun{ID: "run-1", Questions: []string{"q1", "q2"}, Index: 2, Score: 1}}, d.Session)

	d = step(r, d.Session, press(QuizCommand{Cmd: QuizNextQ}))
	assert.Equal(t, MainMenu{}, d.Session)
	require.Len(t, d.Replies, 2)
	assert.Contains(t, d.Replies[0].Text, "1/2")
	assert.Contains(t, d.Replies[0].Text, "50%")

	want := []progress.Event{
		{UserID: 42, Kind: progress.KindQuizAnswer, Subject: "Механизмы", Outcome: progress.OutcomeCorrect, DedupKey: "run-1:0"},
		{UserID: 42, Kind: progress.KindQuizAnswer, Subject: "Механизмы", Outcome: progress.OutcomeWrong, DedupKey: "run-1:1"},
	}
	assert.Empty(t, cmp.Diff(want, st.recorded()))
	assert.Equal(t, difficultyAll, st.prefs[PrefQuizDifficulty])
}

func TestQuizFinishEarly(t *testing.T) {
	r := newTestTutor(t, parseCatalog(t, quizCatalog), &fakeStore{})
	run := QuizRun{ID: "r", Questions: []string{"q1", "q2"}, Index: 1, Score: 1}

	d := step(r, QuizNext{Run: run}, press(QuizCommand{Cmd: QuizFinish}))
	assert.Equal(t, MainMenu{}, d.Session)
	assert.Contains(t, d.Replies[0].Text, "1/1")
	assert.Contains(t, d.Replies[0].Text, "Отлично")
}

func TestEmptyQuizFilterStaysOnDifficulty(t *testing.T) {
	st := &fakeStore{}
	r := newTestTutor(t, parseCatalog(t, quizCatalog), st)

	cur := QuizDifficulty{Category: "Побочные эффекты"}
	d := step(r, cur, press(PickDifficulty{Level: content.DifficultyHard}))
	assert.Equal(t, cur, d.Session)
	require.Len(t, d.Replies, 1)
	assert.Contains(t, d.Replies[0].Text, "нет вопросов")
	assert.NotEmpty(t, d.Replies[0].Buttons)
	assert.Equal(t, content.DifficultyHard, st.prefs[PrefQuizDifficulty])
}

func TestQuizSkipsQuestionsRemovedByReload(t *testing.T) {
	r := newTestTutor(t, parseCatalog(t, quizCatalog), &fakeStore{})
	run := QuizRun{ID: "r", Questions: []string{"gone", "q2"}}

	d := step(r, QuizNext{Run: run}, press(QuizCommand{Cmd: QuizNextQ}))
	require.Equal(t, QuizQuestion{Run: QuizRun{ID: "r", Questions: []string{"q2"}}}, d.Session)
	assert.Contains(t, lastText(d), "Второй?")
}

func TestFlashcardDeck(t *testing.T) {
	st := &fakeStore{}
	r := newTestTutor(t, parseCatalog(t, quizCatalog), st)

	d := step(r, FlashcardCategory{}, press(PickDeck{Index: 0}))
	deck := Deck{ID: "run-1", Drugs: []string{"Флуоксетин", "Сертралин"}}
	require.Equal(t, FlashcardShow{Deck: deck}, d.Session)
	assert.Contains(t, lastText(d), "Карточка 1/2")

	d = step(r, d.Session, press(CardCommand{Cmd: CardReveal}))
	require.Equal(t, FlashcardRate{Deck: deck}, d.Session)
	assert.Contains(t, lastText(d), "Блокирует SERT")

	d = step(r, d.Session, press(RateCard{Rating: RatingEasy}))
	deck.Index = 1
	require.Equal(t, FlashcardShow{Deck: deck}, d.Session)

	d = step(r, d.Session, press(CardCommand{Cmd: CardSkip}))
	assert.Equal(t, MainMenu{}, d.Session)
	assert.Contains(t, d.Replies[0].Text, "Вы прошли все карточки")

	want := []progress.Event{
		{UserID: 42, Kind: progress.KindFlashcard, Subject: "Флуоксетин", Outcome: RatingEasy, DedupKey: "run-1:0"},
		{UserID: 42, Kind: progress.KindVisit, Subject: "flashcard:Флуоксетин"},
	}
	assert.Empty(t, cmp.Diff(want, st.recorded()))
}

func TestDrugBrowsingAndBack(t *testing.T) {
	st := &fakeStore{}
	r := newTestTutor(t, parseCatalog(t, quizCatalog), st)

	d := step(r, DrugClassSelect{}, press(PickClass{Index: 0}))
	require.Equal(t, DrugList{Class: "SSRI"}, d.Session)
	d = step(r, d.Session, press(PickDrug{Index: 1}))
	require.Equal(t, DrugDetail{Class: "SSRI", Drug: "Сертралин"}, d.Session)
	assert.Contains(t, lastText(d), "ПТСР")

	d = step(r, d.Session, press(Back{Target: BackDrugList}))
	assert.Equal(t, DrugList{Class: "SSRI"}, d.Session)
	d = step(r, d.Session, press(Back{Target: BackClassSelect}))
	assert.Equal(t, DrugClassSelect{}, d.Session)

	assert.Equal(t, []progress.Event{{UserID: 42, Kind: progress.KindVisit, Subject: "drug:Сертралин"}}, st.recorded())
}

func TestCaseFlow(t *testing.T) {
	cat := defaultCatalog(t)
	require.NotEmpty(t, cat.Cases)
	c := cat.Cases[0]
	st := &fakeStore{}
	r := newTestTutor(t, cat, st)

	d := step(r, CaseList{}, press(OpenCase{ID: c.ID}))
	require.Equal(t, CaseRead{CaseID: c.ID}, d.Session)
	d = step(r, d.Session, press(AskCase{ID: c.ID}))
	require.Equal(t, CaseQuestion{CaseID: c.ID}, d.Session)
	d = step(r, d.Session, press(AnswerCase{Option: c.Correct}))
	require.Equal(t, CaseAnswer{CaseID: c.ID}, d.Session)
	assert.Contains(t, lastText(d), "Правильно")

	d = step(r, d.Session, press(Back{Target: BackCaseList}))
	assert.Equal(t, CaseList{}, d.Session)
	assert.Len(t, st.recorded(), 1)
}

func TestInteractionCheck(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	d := step(r, InterDrug1{}, say("   "))
	assert.Equal(t, InterDrug1{}, d.Session)

	d = step(r, InterDrug1{}, say("Флуоксетин"))
	d = step(r, d.Session, say("Фенелзин"))
	assert.Equal(t, InterResult{}, d.Session)
	assert.Contains(t, lastText(d), "Взаимодействия: Флуоксетин + Фенелзин")

	d = step(r, d.Session, press(Again{Flow: nsInter}))
	assert.Equal(t, InterDrug1{}, d.Session)
}

func TestInteractionInputIsCapped(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})
	d := step(r, InterDrug1{}, say(strings.Repeat("я", 500)))
	got, ok := d.Session.(InterDrug2)
	require.True(t, ok)
	assert.Equal(t, maxInput, len([]rune(got.First)))
}

func TestSearch(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	d := step(r, SearchInput{}, say("флуоксетин"))
	assert.Equal(t, SearchResult{Query: "флуоксетин"}, d.Session)
	assert.Contains(t, lastText(d), "Флуоксетин")

	d = step(r, SearchInput{}, say("флуоксетн"))
	assert.Contains(t, lastText(d), "Возможно, вы имели в виду")
	assert.Contains(t, lastText(d), "Флуоксетин")

	d = step(r, d.Session, press(Again{Flow: nsSearch}))
	assert.Equal(t, SearchInput{}, d.Session)
}

func TestGlossaryPaging(t *testing.T) {
	cat := defaultCatalog(t)
	r := newTestTutor(t, cat, &fakeStore{})

	d := step(r, GlossaryBrowse{}, press(GlossaryPage{Page: 1}))
	assert.Equal(t, GlossaryBrowse{Page: 1}, d.Session)

	d = step(r, GlossaryBrowse{Page: 1}, press(GlossaryPage{Page: 99}))
	assert.Equal(t, GlossaryBrowse{Page: 0}, d.Session)

	d = step(r, GlossaryBrowse{Page: 1}, press(PickTerm{Index: GlossaryPageSize}))
	assert.Equal(t, GlossaryBrowse{Page: 1}, d.Session)
	assert.Contains(t, lastText(d), cat.Glossary[GlossaryPageSize].Term)

	d = step(r, d.Session, press(Back{Target: BackGlossary}))
	assert.Equal(t, GlossaryBrowse{Page: 1}, d.Session)

	d = step(r, d.Session, press(Noop{}))
	assert.Equal(t, conversation.Handled, d.Outcome)
	assert.Empty(t, d.Replies)
}

func TestProgressDegradesWhenStoreFails(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{err: errors.New("db down")})
	d := step(r, MainMenu{}, say(menuProgress))
	assert.Equal(t, conversation.Handled, d.Outcome)
	assert.Equal(t, ProgressView{}, d.Session)
	assert.Contains(t, lastText(d), "ещё не проходили")
}

func TestProgressText(t *testing.T) {
	got := progressText(progress.Stats{
		TotalQuestions: 4,
		CorrectAnswers: 3,
		Accuracy:       75,
		Categories:     []progress.CategoryStat{{Category: "Механизмы", Total: 4, Correct: 3}},
		Sections:       []progress.SectionStat{{Section: "drug:Литий", Count: 2}},
		FlashcardRatings: map[string]int{
			RatingEasy: 2,
			RatingHard: 1,
		},
	}, progress.Streak{Current: 2, Longest: 5})

	assert.Contains(t, got, "🔥🔥 2 дней")
	assert.Contains(t, got, "Рекорд: 5 дней")
	assert.Contains(t, got, "Правильных: 3 (75.0%)")
	assert.Contains(t, got, "Механизмы: 3/4 (75%)")
	assert.Contains(t, got, "Оценено карточек: 3")
	assert.Contains(t, got, "Препарат: Литий (×2)")
	assert.NotContains(t, got, "Средне")
}

func TestCompareClasses(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	d := step(r, CompareSelect1{}, press(PickCompare{Step: 1, Index: 0}))
	require.Equal(t, CompareSelect2{First: "SSRI"}, d.Session)
	d = step(r, d.Session, press(PickCompare{Step: 2, Index: 3}))
	assert.Equal(t, CompareSelect2{First: "SSRI"}, d.Session)
	assert.Contains(t, lastText(d), "*SSRI* vs *MAOI*")

	d = step(r, d.Session, press(Again{Flow: nsCompare}))
	assert.Equal(t, CompareSelect1{}, d.Session)
}

func TestPharmaFlow(t *testing.T) {
	r := newTestTutor(t, defaultCatalog(t), &fakeStore{})

	d := step(r, PharmaInput{}, say("Флуоксетин"))
	assert.Equal(t, PharmaInput{}, d.Session)
	assert.Contains(t, lastText(d), "минимум 2 препарата")

	d = step(r, PharmaInput{}, say("Флуоксетин, Пароксетин\nСертралин, Литий, Диазепам"))
	require.Equal(t, PharmaContext{Drugs: []string{"Флуоксетин", "Пароксетин", "Сертралин", "Литий"}}, d.Session)

	d = step(r, d.Session, say("/SKIP"))
	require.Equal(t, PharmaFocus{Drugs: []string{"Флуоксетин", "Пароксетин", "Сертралин", "Литий"}}, d.Session)

	d = step(r, d.Session, press(PickFocus{Index: 1}))
	cur, ok := d.Session.(PharmaAudience)
	require.True(t, ok)
	assert.Equal(t, FocusElderly, cur.Focus)

	d = step(r, cur, press(PickAudience{Audience: AudienceSpecialist}))
	assert.Empty(t, cmp.Diff(cur, d.Session))
	require.GreaterOrEqual(t, len(d.Replies), 3)
	assert.True(t, d.Replies[0].Edit)
	assert.Equal(t, "Анализ готов.", lastText(d))
	for _, rep := range d.Replies[1 : len(d.Replies)-1] {
		assert.LessOrEqual(t, len([]rune(rep.Text)), messageLimit)
	}

	d = step(r, d.Session, press(Again{Flow: nsPharma}))
	assert.Equal(t, PharmaInput{}, d.Session)
}

func TestPharmaReportDepth(t *testing.T) {
	cat := defaultCatalog(t)
	tu := New(Options{Content: content.Static{C: cat}, Store: &fakeStore{}})

	report := tu.buildReport([]string{"fluoxetine", "Пароксетин", "Неизвестин"}, "депрессия у_пожилых", "")
	require.Len(t, report.Drugs, 3)
	assert.Equal(t, "Флуоксетин", report.Drugs[0].Name)
	assert.False(t, report.Drugs[2].Found)
	assert.Equal(t, FocusOverview, report.Focus)

	resident := report.text(AudienceResident)
	assert.Contains(t, resident, "тамоксифен")
	assert.Contains(t, resident, `депрессия у\_пожилых`)
	assert.Contains(t, resident, "Данные не найдены")
	assert.NotContains(t, resident, "Сравнительная таблица")

	specialist := report.text(AudienceSpecialist)
	assert.Contains(t, specialist, "Сравнительная таблица")
	assert.Contains(t, specialist, "Клинические сценарии")
	assert.Contains(t, specialist, "Cipriani")
	ssri, ok := cat.Profile("SSRI")
	require.True(t, ok)
	assert.Contains(t, specialist, "Начало действия: "+ssri.Onset)
	assert.Contains(t, specialist, "Начало действия: Индивидуально")
}

func TestPharmaTrapsByClass(t *testing.T) {
	tu := New(Options{Content: content.Static{C: defaultCatalog(t)}, Store: &fakeStore{}})

	report := tu.buildReport([]string{"Сертралин", "Амитриптилин"}, "", FocusOverview)
	assert.Contains(t, report.traps()[0], "ТЦА при передозировке")

	report = tu.buildReport([]string{"Сертралин", "Эсциталопрам"}, "", FocusPregnancy)
	assert.Equal(t, []string{genericTrap}, report.traps())
}

func TestAdminTexts(t *testing.T) {
	tu := New(Options{Content: content.Static{C: defaultCatalog(t)}, Store: &fakeStore{}})
	assert.Contains(t, tu.AdminStats(context.Background()), "Пользователей всего: *3*")

	tu = New(Options{Content: content.Static{C: defaultCatalog(t)}, Store: &fakeStore{err: errors.New("down")}})
	assert.Contains(t, tu.AdminStats(context.Background()), "недоступна")

	assert.Contains(t, ReloadText(content.Counts{Drugs: 19}), "Препаратов: 19")
}
