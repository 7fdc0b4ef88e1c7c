package tutor

import (
	"strconv"

	"github.com/m3rciful/pharmtutor/internal/conversation"
)

// Callback namespaces.
const (
	nsBack       = "back"
	nsClass      = "class"
	nsDrug       = "drug"
	nsQuiz       = "quiz"
	nsQuizCat    = "qcat"
	nsQuizDiff   = "qdiff"
	nsQuizAnswer = "qans"
	nsDeck       = "fccat"
	nsCard       = "fc"
	nsCardRate   = "fcrate"
	nsCase       = "case"
	nsCaseAsk    = "caseq"
	nsCaseAnswer = "caseans"
	nsInter      = "inter"
	nsSearch     = "search"
	nsNT         = "nt"
	nsGlossPage  = "gpage"
	nsGlossTerm  = "gterm"
	nsNoop       = "noop"
	nsCompare1   = "cmp1"
	nsCompare2   = "cmp2"
	nsCompare    = "cmp"
	nsPharmaFoc  = "pcfocus"
	nsPharmaAud  = "pcaud"
	nsPharma     = "pc"
)

// Namespaces lists every callback namespace Decode understands.
func Namespaces() []string {
	return []string{
		nsBack, nsClass, nsDrug,
		nsQuiz, nsQuizCat, nsQuizDiff, nsQuizAnswer,
		nsDeck, nsCard, nsCardRate,
		nsCase, nsCaseAsk, nsCaseAnswer,
		nsInter, nsSearch, nsNT, nsGlossPage, nsGlossTerm, nsNoop,
		nsCompare1, nsCompare2, nsCompare,
		nsPharmaFoc, nsPharmaAud, nsPharma,
	}
}

// Back targets.
const (
	BackMain        = "main"
	BackClassSelect = "class_select"
	BackDrugList    = "drug_list"
	BackQuizMenu    = "quiz_menu"
	BackQuizCat     = "quiz_category"
	BackCaseList    = "case_list"
	BackGlossary    = "glossary"
	BackNTSelect    = "nt_select"
)

const (
	payloadAll   = "all"
	payloadAgain = "again"
)

// Back returns to an earlier screen.
type Back struct{ Target string }

// PickClass selects a drug class by position.
type PickClass struct{ Index int }

// PickDrug selects a drug by position within the current class.
type PickDrug struct{ Index int }

// QuizCommand is one of start, stats, next or finish.
type QuizCommand struct{ Cmd string }

// PickQuizCategory selects a category by position, or all of them.
type PickQuizCategory struct {
	Index int
	All   bool
}

// PickDifficulty selects easy, medium, hard or all.
type PickDifficulty struct{ Level string }

// AnswerQuiz answers the current question with an option position.
type AnswerQuiz struct{ Option int }

// PickDeck selects the flashcard deck by class position, or all drugs.
type PickDeck struct {
	Index int
	All   bool
}

// CardCommand is reveal or skip.
type CardCommand struct{ Cmd string }

// RateCard rates the current card easy, medium or hard.
type RateCard struct{ Rating string }

// OpenCase opens a clinical case by id.
type OpenCase struct{ ID int }

// AskCase shows the question of a case.
type AskCase struct{ ID int }

// AnswerCase answers the case question with an option position.
type AnswerCase struct{ Option int }

// Again restarts a flow; Flow is its namespace.
type Again struct{ Flow string }

// PickTransmitter selects a neurotransmitter by key.
type PickTransmitter struct{ Key string }

// GlossaryPage turns the glossary page.
type GlossaryPage struct{ Page int }

// PickTerm opens a glossary term by position.
type PickTerm struct{ Index int }

// Noop is an inert button such as a page counter.
type Noop struct{}

// PickCompare selects the class of comparison step 1 or 2.
type PickCompare struct {
	Step  int
	Index int
}

// PickFocus selects the pharma report focus by position.
type PickFocus struct{ Index int }

// PickAudience selects resident or specialist depth.
type PickAudience struct{ Audience string }

func tok(ns, payload string) conversation.Token {
	return conversation.Token{Namespace: ns, Payload: payload}
}

func (a Back) Token() conversation.Token        { return tok(nsBack, a.Target) }
func (a PickClass) Token() conversation.Token   { return tok(nsClass, strconv.Itoa(a.Index)) }
func (a PickDrug) Token() conversation.Token    { return tok(nsDrug, strconv.Itoa(a.Index)) }
func (a QuizCommand) Token() conversation.Token { return tok(nsQuiz, a.Cmd) }
func (a PickDifficulty) Token() conversation.Token {
	return tok(nsQuizDiff, a.Level)
}
func (a AnswerQuiz) Token() conversation.Token  { return tok(nsQuizAnswer, strconv.Itoa(a.Option)) }
func (a CardCommand) Token() conversation.Token { return tok(nsCard, a.Cmd) }
func (a RateCard) Token() conversation.Token    { return tok(nsCardRate, a.Rating) }
func (a OpenCase) Token() conversation.Token    { return tok(nsCase, strconv.Itoa(a.ID)) }
func (a AskCase) Token() conversation.Token     { return tok(nsCaseAsk, strconv.Itoa(a.ID)) }
func (a AnswerCase) Token() conversation.Token  { return tok(nsCaseAnswer, strconv.Itoa(a.Option)) }
func (a Again) Token() conversation.Token       { return tok(a.Flow, payloadAgain) }
func (a PickTransmitter) Token() conversation.Token {
	return tok(nsNT, a.Key)
}
func (a GlossaryPage) Token() conversation.Token { return tok(nsGlossPage, strconv.Itoa(a.Page)) }
func (a PickTerm) Token() conversation.Token     { return tok(nsGlossTerm, strconv.Itoa(a.Index)) }
func (Noop) Token() conversation.Token           { return tok(nsNoop, "") }
func (a PickFocus) Token() conversation.Token    { return tok(nsPharmaFoc, strconv.Itoa(a.Index)) }
func (a PickAudience) Token() conversation.Token { return tok(nsPharmaAud, a.Audience) }

func (a PickQuizCategory) Token() conversation.Token {
	if a.All {
		return tok(nsQuizCat, payloadAll)
	}
	return tok(nsQuizCat, strconv.Itoa(a.Index))
}

func (a PickDeck) Token() conversation.Token {
	if a.All {
		return tok(nsDeck, payloadAll)
	}
	return tok(nsDeck, strconv.Itoa(a.Index))
}

func (a PickCompare) Token() conversation.Token {
	ns := nsCompare1
	if a.Step == 2 {
		ns = nsCompare2
	}
	return tok(ns, strconv.Itoa(a.Index))
}

// Decode maps a callback token to its action. Unknown namespaces decode to
// nil. Malformed numbers decode to -1 so lookups report "not found".
func Decode(t conversation.Token) conversation.Action {
	switch t.Namespace {
	case nsBack:
		return Back{Target: t.Payload}
	case nsClass:
		return PickClass{Index: atoi(t.Payload)}
	case nsDrug:
		return PickDrug{Index: atoi(t.Payload)}
	case nsQuiz:
		return QuizCommand{Cmd: t.Payload}
	case nsQuizCat:
		if t.Payload == payloadAll {
			return PickQuizCategory{All: true}
		}
		return PickQuizCategory{Index: atoi(t.Payload)}
	case nsQuizDiff:
		return PickDifficulty{Level: t.Payload}
	case nsQuizAnswer:
		return AnswerQuiz{Option: atoi(t.Payload)}
	case nsDeck:
		if t.Payload == payloadAll {
			return PickDeck{All: true}
		}
		return PickDeck{Index: atoi(t.Payload)}
	case nsCard:
		return CardCommand{Cmd: t.Payload}
	case nsCardRate:
		return RateCard{Rating: t.Payload}
	case nsCase:
		return OpenCase{ID: atoi(t.Payload)}
	case nsCaseAsk:
		return AskCase{ID: atoi(t.Payload)}
	case nsCaseAnswer:
		return AnswerCase{Option: atoi(t.Payload)}
	case nsInter, nsSearch, nsCompare, nsPharma:
		if t.Payload == payloadAgain {
			return Again{Flow: t.Namespace}
		}
		return nil
	case nsNT:
		return PickTransmitter{Key: t.Payload}
	case nsGlossPage:
		return GlossaryPage{Page: atoi(t.Payload)}
	case nsGlossTerm:
		return PickTerm{Index: atoi(t.Payload)}
	case nsNoop:
		return Noop{}
	case nsCompare1:
		return PickCompare{Step: 1, Index: atoi(t.Payload)}
	case nsCompare2:
		return PickCompare{Step: 2, Index: atoi(t.Payload)}
	case nsPharmaFoc:
		return PickFocus{Index: atoi(t.Payload)}
	case nsPharmaAud:
		return PickAudience{Audience: t.Payload}
	}
	return nil
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
