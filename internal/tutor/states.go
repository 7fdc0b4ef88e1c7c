package tutor

import "github.com/m3rciful/pharmtutor/internal/conversation"

// States of the tutor conversation.
const (
	StateMainMenu conversation.State = "main_menu"

	StateDrugClassSelect conversation.State = "drug_class_select"
	StateDrugList        conversation.State = "drug_list"
	StateDrugDetail      conversation.State = "drug_detail"

	StateQuizMenu       conversation.State = "quiz_menu"
	StateQuizCategory   conversation.State = "quiz_category"
	StateQuizDifficulty conversation.State = "quiz_difficulty"
	StateQuizQuestion   conversation.State = "quiz_question"
	StateQuizNext       conversation.State = "quiz_next"

	StateFlashcardCategory conversation.State = "flashcard_category"
	StateFlashcardShow     conversation.State = "flashcard_show"
	StateFlashcardRate     conversation.State = "flashcard_rate"

	StateCaseList     conversation.State = "case_list"
	StateCaseRead     conversation.State = "case_read"
	StateCaseQuestion conversation.State = "case_question"
	StateCaseAnswer   conversation.State = "case_answer"

	StateInterDrug1  conversation.State = "inter_drug1"
	StateInterDrug2  conversation.State = "inter_drug2"
	StateInterResult conversation.State = "inter_result"

	StateSearchInput  conversation.State = "search_input"
	StateSearchResult conversation.State = "search_result"

	StateNTSelect       conversation.State = "nt_select"
	StateGlossaryBrowse conversation.State = "glossary_browse"
	StateProgressView   conversation.State = "progress_view"
	StateTipView        conversation.State = "tip_view"

	StateCompareSelect1 conversation.State = "compare_select1"
	StateCompareSelect2 conversation.State = "compare_select2"

	StatePharmaInput    conversation.State = "pharma_input"
	StatePharmaContext  conversation.State = "pharma_context"
	StatePharmaFocus    conversation.State = "pharma_focus"
	StatePharmaAudience conversation.State = "pharma_audience"
)

// AllStates lists every state the tutor registers.
var AllStates = []conversation.State{
	StateMainMenu,
	StateDrugClassSelect, StateDrugList, StateDrugDetail,
	StateQuizMenu, StateQuizCategory, StateQuizDifficulty, StateQuizQuestion, StateQuizNext,
	StateFlashcardCategory, StateFlashcardShow, StateFlashcardRate,
	StateCaseList, StateCaseRead, StateCaseQuestion, StateCaseAnswer,
	StateInterDrug1, StateInterDrug2, StateInterResult,
	StateSearchInput, StateSearchResult,
	StateNTSelect, StateGlossaryBrowse, StateProgressView, StateTipView,
	StateCompareSelect1, StateCompareSelect2,
	StatePharmaInput, StatePharmaContext, StatePharmaFocus, StatePharmaAudience,
}

// QuizRun is an in-progress quiz. Index is the position of the current
// question and equals the number of answered questions.
type QuizRun struct {
	ID        string
	Questions []string
	Index     int
	Score     int
}

// Deck is an in-progress flashcard session over drug names.
type Deck struct {
	ID    string
	Drugs []string
	Index int
}

// Sessions, one type per state. Fields carry what the state's handlers
// need from earlier turns.
type (
	// MainMenu waits for a persistent keyboard label.
	MainMenu struct{}
	// DrugClassSelect lists the drug classes.
	DrugClassSelect struct{}
	// DrugList lists the drugs of Class.
	DrugList struct{ Class string }
	// DrugDetail shows Drug from Class.
	DrugDetail struct{ Class, Drug string }

	// QuizMenu offers to start a quiz.
	QuizMenu struct{}
	// QuizCategory picks a question category or all of them.
	QuizCategory struct{}
	// QuizDifficulty picks the difficulty within Category.
	QuizDifficulty struct{ Category string }
	// QuizQuestion waits for an answer to Run's current question.
	QuizQuestion struct{ Run QuizRun }
	// QuizNext shows the explanation and waits for the next question.
	QuizNext struct{ Run QuizRun }

	// FlashcardCategory picks a deck.
	FlashcardCategory struct{}
	// FlashcardShow shows the front of Deck's current card.
	FlashcardShow struct{ Deck Deck }
	// FlashcardRate waits for a self-rating of the revealed card.
	FlashcardRate struct{ Deck Deck }

	// CaseList lists clinical cases.
	CaseList struct{}
	// CaseRead shows a case vignette.
	CaseRead struct{ CaseID int }
	// CaseQuestion waits for a choice on the case question.
	CaseQuestion struct{ CaseID int }
	// CaseAnswer shows the explained answer.
	CaseAnswer struct{ CaseID int }

	// InterDrug1 waits for the first drug of an interaction check.
	InterDrug1 struct{}
	// InterDrug2 waits for the drug to check against First.
	InterDrug2 struct{ First string }
	// InterResult shows an interaction verdict.
	InterResult struct{}

	// SearchInput waits for a search query.
	SearchInput struct{}
	// SearchResult shows the hits for Query.
	SearchResult struct{ Query string }

	// NTSelect lists neurotransmitters.
	NTSelect struct{}
	// GlossaryBrowse shows glossary page Page, zero based.
	GlossaryBrowse struct{ Page int }
	// ProgressView shows the user's stats.
	ProgressView struct{}
	// TipView shows a random tip.
	TipView struct{}

	// CompareSelect1 picks the first class to compare.
	CompareSelect1 struct{}
	// CompareSelect2 picks the class to compare with First.
	CompareSelect2 struct{ First string }

	// PharmaInput waits for the list of drugs to analyse.
	PharmaInput struct{}
	// PharmaContext waits for an optional clinical context for Drugs.
	PharmaContext struct{ Drugs []string }
	// PharmaFocus picks the analysis focus.
	PharmaFocus struct {
		Drugs   []string
		Context string
	}
	// PharmaAudience picks the report depth; the report is rebuilt from
	// the fields on every pick.
	PharmaAudience struct {
		Drugs   []string
		Context string
		Focus   string
	}
)

func (MainMenu) State() conversation.State        { return StateMainMenu }
func (DrugClassSelect) State() conversation.State { return StateDrugClassSelect }
func (DrugList) State() conversation.State        { return StateDrugList }
func (DrugDetail) State() conversation.State      { return StateDrugDetail }

func (QuizMenu) State() conversation.State       { return StateQuizMenu }
func (QuizCategory) State() conversation.State   { return StateQuizCategory }
func (QuizDifficulty) State() conversation.State { return StateQuizDifficulty }
func (QuizQuestion) State() conversation.State   { return StateQuizQuestion }
func (QuizNext) State() conversation.State       { return StateQuizNext }

func (FlashcardCategory) State() conversation.State { return StateFlashcardCategory }
func (FlashcardShow) State() conversation.State     { return StateFlashcardShow }
func (FlashcardRate) State() conversation.State     { return StateFlashcardRate }

func (CaseList) State() conversation.State     { return StateCaseList }
func (CaseRead) State() conversation.State     { return StateCaseRead }
func (CaseQuestion) State() conversation.State { return StateCaseQuestion }
func (CaseAnswer) State() conversation.State   { return StateCaseAnswer }

func (InterDrug1) State() conversation.State  { return StateInterDrug1 }
func (InterDrug2) State() conversation.State  { return StateInterDrug2 }
func (InterResult) State() conversation.State { return StateInterResult }

func (SearchInput) State() conversation.State  { return StateSearchInput }
func (SearchResult) State() conversation.State { return StateSearchResult }

func (NTSelect) State() conversation.State       { return StateNTSelect }
func (GlossaryBrowse) State() conversation.State { return StateGlossaryBrowse }
func (ProgressView) State() conversation.State   { return StateProgressView }
func (TipView) State() conversation.State        { return StateTipView }

func (CompareSelect1) State() conversation.State { return StateCompareSelect1 }
func (CompareSelect2) State() conversation.State { return StateCompareSelect2 }

func (PharmaInput) State() conversation.State    { return StatePharmaInput }
func (PharmaContext) State() conversation.State  { return StatePharmaContext }
func (PharmaFocus) State() conversation.State    { return StatePharmaFocus }
func (PharmaAudience) State() conversation.State { return StatePharmaAudience }
