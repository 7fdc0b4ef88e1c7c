package tutor

import (
	"strconv"
	"strings"

	"github.com/m3rciful/pharmtutor/core/telegram/format"
	"github.com/m3rciful/pharmtutor/internal/conversation"
)

// Main menu labels.
const (
	menuDrugs        = "💊 Препараты"
	menuQuiz         = "📝 Тест"
	menuFlashcards   = "🃏 Карточки"
	menuCases        = "🏥 Клинические случаи"
	menuInteractions = "⚠️ Взаимодействия"
	menuSearch       = "🔍 Поиск"
	menuTransmitters = "🧠 Нейромедиаторы"
	menuProgress     = "📊 Мой прогресс"
	menuGlossary     = "📖 Глоссарий"
	menuTip          = "💡 Совет дня"
	menuPharma       = "🔬 Фарма-анализ"
	menuCompare      = "⚖️ Сравнение классов"
)

var mainMenuRows = [][]string{
	{menuDrugs, menuQuiz},
	{menuFlashcards, menuCases},
	{menuInteractions, menuSearch},
	{menuTransmitters, menuProgress},
	{menuGlossary, menuTip},
	{menuPharma, menuCompare},
}

// MainMenuRows returns a copy of the persistent reply keyboard.
func MainMenuRows() [][]string {
	out := make([][]string, len(mainMenuRows))
	for i, row := range mainMenuRows {
		out[i] = append([]string(nil), row...)
	}
	return out
}

const welcomeText = "👋 Добро пожаловать в *Психофармакологический тьютор*!\n\n" +
	"Я помогу вам изучить:\n" +
	"• 💊 Справочник препаратов по классам\n" +
	"• 📝 Тесты и карточки для самопроверки\n" +
	"• 🏥 Клинические случаи\n" +
	"• ⚠️ Взаимодействия лекарств\n" +
	"• 🧠 Нейромедиаторные системы\n" +
	"• 📖 Глоссарий терминов\n" +
	"• ⚖️ Сравнение классов препаратов\n" +
	"• 🔬 Детальный сравнительный анализ препаратов\n\n" +
	"Выберите раздел:"

// HelpText lists what the bot can do.
const HelpText = "ℹ️ *Справка*\n\n" +
	"/start — главное меню\n" +
	"/help — эта справка\n\n" +
	"Пользуйтесь кнопками меню. В разделах «Взаимодействия», «Поиск» и " +
	"«Фарма-анализ» введите название препарата текстом. Кнопка «⬅️ Назад» " +
	"возвращает на предыдущий экран."

var answerLabels = []string{"А", "Б", "В", "Г"}

func optionLabel(i int) string {
	if i < len(answerLabels) {
		return answerLabels[i]
	}
	return strconv.Itoa(i + 1)
}

func md(text string, buttons ...[]conversation.Button) conversation.Reply {
	return conversation.Reply{Text: text, Format: conversation.Markdown, Buttons: buttons}
}

func plain(text string, buttons ...[]conversation.Button) conversation.Reply {
	return conversation.Reply{Text: text, Buttons: buttons}
}

func edited(r conversation.Reply) conversation.Reply {
	r.Edit = true
	return r
}

func editIf(edit bool, r conversation.Reply) conversation.Reply {
	r.Edit = edit
	return r
}

func btn(text string, act conversation.Action) []conversation.Button {
	return []conversation.Button{{Text: text, Action: act}}
}

func backRow(target string) []conversation.Button {
	return btn("⬅️ Назад", Back{Target: target})
}

func homeRow() []conversation.Button {
	return btn("🏠 Главное меню", Back{Target: BackMain})
}

// esc escapes user supplied text placed outside markup entities.
func esc(s string) string {
	return format.MD(s)
}

// strong wraps user supplied text in bold; entities cannot nest, so the
// marker character is dropped from the text.
func strong(s string) string {
	return "*" + strings.ReplaceAll(s, "*", "") + "*"
}

// truncate cuts s to limit runes and appends suffix when it was longer.
func truncate(s string, limit int, suffix string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + suffix
}

func percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(float64(part)/float64(total)*100 + 0.5)
}
