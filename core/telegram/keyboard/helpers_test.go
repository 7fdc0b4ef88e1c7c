package keyboard

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/pharmtutor/core/telegram/callbacks"
)

func TestMenu(t *testing.T) {
	m := Menu([]string{"Квиз", "Карточки"}, []string{"Справка"})
	assert.True(t, m.ResizeKeyboard)
	require.Len(t, m.ReplyKeyboard, 2)
	assert.Equal(t, "Карточки", m.ReplyKeyboard[0][1].Text)
	assert.Equal(t, "Справка", m.ReplyKeyboard[1][0].Text)
}

func TestInlineSkipsOversizedData(t *testing.T) {
	long := callbacks.Data{Namespace: "drug", Payload: strings.Repeat("x", 80)}
	m := Inline(context.Background(),
		[]Button{{Text: "A", Data: callbacks.Data{Namespace: "quiz", Payload: "1"}}, {Text: "B", Data: long}},
		[]Button{{Text: "C", Data: long}},
	)
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 1)
	btn := m.InlineKeyboard[0][0]
	assert.Equal(t, "quiz", btn.Unique)
	assert.Equal(t, "1", btn.Data)
}
