package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/telegram/commands"
)

func nop(tele.Context) error { return nil }

func TestRegistryCommands(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCommand(commands.Command{Name: "/help", Description: "Help", Handler: nop, Aliases: []string{"Помощь"}}))
	require.NoError(t, r.RegisterCommand(commands.Command{Name: "/admin_stats", Description: "Stats", Handler: nop, AdminOnly: true}))
	require.NoError(t, r.RegisterCommand(commands.Command{Name: "/debug", Description: "Debug", Handler: nop, Hidden: true}))

	assert.ErrorIs(t, r.RegisterCommand(commands.Command{Name: "/help", Description: "again", Handler: nop}), ErrDuplicate)
	assert.ErrorIs(t, r.RegisterCommand(commands.Command{Name: "help", Description: "x", Handler: nop}), ErrInvalidRegistration)
	assert.ErrorIs(t, r.RegisterCommand(commands.Command{Name: "/x", Description: "x"}), ErrInvalidRegistration)

	for _, text := range []string{"/help", "help", " HELP ", "помощь"} {
		cmd, ok := r.LookupCommand(text)
		require.True(t, ok, text)
		assert.Equal(t, "/help", cmd.Name)
	}
	_, ok := r.LookupCommand("/nope")
	assert.False(t, ok)

	assert.Equal(t, []tele.Command{{Text: "/help", Description: "Help"}}, r.ListCommands(true))
	assert.Len(t, r.ListCommands(false), 3)
}

func TestRegistryCallbacks(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.RegisterCallback("quiz", nop))
	require.NoError(t, r.RegisterCallback("drug", nop))
	assert.ErrorIs(t, r.RegisterCallback("quiz", nop), ErrDuplicate)
	assert.ErrorIs(t, r.RegisterCallback("", nop), ErrInvalidRegistration)

	_, ok := r.GetCallback("quiz")
	assert.True(t, ok)
	assert.Equal(t, []string{"drug", "quiz"}, r.ListCallbacks())

	assert.NotNil(t, r.CallbackNotFound())
	r.SetCallbackNotFound(nil)
	assert.NotNil(t, r.CallbackNotFound())

	assert.Nil(t, r.TextFallback())
	r.SetTextFallback(nop)
	assert.NotNil(t, r.TextFallback())
}
