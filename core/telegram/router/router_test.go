package router

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/pharmtutor/core/telegram"
	"github.com/m3rciful/pharmtutor/core/telegram/commands"
)

type fakeContext struct {
	tele.Context

	user      *tele.User
	update    tele.Update
	text      string
	values    map[string]any
	responded int
}

func textUpdate(userID int64, text string) *fakeContext {
	return &fakeContext{
		user:   &tele.User{ID: userID},
		update: tele.Update{ID: 1, Message: &tele.Message{Text: text}},
		text:   text,
		values: map[string]any{},
	}
}

func callbackUpdate(userID int64, data string) *fakeContext {
	c := textUpdate(userID, "")
	c.update = tele.Update{ID: 2, Callback: &tele.Callback{Data: data}}
	return c
}

func (c *fakeContext) Sender() *tele.User       { return c.user }
func (c *fakeContext) Chat() *tele.Chat         { return nil }
func (c *fakeContext) Update() tele.Update      { return c.update }
func (c *fakeContext) Callback() *tele.Callback { return c.update.Callback }
func (c *fakeContext) Message() *tele.Message   { return c.update.Message }
func (c *fakeContext) Text() string             { return c.text }
func (c *fakeContext) Get(key string) any       { return c.values[key] }
func (c *fakeContext) Set(key string, v any)    { c.values[key] = v }

func (c *fakeContext) Respond(...*tele.CallbackResponse) error {
	c.responded++
	return nil
}

type flow struct {
	active map[int64]bool
	got    []string
}

func (f *flow) InProgress(id int64) bool { return f.active[id] }

func (f *flow) ManagerHandler(c tele.Context) error {
	f.got = append(f.got, c.Text())
	return nil
}

func route(t *testing.T, routes []tg.Route, endpoint any) tele.HandlerFunc {
	t.Helper()
	for _, r := range routes {
		if r.Endpoint == endpoint {
			return r.Handler
		}
	}
	t.Fatalf("no route for %v", endpoint)
	return nil
}

func testRegistry(t *testing.T, hits map[string]int) *tg.Registry {
	t.Helper()
	reg := tg.NewRegistry()
	count := func(name string) tele.HandlerFunc {
		return func(tele.Context) error { hits[name]++; return nil }
	}
	require.NoError(t, reg.RegisterCommand(commands.Command{Name: "/help", Description: "Help", Handler: count("help"), Aliases: []string{"помощь"}}))
	require.NoError(t, reg.RegisterCommand(commands.Command{Name: "/admin_stats", Description: "Stats", Handler: count("admin"), AdminOnly: true}))
	require.NoError(t, reg.RegisterCallback("quiz", count("quiz")))
	return reg
}

func TestTextRouting(t *testing.T) {
	hits := map[string]int{}
	reg := testRegistry(t, hits)
	f := &flow{active: map[int64]bool{1: true}}
	unknown := 0
	routes := TextRoutes(f, reg, TextOptions{UnknownText: func(tele.Context) error { unknown++; return nil }})
	onText := route(t, routes, tele.OnText)

	require.NoError(t, onText(textUpdate(1, "помощь")))
	assert.Equal(t, []string{"помощь"}, f.got, "mid-flow text goes to the flow")

	require.NoError(t, onText(textUpdate(2, "Помощь")))
	assert.Equal(t, 1, hits["help"])

	require.NoError(t, onText(textUpdate(2, "admin_stats")))
	assert.Zero(t, hits["admin"], "admin commands never run from plain text")
	assert.Equal(t, 1, unknown)

	reg.SetTextFallback(func(tele.Context) error { hits["fallback"]++; return nil })
	require.NoError(t, onText(textUpdate(2, "what")))
	assert.Equal(t, 1, hits["fallback"])
}

func TestCallbackRouting(t *testing.T) {
	hits := map[string]int{}
	reg := testRegistry(t, hits)
	notFound := 0
	reg.SetCallbackNotFound(func(tele.Context) error { notFound++; return nil })
	h := CallbackRoute(reg, CallbackOptions{}).Handler

	known := callbackUpdate(3, "\fquiz|1")
	require.NoError(t, h(known))
	assert.Equal(t, 1, hits["quiz"])
	assert.Equal(t, 1, known.responded, "every callback is answered")

	require.NoError(t, h(callbackUpdate(3, "\fgone|x")))
	assert.Equal(t, 1, notFound)
}

func TestCommandRoutesGuardAdmin(t *testing.T) {
	hits := map[string]int{}
	reg := testRegistry(t, hits)
	rejected := 0
	routes := CommandRoutes(reg, CommandRouteOptions{
		IsAdmin:       func(id int64) bool { return id == 1 },
		OnAdminReject: func(tele.Context) error { rejected++; return nil },
	})
	h := route(t, routes, "/admin_stats")

	require.NoError(t, h(textUpdate(2, "/admin_stats")))
	require.NoError(t, h(textUpdate(1, "/admin_stats")))
	assert.Equal(t, 1, hits["admin"])
	assert.Equal(t, 1, rejected)
}

func TestServeReturnsHandlerError(t *testing.T) {
	boom := errors.New("boom")
	err := serve(textUpdate(1, "x"), "test", func(tele.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, serve(textUpdate(1, "x"), "test", nil))
}

func TestHandlerNameAndErrorCode(t *testing.T) {
	assert.Equal(t, "admin_stats", handlerName("", " /Admin_Stats"))
	assert.Equal(t, "callback.unknown", handlerName("callback", ""))
	assert.Equal(t, "callback.my_drugs", handlerName("callback", "my drugs"))

	assert.Equal(t, "TG_403", errorCode(fmt.Errorf("send: %w", &tele.Error{Code: 403})))
	assert.Equal(t, "TIMEOUT", errorCode(context.DeadlineExceeded))
	assert.Equal(t, "CANCELLED", errorCode(context.Canceled))
	assert.Equal(t, "INTERNAL", errorCode(errors.New("x")))
}
