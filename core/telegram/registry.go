package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/pharmtutor/core/logger"
	"github.com/m3rciful/pharmtutor/core/telegram/commands"
)

var (
	// ErrInvalidRegistration rejects entries without a key or handler.
	ErrInvalidRegistration = errors.New("telegram: invalid registration")
	// ErrDuplicate rejects a second entry under a taken key.
	ErrDuplicate = errors.New("telegram: duplicate registration")
)

// Registry holds the commands and callback namespaces a bot serves.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	aliases   map[string]string
	callbacks map[string]tele.HandlerFunc

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty registry whose unknown-callback fallback
// answers with a short toast.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: make(map[string]tele.HandlerFunc),
		callbackNotFound: func(c tele.Context) error {
			return c.Respond(&tele.CallbackResponse{Text: "Unsupported action"})
		},
	}
}

// RegisterCommand adds cmd under cmd.Name, which must start with a slash.
func (r *Registry) RegisterCommand(cmd commands.Command) error {
	if cmd.Handler == nil || cmd.Description == "" || !strings.HasPrefix(cmd.Name, "/") {
		return r.rejected(fmt.Errorf("%w: command %q", ErrInvalidRegistration, cmd.Name))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.commands[cmd.Name]; taken {
		return r.rejected(fmt.Errorf("%w: command %s", ErrDuplicate, cmd.Name))
	}
	r.commands[cmd.Name] = cmd
	for _, a := range cmd.Aliases {
		r.aliases[commandKey(a)] = cmd.Name
	}
	return nil
}

// RegisterCallback routes callbacks whose unique field equals namespace.
func (r *Registry) RegisterCallback(namespace string, h tele.HandlerFunc) error {
	if namespace == "" || h == nil {
		return r.rejected(fmt.Errorf("%w: callback %q", ErrInvalidRegistration, namespace))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.callbacks[namespace]; taken {
		return r.rejected(fmt.Errorf("%w: callback %s", ErrDuplicate, namespace))
	}
	r.callbacks[namespace] = h
	return nil
}

func (r *Registry) rejected(err error) error {
	logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.rejected",
		slog.String("event", "register.rejected"),
		slog.String("err", err.Error()),
	)
	return err
}

func commandKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "/") {
		s = "/" + s
	}
	return s
}

// LookupCommand resolves a command name or alias, typed with or without the
// slash, to its command.
func (r *Registry) LookupCommand(text string) (commands.Command, bool) {
	key := commandKey(text)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[key]; ok {
		return cmd, true
	}
	if name, ok := r.aliases[key]; ok {
		return r.commands[name], true
	}
	return commands.Command{}, false
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []commands.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]commands.Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		list = append(list, cmd)
	}
	slices.SortFunc(list, func(a, b commands.Command) int { return strings.Compare(a.Name, b.Name) })
	return list
}

// ListCommands returns the command menu entries; visibleOnly drops hidden
// and admin-only commands.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var menu []tele.Command
	for _, cmd := range r.Commands() {
		if visibleOnly && !cmd.Listed() {
			continue
		}
		menu = append(menu, tele.Command{Text: cmd.Name, Description: cmd.Description})
	}
	return menu
}

// GetCallback returns the handler registered for namespace.
func (r *Registry) GetCallback(namespace string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[namespace]
	return h, ok
}

// ListCallbacks returns the registered namespaces, sorted.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.callbacks))
	for ns := range r.callbacks {
		names = append(names, ns)
	}
	slices.Sort(names)
	return names
}

// SetCallbackNotFound replaces the unknown-callback fallback; nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.mu.Lock()
		r.callbackNotFound = h
		r.mu.Unlock()
	}
}

// CallbackNotFound returns the unknown-callback fallback.
func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text no route claimed.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.mu.Lock()
	r.textFallback = h
	r.mu.Unlock()
}

// TextFallback returns the text fallback, nil when unset.
func (r *Registry) TextFallback() tele.HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textFallback
}

// InitBotCommands publishes the visible commands as the bot's menu.
func InitBotCommands(bot *tele.Bot, reg *Registry) {
	if err := bot.SetCommands(reg.ListCommands(true)); err != nil {
		logger.TWire.LogAttrs(context.Background(), slog.LevelError, "register.commands.set_failed",
			slog.String("event", "register.commands.set_failed"),
			slog.String("err", err.Error()),
		)
	}
}
