package telegram

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/core/telegram/callbacks"
	"github.com/m3rciful/accessbot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry collects the commands and callbacks a bot answers. Commands are
// registered during startup only; callbacks may be added concurrently.
type Registry struct {
	commands map[string]commands.Command
	aliases  map[string]string // "/alias" -> canonical "/name"

	callbacks callbackTable

	callbackNotFound tele.HandlerFunc
	textFallback     tele.HandlerFunc
}

// NewRegistry returns an empty Registry whose unknown-callback handler
// answers "Unsupported action".
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		aliases:   make(map[string]string),
		callbacks: callbackTable{exact: make(map[string]Callback)},
		callbackNotFound: func(c tele.Context) error {
			return callbacks.Answer(c, "Unsupported action")
		},
	}
}

// RegisterCommand adds cmd under name, which must start with "/". Invalid
// and duplicate registrations are logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	skip := func(reason string) {
		logger.TWire.LogAttrs(context.Background(), slog.LevelWarn, "register.command.skip",
			slog.String("name", name),
			slog.String("reason", reason),
		)
	}
	switch {
	case name == "" || cmd.Handler == nil || cmd.Description == "":
		skip("invalid")
		return
	case !strings.HasPrefix(name, "/"):
		skip("no_slash_prefix")
		return
	}
	if _, taken := r.resolve(name); taken {
		skip("duplicate")
		return
	}
	r.commands[name] = cmd
	for _, a := range cmd.Aliases {
		alias := "/" + strings.TrimPrefix(a, "/")
		if _, taken := r.resolve(alias); taken {
			skip("alias_taken:" + alias)
			continue
		}
		r.aliases[alias] = name
	}
}

func (r *Registry) resolve(name string) (string, bool) {
	if _, ok := r.commands[name]; ok {
		return name, true
	}
	key, ok := r.aliases[name]
	return key, ok
}

// LookupCommand resolves the first word of text to a canonical command
// name. A "/name" or "/name@botname" word matches commands and aliases; a
// bare word matches registered aliases only.
func (r *Registry) LookupCommand(text string) (string, commands.Command, bool) {
	name, _, _ := strings.Cut(strings.TrimSpace(text), " ")
	if i := strings.IndexByte(name, '@'); i > 0 {
		name = name[:i]
	}
	var (
		key string
		ok  bool
	)
	switch {
	case name == "" || name == "/":
	case strings.HasPrefix(name, "/"):
		key, ok = r.resolve(name)
	default:
		key, ok = r.aliases["/"+name]
	}
	if !ok {
		return "", commands.Command{}, false
	}
	return key, r.commands[key], true
}

// Commands returns the registered commands keyed by canonical name.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// ListCommands returns the commands sorted by name. With visibleOnly,
// hidden and admin-only commands are left out.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && (cmd.Hidden || cmd.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback binds handler to the exact callback data key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	return r.callbacks.add(key, Callback{Handler: handler}, false)
}

// RegisterAdminCallback is RegisterCallback for admin-only handlers.
func (r *Registry) RegisterAdminCallback(key string, handler tele.HandlerFunc) error {
	return r.callbacks.add(key, Callback{Handler: handler, AdminOnly: true}, false)
}

// RegisterCallbackPrefix binds handler to every key starting with prefix.
func (r *Registry) RegisterCallbackPrefix(prefix string, handler tele.HandlerFunc, adminOnly bool) error {
	return r.callbacks.add(prefix, Callback{Handler: handler, AdminOnly: adminOnly}, true)
}

// GetCallback resolves key. Exact keys win over prefixes and the longest
// matching prefix wins otherwise.
func (r *Registry) GetCallback(key string) (Callback, bool) {
	return r.callbacks.get(key)
}

// ListCallbacks returns the registered keys sorted, prefixes suffixed by "*".
func (r *Registry) ListCallbacks() []string {
	return r.callbacks.keys()
}

// SetCallbackNotFound replaces the unknown-callback handler; nil is ignored.
func (r *Registry) SetCallbackNotFound(h tele.HandlerFunc) {
	if h != nil {
		r.callbackNotFound = h
	}
}

func (r *Registry) CallbackNotFound() tele.HandlerFunc {
	return r.callbackNotFound
}

// SetTextFallback sets the handler for text nothing else claimed.
func (r *Registry) SetTextFallback(h tele.HandlerFunc) {
	r.textFallback = h
}

func (r *Registry) TextFallback() tele.HandlerFunc {
	return r.textFallback
}

// CommandSetter is the part of *tele.Bot that publishes the command menu.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the visible commands of reg as the bot menu.
// Failures are logged; the bot works without a menu.
func InitBotCommands(bot CommandSetter, reg *Registry) {
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	ctx := context.Background()
	if err := bot.SetCommands(list); err != nil {
		logger.TWire.LogAttrs(ctx, slog.LevelError, "register.commands.set_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return
	}
	logger.TWire.LogAttrs(ctx, slog.LevelInfo, "register.commands.set",
		slog.Int("count", len(list)),
	)
}
