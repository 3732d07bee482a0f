package router

import (
	"strings"

	tg "github.com/m3rciful/accessbot/core/telegram"
	"github.com/m3rciful/accessbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// FSM is the part of state.Manager the text router needs.
type FSM interface {
	InProgress(userID int64) bool
	ManagerHandler(c tele.Context) error
}

// TextOptions configures text and document routing.
type TextOptions struct {
	UnknownText     tele.HandlerFunc
	UnknownDocument tele.HandlerFunc
	Admin           middleware.AdminOptions
	// DocumentsToFSM lets a pending conversation step receive documents.
	DocumentsToFSM bool
}

// TextHandler resolves a text message in this order: slash command,
// pending conversation step, registered bare-word alias, registry
// fallback, UnknownText. Slash text never reaches the pending step: a known
// command runs and an unknown one falls through to the fallbacks with the
// step still armed.
func TextHandler(fsm FSM, reg *tg.Registry, opts TextOptions) tele.HandlerFunc {
	command := func(s *summary, text string) (bool, error) {
		if reg == nil {
			return false, nil
		}
		key, cmd, ok := reg.LookupCommand(text)
		if !ok || cmd.Handler == nil {
			return false, nil
		}
		return true, s.run(handlerName(key), gate(cmd.Handler, cmd.AdminOnly, opts.Admin))
	}
	fallback := func(s *summary) error {
		if reg != nil && reg.TextFallback() != nil {
			return s.run("fallback", reg.TextFallback())
		}
		if opts.UnknownText != nil {
			return s.run("unknown_text", opts.UnknownText)
		}
		s.skip("unknown_text")
		return nil
	}

	return func(c tele.Context) error {
		s := newSummary(c)
		text := strings.TrimSpace(c.Text())
		if strings.HasPrefix(text, "/") {
			if ok, err := command(s, text); ok {
				return err
			}
			return fallback(s)
		}
		if pending(fsm, c) {
			return s.run("fsm", fsm.ManagerHandler)
		}
		if ok, err := command(s, text); ok {
			return err
		}
		return fallback(s)
	}
}

// DocumentHandler answers documents unless a pending step accepts them.
func DocumentHandler(fsm FSM, opts TextOptions) tele.HandlerFunc {
	return func(c tele.Context) error {
		s := newSummary(c)
		switch {
		case opts.DocumentsToFSM && pending(fsm, c):
			return s.run("fsm_document", fsm.ManagerHandler)
		case opts.UnknownDocument != nil:
			return s.run("unexpected_document", opts.UnknownDocument)
		}
		s.skip("unexpected_document")
		return nil
	}
}

func pending(fsm FSM, c tele.Context) bool {
	return fsm != nil && c.Sender() != nil && fsm.InProgress(c.Sender().ID)
}

// TextRoutes binds TextHandler and DocumentHandler to their endpoints.
func TextRoutes(fsm FSM, reg *tg.Registry, opts TextOptions) []tg.Route {
	return []tg.Route{
		{Endpoint: tele.OnText, Handler: wrap(TextHandler(fsm, reg, opts))},
		{Endpoint: tele.OnDocument, Handler: wrap(DocumentHandler(fsm, opts))},
	}
}
