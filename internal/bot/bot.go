// Package bot implements the access-list conversation: registration, login,
// approval requests and the admin panel.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/accessbot/core/logger"
	tg "github.com/m3rciful/accessbot/core/telegram"
	"github.com/m3rciful/accessbot/core/telegram/callbacks"
	"github.com/m3rciful/accessbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"
	"github.com/m3rciful/accessbot/core/telegram/middleware"
	"github.com/m3rciful/accessbot/core/telegram/state"
	"github.com/m3rciful/accessbot/core/telegram/ui"
	"github.com/m3rciful/accessbot/internal/store"

	tele "gopkg.in/telebot.v4"
)

// Store is the persistence the handlers need.
type Store interface {
	tghelpers.UserLookup[store.User]

	VerifyAdminPassword(ctx context.Context, candidate string) (bool, error)
	RegisterUser(ctx context.Context, userID int64, email, password string) error
	ApproveUser(ctx context.Context, userID int64) error
	IsApproved(ctx context.Context, userID int64) (bool, error)
	ListPendingUsers(ctx context.Context) ([]store.PendingUser, error)
	Login(ctx context.Context, email, password string) (store.LoginResult, error)
	Stats(ctx context.Context) (store.Stats, error)
}

// Messenger sends to chats other than the one an update came from.
// *tele.Bot satisfies it.
type Messenger interface {
	Send(to tele.Recipient, what any, opts ...any) (*tele.Message, error)
	CreateInviteLink(chat tele.Recipient, link *tele.ChatInviteLink) (*tele.ChatInviteLink, error)
}

// Options configure the conversation.
type Options struct {
	// AdminID receives approval requests. With RequireAdminLogin off it is
	// also the only sender allowed into the admin panel.
	AdminID        int64
	PaymentContact string
	// ChannelID is the managed channel; zero disables invites and publishing.
	ChannelID         int64
	RequireAdminLogin bool
	AdminTools        bool
	InviteTTL         time.Duration

	Now func() time.Time
}

// Bot holds the handlers and their dependencies.
type Bot struct {
	store    Store
	sessions state.Manager
	msgr     Messenger
	opts     Options
}

var _ ui.FallbackProvider = (*Bot)(nil)

// New builds the conversation handlers on top of st and sessions.
func New(st Store, sessions state.Manager, opts Options) *Bot {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Bot{store: st, sessions: sessions, opts: opts}
}

// SetMessenger wires the outbound client. It must be called before updates
// are processed, typically from the runtime OnStart hook.
func (b *Bot) SetMessenger(m Messenger) {
	b.msgr = m
}

// Register adds commands, callbacks and conversation steps.
func (b *Bot) Register(reg *tg.Registry) error {
	cmds := []struct {
		name string
		cmd  commands.Command
	}{
		{"/start", commands.Command{Handler: b.command(b.handleStart), Description: "Show the main menu"}},
		{"/admin_login", commands.Command{Handler: b.command(b.handleAdminLogin), Description: "Log in as admin"}},
		{"/register", commands.Command{Handler: b.command(b.handleRegister), Description: "Register with email and password"}},
		{"/request_permission", commands.Command{Handler: b.command(b.handleRequestPermission), Description: "Ask the admin for channel access"}},
		{"/user_login", commands.Command{Handler: b.command(b.handleUserLogin), Description: "Check your account status"}},
		{"/admin_panel", commands.Command{Handler: b.command(b.handleAdminPanel), Description: "Open the admin panel", AdminOnly: true}},
		{"/cancel", commands.Command{Handler: b.handleCancel, Description: "Cancel the current prompt"}},
	}
	for _, c := range cmds {
		reg.RegisterCommand(c.name, c.cmd)
	}

	if err := reg.RegisterCallback(cbAdminLogout, b.handleAdminLogout); err != nil {
		return err
	}
	if err := reg.RegisterAdminCallback(cbApproveUsers, b.handleApproveUsers); err != nil {
		return err
	}
	if err := reg.RegisterCallbackPrefix(cbApprovePrefix, b.handleApproveUser, true); err != nil {
		return err
	}
	if err := reg.RegisterCallbackPrefix(cbApprovePage, b.handleApprovePage, true); err != nil {
		return err
	}

	b.sessions.Handle(StateAwaitingAdminPassword, b.onAdminPassword)
	b.sessions.Handle(StateAwaitingRegistration, b.onRegistration)
	b.sessions.Handle(StateAwaitingLogin, b.onLogin)

	if !b.opts.AdminTools {
		return nil
	}
	if err := reg.RegisterAdminCallback(cbPostMaker, b.handlePostMaker); err != nil {
		return err
	}
	if err := reg.RegisterAdminCallback(cbPollMaker, b.handlePollMaker); err != nil {
		return err
	}
	if err := reg.RegisterAdminCallback(cbManageChannels, b.handleManageChannels); err != nil {
		return err
	}
	b.sessions.Handle(StateAwaitingPost, b.onPost)
	b.sessions.Handle(StateAwaitingPoll, b.onPoll)
	return nil
}

// command drops any pending prompt before h runs, so a reissued or different
// command never leaves a stale step behind.
func (b *Bot) command(h tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		if s := c.Sender(); s != nil {
			b.sessions.ClearState(s.ID)
		}
		return h(c)
	}
}

// IsAdmin reports whether the sender may use the admin panel.
func (b *Bot) IsAdmin(c tele.Context) bool {
	s := c.Sender()
	if s == nil {
		return false
	}
	if b.opts.RequireAdminLogin {
		return b.sessions.GetTempBool(s.ID, tempAdmin)
	}
	return b.opts.AdminID != 0 && s.ID == b.opts.AdminID
}

// AdminOptions gates admin-only commands and callbacks behind IsAdmin.
func (b *Bot) AdminOptions() middleware.AdminOptions {
	return middleware.AdminOptions{
		AdminID:    b.opts.AdminID,
		Authorized: b.IsAdmin,
		OnReject:   b.rejectAdmin,
	}
}

func (b *Bot) rejectAdmin(c tele.Context) error {
	if c.Callback() != nil {
		return callbacks.Answer(c, textAdminRequired)
	}
	return tghelpers.SendText(c, textAdminRequired)
}

// UnknownText answers free text nobody is waiting for.
func (b *Bot) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, textUnknown)
	}
}

// UnknownDocument answers files and other non-text messages.
func (b *Bot) UnknownDocument() tele.HandlerFunc {
	return func(c tele.Context) error {
		return tghelpers.SendText(c, textTextOnly)
	}
}

// UnknownCallback answers buttons that no longer map to a handler.
func (b *Bot) UnknownCallback() tele.HandlerFunc {
	return func(c tele.Context) error {
		return callbacks.Answer(c, textUnsupported)
	}
}

// send delivers what to a chat outside the current update.
func (b *Bot) send(ctx context.Context, to int64, what any, opts ...any) error {
	if b.msgr == nil || to == 0 {
		logger.LogEvent(ctx, logger.SVCAccess, slog.LevelWarn, "notify.skip",
			slog.String("status", "skip"),
			slog.Int64("target_chat_id", to),
			slog.Bool("messenger", b.msgr != nil),
		)
		return nil
	}
	if _, err := b.msgr.Send(tele.ChatID(to), what, opts...); err != nil {
		return fmt.Errorf("send to %d: %w", to, err)
	}
	return nil
}

func senderID(c tele.Context) int64 {
	if s := c.Sender(); s != nil {
		return s.ID
	}
	return 0
}
