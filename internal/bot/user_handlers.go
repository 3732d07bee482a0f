package bot

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/core/telegram/format"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"
	"github.com/m3rciful/accessbot/internal/auth"
	"github.com/m3rciful/accessbot/internal/store"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) handleStart(c tele.Context) error {
	return tghelpers.SendText(c, textWelcome)
}

func (b *Bot) handleAdminLogin(c tele.Context) error {
	b.sessions.SetState(senderID(c), StateAwaitingAdminPassword)
	return tghelpers.SendText(c, textAdminPasswordPrompt)
}

func (b *Bot) onAdminPassword(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id := senderID(c)
	b.dropSecret(c)

	ok, err := b.store.VerifyAdminPassword(ctx, c.Text())
	if err != nil {
		return fmt.Errorf("verify admin password: %w", err)
	}
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "admin.login",
		slog.String("status", statusOf(ok)),
	)
	if !ok {
		b.sessions.SetState(id, StateAwaitingAdminPassword)
		return tghelpers.SendText(c, textAdminDenied)
	}
	b.sessions.SetTemp(id, tempAdmin, true)
	return tghelpers.SendText(c, textAdminGranted)
}

func (b *Bot) handleRegister(c tele.Context) error {
	b.sessions.SetState(senderID(c), StateAwaitingRegistration)
	return tghelpers.SendMD(c, textRegisterPrompt)
}

func (b *Bot) onRegistration(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id := senderID(c)
	b.dropSecret(c)

	email, password, err := ParseCredentials(c.Text())
	if err != nil {
		b.sessions.SetState(id, StateAwaitingRegistration)
		return tghelpers.SendMD(c, textCredentialsFormat)
	}
	if err := auth.Validate(password); err != nil {
		b.sessions.SetState(id, StateAwaitingRegistration)
		return tghelpers.SendText(c, textPasswordTooLong)
	}
	if err := b.store.RegisterUser(ctx, id, email, password); err != nil {
		return err
	}
	if b.opts.PaymentContact == "" {
		return tghelpers.SendText(c, textRegistered)
	}
	return tghelpers.SendText(c, fmt.Sprintf(textRegisteredPay, b.opts.PaymentContact))
}

func (b *Bot) handleRequestPermission(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id := senderID(c)

	approved, err := b.store.IsApproved(ctx, id)
	if err != nil {
		return err
	}
	if approved {
		return tghelpers.SendText(c, textAlreadyApproved)
	}

	notice := fmt.Sprintf(textPermissionRequest, id)
	u, err := tghelpers.CurrentUser[store.User](ctx, b.store, id)
	if err != nil && !errors.Is(err, store.ErrUserNotFound) {
		return err
	}
	registered := err == nil
	if registered {
		notice += fmt.Sprintf(textPermissionEmail, format.MD(u.Email))
	}
	if err := b.send(ctx, b.opts.AdminID, notice, &tele.SendOptions{ParseMode: tele.ModeMarkdown}); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "permission.requested",
		slog.String("status", "ok"),
		slog.Bool("registered", registered),
	)
	return tghelpers.SendText(c, textPermissionSent)
}

func (b *Bot) handleUserLogin(c tele.Context) error {
	b.sessions.SetState(senderID(c), StateAwaitingLogin)
	return tghelpers.SendMD(c, textLoginPrompt)
}

func (b *Bot) onLogin(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	b.dropSecret(c)

	email, password, err := ParseCredentials(c.Text())
	if err != nil {
		b.sessions.SetState(senderID(c), StateAwaitingLogin)
		return tghelpers.SendMD(c, textCredentialsFormat)
	}
	res, err := b.store.Login(ctx, email, password)
	if err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "user.login",
		slog.String("status", "ok"),
		slog.String("outcome", res.String()),
	)
	switch res {
	case store.LoginSuccess:
		return tghelpers.SendText(c, textLoginSuccess)
	case store.LoginPending:
		return tghelpers.SendText(c, textLoginPending)
	default:
		return tghelpers.SendText(c, textLoginInvalid)
	}
}

func (b *Bot) handleCancel(c tele.Context) error {
	id := senderID(c)
	if !b.sessions.InProgress(id) {
		return tghelpers.SendText(c, textNothingToCancel)
	}
	b.sessions.ClearState(id)
	return tghelpers.SendText(c, textCancelled)
}

// dropSecret removes a message carrying a password from the chat history.
func (b *Bot) dropSecret(c tele.Context) {
	if err := c.Delete(); err != nil {
		logger.Debug(tghelpers.BuildContext(c), "service.access", "secret.delete",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
		)
	}
}

func statusOf(ok bool) string {
	if ok {
		return "ok"
	}
	return "fail"
}
