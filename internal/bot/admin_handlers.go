package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/accessbot/core/logger"
	"github.com/m3rciful/accessbot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"
	"github.com/m3rciful/accessbot/core/telegram/keyboard"

	tele "gopkg.in/telebot.v4"
)

func (b *Bot) panelMarkup() *tele.ReplyMarkup {
	buttons := []keyboard.InlineBtn{{Text: "Approve Users", Data: cbApproveUsers}}
	if b.opts.AdminTools {
		buttons = append(buttons,
			keyboard.InlineBtn{Text: "Poll Maker", Data: cbPollMaker},
			keyboard.InlineBtn{Text: "Post Maker", Data: cbPostMaker},
			keyboard.InlineBtn{Text: "Manage Channels", Data: cbManageChannels},
		)
	}
	buttons = append(buttons, keyboard.InlineBtn{Text: "Logout", Data: cbAdminLogout})
	return keyboard.InlineButtons(buttons)
}

func (b *Bot) handleAdminPanel(c tele.Context) error {
	return tghelpers.SendKeyboard(c, textAdminPanel, b.panelMarkup())
}

func (b *Bot) handleAdminLogout(c tele.Context) error {
	b.sessions.ClearTemp(senderID(c), tempAdmin)
	b.sessions.ClearState(senderID(c))
	return tghelpers.EditOrSendText(c, textLoggedOut)
}

// pendingPageSize keeps the approval keyboard well under Telegram's
// inline markup limits.
const pendingPageSize = 10

func (b *Bot) handleApproveUsers(c tele.Context) error {
	return b.showPending(c, 0)
}

func (b *Bot) handleApprovePage(c tele.Context) error {
	page, err := callbacks.SuffixInt64(callbacks.CallbackKey(c), cbApprovePage)
	if err != nil {
		return callbacks.Answer(c, textUnsupported)
	}
	return b.showPending(c, int(page))
}

func (b *Bot) showPending(c tele.Context, index int) error {
	ctx := tghelpers.BuildContext(c)
	pending, err := b.store.ListPendingUsers(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return tghelpers.EditOrSendText(c, textNoPending)
	}
	page := keyboard.Paginate(len(pending), pendingPageSize, index)
	rows := make([][]keyboard.InlineBtn, 0, page.End-page.Start+1)
	for _, u := range pending[page.Start:page.End] {
		rows = append(rows, []keyboard.InlineBtn{{
			Text: "Approve " + u.Email,
			Data: callbacks.KeyWithInt64(cbApprovePrefix, u.UserID),
		}})
	}
	text := textPendingList
	if nav := page.Nav(cbApprovePage); len(nav) > 0 {
		rows = append(rows, nav)
		text = fmt.Sprintf(textPendingPage, page.Index+1, page.Count)
	}
	return tghelpers.EditOrSendText(c, text, keyboard.InlineRows(rows...))
}

func (b *Bot) handleApproveUser(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	id, err := callbacks.SuffixInt64(callbacks.CallbackKey(c), cbApprovePrefix)
	if err != nil {
		return callbacks.Answer(c, textBadApprove)
	}
	if err := b.store.ApproveUser(ctx, id); err != nil {
		return err
	}
	if err := callbacks.Answer(c, fmt.Sprintf(textApproved, id)); err != nil {
		return err
	}
	if err := c.Delete(); err != nil {
		logger.LogEvent(ctx, logger.SVCAccess, slog.LevelWarn, "approve.delete_message",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 128)),
		)
	}
	return b.notifyApproved(ctx, id)
}

// notifyApproved tells a newly approved user, with a single-use invite link
// when a channel is managed. Unknown ids are skipped.
func (b *Bot) notifyApproved(ctx context.Context, userID int64) error {
	approved, err := b.store.IsApproved(ctx, userID)
	if err != nil || !approved {
		return err
	}
	text := textApprovedNotice
	if link := b.inviteLink(ctx); link != "" {
		text += fmt.Sprintf(textInviteLink, link)
	}
	return b.send(ctx, userID, text)
}

func (b *Bot) inviteLink(ctx context.Context) string {
	if b.opts.ChannelID == 0 || b.msgr == nil {
		return ""
	}
	req := &tele.ChatInviteLink{MemberLimit: 1}
	if b.opts.InviteTTL > 0 {
		req.ExpireUnixtime = b.opts.Now().Add(b.opts.InviteTTL).Unix()
	}
	link, err := b.msgr.CreateInviteLink(tele.ChatID(b.opts.ChannelID), req)
	if err != nil {
		logger.LogEvent(ctx, logger.SVCAccess, slog.LevelWarn, "invite.create",
			slog.String("status", "fail"),
			slog.Int64("channel_id", b.opts.ChannelID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return ""
	}
	return link.InviteLink
}

func (b *Bot) handlePostMaker(c tele.Context) error {
	b.sessions.SetState(senderID(c), StateAwaitingPost)
	return tghelpers.SendText(c, textPostPrompt)
}

func (b *Bot) onPost(c tele.Context) error {
	if !b.IsAdmin(c) {
		return b.rejectAdmin(c)
	}
	ctx := tghelpers.BuildContext(c)
	content := c.Text()
	if b.opts.ChannelID == 0 {
		return tghelpers.SendText(c, fmt.Sprintf(textPostCreated, content))
	}
	if err := b.send(ctx, b.opts.ChannelID, content); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "post.published",
		slog.String("status", "ok"),
		slog.Int64("channel_id", b.opts.ChannelID),
		slog.Int("text_len", len(content)),
	)
	return tghelpers.SendText(c, textPostPublished)
}

func (b *Bot) handlePollMaker(c tele.Context) error {
	b.sessions.SetState(senderID(c), StateAwaitingPoll)
	return tghelpers.SendMD(c, textPollPrompt)
}

func (b *Bot) onPoll(c tele.Context) error {
	if !b.IsAdmin(c) {
		return b.rejectAdmin(c)
	}
	ctx := tghelpers.BuildContext(c)
	p, err := ParsePoll(c.Text())
	if err != nil {
		b.sessions.SetState(senderID(c), StateAwaitingPoll)
		return tghelpers.SendMD(c, textPollFormat)
	}
	poll := &tele.Poll{Type: tele.PollRegular, Question: p.Question, Anonymous: true}
	for _, opt := range p.Options {
		poll.Options = append(poll.Options, tele.PollOption{Text: opt})
	}
	if b.opts.ChannelID == 0 {
		return c.Send(poll)
	}
	if err := b.send(ctx, b.opts.ChannelID, poll); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.SVCAccess, slog.LevelInfo, "poll.published",
		slog.String("status", "ok"),
		slog.Int64("channel_id", b.opts.ChannelID),
		slog.Int("options", len(p.Options)),
	)
	return tghelpers.SendText(c, textPollPublished)
}

func (b *Bot) handleManageChannels(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := b.store.Stats(ctx)
	if err != nil {
		return err
	}
	if b.opts.ChannelID == 0 {
		return tghelpers.EditOrSendText(c, fmt.Sprintf(textNoChannel, st.Approved, st.Pending), b.panelMarkup())
	}
	return tghelpers.EditOrSendText(c, fmt.Sprintf(textChannel, b.opts.ChannelID, st.Approved, st.Pending), b.panelMarkup())
}
