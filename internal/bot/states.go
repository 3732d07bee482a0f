package bot

import "github.com/m3rciful/accessbot/core/telegram/state"

// Conversation steps waiting for a free-text reply.
const (
	StateAwaitingAdminPassword state.State = "awaiting_admin_password"
	StateAwaitingRegistration  state.State = "awaiting_registration"
	StateAwaitingLogin         state.State = "awaiting_login"
	StateAwaitingPost          state.State = "awaiting_post"
	StateAwaitingPoll          state.State = "awaiting_poll"
)

// tempAdmin marks a session that passed /admin_login. It survives state
// changes and is removed by admin_logout.
const tempAdmin = "admin_authorized"

// Callback identifiers carried by the inline buttons.
const (
	cbApproveUsers   = "approve_users"
	cbApprovePrefix  = "approve_"
	cbApprovePage    = "approve_page_"
	cbPollMaker      = "poll_maker"
	cbPostMaker      = "post_maker"
	cbManageChannels = "manage_channels"
	cbAdminLogout    = "admin_logout"
)
