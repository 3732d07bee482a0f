package bot

// Replies sent by the handlers. Texts sent with Markdown keep their
// backticks; everything else goes out without a parse mode.
const (
	textWelcome = "👋 Welcome to the bot!\n\n" +
		"Please choose an option:\n" +
		"1. /admin_login - Admin Login\n" +
		"2. /user_login - User Login\n" +
		"3. /register - User Registration"

	textAdminPasswordPrompt = "Please enter your admin password:"
	textAdminGranted        = "✅ Admin access granted. Use /admin_panel to manage users and access tools."
	textAdminDenied         = "❌ Invalid password. Please try again."
	textAdminRequired       = "Admin login required. Use /admin_login."

	textRegisterPrompt    = "Please send your email and password in this format:\n\n`email@example.com password123`"
	textCredentialsFormat = "❌ Invalid format. Please send your email and password in this format:\n\n" +
		"`email@example.com password123`"
	textPasswordTooLong = "❌ Password is too long. Use at most 72 bytes."
	textRegisteredPay   = "✅ Registration successful. Please proceed to pay the subscription fee to the following Bkash number: %s\n\n" +
		"After payment, send /request_permission to ask for admin approval."
	textRegistered = "✅ Registration successful. Please proceed to pay the subscription fee.\n\n" +
		"After payment, send /request_permission to ask for admin approval."

	textPermissionSent    = "⏳ Your request for admin approval has been sent. Please wait for approval."
	textAlreadyApproved   = "✅ You are already approved."
	textPermissionRequest = "User %d has requested permission to access the channel."
	textPermissionEmail   = "\nEmail: %s"

	textLoginPrompt  = "Please enter your email and password in this format:\n\n`email@example.com password123`"
	textLoginSuccess = "✅ Login successful. You are approved to access the channels."
	textLoginPending = "⏳ Your account is pending admin approval."
	textLoginInvalid = "❌ Invalid login credentials."

	textCancelled       = "Cancelled."
	textNothingToCancel = "Nothing to cancel."

	textAdminPanel  = "⚙️ Admin Panel:\n\nChoose an option:"
	textLoggedOut   = "🔒 Admin logged out."
	textNoPending   = "No users are pending approval."
	textPendingList = "Pending users for approval:"
	textPendingPage = "Pending users for approval (page %d of %d):"
	textApproved    = "User %d approved."
	textBadApprove  = "Unknown user id."

	textApprovedNotice = "✅ Your access request was approved."
	textInviteLink     = "\n\nJoin the channel: %s"

	textPostPrompt    = "Please send the post content:"
	textPostCreated   = "📝 Post Created: %s"
	textPostPublished = "📝 Post published to the channel."
	textPollPrompt    = "Please send the poll question and options in this format:\n\n" +
		"`Question | Option1, Option2, Option3`"
	textPollFormat    = "❌ Invalid format. Use `Question | Option1, Option2, Option3`."
	textPollPublished = "📊 Poll published to the channel."

	textChannel   = "📢 Managed channel: %d\n\nApproved users: %d\nPending users: %d"
	textNoChannel = "📢 No channel is configured.\n\nApproved users: %d\nPending users: %d"

	textUnknown     = "I did not understand that. Use /start to see the available options."
	textTextOnly    = "Please send text messages only."
	textUnsupported = "Unsupported action"
)
