package state

import tele "gopkg.in/telebot.v4"

// State names a conversation step waiting for the user's next message.
type State string

// StateIdle means no step is pending.
const StateIdle State = "idle"

// Manager tracks the pending step and scratch values of each user and routes
// free text to the handler bound to that step.
type Manager interface {
	// Handle binds the handler run for the next text while a user is in st.
	Handle(st State, h tele.HandlerFunc)

	// Temp values outlive ClearState and are dropped by Clear.
	SetTemp(userID int64, key string, value any)
	GetTemp(userID int64, key string) (any, bool)
	GetTempBool(userID int64, key string) bool
	ClearTemp(userID int64, key string)
	Clear(userID int64)

	SetState(userID int64, st State)
	GetState(userID int64) State
	HasState(userID int64) bool
	ClearState(userID int64)
	InProgress(userID int64) bool

	// ManagerHandler resets the sender to idle, then runs the handler of the
	// step they were in.
	ManagerHandler(c tele.Context) error
}
