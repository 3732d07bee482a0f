package state

import tele "gopkg.in/telebot.v4"

// ContextKey is the tele.Context key holding the sender's state at receipt.
const ContextKey = "fsm_state"

// WithSession records the sender's current state on the update context so
// routers and summaries can report which step a message arrived in.
func WithSession(mgr Manager) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if mgr != nil {
				if sender := c.Sender(); sender != nil {
					c.Set(ContextKey, string(mgr.GetState(sender.ID)))
				}
			}
			return next(c)
		}
	}
}

// FromContext returns the state recorded by WithSession.
func FromContext(c tele.Context) State {
	if v, ok := c.Get(ContextKey).(string); ok && v != "" {
		return State(v)
	}
	return StateIdle
}
