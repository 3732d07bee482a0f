// Package state keeps per-user conversation state for Telegram bots and
// dispatches free text to the handler registered for the pending step.
package state
