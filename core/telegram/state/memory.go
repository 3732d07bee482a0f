package state

import (
	"log/slog"
	"sync"

	"github.com/m3rciful/accessbot/core/logger"
	tghelpers "github.com/m3rciful/accessbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// memoryManager keeps everything in process memory; a restart forgets all
// pending steps and temp values.
type memoryManager struct {
	mu       sync.RWMutex
	steps    map[int64]State
	temp     map[int64]map[string]any
	handlers map[State]tele.HandlerFunc
}

// NewMemoryManager returns an empty in-memory Manager.
func NewMemoryManager() Manager {
	return &memoryManager{
		steps:    make(map[int64]State),
		temp:     make(map[int64]map[string]any),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// Handle ignores nil handlers and the idle state.
func (m *memoryManager) Handle(st State, h tele.HandlerFunc) {
	if h == nil || st == "" || st == StateIdle {
		return
	}
	m.mu.Lock()
	m.handlers[st] = h
	m.mu.Unlock()
}

func (m *memoryManager) SetTemp(userID int64, key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vals := m.temp[userID]
	if vals == nil {
		vals = make(map[string]any)
		m.temp[userID] = vals
	}
	vals[key] = value
}

func (m *memoryManager) GetTemp(userID int64, key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.temp[userID][key]
	return v, ok
}

// GetTempBool is false for missing keys and non-bool values.
func (m *memoryManager) GetTempBool(userID int64, key string) bool {
	v, _ := m.GetTemp(userID, key)
	b, _ := v.(bool)
	return b
}

func (m *memoryManager) ClearTemp(userID int64, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.temp[userID], key)
	if len(m.temp[userID]) == 0 {
		delete(m.temp, userID)
	}
}

// Clear forgets the user entirely.
func (m *memoryManager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.steps, userID)
	delete(m.temp, userID)
}

// SetState with "" or StateIdle is ClearState.
func (m *memoryManager) SetState(userID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == "" || st == StateIdle {
		delete(m.steps, userID)
		return
	}
	m.steps[userID] = st
}

func (m *memoryManager) GetState(userID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.steps[userID]; ok {
		return st
	}
	return StateIdle
}

func (m *memoryManager) ClearState(userID int64) {
	m.SetState(userID, StateIdle)
}

func (m *memoryManager) HasState(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

func (m *memoryManager) InProgress(userID int64) bool {
	return m.HasState(userID)
}

// take returns the user's pending step and its handler, leaving them idle.
func (m *memoryManager) take(userID int64) (State, tele.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.steps[userID]
	if !ok {
		return StateIdle, nil
	}
	delete(m.steps, userID)
	return st, m.handlers[st]
}

// ManagerHandler dispatches c to the step its sender was in. The step is
// cleared first; a handler that needs another message sets it again.
func (m *memoryManager) ManagerHandler(c tele.Context) error {
	sender := c.Sender()
	if sender == nil {
		return nil
	}
	st, h := m.take(sender.ID)
	if st == StateIdle {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	if h == nil {
		logger.Debug(ctx, "tg", "fsm.unbound",
			slog.String("status", "skip"),
			slog.String("state", string(st)),
		)
		return nil
	}
	logger.Debug(ctx, "tg", "fsm.dispatch",
		slog.String("status", "ok"),
		slog.String("state", string(st)),
	)
	return h(c)
}
