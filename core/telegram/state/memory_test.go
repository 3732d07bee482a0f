package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/accessbot/core/telegram/state"
	"github.com/m3rciful/accessbot/core/telegram/teletest"
)

const awaitingName state.State = "awaiting_name"

func TestStateTransitions(t *testing.T) {
	mgr := state.NewMemoryManager()

	assert.Equal(t, state.StateIdle, mgr.GetState(1))
	assert.False(t, mgr.InProgress(1))

	mgr.SetState(1, awaitingName)
	assert.Equal(t, awaitingName, mgr.GetState(1))
	assert.True(t, mgr.HasState(1))
	assert.False(t, mgr.InProgress(2), "states are per user")

	mgr.ClearState(1)
	assert.Equal(t, state.StateIdle, mgr.GetState(1))
}

func TestTempSurvivesClearState(t *testing.T) {
	mgr := state.NewMemoryManager()

	mgr.SetTemp(1, "admin", true)
	mgr.SetState(1, awaitingName)
	mgr.ClearState(1)
	assert.True(t, mgr.GetTempBool(1, "admin"))

	mgr.SetTemp(1, "other", "x")
	assert.False(t, mgr.GetTempBool(1, "other"))

	mgr.ClearTemp(1, "admin")
	assert.False(t, mgr.GetTempBool(1, "admin"))

	mgr.SetTemp(1, "admin", true)
	mgr.Clear(1)
	_, ok := mgr.GetTemp(1, "admin")
	assert.False(t, ok)
}

func TestManagerHandlerClearsBeforeDispatch(t *testing.T) {
	mgr := state.NewMemoryManager()
	var seen state.State
	calls := 0
	mgr.Handle(awaitingName, func(c tele.Context) error {
		calls++
		seen = mgr.GetState(c.Sender().ID)
		return nil
	})

	mgr.SetState(5, awaitingName)
	require.NoError(t, mgr.ManagerHandler(teletest.NewText(5, "bob")))
	assert.Equal(t, 1, calls)
	assert.Equal(t, state.StateIdle, seen)
	assert.False(t, mgr.InProgress(5))

	require.NoError(t, mgr.ManagerHandler(teletest.NewText(5, "again")))
	assert.Equal(t, 1, calls, "idle users are not dispatched")
}

func TestManagerHandlerRearm(t *testing.T) {
	mgr := state.NewMemoryManager()
	mgr.Handle(awaitingName, func(c tele.Context) error {
		if c.Text() == "" {
			mgr.SetState(c.Sender().ID, awaitingName)
		}
		return nil
	})

	mgr.SetState(5, awaitingName)
	require.NoError(t, mgr.ManagerHandler(teletest.NewText(5, "")))
	assert.True(t, mgr.InProgress(5))
}

func TestManagerHandlerUnboundState(t *testing.T) {
	mgr := state.NewMemoryManager()
	mgr.SetState(5, "unknown")
	require.NoError(t, mgr.ManagerHandler(teletest.NewText(5, "x")))
	assert.False(t, mgr.InProgress(5))
}

func TestDispatchTablesAreIndependent(t *testing.T) {
	a := state.NewMemoryManager()
	b := state.NewMemoryManager()
	hit := false
	a.Handle(awaitingName, func(tele.Context) error {
		hit = true
		return nil
	})

	b.SetState(5, awaitingName)
	require.NoError(t, b.ManagerHandler(teletest.NewText(5, "x")))
	assert.False(t, hit)
}

func TestWithSessionRecordsState(t *testing.T) {
	mgr := state.NewMemoryManager()
	mgr.SetState(5, awaitingName)

	c := teletest.NewText(5, "x")
	var got state.State
	h := state.WithSession(mgr)(func(c tele.Context) error {
		got = state.FromContext(c)
		return nil
	})
	require.NoError(t, h(c))
	assert.Equal(t, awaitingName, got)
}
