package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/accessbot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

type menuRecorder struct {
	got []tele.Command
}

func (m *menuRecorder) SetCommands(opts ...interface{}) error {
	for _, o := range opts {
		if list, ok := o.([]tele.Command); ok {
			m.got = append(m.got, list...)
		}
	}
	return nil
}

func TestRegistryCommands(t *testing.T) {
	reg := NewRegistry()
	reg.RegisterCommand("/start", commands.Command{Handler: noop, Description: "Menu"})
	reg.RegisterCommand("/admin_panel", commands.Command{Handler: noop, Description: "Panel", AdminOnly: true})
	reg.RegisterCommand("/cancel", commands.Command{Handler: noop, Description: "Cancel", Aliases: []string{"stop"}})
	reg.RegisterCommand("nope", commands.Command{Handler: noop, Description: "x"})
	reg.RegisterCommand("/empty", commands.Command{Handler: noop})

	assert.Len(t, reg.Commands(), 3)

	key, _, ok := reg.LookupCommand("/start@accessbot")
	require.True(t, ok)
	assert.Equal(t, "/start", key)

	key, _, ok = reg.LookupCommand("stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", key)

	key, _, ok = reg.LookupCommand("/stop")
	require.True(t, ok)
	assert.Equal(t, "/cancel", key)

	_, _, ok = reg.LookupCommand("cancel")
	assert.False(t, ok, "bare command names are not aliases")

	_, _, ok = reg.LookupCommand("start me")
	assert.False(t, ok)

	_, _, ok = reg.LookupCommand("a@b.com secret")
	assert.False(t, ok)

	rec := &menuRecorder{}
	InitBotCommands(rec, reg)
	assert.Equal(t, []tele.Command{
		{Text: "cancel", Description: "Cancel"},
		{Text: "start", Description: "Menu"},
	}, rec.got)
}

func TestRegistryCallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("approve_users", noop))
	require.NoError(t, reg.RegisterCallbackPrefix("approve_", noop, true))
	require.NoError(t, reg.RegisterCallbackPrefix("approve_vip_", noop, false))
	assert.Error(t, reg.RegisterCallback("approve_users", noop))
	assert.Error(t, reg.RegisterCallbackPrefix("approve_", noop, true))
	assert.Error(t, reg.RegisterCallback("", noop))

	cb, ok := reg.GetCallback("approve_users")
	require.True(t, ok)
	assert.False(t, cb.AdminOnly)

	cb, ok = reg.GetCallback("approve_12")
	require.True(t, ok)
	assert.True(t, cb.AdminOnly)

	cb, ok = reg.GetCallback("approve_vip_3")
	require.True(t, ok)
	assert.False(t, cb.AdminOnly, "longest prefix wins")

	_, ok = reg.GetCallback("other")
	assert.False(t, ok)

	assert.Equal(t, []string{"approve_*", "approve_users", "approve_vip_*"}, reg.ListCallbacks())
}
