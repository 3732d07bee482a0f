// Package teletest provides an in-memory tele.Context for handler tests.
package teletest

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

// Outgoing records one Send, Edit or EditOrSend call.
type Outgoing struct {
	What any
	Opts []any
}

// Text returns What as a string, or "" for non-text payloads.
func (o Outgoing) Text() string {
	s, _ := o.What.(string)
	return s
}

// Context implements the parts of tele.Context used by the bot handlers.
// Calling any other method panics through the nil embedded interface.
type Context struct {
	tele.Context

	UserID   int64
	ChatID   int64
	UpdateID int
	TextVal  string
	// CallbackData turns the update into a callback query when non-empty.
	CallbackData string

	mu        sync.Mutex
	store     map[string]any
	Sent      []Outgoing
	Edited    []Outgoing
	Responses []*tele.CallbackResponse
	Deleted   int
}

// NewText builds a private-chat text message from userID.
func NewText(userID int64, text string) *Context {
	return &Context{UserID: userID, ChatID: userID, UpdateID: 1, TextVal: text}
}

// NewCallback builds a callback query with raw data from userID.
func NewCallback(userID int64, data string) *Context {
	return &Context{UserID: userID, ChatID: userID, UpdateID: 1, CallbackData: data}
}

func (c *Context) Sender() *tele.User {
	if c.UserID == 0 {
		return nil
	}
	return &tele.User{ID: c.UserID, Username: "tester"}
}

func (c *Context) Chat() *tele.Chat {
	if c.ChatID == 0 {
		return nil
	}
	return &tele.Chat{ID: c.ChatID, Type: tele.ChatPrivate}
}

func (c *Context) Recipient() tele.Recipient {
	return c.Chat()
}

func (c *Context) Message() *tele.Message {
	if c.CallbackData != "" {
		return &tele.Message{ID: 100, Chat: c.Chat()}
	}
	return &tele.Message{ID: 100, Text: c.TextVal, Chat: c.Chat(), Sender: c.Sender()}
}

func (c *Context) Callback() *tele.Callback {
	if c.CallbackData == "" {
		return nil
	}
	return &tele.Callback{ID: "cb-1", Sender: c.Sender(), Message: c.Message(), Data: c.CallbackData}
}

func (c *Context) Update() tele.Update {
	upd := tele.Update{ID: c.UpdateID}
	if cb := c.Callback(); cb != nil {
		upd.Callback = cb
	} else {
		upd.Message = c.Message()
	}
	return upd
}

func (c *Context) Text() string {
	if c.CallbackData != "" {
		return ""
	}
	return c.TextVal
}

func (c *Context) Data() string {
	return c.CallbackData
}

func (c *Context) Get(key string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store[key]
}

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = val
}

func (c *Context) Send(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Sent = append(c.Sent, Outgoing{What: what, Opts: opts})
	return nil
}

func (c *Context) Reply(what any, opts ...any) error {
	return c.Send(what, opts...)
}

func (c *Context) Edit(what any, opts ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edited = append(c.Edited, Outgoing{What: what, Opts: opts})
	return nil
}

func (c *Context) EditOrSend(what any, opts ...any) error {
	if c.CallbackData != "" {
		return c.Edit(what, opts...)
	}
	return c.Send(what, opts...)
}

func (c *Context) Respond(resp ...*tele.CallbackResponse) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(resp) == 0 {
		c.Responses = append(c.Responses, &tele.CallbackResponse{})
		return nil
	}
	c.Responses = append(c.Responses, resp[0])
	return nil
}

func (c *Context) Delete() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted++
	return nil
}

// LastText returns the text of the most recent Send, or "".
func (c *Context) LastText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Sent) == 0 {
		return ""
	}
	return c.Sent[len(c.Sent)-1].Text()
}

// LastEdit returns the most recent Edit, or a zero Outgoing.
func (c *Context) LastEdit() Outgoing {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Edited) == 0 {
		return Outgoing{}
	}
	return c.Edited[len(c.Edited)-1]
}
