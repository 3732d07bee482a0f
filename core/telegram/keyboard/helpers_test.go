package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInlineButtonsOnePerRow(t *testing.T) {
	m := InlineButtons([]InlineBtn{
		{Text: "Approve a@b.com", Data: "approve_42"},
		{Text: "Logout", Data: "admin_logout"},
	})
	assert.Equal(t, [][]string{{"approve_42"}, {"admin_logout"}}, CallbackData(m))
	assert.Equal(t, "Approve a@b.com", m.InlineKeyboard[0][0].Text)
	assert.Empty(t, m.InlineKeyboard[0][0].Unique)
}

func TestInlineRows(t *testing.T) {
	m := InlineRows(
		[]InlineBtn{{Text: "a", Data: "a"}, {Text: "b", Data: "b"}},
		[]InlineBtn{{Text: "c", Data: "c"}},
	)
	assert.Equal(t, [][]string{{"a", "b"}, {"c"}}, CallbackData(m))
	assert.Nil(t, CallbackData(nil))
}

func TestPaginate(t *testing.T) {
	p := Paginate(25, 10, 1)
	assert.Equal(t, Page{Index: 1, Count: 3, Start: 10, End: 20}, p)
	assert.Equal(t, []InlineBtn{
		{Text: "« Prev", Data: "page_0"},
		{Text: "Next »", Data: "page_2"},
	}, p.Nav("page_"))

	last := Paginate(25, 10, 9)
	assert.Equal(t, Page{Index: 2, Count: 3, Start: 20, End: 25}, last)
	assert.Len(t, last.Nav("page_"), 1)

	assert.Equal(t, Page{Count: 1}, Paginate(0, 10, -4))
	assert.Empty(t, Paginate(3, 10, 0).Nav("page_"))
}
