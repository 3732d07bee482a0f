// Package keyboard builds inline keyboards whose buttons carry raw
// callback data.
package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn is a button label and the callback data it sends.
type InlineBtn struct {
	Text string
	Data string
}

// InlineButtons puts each button on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, len(buttons))
	for i, b := range buttons {
		rows[i] = []InlineBtn{b}
	}
	return InlineRows(rows...)
}

// InlineRows lays buttons out row by row.
func InlineRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	built := make([]tele.Row, len(rows))
	for i, row := range rows {
		btns := make([]tele.Btn, len(row))
		for j, b := range row {
			btns[j] = tele.Btn{Text: b.Text, Data: b.Data}
		}
		built[i] = markup.Row(btns...)
	}
	markup.Inline(built...)
	return markup
}

// CallbackData lists the callback data of markup row by row.
func CallbackData(markup *tele.ReplyMarkup) [][]string {
	if markup == nil {
		return nil
	}
	out := make([][]string, len(markup.InlineKeyboard))
	for i, row := range markup.InlineKeyboard {
		out[i] = make([]string, len(row))
		for j, b := range row {
			out[i][j] = b.Data
		}
	}
	return out
}
