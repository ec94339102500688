// Package keyboard provides small builders for inline keyboards.
package keyboard

import tele "gopkg.in/telebot.v4"

// ChunkButtons splits a flat list of tele.Btn into rows with up to n buttons per row.
func ChunkButtons(buttons []tele.Btn, n int) []tele.Row {
	if n <= 1 {
		out := make([]tele.Row, 0, len(buttons))
		for _, b := range buttons {
			out = append(out, tele.Row{b})
		}
		return out
	}
	var rows []tele.Row
	for i := 0; i < len(buttons); i += n {
		end := i + n
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, tele.Row(buttons[i:end]))
	}
	return rows
}

// SingleButtonMarkup creates an inline keyboard with one button.
func SingleButtonMarkup(text, unique string, data ...string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	markup.Inline(markup.Row(markup.Data(text, unique, data...)))
	return markup
}
