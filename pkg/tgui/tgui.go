package tgui

import (
	tele "gopkg.in/telebot.v4"
)

// Button is one inline keyboard button.
type Button = tele.Btn

// Inline is a small builder for inline keyboards (ReplyMarkup).
type Inline struct {
	rm   *tele.ReplyMarkup
	rows []tele.Row
}

func NewInline() *Inline {
	return &Inline{rm: &tele.ReplyMarkup{}}
}

// Row appends a row of buttons. Empty rows are skipped.
func (i *Inline) Row(btn ...Button) *Inline {
	if len(btn) == 0 {
		return i
	}
	i.rows = append(i.rows, i.rm.Row(btn...))
	i.rm.Inline(i.rows...)
	return i
}

func (i *Inline) Rows() int { return len(i.rows) }

func (i *Inline) Markup() *tele.ReplyMarkup { return i.rm }

// Btn creates a callback button with raw callback_data. Use Data to build it.
func Btn(text, data string) Button {
	return Button{Text: text, Data: data}
}

// Grid2 splits buttons into 2 columns.
func Grid2(buttons []Button) *Inline {
	kb := NewInline()
	for i := 0; i < len(buttons); i += 2 {
		kb.Row(buttons[i:min(i+2, len(buttons))]...)
	}
	return kb
}
