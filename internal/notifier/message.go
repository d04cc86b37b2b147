package notifier

import (
	"habitbot/internal/reminder"
	"habitbot/pkg/tgui"
)

// Callback scope and actions of the reminder keyboard.
const (
	Scope       = "reminder"
	ActionDone  = "done"
	ActionLater = "later"
	ActionSkip  = "skip"
)

// ReminderMessage renders a fired reminder with its choice buttons. The
// callback payload is the habit id.
func ReminderMessage(h reminder.Handle) tgui.Message {
	kb := tgui.NewInline().
		Row(
			tgui.Btn("✅ Выполнено", tgui.DataID(Scope, ActionDone, h.HabitID)),
			tgui.Btn("⏰ Позже", tgui.DataID(Scope, ActionLater, h.HabitID)),
		).
		Row(tgui.Btn("⏭ Пропустить", tgui.DataID(Scope, ActionSkip, h.HabitID)))

	return tgui.New().
		Title("⏰", "Напоминание").
		HTML(tgui.JoinH(" ", tgui.Esc("Пора:"), tgui.B(h.HabitName))).
		Inline(kb).
		Build()
}
