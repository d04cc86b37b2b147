package bot

import (
	"context"
	"fmt"

	"habitbot/internal/dateparse"
	"habitbot/internal/eventbus"
	"habitbot/internal/notifier"
	"habitbot/internal/storage"
	"habitbot/internal/transport/telegram/router"
	logx "habitbot/pkg/logx"
	"habitbot/pkg/tgui"
)

// Callbacks lists the inline-button routes of habit cards, reminder
// messages and the main menu.
func (b *Bot) Callbacks() []router.CallbackRoute {
	return []router.CallbackRoute{
		{Scope: scopeHabit, Action: "open", Handle: b.cbOpen},
		{Scope: scopeHabit, Action: "done", Handle: b.markHandler(storage.StatusDone)},
		{Scope: scopeHabit, Action: "skip", Handle: b.markHandler(storage.StatusSkip)},
		{Scope: scopeHabit, Action: "stats", Handle: b.cbStats},
		{Scope: scopeHabit, Action: "delete", Handle: b.cbDelete},
		{Scope: scopeHabit, Action: "confirm_delete", Handle: b.cbConfirmDelete},
		{Scope: scopeHabit, Action: "cancel", Handle: b.cbCancel},

		{Scope: notifier.Scope, Action: notifier.ActionDone, Handle: b.markHandler(storage.StatusDone)},
		{Scope: notifier.Scope, Action: notifier.ActionSkip, Handle: b.markHandler(storage.StatusSkip)},
		{Scope: notifier.Scope, Action: notifier.ActionLater, Handle: b.cbLater},

		{Scope: scopeMenu, Action: "habits", Handle: b.menu(b.cmdHabits)},
		{Scope: scopeMenu, Action: "add", Handle: b.menu(b.cmdAdd)},
		{Scope: scopeMenu, Action: "stats", Handle: b.menu(b.cmdStats)},
		{Scope: scopeMenu, Action: "week", Handle: b.menu(b.cmdWeek)},
		{Scope: scopeMenu, Action: "reminders", Handle: b.menu(b.cmdReminders)},
	}
}

// menu runs a command handler from a menu button, with no arguments.
func (b *Bot) menu(h router.HandlerFunc) router.CallbackHandlerFunc {
	return func(ctx context.Context, req *router.Request, _ string) error {
		return h(ctx, req)
	}
}

func edit(ctx context.Context, req *router.Request, msg tgui.Message) error {
	return msg.Edit(ctx, req.Adapter, req.Message)
}

func editText(ctx context.Context, req *router.Request, text string) error {
	return edit(ctx, req, tgui.New().Line(text).Build())
}

// lookup loads the callback's habit, answering in place when it is gone.
func (b *Bot) lookup(ctx context.Context, req *router.Request, payload string) (storage.Habit, bool, error) {
	h, err := b.habitFor(ctx, req, payload)
	if err != nil {
		if err := b.replyLookupErr(ctx, req, err); err != nil {
			return storage.Habit{}, false, err
		}
		return storage.Habit{}, false, nil
	}
	return h, true, nil
}

func (b *Bot) cbOpen(ctx context.Context, req *router.Request, payload string) error {
	h, ok, err := b.lookup(ctx, req, payload)
	if !ok {
		return err
	}
	cs, err := b.store.Completions(ctx, h.ID)
	if err != nil {
		return err
	}
	now := b.now()
	return req.Reply(ctx, habitCard(newHabitView(h, cs, now), now))
}

func (b *Bot) markHandler(status storage.Status) router.CallbackHandlerFunc {
	return func(ctx context.Context, req *router.Request, payload string) error {
		h, ok, err := b.lookup(ctx, req, payload)
		if !ok {
			return err
		}
		return b.mark(ctx, req, h, status)
	}
}

// mark records a done or skip mark and replans the reminder from it. A
// second done mark on the same day is refused so streaks stay meaningful.
func (b *Bot) mark(ctx context.Context, req *router.Request, h storage.Habit, status storage.Status) error {
	unlock := b.marks.Lock(h.ID)
	defer unlock()

	now := b.now()
	if status == storage.StatusDone {
		cs, err := b.store.Completions(ctx, h.ID)
		if err != nil {
			return err
		}
		if n := len(cs); n > 0 && dateparse.DayNumber(cs[n-1]) == dateparse.DayNumber(now) {
			return editText(ctx, req, fmt.Sprintf("✅ Привычка «%s» уже отмечена сегодня.", h.Name))
		}
	}

	if _, err := b.store.AddCompletion(ctx, storage.Completion{HabitID: h.ID, At: now, Status: status}); err != nil {
		return fmt.Errorf("add completion: %w", err)
	}
	if status == storage.StatusDone {
		b.publish(eventbus.HabitCompleted, h)
	}
	if _, _, err := b.planner.PlanHabit(ctx, h); err != nil {
		req.Logger.Warn("replan reminder failed", logx.HabitID(h.ID), logx.Err(err))
	}

	if status == storage.StatusSkip {
		return editText(ctx, req, fmt.Sprintf("⏭ Привычка «%s» пропущена. Не расстраивайтесь! Завтра новый день! 💪", h.Name))
	}
	st, err := b.habitStats(ctx, h)
	if err != nil {
		return err
	}
	return edit(ctx, req, tgui.New().
		Line(fmt.Sprintf("✅ Отлично! Привычка «%s» выполнена!", h.Name)).
		Line(fmt.Sprintf("🔥 Серия: %d", st.CurrentStreak)).
		Line("Продолжайте в том же духе! 🎉").
		Build())
}

func (b *Bot) cbStats(ctx context.Context, req *router.Request, payload string) error {
	h, ok, err := b.lookup(ctx, req, payload)
	if !ok {
		return err
	}
	st, err := b.habitStats(ctx, h)
	if err != nil {
		return err
	}
	return edit(ctx, req, statsCard(h, st))
}

func (b *Bot) cbDelete(ctx context.Context, req *router.Request, payload string) error {
	h, ok, err := b.lookup(ctx, req, payload)
	if !ok {
		return err
	}
	return edit(ctx, req, tgui.New().Title("🗑", "Удаление привычки").
		Line(fmt.Sprintf("Вы уверены, что хотите удалить привычку «%s»?", h.Name)).
		Inline(confirmDelete(h.ID)).
		Build())
}

// cbConfirmDelete cancels the habit's reminder before removing the habit so
// no timer outlives it.
func (b *Bot) cbConfirmDelete(ctx context.Context, req *router.Request, payload string) error {
	h, ok, err := b.lookup(ctx, req, payload)
	if !ok {
		return err
	}
	b.planner.Forget(h)
	if err := b.store.DeleteHabit(ctx, h.UserID, h.ID); err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	b.publish(eventbus.HabitDeleted, h)
	req.Logger.Info("habit deleted", logx.HabitID(h.ID))
	return editText(ctx, req, fmt.Sprintf("🗑 Привычка «%s» удалена.", h.Name))
}

func (b *Bot) cbCancel(ctx context.Context, req *router.Request, _ string) error {
	return editText(ctx, req, "❌ Действие отменено.")
}

func (b *Bot) cbLater(ctx context.Context, req *router.Request, payload string) error {
	h, ok, err := b.lookup(ctx, req, payload)
	if !ok {
		return err
	}
	rh, err := b.planner.Snooze(ctx, h, 0)
	if err != nil {
		return fmt.Errorf("snooze: %w", err)
	}
	return editText(ctx, req, fmt.Sprintf("⏰ Напоминание «%s» отложено до %s.", h.Name, rh.At.Format("15:04")))
}
