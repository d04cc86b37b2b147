package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"habitbot/internal/dateparse"
	"habitbot/internal/extract"
	"habitbot/internal/recurrence"
	"habitbot/internal/reminder"
	"habitbot/internal/storage"
	"habitbot/pkg/tgui"
)

const (
	scopeHabit = "habit"
	scopeMenu  = "menu"
)

func habitActions(id int64) *tgui.Inline {
	return tgui.NewInline().
		Row(
			tgui.Btn("✅ Выполнено", tgui.DataID(scopeHabit, "done", id)),
			tgui.Btn("⏭ Пропустить", tgui.DataID(scopeHabit, "skip", id)),
		).
		Row(
			tgui.Btn("📊 Статистика", tgui.DataID(scopeHabit, "stats", id)),
			tgui.Btn("🗑 Удалить", tgui.DataID(scopeHabit, "delete", id)),
		)
}

func confirmDelete(id int64) *tgui.Inline {
	return tgui.NewInline().Row(
		tgui.Btn("✅ Да", tgui.DataID(scopeHabit, "confirm_delete", id)),
		tgui.Btn("❌ Нет", tgui.DataID(scopeHabit, "cancel", id)),
	)
}

func mainMenu() *tgui.Inline {
	return tgui.Grid2([]tgui.Button{
		tgui.Btn("📊 Мои привычки", tgui.Data(scopeMenu, "habits", "")),
		tgui.Btn("➕ Добавить привычку", tgui.Data(scopeMenu, "add", "")),
		tgui.Btn("📈 Статистика", tgui.Data(scopeMenu, "stats", "")),
		tgui.Btn("📅 Неделя", tgui.Data(scopeMenu, "week", "")),
		tgui.Btn("🔔 Напоминания", tgui.Data(scopeMenu, "reminders", "")),
	})
}

func durationText(h storage.Habit) string {
	if h.DurationValue <= 0 {
		return ""
	}
	u := extract.Minutes
	if h.DurationUnit == extract.Hours.String() {
		u = extract.Hours
	}
	return extract.Duration{Value: h.DurationValue, Unit: u}.String()
}

func remindText(h storage.Habit) string {
	if !h.HasRemindTime {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", h.RemindHour, h.RemindMinute)
}

// created renders the reply to a new habit, listing what was recognised.
func created(h storage.Habit, in extract.Intent, next *reminder.Handle) tgui.Message {
	b := tgui.New().Title("✅", "Привычка добавлена!").Blank().
		KV("📝 Название", h.Name).
		KV("🔄 Частота", h.Rule.Describe())
	if in.Time != nil {
		b.KV("⏰ Время", in.Time.String())
	}
	if in.Duration != nil {
		b.KV("⏱ Продолжительность", in.Duration.String())
	}
	if len(in.Dates) > 0 {
		ds := make([]string, 0, len(in.Dates))
		for _, d := range in.Dates {
			ds = append(ds, dateparse.Format(d))
		}
		b.KV("📅 Даты", strings.Join(ds, ", "))
	}
	if next != nil {
		b.KV("🔔 Напоминание", dateparse.FormatDateTime(next.At))
	} else if in.Reminder {
		b.Line("🔔 Напоминания включены")
	}
	if len(in.Errors) > 0 {
		b.Blank().KV("⚠️ Ошибки", strings.Join(in.Errors, ", "))
	}
	return b.Inline(habitActions(h.ID)).Build()
}

// habitView is a habit with its derived schedule state.
type habitView struct {
	storage.Habit
	completions []time.Time
	due         bool
	next        time.Time
	current     int
}

func newHabitView(h storage.Habit, completions []time.Time, now time.Time) habitView {
	return habitView{
		Habit:       h,
		completions: completions,
		due:         recurrence.IsDue(h.Rule, completions, now),
		next:        recurrence.NextDue(h.Rule, completions, now),
		current:     recurrence.CurrentStreak(completions, now),
	}
}

func (v habitView) summary(now time.Time) string {
	state := "⏳ следующий раз " + dateparse.RelativeTo(v.next, now)
	if v.due {
		state = "🔴 пора выполнить"
	}
	parts := []string{
		"#" + strconv.FormatInt(v.ID, 10) + " " + v.Name,
		v.Rule.Describe(),
		state,
	}
	if v.current > 0 {
		parts = append(parts, fmt.Sprintf("🔥 %d", v.current))
	}
	return strings.Join(parts, " · ")
}

func habitCard(v habitView, now time.Time) tgui.Message {
	b := tgui.New().Title("📝", v.Name).
		KV("🔄 Частота", v.Rule.Describe())
	if t := remindText(v.Habit); t != "" {
		b.KV("⏰ Время", t)
	}
	if d := durationText(v.Habit); d != "" {
		b.KV("⏱ Продолжительность", d)
	}
	if v.due {
		b.KV("📌 Статус", "пора выполнить")
	} else {
		b.KV("📌 Следующий раз", dateparse.Format(v.next)+" ("+dateparse.RelativeTo(v.next, now)+")")
	}
	b.KV("🔥 Серия", strconv.Itoa(v.current))
	return b.Inline(habitActions(v.ID)).Build()
}

func statsCard(h storage.Habit, st recurrence.Stats) tgui.Message {
	return tgui.New().Title("📊", "Статистика: "+h.Name).
		KV("🔄 Частота", h.Rule.Describe()).
		KV("📆 Период", fmt.Sprintf("%d дн.", st.PeriodDays)).
		KV("✅ Выполнено", fmt.Sprintf("%d из %d", st.Completed, st.Expected)).
		KV("📈 Процент", strconv.FormatFloat(st.Rate, 'f', 1, 64)+"%").
		KV("🔥 Текущая серия", strconv.Itoa(st.CurrentStreak)).
		KV("🏆 Лучшая серия", strconv.Itoa(st.LongestStreak)).
		Inline(habitActions(h.ID)).
		Build()
}

var weekdayNames = [...]string{"Вс", "Пн", "Вт", "Ср", "Чт", "Пт", "Сб"}

func dayLabel(d time.Time) string {
	return weekdayNames[d.Weekday()] + " " + d.Format("02.01")
}
