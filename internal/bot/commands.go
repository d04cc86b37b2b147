package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"habitbot/internal/dateparse"
	"habitbot/internal/eventbus"
	"habitbot/internal/extract"
	"habitbot/internal/recurrence"
	"habitbot/internal/reminder"
	"habitbot/internal/storage"
	"habitbot/internal/transport/telegram/router"
	logx "habitbot/pkg/logx"
	"habitbot/pkg/tgui"
)

const addHint = "Напишите привычку, которую хотите отслеживать.\n\nНапример: «Читать 30 минут каждый день в 9:00» или «Зарядка утром, напомни»"

// Commands lists the slash commands. /help is added by the router.
func (b *Bot) Commands() []router.Command {
	return []router.Command{
		{Name: "start", Description: "начать работу с ботом", Handle: b.cmdStart},
		{Name: "menu", Description: "главное меню", Handle: b.cmdMenu},
		{Name: "add", Aliases: []string{"new"}, Description: "добавить привычку", Usage: "/add читать 30 минут каждый день в 9:00", Handle: b.cmdAdd},
		{Name: "habits", Aliases: []string{"list"}, Description: "мои привычки", Handle: b.cmdHabits},
		{Name: "date", Description: "распознать дату", Usage: "/date через 3 дня", Handle: b.cmdDate},
		{Name: "reminders", Description: "активные напоминания", Handle: b.cmdReminders},
		{Name: "stats", Description: "статистика привычек", Usage: "/stats [номер привычки]", Handle: b.cmdStats},
		{Name: "week", Description: "расписание на неделю", Handle: b.cmdWeek},
	}
}

func (b *Bot) cmdStart(ctx context.Context, req *router.Request) error {
	name := strings.TrimSpace(req.From.FirstName)
	if name == "" {
		name = "друг"
	}
	msg := tgui.New().
		Line("👋 Привет, "+name+"!").Blank().
		Line("Я бот для отслеживания привычек. С моей помощью ты сможешь:").
		Bullets("добавлять новые привычки обычным текстом", "отмечать выполнение и получать напоминания", "смотреть статистику и серии").
		Blank().
		Line("Используй /help для списка команд или /menu для меню.").
		Build()
	return req.Reply(ctx, msg)
}

func (b *Bot) cmdMenu(ctx context.Context, req *router.Request) error {
	return req.Reply(ctx, tgui.New().Title("🏠", "Главное меню").Line("Выберите действие:").Inline(mainMenu()).Build())
}

func (b *Bot) cmdAdd(ctx context.Context, req *router.Request) error {
	if req.Text == "" {
		return req.Reply(ctx, tgui.New().Title("➕", "Добавление новой привычки").Line(addHint).Build())
	}
	return b.addHabit(ctx, req, req.Text)
}

func (b *Bot) handleText(ctx context.Context, req *router.Request) error {
	return b.addHabit(ctx, req, req.Text)
}

// addHabit creates a habit from a free-form description and plans its
// first reminder.
func (b *Bot) addHabit(ctx context.Context, req *router.Request, text string) error {
	cfg := b.config()
	text = strings.TrimSpace(text)
	switch n := utf8.RuneCountInString(text); {
	case n < cfg.MinNameLen:
		return req.ReplyText(ctx, "❌ Название привычки слишком короткое. Попробуйте ещё раз.")
	case n > cfg.MaxNameLen:
		return req.ReplyText(ctx, fmt.Sprintf("❌ Название привычки слишком длинное. Максимум %d символов.", cfg.MaxNameLen))
	}

	in := b.extractor.Extract(text)
	h := habitFromIntent(req.From.ID, text, in)
	h.CreatedAt = b.now()
	h, err := b.store.CreateHabit(ctx, h)
	if err != nil {
		return fmt.Errorf("create habit: %w", err)
	}
	b.publish(eventbus.HabitCreated, h)
	req.Logger.Info("habit created", logx.HabitID(h.ID), logx.String("rule", h.Rule.String()))

	var next *reminder.Handle
	if rh, ok, err := b.planner.PlanHabit(ctx, h); err != nil {
		req.Logger.Warn("plan reminder failed", logx.HabitID(h.ID), logx.Err(err))
	} else if ok {
		next = &rh
	}
	return req.Reply(ctx, created(h, in, next))
}

// habitFromIntent builds the habit row. A description without a cadence is
// daily; naming a time of day turns reminders on.
func habitFromIntent(userID int64, text string, in extract.Intent) storage.Habit {
	h := storage.Habit{
		UserID:          userID,
		Name:            in.Name,
		Description:     text,
		Rule:            recurrence.Rule{Kind: recurrence.Daily, Interval: 1},
		ReminderEnabled: in.Reminder || in.Time != nil,
	}
	if in.Rule != nil {
		h.Rule = *in.Rule
	}
	if in.Time != nil {
		h.RemindHour, h.RemindMinute, h.HasRemindTime = in.Time.Hour, in.Time.Minute, true
	}
	if in.Duration != nil {
		h.DurationValue, h.DurationUnit = in.Duration.Value, in.Duration.Unit.String()
	}
	return h
}

// views loads the user's habits with their schedule state.
func (b *Bot) views(ctx context.Context, userID int64) ([]habitView, error) {
	habits, err := b.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	now := b.now()
	out := make([]habitView, 0, len(habits))
	for _, h := range habits {
		cs, err := b.store.Completions(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("completions of habit %d: %w", h.ID, err)
		}
		out = append(out, newHabitView(h, cs, now))
	}
	return out, nil
}

func (b *Bot) cmdHabits(ctx context.Context, req *router.Request) error {
	vs, err := b.views(ctx, req.From.ID)
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		return req.Reply(ctx, tgui.New().Title("📊", "Ваши привычки").
			Line("Пока что у вас нет добавленных привычек.").Line(addHint).Build())
	}
	now := b.now()
	mb := tgui.New().Title("📊", "Ваши привычки").Blank()
	buttons := make([]tgui.Button, 0, len(vs))
	for _, v := range vs {
		mb.Line(v.summary(now))
		buttons = append(buttons, tgui.Btn("📝 "+tgui.TruncRunes(v.Name, 24), tgui.DataID(scopeHabit, "open", v.ID)))
	}
	return req.Reply(ctx, mb.Inline(tgui.Grid2(buttons)).Build())
}

func (b *Bot) cmdDate(ctx context.Context, req *router.Request) error {
	if req.Text == "" {
		return req.Reply(ctx, tgui.New().Title("📅", "Распознавание дат").
			Line("Отправьте дату в одном из форматов:").
			Bullets("сегодня, завтра, вчера", "25.12.2024, 2024-12-25", "понедельник, вторник, среда...", "через 3 дня, через 2 недели", "15.12 (текущий год)").
			Blank().Line("Пример: /date через 3 дня").Build())
	}
	t, ok := b.dates.Parse(req.Text)
	if !ok {
		return req.ReplyText(ctx, "❌ Не удалось распознать дату. Попробуйте: сегодня, 25.12.2024, понедельник, через 3 дня.")
	}
	if err := b.dates.Validate(t); err != nil {
		return req.ReplyText(ctx, "❌ Ошибка проверки: "+err.Error())
	}
	return req.Reply(ctx, tgui.New().Title("📅", "Дата распознана!").
		KV("📆 Дата", dateparse.Format(t)).
		KV("📝 Относительно", b.dates.Relative(t)).
		KV("🗓 День недели", weekdayNames[t.Weekday()]).
		Build())
}

func (b *Bot) cmdReminders(ctx context.Context, req *router.Request) error {
	list := b.reminders.List(req.From.ID)
	st := b.reminders.Stats(req.From.ID)
	mb := tgui.New().Title("🔔", "Ваши напоминания").
		KV("Активных", fmt.Sprint(st.Active)).
		KV("Всего в системе", fmt.Sprint(st.Total))
	if len(list) > 0 {
		mb.Blank()
		now := b.now()
		for _, h := range list {
			mb.Line(fmt.Sprintf("⏰ %s · %s (%s)", h.HabitName, dateparse.FormatDateTime(h.At), dateparse.RelativeTo(h.At, now)))
		}
	}
	return req.Reply(ctx, mb.Build())
}

func (b *Bot) cmdStats(ctx context.Context, req *router.Request) error {
	if len(req.Args) > 0 {
		h, err := b.habitFor(ctx, req, strings.TrimPrefix(req.Args[0], "#"))
		if err != nil {
			return b.replyLookupErr(ctx, req, err)
		}
		st, err := b.habitStats(ctx, h)
		if err != nil {
			return err
		}
		return req.Reply(ctx, statsCard(h, st))
	}

	vs, err := b.views(ctx, req.From.ID)
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		return req.ReplyText(ctx, "📈 Статистика пока недоступна. Добавьте привычки и начните их отмечать!")
	}
	days := b.config().StatsPeriodDays
	now := b.now()
	mb := tgui.New().Title("📈", fmt.Sprintf("Статистика за %d дн.", days)).Blank()
	for _, v := range vs {
		st := recurrence.PeriodStats(v.Rule, v.completions, days, now)
		mb.Line(fmt.Sprintf("#%d %s · %d из %d (%.1f%%) · 🔥 %d · 🏆 %d", v.ID, v.Name, st.Completed, st.Expected, st.Rate, st.CurrentStreak, st.LongestStreak))
	}
	mb.Blank().Line("Подробнее: /stats <номер>")
	return req.Reply(ctx, mb.Build())
}

func (b *Bot) habitStats(ctx context.Context, h storage.Habit) (recurrence.Stats, error) {
	cs, err := b.store.Completions(ctx, h.ID)
	if err != nil {
		return recurrence.Stats{}, fmt.Errorf("completions of habit %d: %w", h.ID, err)
	}
	return recurrence.PeriodStats(h.Rule, cs, b.config().StatsPeriodDays, b.now()), nil
}

// cmdWeek lists the habits due on each of the next seven days. A habit's
// schedule steps from its next occurrence after the last completion, or from
// its creation day.
func (b *Bot) cmdWeek(ctx context.Context, req *router.Request) error {
	vs, err := b.views(ctx, req.From.ID)
	if err != nil {
		return err
	}
	now := b.now()
	byDay := map[time.Time][]string{}
	for _, v := range vs {
		anchor := dateparse.Midnight(v.CreatedAt)
		if last, ok := recurrence.Latest(v.completions); ok {
			anchor = dateparse.Midnight(recurrence.NextOccurrence(last, v.Rule))
		}
		for _, d := range recurrence.WeekSchedule(v.Rule, anchor, now) {
			day := dateparse.Midnight(d)
			byDay[day] = append(byDay[day], v.Name)
		}
	}
	if len(byDay) == 0 {
		return req.ReplyText(ctx, "📅 На этой неделе ничего не запланировано.")
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	mb := tgui.New().Title("📅", "Расписание на неделю")
	for _, d := range days {
		mb.Blank().HTML(tgui.B(dayLabel(d))).Bullets(byDay[d]...)
	}
	return req.Reply(ctx, mb.Build())
}

func (b *Bot) replyLookupErr(ctx context.Context, req *router.Request, err error) error {
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, errBadID) {
		return req.ReplyText(ctx, "❌ Привычка не найдена.")
	}
	return err
}
