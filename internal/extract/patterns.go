package extract

import (
	"habitbot/internal/recurrence"
	"habitbot/internal/textmatch"
)

type frequencyPattern struct {
	re       *textmatch.Pattern
	kind     recurrence.Kind
	interval bool // captures an explicit interval
}

type timePattern struct {
	re        *textmatch.Pattern
	qualifier Qualifier
	// fixedHour is used when the pattern captures nothing.
	fixedHour int
	// shift is added to a captured hour below 12 ("7 вечера" is 19:00).
	shift      int
	withMinute bool
}

type durationPattern struct {
	re   *textmatch.Pattern
	unit Unit
}

// Order matters inside every table: the first match wins per family.
var frequencyPatterns = []frequencyPattern{
	{re: textmatch.Compile(`каждый\s+день|ежедневно|раз\s+в\s+день|every\s+day|daily`), kind: recurrence.Daily},
	{re: textmatch.Compile(`(?:каждые|каждый|раз\s+в)\s+(\d+)\s+(?:дней|дня|день)|every\s+(\d+)\s+days?`), kind: recurrence.Daily, interval: true},
	{re: textmatch.Compile(`каждую\s+неделю|еженедельно|раз\s+в\s+неделю|every\s+week|weekly`), kind: recurrence.Weekly},
	{re: textmatch.Compile(`(?:каждые|каждую|раз\s+в)\s+(\d+)\s+(?:недель|недели|неделю)|every\s+(\d+)\s+weeks?`), kind: recurrence.Weekly, interval: true},
	{re: textmatch.Compile(`каждый\s+месяц|ежемесячно|раз\s+в\s+месяц|every\s+month|monthly`), kind: recurrence.Monthly},
	{re: textmatch.Compile(`(?:каждые|каждый|раз\s+в)\s+(\d+)\s+(?:месяцев|месяца|месяц)|every\s+(\d+)\s+months?`), kind: recurrence.Monthly, interval: true},
}

var timePatterns = []timePattern{
	{re: textmatch.Compile(`(?:(?:в|at)\s+)?(\d{1,2}):(\d{2})`), qualifier: Exact, withMinute: true},
	{re: textmatch.Compile(`в\s+(\d{1,2})\s+(?:часов|часа|час)|at\s+(\d{1,2})\s*o'?clock`), qualifier: Exact},
	{re: textmatch.Compile(`в\s+(\d{1,2})\s+утра|(\d{1,2})\s+in\s+the\s+morning|at\s+(\d{1,2})\s*am`), qualifier: Morning},
	{re: textmatch.Compile(`в\s+(\d{1,2})\s+дня|(\d{1,2})\s+in\s+the\s+afternoon`), qualifier: Afternoon, shift: 12},
	{re: textmatch.Compile(`в\s+(\d{1,2})\s+вечера|(\d{1,2})\s+in\s+the\s+evening|at\s+(\d{1,2})\s*pm`), qualifier: Evening, shift: 12},
	{re: textmatch.Compile(`утром|in\s+the\s+morning`), qualifier: Morning, fixedHour: 9},
	{re: textmatch.Compile(`днём|днем|in\s+the\s+afternoon`), qualifier: Afternoon, fixedHour: 14},
	{re: textmatch.Compile(`вечером|in\s+the\s+evening`), qualifier: Evening, fixedHour: 19},
	{re: textmatch.Compile(`ночью|at\s+night`), qualifier: Night, fixedHour: 23},
}

var durationPatterns = []durationPattern{
	{re: textmatch.Compile(`(\d+)\s*(?:минуты|минуту|минута|минут|мин\.?|minutes|minute|mins|min)`), unit: Minutes},
	{re: textmatch.Compile(`(\d+)\s*(?:часов|часа|час|ч\.?|hours|hour|hrs|h)`), unit: Hours},
}

var reminderPatterns = []*textmatch.Pattern{
	textmatch.Compile(`напомнить|напомните|напомни|напоминания|напоминание|уведомление|уведомления|уведоми|reminder|remind`),
}

// maxDateWindow is the widest run of words tried as a date expression.
const maxDateWindow = 4
