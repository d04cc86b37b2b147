package router

import (
	"html"
	"sort"
	"strings"
)

// helpText renders help in Telegram HTML parse mode.
func (r *Router) helpText(args []string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(args) > 0 {
		name := sanitizeTelegramCommand(strings.TrimPrefix(args[0], "/"))
		c, ok := r.commands[name]
		if !ok {
			return "❓ <b>Неизвестная команда</b>\nСписок команд: <code>/help</code>"
		}
		lines := []string{"📚 <b>Справка</b> <code>/" + html.EscapeString(c.Name) + "</code>"}
		if d := strings.TrimSpace(c.Description); d != "" {
			lines = append(lines, html.EscapeString(d))
		}
		if u := strings.TrimSpace(c.Usage); u != "" {
			lines = append(lines, "", "<b>Использование</b>", "<code>"+html.EscapeString(u)+"</code>")
		}
		if len(c.Aliases) > 0 {
			al := make([]string, 0, len(c.Aliases))
			for _, a := range c.Aliases {
				al = append(al, "<code>/"+html.EscapeString(a)+"</code>")
			}
			lines = append(lines, "", "<b>Сокращения</b>: "+strings.Join(al, ", "))
		}
		return strings.Join(lines, "\n")
	}

	cmds := append([]Command(nil), r.ordered...)
	sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

	lines := []string{"📚 <b>Команды</b>", "Подробнее: <code>/help &lt;команда&gt;</code>", ""}
	for _, c := range cmds {
		line := "• <code>/" + html.EscapeString(c.Name) + "</code>"
		if d := strings.TrimSpace(c.Description); d != "" {
			line += " — " + html.EscapeString(d)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", "Любой текст без команды создаёт новую привычку.")
	return strings.Join(lines, "\n")
}
