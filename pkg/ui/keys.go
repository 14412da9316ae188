package ui

import (
	"strings"
)

type shortcut struct {
	keys string
	desc string
}

var shortcuts = []struct {
	section string
	items   []shortcut
}{
	{"Playback", []shortcut{
		{"space", "play / pause"},
		{"n / p", "next / previous day"},
		{"s", "toggle speed 1x / 2x"},
		{"r", "reset to today"},
		{"d", "jump to date"},
	}},
	{"Graph", []shortcut{
		{"j/k ↑/↓", "move cursor"},
		{"enter", "focus / unfocus node"},
		{"esc", "clear focus"},
		{"l", "toggle labels"},
		{"i", "toggle detail pane"},
		{"y", "copy node summary"},
	}},
	{"Camera", []shortcut{
		{"h/← →", "rotate"},
		{"PgUp/PgDn", "tilt"},
		{"+ / -", "zoom"},
		{"0", "reframe"},
	}},
	{"General", []shortcut{
		{"?", "toggle help"},
		{"q ctrl+c", "quit"},
	}},
}

// renderHelp lays the shortcut sections out in a bordered panel.
func renderHelp(theme Theme, width int) string {
	var b strings.Builder
	b.WriteString(theme.Header.Render("Keyboard shortcuts"))
	b.WriteString("\n")
	for _, sec := range shortcuts {
		b.WriteString("\n")
		b.WriteString(theme.MutedText.Render(sec.section))
		b.WriteString("\n")
		for _, s := range sec.items {
			b.WriteString("  ")
			b.WriteString(theme.KeyText.Render(padRight(s.keys, 12)))
			b.WriteString(s.desc)
			b.WriteString("\n")
		}
	}
	panel := theme.Panel.Padding(0, 2)
	if width > 4 {
		panel = panel.MaxWidth(width)
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}
