package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jask/vareditor/internal/panel"
)

const maxValueWidth = 24

func (a *App) View() string {
	view := a.ctrl.View()
	if !view.Mounted {
		out := dimStyle.Render("variable panel hidden  [v] show  [q] quit")
		if a.mode != modeNone {
			out += "\n" + a.renderInput()
		}
		if a.status != "" {
			out += "\n" + a.renderStatus()
		}
		return out
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Variables - " + a.conversationLabel()))
	b.WriteString("\n")
	for _, sec := range view.Sections {
		b.WriteString(a.renderSection(sec))
	}
	if a.mode != modeNone {
		b.WriteString(a.renderInput())
		b.WriteString("\n")
	}
	if a.status != "" {
		b.WriteString(a.renderStatus())
		b.WriteString("\n")
	}
	b.WriteString(a.help.View(a.keys))
	return lipgloss.NewStyle().Width(a.width()).Render(b.String())
}

// width scales the configured column count by the stored font size.
func (a *App) width() int {
	w := a.cfg.Width
	if w <= 0 {
		w = 48
	}
	scale := a.convs.PanelSettings().FontSize
	if scale <= 0 {
		scale = 1
	}
	return int(float64(w)*scale + 0.5)
}

func (a *App) conversationLabel() string {
	chat, ok := a.convs.CurrentConversation()
	if !ok {
		return "(no conversation)"
	}
	return chat.Name
}

func (a *App) renderSection(sec panel.Section) string {
	focused := sec.Scope == a.focus
	heading := fmt.Sprintf("%s (%s)", sec.Title, sec.Sort.Label())
	if focused {
		heading = headerStyle.Render(heading)
	}
	out := heading + "\n"
	for i, it := range sec.Items {
		out += a.marker(focused, i) + " " + renderItem(it) + "\n"
	}
	out += a.marker(focused, len(sec.Items)) + " " + dimStyle.Render("+ add variable") + "\n"
	return out
}

func (a *App) marker(focused bool, i int) string {
	if focused && i == a.cursor {
		return cursorStyle.Render("▶")
	}
	return " "
}

func renderItem(it panel.DisplayItem) string {
	value := it.Value
	if r := []rune(value); len(r) > maxValueWidth {
		value = string(r[:maxValueWidth-1]) + "…"
	}
	line := fmt.Sprintf("%s = %s", it.Key, value)
	if it.Flashing {
		line = flashStyle.Render(line)
	}
	if it.Confirming {
		line += " " + confirmStyle.Render("[d] confirm delete")
	}
	return line
}

func (a *App) renderInput() string {
	var label string
	switch a.mode {
	case modeAddName:
		label = fmt.Sprintf("New %s variable name", a.targetScope)
	case modeAddValue:
		label = fmt.Sprintf("Value for %s", a.targetKey)
	case modeRename:
		label = fmt.Sprintf("Rename %s", a.targetKey)
	case modeEdit:
		label = fmt.Sprintf("Edit %s", a.targetKey)
	case modeNewChat:
		label = "New conversation name (optional)"
	}
	return label + "\n" + a.input.View() + "\n" + dimStyle.Render("[enter] Save  [esc] Cancel")
}

func (a *App) renderStatus() string {
	if a.isErr {
		return errStyle.Render(a.status)
	}
	return okStyle.Render(a.status)
}
