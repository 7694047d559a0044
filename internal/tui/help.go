package tui

import (
	"fmt"
	"strings"
)

type binding struct {
	keys string
	desc string
}

type helpSection struct {
	title    string
	bindings []binding
}

var helpSections = []helpSection{
	{"Global", []binding{
		{"Tab / 1-4", "Switch views"},
		{"Shift+Tab", "Previous view"},
		{"?", "Toggle help"},
		{"q / Ctrl+C", "Quit (twice while uploads run)"},
	}},
	{"Search", []binding{
		{"/ or i", "Focus the search input"},
		{"Enter", "Search in the current mode"},
		{"Ctrl+T / m", "Cycle mode: Local, Title, Barcode, ID"},
		{"Up/Down", "Recall recent searches while typing"},
		{"a", "Only products with an active label"},
		{"Enter / l", "Open selected product"},
		{"c", "Add the catalogue product to Label Manager"},
		{"X", "Forget recent searches"},
	}},
	{"Product", []binding{
		{"e / Enter", "Edit field or open related product"},
		{"[ / ]", "Select territory"},
		{"Space", "Toggle selected territory"},
		{"s", "Save attributes"},
		{"u", "Upload a label file"},
		{"x", "Delete selected label"},
		{"p", "Download selected label preview"},
		{"D", "Download all labels as zip"},
		{"m", "Open master product"},
		{"r", "Reload"},
		{"Esc", "Back to search"},
	}},
	{"Upload", []binding{
		{"/ or i", "Enter file paths or globs"},
		{"Enter", "List matching files with their SKUs"},
		{"U", "Upload the pending files"},
		{"R", "Retry failed uploads"},
		{"x", "Clear the finished batch"},
	}},
	{"Dashboard", []binding{
		{"r", "Refresh"},
	}},
}

func helpLines() []string {
	lines := []string{"  Keyboard Shortcuts", ""}
	for _, s := range helpSections {
		lines = append(lines, "  "+s.title+":")
		for _, b := range s.bindings {
			lines = append(lines, fmt.Sprintf("    %-14s%s", b.keys, b.desc))
		}
		lines = append(lines, "")
	}
	return append(lines, "  j/k, PgUp/PgDn or the mouse wheel scroll. ? or Esc closes.")
}

// helpRows is how many help lines fit on screen.
func (m Model) helpRows() int {
	return max(6, m.height-8)
}

// scrollHelp moves the help view by delta lines, clamped to the content.
func (m *Model) scrollHelp(delta int) {
	last := max(0, len(helpLines())-m.helpRows())
	m.helpOffset = min(max(0, m.helpOffset+delta), last)
}

func (m Model) helpView() string {
	lines := helpLines()
	rows := m.helpRows()
	last := max(0, len(lines)-rows)
	offset := min(max(0, m.helpOffset), last)

	visible := lines[offset:min(len(lines), offset+rows)]
	if last > 0 {
		visible = append(visible, fmt.Sprintf("  [%d/%d]", offset+1, last+1))
	}
	return helpStyle.Render(strings.Join(visible, "\n"))
}
