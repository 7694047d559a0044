package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// listCursor tracks a selection and scroll offset over n rows.
type listCursor struct {
	cursor int
	offset int
	rows   int
}

func (l *listCursor) pageSize() int {
	if l.rows > 0 {
		return l.rows
	}
	return 1
}

func (l *listCursor) normalize(n int) {
	rows := l.pageSize()
	if n == 0 {
		l.cursor = 0
		l.offset = 0
		return
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
	if l.cursor >= n {
		l.cursor = n - 1
	}
	if l.offset < 0 {
		l.offset = 0
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}
	maxOffset := n - rows
	if maxOffset < 0 {
		maxOffset = 0
	}
	if l.offset > maxOffset {
		l.offset = maxOffset
	}
}

func (l *listCursor) reset() {
	l.cursor = 0
	l.offset = 0
}

func (l *listCursor) moveUp(n int) {
	if l.cursor > 0 {
		l.cursor--
	}
	l.normalize(n)
}

func (l *listCursor) moveDown(n int) {
	if l.cursor < n-1 {
		l.cursor++
	}
	l.normalize(n)
}

func (l *listCursor) pageUp(n int) {
	l.cursor -= l.pageSize()
	l.offset -= l.pageSize()
	l.normalize(n)
}

func (l *listCursor) pageDown(n int) {
	l.cursor += l.pageSize()
	l.offset += l.pageSize()
	l.normalize(n)
}

func (l *listCursor) home(n int) {
	l.reset()
	l.normalize(n)
}

func (l *listCursor) end(n int) {
	l.cursor = n - 1
	l.normalize(n)
}

// visible returns the [start, end) window of rows to draw.
func (l *listCursor) visible(n int) (int, int) {
	l.normalize(n)
	end := l.offset + l.pageSize()
	if end > n {
		end = n
	}
	return l.offset, end
}

// scrollInfo renders "3/40 (12%)" when the list does not fit.
func (l *listCursor) scrollInfo(n int, noun string) string {
	rows := l.pageSize()
	if n <= rows {
		return ""
	}
	pct := float64(l.offset) / float64(n-rows) * 100
	return fmt.Sprintf("  %d/%d %s (%.0f%%)", l.cursor+1, n, noun, pct)
}

func renderRow(line string, width int, isSelected bool) string {
	rowWidth := width - selectedStyle.GetHorizontalFrameSize()
	if rowWidth < 12 {
		rowWidth = 12
	}
	if isSelected {
		return selectedStyle.Render(padToWidth(line, rowWidth))
	}
	return normalStyle.Render(padToWidth(line, rowWidth))
}

func truncateText(s string, maxWidth int) string {
	if maxWidth < 4 {
		return s
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	r := []rune(s)
	if len(r) <= maxWidth {
		return s
	}
	return string(r[:maxWidth-3]) + "..."
}

func padToWidth(s string, width int) string {
	pad := width - lipgloss.Width(s)
	if pad <= 0 {
		return s
	}
	return s + strings.Repeat(" ", pad)
}

func renderProgressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	if filled > width {
		filled = width
	}
	empty := width - filled

	bar := progressBarFilled.Render(strings.Repeat("█", filled)) +
		progressBarEmpty.Render(strings.Repeat("░", empty))

	return fmt.Sprintf("[%s] %3.0f%%", bar, progress*100)
}
