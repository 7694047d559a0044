// Package util holds formatting helpers shared by the CLI and the TUI.
package util

import (
	"fmt"
	"strings"
)

var byteUnits = []string{"KB", "MB", "GB", "TB"}

// FormatBytes renders a file size, e.g. 1536 -> "1.5 KB".
func FormatBytes(b int64) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", max(b, 0))
	}
	size := float64(b) / 1024
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", size, byteUnits[unit])
}

// TruncatePath shortens path to maxLen runes by dropping leading runes, so
// the file name stays visible.
func TruncatePath(path string, maxLen int) string {
	r := []rune(path)
	if len(r) <= maxLen {
		return path
	}
	if maxLen <= 3 {
		return string(r[len(r)-max(maxLen, 0):])
	}
	return "..." + string(r[len(r)-maxLen+3:])
}

// Readiness renders how many products have an active label.
func Readiness(ready, total int64, pct float64) string {
	if total == 0 {
		return "no products"
	}
	return fmt.Sprintf("%d of %d (%s%%)", ready, total, strings.TrimSuffix(fmt.Sprintf("%.1f", pct), ".0"))
}
