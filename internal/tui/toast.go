package tui

import (
	"time"

	"github.com/JohnDeved/labelctl/internal/product"
)

// How long toasts stay up when the config does not say otherwise.
const (
	searchToastDuration = 4 * time.Second
	detailToastDuration = 3 * time.Second
)

// Toast is a transient notice. It carries its own expiry; whether it is
// shown is decided when rendering.
type Toast struct {
	Text    string
	Error   bool
	Expires time.Time
}

// NewToast turns a notice into a toast that expires d after now.
func NewToast(n product.Notice, now time.Time, d time.Duration) Toast {
	return Toast{Text: n.Text, Error: n.Error, Expires: now.Add(d)}
}

// Visible reports whether the toast should be drawn at now.
func (t Toast) Visible(now time.Time) bool {
	return t.Text != "" && now.Before(t.Expires)
}

func (t Toast) render() string {
	if t.Error {
		return toastErrorStyle.Render(t.Text)
	}
	return toastStyle.Render(t.Text)
}
