package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/JohnDeved/labelctl/internal/product"
	"github.com/JohnDeved/labelctl/internal/uploader"
	"github.com/JohnDeved/labelctl/internal/util"
)

type batchUpdateMsg struct{}

type batchDoneMsg struct {
	batchID string
	summary uploader.Summary
	err     error
}

// uploadModel manages the bulk upload view.
type uploadModel struct {
	input  textinput.Model
	batch  *uploader.Batch
	items  []*uploader.Item
	list   listCursor
	height int
	cancel context.CancelFunc
}

func newUploadModel() uploadModel {
	ti := textinput.New()
	ti.Placeholder = "~/labels/*.pdf other/ABC123_front.pdf"
	ti.CharLimit = 1024
	ti.Width = 60
	ti.Prompt = "Files: "
	ti.PromptStyle = searchPromptStyle
	return uploadModel{input: ti, height: 20}
}

func (u *uploadModel) refresh() {
	if u.batch == nil {
		u.items = nil
		return
	}
	u.items = u.batch.Items()
	u.list.normalize(len(u.items))
}

func (u *uploadModel) uploading() bool {
	return u.batch != nil && u.batch.Uploading()
}

func (u *uploadModel) summary() uploader.Summary {
	if u.batch == nil {
		return uploader.Summary{}
	}
	return u.batch.Summary()
}

func (u *uploadModel) cancelRun() {
	if u.cancel != nil {
		u.cancel()
	}
}

func (m Model) handleUploadKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	u := &m.upload
	if u.input.Focused() {
		switch key {
		case "enter":
			return m.selectFiles(uploader.ExpandPaths(strings.Fields(u.input.Value())))
		case "esc":
			u.input.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		u.input, cmd = u.input.Update(msg)
		return m, cmd
	}

	n := len(u.items)
	switch key {
	case "/", "i":
		u.input.Focus()
		return m, textinput.Blink
	case "up", "k":
		u.list.moveUp(n)
	case "down", "j":
		u.list.moveDown(n)
	case "pgup", "ctrl+u":
		u.list.pageUp(n)
	case "pgdown", "ctrl+d":
		u.list.pageDown(n)
	case "home", "g":
		u.list.home(n)
	case "end", "G":
		u.list.end(n)
	case "U":
		return m.uploadPending()
	case "R":
		return m.retryFailed()
	case "x":
		if u.uploading() {
			return m, m.notify(product.Notice{Text: uploader.ErrInProgress.Error(), Error: true}, detailToastDuration)
		}
		u.batch = nil
		u.cancel = nil
		u.refresh()
		u.list.reset()
		u.input.Focus()
		return m, textinput.Blink
	}
	return m, nil
}

func (m Model) newBatch(paths []string) *uploader.Batch {
	opts := uploader.Options{
		MaxConcurrent: m.cfg.MaxConcurrentUploads,
		Logger:        m.log,
	}
	if m.journal != nil {
		opts.Recorder = m.journal
	}
	b := uploader.NewBatch(m.client, paths, opts)
	program := m.program
	b.SetOnChange(func() {
		program.send(batchUpdateMsg{})
	})
	return b
}

// selectFiles replaces the batch with one Pending item per path so the
// derived SKUs can be checked before anything is sent.
func (m Model) selectFiles(paths []string) (tea.Model, tea.Cmd) {
	u := &m.upload
	if u.uploading() {
		return m, m.notify(product.Notice{Text: uploader.ErrInProgress.Error(), Error: true}, detailToastDuration)
	}
	if len(paths) == 0 {
		return m, m.notify(product.Notice{Text: "No files to upload", Error: true}, detailToastDuration)
	}

	u.cancelRun()
	u.batch = m.newBatch(paths)
	u.cancel = nil
	u.input.Blur()
	u.input.SetValue("")
	u.list.reset()
	u.refresh()
	text := fmt.Sprintf("%d files ready, check the SKUs and press U to upload", len(paths))
	return m, m.notify(product.Notice{Text: text}, detailToastDuration)
}

// uploadPending sends every Pending item of the current batch.
func (m Model) uploadPending() (tea.Model, tea.Cmd) {
	u := &m.upload
	if u.batch == nil {
		return m, m.notify(product.Notice{Text: "No files selected. Press / to choose some.", Error: true}, detailToastDuration)
	}
	if u.uploading() {
		return m, m.notify(product.Notice{Text: uploader.ErrInProgress.Error(), Error: true}, detailToastDuration)
	}
	if u.batch.Pending() == 0 {
		return m, m.notify(product.Notice{Text: "Nothing to upload"}, detailToastDuration)
	}
	b := u.batch
	u.cancelRun()
	ctx, cancel := context.WithCancel(m.ctx)
	u.cancel = cancel
	return m, func() tea.Msg {
		s, err := b.UploadAll(ctx)
		return batchDoneMsg{batchID: b.ID(), summary: s, err: err}
	}
}

func (m Model) retryFailed() (tea.Model, tea.Cmd) {
	u := &m.upload
	if u.batch == nil {
		return m, nil
	}
	if u.uploading() {
		return m, m.notify(product.Notice{Text: uploader.ErrInProgress.Error(), Error: true}, detailToastDuration)
	}
	if u.batch.Summary().Failed == 0 {
		return m, m.notify(product.Notice{Text: "Nothing to retry"}, detailToastDuration)
	}
	b := u.batch
	u.cancelRun()
	ctx, cancel := context.WithCancel(m.ctx)
	u.cancel = cancel
	return m, func() tea.Msg {
		s, err := b.RetryFailed(ctx)
		return batchDoneMsg{batchID: b.ID(), summary: s, err: err}
	}
}

func (m Model) handleBatchDone(msg batchDoneMsg) (tea.Model, tea.Cmd) {
	u := &m.upload
	if u.batch == nil || u.batch.ID() != msg.batchID {
		return m, nil
	}
	u.refresh()
	if errors.Is(msg.err, uploader.ErrInProgress) {
		return m, m.notify(product.Notice{Text: msg.err.Error(), Error: true}, detailToastDuration)
	}
	return m, m.notify(batchNotice(msg.summary, msg.err), detailToastDuration)
}

func batchNotice(s uploader.Summary, err error) product.Notice {
	if err != nil {
		return product.Notice{Text: fmt.Sprintf("Upload interrupted: %d of %d labels uploaded", s.Succeeded, s.Total), Error: true}
	}
	if s.Failed > 0 {
		return product.Notice{Text: fmt.Sprintf("Uploaded %d of %d labels, %d failed (R to retry)", s.Succeeded, s.Total, s.Failed), Error: true}
	}
	return product.Notice{Text: fmt.Sprintf("Uploaded %d labels", s.Succeeded)}
}

func (u *uploadModel) view(width int) string {
	var sb strings.Builder

	sb.WriteString("  ")
	sb.WriteString(u.input.View())
	sb.WriteString("\n\n")

	if len(u.items) == 0 {
		sb.WriteString(helpStyle.Render("  Enter label files or globs, then press U to upload them. The SKU is taken from each file name up to the first _ or -.\n"))
		return sb.String()
	}

	var pending, active, succeeded, failed int
	for _, it := range u.items {
		switch st, _ := it.State(); st {
		case uploader.StatusPending:
			pending++
		case uploader.StatusUploading:
			active++
		case uploader.StatusSuccess:
			succeeded++
		case uploader.StatusError:
			failed++
		}
	}

	stats := fmt.Sprintf("  Pending: %d  Uploading: %d  Success: %d  Failed: %d",
		pending, active, succeeded, failed)
	sb.WriteString(helpStyle.Render(stats))
	sb.WriteString("\n")
	barWidth := 30
	if width > 100 {
		barWidth = 40
	}
	progress := float64(succeeded+failed) / float64(len(u.items))
	sb.WriteString("  " + renderProgressBar(progress, barWidth))
	sb.WriteString("\n\n")

	start, end := u.list.visible(len(u.items))
	nameWidth := max(12, width-60)
	for i := start; i < end; i++ {
		it := u.items[i]
		status, err := it.State()

		style := helpStyle
		switch status {
		case uploader.StatusUploading:
			style = markedStyle
		case uploader.StatusSuccess:
			style = successStyle
		case uploader.StatusError:
			style = errorStyle
		}
		statusStr := style.Width(24).Render(status.String())

		line := fmt.Sprintf("  %s %s %s", statusStr, skuStyle.Render(it.SKU), util.TruncatePath(it.Path, nameWidth))
		if err != nil && i == u.list.cursor {
			line += "  " + errorStyle.Render(truncateText(err.Error(), max(12, width-nameWidth-40)))
		}
		sb.WriteString(renderRow(line, width, i == u.list.cursor))
		sb.WriteString("\n")
	}
	if info := u.list.scrollInfo(len(u.items), "files"); info != "" {
		sb.WriteString(padToWidth(helpStyle.Render(info), width))
		sb.WriteString("\n")
	}
	return sb.String()
}
