package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/product"
	"github.com/JohnDeved/labelctl/internal/util"
)

type detailLoadedMsg struct {
	gen    int
	detail *product.Detail
	err    error
}

// catalogueMsg carries the catalogue values for a page that is already shown.
type catalogueMsg struct {
	gen       int
	catalogue *client.CatalogueProduct
}

type labelsMsg struct {
	gen    int
	labels []client.Label
	err    error
}

type savedMsg struct {
	sku string
	err error
}

type labelUploadedMsg struct {
	sku string
	err error
}

type labelDeletedMsg struct {
	sku string
	err error
}

type fileSavedMsg struct {
	path string
	err  error
}

type inputMode int

const (
	inputNone inputMode = iota
	inputEdit
	inputUpload
)

// productFields are the attributes editable on the detail page.
var productFields = []struct {
	name string
	get  func(p *client.Product) *string
}{
	{"Title", func(p *client.Product) *string { return &p.Title }},
	{"Barcode", func(p *client.Product) *string { return &p.Barcode }},
	{"Catalogue number", func(p *client.Product) *string { return &p.CatalogueNumber }},
	{"Category", func(p *client.Product) *string { return &p.Category }},
	{"Type", func(p *client.Product) *string { return &p.Type }},
}

type rowKind int

const (
	rowField rowKind = iota
	rowLabel
	rowMaster
	rowChild
)

type detailRow struct {
	kind  rowKind
	index int
}

// detailModel manages one product's page. gen changes whenever the page is
// (re)loaded so late responses for an older load are dropped.
type detailModel struct {
	sku     string
	gen     int
	loading bool
	err     error
	loaded  *product.Detail
	// refreshing is set while the catalogue lookup for loaded is in flight.
	refreshing bool
	// edited is the working copy the user changes until it is saved.
	edited    client.Product
	dirty     bool
	list      listCursor
	height    int
	territory int

	input         textinput.Model
	inputMode     inputMode
	editField     int
	confirmDelete *client.Label
	busy          string
}

func newDetailModel() detailModel {
	ti := textinput.New()
	ti.CharLimit = 512
	ti.Width = 60
	ti.PromptStyle = searchPromptStyle
	return detailModel{input: ti, height: 20}
}

// open points the page at sku and starts a new generation.
func (d *detailModel) open(sku string) {
	if sku != d.sku {
		d.loaded = nil
		d.edited = client.Product{}
		d.dirty = false
		d.list.reset()
		d.territory = 0
	}
	d.sku = sku
	d.gen++
	d.loading = true
	d.refreshing = false
	d.err = nil
	d.busy = ""
	d.confirmDelete = nil
	d.cancelInput()
}

func (d *detailModel) cancelInput() {
	d.inputMode = inputNone
	d.input.Blur()
	d.input.SetValue("")
}

func (d *detailModel) rows() []detailRow {
	if d.loaded == nil {
		return nil
	}
	rows := make([]detailRow, 0, len(productFields)+len(d.loaded.Labels)+len(d.loaded.Children)+1)
	for i := range productFields {
		rows = append(rows, detailRow{kind: rowField, index: i})
	}
	for i := range d.loaded.Labels {
		rows = append(rows, detailRow{kind: rowLabel, index: i})
	}
	if d.loaded.Master != nil {
		rows = append(rows, detailRow{kind: rowMaster})
	}
	for i := range d.loaded.Children {
		rows = append(rows, detailRow{kind: rowChild, index: i})
	}
	return rows
}

func (d *detailModel) selectedRow() (detailRow, bool) {
	rows := d.rows()
	d.list.normalize(len(rows))
	if d.list.cursor < len(rows) {
		return rows[d.list.cursor], true
	}
	return detailRow{}, false
}

func (d *detailModel) selectedLabel() *client.Label {
	row, ok := d.selectedRow()
	if !ok || row.kind != rowLabel {
		return nil
	}
	return &d.loaded.Labels[row.index]
}

func (d *detailModel) startEdit(field int) tea.Cmd {
	d.inputMode = inputEdit
	d.editField = field
	d.input.Prompt = productFields[field].name + ": "
	d.input.Placeholder = ""
	d.input.SetValue(*productFields[field].get(&d.edited))
	d.input.CursorEnd()
	d.input.Focus()
	return textinput.Blink
}

func (d *detailModel) startUpload() tea.Cmd {
	d.inputMode = inputUpload
	d.input.Prompt = "Label file: "
	d.input.Placeholder = "path/to/label.pdf"
	d.input.SetValue("")
	d.input.Focus()
	return textinput.Blink
}

func (d *detailModel) moveTerritory(delta int) {
	n := len(client.Territories)
	d.territory = (d.territory + delta + n) % n
}

// openDetail switches to the detail tab for sku and loads it.
func (m Model) openDetail(sku string) (tea.Model, tea.Cmd) {
	m.search.input.Blur()
	m.activeTab = TabDetail
	m.detail.open(sku)
	return m, m.loadDetailCmd(sku, m.detail.gen)
}

func (m Model) reloadDetail() (tea.Model, tea.Cmd) {
	if m.detail.sku == "" {
		return m, nil
	}
	return m.openDetail(m.detail.sku)
}

func (m Model) handleDetailKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := &m.detail

	if l := d.confirmDelete; l != nil {
		switch key {
		case "y", "Y", "enter":
			d.confirmDelete = nil
			d.busy = "Deleting label..."
			return m, m.deleteLabelCmd(d.sku, l.ID)
		case "n", "N", "esc":
			d.confirmDelete = nil
		}
		return m, nil
	}

	if d.inputMode != inputNone {
		switch key {
		case "esc":
			d.cancelInput()
			return m, nil
		case "enter":
			value := d.input.Value()
			mode := d.inputMode
			d.cancelInput()
			if mode == inputEdit {
				field := productFields[d.editField].get(&d.edited)
				if *field != value {
					*field = value
					d.dirty = true
				}
				return m, nil
			}
			path, err := homedir.Expand(strings.TrimSpace(value))
			if err != nil || path == "" {
				return m, nil
			}
			d.busy = "Uploading " + filepath.Base(path) + "..."
			return m, m.uploadLabelCmd(d.sku, path)
		}
		var cmd tea.Cmd
		d.input, cmd = d.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "esc", "backspace", "h":
		m.activeTab = TabSearch
		return m, nil
	case "r":
		return m.reloadDetail()
	}
	if d.loaded == nil {
		return m, nil
	}

	n := len(d.rows())
	switch key {
	case "up", "k":
		d.list.moveUp(n)
	case "down", "j":
		d.list.moveDown(n)
	case "pgup", "ctrl+u":
		d.list.pageUp(n)
	case "pgdown", "ctrl+d":
		d.list.pageDown(n)
	case "home", "g":
		d.list.home(n)
	case "end", "G":
		d.list.end(n)
	case "[":
		d.moveTerritory(-1)
	case "]":
		d.moveTerritory(1)
	case " ":
		product.ToggleTerritory(&d.edited, client.Territories[d.territory])
		d.dirty = true
	case "e", "enter", "l":
		row, ok := d.selectedRow()
		if !ok {
			return m, nil
		}
		switch row.kind {
		case rowField:
			return m, d.startEdit(row.index)
		case rowMaster:
			return m.openDetail(d.loaded.Master.SKU)
		case rowChild:
			return m.openDetail(d.loaded.Children[row.index].SKU)
		}
	case "m":
		if d.loaded.Master != nil {
			return m.openDetail(d.loaded.Master.SKU)
		}
	case "s":
		d.busy = "Saving..."
		return m, m.saveCmd(d.edited)
	case "u":
		return m, d.startUpload()
	case "x":
		if l := d.selectedLabel(); l != nil {
			d.confirmDelete = l
		}
	case "p":
		if l := d.selectedLabel(); l != nil {
			return m, m.previewCmd(*l)
		}
	case "D":
		return m, m.bulkDownloadCmd(d.sku)
	}
	return m, nil
}

func (m Model) loadDetailCmd(sku string, gen int) tea.Cmd {
	c, ctx, log := m.client, m.ctx, m.log
	return func() tea.Msg {
		d, err := product.LoadLocalDetail(ctx, c, sku, log)
		return detailLoadedMsg{gen: gen, detail: d, err: err}
	}
}

func (m Model) catalogueCmd(sku string, gen int) tea.Cmd {
	c, ctx, log := m.client, m.ctx, m.log
	return func() tea.Msg {
		return catalogueMsg{gen: gen, catalogue: product.RefreshFromCatalogue(ctx, c, sku, log)}
	}
}

func (m Model) labelsCmd(sku string, gen int) tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		labels, err := c.ListLabels(ctx, sku)
		return labelsMsg{gen: gen, labels: labels, err: err}
	}
}

func (m Model) saveCmd(p client.Product) tea.Cmd {
	c, ctx := m.client, m.ctx
	p.MarketTerritories = slices.Clone(p.MarketTerritories)
	return func() tea.Msg {
		_, err := c.SaveProduct(ctx, p)
		return savedMsg{sku: p.SKU, err: err}
	}
}

func (m Model) uploadLabelCmd(sku, path string) tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		_, err := c.UploadLabelFile(ctx, sku, path)
		return labelUploadedMsg{sku: sku, err: err}
	}
}

func (m Model) deleteLabelCmd(sku string, id int64) tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		return labelDeletedMsg{sku: sku, err: c.DeleteLabel(ctx, id)}
	}
}

func (m Model) previewCmd(l client.Label) tea.Cmd {
	c, ctx, dir := m.client, m.ctx, m.cfg.DownloadDir
	return func() tea.Msg {
		path, err := c.DownloadPreview(ctx, l, dir)
		return fileSavedMsg{path: path, err: err}
	}
}

func (m Model) bulkDownloadCmd(sku string) tea.Cmd {
	c, ctx, dir := m.client, m.ctx, m.cfg.DownloadDir
	return func() tea.Msg {
		path, err := c.DownloadLabels(ctx, sku, dir)
		return fileSavedMsg{path: path, err: err}
	}
}

func (m Model) handleDetailLoaded(msg detailLoadedMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	if msg.gen != d.gen {
		return m, nil
	}
	d.loading = false
	d.busy = ""
	if msg.err != nil {
		d.err = msg.err
		m.log.Warn("loading product failed", zap.String("sku", d.sku), zap.Error(msg.err))
		return m, nil
	}
	d.err = nil
	d.loaded = msg.detail
	d.edited = msg.detail.Product
	d.edited.MarketTerritories = slices.Clone(msg.detail.Product.MarketTerritories)
	d.dirty = false
	d.list.normalize(len(d.rows()))
	d.refreshing = true
	return m, m.catalogueCmd(d.sku, d.gen)
}

// handleCatalogue lets catalogue title and barcode win over the local values
// once the lookup returns, both on the loaded product and the working copy.
func (m Model) handleCatalogue(msg catalogueMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	if msg.gen != d.gen || d.loaded == nil {
		return m, nil
	}
	d.refreshing = false
	d.loaded.ApplyCatalogue(msg.catalogue)
	product.ApplyCatalogue(&d.edited, msg.catalogue)
	return m, nil
}

func (m Model) handleLabels(msg labelsMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	if msg.gen != d.gen || d.loaded == nil {
		return m, nil
	}
	if msg.err != nil {
		return m, m.notify(product.Notice{Text: "Failed to load labels: " + client.StatusText(msg.err), Error: true}, detailToastDuration)
	}
	d.loaded.Labels = msg.labels
	d.loaded.LabelsErr = nil
	d.list.normalize(len(d.rows()))
	return m, nil
}

func (m Model) handleSaved(msg savedMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	d.busy = ""
	if msg.err != nil {
		// Local edits stay so the user can retry.
		return m, m.notify(product.SaveFailedNotice(), detailToastDuration)
	}
	notice := m.notify(product.SavedNotice(), detailToastDuration)
	if msg.sku != d.sku {
		return m, notice
	}
	next, reload := m.reloadDetail()
	return next, tea.Batch(notice, reload)
}

func (m Model) handleLabelUploaded(msg labelUploadedMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	d.busy = ""
	if msg.err != nil {
		return m, m.notify(product.UploadFailedNotice(msg.err), detailToastDuration)
	}
	notice := m.notify(product.UploadedNotice(), detailToastDuration)
	if msg.sku != d.sku {
		return m, notice
	}
	return m, tea.Batch(notice, m.labelsCmd(d.sku, d.gen))
}

func (m Model) handleLabelDeleted(msg labelDeletedMsg) (tea.Model, tea.Cmd) {
	d := &m.detail
	d.busy = ""
	if msg.err != nil {
		return m, m.notify(product.DeleteFailedNotice(msg.err), detailToastDuration)
	}
	notice := m.notify(product.DeletedNotice(), detailToastDuration)
	if msg.sku != d.sku {
		return m, notice
	}
	return m, tea.Batch(notice, m.labelsCmd(d.sku, d.gen))
}

func (m Model) handleFileSaved(msg fileSavedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		return m, m.notify(product.Notice{Text: "Download failed: " + client.StatusText(msg.err), Error: true}, detailToastDuration)
	}
	text := "Saved " + msg.path
	if fi, err := os.Stat(msg.path); err == nil {
		text += fmt.Sprintf(" (%s)", util.FormatBytes(fi.Size()))
	}
	return m, m.notify(product.Notice{Text: text}, detailToastDuration)
}

func (d *detailModel) view(width int, spin string) string {
	var sb strings.Builder

	if d.sku == "" {
		sb.WriteString(helpStyle.Render("\n  No product open. Pick one on the Search tab and press Enter.\n"))
		return sb.String()
	}
	if d.loading && d.loaded == nil {
		sb.WriteString(padToWidth(fmt.Sprintf("  %s Loading %s...", spin, d.sku), width))
		sb.WriteString("\n")
		return sb.String()
	}
	if d.err != nil {
		msg := fmt.Sprintf("  Error: %v", d.err)
		if client.IsNotFound(d.err) {
			msg = fmt.Sprintf("  Product %s not found.", d.sku)
		}
		sb.WriteString(padToWidth(errorStyle.Render(msg), width))
		sb.WriteString("\n")
		return sb.String()
	}

	p := d.edited
	header := "  " + sectionStyle.Render(p.SKU)
	if p.MasterProduct {
		header += " " + masterBadge.Render("master")
	}
	if d.loading {
		header += " " + spin
	} else if d.refreshing {
		header += "  " + helpStyle.Render(spin+" checking catalogue")
	}
	if d.busy != "" {
		header += "  " + helpStyle.Render(d.busy)
	}
	sb.WriteString(padToWidth(header, width))
	sb.WriteString("\n")
	if img := d.loaded.ImageURL; img != "" {
		sb.WriteString(padToWidth(helpStyle.Render("  Image: "+truncateText(img, max(20, width-11))), width))
		sb.WriteString("\n")
	}

	// Territories
	var terr strings.Builder
	terr.WriteString("  " + fieldLabelStyle.Render("Territories"))
	for i, t := range client.Territories {
		mark := "[ ]"
		if product.HasTerritory(p, t) {
			mark = "[x]"
		}
		cell := fmt.Sprintf("%s %s", mark, t)
		if i == d.territory {
			cell = markedStyle.Render(cell)
		}
		terr.WriteString(cell + "  ")
	}
	sb.WriteString(padToWidth(terr.String(), width))
	sb.WriteString("\n")

	if d.inputMode != inputNone {
		sb.WriteString("  " + d.input.View())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	rows := d.rows()
	start, end := d.list.visible(len(rows))
	lastKind := rowKind(-1)
	for i := start; i < end; i++ {
		row := rows[i]
		if row.kind != lastKind {
			if title := sectionTitle(row.kind, len(d.loaded.Labels)); title != "" {
				sb.WriteString(padToWidth("  "+sectionStyle.Render(title), width))
				sb.WriteString("\n")
			}
			lastKind = row.kind
		}
		sb.WriteString(renderRow(d.rowText(row, width), width, i == d.list.cursor))
		sb.WriteString("\n")
	}
	switch {
	case d.loaded.LabelsErr != nil:
		sb.WriteString(padToWidth(errorStyle.Render("  Labels failed to load: "+client.StatusText(d.loaded.LabelsErr)+". Press r to retry."), width))
		sb.WriteString("\n")
	case len(d.loaded.Labels) == 0:
		sb.WriteString(padToWidth(helpStyle.Render("  No labels yet. Press u to upload one."), width))
		sb.WriteString("\n")
	}
	if err := d.loaded.RelationsErr; err != nil {
		what := "Child products"
		if !d.edited.MasterProduct {
			what = "Master product " + d.edited.MasterSKU
		}
		sb.WriteString(padToWidth(errorStyle.Render("  "+what+" unavailable: "+client.StatusText(err)), width))
		sb.WriteString("\n")
	}
	if info := d.list.scrollInfo(len(rows), "rows"); info != "" {
		sb.WriteString(padToWidth(helpStyle.Render(info), width))
		sb.WriteString("\n")
	}
	return sb.String()
}

func sectionTitle(kind rowKind, labels int) string {
	switch kind {
	case rowField:
		return "Attributes"
	case rowLabel:
		return fmt.Sprintf("Labels (%d)", labels)
	case rowMaster:
		return "Master product"
	case rowChild:
		return "Child products"
	}
	return ""
}

func (d *detailModel) rowText(row detailRow, width int) string {
	switch row.kind {
	case rowField:
		f := productFields[row.index]
		value := *f.get(&d.edited)
		if value == "" {
			value = "-"
		}
		return "  " + fieldLabelStyle.Render(f.name) + truncateText(value, max(12, width-26))
	case rowLabel:
		l := d.loaded.Labels[row.index]
		line := fmt.Sprintf("  v%-3d %s", l.Version, truncateText(l.FileName, max(12, width-50)))
		if l.Active {
			line += " " + activeBadge.Render("active")
		}
		if l.SKUMatched != nil {
			if *l.SKUMatched {
				line += " " + successStyle.Render("sku ok")
			} else {
				line += " " + errorStyle.Render("sku mismatch")
			}
		}
		if l.CreatedAt != "" {
			line += " " + helpStyle.Render(l.CreatedAt)
		}
		if l.CreatedBy != "" {
			line += " " + helpStyle.Render("by "+l.CreatedBy)
		}
		return line
	case rowMaster:
		mp := d.loaded.Master
		return fmt.Sprintf("  %s %s", skuStyle.Render(mp.SKU), truncateText(mp.Title, max(12, width-24)))
	case rowChild:
		c := d.loaded.Children[row.index]
		return fmt.Sprintf("  %s %s", skuStyle.Render(c.SKU), truncateText(c.Title, max(12, width-24)))
	}
	return ""
}
