package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/product"
)

type localResultsMsg struct {
	gen int
	res product.LocalResult
}

type catalogueResultsMsg struct {
	gen int
	res product.CatalogueResult
}

type importedMsg struct {
	res product.ImportResult
}

// searchModel manages the search view. Each mode has its own loading flag
// and generation; a result is applied only if its generation is current.
type searchModel struct {
	input      textinput.Model
	mode       product.Mode
	activeOnly bool
	loading    [4]bool
	gens       [4]int
	results    []client.Product
	list       listCursor
	height     int
	err        error
	lastQuery  string
	recent     []string
	recentPos  int

	catalogue      *client.CatalogueProduct
	catalogueMode  product.Mode
	catalogueImage string
	importing      bool
}

func newSearchModel() searchModel {
	ti := textinput.New()
	ti.Placeholder = "SKU, title or barcode..."
	ti.CharLimit = 256
	ti.Width = 60
	ti.Prompt = "Search: "
	ti.PromptStyle = searchPromptStyle
	return searchModel{
		input:     ti,
		height:    20,
		recentPos: -1,
	}
}

func (s *searchModel) cycleMode() {
	s.mode = product.Modes[(int(s.mode)+1)%len(product.Modes)]
	s.input.Prompt = "Search: "
	if s.mode.Catalogue() {
		s.input.Prompt = fmt.Sprintf("Catalogue %s: ", s.mode)
	}
}

// recallRecent steps through the recent list into the input. delta 1 goes
// to older queries.
func (s *searchModel) recallRecent(delta int) {
	if len(s.recent) == 0 {
		return
	}
	pos := s.recentPos + delta
	if pos < -1 {
		pos = -1
	}
	if pos >= len(s.recent) {
		pos = len(s.recent) - 1
	}
	s.recentPos = pos
	if pos == -1 {
		s.input.SetValue("")
		return
	}
	s.input.SetValue(s.recent[pos])
	s.input.CursorEnd()
}

func (s *searchModel) selected() *client.Product {
	s.list.normalize(len(s.results))
	if s.list.cursor >= 0 && s.list.cursor < len(s.results) {
		return &s.results[s.list.cursor]
	}
	return nil
}

func (m Model) handleSearchKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := &m.search
	if s.input.Focused() {
		switch key {
		case "enter":
			s.recentPos = -1
			return m.runSearch(s.mode, s.input.Value())
		case "esc":
			s.input.Blur()
			return m, nil
		case "ctrl+t":
			s.cycleMode()
			return m, nil
		case "up":
			s.recallRecent(1)
			return m, nil
		case "down":
			s.recallRecent(-1)
			return m, nil
		}
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return m, cmd
	}

	n := len(s.results)
	switch key {
	case "/", "i":
		s.input.Focus()
		return m, textinput.Blink
	case "m", "ctrl+t":
		s.cycleMode()
		return m, nil
	case "a":
		s.activeOnly = !s.activeOnly
		return m.runSearch(product.ModeLocal, s.lastQuery)
	case "c":
		if s.catalogue == nil || s.importing {
			return m, nil
		}
		s.importing = true
		return m, m.importCmd(*s.catalogue)
	case "X":
		if m.recent != nil {
			if err := m.recent.Clear(); err != nil {
				m.log.Warn("clearing recent searches", zap.Error(err))
			}
		}
		s.recent = nil
		return m, nil
	case "up", "k":
		s.list.moveUp(n)
	case "down", "j":
		s.list.moveDown(n)
	case "pgup", "ctrl+u":
		s.list.pageUp(n)
	case "pgdown", "ctrl+d":
		s.list.pageDown(n)
	case "home", "g":
		s.list.home(n)
	case "end", "G":
		s.list.end(n)
	case "enter", "l":
		if p := s.selected(); p != nil {
			return m.openDetail(p.SKU)
		}
	}
	return m, nil
}

// runSearch starts a query in mode. A blank catalogue query does nothing.
func (m Model) runSearch(mode product.Mode, query string) (tea.Model, tea.Cmd) {
	s := &m.search
	if mode.Catalogue() {
		query = strings.TrimSpace(query)
		if query == "" {
			return m, nil
		}
		// The previous hit is dropped as soon as a new lookup starts.
		s.catalogue = nil
		s.catalogueImage = ""
	}
	s.gens[mode]++
	s.loading[mode] = true
	gen := s.gens[mode]
	if mode == product.ModeLocal {
		return m, m.localSearchCmd(gen, query, s.activeOnly)
	}
	return m, m.catalogueSearchCmd(gen, mode, query)
}

func (m Model) localSearchCmd(gen int, query string, activeOnly bool) tea.Cmd {
	s, ctx := m.searcher, m.ctx
	return func() tea.Msg {
		return localResultsMsg{gen: gen, res: s.Local(ctx, query, activeOnly)}
	}
}

func (m Model) catalogueSearchCmd(gen int, mode product.Mode, query string) tea.Cmd {
	s, ctx := m.searcher, m.ctx
	return func() tea.Msg {
		return catalogueResultsMsg{gen: gen, res: s.Catalogue(ctx, mode, query)}
	}
}

func (m Model) importCmd(cp client.CatalogueProduct) tea.Cmd {
	s, ctx := m.searcher, m.ctx
	return func() tea.Msg {
		return importedMsg{res: s.Import(ctx, cp)}
	}
}

func (m Model) handleLocalResults(msg localResultsMsg) (tea.Model, tea.Cmd) {
	s := &m.search
	if msg.gen != s.gens[product.ModeLocal] {
		return m, nil
	}
	s.loading[product.ModeLocal] = false
	s.lastQuery = msg.res.Query
	s.err = msg.res.Err
	if msg.res.Err == nil {
		s.results = msg.res.Products
		s.list.reset()
	}
	if msg.res.Recent != nil {
		s.recent = msg.res.Recent
	}
	return m, m.notify(msg.res.Notice, searchToastDuration)
}

func (m Model) handleCatalogueResults(msg catalogueResultsMsg) (tea.Model, tea.Cmd) {
	s := &m.search
	mode := msg.res.Mode
	if msg.gen != s.gens[mode] {
		return m, nil
	}
	s.loading[mode] = false
	if msg.res.Err == nil && msg.res.Product != nil {
		s.catalogue = msg.res.Product
		s.catalogueMode = mode
		s.catalogueImage = msg.res.ImageURL
	}
	if msg.res.Recent != nil {
		s.recent = msg.res.Recent
	}
	return m, m.notify(msg.res.Notice, searchToastDuration)
}

func (m Model) handleImported(msg importedMsg) (tea.Model, tea.Cmd) {
	s := &m.search
	s.importing = false
	notice := m.notify(msg.res.Notice, searchToastDuration)
	if msg.res.Err != nil {
		return m, notice
	}
	s.catalogue = nil
	s.catalogueImage = ""
	next, search := m.runSearch(product.ModeLocal, s.lastQuery)
	return next, tea.Batch(notice, search)
}

func (s *searchModel) view(width int, spin string) string {
	var sb strings.Builder

	sb.WriteString("  ")
	sb.WriteString(s.input.View())
	sb.WriteString("\n")

	// Modes, each with its own spinner.
	var modes strings.Builder
	modes.WriteString("  ")
	for _, mode := range product.Modes {
		label := " " + mode.String() + " "
		if s.loading[mode] {
			label = " " + spin + mode.String() + " "
		}
		if mode == s.mode {
			modes.WriteString(tabActiveStyle.Render(label))
		} else {
			modes.WriteString(tabInactiveStyle.Render(label))
		}
		modes.WriteString(" ")
	}
	if s.activeOnly {
		modes.WriteString(activeBadge.Render("active labels only"))
	}
	sb.WriteString(padToWidth(modes.String(), width))
	sb.WriteString("\n")
	usedLines := 2

	if len(s.recent) > 0 {
		sb.WriteString(padToWidth(helpStyle.Render("  Recent: "+strings.Join(s.recent, " · ")), width))
		sb.WriteString("\n")
		usedLines++
	}
	sb.WriteString("\n")
	usedLines++

	if s.catalogue != nil {
		panel := s.cataloguePanel(width)
		sb.WriteString(panel)
		sb.WriteString("\n")
		usedLines += strings.Count(panel, "\n") + 1
	}

	if s.err != nil {
		sb.WriteString(padToWidth(errorStyle.Render(fmt.Sprintf("  Error: %v", s.err)), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if s.loading[product.ModeLocal] && len(s.results) == 0 {
		sb.WriteString(padToWidth(fmt.Sprintf("  %s Searching products...", spin), width))
		sb.WriteString("\n")
		return sb.String()
	}

	if len(s.results) == 0 {
		sb.WriteString(padToWidth(helpStyle.Render("  No products found."), width))
		sb.WriteString("\n")
		return sb.String()
	}

	sb.WriteString(padToWidth(helpStyle.Render(fmt.Sprintf("  %d products", len(s.results))), width))
	sb.WriteString("\n")
	usedLines++

	scrollInfoLines := 0
	if len(s.results) > s.height-usedLines {
		scrollInfoLines = 1
	}
	s.list.rows = max(1, s.height-usedLines-scrollInfoLines)

	start, end := s.list.visible(len(s.results))
	titleWidth := max(12, width-40)
	for i := start; i < end; i++ {
		p := s.results[i]
		line := fmt.Sprintf("  %s %s", skuStyle.Render(truncateText(p.SKU, 16)), truncateText(p.Title, titleWidth))
		if p.MasterProduct {
			line += " " + masterBadge.Render("master")
		}
		if p.HasActiveLabel() {
			line += " " + activeBadge.Render("label")
		}
		sb.WriteString(renderRow(line, width, i == s.list.cursor))
		sb.WriteString("\n")
	}

	if info := s.list.scrollInfo(len(s.results), "products"); info != "" {
		sb.WriteString(padToWidth(helpStyle.Render(info), width))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (s *searchModel) cataloguePanel(width int) string {
	cp := s.catalogue
	var lines []string
	lines = append(lines, sectionStyle.Render(fmt.Sprintf("Catalogue (%s)", s.catalogueMode)))
	field := func(name, value string) {
		if value == "" {
			value = "-"
		}
		lines = append(lines, fieldLabelStyle.Render(name)+value)
	}
	field("Title", cp.DisplayTitle())
	field("ID", cp.Key())
	field("Barcode", cp.Barcode)
	field("Catalogue number", cp.Catalogue)
	field("Image", s.catalogueImage)
	hint := "c: add to Label Manager"
	if s.importing {
		hint = "Adding..."
	}
	lines = append(lines, helpStyle.Render(hint))
	return borderStyle.Width(max(30, width-4)).Render(strings.Join(lines, "\n"))
}
