package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/config"
	"github.com/JohnDeved/labelctl/internal/journal"
	"github.com/JohnDeved/labelctl/internal/product"
	"github.com/JohnDeved/labelctl/internal/recent"
)

// Tab identifies the active view.
type Tab int

const (
	TabSearch Tab = iota
	TabDetail
	TabUpload
	TabDashboard
)

var tabNames = []string{"Search", "Product", "Upload", "Dashboard"}

type helloMsg struct {
	message string
	err     error
}

type toastExpiredMsg struct{ id int }

// Deps are the services the TUI talks to. Journal may be nil.
type Deps struct {
	Client  *client.Client
	Recent  *recent.Store
	Journal *journal.DB
	Config  *config.Config
	Logger  *zap.Logger
}

// programRef lets callbacks running outside Update reach the program once
// it exists.
type programRef struct {
	p *tea.Program
}

func (r *programRef) send(msg tea.Msg) {
	if r != nil && r.p != nil {
		r.p.Send(msg)
	}
}

// Model is the main Bubble Tea model.
type Model struct {
	ctx      context.Context
	client   *client.Client
	searcher *product.Searcher
	recent   *recent.Store
	journal  *journal.DB
	cfg      *config.Config
	log      *zap.Logger
	program  *programRef
	now      func() time.Time

	activeTab   Tab
	search      searchModel
	detail      detailModel
	upload      uploadModel
	dashboard   dashboardModel
	spinner     spinner.Model
	width       int
	height      int
	showHelp    bool
	helpOffset  int
	hello       string
	toast       Toast
	toastID     int
	quitConfirm bool
}

// NewModel creates the TUI model opened at route.
func NewModel(ctx context.Context, deps Deps, route string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot

	cfg := deps.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	var history product.History
	if deps.Recent != nil {
		history = deps.Recent
	}

	m := Model{
		ctx:       ctx,
		client:    deps.Client,
		searcher:  product.NewSearcher(deps.Client, history, log),
		recent:    deps.Recent,
		journal:   deps.Journal,
		cfg:       cfg,
		log:       log,
		program:   &programRef{},
		now:       time.Now,
		search:    newSearchModel(),
		detail:    newDetailModel(),
		upload:    newUploadModel(),
		spinner:   s,
		activeTab: TabSearch,
	}
	if deps.Recent != nil {
		m.search.recent = deps.Recent.List()
	}

	// The search page always starts with an unfiltered local search.
	m.search.gens[product.ModeLocal] = 1
	m.search.loading[product.ModeLocal] = true

	r := ParseRoute(route)
	if r.Tab == TabDetail {
		m.activeTab = TabDetail
		m.detail.open(r.SKU)
	} else {
		m.search.input.Focus()
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		m.helloCmd(),
		m.localSearchCmd(m.search.gens[product.ModeLocal], "", m.search.activeOnly),
		textinput.Blink,
	}
	if m.activeTab == TabDetail {
		cmds = append(cmds, m.loadDetailCmd(m.detail.sku, m.detail.gen))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewHeight := m.height - 8 // Account for header, tabs, status bar
		m.search.height = viewHeight
		m.detail.height = viewHeight
		m.upload.height = viewHeight
		m.search.list.rows = max(1, viewHeight-6)
		m.detail.list.rows = max(1, viewHeight-4)
		m.upload.list.rows = max(1, viewHeight-4)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case helloMsg:
		if msg.err != nil {
			m.log.Warn("hello failed", zap.Error(msg.err))
			return m, nil
		}
		m.hello = msg.message
		return m, nil

	case localResultsMsg:
		return m.handleLocalResults(msg)
	case catalogueResultsMsg:
		return m.handleCatalogueResults(msg)
	case importedMsg:
		return m.handleImported(msg)

	case detailLoadedMsg:
		return m.handleDetailLoaded(msg)
	case catalogueMsg:
		return m.handleCatalogue(msg)
	case labelsMsg:
		return m.handleLabels(msg)
	case savedMsg:
		return m.handleSaved(msg)
	case labelUploadedMsg:
		return m.handleLabelUploaded(msg)
	case labelDeletedMsg:
		return m.handleLabelDeleted(msg)
	case fileSavedMsg:
		return m.handleFileSaved(msg)

	case batchUpdateMsg:
		m.upload.refresh()
		return m, nil
	case batchDoneMsg:
		return m.handleBatchDone(msg)

	case dashboardMsg:
		return m.handleDashboard(msg)

	case toastExpiredMsg:
		// Visibility is decided in View; this only forces a redraw.
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Pass through to whichever input is focused.
	var cmd tea.Cmd
	switch m.activeTab {
	case TabSearch:
		m.search.input, cmd = m.search.input.Update(msg)
	case TabDetail:
		m.detail.input, cmd = m.detail.input.Update(msg)
	case TabUpload:
		m.upload.input, cmd = m.upload.input.Update(msg)
	}
	return m, cmd
}

// inputFocused reports whether keys should go to a text input first.
func (m Model) inputFocused() bool {
	switch m.activeTab {
	case TabSearch:
		return m.search.input.Focused()
	case TabDetail:
		return m.detail.inputMode != inputNone
	case TabUpload:
		return m.upload.input.Focused()
	}
	return false
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	typing := m.inputFocused()

	if m.showHelp {
		switch key {
		case "?", "esc":
			m.showHelp = false
			m.helpOffset = 0
			return m, nil
		case "up", "k":
			m.scrollHelp(-1)
			return m, nil
		case "down", "j":
			m.scrollHelp(1)
			return m, nil
		case "pgup", "ctrl+u":
			m.scrollHelp(-m.helpRows())
			return m, nil
		case "pgdown", "ctrl+d":
			m.scrollHelp(m.helpRows())
			return m, nil
		case "home", "g":
			m.helpOffset = 0
			return m, nil
		}
	}

	if key == "ctrl+c" || (key == "q" && !typing) {
		if m.quitConfirm {
			m.upload.cancelRun()
			return m, tea.Quit
		}
		if m.upload.uploading() {
			m.quitConfirm = true
			return m, m.notify(product.Notice{Text: "Uploads running. Press q again to cancel them and quit, or Esc to stay", Error: true}, detailToastDuration)
		}
		return m, tea.Quit
	}
	if key == "esc" && m.quitConfirm {
		m.quitConfirm = false
		return m, m.notify(product.Notice{Text: "Quit canceled"}, detailToastDuration)
	}

	switch key {
	case "tab":
		return m.switchTab((m.activeTab + 1) % Tab(len(tabNames)))
	case "shift+tab":
		return m.switchTab((m.activeTab + Tab(len(tabNames)) - 1) % Tab(len(tabNames)))
	}

	if typing {
		return m.handleTabKey(key, msg)
	}

	switch key {
	case "?":
		m.showHelp = !m.showHelp
		if !m.showHelp {
			m.helpOffset = 0
		}
		return m, nil
	case "1":
		return m.switchTab(TabSearch)
	case "2":
		return m.switchTab(TabDetail)
	case "3":
		return m.switchTab(TabUpload)
	case "4":
		return m.switchTab(TabDashboard)
	}

	return m.handleTabKey(key, msg)
}

func (m Model) handleTabKey(key string, msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.activeTab {
	case TabSearch:
		return m.handleSearchKey(key, msg)
	case TabDetail:
		return m.handleDetailKey(key, msg)
	case TabUpload:
		return m.handleUploadKey(key, msg)
	case TabDashboard:
		return m.handleDashboardKey(key)
	}
	return m, nil
}

func (m Model) switchTab(t Tab) (tea.Model, tea.Cmd) {
	m.quitConfirm = false
	m.search.input.Blur()
	m.upload.input.Blur()
	m.detail.cancelInput()
	m.activeTab = t
	switch t {
	case TabSearch:
		m.search.input.Focus()
	case TabUpload:
		m.upload.refresh()
		if m.upload.batch == nil {
			m.upload.input.Focus()
		}
	case TabDashboard:
		return m.fetchDashboard()
	}
	return m, nil
}

// activeList returns the cursor and row count of the current tab's list.
func (m *Model) activeList() (*listCursor, int) {
	switch m.activeTab {
	case TabSearch:
		return &m.search.list, len(m.search.results)
	case TabDetail:
		return &m.detail.list, len(m.detail.rows())
	case TabUpload:
		return &m.upload.list, len(m.upload.items)
	}
	return nil, 0
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	delta := 0
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		delta = -1
	case tea.MouseButtonWheelDown:
		delta = 1
	default:
		return m, nil
	}
	if m.showHelp {
		m.scrollHelp(delta)
		return m, nil
	}
	if l, n := m.activeList(); l != nil {
		if delta < 0 {
			l.moveUp(n)
		} else {
			l.moveDown(n)
		}
	}
	return m, nil
}

func (m Model) helloCmd() tea.Cmd {
	c, ctx := m.client, m.ctx
	return func() tea.Msg {
		msg, err := c.Hello(ctx)
		return helloMsg{message: msg, err: err}
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("  Label Manager  "))
	if m.hello != "" {
		sb.WriteString("  ")
		sb.WriteString(bannerStyle.Render(m.hello))
	}
	sb.WriteString("\n")

	var tabLine strings.Builder
	for i, name := range tabNames {
		label := fmt.Sprintf(" %d %s ", i+1, name)
		style := tabInactiveStyle
		if m.activeTab == Tab(i) {
			style = tabActiveStyle
		}
		tabLine.WriteString(style.Render(label) + " ")
	}
	if m.upload.uploading() {
		s := m.upload.summary()
		tabLine.WriteString(successStyle.Render(fmt.Sprintf(" [%d/%d uploaded]", s.Succeeded+s.Failed, s.Total)))
	}
	if m.detail.dirty && m.activeTab == TabDetail {
		tabLine.WriteString(markedStyle.Render(" [unsaved]"))
	}

	sb.WriteString(tabLine.String())
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")

	// Content area.
	if m.showHelp {
		sb.WriteString(m.helpView())
	} else {
		spin := m.spinner.View()
		switch m.activeTab {
		case TabSearch:
			sb.WriteString(m.search.view(m.width, spin))
		case TabDetail:
			sb.WriteString(m.detail.view(m.width, spin))
		case TabUpload:
			sb.WriteString(m.upload.view(m.width))
		case TabDashboard:
			sb.WriteString(m.dashboard.view(m.width, spin))
		}
	}

	// Status bar.
	statusLine := m.defaultStatus()
	if m.toast.Visible(m.now()) {
		statusLine = m.toast.render()
	}
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("─", m.width))
	sb.WriteString("\n")
	sb.WriteString(statusBarStyle.Width(m.width).Render(statusLine))

	return sb.String()
}

func (m Model) defaultStatus() string {
	if m.quitConfirm {
		return "Uploads running: q again to cancel and quit, Esc to stay"
	}
	switch m.activeTab {
	case TabSearch:
		if m.search.input.Focused() {
			return "Enter:search  Ctrl+T:mode  Up/Down:recent  Esc:results  ?:help"
		}
		return "/:search  m:mode  a:active only  j/k:navigate  Enter:open  c:add to Label Manager  ?:help"
	case TabDetail:
		if l := m.detail.confirmDelete; l != nil {
			return fmt.Sprintf("Delete label v%d %s? y/Enter confirm, n/Esc cancel", l.Version, l.FileName)
		}
		switch m.detail.inputMode {
		case inputEdit:
			return "Enter:apply  Esc:cancel"
		case inputUpload:
			return "Enter:upload file  Esc:cancel"
		}
		return "j/k:navigate  e:edit  [ ]:territory  Space:toggle  s:save  u:upload  x:delete  p:preview  D:download all  ?:help"
	case TabUpload:
		if m.upload.input.Focused() {
			return "Enter:list matching files  Esc:list  ?:help"
		}
		if m.upload.batch != nil && m.upload.batch.Pending() > 0 && !m.upload.uploading() {
			return "U:upload pending  /:choose files  j/k:navigate  x:clear  ?:help"
		}
		return "/:choose files  j/k:navigate  U:upload  R:retry failed  x:clear  ?:help"
	case TabDashboard:
		return "r:refresh  ?:help"
	}
	return ""
}

// notify shows n for d, or for the configured toast time when set.
func (m *Model) notify(n product.Notice, d time.Duration) tea.Cmd {
	if n.Text == "" {
		return nil
	}
	if m.cfg.ToastSeconds > 0 {
		d = time.Duration(m.cfg.ToastSeconds) * time.Second
	}
	m.toast = NewToast(n, m.now(), d)
	m.toastID++
	id := m.toastID
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

// Run starts the TUI at route.
func Run(ctx context.Context, deps Deps, route string) error {
	m := NewModel(ctx, deps, route)

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	// Upload batches created later report progress through this.
	m.program.p = p

	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.upload.cancelRun()
	}
	return err
}
