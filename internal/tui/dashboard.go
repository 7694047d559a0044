package tui

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/JohnDeved/labelctl/internal/client"
	"github.com/JohnDeved/labelctl/internal/journal"
	"github.com/JohnDeved/labelctl/internal/product"
	"github.com/JohnDeved/labelctl/internal/util"
)

type dashboardMsg struct {
	gen     int
	stats   *client.DashboardStats
	history *journal.Stats
	err     error
}

// dashboardModel shows the backend's statistics payload and, when a journal
// is open, local upload history counts.
type dashboardModel struct {
	gen     int
	loading bool
	stats   *client.DashboardStats
	history *journal.Stats
	err     error
}

func (m Model) fetchDashboard() (tea.Model, tea.Cmd) {
	m.dashboard.gen++
	m.dashboard.loading = true
	gen := m.dashboard.gen
	c, ctx, j, log := m.client, m.ctx, m.journal, m.log
	return m, func() tea.Msg {
		msg := dashboardMsg{gen: gen}
		msg.stats, msg.err = c.DashboardStats(ctx)
		if j != nil {
			if hs, err := j.GetStats(); err != nil {
				log.Warn("reading upload journal", zap.Error(err))
			} else {
				msg.history = &hs
			}
		}
		return msg
	}
}

func (m Model) handleDashboardKey(key string) (tea.Model, tea.Cmd) {
	if key == "r" {
		return m.fetchDashboard()
	}
	return m, nil
}

func (m Model) handleDashboard(msg dashboardMsg) (tea.Model, tea.Cmd) {
	d := &m.dashboard
	if msg.gen != d.gen {
		return m, nil
	}
	d.loading = false
	d.history = msg.history
	d.err = msg.err
	if msg.err != nil {
		return m, m.notify(product.Notice{Text: "Failed to load dashboard: " + client.StatusText(msg.err), Error: true}, detailToastDuration)
	}
	d.stats = msg.stats
	return m, nil
}

func (d *dashboardModel) view(width int, spin string) string {
	var sb strings.Builder
	line := func(s string) {
		sb.WriteString(padToWidth(s, width))
		sb.WriteString("\n")
	}
	field := func(name, value string) {
		line("  " + fieldLabelStyle.Render(name) + value)
	}

	if d.loading && d.stats == nil {
		line(fmt.Sprintf("  %s Loading statistics...", spin))
		return sb.String()
	}
	if d.err != nil && d.stats == nil {
		line(errorStyle.Render(fmt.Sprintf("  Error: %v", d.err)))
		return sb.String()
	}

	if s := d.stats; s != nil {
		title := "  " + sectionStyle.Render("Products")
		if d.loading {
			title += " " + spin
		}
		line(title)
		field("Total", fmt.Sprintf("%d", s.TotalProducts))
		field("Ready", util.Readiness(s.ReadyProducts, s.TotalProducts, s.ReadinessPercentage))
		field("Readiness", renderProgressBar(s.ReadinessPercentage/100, 30))
		sb.WriteString("\n")

		if len(s.CategoryDistribution) > 0 {
			line("  " + sectionStyle.Render("Categories"))
			cats := make([]string, 0, len(s.CategoryDistribution))
			for c := range s.CategoryDistribution {
				cats = append(cats, c)
			}
			sort.Strings(cats)
			for _, c := range cats {
				field(c, fmt.Sprintf("%d", s.CategoryDistribution[c]))
			}
			sb.WriteString("\n")
		}

		if extra := s.ExtraKeys(); len(extra) > 0 {
			line("  " + sectionStyle.Render("Other"))
			for _, k := range extra {
				field(k, truncateText(client.FormatValue(s.Raw[k]), max(12, width-24)))
			}
			sb.WriteString("\n")
		}
	}

	if h := d.history; h != nil {
		line("  " + sectionStyle.Render("Upload history"))
		field("Batches", fmt.Sprintf("%d", h.Batches))
		field("Uploads", fmt.Sprintf("%d", h.Uploads))
		field("Succeeded", successStyle.Render(fmt.Sprintf("%d", h.Succeeded)))
		field("Failed", errorStyle.Render(fmt.Sprintf("%d", h.Failed)))
	}
	return sb.String()
}
