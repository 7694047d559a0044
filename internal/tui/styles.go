package tui

import "github.com/charmbracelet/lipgloss"

// Palette. Greens and reds double as label readiness colors.
var (
	colorBrand   = lipgloss.Color("#2563EB")
	colorAccent  = lipgloss.Color("#14B8A6")
	colorReady   = lipgloss.Color("#22C55E")
	colorPending = lipgloss.Color("#EAB308")
	colorFailed  = lipgloss.Color("#DC2626")
	colorDim     = lipgloss.Color("#71717A")
	colorRowBg   = lipgloss.Color("#27272A")
	colorBarBg   = lipgloss.Color("#18181B")
	colorBarFg   = lipgloss.Color("#A1A1AA")
	colorWhite   = lipgloss.Color("#FAFAFA")
)

// chip is the horizontally padded base most bars and badges build on.
var chip = lipgloss.NewStyle().Padding(0, 1)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorBrand).MarginBottom(1)
	bannerStyle  = lipgloss.NewStyle().Foreground(colorAccent).Italic(true)
	sectionStyle = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Underline(true)

	selectedStyle = chip.Bold(true).Foreground(colorWhite).Background(colorRowBg)
	normalStyle   = chip

	skuStyle        = lipgloss.NewStyle().Foreground(colorAccent).Bold(true).Width(16)
	fieldLabelStyle = lipgloss.NewStyle().Foreground(colorDim).Width(18)

	statusBarStyle   = chip.Foreground(colorBarFg).Background(colorBarBg)
	tabActiveStyle   = chip.Bold(true).Foreground(colorWhite).Background(colorBrand)
	tabInactiveStyle = chip.Foreground(colorBarFg).Background(colorRowBg)

	helpStyle    = lipgloss.NewStyle().Foreground(colorDim)
	errorStyle   = lipgloss.NewStyle().Foreground(colorFailed).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(colorReady)
	markedStyle  = lipgloss.NewStyle().Foreground(colorPending).Bold(true)

	progressBarFilled = lipgloss.NewStyle().Foreground(colorReady)
	progressBarEmpty  = lipgloss.NewStyle().Foreground(colorDim)

	searchPromptStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	activeBadge = chip.Foreground(colorReady).Background(lipgloss.Color("#052E16"))
	masterBadge = chip.Foreground(colorAccent).Background(lipgloss.Color("#042F2E"))

	borderStyle = chip.Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent)

	toastStyle      = chip.Bold(true).Foreground(colorWhite).Background(colorReady)
	toastErrorStyle = toastStyle.Background(colorFailed)
)
