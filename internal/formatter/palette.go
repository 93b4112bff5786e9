package formatter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/radiosync/internal/models"
)

// Palette is a simple stylesheet built with named [lipgloss.Style] fields. A nil *Palette renders plain text.
type Palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
}

// NewPalette builds a palette from title, success, error, warning and help foreground colors.
func NewPalette(t, s, e, w, h string) *Palette {
	return &Palette{
		title: NewBold(t),
		ok:    NewBold(s),
		err:   NewBold(e),
		warn:  NewStyle(w),
		help:  NewEm(h),
	}
}

// DefaultPalette is used for terminal output.
func DefaultPalette() *Palette {
	return NewPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}

func (p *Palette) render(style func(*Palette) lipgloss.Style, s string) string {
	if p == nil {
		return s
	}
	return style(p).Render(s)
}

func (p *Palette) Title(s string) string { return p.render(func(p *Palette) lipgloss.Style { return p.title }, s) }
func (p *Palette) OK(s string) string    { return p.render(func(p *Palette) lipgloss.Style { return p.ok }, s) }
func (p *Palette) Err(s string) string   { return p.render(func(p *Palette) lipgloss.Style { return p.err }, s) }
func (p *Palette) Warn(s string) string  { return p.render(func(p *Palette) lipgloss.Style { return p.warn }, s) }
func (p *Palette) Help(s string) string  { return p.render(func(p *Palette) lipgloss.Style { return p.help }, s) }

// State renders s in the color of the sync state: synced green, failed red, skipped muted.
func (p *Palette) State(state models.SyncState, s string) string {
	switch state {
	case models.StateSynced:
		return p.OK(s)
	case models.StateFailed:
		return p.Err(s)
	default:
		return p.Help(s)
	}
}

// Mark is the one-rune status glyph for a sync state.
func Mark(state models.SyncState) string {
	switch state {
	case models.StateSynced:
		return "✓"
	case models.StateFailed:
		return "✗"
	default:
		return "-"
	}
}
