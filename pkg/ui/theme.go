package ui

import (
	"os"

	"github.com/vanderheijden86/graph3d/pkg/model"
	"github.com/vanderheijden86/graph3d/pkg/valuation"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Roles
	Source       lipgloss.AdaptiveColor
	Sink         lipgloss.AdaptiveColor
	Intermediate lipgloss.AdaptiveColor
	Disconnected lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Edge      lipgloss.AdaptiveColor
	Focus     lipgloss.AdaptiveColor

	// Styles
	Base      lipgloss.Style
	Selected  lipgloss.Style
	Header    lipgloss.Style
	Status    lipgloss.Style
	Panel     lipgloss.Style
	MutedText lipgloss.Style
	EdgeLine  lipgloss.Style
	FocusMark lipgloss.Style
	Positive  lipgloss.Style
	Negative  lipgloss.Style
	KeyText   lipgloss.Style

	nodeStyles map[model.NodeType]lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},

		Source:       lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Sink:         lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Intermediate: lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Disconnected: lipgloss.AdaptiveColor{Light: "#888888", Dark: "#44475A"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Edge:      lipgloss.AdaptiveColor{Light: "#8A8F98", Dark: "#8A8F98"},
		Focus:     lipgloss.AdaptiveColor{Light: "#B8860B", Dark: "#FFD700"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Status = r.NewStyle().
		Foreground(t.Subtext).
		Background(t.Highlight).
		Padding(0, 1)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.EdgeLine = r.NewStyle().Foreground(t.Edge)
	t.FocusMark = r.NewStyle().Foreground(t.Focus).Bold(true)
	t.Positive = r.NewStyle().Foreground(t.Intermediate)
	t.Negative = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"})
	t.KeyText = r.NewStyle().Foreground(t.Primary).Bold(true)

	t.nodeStyles = make(map[model.NodeType]lipgloss.Style, 4)
	for _, typ := range []model.NodeType{model.TypePrimary, model.TypeSecondary, model.TypeTertiary, model.TypeDefault} {
		t.nodeStyles[typ] = r.NewStyle().Foreground(ThemeFg(valuation.ColorForType(typ).Hex()))
	}

	return t
}

// NodeStyle colors a node glyph with its type's palette entry.
func (t Theme) NodeStyle(typ model.NodeType) lipgloss.Style {
	if s, ok := t.nodeStyles[typ.Normalize()]; ok {
		return s
	}
	return t.nodeStyles[model.TypeDefault]
}

func (t Theme) GetRoleIcon(r model.Role) (string, lipgloss.AdaptiveColor) {
	switch r {
	case model.RoleSource:
		return "↑", t.Source
	case model.RoleSink:
		return "↓", t.Sink
	case model.RoleIntermediate:
		return "⇅", t.Intermediate
	default:
		return "·", t.Disconnected
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
