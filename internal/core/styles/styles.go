// Package styles provides shared lipgloss styles for the CLI and the glamour
// style derived from the active theme.
package styles

import (
	"fmt"
	"sort"

	glamouransi "github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"
)

// Palette defines a minimal semantic theme palette as hex colors.
type Palette struct {
	Primary    string `yaml:"primary"`
	Secondary  string `yaml:"secondary"`
	Foreground string `yaml:"foreground"`
	Muted      string `yaml:"muted"`
	Background string `yaml:"background"`
	Success    string `yaml:"success"`
	Warning    string `yaml:"warning"`
	Error      string `yaml:"error"`
}

// DefaultTheme is the name of the default theme.
const DefaultTheme = "tokyo-night"

// themes holds the built-in named palettes.
var themes = map[string]Palette{
	"tokyo-night": {
		Primary:    "#7aa2f7",
		Secondary:  "#7dcfff",
		Foreground: "#c0caf5",
		Muted:      "#565f89",
		Background: "#1a1b26",
		Success:    "#9ece6a",
		Warning:    "#e0af68",
		Error:      "#f7768e",
	},
	"gruvbox": {
		Primary:    "#83a598",
		Secondary:  "#8ec07c",
		Foreground: "#ebdbb2",
		Muted:      "#665c54",
		Background: "#282828",
		Success:    "#b8bb26",
		Warning:    "#fabd2f",
		Error:      "#fb4934",
	},
	"solarized-light": {
		Primary:    "#268bd2",
		Secondary:  "#2aa198",
		Foreground: "#586e75",
		Muted:      "#93a1a1",
		Background: "#fdf6e3",
		Success:    "#859900",
		Warning:    "#b58900",
		Error:      "#dc322f",
	},
}

// ThemeNames returns sorted names of all built-in themes.
func ThemeNames() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetPalette returns the palette for the given theme name.
func GetPalette(name string) (Palette, bool) {
	p, ok := themes[name]
	return p, ok
}

// Validate checks that every color is a valid hex value.
func (p Palette) Validate() error {
	for name, hex := range p.fields() {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("%s: invalid color %q", name, hex)
		}
	}
	return nil
}

// Merge returns p with every non-empty color of override applied.
func (p Palette) Merge(override Palette) Palette {
	pick := func(base, o string) string {
		if o != "" {
			return o
		}
		return base
	}
	return Palette{
		Primary:    pick(p.Primary, override.Primary),
		Secondary:  pick(p.Secondary, override.Secondary),
		Foreground: pick(p.Foreground, override.Foreground),
		Muted:      pick(p.Muted, override.Muted),
		Background: pick(p.Background, override.Background),
		Success:    pick(p.Success, override.Success),
		Warning:    pick(p.Warning, override.Warning),
		Error:      pick(p.Error, override.Error),
	}
}

// Surface is the background blended a fifth of the way toward the foreground,
// used for headings and code block backgrounds.
func (p Palette) Surface() string {
	return blend(p.Background, p.Foreground, 0.2)
}

func (p Palette) fields() map[string]string {
	return map[string]string{
		"primary":    p.Primary,
		"secondary":  p.Secondary,
		"foreground": p.Foreground,
		"muted":      p.Muted,
		"background": p.Background,
		"success":    p.Success,
		"warning":    p.Warning,
		"error":      p.Error,
	}
}

// blend mixes two hex colors in Lab space. Invalid input returns a unchanged.
func blend(a, b string, t float64) string {
	ca, err := colorful.Hex(a)
	if err != nil {
		return a
	}
	cb, err := colorful.Hex(b)
	if err != nil {
		return a
	}
	return ca.BlendLab(cb, t).Clamped().Hex()
}

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

// Style exports.
var (
	HeaderStyle    lipgloss.Style
	MutedStyle     lipgloss.Style
	DividerStyle   lipgloss.Style
	IDStyle        lipgloss.Style
	SuccessStyle   lipgloss.Style
	WarningStyle   lipgloss.Style
	ErrorStyle     lipgloss.Style
	UserStyle      lipgloss.Style
	AssistantStyle lipgloss.Style
	BadgeStyle     lipgloss.Style
)

// ColorPool is used for deterministic color hashing of languages and personas.
var ColorPool []string

// SetTheme sets the active palette and rebuilds all global styles.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Primary)).
		Bold(true)
	MutedStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Muted))
	DividerStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Surface()))
	IDStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Secondary))

	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Success))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Warning))
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(p.Error)).Bold(true)

	UserStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Secondary)).
		Bold(true)
	AssistantStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(p.Primary)).
		Bold(true)
	BadgeStyle = lipgloss.NewStyle().
		Padding(0, 1)

	ColorPool = []string{
		p.Primary,
		p.Secondary,
		p.Success,
		p.Warning,
		p.Error,
	}
}

// ColorForString returns a deterministic color for a given string.
// The same string always produces the same color.
func ColorForString(s string) lipgloss.Color {
	var hash uint32
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}
	return lipgloss.Color(ColorPool[hash%uint32(len(ColorPool))])
}

// Badge renders s as a small colored label.
func Badge(s string) string {
	return BadgeStyle.Foreground(ColorForString(s)).Render(s)
}

// FormTheme returns a huh theme using the active palette.
func FormTheme() *huh.Theme {
	p := CurrentPalette
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(lipgloss.Color(p.Primary))
	t.Focused.Title = t.Focused.Title.Foreground(lipgloss.Color(p.Primary)).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(lipgloss.Color(p.Muted))
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(lipgloss.Color(p.Secondary))
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(lipgloss.Color(p.Success))
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(lipgloss.Color(p.Error))
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(lipgloss.Color(p.Error))

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	t.Blurred.Title = t.Blurred.Title.Foreground(lipgloss.Color(p.Muted)).Bold(false)

	return t
}

// nolint:gochecknoinits // bootstrap default theme before any style is accessed.
func init() {
	SetTheme(themes[DefaultTheme])
}

// GlamourStyle returns a Glamour style config derived from the active theme.
func GlamourStyle() glamouransi.StyleConfig {
	p := CurrentPalette

	cfg := glamourstyles.DarkStyleConfig
	if isLight(p.Background) {
		cfg = glamourstyles.LightStyleConfig
	}

	fg := &p.Foreground
	primary := &p.Primary
	secondary := &p.Secondary
	muted := &p.Muted
	surface := ptr(p.Surface())

	cfg.Document.Color = fg

	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = surface
	cfg.H2.Color = primary
	cfg.H3.Color = primary
	cfg.H4.Color = primary
	cfg.H5.Color = primary
	cfg.H6.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	cfg.Table.Color = fg

	return cfg
}

func isLight(hex string) bool {
	c, err := colorful.Hex(hex)
	if err != nil {
		return false
	}
	l, _, _ := c.Lab()
	return l > 0.6
}

func ptr(s string) *string { return &s }
