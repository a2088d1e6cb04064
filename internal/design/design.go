// internal/design/design.go

// Package design holds the static color and glyph tables shared by the
// console renderers.
package design

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Category is the coarse display bucket of a runtime value.
type Category int

const (
	Other Category = iota
	Int
	Float
	Str
	Bool
	None
	List
	Dict
	Tuple
	Set
	Callable
)

var categoryNames = [...]string{
	Other:    "other",
	Int:      "int",
	Float:    "float",
	Str:      "str",
	Bool:     "bool",
	None:     "none",
	List:     "list",
	Dict:     "dict",
	Tuple:    "tuple",
	Set:      "set",
	Callable: "callable",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "other"
	}
	return categoryNames[c]
}

// Tone groups log levels that share a console color.
type Tone int

const (
	ToneDefault Tone = iota
	ToneInfo
	ToneWarn
	ToneSuccess
	ToneFail
	ToneTest
)

// Type colors (ANSI 256 palette).
var typeColors = map[Category]lipgloss.Color{
	Int:      lipgloss.Color("39"),
	Float:    lipgloss.Color("33"),
	Str:      lipgloss.Color("208"),
	Bool:     lipgloss.Color("164"),
	None:     lipgloss.Color("245"),
	List:     lipgloss.Color("78"),
	Dict:     lipgloss.Color("220"),
	Tuple:    lipgloss.Color("141"),
	Set:      lipgloss.Color("204"),
	Callable: lipgloss.Color("123"),
	Other:    lipgloss.Color("183"),
}

var toneColors = map[Tone]lipgloss.Color{
	ToneInfo:    lipgloss.Color("14"),
	ToneWarn:    lipgloss.Color("11"),
	ToneSuccess: lipgloss.Color("10"),
	ToneFail:    lipgloss.Color("9"),
	ToneTest:    lipgloss.Color("12"),
}

// Glyphs.
const (
	ArrowRight = "→"
	ArrowLeft  = "←"
	ArrowUp    = "↑"
	ArrowDown  = "↓"
	Check      = "✓"
	Cross      = "✗"
	Star       = "★"
	Bullet     = "•"
	Diamond    = "◆"
	Circle     = "●"
	Square     = "■"
	Triangle   = "▲"
	Ellipsis   = "…"
	Scan       = "⚡"
	Var        = "◈"
	Type       = "◉"
	Line       = "▸"
	Return     = "⟼"
)

// Box is the single-line box-drawing set (┌ ┐ └ ┘ ─ │ ├ ┤ ┬ ┴ ┼).
var Box = lipgloss.NormalBorder()

// Palette binds the color tables to a renderer for one output.
type Palette struct {
	renderer *lipgloss.Renderer

	Frame     lipgloss.Style
	Dim       lipgloss.Style
	Title     lipgloss.Style
	Name      lipgloss.Style
	TypeLabel lipgloss.Style
	Marker    lipgloss.Style
	Changed   lipgloss.Style
	Returned  lipgloss.Style
	Failure   lipgloss.Style
	FailText  lipgloss.Style
	Elapsed   lipgloss.Style

	types map[Category]lipgloss.Style
	tones map[Tone]lipgloss.Style
}

// Option configures a Palette.
type Option func(*paletteConfig)

type paletteConfig struct {
	profile    termenv.Profile
	hasProfile bool
}

// WithProfile forces a color profile instead of detecting it from the
// output. termenv.Ascii disables colors entirely.
func WithProfile(p termenv.Profile) Option {
	return func(c *paletteConfig) {
		c.profile = p
		c.hasProfile = true
	}
}

// NewPalette creates a palette rendering for w.
func NewPalette(w io.Writer, opts ...Option) *Palette {
	var cfg paletteConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	r := lipgloss.NewRenderer(w)
	if cfg.hasProfile {
		r.SetColorProfile(cfg.profile)
	}

	p := &Palette{
		renderer:  r,
		Frame:     r.NewStyle().Foreground(lipgloss.Color("14")),
		Dim:       r.NewStyle().Faint(true),
		Title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		Name:      r.NewStyle().Foreground(lipgloss.Color("15")),
		TypeLabel: r.NewStyle().Foreground(lipgloss.Color("3")),
		Marker:    r.NewStyle().Foreground(lipgloss.Color("13")),
		Changed:   r.NewStyle().Foreground(lipgloss.Color("208")),
		Returned:  r.NewStyle().Foreground(lipgloss.Color("10")),
		Failure:   r.NewStyle().Foreground(lipgloss.Color("9")),
		FailText:  r.NewStyle().Foreground(lipgloss.Color("1")),
		Elapsed:   r.NewStyle().Foreground(lipgloss.Color("10")),
		types:     make(map[Category]lipgloss.Style, len(typeColors)),
		tones:     make(map[Tone]lipgloss.Style, len(toneColors)),
	}
	for c, col := range typeColors {
		p.types[c] = r.NewStyle().Foreground(col)
	}
	for t, col := range toneColors {
		p.tones[t] = r.NewStyle().Foreground(col)
	}
	return p
}

// Type returns the style for values of category c.
func (p *Palette) Type(c Category) lipgloss.Style {
	if s, ok := p.types[c]; ok {
		return s
	}
	return p.types[Other]
}

// Tone returns the style for a log level group. ToneDefault renders plain.
func (p *Palette) Tone(t Tone) lipgloss.Style {
	if s, ok := p.tones[t]; ok {
		return s
	}
	return p.renderer.NewStyle()
}

// Profile reports the color profile in use.
func (p *Palette) Profile() termenv.Profile {
	return p.renderer.ColorProfile()
}
