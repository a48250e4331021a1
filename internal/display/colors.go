package display

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Color identifies a terminal foreground color
type Color int

const (
	ColorReset Color = iota
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
	ColorBrightRed
	ColorBrightGreen
	ColorBrightYellow
	ColorBrightBlue
	ColorBrightCyan
	ColorBrightWhite
)

// ColorTheme maps semantic roles to colors
type ColorTheme struct {
	Primary   Color
	Success   Color
	Warning   Color
	Error     Color
	Info      Color
	Muted     Color
	Highlight Color
}

// Palette applies theme colors to text with terminal detection
type Palette struct {
	theme     ColorTheme
	supported bool
	profile   termenv.Profile
	colorMap  map[Color]*color.Color
}

// NewPalette creates a palette with automatic terminal detection
func NewPalette(theme ColorTheme) *Palette {
	p := &Palette{
		theme:     theme,
		supported: detectColorSupport(),
		profile:   termenv.ColorProfile(),
	}
	p.colorMap = map[Color]*color.Color{
		ColorReset:        color.New(color.Reset),
		ColorRed:          color.New(color.FgRed),
		ColorGreen:        color.New(color.FgGreen),
		ColorYellow:       color.New(color.FgYellow),
		ColorBlue:         color.New(color.FgBlue),
		ColorMagenta:      color.New(color.FgMagenta),
		ColorCyan:         color.New(color.FgCyan),
		ColorWhite:        color.New(color.FgWhite),
		ColorBrightRed:    color.New(color.FgHiRed),
		ColorBrightGreen:  color.New(color.FgHiGreen),
		ColorBrightYellow: color.New(color.FgHiYellow),
		ColorBrightBlue:   color.New(color.FgHiBlue),
		ColorBrightCyan:   color.New(color.FgHiCyan),
		ColorBrightWhite:  color.New(color.FgHiWhite),
	}
	if !p.supported {
		color.NoColor = true
	}
	return p
}

// detectColorSupport checks whether stdout can render ANSI colors
func detectColorSupport() bool {
	if os.Getenv("FORCE_COLOR") != "" {
		return true
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return false
	}
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		return false
	}
	return true
}

// Colorize applies a color to text when supported
func (p *Palette) Colorize(text string, clr Color) string {
	if !p.supported {
		return text
	}
	if fn, ok := p.colorMap[clr]; ok {
		return fn.Sprint(text)
	}
	return text
}

// Sprintf formats text and applies a color
func (p *Palette) Sprintf(clr Color, format string, args ...interface{}) string {
	return p.Colorize(fmt.Sprintf(format, args...), clr)
}

// Supported reports whether color output is active
func (p *Palette) Supported() bool {
	return p.supported
}

// Theme returns the active theme
func (p *Palette) Theme() ColorTheme {
	return p.theme
}

// DarkTheme returns a theme suited to dark terminals
func DarkTheme() ColorTheme {
	return ColorTheme{
		Primary:   ColorBrightBlue,
		Success:   ColorBrightGreen,
		Warning:   ColorBrightYellow,
		Error:     ColorBrightRed,
		Info:      ColorCyan,
		Muted:     ColorWhite,
		Highlight: ColorBrightWhite,
	}
}

// LightTheme returns a theme suited to light terminals
func LightTheme() ColorTheme {
	return ColorTheme{
		Primary:   ColorBlue,
		Success:   ColorGreen,
		Warning:   ColorYellow,
		Error:     ColorRed,
		Info:      ColorCyan,
		Muted:     ColorMagenta,
		Highlight: ColorBlue,
	}
}

// PlainTheme returns a colorless theme
func PlainTheme() ColorTheme {
	return ColorTheme{}
}

// ThemeByName resolves a theme from its configured name
func ThemeByName(name string) ColorTheme {
	switch name {
	case "light":
		return LightTheme()
	case "plain", "none":
		return PlainTheme()
	default:
		return DarkTheme()
	}
}
