package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const defaultTerminalWidth = 100

// Printer writes themed status lines and tables
type Printer struct {
	out      io.Writer
	palette  *Palette
	useIcons bool
	width    int
	quiet    bool
}

// PrinterOption customizes a Printer
type PrinterOption func(*Printer)

// WithOutput redirects printer output
func WithOutput(w io.Writer) PrinterOption {
	return func(p *Printer) { p.out = w }
}

// WithIcons toggles status icons
func WithIcons(enabled bool) PrinterOption {
	return func(p *Printer) { p.useIcons = enabled }
}

// WithQuiet suppresses everything except errors
func WithQuiet(quiet bool) PrinterOption {
	return func(p *Printer) { p.quiet = quiet }
}

// NewPrinter creates a printer with terminal width detection
func NewPrinter(theme ColorTheme, opts ...PrinterOption) *Printer {
	p := &Printer{
		out:      os.Stdout,
		palette:  NewPalette(theme),
		useIcons: true,
		width:    terminalWidth(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return defaultTerminalWidth
}

func (p *Printer) icon(glyph string) string {
	if !p.useIcons {
		return ""
	}
	return glyph + " "
}

// Successf prints a success line
func (p *Printer) Successf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	msg := p.icon("✓") + fmt.Sprintf(format, args...)
	fmt.Fprintln(p.out, p.palette.Colorize(msg, p.palette.theme.Success))
}

// Warnf prints a warning line
func (p *Printer) Warnf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	msg := p.icon("⚠") + fmt.Sprintf(format, args...)
	fmt.Fprintln(p.out, p.palette.Colorize(msg, p.palette.theme.Warning))
}

// Errorf prints an error line
func (p *Printer) Errorf(format string, args ...interface{}) {
	msg := p.icon("✗") + fmt.Sprintf(format, args...)
	fmt.Fprintln(p.out, p.palette.Colorize(msg, p.palette.theme.Error))
}

// Infof prints an informational line
func (p *Printer) Infof(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintln(p.out, p.palette.Sprintf(p.palette.theme.Info, format, args...))
}

// Headerf prints a highlighted section header
func (p *Printer) Headerf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	title := fmt.Sprintf(format, args...)
	fmt.Fprintln(p.out, p.palette.Colorize(title, p.palette.theme.Highlight))
	fmt.Fprintln(p.out, p.palette.Colorize(strings.Repeat("─", min(len(title), p.width)), p.palette.theme.Muted))
}

// Plainf prints an uncolored line
func (p *Printer) Plainf(format string, args ...interface{}) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Table renders rows as an aligned text table
func (p *Printer) Table(headers []string, rows [][]string) {
	if p.quiet || len(headers) == 0 {
		return
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			b.WriteString(cell)
			if i < len(widths)-1 {
				b.WriteString(strings.Repeat(" ", w-len(cell)+2))
			}
		}
		b.WriteString("\n")
	}

	writeRow(headers)
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	b.WriteString(strings.Repeat("─", min(total, p.width)))
	b.WriteString("\n")
	for _, row := range rows {
		writeRow(row)
	}

	fmt.Fprint(p.out, b.String())
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
