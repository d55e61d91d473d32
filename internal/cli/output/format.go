// Package output renders command results as tables, JSON, YAML or dotenv.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is an output format accepted by --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	// FormatEnv prints KEY="value" lines that shells and dotenv loaders read.
	FormatEnv Format = "env"
)

// ParseFormat parses a --output value. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "env", "dotenv":
		return FormatEnv, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml, env)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Printer writes command results in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer writing to out.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// StdoutPrinter creates a Printer on stdout, with color when stdout is a
// terminal and NO_COLOR is unset.
func StdoutPrinter(format Format, noColor bool) *Printer {
	return NewPrinter(os.Stdout, format, !noColor && ColorSupported(os.Stdout))
}

// ColorSupported reports whether ANSI colors should be written to w.
func ColorSupported(w io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (p *Printer) Format() Format {
	return p.format
}

func (p *Printer) Writer() io.Writer {
	return p.out
}

func (p *Printer) ColorEnabled() bool {
	return p.color
}

// Print writes data in the printer's format.
//
// Table output needs a TableRenderer and env output an EnvRenderer; data
// implementing neither falls back to YAML, which keeps settings trees
// readable.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatTable:
		if r, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, r)
		}
		return PrintYAML(p.out, data)
	case FormatEnv:
		if r, ok := data.(EnvRenderer); ok {
			return PrintEnv(p.out, r.Env())
		}
		return fmt.Errorf("%T cannot be printed as env", data)
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

// Println prints only in table format, so structured output stays parseable.
func (p *Printer) Println(args ...any) {
	if p.format != FormatTable {
		return
	}
	_, _ = fmt.Fprintln(p.out, args...)
}

func (p *Printer) Success(msg string) {
	p.status("32", msg)
}

func (p *Printer) Warning(msg string) {
	p.status("33", msg)
}

func (p *Printer) Error(msg string) {
	p.status("31", msg)
}

func (p *Printer) status(code, msg string) {
	if p.format != FormatTable {
		return
	}
	if p.color {
		_, _ = fmt.Fprintf(p.out, "\033[%sm%s\033[0m\n", code, msg)
		return
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
