// Package output renders predictions, training runs and ownership reports
// as human-readable text or as JSON/YAML for scripting.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rohankatakam/ownerscope/internal/errors"
)

// Format selects how a Printer encodes results
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format flag value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", errors.ValidationErrorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// Printer writes reports to w in one format
type Printer struct {
	format Format
	w      io.Writer
}

// NewPrinter creates a printer for format writing to w
func NewPrinter(format Format, w io.Writer) *Printer {
	if format == "" {
		format = FormatText
	}
	return &Printer{format: format, w: w}
}

// Format returns the printer's format
func (p *Printer) Format() Format {
	return p.format
}

// emit encodes v for the structured formats. It returns false for text,
// leaving rendering to the caller.
func (p *Printer) emit(v any) (bool, error) {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return true, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityLow, "failed to encode json output")
		}
		return true, nil
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return true, errors.Wrap(err, errors.ErrorTypeInternal, errors.SeverityLow, "failed to encode yaml output")
		}
		return true, enc.Close()
	default:
		return false, nil
	}
}

func (p *Printer) printf(format string, args ...any) {
	fmt.Fprintf(p.w, format, args...)
}

const rule = "─────────────────────────────────────────────"
