// Package output renders command results as text, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// Format represents an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Writer writes results in the selected format.
type Writer struct {
	format Format
	w      io.Writer
	quiet  bool
}

// NewWriter creates a new output writer.
func NewWriter(w io.Writer, format Format) *Writer {
	return &Writer{format: format, w: w}
}

// SetQuiet suppresses Printf output. Structured results from Write are
// always written.
func (w *Writer) SetQuiet(quiet bool) {
	w.quiet = quiet
}

// Format returns the configured format.
func (w *Writer) Format() Format {
	return w.format
}

// Structured reports whether the writer emits machine-readable output.
func (w *Writer) Structured() bool {
	return w.format == FormatJSON || w.format == FormatYAML
}

// Write outputs v in the configured format. In text mode v is printed with
// its String method when it has one.
func (w *Writer) Write(v any) error {
	switch w.format {
	case FormatJSON:
		enc := json.NewEncoder(w.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w.w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		if s, ok := v.(fmt.Stringer); ok {
			_, err := fmt.Fprintln(w.w, s.String())
			return err
		}
		_, err := fmt.Fprintf(w.w, "%+v\n", v)
		return err
	}
}

// Printf writes a human-oriented message in text mode only.
func (w *Writer) Printf(format string, args ...any) {
	if w.quiet || w.Structured() {
		return
	}
	_, _ = fmt.Fprintf(w.w, format, args...)
}

// Field is one row of a KeyValues listing.
type Field struct {
	Key   string
	Value any
}

// KeyValues renders aligned "key: value" rows. Empty string values print
// as "-".
type KeyValues []Field

func (kv KeyValues) String() string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 4, 1, ' ', 0)
	for _, f := range kv {
		v := fmt.Sprint(f.Value)
		if v == "" {
			v = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s:\t%s\n", f.Key, v)
	}
	_ = tw.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// MarshalJSON emits the rows as an object in row order.
func (kv KeyValues) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, f := range kv {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// MarshalYAML emits the rows as a mapping in row order.
func (kv KeyValues) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range kv {
		var value yaml.Node
		if err := value.Encode(f.Value); err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Key},
			&value)
	}
	return node, nil
}

// ParseFormat parses a format string into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format: %s", s)
	}
}
