// Package output renders command results as tables, JSON or YAML.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Format is an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// Options holds the output flags shared by every command.
type Options struct {
	JSON   bool
	Output string
}

// AddFlags registers --json and --output on cmd.
func AddFlags(cmd *cobra.Command, o *Options) {
	cmd.PersistentFlags().BoolVar(&o.JSON, "json", false, "Output as JSON.")
	cmd.PersistentFlags().StringVarP(&o.Output, "output", "o", string(FormatTable), "Output format: table, json or yaml.")
}

// Format resolves the flags; --json wins over --output.
func (o *Options) Format() Format {
	if o.JSON {
		return FormatJSON
	}
	switch Format(strings.ToLower(o.Output)) {
	case FormatJSON:
		return FormatJSON
	case FormatYAML:
		return FormatYAML
	default:
		return FormatTable
	}
}

// Validate rejects unknown --output values.
func (o *Options) Validate() error {
	switch Format(strings.ToLower(o.Output)) {
	case "", FormatTable, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want table, json or yaml)", o.Output)
}

// HandleError prints err as {"error": "..."} when JSON output was requested
// and swallows it; otherwise err is returned unchanged.
func (o *Options) HandleError(w io.Writer, err error) error {
	if err == nil || o.Format() != FormatJSON {
		return err
	}
	b, merr := json.Marshal(map[string]string{"error": err.Error()})
	if merr != nil {
		return merr
	}
	_, _ = fmt.Fprintln(w, string(b))
	return nil
}

// Printer writes values in one format.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter returns a printer for o writing to w (color.Output when nil).
func (o *Options) NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = color.Output
	}
	return &Printer{w: w, format: o.Format()}
}

// Format returns the printer's format.
func (p *Printer) Format() Format {
	return p.format
}

// Print encodes v as JSON or YAML, or calls table to fill a table.
func (p *Printer) Print(v any, table func(t *uitable.Table)) error {
	switch p.format {
	case FormatJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.w, string(b))
		return err
	case FormatYAML:
		return p.printYAML(v)
	}

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.MaxColWidth = 60
	tbl.Wrap = true
	table(tbl)
	_, err := fmt.Fprintln(p.w, tbl)
	return err
}

// printYAML goes through JSON so field names match the API's.
func (p *Printer) printYAML(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return err
	}
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// Message prints a one-line outcome. Errors are red and successes green in
// table mode; structured formats get {"message": ..., "error": bool}.
func (p *Printer) Message(text string, isErr bool) error {
	if p.format != FormatTable {
		return p.Print(map[string]any{"message": text, "error": isErr}, nil)
	}
	c := color.New(color.FgGreen)
	if isErr {
		c = color.New(color.FgRed)
	}
	_, err := c.Fprintln(p.w, text)
	return err
}

// Header styles a table header cell.
func Header(s string) string {
	return color.New(color.Bold).Sprint(s)
}

// Good and Bad color a table cell.
func Good(s string) string { return color.GreenString(s) }
func Bad(s string) string  { return color.RedString(s) }

// YesNo renders a boolean as a colored check.
func YesNo(b bool) string {
	if b {
		return Good("yes")
	}
	return "no"
}
