package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"gopkg.in/yaml.v3"
)

// Mode selects how an envelope is rendered.
type Mode string

const (
	// ModeTable renders aligned columns with an uppercase header row.
	ModeTable Mode = "table"
	// ModeList renders each record as "key: value" lines.
	ModeList Mode = "list"
	// ModeJSON is the machine-parseable structured mode.
	ModeJSON Mode = "json"
	// ModeYAML renders the same structure as YAML.
	ModeYAML Mode = "yaml"
	// ModeOneline prints a single scalar per record, for scripting.
	ModeOneline Mode = "oneline"
)

// ParseMode validates a format string from a flag or environment variable.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTable, ModeList, ModeJSON, ModeYAML, ModeOneline:
		return Mode(s), nil
	case "":
		return ModeTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (valid: table, list, json, yaml, oneline)", s)
	}
}

// Human reports whether the mode targets people rather than parsers.
// Progress indication is suppressed for non-human modes.
func (m Mode) Human() bool {
	return m == ModeTable || m == ModeList
}

// nullPlaceholder is rendered for missing and null field values.
const nullPlaceholder = "-"

// Options control rendering. Fields restricts and reorders columns;
// SortBy orders records by one field before rendering.
type Options struct {
	Mode       Mode
	Fields     []string
	SortBy     string
	Descending bool
	NoHeaders  bool
}

// Render writes the envelope to w in the selected mode. Failure envelopes
// are not rendered here; callers route them to RenderFailure on the error
// stream.
func Render(w io.Writer, env *Envelope, opts Options) error {
	records := selectRecords(env.Records, opts)

	switch opts.Mode {
	case ModeJSON:
		return renderJSON(w, env, records)
	case ModeYAML:
		return renderYAML(w, env, records)
	case ModeOneline:
		return renderOneline(w, records)
	case ModeList:
		return renderList(w, env, records)
	default:
		return renderTable(w, env, records, opts.NoHeaders)
	}
}

// RenderFailure writes a single-line failure message, plus the candidate
// list for ambiguous names so the user can disambiguate on retry.
func RenderFailure(w io.Writer, f *Failure) {
	line := fmt.Sprintf("Error: %s", f.Message)
	if f.FaultCode != "" {
		line = fmt.Sprintf("%s [fault %s]", line, f.FaultCode)
	}
	fmt.Fprintln(w, text.FgRed.Sprint(line))
	for _, c := range f.Candidates {
		fmt.Fprintf(w, "  %s\n", c)
	}
}

// selectRecords applies field restriction and sorting.
func selectRecords(records []*Record, opts Options) []*Record {
	out := records
	if len(opts.Fields) > 0 {
		out = make([]*Record, len(records))
		for i, rec := range records {
			narrowed := NewRecord()
			for _, name := range opts.Fields {
				v, ok := rec.Get(name)
				if !ok {
					v = nil
				}
				narrowed.Set(name, v)
			}
			out[i] = narrowed
		}
	}

	if opts.SortBy != "" {
		sorted := make([]*Record, len(out))
		copy(sorted, out)
		sort.SliceStable(sorted, func(i, j int) bool {
			a, _ := sorted[i].Get(opts.SortBy)
			b, _ := sorted[j].Get(opts.SortBy)
			less := compareValues(a, b)
			if opts.Descending {
				return !less
			}
			return less
		})
		out = sorted
	}
	return out
}

// compareValues orders scalars numerically when both sides are numbers,
// lexically otherwise.
func compareValues(a, b interface{}) bool {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		return af < bf
	}
	return scalarString(a) < scalarString(b)
}

// columns returns the union of field names across records, in first-seen
// declaration order.
func columns(records []*Record) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, f := range rec.Fields() {
			if !seen[f.Name] {
				seen[f.Name] = true
				cols = append(cols, f.Name)
			}
		}
	}
	return cols
}

func renderTable(w io.Writer, env *Envelope, records []*Record, noHeaders bool) error {
	if len(records) == 0 {
		return renderEmpty(w, env)
	}

	cols := columns(records)

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(plainStyle())

	if !noHeaders {
		header := make(table.Row, len(cols))
		for i, c := range cols {
			header[i] = strings.ToUpper(c)
		}
		tw.AppendHeader(header)
	}

	for _, rec := range records {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			v, _ := rec.Get(c)
			row[i] = cellString(v)
		}
		tw.AppendRow(row)
	}

	tw.Render()
	return nil
}

// plainStyle strips go-pretty's box drawing down to kubectl-style columns.
func plainStyle() table.Style {
	style := table.StyleDefault
	style.Options.DrawBorder = false
	style.Options.SeparateColumns = false
	style.Options.SeparateHeader = false
	style.Options.SeparateRows = false
	style.Box.PaddingLeft = ""
	style.Box.PaddingRight = "   "
	style.Format.Header = text.FormatUpper
	return style
}

func renderList(w io.Writer, env *Envelope, records []*Record) error {
	if len(records) == 0 {
		return renderEmpty(w, env)
	}
	for i, rec := range records {
		if i > 0 {
			fmt.Fprintln(w)
		}
		width := 0
		for _, f := range rec.Fields() {
			if len(f.Name) > width {
				width = len(f.Name)
			}
		}
		for _, f := range rec.Fields() {
			fmt.Fprintf(w, "%-*s : %s\n", width, f.Name, expandedString(f.Value))
		}
	}
	return nil
}

func renderOneline(w io.Writer, records []*Record) error {
	for _, rec := range records {
		fields := rec.Fields()
		if len(fields) == 0 {
			continue
		}
		fmt.Fprintln(w, scalarString(fields[0].Value))
	}
	return nil
}

func renderJSON(w io.Writer, env *Envelope, records []*Record) error {
	data, err := json.MarshalIndent(structured(env, records), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func renderYAML(w io.Writer, env *Envelope, records []*Record) error {
	data, err := yaml.Marshal(structured(env, records))
	if err != nil {
		return err
	}
	fmt.Fprint(w, string(data))
	return nil
}

// structured converts records to plain maps for the machine modes. A
// record-less confirmation becomes {"message": ...} so scripted callers
// still get valid output.
func structured(env *Envelope, records []*Record) interface{} {
	if len(records) == 0 && env.Message != "" {
		return map[string]string{"message": env.Message}
	}
	out := make([]map[string]interface{}, len(records))
	for i, rec := range records {
		m := make(map[string]interface{}, len(rec.Fields()))
		for _, f := range rec.Fields() {
			m[f.Name] = f.Value
		}
		out[i] = m
	}
	return out
}

// renderEmpty prints the explicit empty-result notice. The command still
// succeeds; an empty listing is not an error.
func renderEmpty(w io.Writer, env *Envelope) error {
	if env.Message != "" {
		fmt.Fprintln(w, env.Message)
		return nil
	}
	kind := env.Kind
	if kind == "" {
		kind = "items"
	}
	fmt.Fprintf(w, "No %s found\n", kind)
	return nil
}

// cellString renders a value for one table cell. Nested values are shown
// as compact JSON so the row stays on one line.
func cellString(v interface{}) string {
	switch v.(type) {
	case nil:
		return nullPlaceholder
	case map[string]interface{}, []interface{}:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	default:
		return scalarString(v)
	}
}

// expandedString renders a value for list mode. Nested values are expanded
// as indented YAML under the key line.
func expandedString(v interface{}) string {
	switch v.(type) {
	case nil:
		return nullPlaceholder
	case map[string]interface{}, []interface{}:
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		return "\n    " + strings.Join(lines, "\n    ")
	default:
		return scalarString(v)
	}
}

// scalarString formats a scalar without the float artifacts JSON decoding
// introduces (1024 decodes as float64 and would print as 1.024e+03).
func scalarString(v interface{}) string {
	switch n := v.(type) {
	case nil:
		return nullPlaceholder
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%g", n)
	case string:
		return n
	default:
		return fmt.Sprintf("%v", v)
	}
}
