// Package csvprog parses the CSV program upload format described in
// spec.md §6.3: required x/y/z/speed columns, optional pose/term/frame
// columns with an all-or-none-per-column consistency rule, and
// all-or-nothing validation with per-line, per-column diagnostics.
package csvprog

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fanuc-rmi/rmigateway/internal/executor"
	"github.com/fanuc-rmi/rmigateway/internal/wire"
)

var requiredColumns = []string{"x", "y", "z", "speed"}
var optionalColumns = []string{"w", "p", "r", "ext1", "ext2", "ext3", "term_type", "uframe", "utool"}

// Diagnostic is one per-line, per-column validation failure.
type Diagnostic struct {
	Line    int
	Column  string
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d, column %q: %s", d.Line, d.Column, d.Message)
}

// Result is the outcome of parsing one CSV program. When Diagnostics is
// non-empty, Waypoints must be ignored: validation is all-or-nothing.
// Warnings may accompany an otherwise successful parse.
type Result struct {
	Waypoints   []executor.Waypoint
	Diagnostics []Diagnostic
	Warnings    []string
}

// Parse reads a CSV program from r. The header row is mandatory; each data
// row is validated column-by-column as its waypoint is built, and no
// waypoints are returned if any row produced a diagnostic.
func Parse(r io.Reader) Result {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{Diagnostics: []Diagnostic{{Line: 0, Column: "", Message: "could not read header row: " + err.Error()}}}
	}

	colIndex := make(map[string]int, len(header))
	for i, name := range header {
		colIndex[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var diags []Diagnostic
	for _, req := range requiredColumns {
		if _, ok := colIndex[req]; !ok {
			diags = append(diags, Diagnostic{Column: req, Message: "required column missing"})
		}
	}
	if len(diags) > 0 {
		return Result{Diagnostics: diags}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{Diagnostics: []Diagnostic{{Column: "", Message: "could not read rows: " + err.Error()}}}
	}

	present := make(map[string]bool, len(optionalColumns))
	for _, opt := range optionalColumns {
		if _, ok := colIndex[opt]; ok {
			present[opt] = true
		}
	}

	// Consistency rule: for each present optional column, either every row
	// supplies a value or none does.
	for _, opt := range optionalColumns {
		if !present[opt] {
			continue
		}
		idx := colIndex[opt]
		filled, empty := 0, 0
		for _, row := range rows {
			if idx >= len(row) || strings.TrimSpace(row[idx]) == "" {
				empty++
			} else {
				filled++
			}
		}
		if filled > 0 && empty > 0 {
			diags = append(diags, Diagnostic{Column: opt, Message: "must be present on all rows or none"})
		}
	}
	if len(diags) > 0 {
		return Result{Diagnostics: diags}
	}

	waypoints := make([]executor.Waypoint, 0, len(rows))
	var warnings []string

	for i, row := range rows {
		line := i + 2 // header is line 1
		wp, rowDiags, rowWarnings := parseRow(line, row, colIndex, present)
		diags = append(diags, rowDiags...)
		warnings = append(warnings, rowWarnings...)
		waypoints = append(waypoints, wp)
	}

	if len(diags) > 0 {
		return Result{Diagnostics: diags}
	}
	return Result{Waypoints: waypoints, Warnings: warnings}
}

func parseRow(line int, row []string, colIndex map[string]int, present map[string]bool) (executor.Waypoint, []Diagnostic, []string) {
	var diags []Diagnostic
	var warnings []string
	var wp executor.Waypoint

	get := func(col string) (string, bool) {
		idx, ok := colIndex[col]
		if !ok || idx >= len(row) {
			return "", false
		}
		return strings.TrimSpace(row[idx]), true
	}

	parseFloat := func(col string, required bool) float64 {
		raw, ok := get(col)
		if !ok || raw == "" {
			if required {
				diags = append(diags, Diagnostic{Line: line, Column: col, Message: "missing value"})
			}
			return 0
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			diags = append(diags, Diagnostic{Line: line, Column: col, Message: "not a number"})
			return 0
		}
		return v
	}

	wp.X = parseFloat("x", true)
	wp.Y = parseFloat("y", true)
	wp.Z = parseFloat("z", true)
	wp.Speed = parseFloat("speed", true)
	if wp.Speed <= 0 {
		diags = append(diags, Diagnostic{Line: line, Column: "speed", Message: "must be > 0"})
	}
	wp.SpeedType = wire.SpeedMMSec

	if present["w"] {
		wp.W = parseFloat("w", true)
	}
	if present["p"] {
		wp.P = parseFloat("p", true)
	}
	if present["r"] {
		wp.R = parseFloat("r", true)
	}
	if present["ext1"] {
		wp.Ext1 = parseFloat("ext1", true)
	}
	if present["ext2"] {
		wp.Ext2 = parseFloat("ext2", true)
	}
	if present["ext3"] {
		wp.Ext3 = parseFloat("ext3", true)
	}

	if present["uframe"] {
		v := int8(parseFloat("uframe", true))
		if v < 0 {
			diags = append(diags, Diagnostic{Line: line, Column: "uframe", Message: "must be >= 0"})
		}
		wp.UFrameNumber = &v
	}
	if present["utool"] {
		v := int8(parseFloat("utool", true))
		if v < 0 {
			diags = append(diags, Diagnostic{Line: line, Column: "utool", Message: "must be >= 0"})
		}
		wp.UToolNumber = &v
	}

	if present["term_type"] {
		raw, _ := get("term_type")
		term, termValue, err := normalizeTermType(raw)
		if err != nil {
			diags = append(diags, Diagnostic{Line: line, Column: "term_type", Message: err.Error()})
		} else {
			wp.TermType = &term
			wp.TermValue = &termValue
		}
	}

	return wp, diags, warnings
}

// normalizeTermType accepts FINE, CNT, or CNT<n> (e.g. CNT100) and returns
// the normalized term type plus its term_value.
func normalizeTermType(raw string) (wire.TermType, int, error) {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case upper == "FINE":
		return wire.TermFine, 0, nil
	case upper == "CNT":
		return wire.TermCNT, 100, nil
	case strings.HasPrefix(upper, "CNT"):
		n, err := strconv.Atoi(strings.TrimPrefix(upper, "CNT"))
		if err != nil {
			return "", 0, fmt.Errorf("invalid CNT value %q", raw)
		}
		return wire.TermCNT, n, nil
	default:
		return "", 0, fmt.Errorf("term_type must be FINE or CNT<n>, got %q", raw)
	}
}
