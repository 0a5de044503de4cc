// Package sequence reads, writes and generates the step records a region
// runner consumes. Each record lists the active column indices of one
// step plus optional lateral and apical cell indices.
package sequence

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Header is the column layout of a sequence CSV file. The last two
// columns are optional.
var Header = []string{"reset", "sequence_id", "active_columns", "external_cells", "apical_cells"}

type Record struct {
	Reset         bool
	SequenceID    int
	ActiveColumns []int
	ExternalCells []int
	ApicalCells   []int
}

// Widths bounds the indices of each list. A zero External or Apical width
// means the input is not wired and its list must be empty.
type Widths struct {
	Columns  int
	External int
	Apical   int
}

func Load(in io.Reader, widths Widths) ([]Record, error) {
	if widths.Columns <= 0 {
		return nil, fmt.Errorf("column width must be > 0")
	}
	reader := csv.NewReader(in)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sequence csv header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	records := make([]Record, 0, 256)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read sequence csv: %w", err)
		}
		// Line numbers come from the reader so skipped blank lines still count.
		line, _ := reader.FieldPos(0)
		if blankRow(row) {
			continue
		}
		if len(row) > len(header) {
			return nil, fmt.Errorf("sequence line %d has %d fields, header has %d", line, len(row), len(header))
		}
		rec, err := parseRow(row, widths)
		if err != nil {
			return nil, fmt.Errorf("sequence line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func Write(out io.Writer, records []Record) error {
	writer := csv.NewWriter(out)
	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, rec := range records {
		reset := "0"
		if rec.Reset {
			reset = "1"
		}
		if err := writer.Write([]string{
			reset,
			strconv.Itoa(rec.SequenceID),
			formatIndices(rec.ActiveColumns),
			formatIndices(rec.ExternalCells),
			formatIndices(rec.ApicalCells),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// Dense expands indices into a 0/1 vector of the given width.
func Dense(indices []int, width int) ([]float32, error) {
	out := make([]float32, width)
	for _, idx := range indices {
		if idx < 0 || idx >= width {
			return nil, fmt.Errorf("index %d outside [0,%d)", idx, width)
		}
		out[idx] = 1
	}
	return out, nil
}

func checkHeader(header []string) error {
	if len(header) < 3 || len(header) > len(Header) {
		return fmt.Errorf("sequence csv header must be %s", strings.Join(Header, ","))
	}
	for i, name := range header {
		if strings.ToLower(strings.TrimSpace(name)) != Header[i] {
			return fmt.Errorf("sequence csv column %d must be %q, got %q", i, Header[i], name)
		}
	}
	return nil
}

func parseRow(row []string, widths Widths) (Record, error) {
	field := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	var rec Record
	reset, err := parseFlag(field(0))
	if err != nil {
		return Record{}, err
	}
	rec.Reset = reset
	if raw := field(1); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return Record{}, fmt.Errorf("parse sequence id %q: %w", raw, err)
		}
		rec.SequenceID = id
	}
	if rec.ActiveColumns, err = parseIndices(field(2), widths.Columns, "active column"); err != nil {
		return Record{}, err
	}
	if rec.ExternalCells, err = parseIndices(field(3), widths.External, "external cell"); err != nil {
		return Record{}, err
	}
	if rec.ApicalCells, err = parseIndices(field(4), widths.Apical, "apical cell"); err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseFlag(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false, fmt.Errorf("parse reset flag %q: %w", raw, err)
	}
	return v != 0, nil
}

func parseIndices(raw string, width int, what string) ([]int, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return nil, nil
	}
	if width <= 0 {
		return nil, fmt.Errorf("%s indices given but the input is not wired", what)
	}
	seen := make(map[int]struct{}, len(fields))
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		idx, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", what, f, err)
		}
		if idx < 0 || idx >= width {
			return nil, fmt.Errorf("%s %d outside [0,%d)", what, idx, width)
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out, nil
}

func formatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, " ")
}

func blankRow(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
