package sequence

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestLoadParsesIndexLists(t *testing.T) {
	in := strings.NewReader(`reset,sequence_id,active_columns,external_cells,apical_cells
0,7,2 0 2,1,
1,7,3,,4 1
`)
	records, err := Load(in, Widths{Columns: 4, External: 3, Apical: 5})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	if first.Reset || first.SequenceID != 7 || !reflect.DeepEqual(first.ActiveColumns, []int{0, 2}) || !reflect.DeepEqual(first.ExternalCells, []int{1}) {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.ApicalCells != nil {
		t.Fatalf("expected empty apical list, got %v", first.ApicalCells)
	}
	second := records[1]
	if !second.Reset || !reflect.DeepEqual(second.ApicalCells, []int{1, 4}) {
		t.Fatalf("unexpected second record: %+v", second)
	}
}

func TestLoadAcceptsShortHeader(t *testing.T) {
	in := strings.NewReader("reset,sequence_id,active_columns\n,,1\n\n0,1,0 3\n")
	records, err := Load(in, Widths{Columns: 4})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 || !reflect.DeepEqual(records[1].ActiveColumns, []int{0, 3}) {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestLoadRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"bad header":        "step,sequence_id,active_columns\n0,0,1\n",
		"column overflow":   "reset,sequence_id,active_columns\n0,0,4\n",
		"negative column":   "reset,sequence_id,active_columns\n0,0,-1\n",
		"bad reset":         "reset,sequence_id,active_columns\nyes,0,1\n",
		"unwired external":  "reset,sequence_id,active_columns,external_cells\n0,0,1,2\n",
		"non numeric index": "reset,sequence_id,active_columns\n0,0,a\n",
	}
	for name, raw := range cases {
		if _, err := Load(strings.NewReader(raw), Widths{Columns: 4}); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadErrorNamesLineAfterBlankRows(t *testing.T) {
	raw := "reset,sequence_id,active_columns\n0,0,1\n,,\n\n0,0,9\n"
	_, err := Load(strings.NewReader(raw), Widths{Columns: 4})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "line 5") {
		t.Fatalf("expected error to name line 5, got %v", err)
	}
}

func TestWriteThenLoad(t *testing.T) {
	records := []Record{
		{SequenceID: 0, ActiveColumns: []int{1, 3}},
		{Reset: true, SequenceID: 0, ActiveColumns: []int{0}, ExternalCells: []int{2}},
	}
	var buf bytes.Buffer
	if err := Write(&buf, records); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.HasPrefix(buf.String(), strings.Join(Header, ",")+"\n") {
		t.Fatalf("unexpected header:\n%s", buf.String())
	}
	loaded, err := Load(&buf, Widths{Columns: 4, External: 3})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(loaded, records) {
		t.Fatalf("records differ: got=%+v want=%+v", loaded, records)
	}
}

func TestDense(t *testing.T) {
	got, err := Dense([]int{0, 3}, 5)
	if err != nil {
		t.Fatalf("dense: %v", err)
	}
	if !reflect.DeepEqual(got, []float32{1, 0, 0, 1, 0}) {
		t.Fatalf("unexpected dense vector: %v", got)
	}
	if _, err := Dense([]int{5}, 5); err == nil {
		t.Fatal("expected out of range error")
	}
}
