package sequence

import (
	"reflect"
	"testing"
)

func TestGenerateRepeatsSequences(t *testing.T) {
	records, err := Generate(GenerateOptions{Sequences: 2, Length: 3, Columns: 16, ActivePerStep: 4, Repeats: 2, Seed: 7})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(records) != 12 {
		t.Fatalf("expected 12 records, got %d", len(records))
	}
	for i, rec := range records {
		if len(rec.ActiveColumns) != 4 {
			t.Fatalf("record %d: expected 4 active columns, got %v", i, rec.ActiveColumns)
		}
		if rec.Reset != (i%3 == 2) {
			t.Fatalf("record %d: unexpected reset flag %v", i, rec.Reset)
		}
	}
	if !reflect.DeepEqual(records[0], records[6]) || records[3].SequenceID != 1 {
		t.Fatalf("expected the second repeat to replay the first")
	}

	again, err := Generate(GenerateOptions{Sequences: 2, Length: 3, Columns: 16, ActivePerStep: 4, Repeats: 2, Seed: 7})
	if err != nil {
		t.Fatalf("generate again: %v", err)
	}
	if !reflect.DeepEqual(records, again) {
		t.Fatal("expected the same seed to reproduce the records")
	}
}

func TestGenerateValidatesOptions(t *testing.T) {
	for name, opts := range map[string]GenerateOptions{
		"no sequences":   {Length: 1, Columns: 4, ActivePerStep: 1, Repeats: 1},
		"too many bits":  {Sequences: 1, Length: 1, Columns: 4, ActivePerStep: 5, Repeats: 1},
		"zero repeats":   {Sequences: 1, Length: 1, Columns: 4, ActivePerStep: 1},
		"no active bits": {Sequences: 1, Length: 1, Columns: 4, Repeats: 1},
	} {
		if _, err := Generate(opts); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
