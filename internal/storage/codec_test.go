package storage

import (
	"errors"
	"testing"

	"tmregion/internal/model"
)

func TestDecodeRunRejectsVersionMismatch(t *testing.T) {
	payload, err := EncodeRun(model.RunRecord{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion + 1, CodecVersion: CurrentCodecVersion},
		ID:              "run-1",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := DecodeRun(payload); !errors.Is(err, ErrVersionMismatch) {
		t.Fatalf("expected ErrVersionMismatch, got: %v", err)
	}
}

func TestDecodeRunKeepsParameters(t *testing.T) {
	payload, err := EncodeRun(model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              "run-1",
		Parameters:      map[string]any{"temporalImp": "tm", "columnCount": uint32(4)},
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	run, err := DecodeRun(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if run.Parameters["temporalImp"] != "tm" || run.Parameters["columnCount"] != float64(4) {
		t.Fatalf("unexpected parameters: %+v", run.Parameters)
	}
}

func TestDecodeStepTracesRejectsMalformedPayload(t *testing.T) {
	if _, err := DecodeStepTraces([]byte(`{"step":`)); err == nil {
		t.Fatal("expected decode error")
	}
}
