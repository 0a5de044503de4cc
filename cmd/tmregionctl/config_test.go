package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRunRequestFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	payload := map[string]any{
		"sequence":            "seq.csv",
		"backend":             "extended",
		"external_width":      12,
		"apical_width":        3,
		"pretty_print_traces": true,
		"parameters": map[string]any{
			"columnCount":       64,
			"defaultOutputType": "predictive",
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	req, err := loadRunRequestFromConfig(path)
	if err != nil {
		t.Fatalf("load run request: %v", err)
	}
	if req.SequencePath != "seq.csv" || req.Backend != "extended" {
		t.Fatalf("unexpected base fields: %+v", req)
	}
	if req.ExternalWidth != 12 || req.ApicalWidth != 3 || !req.PrettyPrintTraces {
		t.Fatalf("unexpected input wiring: %+v", req)
	}
	if req.Parameters["columnCount"] != float64(64) || req.Parameters["defaultOutputType"] != "predictive" {
		t.Fatalf("unexpected parameters: %+v", req.Parameters)
	}
}

func TestLoadRunRequestRejectsNonObjectParameters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	if err := os.WriteFile(path, []byte(`{"parameters": [1, 2]}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := loadRunRequestFromConfig(path); err == nil {
		t.Fatal("expected error for non-object parameters")
	}
}

func TestOverrideFromFlagsPrefersExplicitFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_config.json")
	if err := os.WriteFile(path, []byte(`{"backend":"tm","parameters":{"columnCount":64,"seed":7}}`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	req, err := loadOrDefaultRunRequest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	set := map[string]bool{"backend": true, "columns": true, "learning": true}
	values := map[string]any{
		"backend":  "tmMixin",
		"columns":  16,
		"learning": false,
		"seed":     99,
	}
	if err := overrideFromFlags(&req, set, values); err != nil {
		t.Fatalf("override: %v", err)
	}
	if req.Backend != "tmMixin" {
		t.Fatalf("expected backend override, got %s", req.Backend)
	}
	if req.Parameters["columnCount"] != 16 || req.Parameters["learningMode"] != false {
		t.Fatalf("expected flag parameters to override: %+v", req.Parameters)
	}
	if req.Parameters["seed"] != float64(7) {
		t.Fatalf("unset flag must not override config seed: %+v", req.Parameters)
	}
}

func TestOverrideFromFlagsRejectsNegativeWidths(t *testing.T) {
	req, err := loadOrDefaultRunRequest("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	err = overrideFromFlags(&req, map[string]bool{"external-width": true}, map[string]any{"external-width": -1})
	if err == nil {
		t.Fatal("expected negative width error")
	}
}

func TestLoadOrDefaultRunRequestMissingFile(t *testing.T) {
	if _, err := loadOrDefaultRunRequest(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing config")
	}
}
