package tmregion

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tmregion/internal/fault"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), Options{
		StoreKind: "memory",
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func smallParameters() map[string]any {
	return map[string]any{
		"columnCount":         6,
		"cellsPerColumn":      4,
		"activationThreshold": 2,
		"minThreshold":        1,
		"maxNewSynapseCount":  4,
		"initialPermanence":   0.6,
		"connectedPermanence": 0.5,
	}
}

const sequenceCSV = `reset,sequence_id,active_columns
0,1,0 1
0,1,2 3
1,1,4 5
0,1,0 1
0,1,2 3
1,1,4 5
0,1,0 1
0,1,2 3
1,1,4 5
`

func TestClientRunRunsAndTrace(t *testing.T) {
	client := newTestClient(t)
	path := filepath.Join(t.TempDir(), "sequence.csv")
	if err := os.WriteFile(path, []byte(sequenceCSV), 0o644); err != nil {
		t.Fatalf("write sequence: %v", err)
	}

	summary, err := client.Run(context.Background(), RunRequest{
		Backend:      "tm",
		Parameters:   smallParameters(),
		SequencePath: path,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" || summary.RegionID == "" {
		t.Fatalf("expected run and region ids: %+v", summary)
	}
	if summary.Backend != "tm" || summary.BackendKind != "basic" {
		t.Fatalf("unexpected backend: %+v", summary)
	}
	if summary.Summary.Steps != 9 || summary.Summary.Resets != 3 {
		t.Fatalf("unexpected summary: %+v", summary.Summary)
	}
	if summary.Summary.PredictedActiveCells == 0 {
		t.Fatalf("expected the repeated sequence to be predicted: %+v", summary.Summary)
	}

	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != summary.RunID || runs[0].Steps != 9 {
		t.Fatalf("expected run %s in runs list: %+v", summary.RunID, runs)
	}

	traces, err := client.Trace(context.Background(), TraceRequest{Latest: true})
	if err != nil {
		t.Fatalf("trace: %v", err)
	}
	if len(traces) != 9 {
		t.Fatalf("expected 9 traces, got %d", len(traces))
	}
	if !traces[2].Reset || traces[2].ActiveColumns[0] != 4 {
		t.Fatalf("unexpected third step: %+v", traces[2])
	}

	limited, err := client.Trace(context.Background(), TraceRequest{RunID: summary.RunID, Limit: 2})
	if err != nil {
		t.Fatalf("trace limit: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(limited))
	}
}

func TestClientRunRecordsWithMonitoredBackend(t *testing.T) {
	client := newTestClient(t)
	summary, err := client.Run(context.Background(), RunRequest{
		Backend:    "tmMixin",
		Parameters: smallParameters(),
		Records: []Record{
			{ActiveColumns: []int{0, 1}},
			{ActiveColumns: []int{2, 3}},
		},
		PrettyPrintTraces: true,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(summary.Monitor, "monitor tmMixin") {
		t.Fatalf("expected monitor table, got %q", summary.Monitor)
	}
}

func TestClientRunsNewestFirst(t *testing.T) {
	client := newTestClient(t)
	var ids []string
	for i := 0; i < 3; i++ {
		summary, err := client.Run(context.Background(), RunRequest{
			Parameters: smallParameters(),
			Records:    []Record{{ActiveColumns: []int{i}}},
		})
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		ids = append(ids, summary.RunID)
	}
	runs, err := client.Runs(context.Background(), RunsRequest{Limit: 2})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != ids[2] || runs[1].RunID != ids[1] {
		t.Fatalf("runs are not newest first: %+v", runs)
	}
}

func TestClientRunValidation(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Run(context.Background(), RunRequest{}); err == nil {
		t.Fatal("expected error without input")
	}
	if _, err := client.Run(context.Background(), RunRequest{
		SequencePath: "x.csv",
		Records:      []Record{{ActiveColumns: []int{0}}},
	}); err == nil {
		t.Fatal("expected error with both inputs")
	}
	_, err := client.Run(context.Background(), RunRequest{
		Backend: "nope",
		Records: []Record{{ActiveColumns: []int{0}}},
	})
	if !errors.Is(err, fault.ErrConfiguration) {
		t.Fatalf("expected configuration error for unknown backend, got %v", err)
	}
	_, err = client.Run(context.Background(), RunRequest{
		Parameters: map[string]any{"bogus": 1},
		Records:    []Record{{ActiveColumns: []int{0}}},
	})
	if !errors.Is(err, fault.ErrUnknownParameter) {
		t.Fatalf("expected unknown parameter error, got %v", err)
	}
}

func TestClientTraceValidation(t *testing.T) {
	client := newTestClient(t)
	if _, err := client.Trace(context.Background(), TraceRequest{RunID: "a", Latest: true}); err == nil {
		t.Fatal("expected error for run id with latest")
	}
	if _, err := client.Trace(context.Background(), TraceRequest{}); err == nil {
		t.Fatal("expected error without run id")
	}
	if _, err := client.Trace(context.Background(), TraceRequest{Latest: true}); err == nil {
		t.Fatal("expected error without runs")
	}
	if _, err := client.Trace(context.Background(), TraceRequest{RunID: "missing"}); err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestClientBackendsAndSpec(t *testing.T) {
	client := newTestClient(t)
	backends, err := client.Backends()
	if err != nil {
		t.Fatalf("backends: %v", err)
	}
	kinds := map[string]string{}
	for _, b := range backends {
		kinds[b.Name] = b.Kind
		if len(b.Parameters) == 0 {
			t.Fatalf("backend %s has no parameters", b.Name)
		}
	}
	if kinds["tm"] != "basic" || kinds["extended"] != "extended" {
		t.Fatalf("unexpected backend kinds: %+v", kinds)
	}

	spec := client.RegionSpec()
	if len(spec.Inputs) != 5 || len(spec.Outputs) != 4 || len(spec.Commands) != 2 {
		t.Fatalf("unexpected region spec: %+v", spec)
	}
}
