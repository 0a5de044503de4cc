//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"tmregion/internal/model"
)

func TestSQLiteStoreRunAndTraceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "tmregion.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	run := model.RunRecord{
		VersionedRecord: Versioned(),
		ID:              "run-1",
		Backend:         "extended",
		BackendKind:     "extended",
		Steps:           2,
		PredictionRatio: 0.5,
		CreatedAt:       created,
	}
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loaded, ok, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.ID)
	}
	if loaded.Backend != run.Backend || loaded.Steps != run.Steps || !loaded.CreatedAt.Equal(created) {
		t.Fatalf("unexpected run loaded: %+v", loaded)
	}

	traces := []model.StepTrace{
		{Step: 0, ActiveColumns: []int{0, 2}, ActiveCells: []int{0, 3}, PredictiveCells: []int{1, 4}},
		{Step: 1, ActiveColumns: []int{1}, ActiveCells: []int{1, 4}, PredictedActiveCells: []int{1, 4}},
	}
	if err := store.SaveStepTraces(ctx, run.ID, traces); err != nil {
		t.Fatalf("save traces: %v", err)
	}
	loadedTraces, ok, err := store.GetStepTraces(ctx, run.ID)
	if err != nil {
		t.Fatalf("get traces: %v", err)
	}
	if !ok || len(loadedTraces) != 2 || loadedTraces[1].PredictedActiveCells[1] != 4 {
		t.Fatalf("unexpected traces loaded: %+v", loadedTraces)
	}
}

func TestSQLiteStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "tmregion.db"))
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"late", "early"} {
		run := model.RunRecord{VersionedRecord: Versioned(), ID: id, CreatedAt: base.Add(time.Duration(1-i) * time.Hour)}
		if err := store.SaveRun(ctx, run); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "early" || runs[1].ID != "late" {
		t.Fatalf("unexpected run order: %+v", runs)
	}

	if err := store.SaveStepTraces(ctx, "early", []model.StepTrace{{Step: 0}}); err != nil {
		t.Fatalf("save traces: %v", err)
	}
	if err := store.DeleteRun(ctx, "early"); err != nil {
		t.Fatalf("delete run: %v", err)
	}
	if _, ok, err := store.GetRun(ctx, "early"); err != nil || ok {
		t.Fatalf("expected run to be deleted: ok=%v err=%v", ok, err)
	}
	if _, ok, err := store.GetStepTraces(ctx, "early"); err != nil || ok {
		t.Fatalf("expected traces to be deleted: ok=%v err=%v", ok, err)
	}
}

func TestNewStoreSQLite(t *testing.T) {
	store, err := NewStore("sqlite", filepath.Join(t.TempDir(), "tmregion.db"))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := CloseIfSupported(store); err != nil {
		t.Fatalf("close: %v", err)
	}
}
