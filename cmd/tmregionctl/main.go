package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"tmregion/internal/region"
	"tmregion/internal/sequence"
	"tmregion/internal/storage"
	api "tmregion/pkg/tmregion"
)

const defaultDBPath = "tmregion.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "init":
		return runInit(ctx, args[1:])
	case "backends":
		return runBackends(ctx, args[1:])
	case "spec":
		return runSpec(ctx, args[1:])
	case "generate":
		return runGenerate(ctx, args[1:])
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "trace":
		return runTrace(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func storeFlags(fs *flag.FlagSet) (*string, *string) {
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	return storeKind, dbPath
}

func runInit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	fmt.Printf("initialized store=%s\n", *storeKind)
	return nil
}

func runBackends(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "emit backends as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(ctx, api.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	backends, err := client.Backends()
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(os.Stdout, backends)
	}
	for _, b := range backends {
		fmt.Printf("name=%s kind=%s params=%s\n", b.Name, b.Kind, strings.Join(b.Parameters, ","))
	}
	return nil
}

func runSpec(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("spec", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return writeJSON(os.Stdout, region.Describe())
}

func runGenerate(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("generate", flag.ContinueOnError)
	sequences := fs.Int("sequences", 2, "number of distinct sequences")
	length := fs.Int("length", 4, "steps per sequence")
	columns := fs.Int("columns", 2048, "column count")
	active := fs.Int("active", 40, "active columns per step")
	repeats := fs.Int("repeats", 10, "presentations of every sequence")
	seed := fs.Int64("seed", 1, "rng seed")
	out := fs.String("out", "", "output CSV path (stdout when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	records, err := sequence.Generate(sequence.GenerateOptions{
		Sequences:     *sequences,
		Length:        *length,
		Columns:       *columns,
		ActivePerStep: *active,
		Repeats:       *repeats,
		Seed:          *seed,
	})
	if err != nil {
		return err
	}
	if *out == "" {
		return sequence.Write(os.Stdout, records)
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := sequence.Write(f, records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("generated records=%d out=%s\n", len(records), *out)
	return nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run config JSON path")
	sequencePath := fs.String("sequence", "", "sequence CSV path")
	backendName := fs.String("backend", "", "temporal memory backend: tm|tm_cpp|extended|tm_mixin|monitored_extended")
	columns := fs.Int("columns", 0, "column count (0 keeps the default)")
	cells := fs.Int("cells", 0, "cells per column (0 keeps the default)")
	activationThreshold := fs.Int("activation-threshold", 0, "segment activation threshold")
	minThreshold := fs.Int("min-threshold", 0, "segment matching threshold")
	maxNewSynapses := fs.Int("max-new-synapses", 0, "max synapses grown per segment and step")
	initialPermanence := fs.Float64("initial-permanence", 0, "initial synapse permanence")
	connectedPermanence := fs.Float64("connected-permanence", 0, "connected synapse permanence")
	permanenceIncrement := fs.Float64("permanence-increment", 0, "permanence increment")
	permanenceDecrement := fs.Float64("permanence-decrement", 0, "permanence decrement")
	predictedSegmentDecrement := fs.Float64("predicted-segment-decrement", 0, "predicted segment decrement")
	seed := fs.Int("seed", 0, "backend rng seed")
	learnOnOneCell := fs.Bool("learn-on-one-cell", true, "fix the winner cell of each column between resets")
	learning := fs.Bool("learning", true, "enable learning")
	formInternal := fs.Bool("form-internal-connections", true, "grow synapses to internal cells")
	defaultOutput := fs.String("default-output", "", "bottomUpOut projection: active|predictive|predictedActiveCells")
	externalWidth := fs.Int("external-width", 0, "external input width (0 leaves it unwired)")
	apicalWidth := fs.Int("apical-width", 0, "apical input width (0 leaves it unwired)")
	prettyPrint := fs.Bool("pretty-print-traces", false, "print the monitor trace table of a monitored backend")
	jsonOut := fs.Bool("json", false, "emit the run summary as JSON")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req, err := loadOrDefaultRunRequest(*configPath)
	if err != nil {
		return err
	}
	if err := overrideFromFlags(&req, setFlags, map[string]any{
		"sequence":                    *sequencePath,
		"backend":                     *backendName,
		"columns":                     *columns,
		"cells":                       *cells,
		"activation-threshold":        *activationThreshold,
		"min-threshold":               *minThreshold,
		"max-new-synapses":            *maxNewSynapses,
		"initial-permanence":          *initialPermanence,
		"connected-permanence":        *connectedPermanence,
		"permanence-increment":        *permanenceIncrement,
		"permanence-decrement":        *permanenceDecrement,
		"predicted-segment-decrement": *predictedSegmentDecrement,
		"seed":                        *seed,
		"learn-on-one-cell":           *learnOnOneCell,
		"learning":                    *learning,
		"form-internal-connections":   *formInternal,
		"default-output":              *defaultOutput,
		"external-width":              *externalWidth,
		"apical-width":                *apicalWidth,
		"pretty-print-traces":         *prettyPrint,
	}); err != nil {
		return err
	}
	if req.SequencePath == "" {
		return errors.New("run requires --sequence or a config with sequence")
	}

	client, err := api.New(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(os.Stdout, summary)
	}

	fmt.Printf("run_id=%s backend=%s kind=%s steps=%s resets=%s active_cells=%s predicted_active_cells=%s prediction_ratio=%.4f\n",
		summary.RunID,
		summary.Backend,
		summary.BackendKind,
		humanize.Comma(int64(summary.Summary.Steps)),
		humanize.Comma(int64(summary.Summary.Resets)),
		humanize.Comma(int64(summary.Summary.ActiveCells)),
		humanize.Comma(int64(summary.Summary.PredictedActiveCells)),
		summary.Summary.PredictionRatio,
	)
	if summary.Monitor != "" {
		fmt.Println(summary.Monitor)
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := api.New(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, api.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(os.Stdout, runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created_at=%s backend=%s kind=%s steps=%d resets=%d prediction_ratio=%.4f\n",
			r.RunID,
			r.CreatedAtUTC,
			r.Backend,
			r.BackendKind,
			r.Steps,
			r.Resets,
			r.PredictionRatio,
		)
	}
	return nil
}

func runTrace(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trace", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "use the most recent run")
	limit := fs.Int("limit", 0, "max steps to show (0 shows all)")
	jsonOut := fs.Bool("json", false, "emit traces as JSON")
	storeKind, dbPath := storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.New(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	traces, err := client.Trace(ctx, api.TraceRequest{RunID: *runID, Latest: *latest, Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(os.Stdout, traces)
	}
	for _, tr := range traces {
		fmt.Printf("step=%d sequence=%d reset=%t columns=%v active=%d predictive=%d predicted_active=%d\n",
			tr.Step,
			tr.SequenceID,
			tr.Reset,
			tr.ActiveColumns,
			len(tr.ActiveCells),
			len(tr.PredictiveCells),
			len(tr.PredictedActiveCells),
		)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: tmregionctl <init|backends|spec|generate|run|runs|trace> [flags]", msg)
}
