package tmregion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"tmregion/internal/factory"
	"tmregion/internal/model"
	"tmregion/internal/network"
	"tmregion/internal/region"
	"tmregion/internal/sequence"
	"tmregion/internal/storage"
)

const defaultDBPath = "tmregion.db"

// Record is one step of a sequence run.
type Record = sequence.Record

// StepTrace is the sparse trace of one computed step.
type StepTrace = model.StepTrace

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *slog.Logger
}

type Client struct {
	store    storage.Store
	backends *factory.Factory
	logger   *slog.Logger
}

type RunRequest struct {
	// Backend overrides the temporalImp parameter when set.
	Backend    string
	Parameters map[string]any

	SequencePath string
	Records      []Record

	ExternalWidth int
	ApicalWidth   int

	PrettyPrintTraces bool
}

type RunSummary struct {
	RunID       string
	RegionID    string
	Backend     string
	BackendKind string
	Summary     network.Summary
	Monitor     string
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID                string
	CreatedAtUTC         string
	Backend              string
	BackendKind          string
	Steps                int
	Resets               int
	ActiveCells          int
	PredictedActiveCells int
	PredictionRatio      float64
}

type TraceRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type BackendItem struct {
	Name       string
	Kind       string
	Parameters []string
}

func New(ctx context.Context, opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, err
	}

	return &Client{
		store:    store,
		backends: factory.Default(),
		logger:   logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Run configures a fresh region, drives it over the request's records and
// persists the run together with its step traces.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.SequencePath != "" && len(req.Records) > 0 {
		return RunSummary{}, errors.New("use either sequence path or records")
	}
	if req.SequencePath == "" && len(req.Records) == 0 {
		return RunSummary{}, errors.New("run requires sequence path or records")
	}

	r, err := region.New(region.DefaultConfig(),
		region.WithLogger(c.logger),
		region.WithConstructor(c.backends),
	)
	if err != nil {
		return RunSummary{}, err
	}
	if err := configure(r, req); err != nil {
		return RunSummary{}, err
	}

	widths := sequence.Widths{
		Columns:  int(r.Config().ColumnCount),
		External: req.ExternalWidth,
		Apical:   req.ApicalWidth,
	}
	records := req.Records
	if req.SequencePath != "" {
		records, err = loadRecords(req.SequencePath, widths)
		if err != nil {
			return RunSummary{}, err
		}
	}

	runner, err := network.NewRunner(r, widths, c.logger)
	if err != nil {
		return RunSummary{}, err
	}
	traces, summary, err := runner.Run(ctx, records)
	if err != nil {
		return RunSummary{}, err
	}

	out := RunSummary{
		RunID:       uuid.NewString(),
		RegionID:    r.ID(),
		Backend:     r.Config().TemporalImp,
		BackendKind: r.Kind().String(),
		Summary:     summary,
	}
	if req.PrettyPrintTraces {
		out.Monitor, err = r.ExecuteCommand(ctx, region.CommandPrettyPrintTraces)
		if err != nil {
			return RunSummary{}, err
		}
	}

	run := model.RunRecord{
		VersionedRecord:      storage.Versioned(),
		ID:                   out.RunID,
		RegionID:             out.RegionID,
		Backend:              out.Backend,
		BackendKind:          out.BackendKind,
		Parameters:           snapshot(r),
		Steps:                summary.Steps,
		Resets:               summary.Resets,
		ActiveCells:          summary.ActiveCells,
		PredictedActiveCells: summary.PredictedActiveCells,
		PredictionRatio:      summary.PredictionRatio,
		CreatedAt:            time.Now().UTC(),
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return RunSummary{}, err
	}
	if err := c.store.SaveStepTraces(ctx, out.RunID, traces); err != nil {
		return RunSummary{}, err
	}
	return out, nil
}

// Runs lists persisted runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]RunItem, 0, min(len(runs), req.Limit))
	for i := len(runs) - 1; i >= 0 && len(out) < req.Limit; i-- {
		run := runs[i]
		out = append(out, RunItem{
			RunID:                run.ID,
			CreatedAtUTC:         run.CreatedAt.UTC().Format(time.RFC3339),
			Backend:              run.Backend,
			BackendKind:          run.BackendKind,
			Steps:                run.Steps,
			Resets:               run.Resets,
			ActiveCells:          run.ActiveCells,
			PredictedActiveCells: run.PredictedActiveCells,
			PredictionRatio:      run.PredictionRatio,
		})
	}
	return out, nil
}

// Trace returns the step traces of one run. A positive limit keeps only
// the first limit steps.
func (c *Client) Trace(ctx context.Context, req TraceRequest) ([]StepTrace, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	runID := req.RunID
	if req.Latest {
		runs, err := c.Runs(ctx, RunsRequest{Limit: 1})
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, errors.New("no runs available")
		}
		runID = runs[0].RunID
	}
	if runID == "" {
		return nil, errors.New("trace requires run id or latest")
	}

	traces, ok, err := c.store.GetStepTraces(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("step traces not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(traces) > req.Limit {
		traces = traces[:req.Limit]
	}
	return traces, nil
}

// Backends lists the constructible backends with their accepted
// constructor parameters.
func (c *Client) Backends() ([]BackendItem, error) {
	names := c.backends.List()
	out := make([]BackendItem, 0, len(names))
	for _, name := range names {
		kind, err := c.backends.KindOf(name)
		if err != nil {
			return nil, err
		}
		params, err := c.backends.AcceptedParameters(name)
		if err != nil {
			return nil, err
		}
		out = append(out, BackendItem{Name: name, Kind: kind.String(), Parameters: params})
	}
	return out, nil
}

func (c *Client) RegionSpec() region.Spec {
	return region.Describe()
}

func configure(r *region.Region, req RunRequest) error {
	if req.Backend != "" {
		if err := r.SetParameter(region.ParamTemporalImp, req.Backend); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(req.Parameters))
	for name := range req.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if name == region.ParamTemporalImp && req.Backend != "" {
			continue
		}
		if err := r.SetParameter(name, req.Parameters[name]); err != nil {
			return fmt.Errorf("set %s: %w", name, err)
		}
	}
	return nil
}

func loadRecords(path string, widths sequence.Widths) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sequence.Load(f, widths)
}

func snapshot(r *region.Region) map[string]any {
	spec := r.Spec()
	params := make(map[string]any, len(spec.Parameters))
	for _, p := range spec.Parameters {
		if v, err := r.GetParameter(p.Name); err == nil {
			params[p.Name] = v
		}
	}
	return params
}
