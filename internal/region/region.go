// Package region adapts a pluggable temporal-memory backend to the
// network step contract: named dense inputs in, named dense outputs out.
// The region builds its backend lazily, dispatches on the backend's kind,
// and synthesizes the predicted-active projection from one step of its
// own predictive history.
package region

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"

	"tmregion/internal/backend"
	"tmregion/internal/factory"
	"tmregion/internal/fault"
)

// Input names.
const (
	InputBottomUp   = "bottomUpIn"
	InputExternal   = "externalInput"
	InputTopDown    = "topDownIn"
	InputReset      = "resetIn"
	InputSequenceID = "sequenceIdIn"
)

// Output names.
const (
	OutputBottomUp             = "bottomUpOut"
	OutputActiveCells          = "activeCells"
	OutputPredictiveCells      = "predictiveCells"
	OutputPredictedActiveCells = "predictedActiveCells"
)

// Commands accepted by ExecuteCommand.
const (
	CommandReset             = "reset"
	CommandPrettyPrintTraces = "prettyPrintTraces"
)

var outputNames = []string{
	OutputBottomUp,
	OutputActiveCells,
	OutputPredictiveCells,
	OutputPredictedActiveCells,
}

// Inputs and Outputs map port names to dense 0/1 vectors.
type (
	Inputs  map[string][]float32
	Outputs map[string][]float32
)

// Constructor builds backends by identifier.
type Constructor interface {
	AcceptedParameters(id string) ([]string, error)
	Construct(id string, candidate backend.Args) (backend.Instance, error)
}

type Option func(*Region)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Region) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func WithConstructor(c Constructor) Option {
	return func(r *Region) {
		if c != nil {
			r.constructor = c
		}
	}
}

func WithID(id string) Option {
	return func(r *Region) {
		if id != "" {
			r.id = id
		}
	}
}

type Region struct {
	mu          sync.Mutex
	id          string
	cfg         Config
	constructor Constructor
	logger      *slog.Logger

	inst                     backend.Instance
	activeState              []float32
	previouslyPredictedCells []float32
	steps                    int
}

func New(cfg Config, opts ...Option) (*Region, error) {
	r := &Region{
		id:          uuid.NewString(),
		cfg:         cfg,
		constructor: factory.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	r.logger = r.logger.With(slog.String("component", "region"), slog.String("region_id", r.id))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := r.constructor.AcceptedParameters(cfg.TemporalImp); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Region) ID() string {
	return r.id
}

// Config returns a copy of the current configuration.
func (r *Region) Config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// Initialized reports whether the backend has been built.
func (r *Region) Initialized() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inst.Valid()
}

// Kind reports the compute contract of the built backend, or zero before
// Initialize.
func (r *Region) Kind() backend.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inst.Kind()
}

// Backend returns the built backend instance.
func (r *Region) Backend() (backend.Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inst, r.inst.Valid()
}

// Initialize builds the backend on first call; later calls are no-ops.
func (r *Region) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inst.Valid() {
		return nil
	}
	inst, err := r.constructor.Construct(r.cfg.TemporalImp, r.cfg.CandidateArgs())
	if err != nil {
		return err
	}
	cells := inst.Memory().NumberOfCells()
	if want := r.cfg.InputWidth(); cells != want {
		return fault.Backend(fmt.Errorf("backend reports %d cells, configuration requires %d", cells, want))
	}

	r.inst = inst
	r.activeState = make([]float32, cells)
	r.previouslyPredictedCells = make([]float32, cells)
	r.steps = 0

	r.logger.Info("backend initialized",
		slog.String("backend", r.cfg.TemporalImp),
		slog.String("kind", inst.Kind().String()),
		slog.Int("cells", cells),
	)
	capitan.Emit(ctx, RegionInitialized,
		FieldRegionID.Field(r.id),
		FieldBackend.Field(r.cfg.TemporalImp),
		FieldBackendKind.Field(inst.Kind().String()),
		FieldCellCount.Field(cells),
	)
	return nil
}

// Compute runs one step. All input and output shapes are checked before
// the backend or any output is touched, so malformed input leaves the
// region and the caller's buffers as they were. A non-zero reset flag
// resets the region after the outputs are written.
func (r *Region) Compute(ctx context.Context, in Inputs, out Outputs) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	doReset, err := r.compute(ctx, in, out)
	if err != nil {
		r.logger.Warn("compute failed", slog.Int("step", r.steps), slog.Any("error", err))
		capitan.Error(ctx, StepFailed,
			FieldRegionID.Field(r.id),
			FieldBackend.Field(r.cfg.TemporalImp),
			FieldStep.Field(r.steps),
			FieldError.Field(err),
		)
		return err
	}

	capitan.Emit(ctx, StepComputed,
		FieldRegionID.Field(r.id),
		FieldBackend.Field(r.cfg.TemporalImp),
		FieldStep.Field(r.steps),
		FieldActiveCells.Field(countOnes(out[OutputActiveCells])),
		FieldPredictiveCells.Field(countOnes(out[OutputPredictiveCells])),
		FieldPredictedActiveCells.Field(countOnes(out[OutputPredictedActiveCells])),
		FieldStepDuration.Field(time.Since(start)),
	)
	r.steps++

	if doReset {
		r.reset(ctx)
	}
	return nil
}

func (r *Region) compute(ctx context.Context, in Inputs, out Outputs) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: compute cancelled: %w", fault.ErrPrecondition, err)
	}
	if !r.inst.Valid() {
		return false, fault.Precondition("compute called before initialize")
	}
	if out == nil {
		return false, fault.Precondition("outputs map is required")
	}

	feedForward, ok := in[InputBottomUp]
	if !ok {
		return false, fault.Precondition("missing required input %s", InputBottomUp)
	}
	if want := int(r.cfg.ColumnCount); len(feedForward) != want {
		return false, fault.Precondition("input %s has %d elements, want %d", InputBottomUp, len(feedForward), want)
	}
	doReset := false
	if flag, ok := in[InputReset]; ok {
		if len(flag) != 1 {
			return false, fault.Precondition("input %s must have exactly 1 element, got %d", InputReset, len(flag))
		}
		doReset = flag[0] != 0
	}
	n := len(r.activeState)
	for _, name := range outputNames {
		if buf, ok := out[name]; ok && len(buf) != n {
			return false, fault.Precondition("output %s has %d elements, want %d", name, len(buf), n)
		}
	}

	step := backend.Step{
		Context:                 ctx,
		ActiveColumns:           activeIndices(feedForward),
		FormInternalConnections: r.cfg.FormInternalConnections,
		Learn:                   r.cfg.LearningMode,
	}
	if external, ok := in[InputExternal]; ok {
		step.ActiveExternalCells = activeIndices(external)
	}
	if apical, ok := in[InputTopDown]; ok {
		step.ActiveApicalCells = activeIndices(apical)
	}
	if err := r.inst.Compute(step); err != nil {
		return false, err
	}

	mem := r.inst.Memory()
	active := mem.ActiveCells()
	predictive := mem.PredictiveCells()
	if err := checkCellIndices(active, n); err != nil {
		return false, err
	}
	if err := checkCellIndices(predictive, n); err != nil {
		return false, err
	}

	clear(r.activeState)
	for _, cell := range active {
		r.activeState[cell] = 1
	}
	predictedActive := make([]float32, n)
	for i := range predictedActive {
		predictedActive[i] = r.activeState[i] * r.previouslyPredictedCells[i]
	}
	clear(r.previouslyPredictedCells)
	for _, cell := range predictive {
		r.previouslyPredictedCells[cell] = 1
	}

	for _, name := range outputNames {
		if _, ok := out[name]; !ok {
			out[name] = make([]float32, n)
		}
	}
	copy(out[OutputActiveCells], r.activeState)
	copy(out[OutputPredictiveCells], r.previouslyPredictedCells)
	copy(out[OutputPredictedActiveCells], predictedActive)

	switch r.cfg.DefaultOutputType {
	case OutputActive:
		copy(out[OutputBottomUp], r.activeState)
	case OutputPredictive:
		copy(out[OutputBottomUp], r.previouslyPredictedCells)
	case OutputPredictedActive:
		copy(out[OutputBottomUp], predictedActive)
	default:
		return false, fault.Configuration("unknown default output type %d", int(r.cfg.DefaultOutputType))
	}
	return doReset, nil
}

// Reset clears the backend's sequence state and the region's predictive
// history. Without a backend it does nothing.
func (r *Region) Reset(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset(ctx)
}

func (r *Region) reset(ctx context.Context) {
	if !r.inst.Valid() {
		return
	}
	r.inst.Memory().Reset()
	clear(r.previouslyPredictedCells)

	r.logger.Debug("region reset", slog.Int("step", r.steps))
	capitan.Emit(ctx, RegionReset,
		FieldRegionID.Field(r.id),
		FieldBackend.Field(r.cfg.TemporalImp),
		FieldStep.Field(r.steps),
	)
}

// OutputElementCount returns the length of the named dense output.
func (r *Region) OutputElementCount(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, known := range outputNames {
		if known == name {
			return r.cfg.InputWidth(), nil
		}
	}
	return 0, fault.Configuration("invalid output name %q", name)
}

// ExecuteCommand runs a named region command and returns its text output.
func (r *Region) ExecuteCommand(ctx context.Context, name string) (string, error) {
	switch name {
	case CommandReset:
		r.Reset(ctx)
		return "", nil
	case CommandPrettyPrintTraces:
		r.mu.Lock()
		defer r.mu.Unlock()
		if !r.inst.Valid() {
			return "", nil
		}
		if reporter, ok := r.inst.Memory().(backend.TraceReporter); ok {
			return reporter.PrettyPrintTraces(), nil
		}
		return "", nil
	default:
		return "", fault.Configuration("unknown command %q", name)
	}
}

// GetParameter returns the current value of a named parameter.
func (r *Region) GetParameter(name string) (any, error) {
	p, err := lookupParameter(name)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return p.get(&r.cfg), nil
}

// SetParameter updates a named parameter. Construction parameters are
// frozen once the backend exists. A failed set leaves the configuration
// unchanged.
func (r *Region) SetParameter(name string, value any) error {
	p, err := lookupParameter(name)
	if err != nil {
		return err
	}
	if p.access != accessReadWrite || p.set == nil {
		return fault.Configuration("parameter %s is read-only", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if p.construction && r.inst.Valid() {
		return fault.Configuration("parameter %s is fixed once the backend is built", name)
	}
	next := r.cfg
	if err := p.set(&next, value); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	if name == ParamTemporalImp {
		if _, err := r.constructor.AcceptedParameters(next.TemporalImp); err != nil {
			return err
		}
	}
	r.cfg = next
	return nil
}

func activeIndices(dense []float32) []int {
	indices := make([]int, 0)
	for i, v := range dense {
		if v != 0 {
			indices = append(indices, i)
		}
	}
	return indices
}

func checkCellIndices(cells []int, n int) error {
	for _, cell := range cells {
		if cell < 0 || cell >= n {
			return fault.Backend(fmt.Errorf("backend reported cell %d outside [0,%d)", cell, n))
		}
	}
	return nil
}

func countOnes(dense []float32) int {
	count := 0
	for _, v := range dense {
		if v != 0 {
			count++
		}
	}
	return count
}
