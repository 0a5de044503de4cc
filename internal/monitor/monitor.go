// Package monitor decorates a temporal-memory backend with per-step trace
// recording. The decorator satisfies the same backend contract as the
// instance it wraps, so it composes with any registered backend.
package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tmregion/internal/backend"
	"tmregion/internal/fault"
)

// Trace is the record of one compute call.
type Trace struct {
	Iteration            int
	AfterReset           bool
	ActiveColumns        []int
	ActiveCells          []int
	PredictiveCells      []int
	PredictedActiveCells []int
	NumSegments          int
	NumSynapses          int
}

type Monitor struct {
	name   string
	inner  backend.Instance
	tracer trace.Tracer

	traces         []Trace
	prevPredictive map[int]struct{}
	afterReset     bool
	iteration      int
}

// Wrap returns an instance of the same kind as inner that records a Trace
// for every compute call.
func Wrap(inner backend.Instance, name string) (backend.Instance, *Monitor, error) {
	if !inner.Valid() {
		return backend.Instance{}, nil, fault.Backend(fmt.Errorf("cannot monitor an unconstructed backend"))
	}
	m := &Monitor{
		name:           name,
		inner:          inner,
		tracer:         otel.Tracer("tmregion/monitor"),
		prevPredictive: make(map[int]struct{}),
	}
	inst, err := backend.NewInstance(inner.Kind(), m)
	if err != nil {
		return backend.Instance{}, nil, err
	}
	return inst, m, nil
}

// From returns the monitor behind inst, if any.
func From(inst backend.Instance) (*Monitor, bool) {
	m, ok := inst.Memory().(*Monitor)
	return m, ok
}

func (m *Monitor) Name() string { return m.name }

func (m *Monitor) Compute(activeColumns []int, learn bool) error {
	if m.inner.Kind() != backend.KindBasic {
		return fault.Backend(fmt.Errorf("monitor %s wraps a %s backend; basic compute unsupported", m.name, m.inner.Kind()))
	}
	return m.step(backend.Step{ActiveColumns: activeColumns, Learn: learn})
}

func (m *Monitor) ComputeExtended(in backend.ExtendedInput) error {
	if m.inner.Kind() != backend.KindExtended {
		return fault.Backend(fmt.Errorf("monitor %s wraps a %s backend; extended compute unsupported", m.name, m.inner.Kind()))
	}
	return m.step(backend.Step{
		Context:                 in.Context,
		ActiveColumns:           in.ActiveColumns,
		ActiveExternalCells:     in.ActiveExternalCells,
		ActiveApicalCells:       in.ActiveApicalCells,
		FormInternalConnections: in.FormInternalConnections,
		Learn:                   in.Learn,
	})
}

// ComputeStep records one step and forwards it with the caller's context,
// so the compute span joins the caller's trace.
func (m *Monitor) ComputeStep(step backend.Step) error {
	return m.step(step)
}

func (m *Monitor) step(step backend.Step) error {
	ctx := step.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := m.tracer.Start(ctx, "tmregion.backend.compute",
		trace.WithAttributes(
			attribute.String("monitor", m.name),
			attribute.String("kind", m.inner.Kind().String()),
			attribute.Int("active_columns", len(step.ActiveColumns)),
			attribute.Bool("learn", step.Learn),
		),
	)
	defer span.End()

	step.Context = ctx
	if err := m.inner.Compute(step); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute failed")
		return err
	}

	mem := m.inner.Memory()
	active := mem.ActiveCells()
	predictive := mem.PredictiveCells()
	predictedActive := make([]int, 0)
	for _, cell := range active {
		if _, ok := m.prevPredictive[cell]; ok {
			predictedActive = append(predictedActive, cell)
		}
	}

	columns := append([]int(nil), step.ActiveColumns...)
	sort.Ints(columns)
	tr := Trace{
		Iteration:            m.iteration,
		AfterReset:           m.afterReset,
		ActiveColumns:        columns,
		ActiveCells:          active,
		PredictiveCells:      predictive,
		PredictedActiveCells: predictedActive,
	}
	if stats, ok := mem.(backend.Stats); ok {
		tr.NumSegments = stats.NumSegments()
		tr.NumSynapses = stats.NumSynapses()
	}
	m.traces = append(m.traces, tr)
	m.iteration++
	m.afterReset = false

	m.prevPredictive = make(map[int]struct{}, len(predictive))
	for _, cell := range predictive {
		m.prevPredictive[cell] = struct{}{}
	}

	span.SetAttributes(
		attribute.Int("active_cells", len(active)),
		attribute.Int("predictive_cells", len(predictive)),
		attribute.Int("predicted_active_cells", len(predictedActive)),
	)
	return nil
}

func (m *Monitor) ActiveCells() []int     { return m.inner.Memory().ActiveCells() }
func (m *Monitor) PredictiveCells() []int { return m.inner.Memory().PredictiveCells() }
func (m *Monitor) NumberOfCells() int     { return m.inner.Memory().NumberOfCells() }

func (m *Monitor) Reset() {
	m.inner.Memory().Reset()
	m.prevPredictive = make(map[int]struct{})
	m.afterReset = true
}

func (m *Monitor) NumSegments() int {
	if stats, ok := m.inner.Memory().(backend.Stats); ok {
		return stats.NumSegments()
	}
	return 0
}

func (m *Monitor) NumSynapses() int {
	if stats, ok := m.inner.Memory().(backend.Stats); ok {
		return stats.NumSynapses()
	}
	return 0
}

// Traces returns a copy of the recorded history.
func (m *Monitor) Traces() []Trace {
	return append([]Trace(nil), m.traces...)
}

func (m *Monitor) ClearHistory() {
	m.traces = nil
}

// PrettyPrintTraces renders the recorded history as a fixed-width table.
func (m *Monitor) PrettyPrintTraces() string {
	var b strings.Builder
	fmt.Fprintf(&b, "monitor %s (%s), %s steps\n", m.name, m.inner.Kind(), humanize.Comma(int64(len(m.traces))))
	fmt.Fprintf(&b, "%6s %5s %8s %8s %10s %10s %9s %9s\n",
		"step", "reset", "columns", "active", "predictive", "pred+act", "segments", "synapses")
	for _, tr := range m.traces {
		reset := ""
		if tr.AfterReset {
			reset = "*"
		}
		fmt.Fprintf(&b, "%6d %5s %8s %8s %10s %10s %9s %9s\n",
			tr.Iteration,
			reset,
			humanize.Comma(int64(len(tr.ActiveColumns))),
			humanize.Comma(int64(len(tr.ActiveCells))),
			humanize.Comma(int64(len(tr.PredictiveCells))),
			humanize.Comma(int64(len(tr.PredictedActiveCells))),
			humanize.Comma(int64(tr.NumSegments)),
			humanize.Comma(int64(tr.NumSynapses)),
		)
	}
	return b.String()
}

var (
	_ backend.Basic         = (*Monitor)(nil)
	_ backend.Extended      = (*Monitor)(nil)
	_ backend.Stats         = (*Monitor)(nil)
	_ backend.TraceReporter = (*Monitor)(nil)
	_ backend.StepComputer  = (*Monitor)(nil)
)
