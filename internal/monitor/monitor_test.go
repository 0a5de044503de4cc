package monitor

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"tmregion/internal/backend"
	"tmregion/internal/fault"
)

type scriptedStep struct {
	active     []int
	predictive []int
}

type scriptedBasic struct {
	script []scriptedStep
	pos    int
	resets int
	cur    scriptedStep
}

func (s *scriptedBasic) Compute([]int, bool) error {
	if s.pos >= len(s.script) {
		return errors.New("script exhausted")
	}
	s.cur = s.script[s.pos]
	s.pos++
	return nil
}

func (s *scriptedBasic) ActiveCells() []int     { return append([]int(nil), s.cur.active...) }
func (s *scriptedBasic) PredictiveCells() []int { return append([]int(nil), s.cur.predictive...) }
func (s *scriptedBasic) NumberOfCells() int     { return 8 }
func (s *scriptedBasic) Reset()                 { s.resets++; s.cur = scriptedStep{} }
func (s *scriptedBasic) NumSegments() int       { return 1234 }
func (s *scriptedBasic) NumSynapses() int       { return 56789 }

func wrapScripted(t *testing.T, script []scriptedStep) (backend.Instance, *Monitor, *scriptedBasic) {
	t.Helper()
	mem := &scriptedBasic{script: script}
	inner, err := backend.NewInstance(backend.KindBasic, mem)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	inst, m, err := Wrap(inner, "scripted")
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	return inst, m, mem
}

func TestMonitorRecordsTraces(t *testing.T) {
	inst, m, _ := wrapScripted(t, []scriptedStep{
		{active: []int{0, 3}, predictive: []int{1, 4}},
		{active: []int{1, 4, 6}, predictive: []int{2}},
	})
	if inst.Kind() != backend.KindBasic {
		t.Fatalf("expected wrapped kind to be preserved, got %s", inst.Kind())
	}
	for _, cols := range [][]int{{2, 0}, {1}} {
		if err := inst.Compute(backend.Step{ActiveColumns: cols, Learn: true}); err != nil {
			t.Fatalf("compute: %v", err)
		}
	}

	traces := m.Traces()
	if len(traces) != 2 {
		t.Fatalf("expected 2 traces, got %d", len(traces))
	}
	if !reflect.DeepEqual(traces[0].ActiveColumns, []int{0, 2}) {
		t.Fatalf("unexpected columns: %v", traces[0].ActiveColumns)
	}
	if len(traces[0].PredictedActiveCells) != 0 {
		t.Fatalf("expected no predicted-active cells on first step, got %v", traces[0].PredictedActiveCells)
	}
	if !reflect.DeepEqual(traces[1].PredictedActiveCells, []int{1, 4}) {
		t.Fatalf("unexpected predicted-active cells: %v", traces[1].PredictedActiveCells)
	}
	if traces[1].NumSegments != 1234 || traces[1].NumSynapses != 56789 {
		t.Fatalf("unexpected stats: %+v", traces[1])
	}

	found, ok := From(inst)
	if !ok || found != m {
		t.Fatal("expected monitor to be recoverable from the instance")
	}
}

func TestMonitorResetClearsPredictiveHistory(t *testing.T) {
	inst, m, mem := wrapScripted(t, []scriptedStep{
		{active: []int{0}, predictive: []int{1}},
		{active: []int{1}, predictive: nil},
	})
	if err := inst.Compute(backend.Step{ActiveColumns: []int{0}}); err != nil {
		t.Fatalf("compute: %v", err)
	}
	inst.Memory().Reset()
	if mem.resets != 1 {
		t.Fatalf("expected reset to be forwarded, got %d", mem.resets)
	}
	if err := inst.Compute(backend.Step{ActiveColumns: []int{0}}); err != nil {
		t.Fatalf("compute: %v", err)
	}
	traces := m.Traces()
	if !traces[1].AfterReset || traces[0].AfterReset {
		t.Fatalf("unexpected reset markers: %+v", traces)
	}
	if len(traces[1].PredictedActiveCells) != 0 {
		t.Fatalf("expected reset to clear predictive history, got %v", traces[1].PredictedActiveCells)
	}

	m.ClearHistory()
	if len(m.Traces()) != 0 {
		t.Fatal("expected empty history after clear")
	}
}

func TestMonitorRejectsMismatchedEntryPoint(t *testing.T) {
	_, m, _ := wrapScripted(t, nil)
	if err := m.ComputeExtended(backend.ExtendedInput{}); !errors.Is(err, fault.ErrBackend) {
		t.Fatalf("expected backend error, got: %v", err)
	}
}

func TestMonitorPropagatesBackendErrors(t *testing.T) {
	inst, m, _ := wrapScripted(t, nil)
	if err := inst.Compute(backend.Step{}); !errors.Is(err, fault.ErrBackend) {
		t.Fatalf("expected backend error, got: %v", err)
	}
	if len(m.Traces()) != 0 {
		t.Fatal("failed steps must not be recorded")
	}
}

func TestPrettyPrintTraces(t *testing.T) {
	inst, m, _ := wrapScripted(t, []scriptedStep{{active: []int{0, 3}, predictive: []int{1}}})
	if err := inst.Compute(backend.Step{ActiveColumns: []int{0}}); err != nil {
		t.Fatalf("compute: %v", err)
	}
	out := m.PrettyPrintTraces()
	for _, want := range []string{"monitor scripted (basic), 1 steps", "segments", "1,234", "56,789"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestWrapRejectsUnconstructedInstance(t *testing.T) {
	if _, _, err := Wrap(backend.Instance{}, "empty"); !errors.Is(err, fault.ErrBackend) {
		t.Fatalf("expected backend error, got: %v", err)
	}
}
