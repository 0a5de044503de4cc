package region

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/capitan"

	"tmregion/internal/fault"
)

type stepEvent struct {
	step            int
	active          int
	predictive      int
	predictedActive int
	err             error
	severity        capitan.Severity
}

// collectRegionEvents records events for one region id; other tests may
// still be draining events for their own regions.
func collectRegionEvents(signal capitan.Signal, regionID string) (func(n int) []stepEvent, func()) {
	var mu sync.Mutex
	var events []stepEvent

	listener := capitan.Hook(signal, func(_ context.Context, e *capitan.Event) {
		id, _ := FieldRegionID.From(e)
		if id != regionID {
			return
		}
		stepNum, _ := FieldStep.From(e)
		active, _ := FieldActiveCells.From(e)
		predictive, _ := FieldPredictiveCells.From(e)
		predictedActive, _ := FieldPredictedActiveCells.From(e)
		stepErr, _ := FieldError.From(e)
		mu.Lock()
		events = append(events, stepEvent{
			step:            stepNum,
			active:          active,
			predictive:      predictive,
			predictedActive: predictedActive,
			err:             stepErr,
			severity:        e.Severity(),
		})
		mu.Unlock()
	})

	wait := func(n int) []stepEvent {
		deadline := time.Now().Add(time.Second)
		for {
			mu.Lock()
			count := len(events)
			mu.Unlock()
			if count >= n || time.Now().After(deadline) {
				break
			}
			time.Sleep(time.Millisecond)
		}
		mu.Lock()
		defer mu.Unlock()
		return append([]stepEvent(nil), events...)
	}
	return wait, func() { listener.Close() }
}

func TestStepComputedEvents(t *testing.T) {
	const id = "signals-computed"
	wait, stop := collectRegionEvents(StepComputed, id)
	defer stop()

	r, _ := newScriptedRegion(t, []scriptedStep{
		{active: []int{0, 3}, predictive: []int{1, 4}},
		{active: []int{1, 4}, predictive: []int{2}},
	}, WithID(id))
	step(t, r, columns(0, 2))
	step(t, r, columns(0, 2))

	events := wait(2)
	if len(events) != 2 {
		t.Fatalf("expected 2 StepComputed events, got %d", len(events))
	}
	byStep := map[int]stepEvent{}
	for _, e := range events {
		byStep[e.step] = e
	}
	second, ok := byStep[1]
	if !ok {
		t.Fatalf("expected an event for step 1: %+v", events)
	}
	if second.active != 2 || second.predictive != 1 || second.predictedActive != 2 {
		t.Fatalf("unexpected step counts: %+v", second)
	}
}

func TestStepFailedEvent(t *testing.T) {
	const id = "signals-failed"
	wait, stop := collectRegionEvents(StepFailed, id)
	defer stop()

	r, _ := newScriptedRegion(t, nil, WithID(id))
	in := columns(0)
	in[InputReset] = []float32{1, 1}
	if err := r.Compute(context.Background(), in, Outputs{}); !errors.Is(err, fault.ErrPrecondition) {
		t.Fatalf("expected precondition error, got: %v", err)
	}

	events := wait(1)
	if len(events) != 1 {
		t.Fatalf("expected 1 StepFailed event, got %d", len(events))
	}
	if !errors.Is(events[0].err, fault.ErrPrecondition) {
		t.Fatalf("expected error field to carry the failure, got %v", events[0].err)
	}
	if events[0].severity != capitan.SeverityError {
		t.Fatalf("expected Error severity, got %v", events[0].severity)
	}
}

func TestLifecycleEvents(t *testing.T) {
	const id = "signals-lifecycle"
	waitInit, stopInit := collectRegionEvents(RegionInitialized, id)
	defer stopInit()
	waitReset, stopReset := collectRegionEvents(RegionReset, id)
	defer stopReset()

	r, _ := newScriptedRegion(t, []scriptedStep{{active: []int{0}}}, WithID(id))
	if r.ID() != id {
		t.Fatalf("unexpected region id: %s", r.ID())
	}
	r.Reset(context.Background())

	if got := waitInit(1); len(got) != 1 {
		t.Fatalf("expected 1 RegionInitialized event, got %d", len(got))
	}
	if got := waitReset(1); len(got) != 1 {
		t.Fatalf("expected 1 RegionReset event, got %d", len(got))
	}
}
