package backend

import (
	"context"
	"fmt"
	"math"

	"tmregion/internal/fault"
)

// Kind tags which compute entry point a backend exposes.
type Kind int

const (
	KindBasic Kind = iota + 1
	KindExtended
)

func (k Kind) String() string {
	switch k {
	case KindBasic:
		return "basic"
	case KindExtended:
		return "extended"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MaxCells bounds the cell count of any backend so that cell indices and
// dense output lengths fit in int and uint32 on every platform.
const MaxCells = math.MaxInt32

// Memory is the query surface every temporal-memory backend exposes.
// Cell indices are returned in ascending order.
type Memory interface {
	ActiveCells() []int
	PredictiveCells() []int
	NumberOfCells() int
	Reset()
}

// Basic backends learn from feed-forward column activity only.
type Basic interface {
	Memory
	Compute(activeColumns []int, learn bool) error
}

// ExtendedInput is one step of input for an Extended backend. A nil
// ActiveExternalCells or ActiveApicalCells means the input is not wired;
// a non-nil empty slice means the input is wired but silent this step.
type ExtendedInput struct {
	Context                 context.Context
	ActiveColumns           []int
	ActiveExternalCells     []int
	ActiveApicalCells       []int
	FormInternalConnections bool
	Learn                   bool
}

// Extended backends additionally take lateral and apical context.
type Extended interface {
	Memory
	ComputeExtended(in ExtendedInput) error
}

// Stats is an optional capability for backends that report connectivity size.
type Stats interface {
	NumSegments() int
	NumSynapses() int
}

// TraceReporter is an optional capability for backends that record traces.
type TraceReporter interface {
	PrettyPrintTraces() string
}

// StepComputer is an optional capability for decorators that want the
// whole Step, context included, instead of the kind-specific entry point.
type StepComputer interface {
	ComputeStep(step Step) error
}

// Step carries everything a single compute call may need, for either kind.
// Context is the caller's context; it may be nil.
type Step struct {
	Context                 context.Context
	ActiveColumns           []int
	ActiveExternalCells     []int
	ActiveApicalCells       []int
	FormInternalConnections bool
	Learn                   bool
}

// Instance is a constructed backend tagged with its kind. The tag is fixed
// at construction; compute calls dispatch on it instead of inspecting the
// backend at call time.
type Instance struct {
	kind     Kind
	memory   Memory
	basic    Basic
	extended Extended
	stepper  StepComputer
}

// NewInstance checks once that memory satisfies the contract for kind.
func NewInstance(kind Kind, memory Memory) (Instance, error) {
	if memory == nil {
		return Instance{}, fault.Backend(fmt.Errorf("nil backend for kind %s", kind))
	}
	inst := Instance{kind: kind, memory: memory}
	switch kind {
	case KindBasic:
		b, ok := memory.(Basic)
		if !ok {
			return Instance{}, fault.Backend(fmt.Errorf("%T does not implement the basic compute contract", memory))
		}
		inst.basic = b
	case KindExtended:
		e, ok := memory.(Extended)
		if !ok {
			return Instance{}, fault.Backend(fmt.Errorf("%T does not implement the extended compute contract", memory))
		}
		inst.extended = e
	default:
		return Instance{}, fault.Backend(fmt.Errorf("unsupported backend kind %s", kind))
	}
	if s, ok := memory.(StepComputer); ok {
		inst.stepper = s
	}
	return inst, nil
}

func (i Instance) Kind() Kind {
	return i.kind
}

func (i Instance) Memory() Memory {
	return i.memory
}

func (i Instance) Valid() bool {
	return i.memory != nil
}

// Compute runs one step using the calling convention of the tagged kind.
// Basic backends ignore the external, apical and internal-connection fields.
func (i Instance) Compute(step Step) error {
	if i.stepper != nil {
		return fault.Backend(i.stepper.ComputeStep(step))
	}
	switch i.kind {
	case KindBasic:
		return fault.Backend(i.basic.Compute(step.ActiveColumns, step.Learn))
	case KindExtended:
		return fault.Backend(i.extended.ComputeExtended(ExtendedInput{
			Context:                 step.Context,
			ActiveColumns:           step.ActiveColumns,
			ActiveExternalCells:     step.ActiveExternalCells,
			ActiveApicalCells:       step.ActiveApicalCells,
			FormInternalConnections: step.FormInternalConnections,
			Learn:                   step.Learn,
		}))
	default:
		return fault.Backend(fmt.Errorf("backend instance not constructed"))
	}
}
