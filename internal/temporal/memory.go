package temporal

import "tmregion/internal/backend"

// TemporalMemory learns sequences of feed-forward column activity.
type TemporalMemory struct {
	e *engine
}

func New(p Params) (*TemporalMemory, error) {
	e, err := newEngine(p, false)
	if err != nil {
		return nil, err
	}
	return &TemporalMemory{e: e}, nil
}

func (tm *TemporalMemory) Compute(activeColumns []int, learn bool) error {
	return tm.e.compute(stepInput{columns: activeColumns, learn: learn})
}

func (tm *TemporalMemory) ActiveCells() []int     { return copyInts(tm.e.activeCells) }
func (tm *TemporalMemory) PredictiveCells() []int { return copyInts(tm.e.predictive) }
func (tm *TemporalMemory) WinnerCells() []int     { return copyInts(tm.e.winnerCells) }
func (tm *TemporalMemory) NumberOfCells() int     { return tm.e.numCells }
func (tm *TemporalMemory) NumberOfColumns() int   { return tm.e.numColumns }
func (tm *TemporalMemory) NumSegments() int       { return tm.e.numSegments() }
func (tm *TemporalMemory) NumSynapses() int       { return tm.e.numSynapses() }
func (tm *TemporalMemory) Params() Params         { return tm.e.params }
func (tm *TemporalMemory) Reset()                 { tm.e.reset() }

// ExtendedTemporalMemory adds lateral (external) and apical context to the
// basic memory. External cells extend the basal input space; apical input
// selects among the predicted cells of a column.
type ExtendedTemporalMemory struct {
	e *engine
}

func NewExtended(p Params) (*ExtendedTemporalMemory, error) {
	e, err := newEngine(p, true)
	if err != nil {
		return nil, err
	}
	return &ExtendedTemporalMemory{e: e}, nil
}

func (tm *ExtendedTemporalMemory) ComputeExtended(in backend.ExtendedInput) error {
	return tm.e.compute(stepInput{
		columns:      in.ActiveColumns,
		external:     in.ActiveExternalCells,
		apical:       in.ActiveApicalCells,
		formInternal: in.FormInternalConnections,
		learn:        in.Learn,
	})
}

func (tm *ExtendedTemporalMemory) ActiveCells() []int     { return copyInts(tm.e.activeCells) }
func (tm *ExtendedTemporalMemory) PredictiveCells() []int { return copyInts(tm.e.predictive) }
func (tm *ExtendedTemporalMemory) WinnerCells() []int     { return copyInts(tm.e.winnerCells) }
func (tm *ExtendedTemporalMemory) NumberOfCells() int     { return tm.e.numCells }
func (tm *ExtendedTemporalMemory) NumberOfColumns() int   { return tm.e.numColumns }
func (tm *ExtendedTemporalMemory) NumSegments() int       { return tm.e.numSegments() }
func (tm *ExtendedTemporalMemory) NumSynapses() int       { return tm.e.numSynapses() }
func (tm *ExtendedTemporalMemory) Params() Params         { return tm.e.params }
func (tm *ExtendedTemporalMemory) Reset()                 { tm.e.reset() }

var (
	_ backend.Basic    = (*TemporalMemory)(nil)
	_ backend.Extended = (*ExtendedTemporalMemory)(nil)
	_ backend.Stats    = (*TemporalMemory)(nil)
	_ backend.Stats    = (*ExtendedTemporalMemory)(nil)
)
