package temporal

import (
	"tmregion/internal/backend"
	"tmregion/internal/fault"
)

// Params configures a temporal memory. Zero caps fall back to the defaults.
type Params struct {
	ColumnDimensions          []int
	CellsPerColumn            int
	ActivationThreshold       int
	InitialPermanence         float64
	ConnectedPermanence       float64
	MinThreshold              int
	MaxNewSynapseCount        int
	PermanenceIncrement       float64
	PermanenceDecrement       float64
	PredictedSegmentDecrement float64
	Seed                      int64
	MaxSegmentsPerCell        int
	MaxSynapsesPerSegment     int
	LearnOnOneCell            bool
}

const (
	defaultMaxSegmentsPerCell    = 255
	defaultMaxSynapsesPerSegment = 255
)

func DefaultParams() Params {
	return Params{
		ColumnDimensions:          []int{2048},
		CellsPerColumn:            32,
		ActivationThreshold:       13,
		InitialPermanence:         0.21,
		ConnectedPermanence:       0.50,
		MinThreshold:              10,
		MaxNewSynapseCount:        20,
		PermanenceIncrement:       0.10,
		PermanenceDecrement:       0.10,
		PredictedSegmentDecrement: 0.0,
		Seed:                      42,
		MaxSegmentsPerCell:        defaultMaxSegmentsPerCell,
		MaxSynapsesPerSegment:     defaultMaxSynapsesPerSegment,
	}
}

func (p Params) NumColumns() int {
	if len(p.ColumnDimensions) == 0 {
		return 0
	}
	n := 1
	for _, d := range p.ColumnDimensions {
		n *= d
	}
	return n
}

func (p Params) Validate() error {
	if len(p.ColumnDimensions) == 0 {
		return fault.Configuration("column dimensions are required")
	}
	for _, d := range p.ColumnDimensions {
		if d <= 0 {
			return fault.Configuration("column dimension must be > 0, got %d", d)
		}
	}
	if p.CellsPerColumn <= 0 {
		return fault.Configuration("cells per column must be > 0, got %d", p.CellsPerColumn)
	}
	cells := p.CellsPerColumn
	for _, d := range p.ColumnDimensions {
		if cells > backend.MaxCells/d {
			return fault.Configuration("column dimensions %v with %d cells per column exceed the %d cell limit",
				p.ColumnDimensions, p.CellsPerColumn, backend.MaxCells)
		}
		cells *= d
	}
	if p.ActivationThreshold < 0 || p.MinThreshold < 0 || p.MaxNewSynapseCount < 0 {
		return fault.Configuration("thresholds and synapse counts must be >= 0")
	}
	for name, v := range map[string]float64{
		"initial permanence":   p.InitialPermanence,
		"connected permanence": p.ConnectedPermanence,
	} {
		if v < 0 || v > 1 {
			return fault.Configuration("%s must be within [0,1], got %g", name, v)
		}
	}
	if p.PermanenceIncrement < 0 || p.PermanenceDecrement < 0 || p.PredictedSegmentDecrement < 0 {
		return fault.Configuration("permanence deltas must be >= 0")
	}
	if p.MaxSegmentsPerCell < 0 || p.MaxSynapsesPerSegment < 0 {
		return fault.Configuration("segment and synapse caps must be >= 0")
	}
	return nil
}

func (p Params) withDefaults() Params {
	if p.MaxSegmentsPerCell == 0 {
		p.MaxSegmentsPerCell = defaultMaxSegmentsPerCell
	}
	if p.MaxSynapsesPerSegment == 0 {
		p.MaxSynapsesPerSegment = defaultMaxSynapsesPerSegment
	}
	p.ColumnDimensions = append([]int(nil), p.ColumnDimensions...)
	return p
}
