package region

import (
	"strings"

	"tmregion/internal/backend"
	"tmregion/internal/backendid"
	"tmregion/internal/fault"
	"tmregion/internal/factory"
)

// OutputType selects which projection is mirrored into the default output.
type OutputType int

const (
	OutputActive OutputType = iota + 1
	OutputPredictive
	OutputPredictedActive
)

var outputTypeNames = map[OutputType]string{
	OutputActive:          "active",
	OutputPredictive:      "predictive",
	OutputPredictedActive: "predictedActiveCells",
}

func (o OutputType) String() string {
	if name, ok := outputTypeNames[o]; ok {
		return name
	}
	return "unknown"
}

func (o OutputType) valid() bool {
	_, ok := outputTypeNames[o]
	return ok
}

// ParseOutputType resolves a default-output selector by name.
func ParseOutputType(name string) (OutputType, error) {
	trimmed := strings.TrimSpace(name)
	for o, n := range outputTypeNames {
		if n == trimmed {
			return o, nil
		}
	}
	return 0, fault.Configuration("unknown default output type %q", name)
}

// Config is the region's parameter record. Fields change only through
// SetParameter once the region exists.
type Config struct {
	ColumnCount               uint32
	CellsPerColumn            uint32
	ActivationThreshold       uint32
	InitialPermanence         float64
	ConnectedPermanence       float64
	MinThreshold              uint32
	MaxNewSynapseCount        uint32
	PermanenceIncrement       float64
	PermanenceDecrement       float64
	PredictedSegmentDecrement float64
	Seed                      uint32
	TemporalImp               string
	LearnOnOneCell            bool
	FormInternalConnections   bool
	DefaultOutputType         OutputType
	LearningMode              bool
	InferenceMode             bool
}

func DefaultConfig() Config {
	return Config{
		ColumnCount:               2048,
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
		TemporalImp:               backendid.TM,
		LearnOnOneCell:            true,
		FormInternalConnections:   true,
		DefaultOutputType:         OutputActive,
		LearningMode:              true,
		InferenceMode:             true,
	}
}

// InputWidth is the cell count of every dense output. Validate bounds it
// by backend.MaxCells.
func (c Config) InputWidth() int {
	return int(c.ColumnCount) * int(c.CellsPerColumn)
}

func (c Config) Validate() error {
	if c.ColumnCount == 0 {
		return fault.Configuration("%s must be > 0", ParamColumnCount)
	}
	if c.CellsPerColumn == 0 {
		return fault.Configuration("%s must be > 0", factory.ParamCellsPerColumn)
	}
	if cells := uint64(c.ColumnCount) * uint64(c.CellsPerColumn); cells > backend.MaxCells {
		return fault.Configuration("%s*%s = %d exceeds the %d cell limit",
			ParamColumnCount, factory.ParamCellsPerColumn, cells, backend.MaxCells)
	}
	if strings.TrimSpace(c.TemporalImp) == "" {
		return fault.Configuration("%s is required", ParamTemporalImp)
	}
	if !c.DefaultOutputType.valid() {
		return fault.Configuration("unknown default output type %d", int(c.DefaultOutputType))
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{factory.ParamInitialPermanence, c.InitialPermanence},
		{factory.ParamConnectedPermanence, c.ConnectedPermanence},
	} {
		if p.value < 0 || p.value > 1 {
			return fault.Configuration("%s must be within [0,1], got %g", p.name, p.value)
		}
	}
	for _, p := range []struct {
		name  string
		value float64
	}{
		{factory.ParamPermanenceIncrement, c.PermanenceIncrement},
		{factory.ParamPermanenceDecrement, c.PermanenceDecrement},
		{factory.ParamPredictedSegmentDecrement, c.PredictedSegmentDecrement},
	} {
		if p.value < 0 {
			return fault.Configuration("%s must be >= 0, got %g", p.name, p.value)
		}
	}
	return nil
}

// CandidateArgs returns every parameter by name plus the derived
// column dimensions. The backend factory narrows it to what the selected
// backend accepts.
func (c Config) CandidateArgs() backend.Args {
	args := make(backend.Args, len(parameterTable)+1)
	for _, p := range parameterTable {
		args[p.name] = p.get(&c)
	}
	args[factory.ParamColumnDimensions] = []int{int(c.ColumnCount)}
	return args
}
