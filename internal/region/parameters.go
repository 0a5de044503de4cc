package region

import (
	"fmt"

	"tmregion/internal/backendid"
	"tmregion/internal/coerce"
	"tmregion/internal/factory"
	"tmregion/internal/fault"
)

// Region-level parameter names. Backend-facing names live in the factory.
const (
	ParamColumnCount             = "columnCount"
	ParamInputWidth              = "inputWidth"
	ParamTemporalImp             = "temporalImp"
	ParamFormInternalConnections = "formInternalConnections"
	ParamDefaultOutputType       = "defaultOutputType"
	ParamLearningMode            = "learningMode"
	ParamInferenceMode           = "inferenceMode"
)

type accessMode string

const (
	accessRead      accessMode = "Read"
	accessReadWrite accessMode = "ReadWrite"
)

type parameter struct {
	name        string
	description string
	dataType    string
	access      accessMode
	constraints string

	// construction marks fields consumed when the backend is built; they
	// are frozen once it exists.
	construction bool
	get          func(*Config) any
	set          func(*Config, any) error
}

func uintParam(name, description string, field func(*Config) *uint32) parameter {
	return parameter{
		name:         name,
		description:  description,
		dataType:     "UInt32",
		access:       accessReadWrite,
		construction: true,
		get:          func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			n, err := coerce.Uint32(v)
			if err != nil {
				return fault.Configuration("%s: %v", name, err)
			}
			*field(c) = n
			return nil
		},
	}
}

func floatParam(name, description string, field func(*Config) *float64) parameter {
	return parameter{
		name:         name,
		description:  description,
		dataType:     "Real32",
		access:       accessReadWrite,
		construction: true,
		get:          func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			f, err := coerce.Float64(v)
			if err != nil {
				return fault.Configuration("%s: %v", name, err)
			}
			*field(c) = f
			return nil
		},
	}
}

func boolParam(name, description string, construction bool, field func(*Config) *bool) parameter {
	return parameter{
		name:         name,
		description:  description,
		dataType:     "UInt32",
		access:       accessReadWrite,
		constraints:  "bool",
		construction: construction,
		get:          func(c *Config) any { return *field(c) },
		set: func(c *Config, v any) error {
			b, err := coerce.Bool(v)
			if err != nil {
				return fault.Configuration("%s: %v", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

var parameterTable = []parameter{
	boolParam(ParamLearningMode, "1 if the node is learning (default 1).", false,
		func(c *Config) *bool { return &c.LearningMode }),
	boolParam(ParamInferenceMode, "1 if the node is inferring (default 1).", false,
		func(c *Config) *bool { return &c.InferenceMode }),
	uintParam(ParamColumnCount, "Number of columns in this temporal memory.",
		func(c *Config) *uint32 { return &c.ColumnCount }),
	{
		name:        ParamInputWidth,
		description: "Number of inputs to the temporal memory.",
		dataType:    "UInt32",
		access:      accessRead,
		get:         func(c *Config) any { return uint32(c.InputWidth()) },
	},
	uintParam(factory.ParamCellsPerColumn, "Number of cells per column.",
		func(c *Config) *uint32 { return &c.CellsPerColumn }),
	uintParam(factory.ParamActivationThreshold, "Active connected synapses needed for a segment to become active.",
		func(c *Config) *uint32 { return &c.ActivationThreshold }),
	floatParam(factory.ParamInitialPermanence, "Initial permanence of a new synapse.",
		func(c *Config) *float64 { return &c.InitialPermanence }),
	floatParam(factory.ParamConnectedPermanence, "Permanence above which a synapse is connected.",
		func(c *Config) *float64 { return &c.ConnectedPermanence }),
	uintParam(factory.ParamMinThreshold, "Active potential synapses needed for a segment to match in a bursting column.",
		func(c *Config) *uint32 { return &c.MinThreshold }),
	uintParam(factory.ParamMaxNewSynapseCount, "Maximum number of synapses added to a segment during learning.",
		func(c *Config) *uint32 { return &c.MaxNewSynapseCount }),
	floatParam(factory.ParamPermanenceIncrement, "Permanence increment for reinforced synapses.",
		func(c *Config) *float64 { return &c.PermanenceIncrement }),
	floatParam(factory.ParamPermanenceDecrement, "Permanence decrement for unsupported synapses.",
		func(c *Config) *float64 { return &c.PermanenceDecrement }),
	floatParam(factory.ParamPredictedSegmentDecrement, "Permanence decrement for predicted but inactive segments.",
		func(c *Config) *float64 { return &c.PredictedSegmentDecrement }),
	uintParam(factory.ParamSeed, "Seed for the random number generator.",
		func(c *Config) *uint32 { return &c.Seed }),
	{
		name:         ParamTemporalImp,
		description:  "Temporal memory backend to construct.",
		dataType:     "Byte",
		access:       accessReadWrite,
		constraints:  "enum: " + backendid.TM + "," + backendid.TMCPP + "," + backendid.Extended + "," + backendid.TMMixin + "," + backendid.MonitoredExtended,
		construction: true,
		get:          func(c *Config) any { return c.TemporalImp },
		set: func(c *Config, v any) error {
			s, err := coerce.String(v)
			if err != nil {
				return fault.Configuration("%s: %v", ParamTemporalImp, err)
			}
			c.TemporalImp = backendid.Normalize(s)
			return nil
		},
	},
	boolParam(ParamFormInternalConnections, "Whether to form connections with internal cells.", false,
		func(c *Config) *bool { return &c.FormInternalConnections }),
	boolParam(factory.ParamLearnOnOneCell, "If true, the winner cell of each column is fixed between resets.", true,
		func(c *Config) *bool { return &c.LearnOnOneCell }),
	{
		name:        ParamDefaultOutputType,
		description: "Which cell projection is placed into bottomUpOut.",
		dataType:    "Byte",
		access:      accessReadWrite,
		constraints: "enum: active,predictive,predictedActiveCells",
		get:         func(c *Config) any { return c.DefaultOutputType.String() },
		set: func(c *Config, v any) error {
			s, err := coerce.String(v)
			if err != nil {
				return fault.Configuration("%s: %v", ParamDefaultOutputType, err)
			}
			o, err := ParseOutputType(s)
			if err != nil {
				return err
			}
			c.DefaultOutputType = o
			return nil
		},
	},
}

func lookupParameter(name string) (parameter, error) {
	for _, p := range parameterTable {
		if p.name == name {
			return p, nil
		}
	}
	return parameter{}, fmt.Errorf("%w: %s", fault.ErrUnknownParameter, name)
}
