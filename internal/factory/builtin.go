package factory

import (
	"tmregion/internal/backend"
	"tmregion/internal/backendid"
	"tmregion/internal/coerce"
	"tmregion/internal/fault"
	"tmregion/internal/monitor"
	"tmregion/internal/temporal"
)

// Constructor parameter names shared with the region configuration.
const (
	ParamColumnDimensions          = "columnDimensions"
	ParamCellsPerColumn            = "cellsPerColumn"
	ParamActivationThreshold       = "activationThreshold"
	ParamInitialPermanence         = "initialPermanence"
	ParamConnectedPermanence       = "connectedPermanence"
	ParamMinThreshold              = "minThreshold"
	ParamMaxNewSynapseCount        = "maxNewSynapseCount"
	ParamPermanenceIncrement       = "permanenceIncrement"
	ParamPermanenceDecrement       = "permanenceDecrement"
	ParamPredictedSegmentDecrement = "predictedSegmentDecrement"
	ParamSeed                      = "seed"
	ParamMaxSegmentsPerCell        = "maxSegmentsPerCell"
	ParamMaxSynapsesPerSegment     = "maxSynapsesPerSegment"
	ParamLearnOnOneCell            = "learnOnOneCell"
)

var strictParams = []string{
	ParamColumnDimensions,
	ParamCellsPerColumn,
	ParamActivationThreshold,
	ParamInitialPermanence,
	ParamConnectedPermanence,
	ParamMinThreshold,
	ParamMaxNewSynapseCount,
	ParamPermanenceIncrement,
	ParamPermanenceDecrement,
	ParamPredictedSegmentDecrement,
	ParamSeed,
}

var basicParams = append(append([]string(nil), strictParams...),
	ParamMaxSegmentsPerCell,
	ParamMaxSynapsesPerSegment,
)

var extendedParams = append(append([]string(nil), basicParams...),
	ParamLearnOnOneCell,
)

func registerBuiltIns(f *Factory) {
	f.MustRegister(Spec{
		Name:   backendid.TM,
		Kind:   backend.KindBasic,
		Params: basicParams,
		Build:  buildBasic,
	})
	f.MustRegister(Spec{
		Name:   backendid.TMCPP,
		Kind:   backend.KindBasic,
		Params: strictParams,
		Build:  buildStrict,
	})
	f.MustRegister(Spec{
		Name:   backendid.Extended,
		Kind:   backend.KindExtended,
		Params: extendedParams,
		Build:  buildExtended,
	})
	f.MustRegister(Spec{
		Name:   backendid.TMMixin,
		Kind:   backend.KindBasic,
		Params: basicParams,
		Build:  buildBasic,
		Wrap:   wrapMonitored,
	})
	f.MustRegister(Spec{
		Name:   backendid.MonitoredExtended,
		Kind:   backend.KindExtended,
		Params: extendedParams,
		Build:  buildExtended,
		Wrap:   wrapMonitored,
	})
}

func buildBasic(args backend.Args) (backend.Memory, error) {
	p, err := paramsFromArgs(args, false)
	if err != nil {
		return nil, err
	}
	return temporal.New(p)
}

// buildStrict accepts only the strict parameter set; anything else is a
// construction failure rather than being ignored.
func buildStrict(args backend.Args) (backend.Memory, error) {
	allowed := make(map[string]struct{}, len(strictParams))
	for _, name := range strictParams {
		allowed[name] = struct{}{}
	}
	for _, name := range args.Names() {
		if _, ok := allowed[name]; !ok {
			return nil, fault.Configuration("unexpected constructor argument %q", name)
		}
	}
	p, err := paramsFromArgs(args, false)
	if err != nil {
		return nil, err
	}
	return temporal.New(p)
}

func buildExtended(args backend.Args) (backend.Memory, error) {
	p, err := paramsFromArgs(args, true)
	if err != nil {
		return nil, err
	}
	return temporal.NewExtended(p)
}

func wrapMonitored(inst backend.Instance, name string) (backend.Instance, error) {
	wrapped, _, err := monitor.Wrap(inst, name)
	return wrapped, err
}

// paramsFromArgs maps a filtered argument bag onto temporal.Params,
// starting from the defaults for every name the bag does not carry.
func paramsFromArgs(args backend.Args, extended bool) (temporal.Params, error) {
	p := temporal.DefaultParams()
	d := decoder{args: args}

	if v, ok := args[ParamColumnDimensions]; ok {
		dims, err := coerce.Ints(v)
		if err != nil {
			return temporal.Params{}, fault.Configuration("%s: %v", ParamColumnDimensions, err)
		}
		p.ColumnDimensions = dims
	}
	d.intField(ParamCellsPerColumn, &p.CellsPerColumn)
	d.intField(ParamActivationThreshold, &p.ActivationThreshold)
	d.floatField(ParamInitialPermanence, &p.InitialPermanence)
	d.floatField(ParamConnectedPermanence, &p.ConnectedPermanence)
	d.intField(ParamMinThreshold, &p.MinThreshold)
	d.intField(ParamMaxNewSynapseCount, &p.MaxNewSynapseCount)
	d.floatField(ParamPermanenceIncrement, &p.PermanenceIncrement)
	d.floatField(ParamPermanenceDecrement, &p.PermanenceDecrement)
	d.floatField(ParamPredictedSegmentDecrement, &p.PredictedSegmentDecrement)
	d.int64Field(ParamSeed, &p.Seed)
	d.intField(ParamMaxSegmentsPerCell, &p.MaxSegmentsPerCell)
	d.intField(ParamMaxSynapsesPerSegment, &p.MaxSynapsesPerSegment)
	if extended {
		d.boolField(ParamLearnOnOneCell, &p.LearnOnOneCell)
	}
	if d.err != nil {
		return temporal.Params{}, d.err
	}
	return p, nil
}

type decoder struct {
	args backend.Args
	err  error
}

func (d *decoder) fail(name string, err error) {
	if d.err == nil {
		d.err = fault.Configuration("%s: %v", name, err)
	}
}

func (d *decoder) intField(name string, dst *int) {
	v, ok := d.args[name]
	if !ok {
		return
	}
	n, err := coerce.Int(v)
	if err != nil {
		d.fail(name, err)
		return
	}
	*dst = n
}

func (d *decoder) int64Field(name string, dst *int64) {
	v, ok := d.args[name]
	if !ok {
		return
	}
	n, err := coerce.Int(v)
	if err != nil {
		d.fail(name, err)
		return
	}
	*dst = int64(n)
}

func (d *decoder) floatField(name string, dst *float64) {
	v, ok := d.args[name]
	if !ok {
		return
	}
	f, err := coerce.Float64(v)
	if err != nil {
		d.fail(name, err)
		return
	}
	*dst = f
}

func (d *decoder) boolField(name string, dst *bool) {
	v, ok := d.args[name]
	if !ok {
		return
	}
	b, err := coerce.Bool(v)
	if err != nil {
		d.fail(name, err)
		return
	}
	*dst = b
}
