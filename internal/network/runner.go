// Package network hosts a region: it turns sequence records into named
// dense inputs, drives one compute per record in order, and reads the
// dense outputs back into sparse step traces.
package network

import (
	"context"
	"fmt"
	"log/slog"

	"tmregion/internal/model"
	"tmregion/internal/region"
	"tmregion/internal/sequence"
)

type Summary struct {
	Steps                int     `json:"steps"`
	Resets               int     `json:"resets"`
	ActiveCells          int     `json:"active_cells"`
	PredictedActiveCells int     `json:"predicted_active_cells"`
	PredictionRatio      float64 `json:"prediction_ratio"`
}

type Runner struct {
	region *region.Region
	widths sequence.Widths
	logger *slog.Logger
	step   int
}

// NewRunner wires a region to records of the given widths. A zero column
// width defaults to the region's column count.
func NewRunner(r *region.Region, widths sequence.Widths, logger *slog.Logger) (*Runner, error) {
	if r == nil {
		return nil, fmt.Errorf("region is required")
	}
	columns := int(r.Config().ColumnCount)
	if widths.Columns == 0 {
		widths.Columns = columns
	}
	if widths.Columns != columns {
		return nil, fmt.Errorf("column width mismatch: records=%d region=%d", widths.Columns, columns)
	}
	if widths.External < 0 || widths.Apical < 0 {
		return nil, fmt.Errorf("input widths must be >= 0")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		region: r,
		widths: widths,
		logger: logger.With(slog.String("component", "runner"), slog.String("region_id", r.ID())),
	}, nil
}

func (n *Runner) Widths() sequence.Widths {
	return n.widths
}

// RunStep computes one record. The region is initialized on first use.
func (n *Runner) RunStep(ctx context.Context, rec sequence.Record) (model.StepTrace, error) {
	if err := ctx.Err(); err != nil {
		return model.StepTrace{}, err
	}
	if err := n.region.Initialize(ctx); err != nil {
		return model.StepTrace{}, err
	}
	inputs, err := n.inputs(rec)
	if err != nil {
		return model.StepTrace{}, fmt.Errorf("step %d: %w", n.step, err)
	}

	outputs := region.Outputs{}
	if err := n.region.Compute(ctx, inputs, outputs); err != nil {
		return model.StepTrace{}, fmt.Errorf("step %d: %w", n.step, err)
	}

	trace := model.StepTrace{
		Step:                 n.step,
		SequenceID:           rec.SequenceID,
		Reset:                rec.Reset,
		ActiveColumns:        append([]int(nil), rec.ActiveColumns...),
		ActiveCells:          indices(outputs[region.OutputActiveCells]),
		PredictiveCells:      indices(outputs[region.OutputPredictiveCells]),
		PredictedActiveCells: indices(outputs[region.OutputPredictedActiveCells]),
	}
	n.step++
	return trace, nil
}

// Run computes every record in order and stops at the first failure.
func (n *Runner) Run(ctx context.Context, records []sequence.Record) ([]model.StepTrace, Summary, error) {
	traces := make([]model.StepTrace, 0, len(records))
	var summary Summary
	for _, rec := range records {
		trace, err := n.RunStep(ctx, rec)
		if err != nil {
			return traces, summarize(traces), err
		}
		traces = append(traces, trace)
	}
	summary = summarize(traces)
	n.logger.Info("run complete",
		slog.Int("steps", summary.Steps),
		slog.Int("resets", summary.Resets),
		slog.Float64("prediction_ratio", summary.PredictionRatio),
	)
	return traces, summary, nil
}

func (n *Runner) inputs(rec sequence.Record) (region.Inputs, error) {
	bottomUp, err := sequence.Dense(rec.ActiveColumns, n.widths.Columns)
	if err != nil {
		return nil, fmt.Errorf("active columns: %w", err)
	}
	reset := float32(0)
	if rec.Reset {
		reset = 1
	}
	in := region.Inputs{
		region.InputBottomUp:   bottomUp,
		region.InputReset:      {reset},
		region.InputSequenceID: {float32(rec.SequenceID)},
	}
	if n.widths.External > 0 {
		if in[region.InputExternal], err = sequence.Dense(rec.ExternalCells, n.widths.External); err != nil {
			return nil, fmt.Errorf("external cells: %w", err)
		}
	} else if len(rec.ExternalCells) > 0 {
		return nil, fmt.Errorf("external cells given but external input is not wired")
	}
	if n.widths.Apical > 0 {
		if in[region.InputTopDown], err = sequence.Dense(rec.ApicalCells, n.widths.Apical); err != nil {
			return nil, fmt.Errorf("apical cells: %w", err)
		}
	} else if len(rec.ApicalCells) > 0 {
		return nil, fmt.Errorf("apical cells given but apical input is not wired")
	}
	return in, nil
}

func summarize(traces []model.StepTrace) Summary {
	var s Summary
	for _, tr := range traces {
		s.Steps++
		if tr.Reset {
			s.Resets++
		}
		s.ActiveCells += len(tr.ActiveCells)
		s.PredictedActiveCells += len(tr.PredictedActiveCells)
	}
	if s.ActiveCells > 0 {
		s.PredictionRatio = float64(s.PredictedActiveCells) / float64(s.ActiveCells)
	}
	return s
}

func indices(dense []float32) []int {
	out := make([]int, 0)
	for i, v := range dense {
		if v != 0 {
			out = append(out, i)
		}
	}
	return out
}
