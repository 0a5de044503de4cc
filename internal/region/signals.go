package region

import "github.com/zoobzio/capitan"

// Signals follow the pattern: tmregion.<entity>.<event>.
var (
	RegionInitialized = capitan.NewSignal(
		"tmregion.region.initialized",
		"Region constructed its temporal memory backend",
	)
	RegionReset = capitan.NewSignal(
		"tmregion.region.reset",
		"Region cleared backend sequence state and predictive history",
	)
	StepComputed = capitan.NewSignal(
		"tmregion.step.computed",
		"Region completed one compute step",
	)
	StepFailed = capitan.NewSignal(
		"tmregion.step.failed",
		"Region compute step failed",
	)
)

var (
	FieldRegionID    = capitan.NewStringKey("region_id")
	FieldBackend     = capitan.NewStringKey("backend")
	FieldBackendKind = capitan.NewStringKey("backend_kind")
	FieldCellCount   = capitan.NewIntKey("cell_count")

	FieldStep                 = capitan.NewIntKey("step")
	FieldActiveCells          = capitan.NewIntKey("active_cells")
	FieldPredictiveCells      = capitan.NewIntKey("predictive_cells")
	FieldPredictedActiveCells = capitan.NewIntKey("predicted_active_cells")
	FieldStepDuration         = capitan.NewDurationKey("step_duration")

	FieldError = capitan.NewErrorKey("error")
)
