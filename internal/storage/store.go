package storage

import (
	"context"

	"tmregion/internal/model"
)

// Store persists region runs and their per-step traces.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveStepTraces(ctx context.Context, runID string, traces []model.StepTrace) error
	GetStepTraces(ctx context.Context, runID string) ([]model.StepTrace, bool, error)
	DeleteRun(ctx context.Context, id string) error
}
