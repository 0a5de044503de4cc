package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one sequence run through a region.
type RunRecord struct {
	VersionedRecord
	ID                   string         `json:"id"`
	RegionID             string         `json:"region_id"`
	Backend              string         `json:"backend"`
	BackendKind          string         `json:"backend_kind"`
	Parameters           map[string]any `json:"parameters"`
	Steps                int            `json:"steps"`
	Resets               int            `json:"resets"`
	ActiveCells          int            `json:"active_cells"`
	PredictedActiveCells int            `json:"predicted_active_cells"`
	PredictionRatio      float64        `json:"prediction_ratio"`
	CreatedAt            time.Time      `json:"created_at"`
}

// StepTrace is the sparse record of one compute step. Cell lists hold the
// indices of the set elements of the corresponding dense output.
type StepTrace struct {
	Step                 int   `json:"step"`
	SequenceID           int   `json:"sequence_id"`
	Reset                bool  `json:"reset"`
	ActiveColumns        []int `json:"active_columns"`
	ActiveCells          []int `json:"active_cells"`
	PredictiveCells      []int `json:"predictive_cells"`
	PredictedActiveCells []int `json:"predicted_active_cells"`
}
