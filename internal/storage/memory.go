package storage

import (
	"context"
	"sort"
	"sync"

	"tmregion/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	traces      map[string][]model.StepTrace
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.traces = make(map[string][]model.StepTrace)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	if run.ID == "" {
		return ErrRunIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return model.RunRecord{}, false, ErrNotInitialized
	}
	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return copyRun(run), true, nil
}

// ListRuns returns every run, oldest first.
func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, ErrNotInitialized
	}
	runs := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		runs = append(runs, copyRun(run))
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.Before(runs[j].CreatedAt)
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (s *MemoryStore) SaveStepTraces(_ context.Context, runID string, traces []model.StepTrace) error {
	if runID == "" {
		return ErrRunIDRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	s.traces[runID] = copyTraces(traces)
	return nil
}

func (s *MemoryStore) GetStepTraces(_ context.Context, runID string) ([]model.StepTrace, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return nil, false, ErrNotInitialized
	}
	traces, ok := s.traces[runID]
	if !ok {
		return nil, false, nil
	}
	return copyTraces(traces), true, nil
}

func (s *MemoryStore) DeleteRun(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return ErrNotInitialized
	}
	delete(s.runs, id)
	delete(s.traces, id)
	return nil
}

func copyRun(run model.RunRecord) model.RunRecord {
	if run.Parameters != nil {
		params := make(map[string]any, len(run.Parameters))
		for k, v := range run.Parameters {
			params[k] = v
		}
		run.Parameters = params
	}
	return run
}

func copyTraces(traces []model.StepTrace) []model.StepTrace {
	copied := make([]model.StepTrace, 0, len(traces))
	for _, tr := range traces {
		copied = append(copied, model.StepTrace{
			Step:                 tr.Step,
			SequenceID:           tr.SequenceID,
			Reset:                tr.Reset,
			ActiveColumns:        append([]int(nil), tr.ActiveColumns...),
			ActiveCells:          append([]int(nil), tr.ActiveCells...),
			PredictiveCells:      append([]int(nil), tr.PredictiveCells...),
			PredictedActiveCells: append([]int(nil), tr.PredictedActiveCells...),
		})
	}
	return copied
}
