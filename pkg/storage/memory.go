package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kutay-yilmaz/Solar-Fleet-Analytics-Engine/pkg/types"
)

// Memory keeps runs in process memory. Runs are lost on restart.
type Memory struct {
	mu   sync.RWMutex
	runs map[string]types.FleetRun
}

// NewMemory returns an empty Memory.
func NewMemory() *Memory {
	return &Memory{runs: make(map[string]types.FleetRun)}
}

// SaveRun implements Database.
func (m *Memory) SaveRun(ctx context.Context, run types.FleetRun) error {
	if run.ID == "" {
		return fmt.Errorf("run id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = run
	return nil
}

// GetRun implements Database.
func (m *Memory) GetRun(ctx context.Context, id string) (types.FleetRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[id]
	if !ok {
		return types.FleetRun{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, nil
}

// ListRuns implements Database.
func (m *Memory) ListRuns(ctx context.Context, month types.Month) ([]types.FleetRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]types.FleetRun, 0, len(m.runs))
	for _, run := range m.runs {
		if month.IsZero() || run.Month == month {
			runs = append(runs, run)
		}
	}
	sortNewestFirst(runs)
	return runs, nil
}

// Close implements Database.
func (m *Memory) Close() error {
	return nil
}

func sortNewestFirst(runs []types.FleetRun) {
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
}
