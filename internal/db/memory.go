package db

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MemoryStore keeps reports in process memory. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[uuid.UUID][]byte
	order   []ReportSummary
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[uuid.UUID][]byte)}
}

// SaveReport stores a copy of the report
func (m *MemoryStore) SaveReport(_ context.Context, report *Report) error {
	prepareReport(report)

	// Round-trip through JSON so stored reports share nothing with the caller.
	data, err := json.Marshal(report)
	if err != nil {
		return errors.Wrap(err, "failed to marshal report")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.reports[report.ID]; exists {
		return errors.Errorf("report %s already exists", report.ID)
	}
	m.reports[report.ID] = data
	m.order = append(m.order, report.Summary())
	return nil
}

// GetReport returns a copy of a stored report, or nil when missing
func (m *MemoryStore) GetReport(_ context.Context, id uuid.UUID) (*Report, error) {
	m.mu.RLock()
	data, ok := m.reports[id]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, errors.Wrap(err, "failed to decode report")
	}
	return &report, nil
}

// ListReports returns summaries, most recent first
func (m *MemoryStore) ListReports(_ context.Context, limit int) ([]ReportSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	m.mu.RLock()
	summaries := append([]ReportSummary(nil), m.order...)
	m.mu.RUnlock()

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	if summaries == nil {
		summaries = []ReportSummary{}
	}
	return summaries, nil
}
