package store

import (
	"context"
	"sort"
	"sync"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/internal/routing"
	"github.com/google/uuid"
)

// Memory is an in-process Backend used for development and tests.
type Memory struct {
	mu      sync.RWMutex
	seq     int64
	reports map[string]memoryReport
	areas   map[string]model.Area
}

type memoryReport struct {
	seq    int64
	report model.Report
}

func NewMemory() *Memory {
	return &Memory{
		reports: make(map[string]memoryReport),
		areas:   make(map[string]model.Area),
	}
}

func (m *Memory) Driver() string { return "memory" }

func parseMemoryID(id string) (string, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", ErrInvalidID
	}
	return u.String(), nil
}

func (m *Memory) InsertReport(_ context.Context, r model.Report) (model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	r.ID = uuid.NewString()
	m.reports[r.ID] = memoryReport{seq: m.seq, report: r}
	return r, nil
}

func (m *Memory) ListReports(_ context.Context, f model.ReportFilter) ([]model.Report, error) {
	m.mu.RLock()
	rows := make([]memoryReport, 0, len(m.reports))
	for _, row := range m.reports {
		if f.Match(row.report) {
			rows = append(rows, row)
		}
	}
	m.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if !a.report.CreatedAt.Equal(b.report.CreatedAt) {
			return a.report.CreatedAt.After(b.report.CreatedAt)
		}
		return a.seq > b.seq
	})

	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	out := make([]model.Report, len(rows))
	for i, row := range rows {
		out[i] = row.report
	}
	return out, nil
}

func (m *Memory) GetReport(_ context.Context, id string) (model.Report, error) {
	key, err := parseMemoryID(id)
	if err != nil {
		return model.Report{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.reports[key]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	return row.report, nil
}

func (m *Memory) DeleteReport(_ context.Context, id string) error {
	key, err := parseMemoryID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reports[key]; !ok {
		return ErrNotFound
	}
	delete(m.reports, key)
	return nil
}

func (m *Memory) UpdateReportStatus(_ context.Context, id, status string) (model.Report, error) {
	key, err := parseMemoryID(id)
	if err != nil {
		return model.Report{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	row, ok := m.reports[key]
	if !ok {
		return model.Report{}, ErrNotFound
	}
	row.report.Status = status
	m.reports[key] = row
	return row.report, nil
}

func (m *Memory) InsertArea(_ context.Context, a model.Area) (model.Area, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a.ID = uuid.NewString()
	m.areas[a.ID] = a
	return a, nil
}

func (m *Memory) ListAreas(_ context.Context) ([]model.Area, error) {
	return m.listAreas(false), nil
}

func (m *Memory) ContainingArea(_ context.Context, p model.Coordinates) (model.Area, bool, error) {
	a, ok := routing.Match(m.listAreas(true), p)
	return a, ok, nil
}

func (m *Memory) listAreas(activeOnly bool) []model.Area {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]model.Area, 0, len(m.areas))
	for _, a := range m.areas {
		if activeOnly && !a.Active {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *Memory) DeleteArea(_ context.Context, id string) error {
	key, err := parseMemoryID(id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.areas[key]; !ok {
		return ErrNotFound
	}
	delete(m.areas, key)
	return nil
}

func (m *Memory) EnsureIndexes(context.Context) ([]string, error) {
	return []string{}, nil
}

func (m *Memory) Stats(context.Context) (model.DBStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return model.DBStatus{
		Connected: true,
		Driver:    m.Driver(),
		Reports:   int64(len(m.reports)),
		Areas:     int64(len(m.areas)),
	}, nil
}

func (m *Memory) Close(context.Context) error { return nil }
