// Package store persists reports and areas. ReportStore routes every new
// report through the geospatial router before it is written.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
	pkgerrors "github.com/pkg/errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidDraft = errors.New("invalid report")
	ErrInvalidArea  = errors.New("invalid area")
)

// Backend is a persistence engine. Implementations assign ids on insert and
// return reports newest first.
type Backend interface {
	Driver() string

	InsertReport(ctx context.Context, r model.Report) (model.Report, error)
	ListReports(ctx context.Context, f model.ReportFilter) ([]model.Report, error)
	GetReport(ctx context.Context, id string) (model.Report, error)
	DeleteReport(ctx context.Context, id string) error
	UpdateReportStatus(ctx context.Context, id, status string) (model.Report, error)

	InsertArea(ctx context.Context, a model.Area) (model.Area, error)
	ListAreas(ctx context.Context) ([]model.Area, error)
	// ContainingArea returns the active area covering p, boundary included.
	// When several qualify the smallest id wins.
	ContainingArea(ctx context.Context, p model.Coordinates) (model.Area, bool, error)
	DeleteArea(ctx context.Context, id string) error

	EnsureIndexes(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (model.DBStatus, error)
	Close(ctx context.Context) error
}

// Router computes the routing assignment for a location.
type Router interface {
	Route(ctx context.Context, p model.Coordinates) (*model.Routing, error)
}

type ReportStore struct {
	backend Backend
	router  Router
	clock   *clock
}

func NewReportStore(backend Backend, router Router) *ReportStore {
	return &ReportStore{backend: backend, router: router, clock: newClock(time.Now)}
}

// WithClock replaces the creation timestamp source.
func (s *ReportStore) WithClock(now func() time.Time) *ReportStore {
	s.clock = newClock(now)
	return s
}

func (s *ReportStore) Backend() Backend { return s.backend }

// Create validates the draft, computes the routing assignment once and
// persists the report with status open.
func (s *ReportStore) Create(ctx context.Context, draft model.ReportDraft) (model.Report, error) {
	if err := ValidateDraft(draft); err != nil {
		return model.Report{}, err
	}

	routing, err := s.router.Route(ctx, draft.Coordinates)
	if err != nil {
		return model.Report{}, pkgerrors.Wrap(err, "store: create report")
	}

	report := model.Report{
		CreatedAt:   s.clock.next(),
		Coordinates: draft.Coordinates,
		MediaURL:    draft.MediaURL,
		MediaType:   draft.MediaType,
		FileName:    draft.FileName,
		FileSize:    draft.FileSize,
		Analysis:    draft.Analysis,
		GeoMethod:   draft.GeoMethod,
		Status:      model.StatusOpen,
		Routing:     routing,
	}

	created, err := s.backend.InsertReport(ctx, report)
	if err != nil {
		return model.Report{}, pkgerrors.Wrap(err, "store: create report")
	}

	entry := logger.Log.WithField("report_id", created.ID)
	if created.Routing != nil {
		entry = entry.WithField("area_id", created.Routing.AreaID)
	}
	entry.Info("report created")
	return created, nil
}

// List returns reports sorted by creation time, newest first.
func (s *ReportStore) List(ctx context.Context, f model.ReportFilter) ([]model.Report, error) {
	reports, err := s.backend.ListReports(ctx, f)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "store: list reports")
	}
	if reports == nil {
		reports = []model.Report{}
	}
	return reports, nil
}

func (s *ReportStore) Get(ctx context.Context, id string) (model.Report, error) {
	return s.backend.GetReport(ctx, id)
}

// Delete removes a report. Deleting an unknown id returns ErrNotFound.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	return s.backend.DeleteReport(ctx, id)
}

// UpdateStatus is the only mutation allowed after creation.
func (s *ReportStore) UpdateStatus(ctx context.Context, id, status string) (model.Report, error) {
	if !model.ValidStatus(status) {
		return model.Report{}, fmt.Errorf("%w: unknown status %q", ErrInvalidDraft, status)
	}
	return s.backend.UpdateReportStatus(ctx, id, status)
}

func ValidateDraft(d model.ReportDraft) error {
	switch {
	case !d.Coordinates.Valid():
		return fmt.Errorf("%w: coordinates out of range", ErrInvalidDraft)
	case d.MediaURL == "":
		return fmt.Errorf("%w: missing media url", ErrInvalidDraft)
	case !d.MediaType.Valid():
		return fmt.Errorf("%w: unknown media type %q", ErrInvalidDraft, d.MediaType)
	case !d.GeoMethod.Valid():
		return fmt.Errorf("%w: unknown geo method %q", ErrInvalidDraft, d.GeoMethod)
	case d.FileSize < 0:
		return fmt.Errorf("%w: negative file size", ErrInvalidDraft)
	}
	if err := d.Analysis.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDraft, err)
	}
	return nil
}

// clock hands out strictly increasing millisecond timestamps so creation
// order within a process is never tied.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newClock(now func() time.Time) *clock {
	return &clock{now: now}
}

func (c *clock) next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
