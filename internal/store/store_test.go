package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/internal/routing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

var sanFrancisco = []model.Coordinates{
	{Lat: 37.70, Lng: -122.52},
	{Lat: 37.70, Lng: -122.35},
	{Lat: 37.83, Lng: -122.35},
	{Lat: 37.83, Lng: -122.52},
}

func draftAt(p model.Coordinates) model.ReportDraft {
	return model.ReportDraft{
		Coordinates: p,
		MediaURL:    "https://cdn.example.com/ramp.jpg",
		MediaType:   model.MediaImage,
		FileName:    "ramp.jpg",
		FileSize:    2048,
		Analysis: model.AnalysisResult{
			Category:   model.CategoryMissingRamp,
			Severity:   model.SeverityHigh,
			Summary:    "Stairs with no ramp at the entrance",
			Confidence: 0.92,
		},
		GeoMethod: model.GeoMethodAuto,
	}
}

func newTestStores(t *testing.T) (*ReportStore, *AreaStore) {
	t.Helper()
	backend := NewMemory()
	return NewReportStore(backend, routing.New(backend)), NewAreaStore(backend, nil)
}

func TestCreateReportIsOpenAndListedFirst(t *testing.T) {
	ctx := context.Background()
	reports, _ := newTestStores(t)

	first, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	require.NoError(t, err)
	second, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 2, Lng: 2}))
	require.NoError(t, err)

	assert.NotEmpty(t, second.ID)
	assert.Equal(t, model.StatusOpen, second.Status)
	assert.True(t, second.CreatedAt.After(first.CreatedAt))

	list, err := reports.List(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestCreateRoutesIntoContainingArea(t *testing.T) {
	ctx := context.Background()
	reports, areas := newTestStores(t)

	sf, err := areas.Create(ctx, model.CreateAreaRequest{Name: "San Francisco", Boundary: sanFrancisco})
	require.NoError(t, err)
	assert.True(t, sf.Active)

	report, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 37.7749, Lng: -122.4194}))
	require.NoError(t, err)
	require.NotNil(t, report.Routing)
	assert.Equal(t, sf.ID, report.Routing.AreaID)
	assert.Equal(t, model.MatchGeoWithin, report.Routing.MatchBasis)

	outside, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 0, Lng: 0}))
	require.NoError(t, err)
	assert.Nil(t, outside.Routing)

	routed, err := reports.List(ctx, model.ReportFilter{AreaID: sf.ID})
	require.NoError(t, err)
	require.Len(t, routed, 1)
	assert.Equal(t, report.ID, routed[0].ID)
}

func TestRoutingIsNotRecomputedAfterAreaDelete(t *testing.T) {
	ctx := context.Background()
	reports, areas := newTestStores(t)

	sf, err := areas.Create(ctx, model.CreateAreaRequest{Name: "San Francisco", Boundary: sanFrancisco})
	require.NoError(t, err)
	report, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 37.7749, Lng: -122.4194}))
	require.NoError(t, err)

	require.NoError(t, areas.Delete(ctx, sf.ID))

	got, err := reports.Get(ctx, report.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Routing)
	assert.Equal(t, sf.ID, got.Routing.AreaID)
}

func TestDeleteReport(t *testing.T) {
	ctx := context.Background()
	reports, _ := newTestStores(t)

	r, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	require.NoError(t, err)

	require.NoError(t, reports.Delete(ctx, r.ID))
	assert.ErrorIs(t, reports.Delete(ctx, r.ID), ErrNotFound)
	assert.ErrorIs(t, reports.Delete(ctx, "not-an-id"), ErrInvalidID)

	list, err := reports.List(ctx, model.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NotNil(t, list)
}

func TestCreateRejectsInvalidDraft(t *testing.T) {
	cases := map[string]func(d *model.ReportDraft){
		"latitude out of range": func(d *model.ReportDraft) { d.Coordinates.Lat = 91 },
		"missing media url":     func(d *model.ReportDraft) { d.MediaURL = "" },
		"unknown media type":    func(d *model.ReportDraft) { d.MediaType = "audio" },
		"unknown geo method":    func(d *model.ReportDraft) { d.GeoMethod = "guess" },
		"unknown category":      func(d *model.ReportDraft) { d.Analysis.Category = "pothole" },
		"confidence too high":   func(d *model.ReportDraft) { d.Analysis.Confidence = 1.5 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			reports, _ := newTestStores(t)
			d := draftAt(model.Coordinates{Lat: 1, Lng: 1})
			mutate(&d)

			_, err := reports.Create(context.Background(), d)
			assert.ErrorIs(t, err, ErrInvalidDraft)
		})
	}
}

type failingRouter struct{}

func (failingRouter) Route(context.Context, model.Coordinates) (*model.Routing, error) {
	return nil, errors.New("areas unavailable")
}

func TestCreateFailsWhenRoutingFails(t *testing.T) {
	backend := NewMemory()
	reports := NewReportStore(backend, failingRouter{})

	_, err := reports.Create(context.Background(), draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "areas unavailable")

	stats, err := backend.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Reports)
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()
	reports, _ := newTestStores(t)

	r, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	require.NoError(t, err)

	updated, err := reports.UpdateStatus(ctx, r.ID, model.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolved, updated.Status)
	assert.Equal(t, r.CreatedAt, updated.CreatedAt)

	_, err = reports.UpdateStatus(ctx, r.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidDraft)
}

func TestListFilters(t *testing.T) {
	ctx := context.Background()
	reports, _ := newTestStores(t)

	low := draftAt(model.Coordinates{Lat: 1, Lng: 1})
	low.Analysis.Severity = model.SeverityLow
	_, err := reports.Create(ctx, low)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := reports.Create(ctx, draftAt(model.Coordinates{Lat: 1, Lng: 1}))
		require.NoError(t, err)
	}

	high, err := reports.List(ctx, model.ReportFilter{Severity: model.SeverityHigh})
	require.NoError(t, err)
	assert.Len(t, high, 3)

	limited, err := reports.List(ctx, model.ReportFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestClockIsStrictlyIncreasing(t *testing.T) {
	fixed := time.Date(2025, 4, 5, 14, 30, 45, 0, time.UTC)
	c := newClock(func() time.Time { return fixed })

	var (
		mu   sync.Mutex
		seen = make(map[time.Time]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := c.next()
			mu.Lock()
			seen[ts] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)

	prev := c.next()
	assert.True(t, c.next().After(prev))
}

func TestAreaCreateRejectsDegenerateBoundary(t *testing.T) {
	_, areas := newTestStores(t)
	_, err := areas.Create(context.Background(), model.CreateAreaRequest{
		Name:     "line",
		Boundary: []model.Coordinates{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}},
	})
	assert.ErrorIs(t, err, ErrInvalidArea)
}
