// Package intake drives a single report draft from media selection to
// submission. Every operation lands on a named state; adapter failures become
// a single advisory string on that state instead of an error.
package intake

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwise1/barrier_reports/internal/geolocation"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/internal/model"
)

var (
	// ErrGuard is returned when an operation is not allowed in the current state.
	ErrGuard = errors.New("intake: transition not allowed")
	// ErrSuperseded is returned by a call whose draft was reset while it ran.
	// Its result has been discarded.
	ErrSuperseded = errors.New("intake: draft was reset")
	// ErrInvalidCoordinates is returned for map positions outside WGS84 bounds.
	ErrInvalidCoordinates = errors.New("intake: coordinates out of range")
)

const (
	AdvisoryOpenFailed    = "We couldn't open this file. Please choose another one."
	AdvisoryNormalization = "We couldn't convert this photo. Please choose another file."
	AdvisoryAnalysis      = "Analysis failed. Check your connection and confirm the location again."
	AdvisorySubmit        = "We couldn't submit your report. Please try again."
)

type Normalizer interface {
	NeedsNormalization(a media.Asset) bool
	Normalize(ctx context.Context, a media.Asset) (media.Asset, error)
}

type Locator interface {
	Resolve(ctx context.Context) geolocation.Resolution
}

type Analyzer interface {
	Analyze(ctx context.Context, a media.Asset) (model.AnalysisResult, error)
}

// Submitter hands a finished draft to the report creation boundary.
type Submitter interface {
	Submit(ctx context.Context, d Draft) (model.Report, error)
}

// Draft is everything needed to create a report.
type Draft struct {
	Media       media.Asset
	Coordinates model.Coordinates
	GeoMethod   model.GeoMethod
	Analysis    model.AnalysisResult
}

// File is a raw user selection.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Deps struct {
	Normalizer Normalizer
	Locator    Locator
	Analyzer   Analyzer
	Submitter  Submitter
	Handles    media.HandleFactory
	MaxBytes   int64
}

type inflight struct {
	id     uint64
	cancel context.CancelFunc
}

// Machine is safe for concurrent use. Operations that call an adapter block
// until it returns, without holding the lock, so Cancel and Select can
// supersede them. A superseded call's result is dropped.
type Machine struct {
	mu       sync.Mutex
	deps     Deps
	state    State
	gen      uint64
	calls    uint64
	inflight *inflight
}

// New returns a machine with an open draft in the select step.
func New(d Deps) *Machine {
	if d.Normalizer == nil {
		d.Normalizer = media.NewNormalizer(nil)
	}
	if d.Locator == nil {
		d.Locator = geolocation.NewPolicy(nil, 0)
	}
	if d.Handles == nil {
		d.Handles = media.TempFiles{}
	}
	if d.MaxBytes <= 0 {
		d.MaxBytes = media.MaxBytes
	}
	return &Machine{deps: d, state: Select{}}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Open starts a new draft after the previous one was closed.
func (m *Machine) Open() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.(Closed); !ok {
		return m.state, ErrGuard
	}
	m.gen++
	m.state = Select{}
	return m.state, nil
}

// Select validates f and starts the draft over with it. Invalid files are
// rejected with the state unchanged. Otherwise any held media is released,
// the file is converted when needed, and the location step runs the automatic
// fix before Select returns.
func (m *Machine) Select(ctx context.Context, f File) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.(Closed); ok {
		return m.state, ErrGuard
	}
	asset, err := media.NewAsset(f.Name, f.ContentType, f.Data, m.deps.MaxBytes)
	if err != nil {
		return m.state, err
	}

	m.reset()
	asset, ok := m.acquire(asset)
	if !ok {
		return m.state, nil
	}

	if m.deps.Normalizer.NeedsNormalization(asset) {
		m.state = Converting{Source: asset}

		var (
			out     media.Asset
			convErr error
		)
		if !m.call(ctx, func(ctx context.Context) {
			out, convErr = m.deps.Normalizer.Normalize(ctx, asset)
		}) {
			return m.state, ErrSuperseded
		}

		asset.Release()
		if convErr != nil {
			m.warn(convErr, StepConverting)
			m.state = Select{Advisory: AdvisoryNormalization}
			return m.state, nil
		}
		if asset, ok = m.acquire(out); !ok {
			return m.state, nil
		}
	}

	return m.enterLocation(ctx, asset)
}

func (m *Machine) enterLocation(ctx context.Context, asset media.Asset) (State, error) {
	m.state = Location{Media: asset, Method: model.GeoMethodManual, Locating: true}

	var res geolocation.Resolution
	if !m.call(ctx, func(ctx context.Context) { res = m.deps.Locator.Resolve(ctx) }) {
		return m.state, ErrSuperseded
	}

	loc, ok := m.state.(Location)
	if !ok || !loc.Locating {
		// the reporter placed the report before the fix arrived
		return m.state, nil
	}
	loc.Locating = false
	if res.OK() {
		c := *res.Coords
		loc.Coords = &c
		loc.Method = model.GeoMethodAuto
		loc.PendingInitialFix = true
		loc.Warning = ""
	} else {
		loc.Coords = nil
		loc.Method = model.GeoMethodManual
		loc.Warning = res.Advisory
	}
	m.state = loc
	return loc, nil
}

// MapMoved records a map reposition. The first move after a successful
// automatic fix that lands on the fix itself is the map echoing it and does
// not count as a manual edit.
func (m *Machine) MapMoved(p model.Coordinates) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc, ok := m.state.(Location)
	if !ok {
		return m.state, ErrGuard
	}
	if !p.Valid() {
		return m.state, fmt.Errorf("%w: %s", ErrInvalidCoordinates, p)
	}

	if loc.PendingInitialFix {
		loc.PendingInitialFix = false
		if loc.Coords != nil && *loc.Coords == p {
			m.state = loc
			return loc, nil
		}
	}
	if loc.Locating {
		loc.Locating = false
		m.cancelInflight()
	}

	loc.Coords = &p
	loc.Method = model.GeoMethodManual
	loc.Warning = ""
	m.state = loc
	return loc, nil
}

// ConfirmLocation runs the analysis. It is refused until coordinates are set.
// On failure the draft returns to the location step with media and
// coordinates intact.
func (m *Machine) ConfirmLocation(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	loc, ok := m.state.(Location)
	if !ok || !loc.CanConfirm() {
		return m.state, ErrGuard
	}

	an := Analyzing{Media: loc.Media, Coords: *loc.Coords, Method: loc.Method}
	m.state = an

	var (
		result model.AnalysisResult
		err    error
	)
	if !m.call(ctx, func(ctx context.Context) { result, err = m.deps.Analyzer.Analyze(ctx, an.Media) }) {
		return m.state, ErrSuperseded
	}

	if err == nil {
		err = result.Validate()
	}
	if err != nil {
		m.warn(err, StepAnalyzing)
		coords := an.Coords
		m.state = Location{Media: an.Media, Coords: &coords, Method: an.Method, Advisory: AdvisoryAnalysis}
		return m.state, nil
	}

	m.state = Review{Media: an.Media, Coords: an.Coords, Method: an.Method, Analysis: result}
	return m.state, nil
}

// Back returns from review to the location step keeping media, coordinates
// and geo method. The automatic fix is not repeated.
func (m *Machine) Back() (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rv, ok := m.state.(Review)
	if !ok {
		return m.state, ErrGuard
	}
	coords := rv.Coords
	m.state = Location{Media: rv.Media, Coords: &coords, Method: rv.Method}
	return m.state, nil
}

// Submit hands the draft to the submitter. On success the media is released
// and the machine closes; on failure the draft stays in review.
func (m *Machine) Submit(ctx context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rv, ok := m.state.(Review)
	if !ok {
		return m.state, ErrGuard
	}

	sub := Submitting{Media: rv.Media, Coords: rv.Coords, Method: rv.Method, Analysis: rv.Analysis}
	m.state = sub

	draft := Draft{Media: sub.Media, Coordinates: sub.Coords, GeoMethod: sub.Method, Analysis: sub.Analysis}
	var (
		report model.Report
		err    error
	)
	if !m.call(ctx, func(ctx context.Context) { report, err = m.deps.Submitter.Submit(ctx, draft) }) {
		return m.state, ErrSuperseded
	}

	if err != nil {
		m.warn(err, StepSubmitting)
		rv.Advisory = AdvisorySubmit
		m.state = rv
		return m.state, nil
	}

	m.reset()
	m.state = Closed{Report: &report}
	logger.Log.WithField("report_id", report.ID).Info("intake: report submitted")
	return m.state, nil
}

// Cancel discards the draft from any state, releasing held media and
// abandoning any call in flight.
func (m *Machine) Cancel() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state.(Closed); ok {
		return m.state
	}
	m.reset()
	m.state = Closed{}
	return m.state
}

// reset releases held media and invalidates every outstanding call.
func (m *Machine) reset() {
	if a, ok := heldMedia(m.state); ok {
		a.Release()
	}
	m.cancelInflight()
	m.gen++
}

func (m *Machine) cancelInflight() {
	if m.inflight != nil {
		m.inflight.cancel()
		m.inflight = nil
	}
}

// call runs fn with the lock released. It reports false when the draft was
// reset while fn ran.
func (m *Machine) call(ctx context.Context, fn func(ctx context.Context)) bool {
	callCtx, cancel := context.WithCancel(ctx)
	m.calls++
	id, gen := m.calls, m.gen
	m.inflight = &inflight{id: id, cancel: cancel}

	m.mu.Unlock()
	fn(callCtx)
	m.mu.Lock()

	cancel()
	if m.inflight != nil && m.inflight.id == id {
		m.inflight = nil
	}
	return gen == m.gen
}

func (m *Machine) acquire(a media.Asset) (media.Asset, bool) {
	h, err := m.deps.Handles.Acquire(a)
	if err != nil {
		m.warn(err, StepSelect)
		m.state = Select{Advisory: AdvisoryOpenFailed}
		return media.Asset{}, false
	}
	return a.WithHandle(h), true
}

func (m *Machine) warn(err error, step Step) {
	logger.Log.WithError(err).WithField("step", string(step)).Warn("intake: step failed")
}
