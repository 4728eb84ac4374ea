package intake

import (
	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/internal/model"
)

// Step names a state for display and logging.
type Step string

const (
	StepSelect     Step = "select"
	StepConverting Step = "converting"
	StepLocation   Step = "location"
	StepAnalyzing  Step = "analyzing"
	StepReview     Step = "review"
	StepSubmitting Step = "submitting"
	StepClosed     Step = "closed"
)

// State is one of the concrete state types below. Each carries only the data
// valid in that step.
type State interface {
	Step() Step
	isState()
}

// Select waits for a file. Advisory holds the last normalization failure.
type Select struct {
	Advisory string
}

// Converting holds the selected proprietary file while it is re-encoded.
type Converting struct {
	Source media.Asset
}

// Location holds normalized media while the reporter places the report.
type Location struct {
	Media  media.Asset
	Coords *model.Coordinates
	Method model.GeoMethod

	// Locating is set while the automatic fix is in flight.
	Locating bool
	// PendingInitialFix is set after a successful automatic fix until the
	// map echoes it back once.
	PendingInitialFix bool

	// Warning is the geolocation advisory, cleared by any manual move.
	Warning string
	// Advisory is the last analysis failure.
	Advisory string
}

// CanConfirm reports whether ConfirmLocation would be accepted.
func (l Location) CanConfirm() bool {
	return l.Coords != nil && l.Media.Normalized
}

type Analyzing struct {
	Media  media.Asset
	Coords model.Coordinates
	Method model.GeoMethod
}

// Review holds everything a submission needs. Advisory is the last submit
// failure.
type Review struct {
	Media    media.Asset
	Coords   model.Coordinates
	Method   model.GeoMethod
	Analysis model.AnalysisResult
	Advisory string
}

type Submitting struct {
	Media    media.Asset
	Coords   model.Coordinates
	Method   model.GeoMethod
	Analysis model.AnalysisResult
}

// Closed is terminal. Report is set when the draft was submitted.
type Closed struct {
	Report *model.Report
}

func (Select) Step() Step     { return StepSelect }
func (Converting) Step() Step { return StepConverting }
func (Location) Step() Step   { return StepLocation }
func (Analyzing) Step() Step  { return StepAnalyzing }
func (Review) Step() Step     { return StepReview }
func (Submitting) Step() Step { return StepSubmitting }
func (Closed) Step() Step     { return StepClosed }

func (Select) isState()     {}
func (Converting) isState() {}
func (Location) isState()   {}
func (Analyzing) isState()  {}
func (Review) isState()     {}
func (Submitting) isState() {}
func (Closed) isState()     {}

// heldMedia returns the media asset owned by s, if any.
func heldMedia(s State) (media.Asset, bool) {
	switch st := s.(type) {
	case Converting:
		return st.Source, true
	case Location:
		return st.Media, true
	case Analyzing:
		return st.Media, true
	case Review:
		return st.Media, true
	case Submitting:
		return st.Media, true
	}
	return media.Asset{}, false
}

// Advisory returns the user facing message carried by s, if any.
func Advisory(s State) string {
	switch st := s.(type) {
	case Select:
		return st.Advisory
	case Location:
		if st.Advisory != "" {
			return st.Advisory
		}
		return st.Warning
	case Review:
		return st.Advisory
	}
	return ""
}
