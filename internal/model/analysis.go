package model

import "fmt"

// Category is the closed set of barrier categories the classifier may return.
type Category string

const (
	CategoryMissingRamp          Category = "missing_ramp"
	CategoryBlockedSidewalk      Category = "blocked_sidewalk"
	CategoryMissingCurbCut       Category = "missing_curb_cut"
	CategoryBrokenElevator       Category = "broken_elevator"
	CategoryUnevenSurface        Category = "uneven_surface"
	CategoryNarrowPassage        Category = "narrow_passage"
	CategoryInaccessibleEntrance Category = "inaccessible_entrance"
	CategoryMissingSignage       Category = "missing_signage"
	CategoryOther                Category = "other"
)

var categories = map[Category]string{
	CategoryMissingRamp:          "Missing ramp",
	CategoryBlockedSidewalk:      "Blocked sidewalk",
	CategoryMissingCurbCut:       "Missing curb cut",
	CategoryBrokenElevator:       "Broken elevator",
	CategoryUnevenSurface:        "Uneven surface",
	CategoryNarrowPassage:        "Narrow passage",
	CategoryInaccessibleEntrance: "Inaccessible entrance",
	CategoryMissingSignage:       "Missing signage",
	CategoryOther:                "Other",
}

var categoryOrder = []Category{
	CategoryMissingRamp,
	CategoryBlockedSidewalk,
	CategoryMissingCurbCut,
	CategoryBrokenElevator,
	CategoryUnevenSurface,
	CategoryNarrowPassage,
	CategoryInaccessibleEntrance,
	CategoryMissingSignage,
	CategoryOther,
}

// Categories returns every category in display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

func (c Category) Valid() bool {
	_, ok := categories[c]
	return ok
}

func (c Category) Label() string {
	if l, ok := categories[c]; ok {
		return l
	}
	return string(c)
}

// Severity is low, medium or high. Each level has a display color.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh:
		return true
	}
	return false
}

// Color returns the hex display color for the severity level.
func (s Severity) Color() string {
	switch s {
	case SeverityLow:
		return "#22c55e"
	case SeverityMedium:
		return "#f59e0b"
	case SeverityHigh:
		return "#ef4444"
	default:
		return "#6b7280"
	}
}

// AnalysisResult is the classifier's judgment of a single media asset. A re-run
// replaces it wholesale.
type AnalysisResult struct {
	Category   Category `json:"category" validate:"required"`
	Severity   Severity `json:"severity" validate:"required"`
	Summary    string   `json:"summary"`
	Confidence float64  `json:"confidence" validate:"gte=0,lte=1"`
}

// Validate checks the enumerations and the confidence range.
func (a AnalysisResult) Validate() error {
	if !a.Category.Valid() {
		return fmt.Errorf("unknown category %q", a.Category)
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", a.Severity)
	}
	if a.Confidence < 0 || a.Confidence > 1 {
		return fmt.Errorf("confidence %v out of range [0,1]", a.Confidence)
	}
	return nil
}
