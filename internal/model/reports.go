package model

import "time"

// MediaKind is the renderable kind of an attached media asset.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

func (k MediaKind) Valid() bool {
	return k == MediaImage || k == MediaVideo
}

// ReportStatus values. Reports are created open.
const (
	StatusOpen       = "open"
	StatusInProgress = "in_progress"
	StatusResolved   = "resolved"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// MatchGeoWithin is the only match basis the router produces.
const MatchGeoWithin = "geoWithin"

// Routing is the area assignment computed once at creation.
type Routing struct {
	AreaID     string    `json:"areaId"`
	MatchBasis string    `json:"matchBasis"`
	MatchedAt  time.Time `json:"matchedAt"`
}

type Report struct {
	ID          string         `json:"id"`
	CreatedAt   time.Time      `json:"createdAt"`
	Coordinates Coordinates    `json:"coordinates"`
	MediaURL    string         `json:"mediaUrl"`
	MediaType   MediaKind      `json:"mediaType"`
	FileName    string         `json:"fileName"`
	FileSize    int64          `json:"fileSize"`
	Analysis    AnalysisResult `json:"analysis"`
	GeoMethod   GeoMethod      `json:"geoMethod"`
	Status      string         `json:"status"`
	Routing     *Routing       `json:"routing,omitempty"`
}

// ReportDraft is everything the client supplies when creating a report.
type ReportDraft struct {
	Coordinates Coordinates    `json:"coordinates" validate:"required"`
	MediaURL    string         `json:"mediaUrl" validate:"required,url"`
	MediaType   MediaKind      `json:"mediaType" validate:"required,oneof=image video"`
	FileName    string         `json:"fileName" validate:"required"`
	FileSize    int64          `json:"fileSize" validate:"gte=0"`
	Analysis    AnalysisResult `json:"analysis" validate:"required"`
	GeoMethod   GeoMethod      `json:"geoMethod" validate:"required,oneof=auto manual"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=open in_progress resolved"`
}

// ReportFilter narrows a list without changing its newest-first order.
type ReportFilter struct {
	Category Category
	Severity Severity
	Status   string
	AreaID   string
	Limit    int
}

func (f ReportFilter) Match(r Report) bool {
	if f.Category != "" && r.Analysis.Category != f.Category {
		return false
	}
	if f.Severity != "" && r.Analysis.Severity != f.Severity {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.AreaID != "" && (r.Routing == nil || r.Routing.AreaID != f.AreaID) {
		return false
	}
	return true
}

// MediaUpload is returned by the media upload endpoint.
type MediaUpload struct {
	URL       string    `json:"url"`
	MediaType MediaKind `json:"mediaType"`
	FileName  string    `json:"fileName"`
	FileSize  int64     `json:"fileSize"`
}

// DBStatus is returned by GET /db/init.
type DBStatus struct {
	Connected bool   `json:"connected"`
	Driver    string `json:"driver"`
	Reports   int64  `json:"reports"`
	Areas     int64  `json:"areas"`
}
