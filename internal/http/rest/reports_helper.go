package rest

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/internal/store"
	"github.com/bwise1/barrier_reports/util"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/bwise1/barrier_reports/util/websockets"
)

const maxListLimit = 500

func (api *API) ListReportsHelper(ctx context.Context, f model.ReportFilter) ([]model.Report, string, string, error) {
	reports, err := api.Deps.Reports.List(ctx, f)
	if err != nil {
		status, message := storeErrorStatus(err, "report")
		return nil, status, message, err
	}
	return reports, values.Success, "reports fetched successfully", nil
}

func (api *API) CreateReportHelper(ctx context.Context, draft model.ReportDraft) (model.Report, string, string, error) {
	report, err := api.Deps.Reports.Create(ctx, draft)
	if err != nil {
		if errors.Is(err, store.ErrInvalidDraft) {
			return model.Report{}, values.BadRequestBody, "invalid report", err
		}
		return model.Report{}, values.Error, "failed to create report", err
	}
	api.Deps.Feed.Publish(websockets.Event{Type: websockets.EventReportCreated, ID: report.ID, Report: report})
	return report, values.Created, "report created successfully", nil
}

func (api *API) GetReportHelper(ctx context.Context, id string) (model.Report, string, string, error) {
	report, err := api.Deps.Reports.Get(ctx, id)
	if err != nil {
		status, message := storeErrorStatus(err, "report")
		return model.Report{}, status, message, err
	}
	return report, values.Success, "report fetched successfully", nil
}

func (api *API) DeleteReportHelper(ctx context.Context, id string) (string, string, error) {
	if err := api.Deps.Reports.Delete(ctx, id); err != nil {
		status, message := storeErrorStatus(err, "report")
		return status, message, err
	}
	api.Deps.Feed.Publish(websockets.Event{Type: websockets.EventReportDeleted, ID: id})
	return values.Success, "report deleted successfully", nil
}

func (api *API) UpdateReportStatusHelper(ctx context.Context, id, status string) (model.Report, string, string, error) {
	report, err := api.Deps.Reports.UpdateStatus(ctx, id, status)
	if err != nil {
		st, message := storeErrorStatus(err, "report")
		return model.Report{}, st, message, err
	}
	api.Deps.Feed.Publish(websockets.Event{Type: websockets.EventReportStatus, ID: id, Report: report})
	return report, values.Success, "report status updated", nil
}

// storeErrorStatus maps store sentinels onto response statuses.
func storeErrorStatus(err error, entity string) (string, string) {
	switch {
	case errors.Is(err, store.ErrInvalidID):
		return values.BadRequestBody, "malformed " + entity + " id"
	case errors.Is(err, store.ErrNotFound):
		return values.NotFound, entity + " not found"
	case errors.Is(err, store.ErrInvalidDraft), errors.Is(err, store.ErrInvalidArea):
		return values.BadRequestBody, "invalid " + entity
	default:
		return values.Error, "failed to process " + entity
	}
}

func parseReportFilter(q url.Values) (model.ReportFilter, error) {
	f := model.ReportFilter{
		Category: model.Category(q.Get("category")),
		Severity: model.Severity(q.Get("severity")),
		Status:   q.Get("status"),
		AreaID:   q.Get("areaId"),
	}
	if f.Category != "" && !f.Category.Valid() {
		return f, fmt.Errorf("unknown category %q", f.Category)
	}
	if f.Severity != "" && !f.Severity.Valid() {
		return f, fmt.Errorf("unknown severity %q", f.Severity)
	}
	if f.Status != "" && !model.ValidStatus(f.Status) {
		return f, fmt.Errorf("unknown status %q", f.Status)
	}

	limit, err := util.QueryInt(q, "limit", 0)
	if err != nil {
		return f, fmt.Errorf("limit: %w", err)
	}
	if limit < 0 || limit > maxListLimit {
		return f, fmt.Errorf("limit must be between 0 and %d", maxListLimit)
	}
	f.Limit = limit
	return f, nil
}
