package rest

import (
	"net/http"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/util"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) ReportRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListReports))
	mux.Method(http.MethodPost, "/", Handler(api.CreateReport))
	mux.Get("/feed", api.Deps.Feed.HandleConnections)
	mux.Method(http.MethodGet, "/{id}", Handler(api.GetReport))

	mux.Group(func(r chi.Router) {
		r.Use(api.RequireAdmin)
		r.Method(http.MethodDelete, "/{id}", Handler(api.DeleteReport))
		r.Method(http.MethodPatch, "/{id}/status", Handler(api.UpdateReportStatus))
	})

	return mux
}

func (api *API) ListReports(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	filter, err := parseReportFilter(r.URL.Query())
	if err != nil {
		return respondWithError(err, "invalid report filter", values.BadRequestBody, &tc)
	}

	reports, status, message, err := api.ListReportsHelper(r.Context(), filter)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, reports)
}

func (api *API) CreateReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	var req model.ReportDraft
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	report, status, message, err := api.CreateReportHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, report)
}

func (api *API) GetReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	report, status, message, err := api.GetReportHelper(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, report)
}

func (api *API) DeleteReport(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)
	id := chi.URLParam(r, "id")

	status, message, err := api.DeleteReportHelper(r.Context(), id)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, deletedBody{ID: id, Deleted: true})
}

func (api *API) UpdateReportStatus(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	var req model.UpdateStatusRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	report, status, message, err := api.UpdateReportStatusHelper(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, report)
}

type deletedBody struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
