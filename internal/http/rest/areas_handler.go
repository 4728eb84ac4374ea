package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/internal/store"
	"github.com/bwise1/barrier_reports/util"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/go-chi/chi/v5"
)

func (api *API) AreaRoutes() chi.Router {
	mux := chi.NewRouter()

	mux.Method(http.MethodGet, "/", Handler(api.ListAreas))
	mux.Group(func(r chi.Router) {
		r.Use(api.RequireAdmin)
		r.Method(http.MethodPost, "/", Handler(api.CreateArea))
		r.Method(http.MethodDelete, "/{id}", Handler(api.DeleteArea))
	})

	return mux
}

func (api *API) ListAreas(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	areas, err := api.Deps.Areas.List(r.Context())
	if err != nil {
		return respondWithError(err, "failed to fetch areas", values.Error, &tc)
	}
	return ok(values.Success, "areas fetched successfully", areas)
}

func (api *API) CreateArea(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	var req model.CreateAreaRequest
	if decodeErr := util.DecodeJSONBody(&tc, r.Body, &req); decodeErr != nil {
		return respondWithError(decodeErr, "unable to decode request", values.BadRequestBody, &tc)
	}
	if err := util.ValidateStruct(req); err != nil {
		return respondWithError(err, util.ValidationMessage(err), values.BadRequestBody, &tc)
	}

	area, status, message, err := api.CreateAreaHelper(r.Context(), req)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, area)
}

func (api *API) DeleteArea(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)
	id := chi.URLParam(r, "id")

	if err := api.Deps.Areas.Delete(r.Context(), id); err != nil {
		status, message := storeErrorStatus(err, "area")
		return respondWithError(err, message, status, &tc)
	}
	return ok(values.Success, "area deleted successfully", deletedBody{ID: id, Deleted: true})
}

func (api *API) CreateAreaHelper(ctx context.Context, req model.CreateAreaRequest) (model.Area, string, string, error) {
	area, err := api.Deps.Areas.Create(ctx, req)
	if err != nil {
		if errors.Is(err, store.ErrInvalidArea) {
			return model.Area{}, values.BadRequestBody, "invalid area boundary", err
		}
		return model.Area{}, values.Error, "failed to create area", err
	}
	return area, values.Created, "area created successfully", nil
}
