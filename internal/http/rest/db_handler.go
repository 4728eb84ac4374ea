package rest

import (
	"net/http"

	"github.com/bwise1/barrier_reports/util/values"
	"github.com/go-chi/chi/v5"
)

type indexesBody struct {
	Driver  string   `json:"driver"`
	Indexes []string `json:"indexes"`
}

func (api *API) DBRoutes() chi.Router {
	mux := chi.NewRouter()
	mux.Method(http.MethodGet, "/init", Handler(api.DBStatus))
	mux.With(api.RequireAdmin).Method(http.MethodPost, "/init", Handler(api.DBInit))
	return mux
}

// DBInit creates the required indexes. It is safe to call repeatedly.
func (api *API) DBInit(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	names, err := api.Deps.Backend.EnsureIndexes(r.Context())
	if err != nil {
		return respondWithError(err, "failed to ensure indexes", values.Error, &tc)
	}
	if names == nil {
		names = []string{}
	}
	return ok(values.Success, "indexes ensured", indexesBody{Driver: api.Deps.Backend.Driver(), Indexes: names})
}

// DBStatus reports connectivity and record counts.
func (api *API) DBStatus(_ http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	stats, err := api.Deps.Backend.Stats(r.Context())
	if err != nil {
		return respondWithError(err, "database unreachable", values.Unavailable, &tc)
	}
	return ok(values.Success, "database reachable", stats)
}
