package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwise1/barrier_reports/config"
	deps "github.com/bwise1/barrier_reports/internal/debs"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

const (
	defaultIdleTimeout    = time.Minute
	defaultReadTimeout    = 30 * time.Second
	defaultWriteTimeout   = 60 * time.Second
	defaultShutdownPeriod = 30 * time.Second
)

type Handler func(w http.ResponseWriter, r *http.Request) *ServerResponse

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := h(w, r)
	if resp == nil {
		return
	}
	if resp.Err != nil || resp.StatusCode >= http.StatusBadRequest {
		writeErrorResponse(w, resp.Err, resp.Status, resp.Message)
		return
	}
	if resp.Data == nil {
		w.WriteHeader(resp.StatusCode)
		return
	}
	respByte, err := json.Marshal(resp.Data)
	if err != nil {
		writeErrorResponse(w, err, values.Error, "unable to marshal server response")
		return
	}
	writeJSONResponse(w, respByte, resp.StatusCode)
}

type API struct {
	Server *http.Server
	Config *config.Config
	Deps   *deps.Dependencies

	limitOnce sync.Once
	limit     func(http.Handler) http.Handler
}

func (api *API) Serve() error {
	api.Server = &http.Server{
		Addr:         fmt.Sprintf(":%d", api.Config.Port),
		IdleTimeout:  defaultIdleTimeout,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		Handler:      api.Routes(),
	}
	return api.Server.ListenAndServe()
}

// Routes builds the full HTTP surface.
func (api *API) Routes() http.Handler {
	mux := chi.NewRouter()
	mux.Use(RequestTracing)
	mux.Use(cors.New(cors.Options{
		AllowedOrigins:   api.Config.CORSAllowedOrigins,
		AllowCredentials: false,
		AllowedHeaders:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
	}).Handler)

	mux.Method(http.MethodGet, "/healthz", Handler(api.Health))

	mux.Mount("/analyze", api.AnalyzeRoutes())
	mux.Mount("/media", api.MediaRoutes())
	mux.Mount("/reports", api.ReportRoutes())
	mux.Mount("/areas", api.AreaRoutes())
	mux.Mount("/db", api.DBRoutes())

	return mux
}

func (api *API) Health(_ http.ResponseWriter, _ *http.Request) *ServerResponse {
	return &ServerResponse{
		Status:     values.Success,
		StatusCode: http.StatusOK,
		Data:       map[string]string{"status": "ok"},
	}
}

// uploadLimit is the rate limit shared by the upload routes. An empty or
// malformed ANALYZE_RATE_LIMIT disables limiting.
func (api *API) uploadLimit() func(http.Handler) http.Handler {
	api.limitOnce.Do(func() {
		api.limit = func(next http.Handler) http.Handler { return next }
		if api.Config.AnalyzeRateLimit == "" {
			return
		}
		mw, err := RateLimit(api.Config.AnalyzeRateLimit, api.Config.TrustProxyHeaders)
		if err != nil {
			logger.Log.WithError(err).Error("upload rate limit disabled")
			return
		}
		api.limit = mw
	})
	return api.limit
}

func (api *API) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownPeriod)
	defer cancel()

	return api.Server.Shutdown(ctx)
}
