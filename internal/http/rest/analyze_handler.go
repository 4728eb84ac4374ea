package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwise1/barrier_reports/internal/http/classifier"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/go-chi/chi/v5"
)

var errClassifierDisabled = errors.New("classifier is not configured")

func (api *API) AnalyzeRoutes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(api.uploadLimit())
	mux.Method(http.MethodPost, "/", Handler(api.Analyze))
	return mux
}

// Analyze classifies the uploaded media and returns
// {category, severity, summary, confidence}.
func (api *API) Analyze(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	if api.Deps.Classifier == nil {
		return respondWithError(errClassifierDisabled, "analysis is unavailable", values.Unavailable, &tc)
	}

	asset, status, message, err := api.readUpload(w, r)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	result, status, message, err := api.AnalyzeHelper(r.Context(), asset)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	logger.Log.WithField("request_id", tc.RequestID).
		WithField("category", result.Category).
		WithField("severity", result.Severity).
		Info("media analyzed")
	return ok(status, message, result)
}

func (api *API) AnalyzeHelper(ctx context.Context, asset media.Asset) (model.AnalysisResult, string, string, error) {
	result, err := api.Deps.Classifier.Classify(ctx, classifier.Media{
		FileName:    asset.Name,
		ContentType: asset.ContentType,
		Kind:        asset.Kind,
		Data:        asset.Data,
	})
	if err != nil {
		return model.AnalysisResult{}, values.BadGateway, "analysis failed", err
	}
	return result, values.Success, "media analyzed", nil
}
