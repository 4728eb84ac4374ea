package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/util/storage"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const mediaKeyPrefix = "reports/"

func (api *API) MediaRoutes() chi.Router {
	mux := chi.NewRouter()
	mux.Use(api.uploadLimit())
	mux.Method(http.MethodPost, "/", Handler(api.UploadMedia))
	return mux
}

// UploadMedia stores the uploaded file and returns where it can be fetched.
func (api *API) UploadMedia(w http.ResponseWriter, r *http.Request) *ServerResponse {
	tc := tracingContext(r)

	asset, status, message, err := api.readUpload(w, r)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}

	upload, status, message, err := api.UploadMediaHelper(r.Context(), asset)
	if err != nil {
		return respondWithError(err, message, status, &tc)
	}
	return ok(status, message, upload)
}

func (api *API) UploadMediaHelper(ctx context.Context, asset media.Asset) (model.MediaUpload, string, string, error) {
	key := mediaKeyPrefix + uuid.NewString() + media.Extension(asset.Name, asset.Data)

	mediaURL, err := api.Deps.Media.Put(ctx, storage.Object{
		Key:         key,
		ContentType: asset.ContentType,
		Data:        asset.Data,
	})
	if err != nil {
		if errors.Is(err, storage.ErrDisabled) {
			return model.MediaUpload{}, values.Unavailable, "media uploads are disabled", err
		}
		return model.MediaUpload{}, values.BadGateway, "failed to store media", err
	}

	return model.MediaUpload{
		URL:       mediaURL,
		MediaType: asset.Kind,
		FileName:  asset.Name,
		FileSize:  asset.Size,
	}, values.Created, "media uploaded", nil
}
