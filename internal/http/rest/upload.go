package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/util/values"
)

const (
	uploadField = "file"
	// multipartOverhead covers boundaries and part headers around the file.
	multipartOverhead = 1 << 20
	formMemory        = 8 << 20
)

// readUpload reads the single "file" part of a multipart request and
// validates it as media.
func (api *API) readUpload(w http.ResponseWriter, r *http.Request) (media.Asset, string, string, error) {
	maxBytes := api.Config.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = media.MaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)

	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return media.Asset{}, values.TooLarge, "file exceeds the upload limit", err
		}
		return media.Asset{}, values.BadRequestBody, "expected a multipart form", err
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return media.Asset{}, values.BadRequestBody, "missing file field", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return media.Asset{}, values.BadRequestBody, "unable to read file", err
	}

	asset, err := media.NewAsset(header.Filename, header.Header.Get("Content-Type"), data, maxBytes)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return media.Asset{}, values.TooLarge, "file exceeds the upload limit", err
	case err != nil:
		return media.Asset{}, values.BadRequestBody, "only image and video files are accepted", err
	}
	return asset, values.Success, "", nil
}
