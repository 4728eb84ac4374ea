// Package media validates selected files and normalizes proprietary photo
// formats into a universally renderable raster.
package media

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/h2non/filetype"
)

// MaxBytes is the largest accepted media file.
const MaxBytes int64 = 20 << 20

var (
	ErrTooLarge        = errors.New("media: file too large")
	ErrEmpty           = errors.New("media: file is empty")
	ErrUnsupportedKind = errors.New("media: only images and videos are accepted")
	ErrNormalization   = errors.New("media: could not convert file")
)

var proprietaryExts = map[string]bool{
	".heic": true,
	".heif": true,
}

var proprietaryTypes = map[string]bool{
	"image/heic":          true,
	"image/heif":          true,
	"image/heic-sequence": true,
	"image/heif-sequence": true,
}

// Asset is a media file owned by a single draft.
type Asset struct {
	Name        string
	ContentType string
	Kind        model.MediaKind
	Size        int64
	Data        []byte
	Normalized  bool

	handle *Handle
}

// NewAsset validates data and returns an asset with its kind resolved.
func NewAsset(name, contentType string, data []byte, maxBytes int64) (Asset, error) {
	kind, err := Validate(name, contentType, data, maxBytes)
	if err != nil {
		return Asset{}, err
	}
	if contentType == "" {
		contentType = DetectContentType(data)
	}
	return Asset{
		Name:        name,
		ContentType: contentType,
		Kind:        kind,
		Size:        int64(len(data)),
		Data:        data,
		Normalized:  !IsProprietary(name, contentType),
	}, nil
}

// WithHandle returns a copy of a that owns h.
func (a Asset) WithHandle(h *Handle) Asset {
	a.handle = h
	return a
}

func (a Asset) Handle() *Handle { return a.handle }

// Release revokes the asset's display handle, if any.
func (a Asset) Release() {
	if a.handle != nil {
		a.handle.Release()
	}
}

// Validate enforces the size limit and resolves the renderable kind. The
// size check runs first so oversized files are rejected without sniffing.
func Validate(name, contentType string, data []byte, maxBytes int64) (model.MediaKind, error) {
	if maxBytes <= 0 {
		maxBytes = MaxBytes
	}
	if int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrTooLarge, len(data), maxBytes)
	}
	if len(data) == 0 {
		return "", ErrEmpty
	}
	if kind, ok := Kind(name, contentType, data); ok {
		return kind, nil
	}
	return "", ErrUnsupportedKind
}

// Kind sniffs magic bytes first and falls back to the declared content type.
// Proprietary photo formats are images regardless of how they were declared.
func Kind(name, contentType string, data []byte) (model.MediaKind, bool) {
	switch {
	case filetype.IsImage(data):
		return model.MediaImage, true
	case filetype.IsVideo(data):
		return model.MediaVideo, true
	case IsProprietary(name, contentType):
		return model.MediaImage, true
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return model.MediaImage, true
	case strings.HasPrefix(ct, "video/"):
		return model.MediaVideo, true
	}
	return "", false
}

// IsProprietary reports whether the file needs conversion before it can be
// rendered. Content type is unreliable for this format family, so the
// extension is checked independently and either signal suffices.
func IsProprietary(name, contentType string) bool {
	if proprietaryExts[strings.ToLower(filepath.Ext(name))] {
		return true
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return proprietaryTypes[ct]
}

// DetectContentType returns the MIME type from magic bytes, or
// application/octet-stream when unknown.
func DetectContentType(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return "application/octet-stream"
	}
	return kind.MIME.Value
}

// Extension returns the canonical extension for data including the dot, or
// the extension of name when the content is not recognised.
func Extension(name string, data []byte) string {
	kind, err := filetype.Match(data)
	if err == nil && kind != filetype.Unknown {
		return "." + kind.Extension
	}
	return strings.ToLower(filepath.Ext(name))
}
