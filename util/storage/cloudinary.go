package storage

import (
	"bytes"
	"context"
	"errors"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	pkgerrors "github.com/pkg/errors"
)

type Cloudinary struct {
	CLD    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "initialize cloudinary")
	}

	return &Cloudinary{CLD: cld, folder: folder}, nil
}

func (c *Cloudinary) Name() string { return "cloudinary" }

// Put uploads with resource type auto so videos land in the video pipeline.
func (c *Cloudinary) Put(ctx context.Context, obj Object) (string, error) {
	publicID := strings.TrimSuffix(obj.Key, path.Ext(obj.Key))
	resp, err := c.CLD.Upload.Upload(ctx, bytes.NewReader(obj.Data), uploader.UploadParams{
		Folder:       c.folder,
		PublicID:     publicID,
		ResourceType: "auto",
	})
	if err != nil {
		return "", pkgerrors.Wrap(err, "cloudinary upload")
	}
	if resp.Error.Message != "" {
		return "", pkgerrors.Wrap(errors.New(resp.Error.Message), "cloudinary upload")
	}
	return resp.SecureURL, nil
}
