// Package client is the field client's boundary to the report intake API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/bwise1/barrier_reports/internal/intake"
	"github.com/bwise1/barrier_reports/internal/media"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
)

var (
	// ErrAnalysis is returned for every failed analysis call. No partial
	// result is ever returned.
	ErrAnalysis = errors.New("client: analysis failed")
	ErrNotFound = errors.New("client: not found")
)

const requestSource = "intake-cli"

// APIError is a non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Status     string `json:"status"`
	Message    string `json:"message"`
	Detail     string `json:"error"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, msg)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
	// Token is sent as a bearer token when set. Destructive routes need it
	// when the server has admin auth enabled.
	Token string
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse server url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return &Client{BaseURL: u, HTTPClient: &http.Client{Timeout: timeout}}, nil
}

// ListOptions narrows GET /reports.
type ListOptions struct {
	Category string `url:"category,omitempty"`
	Severity string `url:"severity,omitempty"`
	Status   string `url:"status,omitempty"`
	AreaID   string `url:"areaId,omitempty"`
	Limit    int    `url:"limit,omitempty"`
}

func (c *Client) endpoint(path string, params interface{}) (string, error) {
	rel, err := url.Parse(path)
	if err != nil {
		return "", errors.Wrap(err, "parse endpoint")
	}
	u := c.BaseURL.ResolveReference(rel)
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		u.RawQuery = v.Encode()
	}
	return u.String(), nil
}

func (c *Client) do(ctx context.Context, method, path string, params interface{}, body io.Reader, contentType string, want int, out interface{}) error {
	endpoint, err := c.endpoint(path, params)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(values.HeaderRequestSource, requestSource)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

func fileBody(a media.Asset) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, a.Name))
	h.Set("Content-Type", a.ContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.Wrap(err, "create multipart part")
	}
	if _, err := part.Write(a.Data); err != nil {
		return nil, "", errors.Wrap(err, "write multipart part")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart writer")
	}
	return &buf, w.FormDataContentType(), nil
}

// Analyze posts the media to /analyze. Any failure, including a result that
// does not fit the expected shape, is reported as ErrAnalysis. No retries.
func (c *Client) Analyze(ctx context.Context, a media.Asset) (model.AnalysisResult, error) {
	body, ct, err := fileBody(a)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}

	var out model.AnalysisResult
	if err := c.do(ctx, http.MethodPost, "analyze", nil, body, ct, http.StatusOK, &out); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	if err := out.Validate(); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrAnalysis, err)
	}
	return out, nil
}

func (c *Client) UploadMedia(ctx context.Context, a media.Asset) (model.MediaUpload, error) {
	body, ct, err := fileBody(a)
	if err != nil {
		return model.MediaUpload{}, err
	}
	var out model.MediaUpload
	if err := c.do(ctx, http.MethodPost, "media", nil, body, ct, http.StatusCreated, &out); err != nil {
		return model.MediaUpload{}, err
	}
	return out, nil
}

func (c *Client) CreateReport(ctx context.Context, d model.ReportDraft) (model.Report, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return model.Report{}, errors.Wrap(err, "encode report")
	}
	var out model.Report
	if err := c.do(ctx, http.MethodPost, "reports", nil, bytes.NewReader(b), "application/json", http.StatusCreated, &out); err != nil {
		return model.Report{}, err
	}
	return out, nil
}

// Submit uploads the draft's media and creates the report referencing it.
func (c *Client) Submit(ctx context.Context, d intake.Draft) (model.Report, error) {
	up, err := c.UploadMedia(ctx, d.Media)
	if err != nil {
		return model.Report{}, errors.Wrap(err, "upload media")
	}
	return c.CreateReport(ctx, model.ReportDraft{
		Coordinates: d.Coordinates,
		MediaURL:    up.URL,
		MediaType:   d.Media.Kind,
		FileName:    d.Media.Name,
		FileSize:    d.Media.Size,
		Analysis:    d.Analysis,
		GeoMethod:   d.GeoMethod,
	})
}

func (c *Client) ListReports(ctx context.Context, opts ListOptions) ([]model.Report, error) {
	var out []model.Report
	if err := c.do(ctx, http.MethodGet, "reports", opts, nil, "", http.StatusOK, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteReport(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "reports/"+url.PathEscape(id), nil, nil, "", http.StatusOK, nil)
}
