// Package classifier talks to the remote model that categorizes barrier media.
package classifier

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
	"time"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
)

var (
	// ErrUpstream is returned for transport failures and non-2xx answers.
	ErrUpstream = errors.New("classifier: upstream failure")
	// ErrInvalidResult is returned when the answer does not fit the result shape.
	ErrInvalidResult = errors.New("classifier: invalid result")
)

const maxResponseBytes = 1 << 20

// Client handles communication with the classification service.
type Client struct {
	BaseURL    *url.URL
	APIKey     string
	Model      string
	HTTPClient *http.Client
}

// NewClient creates a classifier client. The timeout bounds a whole call
// including the upload.
func NewClient(baseURL, apiKey, modelName string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse classifier url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("classifier url %q must be absolute", baseURL)
	}
	return &Client{
		BaseURL: u,
		APIKey:  apiKey,
		Model:   modelName,
		HTTPClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		},
	}, nil
}

// ClassifyOptions are sent as query parameters.
type ClassifyOptions struct {
	Model      string   `url:"model,omitempty"`
	Categories []string `url:"categories,omitempty,comma"`
	MediaKind  string   `url:"kind,omitempty"`
}

// Media is the single asset submitted for classification.
type Media struct {
	FileName    string
	ContentType string
	Kind        model.MediaKind
	Data        []byte
}

type classifyResponse struct {
	Category   string  `json:"category"`
	Severity   string  `json:"severity"`
	Summary    string  `json:"summary"`
	Confidence float64 `json:"confidence"`
}

func (c *Client) buildURL(endpoint string, params interface{}) (string, error) {
	rel, err := url.Parse(endpoint)
	if err != nil {
		return "", errors.Wrap(err, "parse endpoint")
	}
	u := c.BaseURL.ResolveReference(rel)

	q := u.Query()
	if params != nil {
		v, err := query.Values(params)
		if err != nil {
			return "", errors.Wrap(err, "encode query parameters")
		}
		for k, vals := range v {
			for _, val := range vals {
				q.Add(k, val)
			}
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Classify uploads m as the "file" part and returns the validated judgment.
// There are no retries.
func (c *Client) Classify(ctx context.Context, m Media) (model.AnalysisResult, error) {
	endpoint, err := c.buildURL("v1/classify", ClassifyOptions{
		Model:      c.Model,
		Categories: categoryNames(),
		MediaKind:  string(m.Kind),
	})
	if err != nil {
		return model.AnalysisResult{}, err
	}

	body, contentType, err := multipartBody(m)
	if err != nil {
		return model.AnalysisResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return model.AnalysisResult{}, errors.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.AnalysisResult{}, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	var out classifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	result := model.AnalysisResult{
		Category:   model.Category(out.Category),
		Severity:   model.Severity(out.Severity),
		Summary:    out.Summary,
		Confidence: out.Confidence,
	}
	if err := result.Validate(); err != nil {
		return model.AnalysisResult{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	return result, nil
}

func multipartBody(m Media) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, m.FileName))
	ct := m.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", errors.Wrap(err, "create multipart part")
	}
	if _, err := part.Write(m.Data); err != nil {
		return nil, "", errors.Wrap(err, "write multipart part")
	}
	if err := w.Close(); err != nil {
		return nil, "", errors.Wrap(err, "close multipart writer")
	}
	return &buf, w.FormDataContentType(), nil
}

func categoryNames() []string {
	all := model.Categories()
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = string(c)
	}
	return names
}
