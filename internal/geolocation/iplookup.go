package geolocation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/google/go-querystring/query"
	"github.com/pkg/errors"
)

const defaultIPLookupURL = "http://ip-api.com/json/"

// IPLookup estimates the position from the public IP address.
type IPLookup struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
}

func NewIPLookup(baseURL string) (*IPLookup, error) {
	if baseURL == "" {
		baseURL = defaultIPLookupURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse ip lookup url")
	}
	return &IPLookup{BaseURL: u, HTTPClient: &http.Client{}}, nil
}

type ipLookupQuery struct {
	Fields []string `url:"fields,comma"`
}

type ipLookupResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

func (l *IPLookup) Locate(ctx context.Context) (model.Coordinates, error) {
	v, err := query.Values(ipLookupQuery{Fields: []string{"status", "message", "lat", "lon"}})
	if err != nil {
		return model.Coordinates{}, errors.Wrap(err, "encode query parameters")
	}
	u := *l.BaseURL
	u.RawQuery = v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Coordinates{}, errors.Wrap(err, "create request")
	}
	resp, err := l.HTTPClient.Do(req)
	if err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Coordinates{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out ipLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.Coordinates{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if out.Status != "success" {
		return model.Coordinates{}, fmt.Errorf("%w: %s", ErrUnavailable, out.Message)
	}
	return model.Coordinates{Lat: out.Lat, Lng: out.Lon}, nil
}
