package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/bwise1/barrier_reports/config"
	deps "github.com/bwise1/barrier_reports/internal/debs"
	"github.com/bwise1/barrier_reports/internal/http/classifier"
	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/internal/model"
	"github.com/bwise1/barrier_reports/internal/store"
	"github.com/bwise1/barrier_reports/util/storage"
	"github.com/bwise1/barrier_reports/util/values"
	"github.com/bwise1/barrier_reports/util/websockets"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Discard()
	os.Exit(m.Run())
}

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

var sanFrancisco = []model.Coordinates{
	{Lat: 37.70, Lng: -122.52},
	{Lat: 37.70, Lng: -122.35},
	{Lat: 37.83, Lng: -122.35},
	{Lat: 37.83, Lng: -122.52},
}

type fakeClassifier struct {
	result model.AnalysisResult
	err    error
	got    classifier.Media
}

func (f *fakeClassifier) Classify(_ context.Context, m classifier.Media) (model.AnalysisResult, error) {
	f.got = m
	return f.result, f.err
}

type fakeMediaStore struct {
	objects map[string]storage.Object
}

func (f *fakeMediaStore) Name() string { return "fake" }

func (f *fakeMediaStore) Put(_ context.Context, obj storage.Object) (string, error) {
	f.objects[obj.Key] = obj
	return "https://cdn.example.com/" + obj.Key, nil
}

type testServer struct {
	*httptest.Server
	api *API
}

func newTestServer(t *testing.T, mutate func(*config.Config, *deps.Dependencies)) *testServer {
	t.Helper()
	cfg := &config.Config{
		MaxUploadBytes:     1024,
		CORSAllowedOrigins: []string{"*"},
	}
	d := deps.Assemble(store.NewMemory(), nil, 0)
	if mutate != nil {
		mutate(cfg, d)
	}
	a := &API{Config: cfg, Deps: d}
	srv := httptest.NewServer(a.Routes())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, api: a}
}

func (s *testServer) do(t *testing.T, method, path string, body io.Reader, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.URL+path, body)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := s.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) doJSON(t *testing.T, method, path string, in interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return s.do(t, method, path, body, http.Header{"Content-Type": {"application/json"}})
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func draftAt(p model.Coordinates) model.ReportDraft {
	return model.ReportDraft{
		Coordinates: p,
		MediaURL:    "https://cdn.example.com/ramp.jpg",
		MediaType:   model.MediaImage,
		FileName:    "ramp.jpg",
		FileSize:    2048,
		Analysis: model.AnalysisResult{
			Category:   model.CategoryMissingRamp,
			Severity:   model.SeverityHigh,
			Summary:    "Stairs with no ramp at the entrance",
			Confidence: 0.92,
		},
		GeoMethod: model.GeoMethodAuto,
	}
}

func multipartFile(t *testing.T, name, contentType string, data []byte) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + name + `"`}
	h["Content-Type"] = []string{contentType}
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, http.Header{"Content-Type": {w.FormDataContentType()}}
}

func TestHealthAndTracing(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(values.HeaderRequestID))

	resp = s.do(t, http.MethodGet, "/healthz", nil, http.Header{values.HeaderRequestID: {"req-1"}})
	assert.Equal(t, "req-1", resp.Header.Get(values.HeaderRequestID))
}

func TestCreateReportIsOpenAndListedFirst(t *testing.T) {
	s := newTestServer(t, nil)

	var first, second model.Report
	resp := s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &first)

	resp = s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 2, Lng: 2}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &second)

	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, model.StatusOpen, second.Status)

	var list []model.Report
	resp = s.do(t, http.MethodGet, "/reports", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &list)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	var got model.Report
	resp = s.do(t, http.MethodGet, "/reports/"+first.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &got)
	assert.Equal(t, first.ID, got.ID)
}

func TestEmptyListIsArray(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodGet, "/reports", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(b))
}

func TestCreateReportRouting(t *testing.T) {
	s := newTestServer(t, nil)

	var area model.Area
	resp := s.doJSON(t, http.MethodPost, "/areas", model.CreateAreaRequest{Name: "San Francisco", Boundary: sanFrancisco})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &area)
	assert.True(t, area.Active)

	var inside model.Report
	resp = s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 37.7749, Lng: -122.4194}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &inside)
	require.NotNil(t, inside.Routing)
	assert.Equal(t, area.ID, inside.Routing.AreaID)
	assert.Equal(t, model.MatchGeoWithin, inside.Routing.MatchBasis)

	var outside model.Report
	resp = s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 0, Lng: 0}))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &outside)
	assert.Nil(t, outside.Routing)
	assert.Equal(t, model.StatusOpen, outside.Status)

	var routed []model.Report
	resp = s.do(t, http.MethodGet, "/reports?areaId="+area.ID, nil, nil)
	decode(t, resp, &routed)
	require.Len(t, routed, 1)
	assert.Equal(t, inside.ID, routed[0].ID)
}

func TestCreateReportRejectsInvalidBodies(t *testing.T) {
	s := newTestServer(t, nil)

	bad := draftAt(model.Coordinates{Lat: 91, Lng: 0})
	resp := s.doJSON(t, http.MethodPost, "/reports", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, values.BadRequestBody, body.Status)
	assert.Contains(t, body.Message, "Lat")

	bad = draftAt(model.Coordinates{Lat: 1, Lng: 1})
	bad.Analysis.Category = "pothole"
	resp = s.doJSON(t, http.MethodPost, "/reports", bad)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/reports", strings.NewReader("{"), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteReportTwice(t *testing.T) {
	s := newTestServer(t, nil)

	var created model.Report
	resp := s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	decode(t, resp, &created)

	resp = s.do(t, http.MethodDelete, "/reports/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body deletedBody
	decode(t, resp, &body)
	assert.Equal(t, deletedBody{ID: created.ID, Deleted: true}, body)

	resp = s.do(t, http.MethodDelete, "/reports/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/reports/not-an-id", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/reports/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateReportStatus(t *testing.T) {
	s := newTestServer(t, nil)

	var created model.Report
	resp := s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	decode(t, resp, &created)

	var updated model.Report
	resp = s.doJSON(t, http.MethodPatch, "/reports/"+created.ID+"/status", model.UpdateStatusRequest{Status: model.StatusResolved})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &updated)
	assert.Equal(t, model.StatusResolved, updated.Status)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	resp = s.doJSON(t, http.MethodPatch, "/reports/"+created.ID+"/status", model.UpdateStatusRequest{Status: "closed"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var open []model.Report
	resp = s.do(t, http.MethodGet, "/reports?status=open", nil, nil)
	decode(t, resp, &open)
	assert.Empty(t, open)
}

func TestListReportFilterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	for _, q := range []string{"?category=pothole", "?severity=extreme", "?status=closed", "?limit=abc", "?limit=-1"} {
		resp := s.do(t, http.MethodGet, "/reports"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestAreas(t *testing.T) {
	s := newTestServer(t, nil)

	inactive := false
	var area model.Area
	resp := s.doJSON(t, http.MethodPost, "/areas", model.CreateAreaRequest{Name: "SF", Boundary: sanFrancisco, Active: &inactive})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	decode(t, resp, &area)
	assert.False(t, area.Active)
	assert.Equal(t, area.Boundary[0], area.Boundary[len(area.Boundary)-1])

	var areas []model.Area
	resp = s.do(t, http.MethodGet, "/areas", nil, nil)
	decode(t, resp, &areas)
	require.Len(t, areas, 1)
	assert.Equal(t, area.Polyline, areas[0].Polyline)
	assert.NotEmpty(t, areas[0].Polyline)

	var report model.Report
	resp = s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 37.7749, Lng: -122.4194}))
	decode(t, resp, &report)
	assert.Nil(t, report.Routing, "inactive areas do not route")

	resp = s.doJSON(t, http.MethodPost, "/areas", model.CreateAreaRequest{Name: "line", Boundary: sanFrancisco[:2]})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/areas/malformed", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/areas/"+area.ID, nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/areas/"+area.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAnalyze(t *testing.T) {
	fc := &fakeClassifier{result: model.AnalysisResult{
		Category:   model.CategoryBlockedSidewalk,
		Severity:   model.SeverityMedium,
		Summary:    "Scooters parked across the sidewalk",
		Confidence: 0.7,
	}}
	s := newTestServer(t, func(_ *config.Config, d *deps.Dependencies) { d.Classifier = fc })

	body, header := multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
	resp := s.do(t, http.MethodPost, "/analyze", body, header)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got model.AnalysisResult
	decode(t, resp, &got)
	assert.Equal(t, fc.result, got)
	assert.Equal(t, "ramp.jpg", fc.got.FileName)
	assert.Equal(t, model.MediaImage, fc.got.Kind)
	assert.Equal(t, jpegBytes, fc.got.Data)
}

func TestAnalyzeFailures(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		body, header := multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
		resp := s.do(t, http.MethodPost, "/analyze", body, header)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("upstream", func(t *testing.T) {
		fc := &fakeClassifier{err: classifier.ErrUpstream}
		s := newTestServer(t, func(_ *config.Config, d *deps.Dependencies) { d.Classifier = fc })
		body, header := multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
		resp := s.do(t, http.MethodPost, "/analyze", body, header)
		require.Equal(t, http.StatusBadGateway, resp.StatusCode)

		var errBody errorBody
		decode(t, resp, &errBody)
		assert.Equal(t, values.BadGateway, errBody.Status)
		assert.NotEmpty(t, errBody.Message)
		assert.Empty(t, errBody.Error, "upstream detail must not leak to clients")
	})

	t.Run("too large", func(t *testing.T) {
		fc := &fakeClassifier{}
		s := newTestServer(t, func(_ *config.Config, d *deps.Dependencies) { d.Classifier = fc })
		big := append(append([]byte{}, jpegBytes...), make([]byte, 2048)...)
		body, header := multipartFile(t, "ramp.jpg", "image/jpeg", big)
		resp := s.do(t, http.MethodPost, "/analyze", body, header)
		assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	})

	t.Run("not media", func(t *testing.T) {
		fc := &fakeClassifier{}
		s := newTestServer(t, func(_ *config.Config, d *deps.Dependencies) { d.Classifier = fc })
		body, header := multipartFile(t, "notes.txt", "text/plain", []byte("hello"))
		resp := s.do(t, http.MethodPost, "/analyze", body, header)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("missing field", func(t *testing.T) {
		fc := &fakeClassifier{}
		s := newTestServer(t, func(_ *config.Config, d *deps.Dependencies) { d.Classifier = fc })
		resp := s.doJSON(t, http.MethodPost, "/analyze", map[string]string{"file": "x"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUploadMedia(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		s := newTestServer(t, nil)
		body, header := multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
		resp := s.do(t, http.MethodPost, "/media", body, header)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("stored", func(t *testing.T) {
		fs := &fakeMediaStore{objects: map[string]storage.Object{}}
		s := newTestServer(t, func(_ *config.Config, d *deps.Dependencies) { d.Media = fs })

		body, header := multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
		resp := s.do(t, http.MethodPost, "/media", body, header)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		var up model.MediaUpload
		decode(t, resp, &up)
		assert.Equal(t, model.MediaImage, up.MediaType)
		assert.Equal(t, "ramp.jpg", up.FileName)
		assert.Equal(t, int64(len(jpegBytes)), up.FileSize)
		assert.True(t, strings.HasPrefix(up.URL, "https://cdn.example.com/reports/"))
		assert.True(t, strings.HasSuffix(up.URL, ".jpg"))
		require.Len(t, fs.objects, 1)
	})
}

func TestRateLimit(t *testing.T) {
	fc := &fakeClassifier{result: model.AnalysisResult{Category: model.CategoryOther, Severity: model.SeverityLow}}
	s := newTestServer(t, func(cfg *config.Config, d *deps.Dependencies) {
		cfg.AnalyzeRateLimit = "1-H"
		d.Classifier = fc
	})

	body, header := multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
	resp := s.do(t, http.MethodPost, "/analyze", body, header)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Limit"))

	body, header = multipartFile(t, "ramp.jpg", "image/jpeg", jpegBytes)
	resp = s.do(t, http.MethodPost, "/analyze", body, header)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestRateLimitRejectsMalformedRate(t *testing.T) {
	_, err := RateLimit("twenty per minute", false)
	assert.Error(t, err)
}

func TestRateLimitIgnoresForwardedForByDefault(t *testing.T) {
	mw, err := RateLimit("1-H", false)
	require.NoError(t, err)
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }))

	for i, fwd := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/analyze", nil)
		req.Header.Set("X-Forwarded-For", fwd)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		want := http.StatusTooManyRequests
		if i == 0 {
			want = http.StatusOK
		}
		assert.Equal(t, want, rec.Code, "X-Forwarded-For %s", fwd)
	}
}

func TestClientIP(t *testing.T) {
	testCases := []struct {
		name       string
		remote     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{"peer address", "192.0.2.10:5123", "", false, "192.0.2.10"},
		{"untrusted header ignored", "192.0.2.10:5123", "203.0.113.9", false, "192.0.2.10"},
		{"trusted proxy last hop", "10.0.0.2:443", "198.51.100.1, 203.0.113.9", true, "203.0.113.9"},
		{"trusted proxy without header", "10.0.0.2:443", "", true, "10.0.0.2"},
		{"unparseable remote", "pipe", "", false, "pipe"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			if tc.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			assert.Equal(t, tc.want, clientIP(req, tc.trustProxy))
		})
	}
}

func TestWriteErrorResponseHidesServerErrors(t *testing.T) {
	testCases := []struct {
		status    string
		code      int
		wantError string
	}{
		{values.BadRequestBody, http.StatusBadRequest, "lat out of range"},
		{values.Error, http.StatusInternalServerError, ""},
		{values.Unavailable, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeErrorResponse(rec, errors.New("lat out of range"), tc.status, "request failed")
			require.Equal(t, tc.code, rec.Code)

			var body errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, "request failed", body.Message)
			assert.Equal(t, tc.wantError, body.Error)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	const secret = "s3cret"
	s := newTestServer(t, func(cfg *config.Config, _ *deps.Dependencies) { cfg.AdminJWTSecret = secret })

	var created model.Report
	resp := s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, "creating reports stays public")
	decode(t, resp, &created)

	resp = s.do(t, http.MethodDelete, "/reports/"+created.ID, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	wrong, _, err := SignAdminToken("other", "ops", time.Minute)
	require.NoError(t, err)
	resp = s.do(t, http.MethodDelete, "/reports/"+created.ID, nil, http.Header{"Authorization": {"Bearer " + wrong}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	expired, _, err := SignAdminToken(secret, "ops", -time.Minute)
	require.NoError(t, err)
	resp = s.do(t, http.MethodDelete, "/reports/"+created.ID, nil, http.Header{"Authorization": {"Bearer " + expired}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var body errorBody
	decode(t, resp, &body)
	assert.Equal(t, values.TokenExpired, body.Status)

	good, _, err := SignAdminToken(secret, "ops", time.Minute)
	require.NoError(t, err)
	resp = s.do(t, http.MethodDelete, "/reports/"+created.ID, nil, http.Header{"Authorization": {"Bearer " + good}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, _, err = SignAdminToken("", "ops", time.Minute)
	assert.Error(t, err)
}

func TestDBInit(t *testing.T) {
	s := newTestServer(t, nil)

	resp := s.do(t, http.MethodPost, "/db/init", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var idx indexesBody
	decode(t, resp, &idx)
	assert.Equal(t, "memory", idx.Driver)
	assert.NotNil(t, idx.Indexes)

	_ = s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 1, Lng: 1}))

	resp = s.do(t, http.MethodGet, "/db/init", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stats model.DBStatus
	decode(t, resp, &stats)
	assert.True(t, stats.Connected)
	assert.Equal(t, int64(1), stats.Reports)
	assert.Equal(t, int64(0), stats.Areas)
}

func TestFeedReceivesCreatedReports(t *testing.T) {
	s := newTestServer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.api.Deps.Feed.Run(ctx)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/reports/feed", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.api.Deps.Feed.Subscribers() == 1 }, time.Second, 10*time.Millisecond)

	var created model.Report
	resp := s.doJSON(t, http.MethodPost, "/reports", draftAt(model.Coordinates{Lat: 1, Lng: 1}))
	decode(t, resp, &created)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev websockets.Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, websockets.EventReportCreated, ev.Type)
	assert.Equal(t, created.ID, ev.ID)
}

func TestStoreErrorStatus(t *testing.T) {
	status, _ := storeErrorStatus(store.ErrInvalidID, "area")
	assert.Equal(t, values.BadRequestBody, status)
	status, _ = storeErrorStatus(store.ErrNotFound, "area")
	assert.Equal(t, values.NotFound, status)
	status, _ = storeErrorStatus(errors.New("boom"), "area")
	assert.Equal(t, values.Error, status)
}
