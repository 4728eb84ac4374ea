package rest

import (
	"encoding/json"
	"net/http"

	"github.com/bwise1/barrier_reports/internal/logger"
	"github.com/bwise1/barrier_reports/util"
	"github.com/bwise1/barrier_reports/util/tracing"
	"github.com/sirupsen/logrus"
)

// ServerResponse is what every Handler returns. Successful responses write
// Data as the body; failures write an errorBody.
type ServerResponse struct {
	Message    string
	Status     string
	StatusCode int
	Data       interface{}
	Err        error
}

type errorBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

func respondWithError(err error, message, status string, tc *tracing.Context) *ServerResponse {
	entry := logger.Log.WithFields(logrus.Fields{
		"request_id":     tc.RequestID,
		"request_source": tc.RequestSource,
		"status":         status,
	}).WithError(err)
	if util.StatusCode(status) >= http.StatusInternalServerError {
		entry.Error(message)
	} else {
		entry.Info(message)
	}

	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Err:        err,
	}
}

func writeErrorResponse(w http.ResponseWriter, err error, status, message string) {
	code := util.StatusCode(status)
	if code < http.StatusBadRequest {
		code = http.StatusInternalServerError
	}
	body := errorBody{Status: status, Message: message}
	// server-side failures stay in the log, the client only sees the message
	if err != nil && code < http.StatusInternalServerError {
		body.Error = err.Error()
	}
	b, marshalErr := json.Marshal(body)
	if marshalErr != nil {
		http.Error(w, message, code)
		return
	}
	writeJSONResponse(w, b, code)
}

func writeJSONResponse(w http.ResponseWriter, b []byte, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func ok(status, message string, data interface{}) *ServerResponse {
	return &ServerResponse{
		Message:    message,
		Status:     status,
		StatusCode: util.StatusCode(status),
		Data:       data,
	}
}

func tracingContext(r *http.Request) tracing.Context {
	return tracing.FromContext(r.Context())
}
