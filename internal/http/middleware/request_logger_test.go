package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/brainytots/whatsapp-connect/pkg/logging"
)

func TestRequestLoggerLogsStatusAndCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	out := buf.String()
	require.Contains(t, out, "request handled")
	require.Contains(t, out, "req-42")
	require.Contains(t, out, "/webhook")
	require.Contains(t, out, `"status":202`)
	require.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestRequestLoggerGeneratesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, "info")

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Contains(t, buf.String(), "request_id")
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	// A handler that never writes still logs a 200.
	require.Contains(t, buf.String(), `"status":200`)
}
