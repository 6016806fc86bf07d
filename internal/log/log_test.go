package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonLogger(buf *bytes.Buffer) *Logger {
	return New(Config{
		Component: ComponentHTTP,
		Handler:   slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		records = append(records, rec)
	}
	return records
}

func TestLogger_StampsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf).WithComponent(ComponentImport)

	logger.Info("Import committed", FieldOwnerID, "alice")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, ComponentImport, records[0][FieldComponent])
	assert.Equal(t, "alice", records[0][FieldOwnerID])
}

func TestRequestIDAndAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := jsonLogger(&buf)

	var seenID string
	handler := Middleware(logger)(RequestIDMiddleware(AccessLogMiddleware(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenID = RequestIDFromContext(r.Context())
			w.WriteHeader(http.StatusUnprocessableEntity)
		}))))

	req := httptest.NewRequest(http.MethodPost, "/api/imports", nil)
	req.Header.Set("X-Request-ID", "req_fixed")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req_fixed", seenID)
	assert.Equal(t, "req_fixed", rec.Header().Get("X-Request-ID"))

	records := decodeLines(t, &buf)
	require.Len(t, records, 2)
	end := records[1]
	assert.Equal(t, "HTTP request completed", end["msg"])
	assert.Equal(t, "WARN", end["level"])
	assert.Equal(t, float64(http.StatusUnprocessableEntity), end[FieldStatusCode])
	assert.Equal(t, "req_fixed", end[FieldRequestID])
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.True(t, strings.HasPrefix(rec.Header().Get("X-Request-ID"), "req_"))
}
