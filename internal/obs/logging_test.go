package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerCarriesContextEnrichment(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")
	handler := RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("user_id", "u1")
		})
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/record-payment", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "u1", entry["user_id"])
	require.EqualValues(t, http.StatusAccepted, entry["status"])
	require.Equal(t, "/record-payment", entry["route"])
}

func TestStripeLoggerWritesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "json", "info")
	StripeLogger{Logger: logger}.Errorf("request failed: %s", "boom")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "stripe", entry["component"])
	require.Equal(t, "request failed: boom", entry["message"])
}
