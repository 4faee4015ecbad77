package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willrp/willstores-ws/pkg/httputil"
	"github.com/willrp/willstores-ws/pkg/logger"
)

func TestRecovery_PanicBecomesInternalError(t *testing.T) {
	var buf bytes.Buffer
	h := Recovery(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("nil hit source")
	}))

	ctx := logger.WithCorrelationID(context.Background(), "corr-7")
	req := httptest.NewRequest(http.MethodPost, "/api/search/shirt/1", nil).WithContext(ctx)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp httputil.Response
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.Equal(t, "corr-7", resp.Error.RequestID)
	assert.NotContains(t, resp.Error.Message, "nil hit source")

	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "nil hit source")
}

func TestRecovery_ReraisesAbortHandler(t *testing.T) {
	h := Recovery(newTestLogger(&bytes.Buffer{}))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/start", nil))
	})
}

func TestRecovery_PassesThrough(t *testing.T) {
	h := Recovery(newTestLogger(&bytes.Buffer{}))(okHandler())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/start", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}
