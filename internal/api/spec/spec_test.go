package spec

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAPIHandlerServesDocument(t *testing.T) {
	rr := httptest.NewRecorder()
	OpenAPIHandler()(rr, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/yaml", rr.Header().Get("Content-Type"))
	assert.Equal(t, Document(), rr.Body.Bytes())
	for _, path := range []string{"/v1/transactions/deposit", "/v1/commissions/summary", "/v1/wallets/{userId}"} {
		assert.Contains(t, rr.Body.String(), path)
	}
}

func TestOpenAPIHandlerRevalidates(t *testing.T) {
	first := httptest.NewRecorder()
	OpenAPIHandler()(first, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)

	req := httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil)
	req.Header.Set("If-None-Match", tag)
	rr := httptest.NewRecorder()
	OpenAPIHandler()(rr, req)
	assert.Equal(t, http.StatusNotModified, rr.Code)
	assert.Empty(t, rr.Body.String())
}
