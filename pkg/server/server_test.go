package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adfharrison1/json-updates/pkg/api"
	"github.com/adfharrison1/json-updates/pkg/gateway"
)

func newTestServer() (*Server, *api.MockDocumentStore) {
	store := api.NewMockDocumentStore()
	gw := gateway.New(gateway.NewAuthGate("xyz", "tenantA_"), store, api.MockIsConflict)
	return NewServer(api.NewHandler(gw, store, api.WithBackendName("mock"))), store
}

func TestServer_Routes(t *testing.T) {
	srv, store := newTestServer()

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{name: "write data", method: "POST", path: "/data",
			body:           `{"db_collection":"tenantA_logs","token":"xyz","data":[{"id":"a"}],"id_field":"id"}`,
			expectedStatus: http.StatusOK},
		{name: "health", method: "GET", path: "/health", expectedStatus: http.StatusOK},
		{name: "redirect", method: "GET", path: "/", expectedStatus: http.StatusFound},
		{name: "unknown route", method: "GET", path: "/collections/users", expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			srv.Router().ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	assert.Equal(t, 1, store.GetCollectionCount("tenantA_logs"))
}

func TestServer_RequestID(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	id, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())

	req = httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	w = httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	assert.Equal(t, "client-supplied", w.Header().Get(RequestIDHeader))
}

func TestStatusRecorder(t *testing.T) {
	w := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	rec.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rec.status)
	assert.Equal(t, http.StatusTeapot, w.Code)
}
