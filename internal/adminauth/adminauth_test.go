package adminauth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMiddlewareRejectsMissingBearerToken(t *testing.T) {
	s := NewService(nil, "test-secret")
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/api/admin/order/admin-1", nil)
	rec := httptest.NewRecorder()

	s.Middleware(next).ServeHTTP(rec, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsMalformedToken(t *testing.T) {
	s := NewService(nil, "test-secret")
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/order/admin-1", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	rec := httptest.NewRecorder()

	s.Middleware(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminIDMissingFromBareContext(t *testing.T) {
	_, ok := AdminID(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.False(t, ok)
}
