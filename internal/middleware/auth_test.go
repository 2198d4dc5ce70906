package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"valve-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestRequireRoleReusesAuthenticatedCaller(t *testing.T) {
	// Nil deps: the caller must come out of the context, not a fresh
	// token validation and user lookup
	m := NewAuthMiddleware(nil, nil)

	called := false
	h := m.RequireRole(models.RoleSupervisor, models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		caller, ok := CallerFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, 3, caller.ID)
	}))

	req := httptest.NewRequest(http.MethodPatch, "/api/reports/1/status", nil)
	req = req.WithContext(withCaller(req.Context(), models.Caller{ID: 3, Role: models.RoleSupervisor}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	m := NewAuthMiddleware(nil, nil)

	h := m.RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run")
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/users/5", nil)
	req = req.WithContext(withCaller(req.Context(), models.Caller{ID: 7, Role: models.RoleOperator}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPanicRecovery(t *testing.T) {
	h := PanicRecovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("report renderer blew up")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/reports/1/pdf", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"success": false, "message": "Internal server error"}`, rec.Body.String())
}
