package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	appctx "paydocs/internal/core/context"
)

type fakeValidator map[string]*appctx.UserContext

func (f fakeValidator) ValidateToken(token string) (*appctx.UserContext, error) {
	if u, ok := f[token]; ok {
		return u, nil
	}
	return nil, errors.New("unknown token")
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Recovery(), ErrorHandler())
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, appctx.GetUserID(c.Request.Context())) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	return r
}

func get(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestAuthAndRequireRole(t *testing.T) {
	validator := fakeValidator{
		"viewer":  {UserID: "u-viewer", Roles: []string{"viewer"}},
		"manager": {UserID: "u-manager", Roles: []string{"manager"}},
		"admin":   {UserID: "u-admin", IsAdmin: true},
	}
	r := newEngine(Auth(validator), RequireRole("manager"))

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing token", "", http.StatusUnauthorized},
		{"bad token", "nope", http.StatusUnauthorized},
		{"wrong role", "viewer", http.StatusForbidden},
		{"role held", "manager", http.StatusOK},
		{"admin passes", "admin", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(r, "/x", tt.token)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	assert.Equal(t, "u-manager", get(r, "/x", "manager").Body.String())
}

func TestRequireAdmin(t *testing.T) {
	validator := fakeValidator{
		"manager": {UserID: "u-manager", Roles: []string{"manager"}},
		"admin":   {UserID: "u-admin", IsAdmin: true},
	}
	r := newEngine(Auth(validator), RequireAdmin())

	assert.Equal(t, http.StatusForbidden, get(r, "/x", "manager").Code)
	assert.Equal(t, http.StatusOK, get(r, "/x", "admin").Code)
}

func TestOptionalAuth(t *testing.T) {
	r := newEngine(OptionalAuth(fakeValidator{"t": {UserID: "u1"}}))

	assert.Equal(t, "u1", get(r, "/x", "t").Body.String())

	rec := get(r, "/x", "invalid")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestRecovery(t *testing.T) {
	r := newEngine(Passthrough())

	rec := get(r, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}
