package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"paydocs/internal/app/apptest"
	appctx "paydocs/internal/core/context"
	"paydocs/internal/core/id"
	"paydocs/internal/core/types"
	"paydocs/internal/domain/auth"
	v1 "paydocs/internal/infrastructure/http/v1"
	"paydocs/internal/infrastructure/metrics"
)

type testServer struct {
	env    *apptest.Env
	router http.Handler
	token  string
}

func newServer(t *testing.T, withAuth bool) *testServer {
	t.Helper()
	env := apptest.New(t)
	reg := prometheus.NewRegistry()
	cfg := v1.RouterConfig{
		Services:    env.Svc,
		Storage:     "memory",
		Version:     "test",
		HTTPMetrics: metrics.NewHTTP(reg),
		Gatherer:    reg,
	}
	if withAuth {
		cfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	}
	return &testServer{env: env, router: v1.NewRouter(cfg)}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type documentBody struct {
	ID      string `json:"id"`
	Version int    `json:"version"`
	State   string `json:"state"`
	Lines   []struct {
		ID             string      `json:"id"`
		AmountCurrency types.Money `json:"amountCurrency"`
	} `json:"lines"`
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details"`
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t, false)

	rec := s.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "memory")

	rec = s.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paydocs_http_requests_total")
}

func TestCatalogRoutes(t *testing.T) {
	s := newServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/catalog/partners", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), s.env.Demo.Customer.ID.String())

	rec = s.do(t, http.MethodGet, "/api/v1/catalog/payment-modes/"+s.env.Demo.InboundMode.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), s.env.Demo.InboundMode.Name)

	rec = s.do(t, http.MethodGet, "/api/v1/catalog/journals/"+id.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPaymentDocumentFlow(t *testing.T) {
	s := newServer(t, false)
	invoice := s.env.Invoice(t, "SO001", "100", apptest.Days(5))

	rec := s.do(t, http.MethodGet, "/api/v1/moves/"+invoice.MoveID.String()+"/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[struct {
		Pending types.Money `json:"pending"`
	}](t, rec)
	apptest.AssertMoney(t, "100", pending.Pending)

	rec = s.do(t, http.MethodPost, "/api/v1/payment-documents", map[string]any{
		"name":          "PD/001",
		"partnerId":     s.env.Demo.Customer.ID,
		"paymentModeId": s.env.Demo.InboundMode.ID,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decode[documentBody](t, rec)
	assert.Equal(t, "draft", doc.State)

	base := "/api/v1/payment-documents/" + doc.ID
	rec = s.do(t, http.MethodPost, base+"/move-lines", map[string]any{
		"moveLineIds": []id.ID{invoice.ID},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc = decode[documentBody](t, rec)
	require.Len(t, doc.Lines, 1)
	apptest.AssertMoney(t, "100", doc.Lines[0].AmountCurrency)

	rec = s.do(t, http.MethodGet, "/api/v1/moves/"+invoice.MoveID.String()+"/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending = decode[struct {
		Pending types.Money `json:"pending"`
	}](t, rec)
	apptest.AssertMoney(t, "0", pending.Pending)

	rec = s.do(t, http.MethodPost, base+"/open", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "open", decode[documentBody](t, rec).State)

	// Open documents cannot be deleted.
	rec = s.do(t, http.MethodDelete, base, nil)
	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)

	rec = s.do(t, http.MethodGet, "/api/v1/payment-documents?state=open", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items      []documentBody `json:"items"`
		TotalCount int64          `json:"totalCount"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, doc.ID, list.Items[0].ID)
}

func TestPaymentDocumentUpdate(t *testing.T) {
	s := newServer(t, false)
	doc := s.env.Document(t, "PD/001", s.env.Demo.InboundMode, s.env.Demo.Customer)
	path := "/api/v1/payment-documents/" + doc.ID.String()

	body := map[string]any{
		"name":          "PD/001-renamed",
		"partnerId":     s.env.Demo.Customer.ID,
		"paymentModeId": s.env.Demo.InboundMode.ID,
		"description":   "March collection",
	}

	t.Run("version required", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, path, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VALIDATION_ERROR", decode[errorBody](t, rec).Code)
	})

	t.Run("stale version", func(t *testing.T) {
		body["version"] = doc.Version + 5
		rec := s.do(t, http.MethodPut, path, body)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("current version", func(t *testing.T) {
		body["version"] = doc.Version
		rec := s.do(t, http.MethodPut, path, body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		got := decode[documentBody](t, rec)
		assert.Equal(t, doc.Version+1, got.Version)
	})
}

func TestInvalidIDAndBody(t *testing.T) {
	s := newServer(t, false)

	rec := s.do(t, http.MethodGet, "/api/v1/payment-documents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorBody](t, rec).Details, "param")

	rec = s.do(t, http.MethodPost, "/api/v1/payment-documents", map[string]any{"name": "missing partner"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/v1/move-lines/candidates", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLineCandidates(t *testing.T) {
	s := newServer(t, false)
	free := s.env.Invoice(t, "SO001", "100", apptest.Days(5))
	claimed := s.env.Invoice(t, "SO002", "50", apptest.Days(5))
	s.env.Document(t, "PD/001", s.env.Demo.InboundMode, s.env.Demo.Customer, claimed)

	rec := s.do(t, http.MethodGet, "/api/v1/move-lines/candidates?paymentType=inbound", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := rec.Body.String()
	assert.Contains(t, body, free.ID.String())
	assert.NotContains(t, body, claimed.ID.String())
}

func TestAuthAndRoles(t *testing.T) {
	s := newServer(t, true)
	jwt := auth.NewJWTService(auth.DefaultJWTConfig("test-secret"))
	tokenFor := func(user appctx.UserContext) string {
		token, _, err := jwt.GenerateAccessToken(user)
		require.NoError(t, err)
		return token
	}

	rec := s.do(t, http.MethodGet, "/api/v1/payment-documents", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Health stays public.
	rec = s.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.token = tokenFor(appctx.UserContext{UserID: "viewer", Roles: []string{auth.RoleViewer}})
	rec = s.do(t, http.MethodGet, "/api/v1/payment-documents", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/payment-orders", map[string]any{
		"name":          "PO/001",
		"paymentModeId": s.env.Demo.InboundMode.ID,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/expiration/run", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.token = tokenFor(appctx.UserContext{UserID: "manager", Roles: []string{auth.RoleManager}})
	rec = s.do(t, http.MethodPost, "/api/v1/payment-orders", map[string]any{
		"name":          "PO/001",
		"paymentModeId": s.env.Demo.InboundMode.ID,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	s.token = tokenFor(appctx.UserContext{UserID: "root", IsAdmin: true})
	rec = s.do(t, http.MethodPost, "/api/v1/admin/expiration/run", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
