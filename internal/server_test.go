package internal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2beens/orderbox/internal/auth"
	"github.com/2beens/orderbox/internal/config"
	"github.com/2beens/orderbox/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testServer struct {
	server  *Server
	router  *mux.Router
	dataDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dataDir := t.TempDir()
	staticRoot := filepath.Join(dataDir, "public")
	require.NoError(t, os.MkdirAll(staticRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(staticRoot, "index.html"), []byte("<h1>cardapio</h1>"), 0o644))

	cfg := &config.Config{
		Environment:          "development",
		Host:                 "localhost",
		Port:                 8000,
		AdminFile:            filepath.Join(dataDir, "admin.json"),
		OrdersFile:           filepath.Join(dataDir, "orders.json"),
		StaticRoot:           staticRoot,
		DefaultAdminUsername: "mudinho",
		DefaultAdminPassword: "mudinho",
	}

	server, err := NewServer(context.Background(), NewServerParams{Config: cfg})
	require.NoError(t, err)

	router, err := server.routerSetup()
	require.NoError(t, err)

	return &testServer{
		server:  server,
		router:  router,
		dataDir: dataDir,
	}
}

func (ts *testServer) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) login(t *testing.T) *http.Cookie {
	t.Helper()
	rr := ts.do("POST", "/api/admin/login", `{"username":"mudinho","password":"mudinho"}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	for _, c := range rr.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return &http.Cookie{Name: c.Name, Value: c.Value}
		}
	}
	require.FailNow(t, "no session cookie")
	return nil
}

func TestNewServer_EnsuresAdmin(t *testing.T) {
	ts := newTestServer(t)

	var admin auth.Admin
	raw, err := os.ReadFile(filepath.Join(ts.dataDir, "admin.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &admin))
	assert.Equal(t, "mudinho", admin.Username)
	assert.Len(t, admin.Salt, 32)
	assert.Len(t, admin.Hash, 64)

	// orders file is only created on the first order
	_, err = os.Stat(filepath.Join(ts.dataDir, "orders.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestServer_FullFlow(t *testing.T) {
	ts := newTestServer(t)

	// not logged in yet
	rr := ts.do("GET", "/api/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rr.Body.String())

	rr = ts.do("POST", "/api/admin/login", `{"username":"mudinho","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.JSONEq(t, `{"error":"invalid credentials"}`, rr.Body.String())

	// public order creation
	rr = ts.do("POST", "/api/order", `{"item":"bolo","qty":2}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var created struct {
		Ok bool   `json:"ok"`
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.True(t, created.Ok)

	rr = ts.do("POST", "/api/order", `{"item":"coxinha","qty":10}`, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	cookie := ts.login(t)

	rr = ts.do("GET", "/api/admin/me", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"username":"mudinho"}`, rr.Body.String())

	rr = ts.do("GET", "/api/orders", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Items []map[string]any `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	require.Len(t, list.Items, 2)
	assert.Equal(t, "coxinha", list.Items[0]["item"])
	assert.Equal(t, created.ID, list.Items[1]["id"])
	assert.Equal(t, "bolo", list.Items[1]["item"])
	assert.Equal(t, float64(2), list.Items[1]["qty"])
	assert.NotEmpty(t, list.Items[1]["created_at"])

	rr = ts.do("POST", "/api/admin/logout", "", cookie)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = ts.do("GET", "/api/orders", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	rr = ts.do("GET", "/api/admin/me", "", cookie)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	mm := ts.server.metricsManager
	assert.Equal(t, float64(2), testutil.ToFloat64(mm.CounterOrders))
	assert.Equal(t, float64(1), testutil.ToFloat64(mm.CounterLoginAttempts.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mm.CounterLoginAttempts.WithLabelValues("wrong-credentials")))
	assert.Equal(t, float64(0), testutil.ToFloat64(mm.GaugeSessions))
}

func TestServer_UnknownAPIRoutes(t *testing.T) {
	ts := newTestServer(t)
	cookie := ts.login(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/api/unknown"},
		{"POST", "/api/admin/unknown"},
		{"GET", "/api/"},
		// known paths, wrong methods
		{"GET", "/api/order"},
		{"POST", "/api/orders"},
		{"GET", "/api/admin/login"},
		{"DELETE", "/api/admin/me"},
		{"PUT", "/api/order"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rr := ts.do(tc.method, tc.path, "", cookie)
			assert.Equal(t, http.StatusNotFound, rr.Code)
			assert.JSONEq(t, `{"error":"endpoint not found"}`, rr.Body.String())
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
		})
	}
}

func TestServer_Static(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do("GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "<h1>cardapio</h1>", rr.Body.String())
	assert.Equal(t, "text/html", rr.Header().Get("Content-Type"))

	rr = ts.do("GET", "/missing.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "404")

	// no /api/ prefix, so this is a file lookup
	rr = ts.do("GET", "/api", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))
}

func TestServer_RequestMetrics(t *testing.T) {
	ts := newTestServer(t)

	ts.do("GET", "/", "", nil)
	ts.do("GET", "/api/orders", "", nil)
	ts.do("GET", "/api/nope", "", nil)

	mm := ts.server.metricsManager
	assert.Equal(t, float64(1), testutil.ToFloat64(mm.CounterRequests.WithLabelValues("GET", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mm.CounterRequests.WithLabelValues("GET", "401")))
	assert.Equal(t, float64(1), testutil.ToFloat64(mm.CounterRequests.WithLabelValues("GET", "404")))

	count, err := testutil.GatherAndCount(ts.server.promRegistry, "orderbox_main_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestServer_GracefulShutdownWithoutServe(t *testing.T) {
	ts := newTestServer(t)
	assert.NotPanics(t, ts.server.GracefulShutdown)
	assert.Equal(t, float64(0), testutil.ToFloat64(ts.server.metricsManager.GaugeLifeSignal))
}
