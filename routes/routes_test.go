package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/inventory-identity/app"
	"github.com/upb/inventory-identity/config"
	"github.com/upb/inventory-identity/middleware"
	"github.com/upb/inventory-identity/services/ratelimit"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Environment: "test",
		Server: config.ServerConfig{
			Host:               "localhost",
			Port:               8080,
			ReadTimeout:        30 * time.Second,
			WriteTimeout:       30 * time.Second,
			ShutdownTimeout:    5 * time.Second,
			RequestTimeout:     30 * time.Second,
			CORSAllowedOrigins: []string{"http://localhost:3000"},
		},
		Database: config.DatabaseConfig{
			Driver:          config.DriverSQLite,
			Path:            filepath.Join(t.TempDir(), "identity.db"),
			MaxOpenConns:    1,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Minute,
			AutoMigrate:     true,
		},
		Auth: config.AuthConfig{
			AccessSecret:    "access-secret-for-tests-only-0000",
			RefreshSecret:   "refresh-secret-for-tests-only-000",
			AccessTTL:       15 * time.Minute,
			RefreshTTL:      24 * time.Hour,
			Issuer:          "inventory-identity",
			HashConcurrency: 2,
		},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Audit:     config.AuditConfig{BufferSize: 100, WorkerCount: 1},
		Observability: config.ObservabilityConfig{
			LogLevel:  "error",
			LogFormat: "json",
		},
	}
}

func newServer(t *testing.T, tweak func(*app.Dependencies)) *httptest.Server {
	t.Helper()

	deps, err := app.NewDependencies(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = deps.Close(context.Background()) })

	if tweak != nil {
		tweak(deps)
	}

	ts := httptest.NewServer(SetupRoutes(deps))
	t.Cleanup(ts.Close)
	return ts
}

type call struct {
	method string
	path   string
	body   interface{}
	token  string
	cookie *http.Cookie
}

func do(t *testing.T, ts *httptest.Server, c call) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(c.method, ts.URL+c.path, body)
	require.NoError(t, err)
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cookie != nil {
		req.AddCookie(&http.Cookie{Name: c.cookie.Name, Value: c.cookie.Value})
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func accessToken(t *testing.T, raw []byte) string {
	t.Helper()
	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

func refreshCookie(t *testing.T, resp *http.Response) *http.Cookie {
	t.Helper()
	for _, c := range resp.Cookies() {
		if c.Name == middleware.RefreshCookieName {
			return c
		}
	}
	t.Fatalf("response carries no %s cookie", middleware.RefreshCookieName)
	return nil
}

func dataOf(t *testing.T, raw []byte) map[string]interface{} {
	t.Helper()
	var body struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body.Data
}

var ownerSignup = map[string]interface{}{
	"user":    map[string]string{"name": "Owner One", "email": "owner@example.com", "password": "password123"},
	"company": map[string]string{"company_name": "Acme Retail"},
}

func TestIdentityFlow(t *testing.T) {
	ts := newServer(t, nil)

	resp, raw := do(t, ts, call{method: http.MethodPost, path: "/auth/signup", body: ownerSignup})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	ownerToken := accessToken(t, raw)
	ownerCookie := refreshCookie(t, resp)
	assert.True(t, ownerCookie.HttpOnly)

	t.Run("duplicate signup", func(t *testing.T) {
		resp, _ := do(t, ts, call{method: http.MethodPost, path: "/auth/signup", body: ownerSignup})
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("me requires a token", func(t *testing.T) {
		resp, _ := do(t, ts, call{method: http.MethodGet, path: "/api/v1/users/me"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = do(t, ts, call{method: http.MethodGet, path: "/api/v1/users/me", token: "not-a-jwt"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	var companyID string
	t.Run("owner me", func(t *testing.T) {
		resp, raw := do(t, ts, call{method: http.MethodGet, path: "/api/v1/users/me", token: ownerToken})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))

		data := dataOf(t, raw)
		user := data["user"].(map[string]interface{})
		tenant := data["tenant"].(map[string]interface{})
		assert.Equal(t, "OWNER", user["role"])
		assert.NotContains(t, user, "password_hash")
		companyID, _ = tenant["company_id"].(string)
		assert.NotEmpty(t, companyID)
		assert.NotContains(t, tenant, "shop_id")
	})

	resp, raw = do(t, ts, call{method: http.MethodPost, path: "/api/v1/stores", token: ownerToken, body: map[string]string{
		"store_name":     "Downtown",
		"store_location": "5th Ave 12",
		"store_phone":    "+57 300 000 0000",
		"store_email":    "downtown@example.com",
		"store_city":     "Medellin",
		"store_country":  "Colombia",
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))
	storeID := dataOf(t, raw)["id"].(string)

	resp, raw = do(t, ts, call{method: http.MethodPost, path: "/api/v1/users/staff", token: ownerToken, body: map[string]string{
		"storeId":  storeID,
		"name":     "Staff Member",
		"email":    "staff@example.com",
		"password": "password123",
		"role":     "STAFF",
	}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(raw))

	resp, raw = do(t, ts, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
		"email":    "staff@example.com",
		"password": "password123",
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	staffToken := accessToken(t, raw)

	t.Run("staff tenant is scoped to its store", func(t *testing.T) {
		resp, raw := do(t, ts, call{method: http.MethodGet, path: "/api/v1/users/me", token: staffToken})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		tenant := dataOf(t, raw)["tenant"].(map[string]interface{})
		assert.Equal(t, companyID, tenant["company_id"])
		assert.Equal(t, storeID, tenant["shop_id"])
	})

	t.Run("staff cannot use owner routes", func(t *testing.T) {
		resp, raw := do(t, ts, call{method: http.MethodPost, path: "/api/v1/stores", token: staffToken, body: map[string]string{"store_name": "x"}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Contains(t, string(raw), "insufficient role")

		resp, _ = do(t, ts, call{method: http.MethodGet, path: "/api/v1/audit/logs", token: staffToken})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		resp, _ = do(t, ts, call{method: http.MethodPost, path: "/api/v1/users/staff", token: staffToken, body: map[string]string{}})
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("refresh rotates and rejects replay", func(t *testing.T) {
		resp, raw := do(t, ts, call{method: http.MethodPost, path: "/auth/refresh", cookie: ownerCookie})
		require.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
		rotated := refreshCookie(t, resp)
		assert.NotEqual(t, ownerCookie.Value, rotated.Value)
		assert.NotEmpty(t, accessToken(t, raw))

		resp, _ = do(t, ts, call{method: http.MethodPost, path: "/auth/refresh", cookie: ownerCookie})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = do(t, ts, call{method: http.MethodPost, path: "/auth/refresh", cookie: rotated})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("refresh without cookie", func(t *testing.T) {
		resp, _ := do(t, ts, call{method: http.MethodPost, path: "/auth/refresh"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("login failures are indistinguishable", func(t *testing.T) {
		wrongPassword, rawWrong := do(t, ts, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "owner@example.com", "password": "not-the-password",
		}})
		unknownUser, rawUnknown := do(t, ts, call{method: http.MethodPost, path: "/auth/login", body: map[string]string{
			"email": "nobody@example.com", "password": "not-the-password",
		}})

		assert.Equal(t, http.StatusUnauthorized, wrongPassword.StatusCode)
		assert.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)
		assert.JSONEq(t, string(rawWrong), string(rawUnknown))
		assert.Empty(t, wrongPassword.Cookies())
	})

	t.Run("audit trail is tenant scoped", func(t *testing.T) {
		assert.Eventually(t, func() bool {
			resp, raw := do(t, ts, call{method: http.MethodGet, path: "/api/v1/audit/logs?limit=200", token: ownerToken})
			if resp.StatusCode != http.StatusOK {
				return false
			}
			var body struct {
				Data struct {
					Logs []struct {
						Action    string `json:"action"`
						CompanyID string `json:"company_id"`
					} `json:"logs"`
				} `json:"data"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return false
			}
			seen := map[string]bool{}
			for _, l := range body.Data.Logs {
				if l.CompanyID != companyID {
					return false
				}
				seen[l.Action] = true
			}
			return seen["signup"] && seen["store_created"] && seen["staff_created"]
		}, 5*time.Second, 50*time.Millisecond)
	})
}

func TestHealthRoutes(t *testing.T) {
	ts := newServer(t, nil)

	resp, raw := do(t, ts, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), `"status":"ok"`)

	resp, raw = do(t, ts, call{method: http.MethodGet, path: "/readyz"})
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(raw))
	assert.Contains(t, string(raw), `"database":"healthy"`)
}

func TestFallbackRoutes(t *testing.T) {
	ts := newServer(t, nil)

	resp, raw := do(t, ts, call{method: http.MethodGet, path: "/api/v2/nothing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(raw), "endpoint not found")

	resp, _ = do(t, ts, call{method: http.MethodGet, path: "/auth/login"})
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	ts := newServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/auth/login", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

type exhaustedLimiter struct{}

func (exhaustedLimiter) CheckLimit(context.Context, ratelimit.Request) (*ratelimit.Result, error) {
	return &ratelimit.Result{Allowed: false, Limit: 10, Remaining: 0, RetryAfter: 1500 * time.Millisecond}, nil
}

func TestAuthRoutesAreRateLimited(t *testing.T) {
	ts := newServer(t, func(d *app.Dependencies) {
		d.RateLimiter = middleware.NewRateLimiter(exhaustedLimiter{}, zap.NewNop())
	})

	for _, path := range []string{"/auth/login", "/auth/signup", "/auth/refresh"} {
		resp, _ := do(t, ts, call{method: http.MethodPost, path: path, body: map[string]string{}})
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode, path)
		assert.Equal(t, "2", resp.Header.Get("Retry-After"), path)
	}

	resp, _ := do(t, ts, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// bucketLimiter allows one request per client address and route
type bucketLimiter struct {
	mu   sync.Mutex
	seen map[string]int
}

func (l *bucketLimiter) CheckLimit(_ context.Context, req ratelimit.Request) (*ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[req.ClientIP]++
	if l.seen[req.ClientIP] > 1 {
		return &ratelimit.Result{Allowed: false, Limit: 1, RetryAfter: time.Second}, nil
	}
	return &ratelimit.Result{Allowed: true, Limit: 1, Remaining: 0}, nil
}

func loginFrom(t *testing.T, ts *httptest.Server, forwardedFor string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/auth/login",
		bytes.NewReader([]byte(`{"email":"nobody@example.com","password":"password123"}`)))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", forwardedFor)
	req.Header.Set("X-Real-IP", forwardedFor)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp
}

func TestLoginLimitIgnoresForwardedHeadersFromUntrustedPeers(t *testing.T) {
	limiter := &bucketLimiter{seen: map[string]int{}}
	ts := newServer(t, func(d *app.Dependencies) {
		d.RateLimiter = middleware.NewRateLimiter(limiter, zap.NewNop())
	})

	statuses := make([]int, 0, 5)
	for i := 1; i <= 5; i++ {
		resp := loginFrom(t, ts, fmt.Sprintf("198.51.100.%d", i))
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{
		http.StatusUnauthorized,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, statuses)
	assert.Equal(t, map[string]int{"127.0.0.1": 5}, limiter.seen)
}

func TestLoginLimitUsesForwardedClientBehindTrustedProxy(t *testing.T) {
	limiter := &bucketLimiter{seen: map[string]int{}}
	ts := newServer(t, func(d *app.Dependencies) {
		proxies, err := middleware.NewTrustedProxies([]string{"127.0.0.1"})
		require.NoError(t, err)
		d.Proxies = proxies
		d.RateLimiter = middleware.NewRateLimiter(limiter, zap.NewNop())
	})

	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, ts, "198.51.100.1").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, loginFrom(t, ts, "198.51.100.2").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, loginFrom(t, ts, "198.51.100.1").StatusCode)
	assert.Equal(t, map[string]int{"198.51.100.1": 2, "198.51.100.2": 1}, limiter.seen)
}
