package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"infinite-experiment/fmsuplink/internal/auth"
	"infinite-experiment/fmsuplink/internal/common"
	"infinite-experiment/fmsuplink/internal/constants"
	"infinite-experiment/fmsuplink/internal/metrics"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAuthMiddleware(t *testing.T) {
	signer := common.NewTokenSigner([]byte("test-secret"), "fmsuplink")
	valid, err := signer.Issue("dispatcher", constants.ScopeUplink, time.Hour)
	require.NoError(t, err)

	var seen auth.UserClaims
	handler := AuthMiddleware(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetUserClaims(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer " + valid, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"wrong scheme", "Basic Zm9vOmJhcg==", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/navlog/classify", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "dispatcher", seen.Subject())
				assert.True(t, seen.HasScope(constants.ScopeUplink))
				assert.False(t, seen.HasScope(constants.ScopeAdmin))
			}
		})
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	var seen auth.UserClaims
	handler := AuthMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.GetUserClaims(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotNil(t, seen)
	assert.True(t, seen.HasScope(constants.ScopeAdmin))
}

func TestRequireScope(t *testing.T) {
	handler := RequireScope(constants.ScopeAdmin)(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code, "no claims")

	pilot := &auth.TokenClaims{Claims: &common.APIClaims{Scope: constants.ScopeUplink}}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(auth.SetUserClaims(req.Context(), pilot)))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	admin := &auth.TokenClaims{Claims: &common.APIClaims{Scope: "uplink admin"}}
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req.WithContext(auth.SetUserClaims(req.Context(), admin)))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRateLimiter(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	handler := limiter.Middleware(http.HandlerFunc(okHandler))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)

	// another client has its own bucket
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:5000"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	var id string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	handler.ServeHTTP(rr, req)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "abc", rr.Header().Get("X-Request-ID"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, id)
	assert.NotEqual(t, "abc", id)
}

func TestMetricsMiddleware(t *testing.T) {
	reg := metrics.NewMetricsRegistryWith(prometheus.NewRegistry())
	handler := MetricsMiddleware(reg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/uplink/1234/jobs", nil))

	counter := reg.HTTPRequestsTotal.WithLabelValues("/api/v1/uplink/{id}/jobs", http.MethodPost, "202")
	assert.Equal(t, 1.0, testutil.ToFloat64(counter))
}

func TestNormalizeEndpoint(t *testing.T) {
	assert.Equal(t, "/api/v1/uplink/jobs/{id}", NormalizeEndpoint("/api/v1/uplink/jobs/0b9f6f0e-8d0e-4a53-9a5e-0d4c2b8e4f11"))
	assert.Equal(t, "/api/v1/uplink/{id}", NormalizeEndpoint("/api/v1/uplink/412345"))
	assert.Equal(t, "/api/v1/uplink/jdoe", NormalizeEndpoint("/api/v1/uplink/jdoe"))
}
