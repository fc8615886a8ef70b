package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func setupTestRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	return router
}

func serve(router *gin.Engine, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"
	if mutate != nil {
		mutate(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORS(t *testing.T) {
	router := setupTestRouter(CORS(DefaultCORSConfig()))

	tests := []struct {
		name           string
		method         string
		origin         string
		wantStatus     int
		wantCORSHeader bool
	}{
		{
			name:           "simple GET request with origin",
			method:         http.MethodGet,
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusOK,
			wantCORSHeader: true,
		},
		{
			name:           "preflight OPTIONS request",
			method:         http.MethodOptions,
			origin:         "http://localhost:3000",
			wantStatus:     http.StatusNoContent,
			wantCORSHeader: true,
		},
		{
			name:       "no origin header",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, func(r *http.Request) {
				r.Method = tt.method
				if tt.origin != "" {
					r.Header.Set("Origin", tt.origin)
					r.Header.Set("Access-Control-Request-Method", http.MethodPost)
				}
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCORSHeader {
				assert.NotEmpty(t, w.Header().Get("Access-Control-Allow-Origin"))
			} else {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
			}
		})
	}
}

func TestAPIKey(t *testing.T) {
	router := setupTestRouter(APIKey("sk_test"))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer sk_test", http.StatusOK},
		{"scheme is case insensitive", "bearer sk_test", http.StatusOK},
		{"wrong key", "Bearer sk_other", http.StatusUnauthorized},
		{"missing", "", http.StatusUnauthorized},
		{"basic auth", "Basic c2tfdGVzdA==", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, func(r *http.Request) {
				if tt.header != "" {
					r.Header.Set("Authorization", tt.header)
				}
			})
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAPIKeyDisabled(t *testing.T) {
	router := setupTestRouter(APIKey(""))
	assert.Equal(t, http.StatusOK, serve(router, nil).Code)
}

func TestRateLimit(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	// First 2 requests should succeed (burst capacity)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, serve(router, nil).Code, "Request %d should succeed", i+1)
	}

	w := serve(router, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRateLimitDifferentClients(t *testing.T) {
	router := setupTestRouter(RateLimit(RateLimitConfig{RequestsPerSecond: 1, Burst: 1}))

	withIP := func(ip string) func(*http.Request) {
		return func(r *http.Request) { r.RemoteAddr = ip + ":1234" }
	}
	withKey := func(key string) func(*http.Request) {
		return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+key) }
	}

	assert.Equal(t, http.StatusOK, serve(router, withIP("192.168.1.1")).Code)
	assert.Equal(t, http.StatusOK, serve(router, withIP("192.168.1.2")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, withIP("192.168.1.1")).Code)

	// Same IP, but API keys are separate clients
	assert.Equal(t, http.StatusOK, serve(router, withKey("a")).Code)
	assert.Equal(t, http.StatusOK, serve(router, withKey("b")).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, withKey("a")).Code)
}

func TestRateLimitEvictsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	router := setupTestRouter(RateLimit(RateLimitConfig{
		// A zero rate never refills, so only eviction can let the client back in
		RequestsPerSecond: 0,
		Burst:             1,
		IdleTTL:           time.Minute,
		Now:               func() time.Time { return now },
	}))

	assert.Equal(t, http.StatusOK, serve(router, nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(router, nil).Code)

	now = now.Add(2 * time.Minute)
	assert.Equal(t, http.StatusOK, serve(router, nil).Code)
}

func TestGlobalRateLimit(t *testing.T) {
	router := setupTestRouter(GlobalRateLimit(RateLimitConfig{RequestsPerSecond: 2, Burst: 2}))

	for i, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		w := serve(router, func(r *http.Request) { r.RemoteAddr = ip + ":1234" })
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should succeed", i+1)
	}

	w := serve(router, func(r *http.Request) { r.RemoteAddr = "10.0.0.3:1234" })
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func BenchmarkRateLimit(b *testing.B) {
	router := setupTestRouter(RateLimit(DefaultRateLimitConfig()))
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.RemoteAddr = "192.168.1.1:1234"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		router.ServeHTTP(httptest.NewRecorder(), req)
	}
}
