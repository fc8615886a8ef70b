// Package middleware provides the gin middleware of the sandbox backend.
//
//   - CORS: cross-origin access for browser SDKs
//   - APIKey: bearer token check, 401 on mismatch
//   - RateLimit: per-client token bucket, 429 with Retry-After
//
// Example Usage:
//
//	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
//	v1 := router.Group("/v1", middleware.APIKey(key), middleware.RateLimit(middleware.DefaultRateLimitConfig()))
package middleware
