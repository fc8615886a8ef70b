/*
Package monitoring provides Prometheus metrics for the onboarding SDK and its
dev server.

# Overview

Metrics are registered on an injected registry rather than the global one,
so several sessions (or tests) can each own a Metrics value without
duplicate-registration panics. A nil *Metrics records nothing.

# Metrics

- Backend calls (operation, outcome, latency)
- Resolutions by source (network, cache) and outcome
- Session state transitions
- Cache hits, misses and swallowed write failures
- Analytics events sent, dropped and failed
- Decoder degradations per placement
- Dev server HTTP requests and variant assignments

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", metrics.Handler())

	timer := monitoring.NewTimer(metrics, "resolve")
	// ... call the backend ...
	timer.Stop("success")
*/
package monitoring
