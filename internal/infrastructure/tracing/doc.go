/*
Package tracing gives each sandbox request a trace and span id so log lines
from the middleware, handlers and backend can be correlated.

Incoming requests continue the trace named by X-Trace-ID, or the client's
X-Request-ID when that is absent; X-Span-ID becomes the parent span. The ids
come back as response headers. Finished spans are logged through zap.

	tracer := tracing.New("onboard-sandbox", logger)
	router.Use(tracing.HTTPMiddleware(tracer))

	// inside a handler
	log.Info("completion recorded", tracing.Fields(c.Request.Context())...)
*/
package tracing
