package tracing

import (
	"github.com/gin-gonic/gin"
)

// HTTPMiddleware traces each request. The trace continues an incoming
// X-Trace-ID, else the client's X-Request-ID, else starts fresh. Ids are
// echoed in the response headers.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := TraceID(c.GetHeader(HeaderTraceID))
		if traceID == "" {
			traceID = TraceID(c.GetHeader(HeaderRequestID))
		}
		ctx := WithTrace(c.Request.Context(), traceID, SpanID(c.GetHeader(HeaderSpanID)))

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, c.Request.Method+" "+name)
		if p := c.Param("name"); p != "" {
			span.SetTag("placement", p)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Header(HeaderTraceID, string(span.TraceID))
		c.Header(HeaderSpanID, string(span.SpanID))

		c.Next()

		span.StatusCode = c.Writer.Status()
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		tracer.Finish(span)
	}
}
