package tracing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/onboard/internal/shared/id"
)

// Propagation headers. SDK clients send a fresh X-Request-ID per call,
// which starts a trace when no X-Trace-ID is present.
const (
	HeaderTraceID   = "X-Trace-ID"
	HeaderSpanID    = "X-Span-ID"
	HeaderRequestID = "X-Request-ID"

	maxIDLength = 128
)

// TraceID identifies a trace
type TraceID string

// SpanID identifies one operation within a trace
type SpanID string

// Span is a single timed operation
type Span struct {
	TraceID    TraceID
	SpanID     SpanID
	ParentID   SpanID
	Name       string
	StartTime  time.Time
	Duration   time.Duration
	Tags       map[string]string
	Error      error
	StatusCode int
}

// Tracer starts spans and logs them when they finish
type Tracer struct {
	service string
	logger  *zap.Logger
	ids     *id.Generator
	now     func() time.Time
}

// New creates a tracer. A nil logger discards spans.
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{
		service: service,
		logger:  logger.Named("trace"),
		ids:     id.Default(),
		now:     time.Now,
	}
}

// StartSpan opens a span, continuing the trace carried by ctx if any
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		traceID = TraceID(t.ids.Generate().String())
	}
	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(t.ids.Generate().String()),
		ParentID:  GetSpanID(ctx),
		Name:      name,
		StartTime: t.now(),
		Tags:      make(map[string]string),
	}
	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error
func (s *Span) SetError(err error) {
	s.Error = err
}

// Finish closes the span and logs it. Server errors log at error, client
// errors at warn, everything else at debug.
func (t *Tracer) Finish(s *Span) {
	s.Duration = t.now().Sub(s.StartTime)

	fields := []zap.Field{
		zap.String("trace_id", string(s.TraceID)),
		zap.String("span_id", string(s.SpanID)),
		zap.String("operation", s.Name),
		zap.Duration("duration", s.Duration),
		zap.String("service", t.service),
	}
	if s.ParentID != "" {
		fields = append(fields, zap.String("parent_id", string(s.ParentID)))
	}
	if s.StatusCode != 0 {
		fields = append(fields, zap.Int("status", s.StatusCode))
	}
	for k, v := range s.Tags {
		fields = append(fields, zap.String(k, v))
	}

	switch {
	case s.Error != nil || s.StatusCode >= 500:
		if s.Error != nil {
			fields = append(fields, zap.Error(s.Error))
		}
		t.logger.Error("span completed with error", fields...)
	case s.StatusCode >= 400:
		t.logger.Warn("span completed", fields...)
	default:
		t.logger.Debug("span completed", fields...)
	}
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithTrace seeds ctx with a trace and parent span, ignoring unusable ids
func WithTrace(ctx context.Context, traceID TraceID, parent SpanID) context.Context {
	if validID(string(traceID)) {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if validID(string(parent)) {
		ctx = context.WithValue(ctx, spanIDKey, parent)
	}
	return ctx
}

// GetTraceID returns the trace id carried by ctx
func GetTraceID(ctx context.Context) TraceID {
	traceID, _ := ctx.Value(traceIDKey).(TraceID)
	return traceID
}

// GetSpanID returns the current span id carried by ctx
func GetSpanID(ctx context.Context) SpanID {
	spanID, _ := ctx.Value(spanIDKey).(SpanID)
	return spanID
}

// Fields returns the trace fields for log lines written under ctx
func Fields(ctx context.Context) []zap.Field {
	traceID := GetTraceID(ctx)
	if traceID == "" {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", string(traceID)),
		zap.String("span_id", string(GetSpanID(ctx))),
	}
}

// validID accepts non-empty printable ASCII up to maxIDLength
func validID(s string) bool {
	if s == "" || len(s) > maxIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x21 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
