package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	appctx "paydocs/internal/core/context"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderTraceID   = "X-Trace-ID"
)

var tracer = otel.Tracer("paydocs/http")

// Trace opens a span per request and puts request and trace IDs into the
// context and the response headers. A trace ID sent by the caller wins over
// the span's.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), c.Request.Method+" "+c.FullPath(),
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		tc := &appctx.TraceContext{RequestID: requestID}
		if sc := span.SpanContext(); sc.IsValid() {
			tc.TraceID, tc.SpanID = sc.TraceID().String(), sc.SpanID().String()
		} else {
			tc.TraceID, tc.SpanID = uuid.New().String(), uuid.New().String()[:16]
		}
		if h := c.GetHeader(HeaderTraceID); h != "" {
			tc.TraceID = h
		}

		c.Request = c.Request.WithContext(appctx.WithTrace(ctx, tc))
		c.Set("trace_id", tc.TraceID)
		c.Set("request_id", requestID)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, tc.TraceID)

		c.Next()

		span.SetAttributes(
			attribute.String("http.request_id", requestID),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
	}
}
