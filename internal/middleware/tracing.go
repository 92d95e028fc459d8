package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/streamop/switchwatch/internal/tracing"
)

// Tracing middleware opens a span per request. With no tracer configured
// the global noop tracer makes this free.
func Tracing() gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := tracing.StartSpan(c.Request.Context(), c.Request.Method+" "+c.FullPath())
		defer tracing.FinishSpan(span)

		tracing.SetTag(span, "http.method", c.Request.Method)
		tracing.SetTag(span, "http.url", c.Request.URL.Path)

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		tracing.SetTag(span, "http.status_code", c.Writer.Status())
	}
}
