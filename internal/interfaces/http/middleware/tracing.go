// Package middleware provides HTTP middleware for the ledger API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds request ids taken from headers
const MaxRequestIDLength = 128

// Header names the webhook sender uses
const (
	WebhookSignatureHeader = "X-Xero-Signature"
	WebhookEventIDHeader   = "X-Xero-Event-Id"
)

// Tracing opens a server span per request via otelgin. When disabled the
// chain runs untraced.
func Tracing(serviceName string, enabled bool) gin.HandlerFunc {
	if !enabled {
		return passThrough
	}
	if serviceName == "" {
		serviceName = "salesos"
	}
	return otelgin.Middleware(serviceName)
}

// AnnotateSpan decorates the server span after the handlers ran: request id,
// operator and webhook delivery id as attributes, error status on 5xx.
// It must run inside Tracing.
func AnnotateSpan() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		attrs := make([]attribute.KeyValue, 0, 4)
		if id := getRequestID(c); id != "" {
			attrs = append(attrs, attribute.String("request_id", id))
		}
		if operator := c.GetString(JWTSubjectKey); operator != "" {
			attrs = append(attrs, attribute.String("operator", operator))
		}
		if delivery := c.GetHeader(WebhookEventIDHeader); delivery != "" && len(delivery) <= MaxRequestIDLength {
			attrs = append(attrs, attribute.String("webhook.event_id", delivery))
		}

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			attrs = append(attrs, attribute.Int("http.status_code", status))
		}
		span.SetAttributes(attrs...)
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// getRequestID prefers the id RequestID stored over the raw header
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	id := c.GetHeader(RequestIDHeader)
	if len(id) > MaxRequestIDLength {
		id = id[:MaxRequestIDLength]
	}
	return id
}
