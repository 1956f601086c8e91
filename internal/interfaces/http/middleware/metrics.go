package middleware

import (
	"strconv"
	"time"

	"github.com/club19/salesos/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// requestSizeBuckets covers bodies from a ping up to a full webhook batch
var requestSizeBuckets = []float64{256, 1 << 10, 4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20}

var attrStatusClass = attribute.Key("http.status_class")

type requestMetrics struct {
	served   *telemetry.Counter
	latency  *telemetry.Histogram
	bodySize *telemetry.Histogram
	inFlight metric.Int64UpDownCounter
}

func newRequestMetrics(meter metric.Meter) (*requestMetrics, error) {
	var (
		m   requestMetrics
		err error
	)
	if m.served, err = telemetry.NewCounter(meter, "http_server_request_total",
		"HTTP requests served", "{request}"); err != nil {
		return nil, err
	}
	if m.latency, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_duration_seconds",
		Description: "HTTP request latency",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.bodySize, err = telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_server_request_size_bytes",
		Description: "HTTP request body size",
		Unit:        "By",
		Boundaries:  requestSizeBuckets,
	}); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http_server_active_requests",
		metric.WithDescription("HTTP requests in flight"),
		metric.WithUnit("{request}")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *requestMetrics) handle(c *gin.Context) {
	ctx := c.Request.Context()
	started := time.Now()
	m.inFlight.Add(ctx, 1)
	defer m.inFlight.Add(ctx, -1)

	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(c.Request.Method),
		telemetry.AttrHTTPRoute.String(route),
	}
	m.served.Inc(ctx, append(attrs,
		telemetry.AttrHTTPStatusCode.Int(status),
		attrStatusClass.String(statusClass(status)),
	)...)
	m.latency.RecordDuration(ctx, time.Since(started), attrs...)
	if n := c.Request.ContentLength; n > 0 {
		m.bodySize.Record(ctx, float64(n), attrs...)
	}
}

// HTTPMetrics records request count, latency, body size and in-flight
// requests per route pattern. A nil or disabled provider yields a no-op.
func HTTPMetrics(mp *telemetry.MeterProvider) gin.HandlerFunc {
	if !mp.IsEnabled() {
		return passThrough
	}
	return HTTPMetricsWithMeter(mp.Meter("salesos.http"))
}

// HTTPMetricsWithMeter is HTTPMetrics against an existing meter
func HTTPMetricsWithMeter(meter metric.Meter) gin.HandlerFunc {
	if meter == nil {
		return passThrough
	}
	m, err := newRequestMetrics(meter)
	if err != nil {
		return passThrough
	}
	return m.handle
}

func passThrough(c *gin.Context) {
	c.Next()
}

// statusClass folds a status code into 2xx..5xx
func statusClass(code int) string {
	if code < 200 || code > 599 {
		return "other"
	}
	return strconv.Itoa(code/100) + "xx"
}
