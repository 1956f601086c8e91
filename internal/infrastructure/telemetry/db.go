package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "telemetry:query_start"

// DBConfig controls query instrumentation
type DBConfig struct {
	Tracing bool
	Metrics bool
	// LogFullSQL keeps bound values in span statements
	LogFullSQL bool
	// SlowQuery marks spans slower than this and logs them at warn
	SlowQuery time.Duration
	DBSystem  string
}

// DBMetrics holds the query histogram and the connection pool gauges
type DBMetrics struct {
	queryDuration *Histogram
	queryErrors   *Counter
	pool          metric.Registration
	log           *zap.Logger
}

// InstrumentGorm registers otelgorm spans, a slow query marker and query
// metrics on db. The returned DBMetrics is nil when metrics are off.
func InstrumentGorm(db *gorm.DB, meter metric.Meter, cfg DBConfig, log *zap.Logger) (*DBMetrics, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = db.Dialector.Name()
	}

	if cfg.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
		if !cfg.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return nil, fmt.Errorf("register otelgorm: %w", err)
		}
	}

	var metrics *DBMetrics
	if cfg.Metrics && meter != nil {
		var err error
		if metrics, err = newDBMetrics(db, meter, log); err != nil {
			return nil, err
		}
	}

	if cfg.Tracing || metrics != nil {
		if err := registerQueryCallbacks(db, cfg.SlowQuery, metrics, log); err != nil {
			return nil, err
		}
	}
	return metrics, nil
}

func newDBMetrics(db *gorm.DB, meter metric.Meter, log *zap.Logger) (*DBMetrics, error) {
	m := &DBMetrics{log: log}
	var err error
	if m.queryDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database statement duration",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if m.queryErrors, err = NewCounter(meter,
		"db_query_errors_total",
		"Database statements that returned an error other than not found",
		"{statements}",
	); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if m.pool, err = registerPoolGauges(meter, sqlDB); err != nil {
		return nil, err
	}
	return m, nil
}

// registerPoolGauges reports sql.DB pool stats at each collection
func registerPoolGauges(meter metric.Meter, sqlDB *sql.DB) (metric.Registration, error) {
	conns, err := meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"),
		metric.WithUnit("{connections}"))
	if err != nil {
		return nil, err
	}
	waits, err := meter.Int64ObservableCounter("db_pool_wait_total",
		metric.WithDescription("Connections waited for"),
		metric.WithUnit("{waits}"))
	if err != nil {
		return nil, err
	}

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBPoolState.String("in_use")))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBPoolState.String("idle")))
		o.ObserveInt64(conns, int64(s.MaxOpenConnections), metric.WithAttributes(AttrDBPoolState.String("max")))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, conns, waits)
}

// Stop unregisters the pool gauges
func (m *DBMetrics) Stop() {
	if m == nil || m.pool == nil {
		return
	}
	if err := m.pool.Unregister(); err != nil {
		m.log.Warn("Failed to unregister pool gauges", zap.Error(err))
	}
}

func (m *DBMetrics) record(ctx context.Context, op, table string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrDBOperation.String(op), AttrDBTable.String(table)}
	m.queryDuration.RecordDuration(ctx, elapsed, attrs...)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		m.queryErrors.Inc(ctx, attrs...)
	}
}

func registerQueryCallbacks(db *gorm.DB, slow time.Duration, metrics *DBMetrics, log *zap.Logger) error {
	before := func(tx *gorm.DB) { tx.InstanceSet(queryStartKey, time.Now()) }
	after := func(op string) func(*gorm.DB) {
		return func(tx *gorm.DB) { afterQuery(tx, op, slow, metrics, log) }
	}

	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("telemetry:before_create", before),
		cb.Create().After("gorm:create").Register("telemetry:after_create", after("create")),
		cb.Query().Before("gorm:query").Register("telemetry:before_query", before),
		cb.Query().After("gorm:query").Register("telemetry:after_query", after("query")),
		cb.Update().Before("gorm:update").Register("telemetry:before_update", before),
		cb.Update().After("gorm:update").Register("telemetry:after_update", after("update")),
		cb.Delete().Before("gorm:delete").Register("telemetry:before_delete", before),
		cb.Delete().After("gorm:delete").Register("telemetry:after_delete", after("delete")),
		cb.Row().Before("gorm:row").Register("telemetry:before_row", before),
		cb.Row().After("gorm:row").Register("telemetry:after_row", after("row")),
		cb.Raw().Before("gorm:raw").Register("telemetry:before_raw", before),
		cb.Raw().After("gorm:raw").Register("telemetry:after_raw", after("raw")),
	)
}

func afterQuery(tx *gorm.DB, op string, slow time.Duration, metrics *DBMetrics, log *zap.Logger) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	ctx := tx.Statement.Context
	table := tx.Statement.Table

	metrics.record(ctx, op, table, elapsed, tx.Error)

	if slow <= 0 || elapsed < slow {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
	}
	log.Warn("Slow database statement",
		zap.String("operation", op),
		zap.String("table", table),
		zap.Duration("elapsed", elapsed),
		zap.Duration("threshold", slow),
	)
}
