package telemetry

import (
	"context"
	"errors"

	"github.com/club19/salesos/internal/infrastructure/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

// Providers groups the OpenTelemetry providers a process owns
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
	cfg    config.TelemetryConfig
}

// Setup creates the tracer, meter and log providers from configuration.
// With telemetry disabled every provider is a no-op.
func Setup(ctx context.Context, cfg config.TelemetryConfig, log *zap.Logger) (*Providers, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pcfg := Config{
		Enabled:           cfg.Enabled,
		CollectorEndpoint: cfg.CollectorEndpoint,
		ServiceName:       cfg.ServiceName,
		Insecure:          cfg.Insecure,
		SamplingRatio:     cfg.SamplingRatio,
	}

	p := &Providers{cfg: cfg}
	var err error
	if p.Tracer, err = NewTracerProvider(ctx, pcfg, log); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, pcfg, log); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if p.Logs, err = NewLoggerProvider(ctx, pcfg, log); err != nil {
		_ = p.Shutdown(ctx)
		return nil, err
	}
	if !cfg.Enabled {
		log.Info("Telemetry disabled")
	}
	return p, nil
}

// BridgeLogger tees log into the OTLP log exporter when it is enabled
func (p *Providers) BridgeLogger(log *zap.Logger) *zap.Logger {
	if p == nil || !p.Logs.IsEnabled() {
		return log
	}
	core := zapcore.NewTee(log.Core(), p.Logs.Core(zapcore.InfoLevel))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

// InstrumentDB registers query tracing and metrics on the gorm handle. The
// returned DBMetrics is nil when metrics are off.
func (p *Providers) InstrumentDB(_ context.Context, db *gorm.DB, log *zap.Logger) (*DBMetrics, error) {
	return InstrumentGorm(db, p.Meter.Meter("salesos.db"), DBConfig{
		Tracing:    p.cfg.Enabled && p.cfg.DBTraceEnabled,
		Metrics:    p.Meter.IsEnabled(),
		LogFullSQL: p.cfg.DBLogFullSQL,
		SlowQuery:  p.cfg.DBSlowQueryThresh,
	}, log)
}

// Shutdown flushes and stops every provider
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return errors.Join(
		p.Logs.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
	)
}
