package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"garage-assistant/internal/common/logger"
)

// Observability exposes OpenTelemetry instruments through the Prometheus registry.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	answerCounter  otelmetric.Int64Counter
	answerDuration otelmetric.Float64Histogram
	evidenceCount  otelmetric.Int64Histogram
}

func New(serviceName string, log logger.Logger) *Observability {
	if log == nil {
		log = logger.NewNoOpLogger()
	}

	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err.Error()})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	answerCounter, _ := meter.Int64Counter(
		"answers.produced",
		otelmetric.WithDescription("Number of answers produced"),
	)

	answerDuration, _ := meter.Float64Histogram(
		"answers.duration",
		otelmetric.WithDescription("Answer latency"),
		otelmetric.WithUnit("ms"),
	)

	evidenceCount, _ := meter.Int64Histogram(
		"answers.evidence",
		otelmetric.WithDescription("Evidence items gathered per answer"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		answerCounter:  answerCounter,
		answerDuration: answerDuration,
		evidenceCount:  evidenceCount,
	}
}

// RecordAnswer records one produced answer. A zero Observability is a no-op.
func (o *Observability) RecordAnswer(ctx context.Context, strategy, provenance string, duration time.Duration, evidence int) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("strategy", strategy),
		attribute.String("provenance", provenance),
	)
	if o.answerCounter != nil {
		o.answerCounter.Add(ctx, 1, attrs)
	}
	if o.answerDuration != nil {
		o.answerDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
	if o.evidenceCount != nil {
		o.evidenceCount.Record(ctx, int64(evidence), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o != nil && o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
