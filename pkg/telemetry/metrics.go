package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names
const (
	MetricUpstreamRequestsTotal = "gateway_upstream_requests_total"
	MetricUpstreamErrorsTotal   = "gateway_upstream_errors_total"
	MetricUpstreamLatency       = "gateway_upstream_request_duration_seconds"
	MetricBusinessErrorsTotal   = "gateway_business_errors_total"
	MetricInboundRequestsTotal  = "gateway_inbound_requests_total"
)

// MetricsHolder holds initialized instruments
type MetricsHolder struct {
	UpstreamRequests metric.Int64Counter
	UpstreamErrors   metric.Int64Counter
	UpstreamLatency  metric.Float64Histogram
	BusinessErrors   metric.Int64Counter
	InboundRequests  metric.Int64Counter
}

var (
	globalMetrics *MetricsHolder
	initOnce      sync.Once
)

// GetGlobalMetrics returns the singleton metrics holder.
// Instruments come from the global meter provider, which delegates to
// whatever provider Setup installs later.
func GetGlobalMetrics() *MetricsHolder {
	initOnce.Do(func() {
		globalMetrics = &MetricsHolder{}
		// The global delegating meter never fails instrument creation
		_ = globalMetrics.InitMetrics(GetMeter("exchanges_gateway"))
	})
	return globalMetrics
}

// InitMetrics initializes instruments using the meter
func (m *MetricsHolder) InitMetrics(meter metric.Meter) error {
	var err error

	m.UpstreamRequests, err = meter.Int64Counter(MetricUpstreamRequestsTotal,
		metric.WithDescription("Total number of exchange REST calls"))
	if err != nil {
		return err
	}

	m.UpstreamErrors, err = meter.Int64Counter(MetricUpstreamErrorsTotal,
		metric.WithDescription("Exchange REST calls that failed at the transport level or returned non-2xx"))
	if err != nil {
		return err
	}

	m.UpstreamLatency, err = meter.Float64Histogram(MetricUpstreamLatency,
		metric.WithDescription("Exchange REST call latency"), metric.WithUnit("s"))
	if err != nil {
		return err
	}

	m.BusinessErrors, err = meter.Int64Counter(MetricBusinessErrorsTotal,
		metric.WithDescription("Business envelopes that reported a failure code"))
	if err != nil {
		return err
	}

	m.InboundRequests, err = meter.Int64Counter(MetricInboundRequestsTotal,
		metric.WithDescription("Gateway operations invoked over HTTP or gRPC"))
	return err
}

// RecordBusinessError counts a rejected business envelope
func (m *MetricsHolder) RecordBusinessError(ctx context.Context, exchange, code string) {
	m.BusinessErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("exchange", exchange),
		attribute.String("code", code),
	))
}

// RecordInbound counts an inbound operation
func (m *MetricsHolder) RecordInbound(ctx context.Context, transport, operation string) {
	m.InboundRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("transport", transport),
		attribute.String("operation", operation),
	))
}
