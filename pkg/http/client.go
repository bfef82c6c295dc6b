// Package http provides the single-shot HTTP dispatcher used for exchange calls
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exchanges_gateway/internal/core"
	apperrors "exchanges_gateway/pkg/errors"
	"exchanges_gateway/pkg/telemetry"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/timeout"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Dispatcher executes fully assembled requests. It never retries and never
// treats an HTTP status as a failure; only transport problems are errors.
type Dispatcher struct {
	client  *http.Client
	tracer  trace.Tracer
	metrics *telemetry.MetricsHolder
}

// NewDispatcher wraps client. A nil client gets a pooled transport with no
// overall timeout; per-call timeouts are passed to Execute.
func NewDispatcher(client *http.Client) *Dispatcher {
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Dispatcher{
		client:  client,
		tracer:  telemetry.GetTracer("exchange-dispatcher"),
		metrics: telemetry.GetGlobalMetrics(),
	}
}

// Execute performs exactly one call. The body is attached only for methods
// other than GET and DELETE. A positive limit bounds the whole call.
func (d *Dispatcher) Execute(ctx context.Context, method, rawURL string, headers map[string]string, body string, limit time.Duration) (*core.RawResponse, error) {
	method = strings.ToUpper(method)

	call := func(callCtx context.Context) (*core.RawResponse, error) {
		return d.do(callCtx, method, rawURL, headers, body)
	}

	if limit <= 0 {
		return call(ctx)
	}

	resp, err := failsafe.With[*core.RawResponse](timeout.New[*core.RawResponse](limit)).
		WithContext(ctx).
		GetWithExecution(func(exec failsafe.Execution[*core.RawResponse]) (*core.RawResponse, error) {
			return call(exec.Context())
		})
	if err != nil && errors.Is(err, timeout.ErrExceeded) {
		return nil, &apperrors.TransportError{
			Method: method,
			URL:    rawURL,
			Err:    fmt.Errorf("%w after %s", apperrors.ErrTimeout, limit),
		}
	}
	return resp, err
}

func (d *Dispatcher) do(ctx context.Context, method, rawURL string, headers map[string]string, body string) (*core.RawResponse, error) {
	start := time.Now()

	var reader io.Reader
	if body != "" && method != http.MethodGet && method != http.MethodDelete {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("%s %s", method, req.URL.Path),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.host", req.URL.Host),
			attribute.String("http.path", req.URL.Path),
		),
	)
	defer span.End()
	req = req.WithContext(ctx)

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("host", req.URL.Host),
		attribute.String("path", req.URL.Path),
	)
	d.metrics.UpstreamRequests.Add(ctx, 1, attrs)

	resp, err := d.client.Do(req)
	d.metrics.UpstreamLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		d.metrics.UpstreamErrors.Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("error", "transport")))
		if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, err)
		}
		return nil, &apperrors.TransportError{Method: method, URL: req.URL.Redacted(), Err: err}
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, &apperrors.TransportError{Method: method, URL: req.URL.Redacted(), Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		d.metrics.UpstreamErrors.Add(ctx, 1, attrs, metric.WithAttributes(attribute.Int("status", resp.StatusCode)))
	}

	return &core.RawResponse{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        respBody,
	}, nil
}
