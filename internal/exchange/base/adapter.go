// Package base provides functionality shared by the exchange adapters:
// the HMAC primitive, response normalization and dispatch glue.
package base

import (
	"context"
	"errors"
	"net"
	"time"

	"exchanges_gateway/internal/core"
	apperrors "exchanges_gateway/pkg/errors"
	gwhttp "exchanges_gateway/pkg/http"
	"exchanges_gateway/pkg/telemetry"
)

// DefaultTimeout applies to the operations that accept a per-call timeout
const DefaultTimeout = 15 * time.Second

// BaseAdapter composes observer -> dispatcher -> normalizer for one exchange
type BaseAdapter struct {
	Name       string
	Logger     core.ILogger
	Dispatcher *gwhttp.Dispatcher
	Observer   core.Observer

	// Now is the clock used to stamp request descriptors
	Now func() time.Time
}

// NewBaseAdapter creates a base adapter. A nil observer disables signed-request observation.
func NewBaseAdapter(name string, logger core.ILogger, dispatcher *gwhttp.Dispatcher, observer core.Observer) *BaseAdapter {
	if dispatcher == nil {
		dispatcher = gwhttp.NewDispatcher(nil)
	}
	if observer == nil {
		observer = core.NopObserver{}
	}
	return &BaseAdapter{
		Name:       name,
		Logger:     logger.WithField("exchange", name),
		Dispatcher: dispatcher,
		Observer:   observer,
		Now:        time.Now,
	}
}

// GetName returns the exchange name
func (b *BaseAdapter) GetName() string {
	return b.Name
}

// Do dispatches a signed request and normalizes the response.
// Only transport failures are returned as errors.
func (b *BaseAdapter) Do(ctx context.Context, signed *core.SignedRequest, timeout time.Duration) (*core.Result, error) {
	b.Observer.OnSigned(ctx, signed)

	raw, err := b.Dispatcher.Execute(ctx, signed.Method, signed.URL, signed.Headers, signed.Body, timeout)
	if err != nil {
		b.Logger.Warn("exchange call failed", "method", signed.Method, "path", signed.Path, "error", err)
		return nil, err
	}

	return Normalize(raw), nil
}

// DoEnvelope dispatches like Do and then requires a successful business envelope.
func (b *BaseAdapter) DoEnvelope(ctx context.Context, signed *core.SignedRequest, timeout time.Duration, successCode string) (*core.Result, *Envelope, error) {
	res, err := b.Do(ctx, signed, timeout)
	if err != nil {
		return nil, nil, err
	}

	env, err := DecodeEnvelope(res, successCode)
	if err != nil {
		var be *apperrors.BusinessError
		if errors.As(err, &be) {
			telemetry.GetGlobalMetrics().RecordBusinessError(ctx, b.Name, be.Code)
		}
		b.Logger.Warn("business envelope rejected", "path", signed.Path, "status", res.Status, "error", err)
		return res, nil, err
	}
	return res, env, nil
}

// TimeoutOrDefault returns d, or DefaultTimeout when d is not positive
func TimeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultTimeout
	}
	return d
}

// IsLocalHost reports whether host (optionally with a port) is a loopback
// name. Only loopback hosts may be reached over plain http.
func IsLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
