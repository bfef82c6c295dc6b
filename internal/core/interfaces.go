// Package core defines the core interfaces for the exchanges gateway
package core

import "context"

// ILogger defines the interface for logging
type ILogger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) ILogger
	WithFields(fields map[string]interface{}) ILogger
}

// Signer turns a request descriptor into a fully signed request.
// Implementations are exchange specific and must not perform I/O.
type Signer interface {
	Sign(desc RequestDescriptor) *SignedRequest
}

// Observer receives every signed request right before it is dispatched.
type Observer interface {
	OnSigned(ctx context.Context, req *SignedRequest)
}

// NopObserver discards everything
type NopObserver struct{}

// OnSigned implements Observer
func (NopObserver) OnSigned(context.Context, *SignedRequest) {}

// IHealthMonitor reports component health
type IHealthMonitor interface {
	Register(component string, check func() error)
	GetStatus() map[string]string
	IsHealthy() bool
}
