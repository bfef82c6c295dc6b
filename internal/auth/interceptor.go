// Package auth authenticates inbound gateway callers by API key
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"

	"exchanges_gateway/internal/core"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	// MetadataKeyAPIKey is the metadata key (and HTTP header) carrying the API key
	MetadataKeyAPIKey = "x-api-key"

	// HeaderRequestID is echoed on every HTTP response
	HeaderRequestID = "X-Request-ID"
)

// APIKeyValidator validates inbound API keys. With no keys configured every
// request is let through.
type APIKeyValidator struct {
	validKeys     map[string]bool
	logger        core.ILogger
	failureLogger core.ILogger
	mu            sync.RWMutex
}

// NewAPIKeyValidator creates a validator for apiKeys
func NewAPIKeyValidator(apiKeys []string, logger core.ILogger) *APIKeyValidator {
	validKeys := make(map[string]bool)
	for _, key := range apiKeys {
		if key != "" {
			validKeys[key] = true
		}
	}

	return &APIKeyValidator{
		validKeys:     validKeys,
		logger:        logger.WithField("component", "auth"),
		failureLogger: logger.WithField("component", "auth_failure"),
	}
}

// Enabled reports whether any key is configured
func (v *APIKeyValidator) Enabled() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.validKeys) > 0
}

// AddAPIKey adds a new API key to the validator (for key rotation)
func (v *APIKeyValidator) AddAPIKey(apiKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.validKeys[apiKey] = true
	v.logger.Info("API key added")
}

// RemoveAPIKey removes an API key from the validator (for key rotation)
func (v *APIKeyValidator) RemoveAPIKey(apiKey string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.validKeys, apiKey)
	v.logger.Info("API key removed")
}

// ValidateAPIKey checks if the API key is valid
func (v *APIKeyValidator) ValidateAPIKey(apiKey string) bool {
	if apiKey == "" {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	for key := range v.validKeys {
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
			return true
		}
	}
	return false
}

type requestIDKey struct{}

// WithRequestID stores id in ctx, generating one when id is empty
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		id = uuid.New().String()
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID extracts the request ID from the context
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return "unknown"
}

// getClientIP extracts the client IP address from the context
func getClientIP(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok {
		return p.Addr.String()
	}
	return "unknown"
}

// UnaryServerInterceptor returns a gRPC unary interceptor for API key authentication
func (v *APIKeyValidator) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx = WithRequestID(ctx, "")
		if !v.Enabled() {
			return handler(ctx, req)
		}

		requestID := RequestID(ctx)
		clientIP := getClientIP(ctx)

		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			v.failureLogger.Warn("Authentication failed: missing metadata",
				"method", info.FullMethod,
				"request_id", requestID,
				"client_ip", clientIP)
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		keys := md.Get(MetadataKeyAPIKey)
		if len(keys) == 0 {
			v.failureLogger.Warn("Authentication failed: missing API key",
				"method", info.FullMethod,
				"request_id", requestID,
				"client_ip", clientIP)
			return nil, status.Error(codes.Unauthenticated, "missing API key")
		}

		if !v.ValidateAPIKey(keys[0]) {
			v.failureLogger.Warn("Authentication failed: invalid API key",
				"method", info.FullMethod,
				"request_id", requestID,
				"client_ip", clientIP)
			return nil, status.Error(codes.Unauthenticated, "invalid API key")
		}

		return handler(ctx, req)
	}
}

// HTTPMiddleware assigns a request ID and enforces the x-api-key header.
// Paths in open skip the key check.
func (v *APIKeyValidator) HTTPMiddleware(open ...string) func(http.Handler) http.Handler {
	public := make(map[string]bool, len(open))
	for _, p := range open {
		public[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithRequestID(r.Context(), r.Header.Get(HeaderRequestID))
			requestID := RequestID(ctx)
			w.Header().Set(HeaderRequestID, requestID)

			if v.Enabled() && !public[r.URL.Path] {
				apiKey := r.Header.Get(MetadataKeyAPIKey)
				if !v.ValidateAPIKey(apiKey) {
					reason := "invalid API key"
					if apiKey == "" {
						reason = "missing API key"
					}
					v.failureLogger.Warn("Authentication failed: "+reason,
						"path", r.URL.Path,
						"request_id", requestID,
						"client_ip", r.RemoteAddr)
					http.Error(w, reason, http.StatusUnauthorized)
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
