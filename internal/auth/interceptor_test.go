package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"exchanges_gateway/pkg/logging"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

var testInfo = &grpc.UnaryServerInfo{FullMethod: "/exchanges.ExchangesService/HuobiMarket"}

func okHandler(ctx context.Context, req interface{}) (interface{}, error) {
	return RequestID(ctx), nil
}

func TestAPIKeyValidator_ValidateAPIKey(t *testing.T) {
	validator := NewAPIKeyValidator([]string{"valid-key-1", "valid-key-2", ""}, logging.NewNopLogger())

	tests := []struct {
		name   string
		apiKey string
		want   bool
	}{
		{"valid key 1", "valid-key-1", true},
		{"valid key 2", "valid-key-2", true},
		{"invalid key", "invalid-key", false},
		{"prefix of valid key", "valid-key", false},
		{"empty key", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validator.ValidateAPIKey(tt.apiKey); got != tt.want {
				t.Errorf("ValidateAPIKey() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIKeyValidator_AddRemoveAPIKey(t *testing.T) {
	validator := NewAPIKeyValidator(nil, logging.NewNopLogger())
	if validator.Enabled() {
		t.Fatal("validator without keys should be disabled")
	}

	validator.AddAPIKey("new-key")
	if !validator.Enabled() || !validator.ValidateAPIKey("new-key") {
		t.Error("New key should be valid after adding")
	}

	validator.RemoveAPIKey("new-key")
	if validator.ValidateAPIKey("new-key") {
		t.Error("Key should be invalid after removal")
	}
}

func TestUnaryServerInterceptor(t *testing.T) {
	validator := NewAPIKeyValidator([]string{"valid-key"}, logging.NewNopLogger())
	interceptor := validator.UnaryServerInterceptor()

	tests := []struct {
		name string
		ctx  context.Context
		code codes.Code
	}{
		{"missing metadata", context.Background(), codes.Unauthenticated},
		{"missing api key", metadata.NewIncomingContext(context.Background(), metadata.Pairs("other", "v")), codes.Unauthenticated},
		{"invalid api key", metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataKeyAPIKey, "bad")), codes.Unauthenticated},
		{"valid api key", metadata.NewIncomingContext(context.Background(), metadata.Pairs(MetadataKeyAPIKey, "valid-key")), codes.OK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := interceptor(tt.ctx, nil, testInfo, okHandler)
			if got := status.Code(err); got != tt.code {
				t.Fatalf("code = %v, want %v", got, tt.code)
			}
			if tt.code == codes.OK {
				if id, _ := resp.(string); id == "" || id == "unknown" {
					t.Errorf("handler should see a request id, got %q", id)
				}
			}
		})
	}
}

func TestUnaryServerInterceptor_Disabled(t *testing.T) {
	interceptor := NewAPIKeyValidator(nil, logging.NewNopLogger()).UnaryServerInterceptor()
	if _, err := interceptor(context.Background(), nil, testInfo, okHandler); err != nil {
		t.Fatalf("expected pass-through without keys, got %v", err)
	}
}

func TestHTTPMiddleware(t *testing.T) {
	validator := NewAPIKeyValidator([]string{"valid-key"}, logging.NewNopLogger())
	handler := validator.HTTPMiddleware("/health")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(RequestID(r.Context())))
	}))

	tests := []struct {
		name   string
		path   string
		key    string
		reqID  string
		status int
	}{
		{"missing key", "/huobi/market", "", "", http.StatusUnauthorized},
		{"invalid key", "/huobi/market", "bad", "", http.StatusUnauthorized},
		{"valid key", "/huobi/market", "valid-key", "", http.StatusOK},
		{"open path", "/health", "", "", http.StatusOK},
		{"caller request id", "/health", "", "req-123", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set(MetadataKeyAPIKey, tt.key)
			}
			if tt.reqID != "" {
				req.Header.Set(HeaderRequestID, tt.reqID)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d", rec.Code, tt.status)
			}
			id := rec.Header().Get(HeaderRequestID)
			if id == "" {
				t.Error("response must carry a request id")
			}
			if tt.reqID != "" && id != tt.reqID {
				t.Errorf("request id = %q, want %q", id, tt.reqID)
			}
			if tt.status == http.StatusOK && rec.Body.String() != id {
				t.Errorf("handler saw request id %q, header has %q", rec.Body.String(), id)
			}
		})
	}
}
