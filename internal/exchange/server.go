package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"exchanges_gateway/internal/auth"
	"exchanges_gateway/internal/core"
	apperrors "exchanges_gateway/pkg/errors"
	"exchanges_gateway/pkg/pbu"
	"exchanges_gateway/pkg/telemetry"

	"github.com/goccy/go-json"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "exchanges.ExchangesService"

// ErrorDomain is the errdetails.ErrorInfo domain for upstream business errors
const ErrorDomain = "exchanges-gateway"

// ExchangesServiceServer is the handler type of ServiceDesc. Every method
// takes and returns a google.protobuf.Struct.
type ExchangesServiceServer interface {
	Invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error)
}

// serviceMethods are the RPC method names, in registration order
var serviceMethods = []string{
	OpHuobiSigned,
	OpHuobiMarket,
	OpHuobiMarketDepth,
	OpHuobiTickers,
	OpHuobiSymbolsSettings,
	OpHuobiChainsSettings,
	OpKucoinBrokerInfo,
	OpKucoinAccounts,
	OpKucoinCurrencies,
	OpKucoinSubAccounts,
	OpKucoinMarkPrice,
	OpKucoinMarkPrices,
	OpKucoinPrices,
}

// ServiceDesc describes exchanges.ExchangesService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExchangesServiceServer)(nil),
	Methods:     methodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    "exchanges.proto",
}

func methodDescs() []grpc.MethodDesc {
	descs := make([]grpc.MethodDesc, 0, len(serviceMethods))
	for _, name := range serviceMethods {
		descs = append(descs, unaryHandler(name))
	}
	return descs
}

func unaryHandler(name string) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return srv.(ExchangesServiceServer).Invoke(ctx, name, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			return interceptor(ctx, in, &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}, handler)
		},
	}
}

// GatewayServer serves the gateway operations over gRPC
type GatewayServer struct {
	gateway       *Gateway
	logger        core.ILogger
	authValidator *auth.APIKeyValidator
	addr          string
	server        *grpc.Server
}

// NewGatewayServer creates the gRPC server. An empty key list disables authentication.
func NewGatewayServer(gateway *Gateway, addr string, apiKeys []string, logger core.ILogger) *GatewayServer {
	s := &GatewayServer{
		gateway:       gateway,
		logger:        logger.WithField("component", "grpc_server"),
		authValidator: auth.NewAPIKeyValidator(apiKeys, logger),
		addr:          addr,
	}

	s.server = grpc.NewServer(grpc.ChainUnaryInterceptor(s.authValidator.UnaryServerInterceptor()))
	s.server.RegisterService(&ServiceDesc, s)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.server, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	if s.authValidator.Enabled() {
		s.logger.Info("API key authentication enabled")
	} else {
		s.logger.Warn("API key authentication disabled")
	}
	return s
}

// Invoke implements ExchangesServiceServer
func (s *GatewayServer) Invoke(ctx context.Context, method string, in *structpb.Struct) (*structpb.Struct, error) {
	op, ok := LookupOperation(method)
	if !ok {
		return nil, status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	telemetry.GetGlobalMetrics().RecordInbound(ctx, "grpc", method)

	res, err := op(ctx, s.gateway, structArgs{in})
	if err != nil {
		s.logger.Warn("Operation failed", "method", method, "request_id", auth.RequestID(ctx), "error", err)
		return nil, s.mapError(err)
	}

	out, err := pbu.ResultToStruct(res)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode result: %v", err))
	}
	return out, nil
}

func (s *GatewayServer) mapError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	var be *apperrors.BusinessError
	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.As(err, &be):
		return businessStatus(be)
	case errors.Is(err, apperrors.ErrNetwork), errors.Is(err, apperrors.ErrEmptyResponse):
		return status.Error(codes.Unavailable, err.Error())
	}

	return status.Error(codes.Unknown, err.Error())
}

func businessStatus(be *apperrors.BusinessError) error {
	st := status.New(codes.FailedPrecondition, be.Error())
	metadata := map[string]string{
		"code":   be.Code,
		"msg":    be.Msg,
		"status": strconv.Itoa(be.Status),
	}
	if envelope, err := json.Marshal(be.Envelope); err == nil {
		metadata["envelope"] = string(envelope)
	}
	detailed, err := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   "UPSTREAM_BUSINESS_ERROR",
		Domain:   ErrorDomain,
		Metadata: metadata,
	})
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}

// Serve accepts connections on lis until Stop is called
func (s *GatewayServer) Serve(lis net.Listener) error {
	s.logger.Info("Gateway gRPC server serving", "addr", lis.Addr().String())
	return s.server.Serve(lis)
}

// Stop drains in-flight calls and stops the server
func (s *GatewayServer) Stop() {
	s.server.GracefulStop()
}

// Run listens on the configured address and serves until ctx is canceled
func (s *GatewayServer) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("Stopping gRPC server")
		s.Stop()
		return nil
	}
}

// structArgs reads operation arguments from a request Struct
type structArgs struct {
	s *structpb.Struct
}

func (a structArgs) String(key, def string) string        { return pbu.String(a.s, key, def) }
func (a structArgs) Int(key string, def int) (int, error) { return pbu.Int(a.s, key, def) }
func (a structArgs) Strings(key string) []string          { return pbu.Strings(a.s, key) }
func (a structArgs) Body(key string) any                  { return pbu.Body(a.s, key) }
