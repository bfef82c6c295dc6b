package exchange

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"exchanges_gateway/internal/config"
	"exchanges_gateway/pkg/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

// fakeExchange answers for both exchanges on one local host
func fakeExchange(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/market/detail/merged":
			_, _ = w.Write([]byte(`{"status":"ok","ch":"market.` + r.URL.Query().Get("symbol") + `.detail.merged"}`))
		case r.URL.Path == "/api/v3/currencies":
			_, _ = w.Write([]byte(`{"code":"400100","msg":"invalid key"}`))
		case strings.HasPrefix(r.URL.Path, "/api/v1/mark-price/"):
			_, _ = w.Write([]byte(`{"code":"200000","data":{"value":1.5}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"code":"404"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestGateway(t *testing.T, upstream *httptest.Server) *Gateway {
	t.Helper()
	host := strings.TrimPrefix(upstream.URL, "http://")

	cfg := config.DefaultConfig()
	cfg.Huobi.Host = host
	cfg.Huobi.Scheme = "http"
	cfg.KuCoin.Host = host
	cfg.KuCoin.BrokerHost = host
	cfg.KuCoin.Scheme = "http"

	g, err := NewGateway(cfg, logging.NewNopLogger(), nil)
	require.NoError(t, err)
	return g
}

func startServer(t *testing.T, g *Gateway, apiKeys []string) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	s := NewGatewayServer(g, "bufnet", apiKeys, logging.NewNopLogger())
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough://bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func invoke(ctx context.Context, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+ServiceName+"/"+method, req, out)
	return out, err
}

func TestServiceDescListsEveryOperation(t *testing.T) {
	assert.Len(t, ServiceDesc.Methods, len(OperationNames()))
	for _, m := range ServiceDesc.Methods {
		_, ok := LookupOperation(m.MethodName)
		assert.True(t, ok, m.MethodName)
	}
}

func TestGRPCHuobiMarket(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := invoke(ctx, conn, OpHuobiMarket, map[string]any{"symbol": "ethusdt"})
	require.NoError(t, err)

	res := out.AsMap()
	assert.Equal(t, float64(200), res["status"])
	assert.Equal(t, true, res["ok"])
	assert.Equal(t, "market.ethusdt.detail.merged", res["data"].(map[string]any)["ch"])
}

func TestGRPCHuobiSignedPreview(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), nil)

	out, err := invoke(context.Background(), conn, OpHuobiSigned, map[string]any{
		"params": map[string]any{"symbol": "btcusdt", "size": float64(5)},
	})
	require.NoError(t, err)

	data := out.AsMap()["data"].(map[string]any)
	assert.Equal(t, "GET", data["method"])
	assert.Equal(t, "/market/detail/merged", data["path"])
	assert.Contains(t, data["signedParams"], "size=5&symbol=btcusdt&Signature=")
}

func TestGRPCBusinessErrorCarriesDetails(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), nil)

	_, err := invoke(context.Background(), conn, OpKucoinCurrencies, map[string]any{})
	require.Error(t, err)

	st := status.Convert(err)
	assert.Equal(t, codes.FailedPrecondition, st.Code())
	require.Len(t, st.Details(), 1)
	info, ok := st.Details()[0].(*errdetails.ErrorInfo)
	require.True(t, ok)
	assert.Equal(t, "400100", info.GetMetadata()["code"])
	assert.Equal(t, "invalid key", info.GetMetadata()["msg"])
	assert.JSONEq(t, `{"code":"400100","msg":"invalid key"}`, info.GetMetadata()["envelope"])
}

func TestGRPCInvalidArguments(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), nil)

	_, err := invoke(context.Background(), conn, OpKucoinMarkPrices, map[string]any{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(context.Background(), conn, OpKucoinMarkPrice, map[string]any{"symbol": "BTC", "timeoutMs": "soon"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = invoke(context.Background(), conn, OpKucoinSubAccounts, map[string]any{"pageSize": float64(-1)})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCMarkPrices(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), nil)

	out, err := invoke(context.Background(), conn, OpKucoinMarkPrices, map[string]any{
		"symbols": []any{"BTC-USDT", "ETH-USDT"},
	})
	require.NoError(t, err)

	prices := out.AsMap()["data"].(map[string]any)["prices"].([]any)
	require.Len(t, prices, 2)
	assert.Equal(t, "BTC-USDT", prices[0].(map[string]any)["symbol"])
	assert.Equal(t, "ETH-USDT", prices[1].(map[string]any)["symbol"])
}

func TestGRPCUnavailableUpstream(t *testing.T) {
	upstream := fakeExchange(t)
	g := newTestGateway(t, upstream)
	upstream.Close()

	conn := startServer(t, g, nil)
	_, err := invoke(context.Background(), conn, OpHuobiTickers, map[string]any{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestGRPCAuthentication(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), []string{"secret-key"})

	_, err := invoke(context.Background(), conn, OpHuobiMarket, map[string]any{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "wrong")
	_, err = invoke(ctx, conn, OpHuobiMarket, map[string]any{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx = metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "secret-key")
	_, err = invoke(ctx, conn, OpHuobiMarket, map[string]any{})
	assert.NoError(t, err)
}

func TestGRPCHealth(t *testing.T) {
	conn := startServer(t, newTestGateway(t, fakeExchange(t)), nil)

	resp, err := grpc_health_v1.NewHealthClient(conn).Check(context.Background(),
		&grpc_health_v1.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestMapError(t *testing.T) {
	s := &GatewayServer{}
	assert.Nil(t, s.mapError(nil))
	assert.Equal(t, codes.DeadlineExceeded, status.Code(s.mapError(context.DeadlineExceeded)))
	assert.Equal(t, codes.Unknown, status.Code(s.mapError(assert.AnError)))

	already := status.Error(codes.NotFound, "x")
	assert.Equal(t, already, s.mapError(already))
}
