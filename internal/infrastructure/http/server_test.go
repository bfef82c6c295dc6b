package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"exchanges_gateway/internal/config"
	"exchanges_gateway/internal/exchange"
	"exchanges_gateway/internal/infrastructure/health"
	"exchanges_gateway/pkg/logging"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, upstream http.HandlerFunc, apiKeys string) *httptest.Server {
	t.Helper()
	fake := httptest.NewServer(upstream)
	t.Cleanup(fake.Close)
	host := strings.TrimPrefix(fake.URL, "http://")

	cfg := config.DefaultConfig()
	cfg.Server.APIKeys = config.Secret(apiKeys)
	cfg.Huobi.Host = host
	cfg.Huobi.Scheme = "http"
	cfg.KuCoin.Host = host
	cfg.KuCoin.BrokerHost = host
	cfg.KuCoin.Scheme = "http"

	logger := logging.NewNopLogger()
	g, err := exchange.NewGateway(cfg, logger, nil)
	require.NoError(t, err)

	hm := health.NewHealthManager(logger)
	exchange.RegisterHealthChecks(hm, cfg)

	srv := httptest.NewServer(NewServer(g, cfg.Server, hm, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func getJSON(t *testing.T, url string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestHuobiMarketRoute(t *testing.T) {
	var gotPath, gotSymbol string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSymbol = r.URL.Query().Get("symbol")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}, "")

	code, body := getJSON(t, srv.URL+"/huobi/market?symbol=ethusdt", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "/market/detail/merged", gotPath)
	assert.Equal(t, "ethusdt", gotSymbol)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, map[string]any{"status": "ok"}, body["data"])

	_, _ = getJSON(t, srv.URL+"/huobi/market", nil)
	assert.Equal(t, "btcusdt", gotSymbol)
}

func TestHuobiTicketsAlias(t *testing.T) {
	var paths []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[]}`))
	}, "")

	getJSON(t, srv.URL+"/huobi/tickets", nil)
	getJSON(t, srv.URL+"/huobi/tickers", nil)
	assert.Equal(t, []string{"/market/tickers", "/market/tickers"}, paths)
}

func TestUpstreamStatusIsPassedThrough(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"code":"429000"}`))
	}, "")

	code, body := getJSON(t, srv.URL+"/kucoin/mark-price/BTC-USDT", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(429), body["status"])
	assert.Equal(t, false, body["ok"])
}

func TestBusinessErrorMapsToBadGateway(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":"400100","msg":"bad key"}`))
	}, "")

	code, body := getJSON(t, srv.URL+"/kucoin/sub-accounts", nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "400100", body["code"])
	assert.Equal(t, "bad key", body["msg"])
	assert.Equal(t, map[string]any{"code": "400100", "msg": "bad key"}, body["envelope"])
}

func TestInvalidArgumentsMapToBadRequest(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected upstream call %s", r.URL.Path)
	}, "")

	code, _ := getJSON(t, srv.URL+"/kucoin/currencies?timeoutMs=abc", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getJSON(t, srv.URL+"/kucoin/mark-prices", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getJSON(t, srv.URL+"/huobi/signed?params=notjson", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHuobiSignedPreviewRoute(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("preview must not dispatch")
	}, "")

	code, body := getJSON(t, srv.URL+"/huobi/signed?params="+url.QueryEscape(`{"symbol":"ltcusdt"}`), nil)
	require.Equal(t, http.StatusOK, code)
	data := body["data"].(map[string]any)
	assert.Contains(t, data["signedParams"], "symbol=ltcusdt&Signature=")
	assert.NotEmpty(t, data["signature"])
}

func TestAuthentication(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}, "k1, k2")

	code, _ := getJSON(t, srv.URL+"/huobi/tickers", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = getJSON(t, srv.URL+"/huobi/tickers", map[string]string{"x-api-key": "k2"})
	assert.Equal(t, http.StatusOK, code)

	// health stays open
	code, body := getJSON(t, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["healthy"])
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {}, "")
	code, body := getJSON(t, srv.URL+"/binance/market", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Contains(t, body["error"], "/binance/market")
}

func TestRequestArgs(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/x?a=1&list=x,y&list=z&raw=text&empty=&body="+url.QueryEscape(`{"k":1}`), nil)
	args := requestArgs{r: r, vars: map[string]string{"symbol": "BTC"}}

	assert.Equal(t, "BTC", args.String("symbol", "def"))
	assert.Equal(t, "def", args.String("empty", "def"))
	n, err := args.Int("a", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = args.Int("missing", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = args.Int("raw", 0)
	assert.Error(t, err)

	assert.Equal(t, []string{"x", "y", "z"}, args.Strings("list"))
	assert.Equal(t, map[string]any{"k": float64(1)}, args.Body("body"))
	assert.Equal(t, "text", args.Body("raw"))
	assert.Nil(t, args.Body("empty"))
}
