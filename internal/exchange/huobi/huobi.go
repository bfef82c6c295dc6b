// Package huobi provides the Huobi signed REST adapter
package huobi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"exchanges_gateway/internal/config"
	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/base"
	gwhttp "exchanges_gateway/pkg/http"
)

const (
	pathMarketMerged = "/market/detail/merged"
	pathMarketDepth  = "/market/depth"
	pathTickers      = "/market/tickers"
	pathSymbols      = "/v1/common/symbols"
	pathCurrencies   = "/v2/reference/currencies"

	defaultDepthType = "step0"
	defaultCurrency  = "usdt"
)

// HuobiExchange exposes the Huobi operations
type HuobiExchange struct {
	*base.BaseAdapter
	signer *Signer
	host   string
	scheme string
}

// Preview is a signed request that was built but not dispatched
type Preview struct {
	*core.SignedRequest
	SignedParams string `json:"signedParams"`
}

// NewHuobiExchange creates a Huobi adapter
func NewHuobiExchange(cfg *config.HuobiConfig, logger core.ILogger, dispatcher *gwhttp.Dispatcher, observer core.Observer) (*HuobiExchange, error) {
	host := normalizeHost(cfg.Host)
	scheme := schemeOf(cfg.Scheme)
	if scheme != "https" && !base.IsLocalHost(host) {
		// Allow http for local testing
		return nil, fmt.Errorf("huobi host must be reached over https: %s://%s", scheme, host)
	}

	return &HuobiExchange{
		BaseAdapter: base.NewBaseAdapter("huobi", logger, dispatcher, observer),
		signer:      NewSigner(cfg.AccessKey, cfg.SecretKey.Reveal()),
		host:        host,
		scheme:      scheme,
	}, nil
}

// Signer returns the request signer
func (e *HuobiExchange) Signer() core.Signer {
	return e.signer
}

func (e *HuobiExchange) descriptor(method, path string, params core.Params) core.RequestDescriptor {
	return core.RequestDescriptor{
		Method:    method,
		Scheme:    e.scheme,
		Host:      e.host,
		Path:      path,
		Params:    params,
		Timestamp: e.Now(),
	}
}

// PreviewSigned builds a signed request without dispatching it
func (e *HuobiExchange) PreviewSigned(method, path string, params core.Params) *Preview {
	signed := e.signer.Sign(e.descriptor(method, path, params))
	signedParams := signed.Body
	if signed.Method == http.MethodGet {
		_, signedParams, _ = strings.Cut(signed.URL, "?")
	}
	return &Preview{SignedRequest: signed, SignedParams: signedParams}
}

// RequestSigned signs and dispatches an arbitrary call
func (e *HuobiExchange) RequestSigned(ctx context.Context, method, path string, params core.Params) (*core.Result, error) {
	signed := e.signer.Sign(e.descriptor(method, path, params))
	return e.Do(ctx, signed, 0)
}

// RequestPublic dispatches an unsigned call with a sorted, encoded query
func (e *HuobiExchange) RequestPublic(ctx context.Context, method, path string, params core.Params) (*core.Result, error) {
	return e.Do(ctx, PublicRequest(method, e.scheme, e.host, path, params), 0)
}

// MarketTicker returns the merged ticker for symbol
func (e *HuobiExchange) MarketTicker(ctx context.Context, symbol string) (*core.Result, error) {
	return e.RequestSigned(ctx, http.MethodGet, pathMarketMerged, core.NewParams("symbol", symbol))
}

// MarketDepth returns the order book for symbol. depthType defaults to step0.
func (e *HuobiExchange) MarketDepth(ctx context.Context, symbol, depthType string) (*core.Result, error) {
	if depthType == "" {
		depthType = defaultDepthType
	}
	return e.RequestSigned(ctx, http.MethodGet, pathMarketDepth, core.NewParams("symbol", symbol, "type", depthType))
}

// Tickers returns all market tickers
func (e *HuobiExchange) Tickers(ctx context.Context) (*core.Result, error) {
	return e.RequestSigned(ctx, http.MethodGet, pathTickers, nil)
}

// SymbolSettings returns the symbol list filtered by quote currency (usdt by default)
func (e *HuobiExchange) SymbolSettings(ctx context.Context, currency string) (*core.Result, error) {
	if currency == "" {
		currency = defaultCurrency
	}
	return e.RequestSigned(ctx, http.MethodGet, pathSymbols, core.NewParams("currency", currency))
}

// CurrencySettings returns currency and chain reference data.
// This endpoint is public; an empty currency lists everything.
func (e *HuobiExchange) CurrencySettings(ctx context.Context, currency string) (*core.Result, error) {
	var params core.Params
	if currency != "" {
		params = core.NewParams("currency", currency)
	}
	return e.RequestPublic(ctx, http.MethodGet, pathCurrencies, params)
}
