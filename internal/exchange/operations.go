package exchange

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/kucoin"
	apperrors "exchanges_gateway/pkg/errors"

	"github.com/goccy/go-json"
)

// Args is the transport-neutral view of inbound call parameters
type Args interface {
	String(key, def string) string
	Int(key string, def int) (int, error)
	Strings(key string) []string
	Body(key string) any
}

// Operation is one inbound gateway call
type Operation func(ctx context.Context, g *Gateway, args Args) (*core.Result, error)

// Operation names, shared by the gRPC methods and HTTP routes
const (
	OpHuobiSigned          = "HuobiSigned"
	OpHuobiMarket          = "HuobiMarket"
	OpHuobiMarketDepth     = "HuobiMarketDepth"
	OpHuobiTickers         = "HuobiTickers"
	OpHuobiSymbolsSettings = "HuobiSymbolsSettings"
	OpHuobiChainsSettings  = "HuobiChainsSettings"
	OpKucoinBrokerInfo     = "KucoinBrokerInfo"
	OpKucoinAccounts       = "KucoinAccounts"
	OpKucoinCurrencies     = "KucoinCurrencies"
	OpKucoinSubAccounts    = "KucoinSubAccounts"
	OpKucoinMarkPrice      = "KucoinMarkPrice"
	OpKucoinMarkPrices     = "KucoinMarkPrices"
	OpKucoinPrices         = "KucoinPrices"
)

const defaultSymbol = "btcusdt"

var operations = map[string]Operation{
	OpHuobiSigned: func(_ context.Context, g *Gateway, a Args) (*core.Result, error) {
		params, err := paramsOf(a.Body("params"))
		if err != nil {
			return nil, err
		}
		if params == nil {
			params = core.NewParams("symbol", a.String("symbol", defaultSymbol))
		}
		preview := g.Huobi.PreviewSigned(a.String("method", http.MethodGet), a.String("path", "/market/detail/merged"), params)
		return &core.Result{Status: http.StatusOK, OK: true, Data: preview}, nil
	},
	OpHuobiMarket: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		return g.Huobi.MarketTicker(ctx, a.String("symbol", defaultSymbol))
	},
	OpHuobiMarketDepth: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		return g.Huobi.MarketDepth(ctx, a.String("symbol", defaultSymbol), a.String("type", ""))
	},
	OpHuobiTickers: func(ctx context.Context, g *Gateway, _ Args) (*core.Result, error) {
		return g.Huobi.Tickers(ctx)
	},
	OpHuobiSymbolsSettings: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		return g.Huobi.SymbolSettings(ctx, a.String("currency", ""))
	},
	OpHuobiChainsSettings: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		return g.Huobi.CurrencySettings(ctx, a.String("currency", ""))
	},
	OpKucoinBrokerInfo: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		return g.KuCoin.BrokerInfo(ctx, kucoin.BrokerInfoParams{
			Method:     a.String("method", ""),
			Path:       a.String("path", ""),
			Body:       a.Body("body"),
			KeyVersion: a.String("keyVersion", ""),
		})
	},
	OpKucoinAccounts: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		return g.KuCoin.Accounts(ctx, kucoin.AccountsParams{
			Method:     a.String("method", ""),
			Endpoint:   a.String("endpoint", ""),
			Body:       a.Body("body"),
			KeyVersion: a.String("keyVersion", ""),
			SiteType:   a.String("siteType", ""),
		})
	},
	OpKucoinCurrencies: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		timeout, err := timeoutArg(a)
		if err != nil {
			return nil, err
		}
		return g.KuCoin.CurrenciesWithChains(ctx, kucoin.CurrenciesParams{Currency: a.String("currency", ""), Timeout: timeout})
	},
	OpKucoinSubAccounts: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		timeout, err := timeoutArg(a)
		if err != nil {
			return nil, err
		}
		page, err := intArg(a, "currentPage")
		if err != nil {
			return nil, err
		}
		size, err := intArg(a, "pageSize")
		if err != nil {
			return nil, err
		}
		return g.KuCoin.SubAccounts(ctx, kucoin.SubAccountsParams{CurrentPage: page, PageSize: size, Timeout: timeout})
	},
	OpKucoinMarkPrice: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		timeout, err := timeoutArg(a)
		if err != nil {
			return nil, err
		}
		return g.KuCoin.MarkPrice(ctx, a.String("symbol", ""), timeout)
	},
	OpKucoinMarkPrices: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		timeout, err := timeoutArg(a)
		if err != nil {
			return nil, err
		}
		return g.KuCoin.MarkPrices(ctx, a.Strings("symbols"), timeout)
	},
	OpKucoinPrices: func(ctx context.Context, g *Gateway, a Args) (*core.Result, error) {
		timeout, err := timeoutArg(a)
		if err != nil {
			return nil, err
		}
		return g.KuCoin.AggregatePrices(ctx, a.String("base", ""), a.Strings("currencies"), timeout)
	},
}

// LookupOperation returns the named operation
func LookupOperation(name string) (Operation, bool) {
	op, ok := operations[name]
	return op, ok
}

// OperationNames lists every operation in a stable order
func OperationNames() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// maxTimeout bounds caller-supplied timeouts
const maxTimeout = 5 * time.Minute

func timeoutArg(a Args) (time.Duration, error) {
	ms, err := intArg(a, "timeoutMs")
	if err != nil {
		return 0, err
	}
	if int64(ms) > maxTimeout.Milliseconds() {
		return 0, fmt.Errorf("%w: timeoutMs must not exceed %d", apperrors.ErrInvalidRequest, maxTimeout.Milliseconds())
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func intArg(a Args, key string) (int, error) {
	n, err := a.Int(key, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", apperrors.ErrInvalidRequest, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: %s must not be negative", apperrors.ErrInvalidRequest, key)
	}
	return n, nil
}

// paramsOf converts an object body into sorted Huobi params
func paramsOf(body any) (core.Params, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		var obj map[string]any
		if err := json.Unmarshal([]byte(b), &obj); err != nil {
			return nil, fmt.Errorf("%w: params must be a JSON object", apperrors.ErrInvalidRequest)
		}
		return paramsOf(obj)
	case map[string]any:
		params := make(core.Params, 0, len(b))
		for k, v := range b {
			switch v.(type) {
			case map[string]any, []any:
				return nil, fmt.Errorf("%w: params.%s must be a scalar", apperrors.ErrInvalidRequest, k)
			}
			params = append(params, core.Param{Key: k, Value: scalar(v)})
		}
		return params.Sorted(), nil
	}
	return nil, fmt.Errorf("%w: params must be an object", apperrors.ErrInvalidRequest)
}

func scalar(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
