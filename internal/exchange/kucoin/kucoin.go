// Package kucoin provides the KuCoin signed REST adapter
package kucoin

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"exchanges_gateway/internal/config"
	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/base"
	"exchanges_gateway/pkg/concurrency"
	apperrors "exchanges_gateway/pkg/errors"
	gwhttp "exchanges_gateway/pkg/http"
)

const (
	pathBrokerInfo  = "/api/v1/broker/nd/info"
	pathAccounts    = "/api/v1/accounts"
	pathCurrencies  = "/api/v3/currencies"
	pathSubAccounts = "/api/v2/sub/user"
	pathPrices      = "/api/v1/prices"
	pathMarkPrice   = "/api/v1/mark-price/%s/current"
)

// KuCoinExchange exposes the KuCoin operations. The main-account signer is a
// separate trust domain used only for sub-account lookups.
type KuCoinExchange struct {
	*base.BaseAdapter
	signer     *Signer
	mainSigner *Signer
	pool       *concurrency.WorkerPool

	host           string
	brokerHost     string
	scheme         string
	keyVersion     string
	mainKeyVersion string
}

// BrokerInfoParams selects the broker-info call. Zero values take defaults.
type BrokerInfoParams struct {
	Host       string
	Path       string
	Method     string
	Body       any
	KeyVersion string
}

// AccountsParams describes a generic signed call
type AccountsParams struct {
	Method     string
	Endpoint   string
	Body       any
	KeyVersion string
	Host       string
	SiteType   string
}

// CurrenciesParams filters the currency list. An empty Currency lists all.
type CurrenciesParams struct {
	Currency string
	Timeout  time.Duration
}

// SubAccountsParams pages through sub-accounts
type SubAccountsParams struct {
	CurrentPage int
	PageSize    int
	Timeout     time.Duration
}

// MarkPriceEntry is one symbol of a MarkPrices fan-out
type MarkPriceEntry struct {
	Symbol string `json:"symbol"`
	Status int    `json:"status"`
	OK     bool   `json:"ok"`
	Data   any    `json:"data"`
}

// MarkPriceList keeps the input symbol order
type MarkPriceList struct {
	Prices []MarkPriceEntry `json:"prices"`
}

// NewKuCoinExchange creates a KuCoin adapter. pool may be nil, in which case
// MarkPrices runs sequentially.
func NewKuCoinExchange(cfg *config.KuCoinConfig, mainCfg *config.KuCoinMainConfig, logger core.ILogger, dispatcher *gwhttp.Dispatcher, observer core.Observer, pool *concurrency.WorkerPool) (*KuCoinExchange, error) {
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := orDefault(cfg.Host, DefaultHost)
	brokerHost := orDefault(cfg.BrokerHost, DefaultBrokerHost)
	if scheme != "https" && !(base.IsLocalHost(host) && base.IsLocalHost(brokerHost)) {
		// Allow http for local testing
		return nil, fmt.Errorf("kucoin hosts must be reached over https: %s://%s", scheme, host)
	}

	return &KuCoinExchange{
		BaseAdapter: base.NewBaseAdapter("kucoin", logger, dispatcher, observer),
		signer: NewSigner(Credentials{
			APIKey:        cfg.APIKey,
			SecretKey:     cfg.SecretKey.Reveal(),
			Passphrase:    cfg.Passphrase.Reveal(),
			BrokerName:    cfg.BrokerName,
			Partner:       cfg.Partner,
			PartnerSecret: cfg.PartnerSecret.Reveal(),
		}),
		mainSigner: NewSigner(Credentials{
			APIKey:     mainCfg.APIKey,
			SecretKey:  mainCfg.SecretKey.Reveal(),
			Passphrase: mainCfg.Passphrase.Reveal(),
		}),
		pool:           pool,
		host:           host,
		brokerHost:     brokerHost,
		scheme:         scheme,
		keyVersion:     orDefault(cfg.KeyVersion, DefaultKeyVersion),
		mainKeyVersion: orDefault(mainCfg.KeyVersion, DefaultKeyVersion),
	}, nil
}

// Signer returns the primary request signer
func (e *KuCoinExchange) Signer() core.Signer {
	return e.signer
}

func (e *KuCoinExchange) sign(signer *Signer, desc core.RequestDescriptor) *core.SignedRequest {
	desc.Scheme = e.scheme
	desc.Timestamp = e.Now()
	return signer.Sign(desc)
}

// BrokerInfo calls the broker-info endpoint on the broker host
func (e *KuCoinExchange) BrokerInfo(ctx context.Context, p BrokerInfoParams) (*core.Result, error) {
	if err := CheckQuery(p.Method, p.Body); err != nil {
		return nil, err
	}
	signed := e.sign(e.signer, core.RequestDescriptor{
		Method:     orDefault(p.Method, http.MethodGet),
		Host:       orDefault(p.Host, e.brokerHost),
		Path:       orDefault(p.Path, pathBrokerInfo),
		Body:       p.Body,
		KeyVersion: orDefault(p.KeyVersion, e.keyVersion),
	})
	return e.Do(ctx, signed, 0)
}

// Accounts performs a generic signed call, by default GET /api/v1/accounts
func (e *KuCoinExchange) Accounts(ctx context.Context, p AccountsParams) (*core.Result, error) {
	if err := CheckQuery(p.Method, p.Body); err != nil {
		return nil, err
	}
	var headers map[string]string
	if p.SiteType != "" {
		headers = map[string]string{HeaderSiteType: p.SiteType}
	}
	signed := e.sign(e.signer, core.RequestDescriptor{
		Method:     orDefault(p.Method, http.MethodGet),
		Host:       orDefault(p.Host, e.host),
		Path:       orDefault(p.Endpoint, pathAccounts),
		Body:       p.Body,
		KeyVersion: orDefault(p.KeyVersion, e.keyVersion),
		Headers:    headers,
	})
	return e.Do(ctx, signed, 0)
}

// CurrenciesWithChains returns currencies with their chains reshaped into
// {list:[CurrencyRecord]}. A non-success envelope fails with a BusinessError.
func (e *KuCoinExchange) CurrenciesWithChains(ctx context.Context, p CurrenciesParams) (*core.Result, error) {
	path := pathCurrencies
	if p.Currency != "" {
		path += "/" + url.PathEscape(p.Currency)
	}
	signed := e.sign(e.signer, core.RequestDescriptor{
		Method:     http.MethodGet,
		Host:       e.host,
		Path:       path,
		KeyVersion: e.keyVersion,
	})

	res, env, err := e.DoEnvelope(ctx, signed, base.TimeoutOrDefault(p.Timeout), base.KuCoinSuccessCode)
	if err != nil {
		return nil, err
	}
	return &core.Result{Status: res.Status, OK: res.OK, Data: reshapeCurrencies(env.Data)}, nil
}

// SubAccounts lists sub-accounts using the main-account credentials
func (e *KuCoinExchange) SubAccounts(ctx context.Context, p SubAccountsParams) (*core.Result, error) {
	var query core.Params
	if p.CurrentPage > 0 {
		query = query.Set("currentPage", strconv.Itoa(p.CurrentPage))
	}
	if p.PageSize > 0 {
		query = query.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	signed := e.sign(e.mainSigner, core.RequestDescriptor{
		Method:     http.MethodGet,
		Host:       e.host,
		Path:       pathSubAccounts,
		Body:       query,
		KeyVersion: e.mainKeyVersion,
	})

	res, env, err := e.DoEnvelope(ctx, signed, base.TimeoutOrDefault(p.Timeout), base.KuCoinSuccessCode)
	if err != nil {
		return nil, err
	}
	return &core.Result{Status: res.Status, OK: res.OK, Data: reshapeSubAccounts(env.Data)}, nil
}

// MarkPrice returns the current mark price of symbol without envelope inspection
func (e *KuCoinExchange) MarkPrice(ctx context.Context, symbol string, timeout time.Duration) (*core.Result, error) {
	if strings.TrimSpace(symbol) == "" {
		return nil, fmt.Errorf("%w: symbol is required", apperrors.ErrInvalidRequest)
	}
	signed := e.sign(e.signer, core.RequestDescriptor{
		Method:     http.MethodGet,
		Host:       e.host,
		Path:       fmt.Sprintf(pathMarkPrice, url.PathEscape(symbol)),
		KeyVersion: e.keyVersion,
	})
	return e.Do(ctx, signed, base.TimeoutOrDefault(timeout))
}

// MarkPrices fetches several mark prices concurrently. Results keep the
// input order; the first transport error fails the whole call.
func (e *KuCoinExchange) MarkPrices(ctx context.Context, symbols []string, timeout time.Duration) (*core.Result, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: at least one symbol is required", apperrors.ErrInvalidRequest)
	}

	entries := make([]MarkPriceEntry, len(symbols))
	tasks := make([]func(context.Context) error, len(symbols))
	for i, symbol := range symbols {
		i, symbol := i, symbol
		tasks[i] = func(ctx context.Context) error {
			res, err := e.MarkPrice(ctx, symbol, timeout)
			if err != nil {
				return fmt.Errorf("mark price %s: %w", symbol, err)
			}
			entries[i] = MarkPriceEntry{Symbol: symbol, Status: res.Status, OK: res.OK, Data: res.Data}
			return nil
		}
	}

	if err := e.runAll(ctx, tasks); err != nil {
		return nil, err
	}

	ok := true
	for _, entry := range entries {
		ok = ok && entry.OK
	}
	return &core.Result{Status: http.StatusOK, OK: ok, Data: MarkPriceList{Prices: entries}}, nil
}

func (e *KuCoinExchange) runAll(ctx context.Context, tasks []func(context.Context) error) error {
	if e.pool != nil {
		return e.pool.RunAll(ctx, tasks...)
	}
	for _, task := range tasks {
		if err := task(ctx); err != nil {
			return err
		}
	}
	return nil
}

// AggregatePrices returns fiat prices for currencies in base. A success
// envelope is reshaped into {prices:[{currency, price}]}; anything else is
// passed through unchanged.
func (e *KuCoinExchange) AggregatePrices(ctx context.Context, baseCurrency string, currencies []string, timeout time.Duration) (*core.Result, error) {
	var query core.Params
	if baseCurrency != "" {
		query = query.Set("base", baseCurrency)
	}
	if len(currencies) > 0 {
		query = query.Set("currencies", strings.Join(currencies, ","))
	}
	signed := e.sign(e.signer, core.RequestDescriptor{
		Method:     http.MethodGet,
		Host:       e.host,
		Path:       pathPrices,
		Body:       query,
		KeyVersion: e.keyVersion,
	})

	res, err := e.Do(ctx, signed, base.TimeoutOrDefault(timeout))
	if err != nil {
		return nil, err
	}
	env, err := base.DecodeEnvelope(res, base.KuCoinSuccessCode)
	if err != nil {
		e.Logger.Debug("prices passed through unshaped", "status", res.Status, "error", err)
		return res, nil
	}
	return &core.Result{Status: res.Status, OK: res.OK, Data: reshapePrices(env.Data)}, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
