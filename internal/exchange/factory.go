// Package exchange wires the exchange adapters and exposes them over gRPC
package exchange

import (
	"fmt"

	"exchanges_gateway/internal/config"
	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange/base"
	"exchanges_gateway/internal/exchange/huobi"
	"exchanges_gateway/internal/exchange/kucoin"
	"exchanges_gateway/internal/infrastructure/health"
	"exchanges_gateway/pkg/concurrency"
	gwhttp "exchanges_gateway/pkg/http"
)

// Gateway holds one adapter per supported exchange
type Gateway struct {
	Huobi  *huobi.HuobiExchange
	KuCoin *kucoin.KuCoinExchange
}

// NewGateway creates both adapters from configuration. They share one
// dispatcher. Signed requests are logged only when debug_signed_requests is set.
func NewGateway(cfg *config.Config, logger core.ILogger, pool *concurrency.WorkerPool) (*Gateway, error) {
	dispatcher := gwhttp.NewDispatcher(nil)

	var observer core.Observer = core.NopObserver{}
	if cfg.System.DebugSignedRequests {
		logger.Warn("Signed request logging enabled (signatures are redacted)")
		observer = base.NewLogObserver(logger)
	}

	h, err := huobi.NewHuobiExchange(&cfg.Huobi, logger, dispatcher, observer)
	if err != nil {
		return nil, fmt.Errorf("huobi: %w", err)
	}
	k, err := kucoin.NewKuCoinExchange(&cfg.KuCoin, &cfg.KuCoinMain, logger, dispatcher, observer, pool)
	if err != nil {
		return nil, fmt.Errorf("kucoin: %w", err)
	}

	return &Gateway{Huobi: h, KuCoin: k}, nil
}

// RegisterHealthChecks reports missing credentials per trust domain.
// Missing credentials never prevent startup.
func RegisterHealthChecks(hm core.IHealthMonitor, cfg *config.Config) {
	hm.Register("huobi_credentials", health.CredentialCheck(map[string]string{
		"access_key": cfg.Huobi.AccessKey,
		"secret_key": cfg.Huobi.SecretKey.Reveal(),
	}))
	hm.Register("kucoin_credentials", health.CredentialCheck(map[string]string{
		"api_key":    cfg.KuCoin.APIKey,
		"secret_key": cfg.KuCoin.SecretKey.Reveal(),
		"passphrase": cfg.KuCoin.Passphrase.Reveal(),
	}))
	hm.Register("kucoin_main_credentials", health.CredentialCheck(map[string]string{
		"api_key":    cfg.KuCoinMain.APIKey,
		"secret_key": cfg.KuCoinMain.SecretKey.Reveal(),
		"passphrase": cfg.KuCoinMain.Passphrase.Reveal(),
	}))
}
