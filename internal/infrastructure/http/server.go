// Package http exposes the gateway operations as JSON GET routes
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"exchanges_gateway/internal/auth"
	"exchanges_gateway/internal/config"
	"exchanges_gateway/internal/core"
	"exchanges_gateway/internal/exchange"
	apperrors "exchanges_gateway/pkg/errors"
	"exchanges_gateway/pkg/telemetry"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
)

// routes maps each GET path onto a gateway operation
var routes = map[string]string{
	"/huobi/signed":               exchange.OpHuobiSigned,
	"/huobi/market":               exchange.OpHuobiMarket,
	"/huobi/market-depth":         exchange.OpHuobiMarketDepth,
	"/huobi/tickets":              exchange.OpHuobiTickers,
	"/huobi/tickers":              exchange.OpHuobiTickers,
	"/huobi/symbols-settings":     exchange.OpHuobiSymbolsSettings,
	"/huobi/chains-settings":      exchange.OpHuobiChainsSettings,
	"/kucoin/broker-info":         exchange.OpKucoinBrokerInfo,
	"/kucoin/accounts":            exchange.OpKucoinAccounts,
	"/kucoin/currencies":          exchange.OpKucoinCurrencies,
	"/kucoin/sub-accounts":        exchange.OpKucoinSubAccounts,
	"/kucoin/mark-price/{symbol}": exchange.OpKucoinMarkPrice,
	"/kucoin/mark-prices":         exchange.OpKucoinMarkPrices,
	"/kucoin/prices":              exchange.OpKucoinPrices,
}

// Server serves the HTTP route layer
type Server struct {
	gateway *exchange.Gateway
	health  http.Handler
	auth    *auth.APIKeyValidator
	logger  core.ILogger
	router  *mux.Router
	srv     *http.Server
}

// NewServer creates the HTTP server. health is mounted at /health without authentication.
func NewServer(gateway *exchange.Gateway, cfg config.ServerConfig, health http.Handler, logger core.ILogger) *Server {
	s := &Server{
		gateway: gateway,
		health:  health,
		auth:    auth.NewAPIKeyValidator(cfg.APIKeyList(), logger),
		logger:  logger.WithField("component", "http_server"),
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	s.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.auth.HTTPMiddleware("/health"))
	s.router.Use(s.requestLoggingMiddleware)

	if s.health != nil {
		s.router.Handle("/health", s.health).Methods(http.MethodGet)
	}
	for path, op := range routes {
		s.router.HandleFunc(path, s.handle(op)).Methods(http.MethodGet)
	}

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found: " + r.URL.Path})
	})
}

// Handler returns the configured router
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handle(name string) http.HandlerFunc {
	op, ok := exchange.LookupOperation(name)
	if !ok {
		panic("unknown operation " + name)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		telemetry.GetGlobalMetrics().RecordInbound(ctx, "http", name)

		res, err := op(ctx, s.gateway, requestArgs{r: r, vars: mux.Vars(r)})
		if err != nil {
			s.logger.Warn("Operation failed", "operation", name, "request_id", auth.RequestID(ctx), "error", err)
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

type errorBody struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Msg      string `json:"msg,omitempty"`
	Envelope any    `json:"envelope,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var be *apperrors.BusinessError
	switch {
	case errors.Is(err, apperrors.ErrInvalidRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: err.Error()})
	case errors.As(err, &be):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error(), Code: be.Code, Msg: be.Msg, Envelope: be.Envelope})
	case errors.Is(err, apperrors.ErrEmptyResponse), errors.Is(err, apperrors.ErrNetwork):
		writeJSON(w, http.StatusBadGateway, errorBody{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		s.logger.Debug("HTTP request",
			"request_id", auth.RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapper.statusCode,
			"duration", time.Since(start),
		)
	})
}

type responseWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWrapper) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Run serves until ctx is canceled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server failed: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("Stopping HTTP server")
	return s.srv.Shutdown(shutdownCtx)
}

// requestArgs reads operation arguments from path variables and the query string
type requestArgs struct {
	r    *http.Request
	vars map[string]string
}

func (a requestArgs) lookup(key string) (string, bool) {
	if v, ok := a.vars[key]; ok {
		return v, true
	}
	q := a.r.URL.Query()
	if !q.Has(key) {
		return "", false
	}
	return q.Get(key), true
}

func (a requestArgs) String(key, def string) string {
	if v, ok := a.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (a requestArgs) Int(key string, def int) (int, error) {
	v, ok := a.lookup(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// Strings accepts repeated keys and comma-separated values
func (a requestArgs) Strings(key string) []string {
	var out []string
	for _, v := range a.r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Body decodes a JSON object, keeping any other text literally
func (a requestArgs) Body(key string) any {
	v, ok := a.lookup(key)
	if !ok || v == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(v), &obj); err == nil && obj != nil {
		return obj
	}
	return v
}
