// Package main is the entry point for the swap router service, an HTTP
// front-end over the provider selection engine for quoting, preparing, and
// monitoring token swaps across chains.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/swap-router/internal/circuitbreaker"
	"github.com/yourorg/swap-router/internal/config"
	"github.com/yourorg/swap-router/internal/fees"
	"github.com/yourorg/swap-router/internal/otel"
	"github.com/yourorg/swap-router/internal/provider"
	"github.com/yourorg/swap-router/internal/registry"
	"github.com/yourorg/swap-router/internal/router"
	"github.com/yourorg/swap-router/internal/selector"
	"github.com/yourorg/swap-router/internal/swaperr"
)

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server represents the swap router HTTP server instance
type Server struct {
	// Configuration for the server
	config config.Config

	// Selection façade over routing, multi-hop, and providers
	selector *selector.Selector

	// Circuit breaker guarding provider health
	breaker *circuitbreaker.Breaker

	// HTTP server instance
	server *http.Server

	// Metrics registry
	metrics *serverMetrics

	// Rate limiter for the public endpoints
	rateLimit *rate.Limiter
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	providerErrors  *prometheus.CounterVec
	selectedCounter *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_router_requests_total",
				Help: "Total number of requests processed",
			},
			[]string{"endpoint", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "swap_router_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		providerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_router_provider_errors_total",
				Help: "Total number of provider errors by error code",
			},
			[]string{"provider", "code"},
		),
		selectedCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "swap_router_provider_selected_total",
				Help: "Number of times each provider won selection",
			},
			[]string{"provider"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "swap_router_circuit_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=open, 2=half-open)",
			},
			[]string{"provider"},
		),
	}

	// Register all metrics
	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.providerErrors,
		m.selectedCounter,
		m.breakerState,
	)

	return m
}

// main is the entry point for the application
func main() {
	// Load .env before anything reads the environment
	_ = godotenv.Load()

	// Configure logging
	setupLogging()

	// Load configuration
	cfg := config.Load()

	// Initialize tracing when an endpoint is configured
	if cfg.OtelEndpoint != "" {
		shutdown := otel.InitTracer(cfg.OtelEndpoint)
		defer shutdown()
	}

	// Create and start server
	server, err := NewServer(cfg)
	if err != nil {
		logrus.Fatalf("Server initialization failed: %v", err)
	}
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	// Set log formatter based on environment
	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// Set log level based on environment
	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Info("Logging configured")
}

// NewServer wires the full provider stack behind a Server instance.
func NewServer(cfg config.Config) (*Server, error) {
	tokens, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}

	providers := createProviders(cfg, tokens)
	if len(providers) == 0 {
		logrus.Fatal("No providers enabled")
	}

	breaker := circuitbreaker.New(circuitbreaker.Options{
		FailureThreshold: cfg.BreakerFailureThreshold,
		CooldownPeriod:   cfg.BreakerCooldown,
		OnTrip: func(name, reason string) {
			logrus.WithFields(logrus.Fields{
				"provider": name,
				"reason":   reason,
			}).Warn("Circuit breaker tripped")
		},
	})

	rt := router.New(providers, breaker, router.Options{
		SameChainPriority:  cfg.SameChainPriority,
		CrossChainPriority: cfg.CrossChainPriority,
		AttemptTimeout:     cfg.AttemptTimeout,
	})

	var multiHop *router.MultiHop
	if cfg.MultiHopEnabled {
		sameChain, okSame := rt.Provider("uniswap-trading-api")
		crossChain, okCross := rt.Provider("thirdweb")
		if okSame && okCross {
			multiHop = router.NewMultiHop(router.MultiHopConfig{
				SameChain:              sameChain,
				CrossChain:             crossChain,
				SameChainRegistryName:  "uniswap",
				CrossChainRegistryName: "thirdweb",
				BridgeSymbols:          cfg.BridgeSymbols,
				Tokens:                 tokens,
			})
		} else {
			logrus.Warn("Multi-hop disabled: requires both a same-chain and a cross-chain provider")
		}
	}

	sel := selector.New(rt, multiHop, selector.Config{
		Aliases:       selector.DefaultAliases(),
		QuoteCacheTTL: cfg.QuoteCacheTTL,
		Fees:          fees.NewCalculator(cfg.ProtocolFees),
	})

	server := &Server{
		config:    cfg,
		selector:  sel,
		breaker:   breaker,
		metrics:   registerMetrics(),
		rateLimit: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}

	logrus.WithFields(logrus.Fields{
		"port":            cfg.Port,
		"providers":       rt.ProviderNames(),
		"multihop":        multiHop != nil,
		"attempt_timeout": cfg.AttemptTimeout,
		"quote_cache_ttl": cfg.QuoteCacheTTL,
	}).Info("Server initialized")

	return server, nil
}

// loadRegistry loads the token registry from the configured path, falling
// back to the conventional lookup locations.
func loadRegistry(cfg config.Config) (*registry.Registry, error) {
	if cfg.TokenRegistryPath != "" {
		return registry.Load(cfg.TokenRegistryPath)
	}
	return registry.Default()
}

// createProviders builds the enabled provider clients.
func createProviders(cfg config.Config, tokens *registry.Registry) []provider.Provider {
	var providers []provider.Provider

	if cfg.UniswapEnabled {
		providers = append(providers, provider.NewUniswapClient(provider.UniswapConfig{
			Name:         "uniswap-trading-api",
			RegistryName: "uniswap",
			BaseURL:      cfg.UniswapURL,
			APIKey:       cfg.APIKey("uniswap"),
			Timeout:      cfg.UniswapTimeout,
			SlippageBps:  cfg.SlippageBps,
		}, tokens))
	}

	if cfg.ThirdwebEnabled {
		providers = append(providers, provider.NewThirdwebClient(provider.ThirdwebConfig{
			Name:    "thirdweb",
			BaseURL: cfg.ThirdwebURL,
			APIKey:  cfg.APIKey("thirdweb"),
			Timeout: cfg.ThirdwebTimeout,
		}, tokens))
	}

	return providers
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	// Create a new router
	mux := http.NewServeMux()

	// Register API endpoints
	mux.HandleFunc("/quote", s.handleQuote)         // Best-provider quote
	mux.HandleFunc("/prepare", s.handlePrepare)     // Unsigned transaction bundle
	mux.HandleFunc("/providers", s.handleProviders) // Registered provider list
	mux.HandleFunc("/tx/", s.handleTxStatus)        // Transaction status by hash
	mux.HandleFunc("/health", s.handleHealth)       // Health check endpoint
	mux.HandleFunc("/metrics", promhttp.Handler().ServeHTTP)
	mux.HandleFunc("/status", s.handleStatus) // Service status endpoint

	// Configure server with timeouts
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", s.config.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// handleQuote selects the best provider for a swap and returns its quote.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.allow(w, "quote") {
		return
	}

	req, apiErr := decodeSwapRequest(r)
	if apiErr != nil {
		s.errorResponse(w, "quote", apiErr)
		return
	}

	result, err := s.selector.GetQuoteWithBestProvider(r.Context(), req)
	if err != nil {
		s.errorResponse(w, "quote", swaperr.Normalize("router", err))
		return
	}

	s.metrics.selectedCounter.WithLabelValues(result.Provider).Inc()
	s.observe("quote", start)
	s.jsonResponse(w, http.StatusOK, quoteResponse{
		RequestID:   uuid.NewString(),
		Provider:    result.Provider,
		Quote:       result.Quote,
		ProtocolFee: result.ProtocolFee,
	})
}

// handlePrepare builds the unsigned transaction bundle for a swap. An
// optional "provider" query parameter pins the provider family.
func (s *Server) handlePrepare(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.allow(w, "prepare") {
		return
	}

	req, apiErr := decodeSwapRequest(r)
	if apiErr != nil {
		s.errorResponse(w, "prepare", apiErr)
		return
	}

	preferred := r.URL.Query().Get("provider")
	prepared, err := s.selector.PrepareSwapWithProvider(r.Context(), req, preferred)
	if err != nil {
		s.errorResponse(w, "prepare", swaperr.Normalize("router", err))
		return
	}

	s.metrics.selectedCounter.WithLabelValues(prepared.Provider).Inc()
	s.observe("prepare", start)
	s.jsonResponse(w, http.StatusOK, prepareResponse{
		RequestID: uuid.NewString(),
		Prepared:  prepared,
	})
}

// handleProviders lists registered providers and their availability.
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	names := s.selector.GetAvailableProviders()
	entries := make([]providerEntry, 0, len(names))
	for _, name := range names {
		state := s.breaker.State(name)
		s.metrics.breakerState.WithLabelValues(name).Set(float64(state))
		entries = append(entries, providerEntry{
			Name:      name,
			Available: s.selector.IsProviderAvailable(name),
			Breaker:   state.String(),
		})
	}
	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"providers": entries,
	})
}

// handleTxStatus reports the lifecycle state of a submitted swap. The path
// carries the transaction hash; chainId and provider arrive as query params.
func (s *Server) handleTxStatus(w http.ResponseWriter, r *http.Request) {
	txHash := strings.TrimPrefix(r.URL.Path, "/tx/")
	if txHash == "" {
		s.errorResponse(w, "tx", swaperr.New(swaperr.CodeMissingParams, "transaction hash is required"))
		return
	}

	chainID, err := parseChainID(r.URL.Query().Get("chainId"))
	if err != nil {
		s.errorResponse(w, "tx", err)
		return
	}

	providerName := r.URL.Query().Get("provider")
	status, monErr := s.selector.MonitorTransaction(r.Context(), providerName, txHash, chainID)
	if monErr != nil {
		s.errorResponse(w, "tx", swaperr.Normalize(providerName, monErr))
		return
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"txHash":  txHash,
		"chainId": chainID,
		"status":  status,
	})
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	providers := s.selector.GetAvailableProviders()
	breakers := make(map[string]string, len(providers))
	for _, name := range providers {
		breakers[name] = s.breaker.State(name).String()
	}

	s.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "operational",
		"uptime":    time.Since(startTime).String(),
		"version":   version,
		"providers": providers,
		"breakers":  breakers,
		"configuration": map[string]interface{}{
			"same_chain_priority":  s.config.SameChainPriority,
			"cross_chain_priority": s.config.CrossChainPriority,
			"attempt_timeout":      s.config.AttemptTimeout.String(),
			"slippage_bps":         s.config.SlippageBps,
			"multihop":             s.config.MultiHopEnabled,
		},
	})
}

// allow enforces the request rate limit for an endpoint.
func (s *Server) allow(w http.ResponseWriter, endpoint string) bool {
	if s.rateLimit.Allow() {
		return true
	}
	s.errorResponse(w, endpoint, swaperr.New(swaperr.CodeRateLimitExceeded, "too many requests"))
	return false
}

// observe records request metrics for a successfully served endpoint.
func (s *Server) observe(endpoint string, start time.Time) {
	s.metrics.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	s.metrics.requestCounter.WithLabelValues(endpoint, "success").Inc()
}

// errorResponse writes a typed error with its mapped HTTP status.
func (s *Server) errorResponse(w http.ResponseWriter, endpoint string, err *swaperr.Error) {
	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"code":     err.Code,
		"category": err.Category(),
	}).Warn(err.Message)

	s.metrics.requestCounter.WithLabelValues(endpoint, "error").Inc()
	// Typed errors record the failing provider in their detail; failures
	// before provider selection are attributed to the router itself.
	providerLabel := "router"
	if p, ok := err.Details["provider"].(string); ok && p != "" {
		providerLabel = p
	}
	s.metrics.providerErrors.WithLabelValues(providerLabel, string(err.Code)).Inc()

	body := errorResponse{
		Code:      string(err.Code),
		Category:  string(err.Category()),
		Message:   err.Message,
		Retryable: err.IsRetryable(),
		Details:   err.Details,
	}
	if ra, ok := err.RetryAfter(); ok {
		w.Header().Set("Retry-After", strconv.Itoa(int(ra.Seconds())))
	}
	s.jsonResponse(w, err.HTTPStatus(), body)
}

// jsonResponse writes a JSON body with the given status code.
func (s *Server) jsonResponse(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Warnf("Failed to encode response: %v", err)
	}
}
