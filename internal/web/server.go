package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/elys-network/lp-tracker/internal/logger"
	"github.com/elys-network/lp-tracker/internal/report"
	"github.com/elys-network/lp-tracker/internal/state"
	"github.com/elys-network/lp-tracker/internal/types"
	"github.com/elys-network/lp-tracker/internal/valuation"
)

// Reporter values a wallet's positions.
type Reporter interface {
	Run(ctx context.Context, wallet string) ([]types.PortfolioItem, error)
}

// Portfolio is the API representation of a report run.
type Portfolio struct {
	Wallet      string       `json:"wallet"`
	GeneratedAt time.Time    `json:"generated_at"`
	Items       []report.Row `json:"items"`
}

// WebServer serves portfolio reports over HTTP
type WebServer struct {
	router   *mux.Router
	port     string
	reporter Reporter
	vaults   []types.VaultConfig
	started  time.Time
	logger   zerolog.Logger
	server   *http.Server

	mu     sync.RWMutex
	latest map[string]Portfolio // lowercase wallet
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, reporter Reporter, vaults []types.VaultConfig) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router:   mux.NewRouter(),
		port:     port,
		reporter: reporter,
		vaults:   vaults,
		started:  time.Now(),
		logger:   logger.GetForComponent("web_server"),
		latest:   make(map[string]Portfolio),
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	// OPTIONS must match so corsMiddleware can answer preflight requests.
	api.HandleFunc("/health", ws.handleHealth).Methods("GET", "OPTIONS")
	api.HandleFunc("/vaults", ws.handleGetVaults).Methods("GET", "OPTIONS")
	api.HandleFunc("/portfolio/{wallet}", ws.handleGetPortfolio).Methods("GET", "OPTIONS")
	api.HandleFunc("/portfolio/{wallet}/latest", ws.handleGetLatestPortfolio).Methods("GET", "OPTIONS")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start starts the web server and blocks until it stops.
func (ws *WebServer) Start() error {
	ws.logger.Info().Str("port", ws.port).Msg("Starting web server")

	ws.server = &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute, // a report run waits on every vault
		IdleTimeout:  60 * time.Second,
	}

	err := ws.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops a started server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	if ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}

// StoreLatest records a report so that /latest can serve it without a new run.
func (ws *WebServer) StoreLatest(wallet string, items []types.PortfolioItem) Portfolio {
	portfolio := Portfolio{
		Wallet:      wallet,
		GeneratedAt: time.Now().UTC(),
		Items:       report.BuildRows(items),
	}
	ws.mu.Lock()
	ws.latest[strings.ToLower(wallet)] = portfolio
	ws.mu.Unlock()
	return portfolio
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	overallStatus := "OK"
	statusCode := http.StatusOK
	database := "disabled"
	if state.DB != nil {
		database = "healthy"
		if err := state.TestDBConnection(); err != nil {
			database = "unhealthy"
			overallStatus = "DEGRADED"
			statusCode = http.StatusServiceUnavailable
		}
	}

	ws.mu.RLock()
	cachedReports := len(ws.latest)
	ws.mu.RUnlock()

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"component": map[string]interface{}{
			"name":    "lp-tracker",
			"version": "1.0.0",
		},
		"tracker_status": map[string]interface{}{
			"database":       database,
			"vaults":         len(ws.vaults),
			"cached_reports": cachedReports,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

func (ws *WebServer) handleGetVaults(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"vaults": ws.vaults,
		"count":  len(ws.vaults),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPortfolio runs a fresh valuation for the wallet
func (ws *WebServer) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	items, err := ws.reporter.Run(r.Context(), wallet)
	if errors.Is(err, valuation.ErrInvalidWallet) {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid wallet address")
		return
	}
	if err != nil {
		ws.logger.Error().Err(err).Str("wallet", wallet).Msg("Failed to value portfolio")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to value portfolio")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, ws.StoreLatest(wallet, items))
}

// handleGetLatestPortfolio returns the last report computed for the wallet
func (ws *WebServer) handleGetLatestPortfolio(w http.ResponseWriter, r *http.Request) {
	wallet := mux.Vars(r)["wallet"]

	ws.mu.RLock()
	portfolio, ok := ws.latest[strings.ToLower(wallet)]
	ws.mu.RUnlock()
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotFound, "No report found for wallet")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, portfolio)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.logger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		ws.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
