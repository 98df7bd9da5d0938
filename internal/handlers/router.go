package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xelth-com/iditgo/internal/analytics"
	"github.com/xelth-com/iditgo/internal/auth"
	"github.com/xelth-com/iditgo/internal/config"
	"github.com/xelth-com/iditgo/internal/errs"
	"github.com/xelth-com/iditgo/internal/hierarchy"
	"github.com/xelth-com/iditgo/internal/ledger"
	"github.com/xelth-com/iditgo/internal/metrics"
	"github.com/xelth-com/iditgo/internal/middleware"
	"github.com/xelth-com/iditgo/internal/websocket"
)

const maxBodyBytes = 1 << 20

// Options carries the optional collaborators of the router
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Hub     *websocket.Hub
	Clock   func() time.Time
}

// Router wraps the mux router and the services behind it
type Router struct {
	*mux.Router
	db        *gorm.DB
	cfg       *config.Config
	logger    *zap.Logger
	metrics   *metrics.Metrics
	hub       *websocket.Hub
	now       func() time.Time
	locations *hierarchy.Manager
	ledger    *ledger.Service
	analytics *analytics.Service
	auth      *auth.Service
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *gorm.DB, cfg *config.Config, opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}

	ledgerOpts := ledger.Options{Logger: logger.Named("ledger"), Metrics: opts.Metrics, Clock: now}
	if opts.Hub != nil {
		ledgerOpts.Notifier = opts.Hub
	}

	r := &Router{
		Router:    mux.NewRouter(),
		db:        db,
		cfg:       cfg,
		logger:    logger,
		metrics:   opts.Metrics,
		hub:       opts.Hub,
		now:       now,
		locations: hierarchy.NewManager(db, logger.Named("hierarchy")),
		ledger:    ledger.NewService(db, ledgerOpts),
		analytics: analytics.NewService(db, logger.Named("analytics"), now),
		auth:      auth.NewService(db, logger.Named("auth"), cfg.JWTSecret, cfg.TokenTTL),
	}
	if opts.Metrics != nil {
		r.Use(middleware.RequestMetrics(opts.Metrics))
	}

	requireAuth := middleware.Auth(cfg.JWTSecret)
	requireAdmin := middleware.RequireAdmin(r.auth)

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")
	if cfg.MetricsEnabled && opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods("GET")
	}
	if opts.Hub != nil {
		r.HandleFunc("/ws", r.serveWs).Methods("GET")
	}

	// QR label target
	r.HandleFunc("/l/{id}", r.resolveLocation).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", r.getStatus).Methods("GET")

	// Auth routes
	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.HandleFunc("/pin", r.pinLogin).Methods("POST")
	authRoutes.HandleFunc("/login", r.login).Methods("POST")
	authRoutes.HandleFunc("/register", r.register).Methods("POST")

	// Floor plan and catalog reads are public
	api.HandleFunc("/locations", r.listLocations).Methods("GET")
	api.HandleFunc("/locations/tree", r.locationTree).Methods("GET")
	api.HandleFunc("/locations/{id}", r.getLocation).Methods("GET")
	api.HandleFunc("/products", r.listProducts).Methods("GET")

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(requireAuth)

	protected.HandleFunc("/locations", r.createLocation).Methods("POST")
	protected.HandleFunc("/locations/labels", r.printLabels).Methods("POST")
	protected.HandleFunc("/locations/{id}", r.updateLocation).Methods("PUT")
	protected.HandleFunc("/locations/{id}", r.deleteLocation).Methods("DELETE")

	protected.HandleFunc("/products", r.createProduct).Methods("POST")
	protected.HandleFunc("/products/{id}", r.updateProduct).Methods("PUT")
	protected.HandleFunc("/products/{id}", r.deleteProduct).Methods("DELETE")

	protected.HandleFunc("/inventory", r.getInventory).Methods("GET")
	protected.HandleFunc("/inventory", r.applyInventory).Methods("POST")
	protected.HandleFunc("/inventory/summary", r.inventorySummary).Methods("GET")
	protected.HandleFunc("/inventory/logs", r.inventoryLogs).Methods("GET")
	protected.HandleFunc("/inventory/state", r.inventoryState).Methods("GET")
	protected.HandleFunc("/inventory/export.xlsx", r.exportInventory).Methods("GET")

	protected.HandleFunc("/snapshots", r.listSnapshots).Methods("GET")
	protected.HandleFunc("/snapshots", r.createSnapshot).Methods("POST")
	protected.HandleFunc("/snapshots/{id}", r.getSnapshot).Methods("GET")

	protected.HandleFunc("/analytics", r.getAnalytics).Methods("GET")

	// User administration
	users := api.PathPrefix("/users").Subrouter()
	users.Use(requireAuth, requireAdmin)
	users.HandleFunc("", r.listUsers).Methods("GET")
	users.HandleFunc("", r.createUser).Methods("POST")
	users.HandleFunc("/{id}", r.updateUser).Methods("PUT")
	users.HandleFunc("/{id}", r.deleteUser).Methods("DELETE")

	return r
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// respondServiceError maps a service error to its HTTP status. Persistence
// failures are logged and answered with a generic message.
func (r *Router) respondServiceError(w http.ResponseWriter, req *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	switch {
	case errors.Is(err, errs.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_ERROR"
	case errors.Is(err, errs.ErrCycle):
		status, code = http.StatusBadRequest, "CYCLE"
	case errors.Is(err, errs.ErrHasChildren):
		status, code = http.StatusBadRequest, "HAS_CHILDREN"
	case errors.Is(err, errs.ErrInvalidOperation):
		status, code = http.StatusBadRequest, "INVALID_OPERATION"
	case errors.Is(err, errs.ErrAuthentication):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, errs.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	default:
		r.logger.Error("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
	}
	body := map[string]string{
		"error":   code,
		"message": errs.Message(err),
	}
	if field := errs.Field(err); field != "" {
		body["field"] = field
	}
	respondJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into v
func decodeJSON(w http.ResponseWriter, req *http.Request, v interface{}) bool {
	req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// currentUserID returns the token subject set by the auth middleware
func currentUserID(req *http.Request) string {
	if c, ok := middleware.ClaimsFrom(req.Context()); ok {
		return c.UserID
	}
	return ""
}

// Ledger exposes the ledger service for background jobs
func (r *Router) Ledger() *ledger.Service {
	return r.ledger
}
