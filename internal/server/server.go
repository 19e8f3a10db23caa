// Package server exposes the cost model, duration optimizer, fee inverter and
// reference interpolator as a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/iwvelando/hiring-cost/internal/cache"
	"github.com/iwvelando/hiring-cost/internal/config"
	"github.com/iwvelando/hiring-cost/internal/feetable"
	"github.com/iwvelando/hiring-cost/internal/inverter"
	"github.com/iwvelando/hiring-cost/pkg/amortization"
	"github.com/iwvelando/hiring-cost/pkg/constants"
	"github.com/iwvelando/hiring-cost/pkg/optimization"
	"github.com/iwvelando/hiring-cost/pkg/output"
	"github.com/iwvelando/hiring-cost/pkg/reference"
	"github.com/iwvelando/hiring-cost/pkg/validation"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Options tune a Handler beyond the application configuration.
type Options struct {
	MaxRequestSize int64
	Version        string
	// Cache stores computed fee tables; nil disables caching.
	Cache    cache.Cache
	CacheTTL time.Duration
	// RateLimit with non-positive Requests disables limiting.
	RateLimit RateLimitConfig
}

// Handler serves the API. Close releases its background resources.
type Handler struct {
	root    http.Handler
	limiter *RateLimiter
}

// ServeHTTP implements http.Handler.
func (s *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.root.ServeHTTP(w, r)
}

// Close stops the rate limiter's sweep. The cache belongs to the caller.
func (s *Handler) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

type handler struct {
	logger         *zap.Logger
	app            *config.Configuration
	model          amortization.Model
	inverter       *inverter.Inverter
	builder        *feetable.Builder
	cache          cache.Cache
	cacheTTL       time.Duration
	limiter        *RateLimiter
	maxRequestSize int64
	version        string
	settingsHash   string
}

// NewHandler constructs the HTTP handler that serves the hiring-cost API.
func NewHandler(logger *zap.Logger, app *config.Configuration, opts Options) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if app == nil {
		app = config.Default()
	}

	maxRequestSize := opts.MaxRequestSize
	if maxRequestSize <= 0 {
		maxRequestSize = constants.DefaultMaxRequestSizeBytes
	}

	version := strings.TrimSpace(opts.Version)
	if version == "" {
		version = "dev"
	}

	model := amortization.NewModel(app.Model.MaxDuration)
	inv, err := inverter.New(logger, model, app.Inverter)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize inverter: %w", err)
	}

	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Duration(constants.DefaultCacheTTLSeconds) * time.Second
	}

	h := &handler{
		logger:         logger,
		app:            app,
		model:          model,
		inverter:       inv,
		builder:        feetable.NewBuilder(logger, inv, app.Batch.Workers),
		cache:          opts.Cache,
		cacheTTL:       cacheTTL,
		maxRequestSize: maxRequestSize,
		version:        version,
		settingsHash:   app.TableFingerprint(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/cost", h.handleCost)
	mux.HandleFunc("/api/optimize", h.handleOptimize)
	mux.HandleFunc("/api/curve", h.handleCurve)
	mux.HandleFunc("/api/invert", h.handleInvert)
	mux.HandleFunc("/api/explore", h.handleExplore)
	mux.HandleFunc("/api/table", h.handleTable)
	mux.HandleFunc("/api/reference", h.handleReference)
	mux.HandleFunc("/api/reference/defaults", h.handleReferenceDefaults)
	mux.HandleFunc("/api/version", h.handleVersion)

	var root http.Handler = mux
	if opts.RateLimit.Requests > 0 {
		window := opts.RateLimit.WindowDuration()
		if window <= 0 {
			window = time.Minute
		}
		h.limiter = NewRateLimiter(opts.RateLimit.Requests, window)
		root = h.withRateLimit(root)
	}
	root = withRequestID(root)

	return &Handler{root: root, limiter: h.limiter}, nil
}

// NewCache builds the cache backend selected by cfg. The "none" backend
// returns a nil Cache.
func NewCache(ctx context.Context, logger *zap.Logger, cfg CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case constants.CacheBackendNone:
		return nil, nil
	case constants.CacheBackendRedis:
		store, err := cache.NewRedis(ctx, logger, cfg.RedisAddress)
		if err != nil {
			return nil, err
		}
		return store, nil
	case constants.CacheBackendMemory, "":
		return cache.NewMemory(logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// Run serves the API on cfg.Address until ctx is cancelled, then shuts the
// server down gracefully.
func Run(ctx context.Context, logger *zap.Logger, cfg *Config, app *config.Configuration, version string) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	store, err := NewCache(ctx, logger, cfg.Cache)
	if err != nil {
		return err
	}
	if store != nil {
		defer func() {
			if closeErr := store.Close(); closeErr != nil {
				logger.Warn("failed to close cache", zap.String("op", "server.Run"), zap.Error(closeErr))
			}
		}()
	}

	handler, err := NewHandler(logger, app, Options{
		MaxRequestSize: cfg.RequestSizeBytes(),
		Version:        version,
		Cache:          store,
		CacheTTL:       cfg.Cache.TTLDuration(),
		RateLimit:      cfg.RateLimit,
	})
	if err != nil {
		return err
	}
	defer handler.Close()

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("server listening",
		zap.String("op", "server.Run"),
		zap.String("address", cfg.Address),
		zap.String("cache", cfg.Cache.Backend),
		zap.String("version", version),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server", zap.String("op", "server.Run"))
		return srv.Shutdown(shutdownCtx)
	}
}

type costRequest struct {
	Salary          float64 `json:"salary"`
	Level           int     `json:"level"`
	Duration        int     `json:"duration"`
	AcquisitionCost float64 `json:"acquisitionCost"`
}

type costResponse struct {
	Cost     float64 `json:"cost"`
	Duration int     `json:"duration"`
}

type optimizeRequest struct {
	Salary          float64 `json:"salary"`
	Level           int     `json:"level"`
	AcquisitionCost float64 `json:"acquisitionCost"`
}

type invertRequest struct {
	Salary     float64 `json:"salary"`
	Level      int     `json:"level"`
	TargetCost float64 `json:"targetCost"`
}

type exploreRequest struct {
	Salary float64 `json:"salary"`
	Levels []int   `json:"levels,omitempty"`
	// Reference replaces the configured observations for this request only.
	Reference []config.LevelReference `json:"reference,omitempty"`
}

type exploreResponse struct {
	Estimates []optimization.Estimate `json:"estimates"`
}

type tableRequest struct {
	Level   int     `json:"level"`
	Spacing float64 `json:"spacing,omitempty"`
}

type tableResponse struct {
	Table        *feetable.Table `json:"table"`
	FeesCSV      string          `json:"feesCsv"`
	DurationsCSV string          `json:"durationsCsv"`
	Cached       bool            `json:"cached"`
	Duration     string          `json:"duration"`
}

func (h *handler) handleCost(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCost"
	var req costRequest
	if !h.decode(w, r, &req, op) {
		return
	}

	if err := firstError(
		validation.ValidateSalary(req.Salary),
		validation.ValidateLevel(req.Level),
		validation.ValidateDuration(req.Duration, h.model.MaxDuration),
		validation.ValidateAcquisitionCost(req.AcquisitionCost),
	); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, costResponse{
		Cost:     amortization.AmortizedCost(req.Salary, req.Duration, req.Level, req.AcquisitionCost),
		Duration: req.Duration,
	})
}

func (h *handler) handleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleOptimize"
	req, ok := h.decodeOptimize(w, r, op)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.model.OptimalDuration(req.Salary, req.Level, req.AcquisitionCost))
}

func (h *handler) handleCurve(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleCurve"
	req, ok := h.decodeOptimize(w, r, op)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.model.Curve(req.Salary, req.Level, req.AcquisitionCost))
}

func (h *handler) decodeOptimize(w http.ResponseWriter, r *http.Request, op string) (optimizeRequest, bool) {
	var req optimizeRequest
	if !h.decode(w, r, &req, op) {
		return req, false
	}
	if err := firstError(
		validation.ValidateSalary(req.Salary),
		validation.ValidateLevel(req.Level),
		validation.ValidateAcquisitionCost(req.AcquisitionCost),
	); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return req, false
	}
	return req, true
}

func (h *handler) handleInvert(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleInvert"
	var req invertRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := firstError(
		validation.ValidateSalary(req.Salary),
		validation.ValidateLevel(req.Level),
		validation.ValidateTargetCost(req.TargetCost),
	); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	result, err := h.inverter.Invert(req.TargetCost, req.Salary, req.Level)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}

	h.writeJSON(w, http.StatusOK, inverter.Summary(req.TargetCost, req.Salary, req.Level, result))
}

func (h *handler) handleExplore(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleExplore"
	var req exploreRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if err := validation.ValidateSalary(req.Salary); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	refs := h.app.Reference
	if len(req.Reference) > 0 {
		refs = config.ReferenceConfig{FallbackToFloor: h.app.Reference.FallbackToFloor, Levels: req.Reference}
		if err := refs.Validate(); err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return
		}
	}

	levels := req.Levels
	if len(levels) == 0 {
		levels = refs.Set().Levels()
	}
	for _, level := range levels {
		if err := validation.ValidateLevel(level); err != nil {
			h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
			return
		}
	}

	h.writeJSON(w, http.StatusOK, exploreResponse{
		Estimates: optimization.Explore(h.model, refs.Estimate, req.Salary, levels),
	})
}

func (h *handler) handleTable(w http.ResponseWriter, r *http.Request) {
	const op = "server.handleTable"
	start := time.Now()

	var req tableRequest
	if !h.decode(w, r, &req, op) {
		return
	}
	if req.Spacing == 0 {
		req.Spacing = constants.DefaultSalarySpacing
	}
	if err := firstError(
		validation.ValidateLevel(req.Level),
		validation.ValidateSpacing(req.Spacing),
	); err != nil {
		h.respondErrorWithOp(w, r, http.StatusBadRequest, err.Error(), op)
		return
	}

	tableReq := feetable.NewRequest(h.app.Batch, req.Level, req.Spacing)
	if _, err := tableReq.Salaries(); err != nil {
		h.respondErrorWithOp(w, r, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}

	key := cache.Key("table", h.version, h.settingsHash, req.Level, req.Spacing)
	if resp, ok := h.cachedTable(r.Context(), key); ok {
		resp.Cached = true
		resp.Duration = time.Since(start).String()
		h.writeJSON(w, http.StatusOK, resp)
		return
	}

	table, err := h.builder.Build(r.Context(), tableReq)
	if err != nil {
		h.respondErrorWithOp(w, r, http.StatusUnprocessableEntity, err.Error(), op)
		return
	}

	resp := tableResponse{Table: table}
	if resp.FeesCSV, err = output.CsvString(output.FeeRecords(table)); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
		return
	}
	if resp.DurationsCSV, err = output.CsvString(output.DurationRecords(table)); err != nil {
		h.respondErrorWithOp(w, r, http.StatusInternalServerError, err.Error(), op)
		return
	}

	h.storeTable(r.Context(), key, resp)
	resp.Duration = time.Since(start).String()

	h.logger.Info("fee table served",
		zap.String("op", op),
		zap.String("requestId", RequestIDFromContext(r.Context())),
		zap.Int("level", req.Level),
		zap.Int("rows", len(table.Rows)),
		zap.Duration("duration", time.Since(start)),
	)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *handler) cachedTable(ctx context.Context, key string) (tableResponse, bool) {
	var resp tableResponse
	if h.cache == nil {
		return resp, false
	}
	data, ok, err := h.cache.Get(ctx, key)
	if err != nil {
		h.logger.Warn("fee table cache lookup failed", zap.String("op", "server.cachedTable"), zap.String("key", key), zap.Error(err))
		return resp, false
	}
	if !ok {
		return resp, false
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		h.logger.Warn("discarding unreadable cached fee table", zap.String("op", "server.cachedTable"), zap.String("key", key), zap.Error(err))
		return resp, false
	}
	return resp, true
}

func (h *handler) storeTable(ctx context.Context, key string, resp tableResponse) {
	if h.cache == nil {
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		h.logger.Warn("failed to encode fee table for cache", zap.String("op", "server.storeTable"), zap.Error(err))
		return
	}
	if err := h.cache.Set(ctx, key, data, h.cacheTTL); err != nil {
		h.logger.Warn("failed to cache fee table", zap.String("op", "server.storeTable"), zap.String("key", key), zap.Error(err))
	}
}

func (h *handler) handleReference(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, referenceResponse(h.app.Reference.Set()))
}

func (h *handler) handleReferenceDefaults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, http.StatusOK, referenceResponse(reference.DefaultSet()))
}

type levelReference struct {
	Level  int               `json:"level"`
	Points []reference.Point `json:"points"`
}

func referenceResponse(set reference.Set) map[string][]levelReference {
	levels := make([]levelReference, 0, len(set))
	for _, lr := range config.FromSet(set) {
		levels = append(levels, levelReference{Level: lr.Level, Points: lr.Points})
	}
	return map[string][]levelReference{"levels": levels}
}

func (h *handler) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"version": h.version,
	})
}

// decode reads a JSON POST body into dst, answering the request itself when
// that fails.
func (h *handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, op string) bool {
	if r.Method != http.MethodPost {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.respondErrorWithOp(w, r, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request exceeds limit of %d bytes", h.maxRequestSize), op)
			return false
		}
		h.respondErrorWithOp(w, r, http.StatusBadRequest, fmt.Sprintf("failed to decode request: %v", err), op)
		return false
	}
	return true
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (h *handler) respondErrorWithOp(w http.ResponseWriter, r *http.Request, status int, msg string, op string) {
	h.logger.Error("request failed",
		zap.String("op", op),
		zap.String("requestId", RequestIDFromContext(r.Context())),
		zap.Int("status", status),
		zap.String("error", msg),
	)

	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}
