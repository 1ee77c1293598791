package chi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clinico-health/assist/internal/domain"
	"github.com/clinico-health/assist/internal/monitor"
	"github.com/clinico-health/assist/internal/ratelimit"
	"github.com/clinico-health/assist/internal/usecase/agents"
	"github.com/clinico-health/assist/internal/usecase/orchestrator"
)

const analyzeFallback = "I'm sorry, I couldn't analyze the image right now. Please try again in a moment."

// Orchestrator runs the per-turn decision pipeline.
type Orchestrator interface {
	Orchestrate(ctx context.Context, identity domain.Identity, in orchestrator.Input) orchestrator.Output
}

// ImageAnalyzer runs a standalone image analysis outside the agent flow.
type ImageAnalyzer interface {
	Analyze(ctx context.Context, analysisType, imageB64 string) (string, error)
}

// HealthChecker aggregates dependency probes.
type HealthChecker interface {
	Check(ctx context.Context) monitor.Report
}

// CollectionLister exposes the knowledge collections this deployment
// serves, with per-collection index state from the store.
type CollectionLister interface {
	Collections() []string
	Count(ctx context.Context, collection string) (int, error)
	Exists(ctx context.Context, collection string) (bool, error)
}

// ServiceInfo is the static deployment snapshot rendered by the
// liveness summary: version, configured models, and feature flags.
type ServiceInfo struct {
	Version           string
	GenerationBackend string
	GenerationModel   string
	VisionModel       string
	EmbeddingModel    string
	RateLimitEnabled  bool
	MonitoringEnabled bool
	ChatLogEnabled    bool
}

// Server is the HTTP API. Upstream failures never surface as HTTP
// errors here; handlers degrade to a safe answer and the transport only
// rejects bad credentials, bad input, and rate limit hits.
type Server struct {
	orchestrator Orchestrator
	imaging      ImageAnalyzer
	health       HealthChecker
	collections  CollectionLister
	limiter      ratelimit.Limiter
	collector    *monitor.Collector
	info         ServiceInfo
	auth         Auth
	logger       *zap.Logger
}

// NewServer creates the HTTP API server.
func NewServer(
	orc Orchestrator,
	imaging ImageAnalyzer,
	health HealthChecker,
	collections CollectionLister,
	limiter ratelimit.Limiter,
	collector *monitor.Collector,
	info ServiceInfo,
	auth Auth,
	logger *zap.Logger,
) *Server {
	return &Server{
		orchestrator: orc,
		imaging:      imaging,
		health:       health,
		collections:  collections,
		limiter:      limiter,
		collector:    collector,
		info:         info,
		auth:         auth,
		logger:       logger,
	}
}

// Router assembles the route tree. Health and Prometheus endpoints are
// unauthenticated; everything else requires a verified caller, and the
// agent endpoints additionally pass admission control.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/v1/health", s.handleHealth)
	r.Get("/v1/health/detailed", s.handleHealthDetailed)
	r.Method(http.MethodGet, "/v1/metrics/prometheus", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/v1/collections", s.handleCollections)
		r.Get("/v1/metrics", s.handleMetrics)
		r.Get("/v1/metrics/errors", s.handleMetricsErrors)
		r.Post("/v1/metrics/reset", s.handleMetricsReset)
		r.Get("/v1/rate-limit/status", s.handleRateLimitStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.admit)
			r.Post("/v1/agent/orchestrate", s.handleOrchestrate)
			r.Post("/v1/agent/analyze-image", s.handleAnalyzeImage)
		})
	})

	return r
}

// admit applies the caller's rate limit tier. The limiter failing is
// not the caller's fault, so backend errors fail open.
func (s *Server) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			s.writeDomainError(w, r, domain.ErrUnauthorized)
			return
		}

		res, err := s.limiter.Allow(r.Context(), id.UserID, id.Role)
		if err != nil {
			s.logger.Warn("rate limiter unavailable, admitting request",
				zap.String("user_id", id.UserID), zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}

		if !res.Allowed {
			s.collector.RecordRateLimitHit(id.UserID)
			w.Header().Set("Retry-After", strconv.Itoa(res.RetryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Window", string(res.Window))
			s.writeDomainError(w, r, domain.NewRateLimit(res.Limit, string(res.Window), res.RetryAfter))
			return
		}

		w.Header().Set("X-RateLimit-Remaining-Minute", strconv.Itoa(res.Remaining.Minute))
		w.Header().Set("X-RateLimit-Remaining-Hour", strconv.Itoa(res.Remaining.Hour))
		w.Header().Set("X-RateLimit-Remaining-Day", strconv.Itoa(res.Remaining.Day))
		next.ServeHTTP(w, r)
	})
}

type orchestrateRequest struct {
	Query string                `json:"query"`
	Image string                `json:"image,omitempty"`
	State *domain.StateSnapshot `json:"conversation_state,omitempty"`
}

type orchestrateResponse struct {
	domain.AgentResponse
	Query           string        `json:"query"`
	User            string        `json:"user"`
	Intent          domain.Intent `json:"intent"`
	CollectionsUsed []string      `json:"collections_used"`
	HasImage        bool          `json:"has_image"`
}

// handleOrchestrate handles POST /v1/agent/orchestrate.
func (s *Server) handleOrchestrate(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	start := time.Now()

	var req orchestrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeValidation(w, "query is required")
		return
	}

	imageB64, _, err := normalizeImage(req.Image)
	if err != nil {
		s.collector.RecordError("image_decode", err.Error(), r.URL.Path)
		writeError(w, http.StatusBadRequest, "image_decode_failed", "image must be valid base64")
		return
	}

	out := s.orchestrator.Orchestrate(r.Context(), id, orchestrator.Input{
		Query:    query,
		ImageB64: imageB64,
		State:    req.State,
	})

	elapsed := time.Since(start)
	s.collector.RecordRequest(r.URL.Path, elapsed, id.UserID)
	if out.HasImage {
		s.collector.RecordImageProcessing(elapsed)
	}

	writeJSON(w, http.StatusOK, orchestrateResponse{
		AgentResponse:   out.Response,
		Query:           query,
		User:            id.UserID,
		Intent:          out.Intent,
		CollectionsUsed: out.Collections,
		HasImage:        out.HasImage,
	})
}

type analyzeImageRequest struct {
	Image        string `json:"image"`
	Type         string `json:"type,omitempty"`
	AnalysisType string `json:"analysis_type,omitempty"` // accepted alias for type
}

// imageInfo describes the decoded payload: size and sniffed media type.
type imageInfo struct {
	SizeBytes int    `json:"size_bytes"`
	Format    string `json:"format"`
}

type analyzeImageResponse struct {
	AnalysisType   string    `json:"analysis_type"`
	Analysis       string    `json:"analysis"`
	ImageInfo      imageInfo `json:"image_info"`
	Recommendation string    `json:"recommendation"`
	Degraded       bool      `json:"degraded,omitempty"`
}

// handleAnalyzeImage handles POST /v1/agent/analyze-image.
func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	start := time.Now()

	var req analyzeImageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	if req.Image == "" {
		writeValidation(w, "image is required")
		return
	}
	analysisType := req.Type
	if analysisType == "" {
		analysisType = req.AnalysisType
	}
	if analysisType == "" {
		analysisType = "general"
	}
	if !agents.KnownAnalysisType(analysisType) {
		writeValidation(w, "unknown analysis type "+strconv.Quote(analysisType))
		return
	}

	imageB64, info, err := normalizeImage(req.Image)
	if err != nil {
		s.collector.RecordError("image_decode", err.Error(), r.URL.Path)
		writeError(w, http.StatusBadRequest, "image_decode_failed", "image must be valid base64")
		return
	}

	resp := analyzeImageResponse{
		AnalysisType:   analysisType,
		ImageInfo:      info,
		Recommendation: agents.ConsultRecommendation,
	}
	analysis, err := s.imaging.Analyze(r.Context(), analysisType, imageB64)
	if err != nil {
		s.logger.Warn("image analysis failed", zap.String("analysis_type", analysisType), zap.Error(err))
		s.collector.RecordError("upstream", err.Error(), r.URL.Path)
		resp.Analysis = analyzeFallback
		resp.Degraded = true
	} else {
		resp.Analysis = analysis
	}

	elapsed := time.Since(start)
	s.collector.RecordRequest(r.URL.Path, elapsed, id.UserID)
	s.collector.RecordImageProcessing(elapsed)

	writeJSON(w, http.StatusOK, resp)
}

type healthModels struct {
	GenerationBackend string `json:"generation_backend"`
	Generation        string `json:"generation"`
	Vision            string `json:"vision"`
	Embedding         string `json:"embedding"`
}

type healthFeatures struct {
	RateLimit  bool `json:"rate_limit"`
	Monitoring bool `json:"monitoring"`
	ChatLog    bool `json:"chat_log"`
}

type healthSummary struct {
	Status      string         `json:"status"`
	Version     string         `json:"version"`
	Collections []string       `json:"collections"`
	Models      healthModels   `json:"models"`
	Features    healthFeatures `json:"features"`
}

// handleHealth handles GET /v1/health, an unauthenticated liveness
// summary of the loaded collections, configured models, and feature
// flags. Dependencies are not probed here; that is /v1/health/detailed.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthSummary{
		Status:      "ok",
		Version:     s.info.Version,
		Collections: s.collections.Collections(),
		Models: healthModels{
			GenerationBackend: s.info.GenerationBackend,
			Generation:        s.info.GenerationModel,
			Vision:            s.info.VisionModel,
			Embedding:         s.info.EmbeddingModel,
		},
		Features: healthFeatures{
			RateLimit:  s.info.RateLimitEnabled,
			Monitoring: s.info.MonitoringEnabled,
			ChatLog:    s.info.ChatLogEnabled,
		},
	})
}

// handleHealthDetailed handles GET /v1/health/detailed.
func (s *Server) handleHealthDetailed(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status == monitor.StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

type collectionInfo struct {
	Name  string `json:"name"`
	Size  int    `json:"size"`
	Ready bool   `json:"ready"`
}

type collectionsResponse struct {
	Collections []collectionInfo `json:"collections"`
	Count       int              `json:"count"`
}

// handleCollections handles GET /v1/collections: the configured
// collection names with their indexed chunk counts. A collection whose
// index cannot be reached is reported as not ready rather than failing
// the whole listing.
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	names := s.collections.Collections()
	infos := make([]collectionInfo, 0, len(names))
	for _, name := range names {
		info := collectionInfo{Name: name}
		ready, err := s.collections.Exists(r.Context(), name)
		if err != nil {
			s.logger.Warn("collection probe failed", zap.String("collection", name), zap.Error(err))
		} else {
			info.Ready = ready
		}
		if info.Ready {
			size, err := s.collections.Count(r.Context(), name)
			if err != nil {
				s.logger.Warn("collection count failed", zap.String("collection", name), zap.Error(err))
				info.Ready = false
			} else {
				info.Size = size
			}
		}
		infos = append(infos, info)
	}
	writeJSON(w, http.StatusOK, collectionsResponse{Collections: infos, Count: len(infos)})
}

// handleMetrics handles GET /v1/metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Summarize())
}

type metricsErrorsResponse struct {
	Errors []monitor.ErrorRecord `json:"errors"`
	Count  int                   `json:"count"`
}

// handleMetricsErrors handles GET /v1/metrics/errors.
func (s *Server) handleMetricsErrors(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeValidation(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records := s.collector.RecentErrors(limit)
	writeJSON(w, http.StatusOK, metricsErrorsResponse{Errors: records, Count: len(records)})
}

// handleMetricsReset handles POST /v1/metrics/reset.
func (s *Server) handleMetricsReset(w http.ResponseWriter, r *http.Request) {
	if err := s.requireAdmin(r); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.collector.Reset()
	s.logger.Info("metrics reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type windowCounts struct {
	Minute int `json:"minute"`
	Hour   int `json:"hour"`
	Day    int `json:"day"`
}

type rateLimitStatusResponse struct {
	UserID    string              `json:"user_id"`
	Role      domain.Role         `json:"role"`
	Limits    windowCounts        `json:"limits"`
	Used      windowCounts        `json:"used"`
	Remaining ratelimit.Remaining `json:"remaining"`
}

// handleRateLimitStatus handles GET /v1/rate-limit/status.
func (s *Server) handleRateLimitStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	usage, err := s.limiter.Status(r.Context(), id.UserID, id.Role)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rateLimitStatusResponse{
		UserID: id.UserID,
		Role:   id.Role,
		Limits: windowCounts{
			Minute: usage.Tier.PerMinute,
			Hour:   usage.Tier.PerHour,
			Day:    usage.Tier.PerDay,
		},
		Used: windowCounts{Minute: usage.Minute, Hour: usage.Hour, Day: usage.Day},
		Remaining: ratelimit.Remaining{
			Minute: maxInt(usage.Tier.PerMinute-usage.Minute, 0),
			Hour:   maxInt(usage.Tier.PerHour-usage.Hour, 0),
			Day:    maxInt(usage.Tier.PerDay-usage.Day, 0),
		},
	})
}

// normalizeImage strips an optional data URL prefix and verifies the
// payload decodes as base64. The stripped base64 string is returned so
// downstream callers keep working with text; the decoded size and
// sniffed media type are reported alongside.
func normalizeImage(image string) (string, imageInfo, error) {
	if image == "" {
		return "", imageInfo{}, nil
	}
	if strings.HasPrefix(image, "data:") {
		_, rest, ok := strings.Cut(image, ",")
		if !ok {
			return "", imageInfo{}, domain.ErrImageDecode
		}
		image = rest
	}
	decoded, err := base64.StdEncoding.DecodeString(image)
	if err != nil {
		return "", imageInfo{}, domain.ErrImageDecode
	}
	info := imageInfo{
		SizeBytes: len(decoded),
		Format:    http.DetectContentType(decoded),
	}
	return image, info, nil
}

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

func writeValidation(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "validation_failed", message)
}

// writeDomainError maps the few sentinels allowed to cross the HTTP
// boundary. Anything else is an internal error and stays opaque.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		var rle *domain.RateLimitError
		resp := errorResponse{Code: "rate_limited", Message: "rate limit exceeded"}
		if errors.As(err, &rle) {
			resp.Message = rle.Error()
			resp.RetryAfter = rle.RetryAfter
		}
		writeJSON(w, http.StatusTooManyRequests, resp)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, domain.ErrImageDecode):
		writeError(w, http.StatusBadRequest, "image_decode_failed", err.Error())
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrDependencyUnavailable):
		s.logger.Error("dependency unavailable", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "dependency_unavailable", "a required dependency is unavailable")
	default:
		s.logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
