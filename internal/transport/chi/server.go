package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/iuslabs/lexdex/internal/domain"
	"github.com/iuslabs/lexdex/internal/domain/entity"
	"github.com/iuslabs/lexdex/internal/domain/search/mode"
	"github.com/iuslabs/lexdex/internal/domain/search/request"
	analyticsuc "github.com/iuslabs/lexdex/internal/usecase/analytics"
	healthuc "github.com/iuslabs/lexdex/internal/usecase/health"
	"github.com/iuslabs/lexdex/internal/usecase/orchestrator"
)

// Dictionary is the catalog surface exposed over HTTP.
type Dictionary interface {
	AddEntity(e entity.Entity) error
	GetEntityByID(id string) *entity.Entity
	GetEntitiesByType(t entity.Type) []entity.Entity
	AllEntities() []entity.Entity
}

// errorCode is the machine-readable error discriminator in responses.
type errorCode string

const (
	codeBadRequest         errorCode = "bad_request"
	codeValidationFailed   errorCode = "validation_failed"
	codeNotFound           errorCode = "not_found"
	codeAlreadyExists      errorCode = "already_exists"
	codeAlreadySet         errorCode = "already_set"
	codeTimeout            errorCode = "timeout"
	codeUpstream           errorCode = "upstream_unavailable"
	codeEmbeddingProvider  errorCode = "embedding_provider_error"
	codeInternalError      errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the HTTP API over the search engine services.
type Server struct {
	search        *orchestrator.Service
	analytics     *analyticsuc.Service
	dictionary    Dictionary
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *orchestrator.Service,
	analytics *analyticsuc.Service,
	dictionary Dictionary,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search:     search,
		analytics:  analytics,
		dictionary: dictionary,
		health:     health,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, codeAlreadyExists),
		sentinelHandler(domain.ErrAlreadySet, http.StatusConflict, codeAlreadySet),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, codeTimeout),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusServiceUnavailable, codeUpstream),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProvider),
	}
	return s
}

// Routes mounts all handlers on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/search", s.Search)
		r.Get("/suggestions", s.Suggestions)
		r.Post("/filters/validate", s.ValidateFilters)

		r.Post("/clicks", s.TrackClick)
		r.Patch("/clicks/{clickId}/dwell", s.SetDwellTime)
		r.Post("/feedback", s.TrackFeedback)

		r.Get("/analytics/search-metrics", s.SearchMetrics)
		r.Get("/analytics/top-documents", s.TopDocuments)

		r.Post("/ab-tests", s.CreateABTest)
		r.Post("/ab-tests/{testId}/assignments", s.AssignVariant)
		r.Get("/ab-tests/{testId}/results", s.ABTestResults)

		r.Post("/entities", s.AddEntity)
		r.Get("/entities", s.ListEntities)
		r.Get("/entities/{entityId}", s.GetEntity)

		r.Get("/cache/stats", s.CacheStats)
		r.Delete("/cache", s.ClearCache)
	})
}

// Search handles POST /api/v1/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var dto searchRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromDTO(dto.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	limit := dto.Limit
	if limit <= 0 {
		limit = 20
	}
	req, err := request.New(
		dto.Query, dto.CaseID, filters,
		dto.Offset, limit, mode.Sort(dto.Sort), dto.SessionID, dto.UserID,
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	resp, err := s.search.Search(r.Context(), &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, searchResponseToDTO(resp))
}

// Suggestions handles GET /api/v1/suggestions.
func (s *Server) Suggestions(w http.ResponseWriter, r *http.Request) {
	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "prefix is required")
		return
	}
	limit := queryInt(r, "limit", 0)

	items := s.search.Suggestions(prefix, limit)
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": items})
}

// ValidateFilters handles POST /api/v1/filters/validate.
func (s *Server) ValidateFilters(w http.ResponseWriter, r *http.Request) {
	var dto filtersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	filters, err := filtersFromDTO(&dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	res := s.search.ValidateFilters(filters)
	writeJSON(w, http.StatusOK, validateFiltersResponseDTO{
		IsValid:     res.IsValid,
		Errors:      res.Errors,
		Warnings:    res.Warnings,
		Suggestions: res.Suggestions,
	})
}

// TrackClick handles POST /api/v1/clicks.
func (s *Server) TrackClick(w http.ResponseWriter, r *http.Request) {
	var dto clickRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id, err := s.analytics.TrackClick(
		r.Context(), dto.SearchInteractionID, dto.DocumentID, dto.Position, dto.RelevanceScore,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"click_id": id})
}

// SetDwellTime handles PATCH /api/v1/clicks/{clickId}/dwell.
func (s *Server) SetDwellTime(w http.ResponseWriter, r *http.Request) {
	var dto dwellRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	clickID := chi.URLParam(r, "clickId")
	if err := s.analytics.UpdateDwellTime(r.Context(), clickID, dto.DwellTimeMs); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TrackFeedback handles POST /api/v1/feedback.
func (s *Server) TrackFeedback(w http.ResponseWriter, r *http.Request) {
	var dto feedbackRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	id, err := s.analytics.TrackRelevanceFeedback(
		r.Context(), dto.SearchInteractionID, dto.DocumentID,
		dto.Rating, dto.IsRelevant, dto.Comment,
	)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"feedback_id": id})
}

// SearchMetrics handles GET /api/v1/analytics/search-metrics.
func (s *Server) SearchMetrics(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	m, err := s.analytics.GetSearchMetrics(r.Context(), from, to, r.URL.Query().Get("user_id"))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, m)
}

// TopDocuments handles GET /api/v1/analytics/top-documents.
func (s *Server) TopDocuments(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}
	limit := queryInt(r, "limit", 0)

	docs, err := s.analytics.TopClickedDocuments(r.Context(), from, to, limit)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

// CreateABTest handles POST /api/v1/ab-tests.
func (s *Server) CreateABTest(w http.ResponseWriter, r *http.Request) {
	var dto abTestRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	test, err := s.analytics.CreateABTest(r.Context(), analyticsuc.CreateABTestInput{
		Name:         dto.Name,
		Variants:     dto.Variants,
		TrafficSplit: dto.TrafficSplit,
		StartsAt:     dto.StartsAt,
		EndsAt:       dto.EndsAt,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"test_id": test.ID})
}

// AssignVariant handles POST /api/v1/ab-tests/{testId}/assignments.
func (s *Server) AssignVariant(w http.ResponseWriter, r *http.Request) {
	var dto assignmentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	testID := chi.URLParam(r, "testId")
	variant, err := s.analytics.AssignUserToABTest(r.Context(), dto.UserID, testID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"variant": variant})
}

// ABTestResults handles GET /api/v1/ab-tests/{testId}/results.
func (s *Server) ABTestResults(w http.ResponseWriter, r *http.Request) {
	testID := chi.URLParam(r, "testId")

	results, err := s.analytics.GetABTestResults(r.Context(), testID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"variants": results})
}

// AddEntity handles POST /api/v1/entities.
func (s *Server) AddEntity(w http.ResponseWriter, r *http.Request) {
	var dto entityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	e, err := entity.New(
		entity.Type(dto.Type), dto.Name, dto.Synonyms, dto.Pattern, dto.Weight,
		entity.Metadata{
			HierarchyLevel: dto.HierarchyLevel,
			Status:         dto.Status,
			Abbreviations:  dto.Abbreviations,
		},
	)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	if err := s.dictionary.AddEntity(e); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", "/api/v1/entities/"+e.ID())
	writeJSON(w, http.StatusCreated, entityToDTO(e))
}

// ListEntities handles GET /api/v1/entities. Without a type parameter the
// whole catalog is returned.
func (s *Server) ListEntities(w http.ResponseWriter, r *http.Request) {
	var entities []entity.Entity
	if raw := r.URL.Query().Get("type"); raw != "" {
		t := entity.Type(raw)
		if !t.IsValid() {
			writeError(w, http.StatusBadRequest, codeValidationFailed, "unknown entity type")
			return
		}
		entities = s.dictionary.GetEntitiesByType(t)
	} else {
		entities = s.dictionary.AllEntities()
	}
	items := make([]entityDTO, len(entities))
	for i, e := range entities {
		items[i] = entityToDTO(e)
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": items})
}

// GetEntity handles GET /api/v1/entities/{entityId}.
func (s *Server) GetEntity(w http.ResponseWriter, r *http.Request) {
	e := s.dictionary.GetEntityByID(chi.URLParam(r, "entityId"))
	if e == nil {
		writeError(w, http.StatusNotFound, codeNotFound, "entity not found")
		return
	}
	writeJSON(w, http.StatusOK, entityToDTO(*e))
}

// CacheStats handles GET /api/v1/cache/stats.
func (s *Server) CacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.search.CacheStats())
}

// ClearCache handles DELETE /api/v1/cache.
func (s *Server) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.search.ClearCache(r.Context()); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseWindowBound(r.URL.Query().Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD or RFC3339")
	}
	to, err := parseWindowBound(r.URL.Query().Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD or RFC3339")
	}
	if from.IsZero() || to.IsZero() {
		return time.Time{}, time.Time{}, errors.New("from and to are required")
	}
	return from, to, nil
}

func parseWindowBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func queryInt(r *http.Request, name string, fallback int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrTimeout,
		domain.ErrAlreadyExists,
		domain.ErrAlreadySet,
		domain.ErrUpstreamUnavailable,
		domain.ErrEmbeddingProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler surfaces the offending field for validation errors.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	if !errors.Is(err, domain.ErrValidation) {
		return false
	}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":    codeValidationFailed,
			"message": msg,
			"field":   ve.Field,
			"reason":  ve.Reason,
		})
		return true
	}
	writeError(w, http.StatusBadRequest, codeValidationFailed, msg)
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
